package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/PrayerLoop/recordsync/models"
	"github.com/PrayerLoop/recordsync/stores"
)

type testEnv struct {
	deps     Deps
	remote   *stores.MemoryDocumentStore
	local    *stores.MemoryLocalStore
	registry *stores.Registry
	hook     *test.Hook
	log      *logrus.Logger
	tasks    *Tasks
}

func newTestEnv() *testEnv {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	remote := stores.NewMemoryDocumentStore()
	local := stores.NewMemoryLocalStore()
	return &testEnv{
		deps: Deps{
			Remote: remote,
			Local:  local,
			Log:    log,
			Now:    newTestClock(),
		},
		remote:   remote,
		local:    local,
		registry: stores.NewRegistry(),
		hook:     hook,
		log:      log,
		tasks:    NewTasks(log, 8),
	}
}

// newTestClock ticks one second per call so creation order is deterministic.
func newTestClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func (e *testEnv) prayerSync() *Synchronizer[models.Prayer] {
	return NewSynchronizer(prayerSchema(models.CollectionPrayer), "prayers", e.registry.Dataset(models.CollectionPrayer), e.deps)
}

func (e *testEnv) warnings(msg string) int {
	n := 0
	for _, entry := range e.hook.AllEntries() {
		if entry.Level == logrus.WarnLevel && entry.Message == msg {
			n++
		}
	}
	return n
}

func principal(id, name string) *models.Principal {
	return &models.Principal{ID: id, DisplayName: name}
}

func asPrincipal(p *models.Principal) context.Context {
	return WithPrincipal(context.Background(), *p)
}

// brokenLocalStore fails every call.
type brokenLocalStore struct{}

var errDiskFull = errors.New("disk full")

func (brokenLocalStore) Get(context.Context, string) (string, bool, error) { return "", false, errDiskFull }
func (brokenLocalStore) Set(context.Context, string, string) error         { return errDiskFull }
func (brokenLocalStore) Remove(context.Context, string) error              { return errDiskFull }
func (brokenLocalStore) ListKeys(context.Context) ([]string, error)         { return nil, errDiskFull }

type recordingPusher struct {
	mu         sync.Mutex
	recipients []string
}

func (p *recordingPusher) Push(_ context.Context, recipientID string, _ models.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.recipients = append(p.recipients, recipientID)
	return nil
}
