package services

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const maxPendingWarnings = 20

// Warning is a non-blocking problem raised by background work that the user
// who started it may want to hear about.
type Warning struct {
	Task    string    `json:"task"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Tasks runs fire-and-forget work detached from the caller's context. Errors
// go to the log and never back to the operation that started the task. At
// most limit tasks run at once; the rest wait for a slot in their goroutine.
type Tasks struct {
	wg  sync.WaitGroup
	log logrus.FieldLogger
	sem chan struct{}

	mu       sync.Mutex
	pending  map[string][]Warning
	watchers map[string]map[chan Warning]struct{}
}

func NewTasks(log logrus.FieldLogger, limit int) *Tasks {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if limit <= 0 {
		limit = 16
	}
	return &Tasks{
		log:      log,
		sem:      make(chan struct{}, limit),
		pending:  make(map[string][]Warning),
		watchers: make(map[string]map[chan Warning]struct{}),
	}
}

// Go starts fn in the background. The context passed to fn keeps the caller's
// values but is not cancelled with it.
func (t *Tasks) Go(ctx context.Context, name string, fn func(ctx context.Context) error) {
	bg := context.WithoutCancel(ctx)
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.sem <- struct{}{}
		defer func() { <-t.sem }()
		defer func() {
			if r := recover(); r != nil {
				t.log.WithField("task", name).Errorf("background task panicked: %v", r)
			}
		}()
		if err := fn(bg); err != nil {
			t.log.WithField("task", name).WithError(err).Error("background task failed")
		}
	}()
}

// Warn logs err and routes it to the principal on ctx: live watchers get it at
// once, otherwise it waits in that principal's backlog. Anonymous callers only
// get the log line.
func (t *Tasks) Warn(ctx context.Context, task string, err error) {
	t.log.WithField("task", task).WithError(err).Warn("background task warning")
	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		return
	}
	w := Warning{Task: task, Message: err.Error(), At: time.Now().UTC()}

	t.mu.Lock()
	defer t.mu.Unlock()
	if watchers := t.watchers[principal.ID]; len(watchers) > 0 {
		for ch := range watchers {
			select {
			case ch <- w:
			default:
			}
		}
		return
	}
	backlog := append(t.pending[principal.ID], w)
	if len(backlog) > maxPendingWarnings {
		backlog = backlog[len(backlog)-maxPendingWarnings:]
	}
	t.pending[principal.ID] = backlog
}

// TakeWarnings returns and clears the backlog of principalID.
func (t *Tasks) TakeWarnings(principalID string) []Warning {
	t.mu.Lock()
	defer t.mu.Unlock()
	backlog := t.pending[principalID]
	delete(t.pending, principalID)
	return backlog
}

// WatchWarnings delivers warnings for principalID as they are raised, starting
// with any backlog. The returned func stops delivery.
func (t *Tasks) WatchWarnings(principalID string) (<-chan Warning, func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ch := make(chan Warning, maxPendingWarnings)
	for _, w := range t.pending[principalID] {
		ch <- w
	}
	delete(t.pending, principalID)

	if t.watchers[principalID] == nil {
		t.watchers[principalID] = make(map[chan Warning]struct{})
	}
	t.watchers[principalID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			delete(t.watchers[principalID], ch)
			if len(t.watchers[principalID]) == 0 {
				delete(t.watchers, principalID)
			}
		})
	}
}

// Wait blocks until every started task has returned.
func (t *Tasks) Wait() {
	t.wg.Wait()
}
