package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/PrayerLoop/recordsync/models"
	"github.com/PrayerLoop/recordsync/stores"
)

// Deps are the collaborators shared by every synchronizer.
type Deps struct {
	Remote stores.DocumentStore
	Local  stores.LocalStore
	Log    logrus.FieldLogger
	Now    func() time.Time
	// Locker guards local list rewrites when the local store is shared.
	Locker stores.Locker
	// StrictOwnership refuses deletes of records that carry no owner.
	StrictOwnership bool
}

func (d Deps) withDefaults() Deps {
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// Schema describes one collection to the synchronizer.
type Schema[P models.Payload] struct {
	Collection models.Collection
	Decode     func(models.Document) P
	// Validate runs before any store call. Optional.
	Validate func(P) error
}

type ListOptions struct {
	Filters []stores.Filter
	// View caches the merged result under a derived local list.
	View  string
	Limit int
}

// RecordInfo is the collection-independent view of a record that engagement
// and fan-out need about a parent.
type RecordInfo struct {
	ID          string
	Collection  models.Collection
	OwnerID     string
	CommunityID string
	Title       string
	Likes       int
	// Remote is false when the record was only found in the local store.
	Remote bool
}

// Synchronizer keeps one collection consistent across the remote document
// store and the local cache: writes go remote first with a local fallback,
// reads merge both with the remote copy winning.
type Synchronizer[P models.Payload] struct {
	schema  Schema[P]
	path    string
	dataset stores.Dataset
	deps    Deps
	log     logrus.FieldLogger
}

func NewSynchronizer[P models.Payload](schema Schema[P], path string, dataset stores.Dataset, deps Deps) *Synchronizer[P] {
	deps = deps.withDefaults()
	return &Synchronizer[P]{
		schema:  schema,
		path:    path,
		dataset: dataset,
		deps:    deps,
		log: deps.Log.WithFields(logrus.Fields{
			"collection": schema.Collection,
			"path":       path,
		}),
	}
}

func (s *Synchronizer[P]) Path() string {
	return s.path
}

func (s *Synchronizer[P]) Dataset() stores.Dataset {
	return s.dataset
}

func (s *Synchronizer[P]) Collection() models.Collection {
	return s.schema.Collection
}

func (s *Synchronizer[P]) Validate(payload P) error {
	if s.schema.Validate == nil {
		return nil
	}
	return s.schema.Validate(payload)
}

// Create writes a new record. Remote failures are logged and the record is
// kept locally under a temporary id; only validation errors are returned.
// Views name extra local lists the record is prepended to.
func (s *Synchronizer[P]) Create(ctx context.Context, payload P, owner *models.Principal, views ...string) (models.Record[P], error) {
	if err := s.Validate(payload); err != nil {
		return models.Record[P]{}, err
	}
	rec, _ := s.write(ctx, payload, owner, false, views)
	return rec, nil
}

// CreateLocal stores a record in the local cache only.
func (s *Synchronizer[P]) CreateLocal(ctx context.Context, payload P, owner *models.Principal, views ...string) (models.Record[P], error) {
	if err := s.Validate(payload); err != nil {
		return models.Record[P]{}, err
	}
	rec, _ := s.write(ctx, payload, owner, true, views)
	return rec, nil
}

// write returns the remote error so fan-out can report per-recipient
// outcomes. Payload validation has already happened.
func (s *Synchronizer[P]) write(ctx context.Context, payload P, owner *models.Principal, localOnly bool, views []string) (models.Record[P], error) {
	now := s.deps.Now().UTC()
	rec := models.Record[P]{
		Collection: s.schema.Collection,
		CreatedAt:  now,
		IsActive:   true,
		Payload:    payload,
	}
	if owner != nil {
		rec.OwnerID = owner.ID
	}

	var remoteErr error
	if localOnly {
		rec.ID = s.localID(now)
	} else {
		doc := rec.Document()
		doc[models.FieldCreatedAt] = stores.ServerTimestamp
		id, err := s.deps.Remote.CreateDocument(ctx, s.path, doc)
		if err != nil {
			remoteErr = err
			s.logRemoteFailure("create", "", err)
			rec.ID = s.localID(now)
		} else {
			rec.ID = id
		}
	}

	rec = s.decode(rec.ID, rec.Document())

	keys := append([]string{s.dataset.Key()}, s.viewKeys(views)...)
	for _, key := range keys {
		if err := s.prependLocal(ctx, key, rec); err != nil {
			s.log.WithField("recordId", rec.ID).WithField("key", key).WithError(err).
				Error("failed to write record to local store")
		}
	}
	return rec, remoteErr
}

// ListLocal returns the cached primary list without touching the remote store.
func (s *Synchronizer[P]) ListLocal(ctx context.Context) []models.Record[P] {
	return activeOnly(s.localRecords(ctx, s.dataset.Key()))
}

// List reads the remote set and merges it with the local cache. When the
// remote store fails the local view is returned instead.
func (s *Synchronizer[P]) List(ctx context.Context, opts ListOptions) []models.Record[P] {
	key := s.dataset.Key()
	if opts.View != "" {
		key = s.dataset.View(opts.View)
	}
	local := filterRecords(s.localRecords(ctx, key), opts.Filters)

	q := stores.Query{
		Filters:   opts.Filters,
		OrderBy:   models.FieldCreatedAt,
		Direction: stores.Desc,
		Limit:     opts.Limit,
	}
	snaps, err := s.deps.Remote.QueryDocuments(ctx, s.path, q)
	if err != nil {
		s.logRemoteFailure("list", "", err)
		return limitRecords(activeOnly(sortNewestFirst(local)), opts.Limit)
	}

	remote := make([]models.Record[P], 0, len(snaps))
	for _, snap := range snaps {
		remote = append(remote, s.decode(snap.ID, snap.Data))
	}
	merged := mergeRecords(remote, local)

	if len(opts.Filters) == 0 || opts.View != "" {
		if err := s.writeLocal(ctx, key, merged); err != nil {
			s.log.WithField("key", key).WithError(err).Error("failed to refresh local store")
		}
	}
	return limitRecords(activeOnly(merged), opts.Limit)
}

// limitRecords keeps the first n records; n <= 0 keeps all.
func limitRecords[P models.Payload](recs []models.Record[P], n int) []models.Record[P] {
	if n > 0 && len(recs) > n {
		return recs[:n]
	}
	return recs
}

// Get loads a record from the remote store, falling back to every local list
// of the dataset.
func (s *Synchronizer[P]) Get(ctx context.Context, id string) (models.Record[P], error) {
	rec, _, err := s.get(ctx, id)
	return rec, err
}

func (s *Synchronizer[P]) get(ctx context.Context, id string) (models.Record[P], bool, error) {
	doc, found, err := s.deps.Remote.GetDocument(ctx, s.path, id)
	switch {
	case err != nil:
		s.logRemoteFailure("get", id, err)
	case found:
		return s.decode(id, doc), true, nil
	}

	if rec, ok := s.findLocal(ctx, id); ok {
		return rec, false, nil
	}
	return models.Record[P]{}, false, fmt.Errorf("%w: %s %s", ErrNotFound, s.schema.Collection, id)
}

// Describe implements the parent lookup used by engagement.
func (s *Synchronizer[P]) Describe(ctx context.Context, id string) (RecordInfo, error) {
	rec, remote, err := s.get(ctx, id)
	if err != nil {
		return RecordInfo{}, err
	}
	doc := rec.Document()
	title := doc.String("title")
	if title == "" {
		title = doc.String("name")
	}
	return RecordInfo{
		ID:          rec.ID,
		Collection:  rec.Collection,
		OwnerID:     rec.OwnerID,
		CommunityID: doc.String("communityId"),
		Title:       title,
		Likes:       doc.Count(models.FieldLikes),
		Remote:      remote,
	}, nil
}

// Delete removes a record owned by principal. Records without an owner are
// deletable by anyone unless StrictOwnership is set. The local cache is pruned
// even when the remote delete fails.
func (s *Synchronizer[P]) Delete(ctx context.Context, id string, principal *models.Principal) error {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	entry := s.log.WithField("recordId", id)
	switch {
	case rec.OwnerID == "":
		if s.deps.StrictOwnership {
			return fmt.Errorf("%w: %s %s has no owner", ErrOwnership, s.schema.Collection, id)
		}
		entry.Warn("deleting legacy record without an owner")
	case principal == nil || principal.ID != rec.OwnerID:
		return fmt.Errorf("%w: %s %s", ErrOwnership, s.schema.Collection, id)
	}

	if err := s.deps.Remote.DeleteDocument(ctx, s.path, id); err != nil {
		s.logRemoteFailure("delete", id, err)
	}
	s.PruneLocal(ctx, id)
	return nil
}

// PruneLocal removes a record from every local list of the dataset.
func (s *Synchronizer[P]) PruneLocal(ctx context.Context, id string) {
	s.rewriteLocal(ctx, func(recs []models.Record[P]) ([]models.Record[P], bool) {
		out := recs[:0:0]
		for _, r := range recs {
			if r.ID != id {
				out = append(out, r)
			}
		}
		return out, len(out) != len(recs)
	})
}

// UpdateCounter patches the local copies and then the remote counter. The
// local patch stands whatever the remote outcome.
func (s *Synchronizer[P]) UpdateCounter(ctx context.Context, id, field string, delta int) error {
	s.PatchLocalCounter(ctx, id, field, delta)
	return s.IncrementRemote(ctx, id, field, delta)
}

// PatchLocalCounter adds delta to field on every cached copy of the record,
// clamping at 0. It returns the patched value and whether any copy was found.
func (s *Synchronizer[P]) PatchLocalCounter(ctx context.Context, id, field string, delta int) (int, bool) {
	value, found := 0, false
	s.rewriteLocal(ctx, func(recs []models.Record[P]) ([]models.Record[P], bool) {
		changed := false
		for i, r := range recs {
			if r.ID != id {
				continue
			}
			doc := r.Document()
			next := doc.Count(field) + delta
			if next < 0 {
				next = 0
			}
			doc[field] = next
			recs[i] = s.decode(id, doc)
			value, found, changed = next, true, true
		}
		return recs, changed
	})
	return value, found
}

func (s *Synchronizer[P]) IncrementRemote(ctx context.Context, id, field string, delta int) error {
	err := s.deps.Remote.UpdateDocument(ctx, s.path, id, models.Document{field: stores.Increment(delta)})
	if err != nil {
		return fmt.Errorf("increment %s on %s %s: %w", field, s.schema.Collection, id, err)
	}
	return nil
}

// UpdateRemote applies a partial update, typically atomic transforms. Errors
// are logged and returned for the caller to decide on.
func (s *Synchronizer[P]) UpdateRemote(ctx context.Context, id string, partial models.Document) error {
	if err := s.deps.Remote.UpdateDocument(ctx, s.path, id, partial); err != nil {
		s.logRemoteFailure("update", id, err)
		return err
	}
	return nil
}

// MutateLocal applies fn to every cached copy of the record. fn reports
// whether it changed the record.
func (s *Synchronizer[P]) MutateLocal(ctx context.Context, id string, fn func(*models.Record[P]) bool) bool {
	mutated := false
	s.rewriteLocal(ctx, func(recs []models.Record[P]) ([]models.Record[P], bool) {
		changed := false
		for i := range recs {
			if recs[i].ID == id && fn(&recs[i]) {
				recs[i] = s.decode(id, recs[i].Document())
				changed, mutated = true, true
			}
		}
		return recs, changed
	})
	return mutated
}

// CacheLocal upserts a record into the primary local list.
func (s *Synchronizer[P]) CacheLocal(ctx context.Context, rec models.Record[P]) error {
	key := s.dataset.Key()
	recs := s.localRecords(ctx, key)
	for i, r := range recs {
		if r.ID == rec.ID {
			recs[i] = rec
			return s.writeLocal(ctx, key, recs)
		}
	}
	return s.writeLocal(ctx, key, append([]models.Record[P]{rec}, recs...))
}

// ClearLocal drops every local list of the dataset.
func (s *Synchronizer[P]) ClearLocal(ctx context.Context) {
	for _, key := range s.localKeys(ctx) {
		if err := s.deps.Local.Remove(ctx, key); err != nil {
			s.log.WithField("key", key).WithError(err).Error("failed to clear local store")
		}
	}
}

func (s *Synchronizer[P]) decode(id string, doc models.Document) models.Record[P] {
	return models.DecodeRecord(s.schema.Collection, id, doc, s.schema.Decode)
}

func (s *Synchronizer[P]) localID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("local_%d_%s", now.UnixMilli(), suffix)
}

func (s *Synchronizer[P]) viewKeys(views []string) []string {
	keys := make([]string, 0, len(views))
	for _, v := range views {
		if v != "" {
			keys = append(keys, s.dataset.View(v))
		}
	}
	return keys
}

func (s *Synchronizer[P]) logRemoteFailure(op, id string, err error) {
	entry := s.log.WithField("op", op).WithError(err)
	if id != "" {
		entry = entry.WithField("recordId", id)
	}
	if errors.Is(err, stores.ErrPermissionDenied) {
		entry.Warn("remote store denied access, continuing with local store")
		return
	}
	entry.Error("remote store failed, continuing with local store")
}

// localRecords reads a local list. Unreadable or corrupt lists read as empty.
func (s *Synchronizer[P]) localRecords(ctx context.Context, key string) []models.Record[P] {
	recs, err := s.readLocal(ctx, key)
	if err != nil {
		s.log.WithField("key", key).WithError(err).Error("failed to read local store")
		return nil
	}
	return recs
}

func (s *Synchronizer[P]) readLocal(ctx context.Context, key string) ([]models.Record[P], error) {
	raw, found, err := s.deps.Local.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !found || raw == "" {
		return nil, nil
	}
	var docs []models.Document
	if err := json.Unmarshal([]byte(raw), &docs); err != nil {
		return nil, fmt.Errorf("corrupt local list %s: %w", key, err)
	}
	recs := make([]models.Record[P], 0, len(docs))
	for _, d := range docs {
		id := d.String(models.FieldID)
		if id == "" {
			continue
		}
		recs = append(recs, s.decode(id, d))
	}
	return recs, nil
}

func (s *Synchronizer[P]) writeLocal(ctx context.Context, key string, recs []models.Record[P]) error {
	docs := make([]models.Document, 0, len(recs))
	for _, r := range recs {
		d := r.Document()
		d[models.FieldID] = r.ID
		docs = append(docs, d)
	}
	raw, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("encode local list %s: %w", key, err)
	}
	return s.deps.Local.Set(ctx, key, string(raw))
}

func (s *Synchronizer[P]) prependLocal(ctx context.Context, key string, rec models.Record[P]) error {
	var err error
	withLocalLock(ctx, s.deps, s.log, key, func() {
		recs, readErr := s.readLocal(ctx, key)
		if readErr != nil {
			s.log.WithField("key", key).WithError(readErr).Warn("replacing unreadable local list")
			recs = nil
		}
		err = s.writeLocal(ctx, key, append([]models.Record[P]{rec}, recs...))
	})
	return err
}

// localKeys lists every key of the dataset, falling back to the primary key
// when the store cannot enumerate.
func (s *Synchronizer[P]) localKeys(ctx context.Context) []string {
	all, err := s.deps.Local.ListKeys(ctx)
	if err != nil {
		s.log.WithError(err).Error("failed to list local keys")
		return []string{s.dataset.Key()}
	}
	var keys []string
	for _, k := range all {
		if s.dataset.Owns(k) {
			keys = append(keys, k)
		}
	}
	return keys
}

func (s *Synchronizer[P]) rewriteLocal(ctx context.Context, fn func([]models.Record[P]) ([]models.Record[P], bool)) {
	for _, key := range s.localKeys(ctx) {
		withLocalLock(ctx, s.deps, s.log, key, func() {
			recs, err := s.readLocal(ctx, key)
			if err != nil {
				s.log.WithField("key", key).WithError(err).Error("failed to read local store")
				return
			}
			next, changed := fn(recs)
			if !changed {
				return
			}
			if err := s.writeLocal(ctx, key, next); err != nil {
				s.log.WithField("key", key).WithError(err).Error("failed to write local store")
			}
		})
	}
}

// withLocalLock runs fn under the key lock when a Locker is configured. When
// the lock cannot be taken fn still runs.
func withLocalLock(ctx context.Context, deps Deps, log logrus.FieldLogger, key string, fn func()) {
	if deps.Locker == nil {
		fn()
		return
	}
	unlock, err := deps.Locker.Lock(ctx, key)
	if err != nil {
		log.WithField("key", key).WithError(err).Warn("local lock unavailable, writing without it")
		fn()
		return
	}
	defer unlock()
	fn()
}

func (s *Synchronizer[P]) findLocal(ctx context.Context, id string) (models.Record[P], bool) {
	keys := s.localKeys(ctx)
	sort.SliceStable(keys, func(i, j int) bool { return keys[i] == s.dataset.Key() && keys[j] != s.dataset.Key() })
	for _, key := range keys {
		for _, r := range s.localRecords(ctx, key) {
			if r.ID == id {
				return r, true
			}
		}
	}
	return models.Record[P]{}, false
}

// mergeRecords returns every remote record plus the local records whose id the
// remote set lacks, newest first. The remote copy replaces any local copy with
// the same id.
func mergeRecords[P models.Payload](remote, local []models.Record[P]) []models.Record[P] {
	seen := make(map[string]struct{}, len(remote)+len(local))
	out := make([]models.Record[P], 0, len(remote)+len(local))
	for _, group := range [][]models.Record[P]{remote, local} {
		for _, r := range group {
			if _, dup := seen[r.ID]; dup {
				continue
			}
			seen[r.ID] = struct{}{}
			out = append(out, r)
		}
	}
	return sortNewestFirst(out)
}

func sortNewestFirst[P models.Payload](recs []models.Record[P]) []models.Record[P] {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].CreatedAt.After(recs[j].CreatedAt)
	})
	return recs
}

func activeOnly[P models.Payload](recs []models.Record[P]) []models.Record[P] {
	out := make([]models.Record[P], 0, len(recs))
	for _, r := range recs {
		if r.IsActive {
			out = append(out, r)
		}
	}
	return out
}

func filterRecords[P models.Payload](recs []models.Record[P], filters []stores.Filter) []models.Record[P] {
	if len(filters) == 0 {
		return recs
	}
	out := recs[:0:0]
	for _, r := range recs {
		doc := r.Document()
		match := true
		for _, f := range filters {
			if fmt.Sprint(doc[f.Field]) != fmt.Sprint(f.Value) {
				match = false
				break
			}
		}
		if match {
			out = append(out, r)
		}
	}
	return out
}
