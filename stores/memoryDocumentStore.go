package stores

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/PrayerLoop/recordsync/models"
)

type memoryDoc struct {
	data models.Document
	seq  int
}

type memorySubscription struct {
	path     string
	query    Query
	onChange func([]Snapshot)
}

// MemoryDocumentStore is an in-process DocumentStore. It backs tests and the
// offline development mode, and can be told to fail to simulate outages.
type MemoryDocumentStore struct {
	mu          sync.Mutex
	collections map[string]map[string]*memoryDoc
	seq         int
	failure     error
	pathFailure map[string]error
	docFailure  map[string]error
	subs        map[int]*memorySubscription
	nextSub     int
	now         func() time.Time
}

func NewMemoryDocumentStore() *MemoryDocumentStore {
	return &MemoryDocumentStore{
		collections: make(map[string]map[string]*memoryDoc),
		pathFailure: make(map[string]error),
		docFailure:  make(map[string]error),
		subs:        make(map[int]*memorySubscription),
		now:         time.Now,
	}
}

// SetFailure makes every call fail with err. Pass nil to recover.
func (s *MemoryDocumentStore) SetFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failure = err
}

// FailPath makes calls against one collection path fail with err.
func (s *MemoryDocumentStore) FailPath(path string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.pathFailure, path)
		return
	}
	s.pathFailure[path] = err
}

// FailDocument makes reads and writes of one document fail with err.
func (s *MemoryDocumentStore) FailDocument(path, id string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.docFailure, path+"/"+id)
		return
	}
	s.docFailure[path+"/"+id] = err
}

func (s *MemoryDocumentStore) checkDocLocked(path, id string) error {
	if err := s.checkLocked(path); err != nil {
		return err
	}
	return s.docFailure[path+"/"+id]
}

func (s *MemoryDocumentStore) checkLocked(path string) error {
	if s.failure != nil {
		return s.failure
	}
	if err, ok := s.pathFailure[path]; ok {
		return err
	}
	return nil
}

func (s *MemoryDocumentStore) CreateDocument(_ context.Context, path string, doc models.Document) (string, error) {
	s.mu.Lock()
	if err := s.checkLocked(path); err != nil {
		s.mu.Unlock()
		return "", err
	}
	s.seq++
	id := fmt.Sprintf("doc%06d", s.seq)
	data := models.Document{}
	for k, v := range doc.Clone() {
		data[k] = s.resolveLocked(nil, v)
	}
	s.collectionLocked(path)[id] = &memoryDoc{data: data, seq: s.seq}
	notify := s.pendingLocked(path)
	s.mu.Unlock()

	notify()
	return id, nil
}

func (s *MemoryDocumentStore) GetDocument(_ context.Context, path, id string) (models.Document, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkDocLocked(path, id); err != nil {
		return nil, false, err
	}
	doc, ok := s.collections[path][id]
	if !ok {
		return nil, false, nil
	}
	return doc.data.Clone(), true, nil
}

func (s *MemoryDocumentStore) UpdateDocument(_ context.Context, path, id string, partial models.Document) error {
	s.mu.Lock()
	if err := s.checkDocLocked(path, id); err != nil {
		s.mu.Unlock()
		return err
	}
	doc, ok := s.collections[path][id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s/%s", ErrDocumentNotFound, path, id)
	}
	for k, v := range partial {
		doc.data[k] = s.resolveLocked(doc.data[k], v)
	}
	notify := s.pendingLocked(path)
	s.mu.Unlock()

	notify()
	return nil
}

func (s *MemoryDocumentStore) DeleteDocument(_ context.Context, path, id string) error {
	s.mu.Lock()
	if err := s.checkDocLocked(path, id); err != nil {
		s.mu.Unlock()
		return err
	}
	delete(s.collections[path], id)
	notify := s.pendingLocked(path)
	s.mu.Unlock()

	notify()
	return nil
}

func (s *MemoryDocumentStore) QueryDocuments(_ context.Context, path string, q Query) ([]Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked(path); err != nil {
		return nil, err
	}
	return s.queryLocked(path, q), nil
}

func (s *MemoryDocumentStore) CountDocuments(_ context.Context, path string, q Query) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked(path); err != nil {
		return 0, err
	}
	q.Limit = 0
	return len(s.queryLocked(path, q)), nil
}

// Subscribe delivers the current result set immediately and again after
// every write to path.
func (s *MemoryDocumentStore) Subscribe(ctx context.Context, path string, q Query, onChange func([]Snapshot), onError func(error)) (Unsubscribe, error) {
	s.mu.Lock()
	if err := s.checkLocked(path); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.nextSub++
	subID := s.nextSub
	s.subs[subID] = &memorySubscription{path: path, query: q, onChange: onChange}
	initial := s.queryLocked(path, q)
	s.mu.Unlock()

	onChange(initial)

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, subID)
			s.mu.Unlock()
		})
	}
	if ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			unsubscribe()
		}()
	}
	return unsubscribe, nil
}

// Paths lists collection paths holding at least one document.
func (s *MemoryDocumentStore) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var paths []string
	for p, docs := range s.collections {
		if len(docs) > 0 {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths
}

func (s *MemoryDocumentStore) collectionLocked(path string) map[string]*memoryDoc {
	c, ok := s.collections[path]
	if !ok {
		c = make(map[string]*memoryDoc)
		s.collections[path] = c
	}
	return c
}

// pendingLocked snapshots every subscription on path so callbacks can run
// after the lock is released.
func (s *MemoryDocumentStore) pendingLocked(path string) func() {
	type delivery struct {
		fn    func([]Snapshot)
		snaps []Snapshot
	}
	var deliveries []delivery
	for _, sub := range s.subs {
		if sub.path == path {
			deliveries = append(deliveries, delivery{fn: sub.onChange, snaps: s.queryLocked(path, sub.query)})
		}
	}
	return func() {
		for _, d := range deliveries {
			d.fn(d.snaps)
		}
	}
}

func (s *MemoryDocumentStore) resolveLocked(current, v any) any {
	switch op := v.(type) {
	case IncrementOp:
		return models.Document{"v": current}.Int("v") + op.By
	case ArrayUnionOp:
		out := toAnySlice(current)
		for _, value := range op.Values {
			if !containsValue(out, value) {
				out = append(out, value)
			}
		}
		return out
	case ArrayRemoveOp:
		var out []any
		for _, existing := range toAnySlice(current) {
			if !containsValue(op.Values, existing) {
				out = append(out, existing)
			}
		}
		if out == nil {
			out = []any{}
		}
		return out
	case serverTime:
		return s.now().UTC()
	}
	return v
}

func (s *MemoryDocumentStore) queryLocked(path string, q Query) []Snapshot {
	var matched []*memoryDoc
	ids := make(map[*memoryDoc]string)
	for id, doc := range s.collections[path] {
		if matchesFilters(doc.data, q.Filters) {
			matched = append(matched, doc)
			ids[doc] = id
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if q.OrderBy != "" {
			c := compareValues(matched[i].data[q.OrderBy], matched[j].data[q.OrderBy])
			if c != 0 {
				if q.Direction == Desc {
					return c > 0
				}
				return c < 0
			}
		}
		return matched[i].seq < matched[j].seq
	})
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	snaps := make([]Snapshot, 0, len(matched))
	for _, doc := range matched {
		snaps = append(snaps, Snapshot{ID: ids[doc], Data: doc.data.Clone()})
	}
	return snaps
}

func matchesFilters(doc models.Document, filters []Filter) bool {
	for _, f := range filters {
		if !equalValues(doc[f.Field], f.Value) {
			return false
		}
	}
	return true
}

func toAnySlice(v any) []any {
	switch vv := v.(type) {
	case []any:
		return append([]any(nil), vv...)
	case []string:
		out := make([]any, 0, len(vv))
		for _, s := range vv {
			out = append(out, s)
		}
		return out
	}
	return []any{}
}

func containsValue(values []any, v any) bool {
	for _, existing := range values {
		if equalValues(existing, v) {
			return true
		}
	}
	return false
}

func equalValues(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func compareValues(a, b any) int {
	if ta, ok := a.(time.Time); ok {
		tb, _ := b.(time.Time)
		return ta.Compare(tb)
	}
	if fa, ok := toFloat(a); ok {
		fb, _ := toFloat(b)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}
