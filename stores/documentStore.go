package stores

import (
	"context"
	"errors"

	"github.com/PrayerLoop/recordsync/models"
)

var (
	// ErrRemoteUnavailable covers network failures and service outages.
	ErrRemoteUnavailable = errors.New("remote store unavailable")
	// ErrPermissionDenied means the remote store rejected the caller.
	ErrPermissionDenied = errors.New("remote store permission denied")
	// ErrDocumentNotFound is returned by updates against a missing document.
	ErrDocumentNotFound = errors.New("document not found")
)

// IsRecoverable reports whether a remote failure should degrade the caller to
// local-only operation instead of failing it.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrRemoteUnavailable) || errors.Is(err, ErrPermissionDenied)
}

// Snapshot is a document read from the remote store.
type Snapshot struct {
	ID   string
	Data models.Document
}

type Direction int

const (
	Asc Direction = iota
	Desc
)

type Filter struct {
	Field string
	Value any
}

// Query is an equality-filter query with optional ordering and limit.
type Query struct {
	Filters   []Filter
	OrderBy   string
	Direction Direction
	Limit     int
}

func Where(field string, value any) Query {
	return Query{}.Where(field, value)
}

func (q Query) Where(field string, value any) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Field: field, Value: value})
	return q
}

func (q Query) Order(field string, dir Direction) Query {
	q.OrderBy = field
	q.Direction = dir
	return q
}

func (q Query) WithLimit(n int) Query {
	q.Limit = n
	return q
}

// Atomic field transforms accepted in partial updates.
type (
	IncrementOp   struct{ By int }
	ArrayUnionOp  struct{ Values []any }
	ArrayRemoveOp struct{ Values []any }
	serverTime    struct{}
)

func Increment(n int) IncrementOp {
	return IncrementOp{By: n}
}

func ArrayUnion(values ...any) ArrayUnionOp {
	return ArrayUnionOp{Values: values}
}

func ArrayRemove(values ...any) ArrayRemoveOp {
	return ArrayRemoveOp{Values: values}
}

// ServerTimestamp is replaced by the remote store's clock on write.
var ServerTimestamp = serverTime{}

type Unsubscribe func()

// DocumentStore is the remote store usage contract. Failures are reported as
// (wrapped) ErrRemoteUnavailable or ErrPermissionDenied.
type DocumentStore interface {
	CreateDocument(ctx context.Context, path string, doc models.Document) (string, error)
	GetDocument(ctx context.Context, path, id string) (models.Document, bool, error)
	UpdateDocument(ctx context.Context, path, id string, partial models.Document) error
	DeleteDocument(ctx context.Context, path, id string) error
	QueryDocuments(ctx context.Context, path string, q Query) ([]Snapshot, error)
	CountDocuments(ctx context.Context, path string, q Query) (int, error)
	// Subscribe delivers the full ordered result set on every change until the
	// returned function is called or ctx is done.
	Subscribe(ctx context.Context, path string, q Query, onChange func([]Snapshot), onError func(error)) (Unsubscribe, error)
}
