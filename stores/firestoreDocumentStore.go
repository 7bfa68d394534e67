package stores

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/PrayerLoop/recordsync/models"
)

type FirestoreDocumentStore struct {
	client *firestore.Client
}

func NewFirestoreDocumentStore(client *firestore.Client) *FirestoreDocumentStore {
	return &FirestoreDocumentStore{client: client}
}

func (s *FirestoreDocumentStore) collection(path string) (*firestore.CollectionRef, error) {
	ref := s.client.Collection(path)
	if ref == nil {
		return nil, fmt.Errorf("invalid collection path %q", path)
	}
	return ref, nil
}

func (s *FirestoreDocumentStore) CreateDocument(ctx context.Context, path string, doc models.Document) (string, error) {
	coll, err := s.collection(path)
	if err != nil {
		return "", err
	}
	ref, _, err := coll.Add(ctx, toFirestoreData(doc))
	if err != nil {
		return "", classifyFirestoreError(err)
	}
	return ref.ID, nil
}

func (s *FirestoreDocumentStore) GetDocument(ctx context.Context, path, id string) (models.Document, bool, error) {
	coll, err := s.collection(path)
	if err != nil {
		return nil, false, err
	}
	snap, err := coll.Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, classifyFirestoreError(err)
	}
	return models.Document(snap.Data()), true, nil
}

func (s *FirestoreDocumentStore) UpdateDocument(ctx context.Context, path, id string, partial models.Document) error {
	coll, err := s.collection(path)
	if err != nil {
		return err
	}
	updates := make([]firestore.Update, 0, len(partial))
	for field, value := range partial {
		updates = append(updates, firestore.Update{Path: field, Value: toFirestoreValue(value)})
	}
	if _, err := coll.Doc(id).Update(ctx, updates); err != nil {
		return classifyFirestoreError(err)
	}
	return nil
}

func (s *FirestoreDocumentStore) DeleteDocument(ctx context.Context, path, id string) error {
	coll, err := s.collection(path)
	if err != nil {
		return err
	}
	if _, err := coll.Doc(id).Delete(ctx); err != nil {
		return classifyFirestoreError(err)
	}
	return nil
}

func (s *FirestoreDocumentStore) QueryDocuments(ctx context.Context, path string, q Query) ([]Snapshot, error) {
	fq, err := s.query(path, q)
	if err != nil {
		return nil, err
	}
	docs, err := fq.Documents(ctx).GetAll()
	if err != nil {
		return nil, classifyFirestoreError(err)
	}
	return toSnapshots(docs), nil
}

func (s *FirestoreDocumentStore) CountDocuments(ctx context.Context, path string, q Query) (int, error) {
	q.Limit = 0
	fq, err := s.query(path, q)
	if err != nil {
		return 0, err
	}
	result, err := fq.NewAggregationQuery().WithCount("all").Get(ctx)
	if err != nil {
		return 0, classifyFirestoreError(err)
	}
	count, ok := result["all"].(*firestorepb.Value)
	if !ok {
		return 0, fmt.Errorf("%w: unexpected count result %T", ErrRemoteUnavailable, result["all"])
	}
	return int(count.GetIntegerValue()), nil
}

func (s *FirestoreDocumentStore) Subscribe(ctx context.Context, path string, q Query, onChange func([]Snapshot), onError func(error)) (Unsubscribe, error) {
	fq, err := s.query(path, q)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	it := fq.Snapshots(ctx)

	go func() {
		defer it.Stop()
		for {
			qs, err := it.Next()
			if err != nil {
				if ctx.Err() != nil || status.Code(err) == codes.Canceled {
					return
				}
				if onError != nil {
					onError(classifyFirestoreError(err))
				}
				return
			}
			docs, err := qs.Documents.GetAll()
			if err != nil {
				if onError != nil {
					onError(classifyFirestoreError(err))
				}
				continue
			}
			onChange(toSnapshots(docs))
		}
	}()

	var once sync.Once
	return func() { once.Do(cancel) }, nil
}

func (s *FirestoreDocumentStore) query(path string, q Query) (firestore.Query, error) {
	coll, err := s.collection(path)
	if err != nil {
		return firestore.Query{}, err
	}
	fq := coll.Query
	for _, f := range q.Filters {
		fq = fq.Where(f.Field, "==", f.Value)
	}
	if q.OrderBy != "" {
		dir := firestore.Asc
		if q.Direction == Desc {
			dir = firestore.Desc
		}
		fq = fq.OrderBy(q.OrderBy, dir)
	}
	if q.Limit > 0 {
		fq = fq.Limit(q.Limit)
	}
	return fq, nil
}

func toSnapshots(docs []*firestore.DocumentSnapshot) []Snapshot {
	snaps := make([]Snapshot, 0, len(docs))
	for _, d := range docs {
		snaps = append(snaps, Snapshot{ID: d.Ref.ID, Data: models.Document(d.Data())})
	}
	return snaps
}

func toFirestoreData(doc models.Document) map[string]interface{} {
	out := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		out[k] = toFirestoreValue(v)
	}
	return out
}

func toFirestoreValue(v any) interface{} {
	switch op := v.(type) {
	case IncrementOp:
		return firestore.Increment(op.By)
	case ArrayUnionOp:
		return firestore.ArrayUnion(op.Values...)
	case ArrayRemoveOp:
		return firestore.ArrayRemove(op.Values...)
	case serverTime:
		return firestore.ServerTimestamp
	}
	return v
}

// classifyFirestoreError maps gRPC status codes onto the remote error taxonomy.
func classifyFirestoreError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrRemoteUnavailable) || errors.Is(err, ErrPermissionDenied) || errors.Is(err, ErrDocumentNotFound) {
		return err
	}
	switch status.Code(err) {
	case codes.PermissionDenied, codes.Unauthenticated:
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	case codes.NotFound:
		return fmt.Errorf("%w: %v", ErrDocumentNotFound, err)
	default:
		return fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
}
