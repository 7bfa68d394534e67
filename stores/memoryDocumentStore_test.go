package stores

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/PrayerLoop/recordsync/models"
)

func TestMemoryDocumentStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryDocumentStore()

	id, err := s.CreateDocument(ctx, "prayers", models.Document{"title": "Healing", "createdAt": ServerTimestamp})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	doc, found, err := s.GetDocument(ctx, "prayers", id)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Healing", doc.String("title"))
	assert.False(t, doc.Time("createdAt").IsZero())

	require.NoError(t, s.UpdateDocument(ctx, "prayers", id, models.Document{"title": "Peace"}))
	doc, _, _ = s.GetDocument(ctx, "prayers", id)
	assert.Equal(t, "Peace", doc.String("title"))

	err = s.UpdateDocument(ctx, "prayers", "missing", models.Document{"title": "x"})
	assert.ErrorIs(t, err, ErrDocumentNotFound)

	require.NoError(t, s.DeleteDocument(ctx, "prayers", id))
	_, found, err = s.GetDocument(ctx, "prayers", id)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryDocumentStoreAtomicTransforms(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryDocumentStore()

	id, err := s.CreateDocument(ctx, "communities", models.Document{"members": []string{"u1"}, "memberCount": 1})
	require.NoError(t, err)

	require.NoError(t, s.UpdateDocument(ctx, "communities", id, models.Document{
		"members":     ArrayUnion("u2"),
		"memberCount": Increment(1),
	}))
	require.NoError(t, s.UpdateDocument(ctx, "communities", id, models.Document{
		"members": ArrayUnion("u2"),
	}))

	doc, _, _ := s.GetDocument(ctx, "communities", id)
	assert.Equal(t, []string{"u1", "u2"}, doc.Strings("members"))
	assert.Equal(t, 2, doc.Int("memberCount"))

	require.NoError(t, s.UpdateDocument(ctx, "communities", id, models.Document{
		"members":     ArrayRemove("u1"),
		"memberCount": Increment(-1),
	}))
	doc, _, _ = s.GetDocument(ctx, "communities", id)
	assert.Equal(t, []string{"u2"}, doc.Strings("members"))
	assert.Equal(t, 1, doc.Int("memberCount"))
}

func TestMemoryDocumentStoreQuery(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryDocumentStore()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	for i, cat := range []string{"Healing", "Family", "Healing", "Healing"} {
		_, err := s.CreateDocument(ctx, "prayers", models.Document{
			"category":  cat,
			"order":     i,
			"createdAt": base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}

	snaps, err := s.QueryDocuments(ctx, "prayers", Where("category", "Healing").Order("createdAt", Desc).WithLimit(2))
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, 3, snaps[0].Data.Int("order"))
	assert.Equal(t, 2, snaps[1].Data.Int("order"))

	count, err := s.CountDocuments(ctx, "prayers", Where("category", "Healing").WithLimit(1))
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	snaps, err = s.QueryDocuments(ctx, "prayers", Where("order", float64(1)))
	require.NoError(t, err)
	assert.Len(t, snaps, 1)
}

func TestMemoryDocumentStoreFailureInjection(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryDocumentStore()

	s.SetFailure(ErrRemoteUnavailable)
	_, err := s.CreateDocument(ctx, "prayers", models.Document{})
	assert.ErrorIs(t, err, ErrRemoteUnavailable)
	_, err = s.QueryDocuments(ctx, "prayers", Query{})
	assert.ErrorIs(t, err, ErrRemoteUnavailable)

	s.SetFailure(nil)
	s.FailPath("users/u3/notifications", ErrPermissionDenied)
	_, err = s.CreateDocument(ctx, "users/u3/notifications", models.Document{})
	assert.ErrorIs(t, err, ErrPermissionDenied)
	_, err = s.CreateDocument(ctx, "users/u2/notifications", models.Document{})
	assert.NoError(t, err)
}

func TestMemoryDocumentStoreSubscribe(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryDocumentStore()

	var deliveries [][]Snapshot
	unsubscribe, err := s.Subscribe(ctx, "users/u1/notifications", Query{}.Order("createdAt", Desc).WithLimit(2),
		func(snaps []Snapshot) { deliveries = append(deliveries, snaps) }, nil)
	require.NoError(t, err)

	base := time.Now()
	for i := 0; i < 3; i++ {
		_, err := s.CreateDocument(ctx, "users/u1/notifications", models.Document{"n": i, "createdAt": base.Add(time.Duration(i) * time.Second)})
		require.NoError(t, err)
	}
	_, err = s.CreateDocument(ctx, "users/u2/notifications", models.Document{"n": 9})
	require.NoError(t, err)

	require.Len(t, deliveries, 4)
	assert.Empty(t, deliveries[0])
	last := deliveries[3]
	require.Len(t, last, 2)
	assert.Equal(t, 2, last[0].Data.Int("n"))
	assert.Equal(t, 1, last[1].Data.Int("n"))

	unsubscribe()
	unsubscribe()
	_, err = s.CreateDocument(ctx, "users/u1/notifications", models.Document{"n": 4})
	require.NoError(t, err)
	assert.Len(t, deliveries, 4)
}

func TestMemoryDocumentStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryDocumentStore()

	id, _ := s.CreateDocument(ctx, "communities", models.Document{"members": []any{"u1"}})
	doc, _, _ := s.GetDocument(ctx, "communities", id)
	doc["members"] = []any{"intruder"}

	again, _, _ := s.GetDocument(ctx, "communities", id)
	assert.Equal(t, []string{"u1"}, again.Strings("members"))
}

func TestClassifyFirestoreError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected error
	}{
		{name: "permission denied", err: status.Error(codes.PermissionDenied, "rules"), expected: ErrPermissionDenied},
		{name: "unauthenticated", err: status.Error(codes.Unauthenticated, "token"), expected: ErrPermissionDenied},
		{name: "unavailable", err: status.Error(codes.Unavailable, "down"), expected: ErrRemoteUnavailable},
		{name: "deadline", err: status.Error(codes.DeadlineExceeded, "slow"), expected: ErrRemoteUnavailable},
		{name: "not found", err: status.Error(codes.NotFound, "gone"), expected: ErrDocumentNotFound},
		{name: "plain error", err: errors.New("dial tcp"), expected: ErrRemoteUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, classifyFirestoreError(tt.err), tt.expected)
		})
	}

	assert.NoError(t, classifyFirestoreError(nil))
	assert.True(t, IsRecoverable(classifyFirestoreError(status.Error(codes.Unavailable, "down"))))
	assert.False(t, IsRecoverable(ErrDocumentNotFound))
}
