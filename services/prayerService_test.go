package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PrayerLoop/recordsync/models"
	"github.com/PrayerLoop/recordsync/stores"
)

type fakeUploader struct {
	fail   bool
	images []string
}

func (u *fakeUploader) UploadImage(_ context.Context, localURI, objectPath string) (string, error) {
	if u.fail {
		return "", errors.New("upload failed")
	}
	u.images = append(u.images, localURI)
	return "https://cdn.example.com/" + objectPath, nil
}

func (u *fakeUploader) UploadVideo(_ context.Context, localURI, objectPath string, _ func(float64)) (VideoUpload, error) {
	if u.fail {
		return VideoUpload{}, errors.New("upload failed")
	}
	return VideoUpload{RemoteURL: "https://cdn.example.com/" + objectPath, ThumbnailURL: "https://cdn.example.com/thumb.jpg"}, nil
}

func newPrayerService(env *testEnv, p *models.Principal, uploader MediaUploader) *PrayerService {
	return NewPrayerService(env.deps, env.registry, StaticIdentity{Principal: p}, uploader)
}

func TestPrayerServiceCreateAndList(t *testing.T) {
	env := newTestEnv()
	svc := newPrayerService(env, principal("u1", "Ana"), nil)
	ctx := context.Background()

	rec, err := svc.CreatePrayer(ctx, models.Prayer{Title: "  Healing ", Category: "Healing", Likes: 40})
	require.NoError(t, err)
	assert.Equal(t, "Healing", rec.Payload.Title)
	assert.Equal(t, "Ana", rec.Payload.AuthorName)
	assert.Equal(t, 0, rec.Payload.Likes)
	assert.Equal(t, models.CollectionPrayer, rec.Collection)

	listed := svc.ListPrayers(ctx)
	require.Len(t, listed, 1)
	assert.Equal(t, "Healing", listed[0].Payload.Title)
	assert.Equal(t, 0, listed[0].Payload.Likes)

	assert.Len(t, svc.CachedPrayers(ctx), 1)
	assert.Len(t, svc.ListByCategory(ctx, "Healing"), 1)
	assert.Empty(t, svc.ListByCategory(ctx, "Family"))
}

func TestPrayerServiceValidation(t *testing.T) {
	env := newTestEnv()
	svc := newPrayerService(env, principal("u1", "Ana"), nil)

	tests := []struct {
		name  string
		input models.Prayer
	}{
		{name: "missing title", input: models.Prayer{Category: "Healing"}},
		{name: "blank title", input: models.Prayer{Title: "   ", Category: "Healing"}},
		{name: "missing category", input: models.Prayer{Title: "Healing"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreatePrayer(context.Background(), tt.input)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
	assert.Empty(t, env.remote.Paths())
}

func TestPrayerServiceAnonymousAuthor(t *testing.T) {
	env := newTestEnv()
	svc := newPrayerService(env, nil, nil)

	rec, err := svc.CreatePrayerRequest(context.Background(), models.Prayer{Title: "Work", Category: "Work"})
	require.NoError(t, err)
	assert.Equal(t, anonymousAuthor, rec.Payload.AuthorName)
	assert.Empty(t, rec.OwnerID)
	assert.Equal(t, models.CollectionPrayerRequest, rec.Collection)
}

func TestPrayerServiceCombinedFeed(t *testing.T) {
	env := newTestEnv()
	svc := newPrayerService(env, principal("u1", "Ana"), nil)
	ctx := context.Background()

	_, err := svc.CreatePrayer(ctx, models.Prayer{Title: "First", Category: "Hope"})
	require.NoError(t, err)
	_, err = svc.CreatePrayerRequest(ctx, models.Prayer{Title: "Second", Category: "Hope"})
	require.NoError(t, err)

	feed := svc.CombinedFeed(ctx)
	require.Len(t, feed, 2)
	assert.ElementsMatch(t, []models.Collection{models.CollectionPrayer, models.CollectionPrayerRequest},
		[]models.Collection{feed[0].Collection, feed[1].Collection})
}

func TestPrayerServiceMediaResolution(t *testing.T) {
	tests := []struct {
		name          string
		uploader      *fakeUploader
		imageURL      string
		expectedImage string
	}{
		{
			name:          "local uri uploaded",
			uploader:      &fakeUploader{},
			imageURL:      "file:///var/mobile/photo.JPG",
			expectedImage: "https://cdn.example.com/images/prayers/u1/",
		},
		{
			name:          "upload failure keeps local uri",
			uploader:      &fakeUploader{fail: true},
			imageURL:      "ph://ABC-123",
			expectedImage: "ph://ABC-123",
		},
		{
			name:          "remote url untouched",
			uploader:      &fakeUploader{},
			imageURL:      "https://example.com/a.png",
			expectedImage: "https://example.com/a.png",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			svc := newPrayerService(env, principal("u1", "Ana"), tt.uploader)

			rec, err := svc.CreatePrayer(context.Background(), models.Prayer{Title: "Photo", Category: "Hope", ImageURL: tt.imageURL})
			require.NoError(t, err)
			assert.Contains(t, rec.Payload.ImageURL, tt.expectedImage)
		})
	}
}

func TestPrayerServiceVideoThumbnail(t *testing.T) {
	env := newTestEnv()
	svc := newPrayerService(env, principal("u1", "Ana"), &fakeUploader{})

	rec, err := svc.CreatePrayer(context.Background(), models.Prayer{Title: "Video", Category: "Hope", VideoURL: "/tmp/clip.mov"})
	require.NoError(t, err)
	assert.Contains(t, rec.Payload.VideoURL, "https://cdn.example.com/videos/prayers/u1/")
	assert.Equal(t, "https://cdn.example.com/thumb.jpg", rec.Payload.ThumbnailURL)
}

func TestPrayerServiceDelete(t *testing.T) {
	env := newTestEnv()
	owner := newPrayerService(env, principal("u1", "Ana"), nil)
	other := newPrayerService(env, principal("u2", "Ben"), nil)
	ctx := context.Background()

	rec, err := owner.CreatePrayer(ctx, models.Prayer{Title: "Healing", Category: "Healing"})
	require.NoError(t, err)

	assert.ErrorIs(t, other.DeletePrayer(ctx, rec.ID), ErrOwnership)
	assert.Len(t, owner.ListPrayers(ctx), 1)

	require.NoError(t, owner.DeletePrayer(ctx, rec.ID))
	assert.Empty(t, owner.ListPrayers(ctx))
	assert.Empty(t, owner.ListByCategory(ctx, "Healing"))

	_, err = owner.GetPrayer(ctx, rec.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPrayerServiceGetHidesInactive(t *testing.T) {
	env := newTestEnv()
	svc := newPrayerService(env, principal("u1", "Ana"), nil)
	ctx := context.Background()

	id, err := env.remote.CreateDocument(ctx, "prayers", models.Document{"title": "Old", "category": "Hope", "isActive": false, "createdAt": stores.ServerTimestamp})
	require.NoError(t, err)

	_, err = svc.GetPrayer(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}
