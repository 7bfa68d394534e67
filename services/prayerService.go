package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/PrayerLoop/recordsync/models"
	"github.com/PrayerLoop/recordsync/stores"
)

const anonymousAuthor = "Anonymous"

func prayerSchema(c models.Collection) Schema[models.Prayer] {
	return Schema[models.Prayer]{
		Collection: c,
		Decode:     models.PrayerFromFields,
		Validate:   func(p models.Prayer) error { return validateStruct(p) },
	}
}

func categoryView(category string) string {
	return "category:" + category
}

func communityView(communityID string) string {
	return "community:" + communityID
}

type PrayerService struct {
	prayers  *Synchronizer[models.Prayer]
	requests *Synchronizer[models.Prayer]
	identity IdentityProvider
	media    mediaResolver
	log      logrus.FieldLogger
}

func NewPrayerService(deps Deps, registry *stores.Registry, identity IdentityProvider, uploader MediaUploader) *PrayerService {
	deps = deps.withDefaults()
	prayerPath, _ := models.CollectionPrayer.RemotePath()
	requestPath, _ := models.CollectionPrayerRequest.RemotePath()
	return &PrayerService{
		prayers:  NewSynchronizer(prayerSchema(models.CollectionPrayer), prayerPath, registry.Dataset(models.CollectionPrayer), deps),
		requests: NewSynchronizer(prayerSchema(models.CollectionPrayerRequest), requestPath, registry.Dataset(models.CollectionPrayerRequest), deps),
		identity: identity,
		media:    mediaResolver{uploader: uploader, log: deps.Log},
		log:      deps.Log.WithField("service", "prayer"),
	}
}

func (s *PrayerService) CreatePrayer(ctx context.Context, input models.Prayer) (models.Record[models.Prayer], error) {
	return s.create(ctx, s.prayers, input)
}

func (s *PrayerService) CreatePrayerRequest(ctx context.Context, input models.Prayer) (models.Record[models.Prayer], error) {
	return s.create(ctx, s.requests, input)
}

func (s *PrayerService) create(ctx context.Context, sync *Synchronizer[models.Prayer], input models.Prayer) (models.Record[models.Prayer], error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Category = strings.TrimSpace(input.Category)
	input.Likes, input.Comments = 0, 0
	if err := sync.Validate(input); err != nil {
		return models.Record[models.Prayer]{}, err
	}

	principal, _ := s.identity.CurrentPrincipal(ctx)
	switch {
	case principal == nil || input.IsAnonymous:
		input.AuthorName, input.AuthorAvatar = anonymousAuthor, ""
	default:
		input.AuthorName, input.AuthorAvatar = principal.NameOrDefault(), principal.AvatarURL
	}

	ownerID := ""
	if principal != nil {
		ownerID = principal.ID
	}
	name := uuid.NewString()
	input.ImageURL = s.media.image(ctx, input.ImageURL, mediaObjectPath("images/"+sync.Path(), ownerID, name, input.ImageURL))
	if input.VideoURL != "" {
		video, thumb := s.media.video(ctx, input.VideoURL, mediaObjectPath("videos/"+sync.Path(), ownerID, name, input.VideoURL))
		input.VideoURL = video
		if thumb != "" {
			input.ThumbnailURL = thumb
		}
	}

	views := []string{categoryView(input.Category)}
	if input.CommunityID != "" {
		views = append(views, communityView(input.CommunityID))
	}
	return sync.Create(ctx, input, principal, views...)
}

// ListPrayers is remote-first with the local cache merged in.
func (s *PrayerService) ListPrayers(ctx context.Context) []models.Record[models.Prayer] {
	return s.prayers.List(ctx, ListOptions{})
}

// CachedPrayers returns the local list for first paint.
func (s *PrayerService) CachedPrayers(ctx context.Context) []models.Record[models.Prayer] {
	return s.prayers.ListLocal(ctx)
}

func (s *PrayerService) ListPrayerRequests(ctx context.Context) []models.Record[models.Prayer] {
	return s.requests.List(ctx, ListOptions{})
}

func (s *PrayerService) ListByCategory(ctx context.Context, category string) []models.Record[models.Prayer] {
	return s.prayers.List(ctx, ListOptions{
		Filters: []stores.Filter{{Field: "category", Value: category}},
		View:    categoryView(category),
	})
}

func (s *PrayerService) ListCommunityPosts(ctx context.Context, communityID string) []models.Record[models.Prayer] {
	return s.prayers.List(ctx, ListOptions{
		Filters: []stores.Filter{{Field: "communityId", Value: communityID}},
		View:    communityView(communityID),
	})
}

// CombinedFeed merges prayers and prayer requests newest first.
func (s *PrayerService) CombinedFeed(ctx context.Context) []models.Record[models.Prayer] {
	feed := append(s.ListPrayers(ctx), s.ListPrayerRequests(ctx)...)
	return sortNewestFirst(feed)
}

func (s *PrayerService) GetPrayer(ctx context.Context, id string) (models.Record[models.Prayer], error) {
	return getActive(ctx, s.prayers, id)
}

func (s *PrayerService) DeletePrayer(ctx context.Context, id string) error {
	principal, _ := s.identity.CurrentPrincipal(ctx)
	return s.prayers.Delete(ctx, id, principal)
}

func (s *PrayerService) DeletePrayerRequest(ctx context.Context, id string) error {
	principal, _ := s.identity.CurrentPrincipal(ctx)
	return s.requests.Delete(ctx, id, principal)
}

// Prayers and Requests expose the synchronizers as engagement targets.
func (s *PrayerService) Prayers() *Synchronizer[models.Prayer] {
	return s.prayers
}

func (s *PrayerService) Requests() *Synchronizer[models.Prayer] {
	return s.requests
}

func getActive[P models.Payload](ctx context.Context, sync *Synchronizer[P], id string) (models.Record[P], error) {
	rec, err := sync.Get(ctx, id)
	if err != nil {
		return rec, err
	}
	if !rec.IsActive {
		return models.Record[P]{}, fmt.Errorf("%w: %s %s", ErrNotFound, sync.Collection(), id)
	}
	return rec, nil
}
