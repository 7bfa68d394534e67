package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/PrayerLoop/recordsync/models"
	"github.com/PrayerLoop/recordsync/stores"
)

// PartnerService publishes partner content. One synchronizer per kind.
type PartnerService struct {
	kinds    map[models.Collection]*Synchronizer[models.PartnerContent]
	identity IdentityProvider
	media    mediaResolver
}

func NewPartnerService(deps Deps, registry *stores.Registry, identity IdentityProvider, uploader MediaUploader) *PartnerService {
	deps = deps.withDefaults()
	s := &PartnerService{
		kinds:    make(map[models.Collection]*Synchronizer[models.PartnerContent]),
		identity: identity,
		media:    mediaResolver{uploader: uploader, log: deps.Log},
	}
	for _, c := range models.PartnerCollections {
		path, _ := c.RemotePath()
		schema := Schema[models.PartnerContent]{
			Collection: c,
			Decode:     models.PartnerContentFromFields,
			Validate:   func(p models.PartnerContent) error { return validateStruct(p) },
		}
		s.kinds[c] = NewSynchronizer(schema, path, registry.Dataset(c), deps)
	}
	return s
}

// ParsePartnerKind maps "prayer", "word" or "scripture" to its collection.
func ParsePartnerKind(kind string) (models.Collection, error) {
	c, ok := models.PartnerCollections[strings.ToLower(kind)]
	if !ok {
		return "", validationError("unknown partner content kind %q", kind)
	}
	return c, nil
}

func (s *PartnerService) syncFor(c models.Collection) (*Synchronizer[models.PartnerContent], error) {
	sync, ok := s.kinds[c]
	if !ok {
		return nil, validationError("%s is not partner content", c)
	}
	return sync, nil
}

func (s *PartnerService) Create(ctx context.Context, c models.Collection, input models.PartnerContent) (models.Record[models.PartnerContent], error) {
	sync, err := s.syncFor(c)
	if err != nil {
		return models.Record[models.PartnerContent]{}, err
	}
	input.Title = strings.TrimSpace(input.Title)
	input.Likes, input.Comments = 0, 0
	if err := sync.Validate(input); err != nil {
		return models.Record[models.PartnerContent]{}, err
	}

	principal, ok := s.identity.CurrentPrincipal(ctx)
	if !ok {
		return models.Record[models.PartnerContent]{}, ErrUnauthenticated
	}
	if input.PartnerName == "" {
		input.PartnerName = principal.NameOrDefault()
	}
	if input.PartnerAvatar == "" {
		input.PartnerAvatar = principal.AvatarURL
	}

	name := uuid.NewString()
	input.ImageURL = s.media.image(ctx, input.ImageURL, mediaObjectPath("images/"+sync.Path(), principal.ID, name, input.ImageURL))
	if input.VideoURL != "" {
		video, thumb := s.media.video(ctx, input.VideoURL, mediaObjectPath("videos/"+sync.Path(), principal.ID, name, input.VideoURL))
		input.VideoURL = video
		if thumb != "" {
			input.ThumbnailURL = thumb
		}
	}
	return sync.Create(ctx, input, principal)
}

func (s *PartnerService) List(ctx context.Context, c models.Collection) ([]models.Record[models.PartnerContent], error) {
	sync, err := s.syncFor(c)
	if err != nil {
		return nil, err
	}
	return sync.List(ctx, ListOptions{}), nil
}

func (s *PartnerService) Get(ctx context.Context, c models.Collection, id string) (models.Record[models.PartnerContent], error) {
	sync, err := s.syncFor(c)
	if err != nil {
		return models.Record[models.PartnerContent]{}, err
	}
	return getActive(ctx, sync, id)
}

func (s *PartnerService) Delete(ctx context.Context, c models.Collection, id string) error {
	sync, err := s.syncFor(c)
	if err != nil {
		return err
	}
	principal, _ := s.identity.CurrentPrincipal(ctx)
	return sync.Delete(ctx, id, principal)
}

// Targets exposes every partner synchronizer for engagement.
func (s *PartnerService) Targets() map[models.Collection]*Synchronizer[models.PartnerContent] {
	return s.kinds
}
