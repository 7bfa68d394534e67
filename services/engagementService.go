package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/PrayerLoop/recordsync/models"
	"github.com/PrayerLoop/recordsync/stores"
)

// EngagementTarget is a collection that can be liked and commented on.
type EngagementTarget interface {
	Path() string
	Describe(ctx context.Context, id string) (RecordInfo, error)
	PatchLocalCounter(ctx context.Context, id, field string, delta int) (int, bool)
	IncrementRemote(ctx context.Context, id, field string, delta int) error
}

type communityLookup interface {
	GetCommunity(ctx context.Context, id string) (models.Record[models.Community], error)
}

type LikeResult struct {
	Liked bool `json:"liked"`
	Likes int  `json:"likes"`
}

type EngagementService struct {
	deps        Deps
	registry    *stores.Registry
	targets     map[models.Collection]EngagementTarget
	identity    IdentityProvider
	tasks       *Tasks
	notifier    *NotificationService
	communities communityLookup
	media       mediaResolver
	log         logrus.FieldLogger
}

func NewEngagementService(deps Deps, registry *stores.Registry, identity IdentityProvider, uploader MediaUploader, tasks *Tasks) *EngagementService {
	deps = deps.withDefaults()
	return &EngagementService{
		deps:     deps,
		registry: registry,
		targets:  make(map[models.Collection]EngagementTarget),
		identity: identity,
		tasks:    tasks,
		media:    mediaResolver{uploader: uploader, log: deps.Log},
		log:      deps.Log.WithField("service", "engagement"),
	}
}

func (s *EngagementService) RegisterTarget(c models.Collection, t EngagementTarget) {
	s.targets[c] = t
}

// RegisterDefaultTargets makes prayers, prayer requests and every partner kind
// likeable and commentable.
func (s *EngagementService) RegisterDefaultTargets(prayers *PrayerService, partners *PartnerService) {
	s.RegisterTarget(models.CollectionPrayer, prayers.Prayers())
	s.RegisterTarget(models.CollectionPrayerRequest, prayers.Requests())
	for c, sync := range partners.Targets() {
		s.RegisterTarget(c, sync)
	}
}

// NotifyWith enables comment notifications for records posted in communities.
func (s *EngagementService) NotifyWith(notifier *NotificationService, communities communityLookup) {
	s.notifier = notifier
	s.communities = communities
}

func (s *EngagementService) target(c models.Collection) (EngagementTarget, error) {
	t, ok := s.targets[c]
	if !ok {
		return nil, validationError("%s records cannot be engaged with", c)
	}
	return t, nil
}

func likeKey(c models.Collection, id string) string {
	return string(c) + "/" + id
}

func (s *EngagementService) likesKey(ctx context.Context) string {
	principal, ok := s.identity.CurrentPrincipal(ctx)
	if !ok {
		return s.registry.LikesKey("anonymous")
	}
	return s.registry.LikesKey(principal.ID)
}

func (s *EngagementService) readLikes(ctx context.Context, key string) map[string]bool {
	likes := make(map[string]bool)
	raw, found, err := s.deps.Local.Get(ctx, key)
	if err != nil {
		s.log.WithField("key", key).WithError(err).Error("failed to read like index")
		return likes
	}
	if !found {
		return likes
	}
	if err := json.Unmarshal([]byte(raw), &likes); err != nil {
		s.log.WithField("key", key).WithError(err).Warn("discarding corrupt like index")
		return make(map[string]bool)
	}
	return likes
}

// ToggleLike flips the current principal's like on a record. The like index
// lives only in the local store; the aggregate counter is patched locally at
// once and incremented remotely in the background.
func (s *EngagementService) ToggleLike(ctx context.Context, c models.Collection, id string) (LikeResult, error) {
	t, err := s.target(c)
	if err != nil {
		return LikeResult{}, err
	}

	key := s.likesKey(ctx)
	k := likeKey(c, id)
	var liked bool
	withLocalLock(ctx, s.deps, s.log, key, func() {
		likes := s.readLikes(ctx, key)
		liked = !likes[k]
		if liked {
			likes[k] = true
		} else {
			delete(likes, k)
		}

		raw, _ := json.Marshal(likes)
		if err := s.deps.Local.Set(ctx, key, string(raw)); err != nil {
			s.log.WithField("key", key).WithError(err).Error("failed to write like index")
		}
	})

	delta := -1
	if liked {
		delta = 1
	}
	count, cached := t.PatchLocalCounter(ctx, id, models.FieldLikes, delta)
	if !cached {
		if info, err := t.Describe(ctx, id); err == nil {
			count = max(info.Likes+delta, 0)
		}
	}

	s.syncCounter(ctx, "sync-like-counter", t, id, models.FieldLikes, delta)
	return LikeResult{Liked: liked, Likes: count}, nil
}

func (s *EngagementService) IsLiked(ctx context.Context, c models.Collection, id string) bool {
	return s.readLikes(ctx, s.likesKey(ctx))[likeKey(c, id)]
}

// syncCounter increments the remote counter in the background. Permission
// errors are dropped quietly, anything else becomes a warning.
func (s *EngagementService) syncCounter(ctx context.Context, task string, t EngagementTarget, id, field string, delta int) {
	if s.tasks == nil {
		return
	}
	s.tasks.Go(ctx, task, func(ctx context.Context) error {
		err := t.IncrementRemote(ctx, id, field, delta)
		switch {
		case err == nil:
		case errors.Is(err, stores.ErrPermissionDenied):
			s.log.WithField("recordId", id).WithError(err).Debug("remote counter update not permitted")
		default:
			s.tasks.Warn(ctx, task, err)
		}
		return nil
	})
}

func (s *EngagementService) comments(t EngagementTarget, parentID string) *Synchronizer[models.Comment] {
	schema := Schema[models.Comment]{
		Collection: models.CollectionComment,
		Decode:     models.CommentFromFields,
		Validate:   func(c models.Comment) error { return validateStruct(c) },
	}
	dataset := s.registry.Dataset(models.CollectionComment).Child(parentID)
	return NewSynchronizer(schema, models.CommentsPath(t.Path(), parentID), dataset, s.deps)
}

// AddComment adds a comment under the parent record. When the parent is only
// known locally the comment stays local so it still renders for its author.
func (s *EngagementService) AddComment(ctx context.Context, c models.Collection, parentID, text string, media *models.CommentMedia) (models.Record[models.Comment], error) {
	t, err := s.target(c)
	if err != nil {
		return models.Record[models.Comment]{}, err
	}
	comments := s.comments(t, parentID)

	principal, _ := s.identity.CurrentPrincipal(ctx)
	comment := models.Comment{
		ParentID:         parentID,
		ParentCollection: c,
		Text:             strings.TrimSpace(text),
		AuthorName:       anonymousAuthor,
	}
	if principal != nil {
		comment.AuthorName = principal.NameOrDefault()
		comment.AuthorAvatar = principal.AvatarURL
	}
	if err := comments.Validate(comment); err != nil {
		return models.Record[models.Comment]{}, err
	}

	parent, err := t.Describe(ctx, parentID)
	if err != nil {
		return models.Record[models.Comment]{}, err
	}

	if media != nil {
		ownerID := ""
		if principal != nil {
			ownerID = principal.ID
		}
		name := uuid.NewString()
		comment.ImageURL = s.media.image(ctx, media.ImageURI, mediaObjectPath("images/comments", ownerID, name, media.ImageURI))
		if media.VideoURI != "" {
			comment.VideoURL, comment.ThumbnailURL = s.media.video(ctx, media.VideoURI, mediaObjectPath("videos/comments", ownerID, name, media.VideoURI))
		}
	}

	var rec models.Record[models.Comment]
	if parent.Remote {
		rec, err = comments.Create(ctx, comment, principal)
	} else {
		s.log.WithField("recordId", parentID).Info("parent not found remotely, keeping comment local")
		rec, err = comments.CreateLocal(ctx, comment, principal)
	}
	if err != nil {
		return rec, err
	}

	t.PatchLocalCounter(ctx, parentID, models.FieldComments, 1)
	if parent.Remote {
		s.syncCounter(ctx, "sync-comment-counter", t, parentID, models.FieldComments, 1)
	}

	if parent.CommunityID != "" && s.notifier != nil && s.communities != nil && s.tasks != nil {
		s.tasks.Go(ctx, "notify-new-comment", func(ctx context.Context) error {
			community, err := s.communities.GetCommunity(ctx, parent.CommunityID)
			if err != nil {
				return fmt.Errorf("load community %s: %w", parent.CommunityID, err)
			}
			s.notifier.NotifyNewComment(ctx, rec, parent, community)
			return nil
		})
	}
	return rec, nil
}

// ListComments merges remote and local comments like any other record list.
func (s *EngagementService) ListComments(ctx context.Context, c models.Collection, parentID string) ([]models.Record[models.Comment], error) {
	t, err := s.target(c)
	if err != nil {
		return nil, err
	}
	return s.comments(t, parentID).List(ctx, ListOptions{}), nil
}

// DeleteComment removes the author's own comment and decrements the parent
// counter.
func (s *EngagementService) DeleteComment(ctx context.Context, c models.Collection, parentID, commentID string) error {
	t, err := s.target(c)
	if err != nil {
		return err
	}
	principal, _ := s.identity.CurrentPrincipal(ctx)
	if err := s.comments(t, parentID).Delete(ctx, commentID, principal); err != nil {
		return err
	}
	t.PatchLocalCounter(ctx, parentID, models.FieldComments, -1)
	s.syncCounter(ctx, "sync-comment-counter", t, parentID, models.FieldComments, -1)
	return nil
}
