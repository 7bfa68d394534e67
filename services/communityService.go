package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/PrayerLoop/recordsync/models"
	"github.com/PrayerLoop/recordsync/stores"
)

type MembershipResult struct {
	// AlreadyMember is true when join found the principal already present, or
	// when leave found the principal already absent.
	AlreadyMember bool `json:"alreadyMember"`
	IsMember      bool `json:"isMember"`
	MemberCount   int  `json:"memberCount"`
}

type CommunityService struct {
	communities *Synchronizer[models.Community]
	prayers     *PrayerService
	notifier    *NotificationService
	tasks       *Tasks
	identity    IdentityProvider
	media       mediaResolver
	log         logrus.FieldLogger
}

func NewCommunityService(deps Deps, registry *stores.Registry, identity IdentityProvider, uploader MediaUploader, prayers *PrayerService, notifier *NotificationService, tasks *Tasks) *CommunityService {
	deps = deps.withDefaults()
	path, _ := models.CollectionCommunity.RemotePath()
	schema := Schema[models.Community]{
		Collection: models.CollectionCommunity,
		Decode:     models.CommunityFromFields,
		Validate:   func(c models.Community) error { return validateStruct(c) },
	}
	return &CommunityService{
		communities: NewSynchronizer(schema, path, registry.Dataset(models.CollectionCommunity), deps),
		prayers:     prayers,
		notifier:    notifier,
		tasks:       tasks,
		identity:    identity,
		media:       mediaResolver{uploader: uploader, log: deps.Log},
		log:         deps.Log.WithField("service", "community"),
	}
}

// CreateCommunity validates before touching any store. The creator becomes
// the first member.
func (s *CommunityService) CreateCommunity(ctx context.Context, input models.Community) (models.Record[models.Community], error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Category = strings.TrimSpace(input.Category)
	if err := s.communities.Validate(input); err != nil {
		return models.Record[models.Community]{}, err
	}
	principal, ok := s.identity.CurrentPrincipal(ctx)
	if !ok {
		return models.Record[models.Community]{}, ErrUnauthenticated
	}

	input.CreatorName = principal.NameOrDefault()
	input.Members = []string{principal.ID}
	input.MemberCount = 1
	input.ImageURL = s.media.image(ctx, input.ImageURL, mediaObjectPath("images/communities", principal.ID, uuid.NewString(), input.ImageURL))
	return s.communities.Create(ctx, input, principal)
}

func (s *CommunityService) ListCommunities(ctx context.Context) []models.Record[models.Community] {
	return s.communities.List(ctx, ListOptions{})
}

func (s *CommunityService) CachedCommunities(ctx context.Context) []models.Record[models.Community] {
	return s.communities.ListLocal(ctx)
}

func (s *CommunityService) GetCommunity(ctx context.Context, id string) (models.Record[models.Community], error) {
	return getActive(ctx, s.communities, id)
}

func (s *CommunityService) DeleteCommunity(ctx context.Context, id string) error {
	principal, _ := s.identity.CurrentPrincipal(ctx)
	return s.communities.Delete(ctx, id, principal)
}

// Join adds the current principal with an atomic array union so concurrent
// joins by others are never clobbered. Remote failure leaves the membership
// tracked locally only.
func (s *CommunityService) Join(ctx context.Context, communityID string) (MembershipResult, error) {
	return s.changeMembership(ctx, communityID, true)
}

func (s *CommunityService) Leave(ctx context.Context, communityID string) (MembershipResult, error) {
	return s.changeMembership(ctx, communityID, false)
}

func (s *CommunityService) changeMembership(ctx context.Context, communityID string, join bool) (MembershipResult, error) {
	principal, ok := s.identity.CurrentPrincipal(ctx)
	if !ok {
		return MembershipResult{}, ErrUnauthenticated
	}
	community, err := s.GetCommunity(ctx, communityID)
	if err != nil {
		return MembershipResult{}, err
	}

	member := community.Payload.HasMember(principal.ID)
	if member == join {
		return MembershipResult{
			AlreadyMember: true,
			IsMember:      member,
			MemberCount:   community.Payload.MemberCount,
		}, nil
	}

	delta := 1
	var membersOp any = stores.ArrayUnion(principal.ID)
	if !join {
		delta = -1
		membersOp = stores.ArrayRemove(principal.ID)
	}
	if err := s.communities.UpdateRemote(ctx, communityID, models.Document{
		models.FieldMembers:     membersOp,
		models.FieldMemberCount: stores.Increment(delta),
	}); err != nil {
		s.log.WithField("communityId", communityID).Info("membership change tracked locally only")
	}

	community.Payload = applyMembership(community.Payload, principal.ID, join)
	mirrored := s.communities.MutateLocal(ctx, communityID, func(r *models.Record[models.Community]) bool {
		if r.Payload.HasMember(principal.ID) == join {
			return false
		}
		r.Payload = applyMembership(r.Payload, principal.ID, join)
		return true
	})
	if !mirrored {
		if err := s.communities.CacheLocal(ctx, community); err != nil {
			s.log.WithField("communityId", communityID).WithError(err).Error("failed to cache community membership")
		}
	}

	return MembershipResult{IsMember: join, MemberCount: community.Payload.MemberCount}, nil
}

func applyMembership(c models.Community, principalID string, join bool) models.Community {
	if join {
		c.Members = append(append([]string(nil), c.Members...), principalID)
		c.MemberCount++
		return c
	}
	members := make([]string, 0, len(c.Members))
	for _, m := range c.Members {
		if m != principalID {
			members = append(members, m)
		}
	}
	c.Members = members
	if c.MemberCount > 0 {
		c.MemberCount--
	}
	return c
}

// IsMember checks the remote copy first and falls back to the local cache.
// Malformed membership data reads as no members.
func (s *CommunityService) IsMember(ctx context.Context, communityID string, principal *models.Principal) (bool, error) {
	if principal == nil {
		return false, nil
	}
	community, err := s.GetCommunity(ctx, communityID)
	if err != nil {
		return false, err
	}
	return community.Payload.HasMember(principal.ID), nil
}

// CreatePost publishes a prayer into a community and notifies its members in
// the background.
func (s *CommunityService) CreatePost(ctx context.Context, communityID string, input models.Prayer) (models.Record[models.Prayer], error) {
	community, err := s.GetCommunity(ctx, communityID)
	if err != nil {
		return models.Record[models.Prayer]{}, err
	}
	input.CommunityID = communityID
	post, err := s.prayers.CreatePrayer(ctx, input)
	if err != nil {
		return post, err
	}

	if s.notifier != nil && s.tasks != nil {
		s.tasks.Go(ctx, "notify-new-post", func(ctx context.Context) error {
			s.notifier.NotifyNewPost(ctx, post, community)
			return nil
		})
	}
	return post, nil
}

func (s *CommunityService) ListPosts(ctx context.Context, communityID string) []models.Record[models.Prayer] {
	return s.prayers.ListCommunityPosts(ctx, communityID)
}

func (s *CommunityService) Communities() *Synchronizer[models.Community] {
	return s.communities
}
