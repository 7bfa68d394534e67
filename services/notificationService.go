package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/PrayerLoop/recordsync/models"
	"github.com/PrayerLoop/recordsync/stores"
)

const DefaultNotificationWindow = 50

// fanoutConcurrency caps the notification writes in flight for one fan-out.
const fanoutConcurrency = 8

// Pusher delivers a device push for a stored notification.
type Pusher interface {
	Push(ctx context.Context, recipientID string, n models.Notification) error
}

// FanoutResult reports what a fan-out did. Failures never reach the user who
// triggered it.
type FanoutResult struct {
	Recipients []string
	Delivered  []string
	Failed     []string
}

type NotificationService struct {
	deps     Deps
	registry *stores.Registry
	identity IdentityProvider
	pusher   Pusher
	window   int
	log      logrus.FieldLogger
}

func NewNotificationService(deps Deps, registry *stores.Registry, identity IdentityProvider, pusher Pusher, window int) *NotificationService {
	deps = deps.withDefaults()
	if window <= 0 {
		window = DefaultNotificationWindow
	}
	return &NotificationService{
		deps:     deps,
		registry: registry,
		identity: identity,
		pusher:   pusher,
		window:   window,
		log:      deps.Log.WithField("service", "notification"),
	}
}

func (s *NotificationService) forRecipient(recipientID string) *Synchronizer[models.Notification] {
	schema := Schema[models.Notification]{
		Collection: models.CollectionNotification,
		Decode:     models.NotificationFromFields,
	}
	dataset := s.registry.Dataset(models.CollectionNotification).Child(recipientID)
	return NewSynchronizer(schema, models.NotificationsPath(recipientID), dataset, s.deps)
}

// Recipients lists the community members and its creator, minus the author,
// deduplicated, in membership order with the creator last.
func Recipients(community models.Record[models.Community], authorID string) []string {
	seen := map[string]bool{authorID: true, "": true}
	var out []string
	for _, id := range append(append([]string(nil), community.Payload.Members...), community.OwnerID) {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func (s *NotificationService) NotifyNewPost(ctx context.Context, post models.Record[models.Prayer], community models.Record[models.Community]) FanoutResult {
	actor := post.Payload.AuthorName
	if actor == "" {
		actor = "Someone"
	}
	n := models.Notification{
		Type:             models.NotificationTypeNewPost,
		Title:            community.Payload.Name,
		Message:          fmt.Sprintf("%s shared a new prayer: %s", actor, post.Payload.Title),
		ActorID:          post.OwnerID,
		ActorName:        post.Payload.AuthorName,
		ActorAvatar:      post.Payload.AuthorAvatar,
		CommunityID:      community.ID,
		TargetID:         post.ID,
		TargetCollection: post.Collection,
	}
	return s.fanout(ctx, Recipients(community, post.OwnerID), n)
}

func (s *NotificationService) NotifyNewComment(ctx context.Context, comment models.Record[models.Comment], parent RecordInfo, community models.Record[models.Community]) FanoutResult {
	actor := comment.Payload.AuthorName
	if actor == "" {
		actor = "Someone"
	}
	message := fmt.Sprintf("%s commented: %s", actor, comment.Payload.Text)
	if parent.Title != "" {
		message = fmt.Sprintf("%s commented on %s: %s", actor, parent.Title, comment.Payload.Text)
	}
	n := models.Notification{
		Type:             models.NotificationTypeNewComment,
		Title:            community.Payload.Name,
		Message:          message,
		ActorID:          comment.OwnerID,
		ActorName:        comment.Payload.AuthorName,
		ActorAvatar:      comment.Payload.AuthorAvatar,
		CommunityID:      community.ID,
		TargetID:         parent.ID,
		TargetCollection: parent.Collection,
	}
	return s.fanout(ctx, Recipients(community, comment.OwnerID), n)
}

// fanout writes one notification per recipient concurrently. A failed write
// is logged and recorded in the result; it never stops the others.
func (s *NotificationService) fanout(ctx context.Context, recipients []string, template models.Notification) FanoutResult {
	result := FanoutResult{Recipients: recipients}
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(fanoutConcurrency)

	for _, recipientID := range recipients {
		g.Go(func() error {
			n := template
			n.RecipientID = recipientID
			entry := s.log.WithFields(logrus.Fields{"recipient": recipientID, "type": n.Type})

			_, err := s.forRecipient(recipientID).write(ctx, n, &models.Principal{ID: recipientID}, false, nil)

			mu.Lock()
			if err != nil {
				result.Failed = append(result.Failed, recipientID)
			} else {
				result.Delivered = append(result.Delivered, recipientID)
			}
			mu.Unlock()

			if err != nil {
				entry.WithError(err).Warn("failed to create notification")
				return nil
			}
			if s.pusher != nil {
				if err := s.pusher.Push(ctx, recipientID, n); err != nil {
					entry.WithError(err).Warn("failed to send push notification")
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(result.Delivered)
	sort.Strings(result.Failed)
	s.log.WithFields(logrus.Fields{
		"type":      template.Type,
		"delivered": len(result.Delivered),
		"failed":    len(result.Failed),
	}).Info("notification fan-out finished")
	return result
}

// SubscribeToNotifications streams the newest notifications of principal.
// It always returns a callable unsubscribe, a no-op when the subscription
// could not be opened.
func (s *NotificationService) SubscribeToNotifications(ctx context.Context, principal *models.Principal, onUpdate func([]models.Record[models.Notification]), onError func(error)) stores.Unsubscribe {
	noop := func() {}
	if principal == nil || principal.ID == "" {
		return noop
	}

	q := stores.Query{}.Order(models.FieldCreatedAt, stores.Desc).WithLimit(s.window)
	unsubscribe, err := s.deps.Remote.Subscribe(ctx, models.NotificationsPath(principal.ID), q,
		func(snaps []stores.Snapshot) {
			recs := make([]models.Record[models.Notification], 0, len(snaps))
			for _, snap := range snaps {
				recs = append(recs, models.DecodeRecord(models.CollectionNotification, snap.ID, snap.Data, models.NotificationFromFields))
			}
			onUpdate(recs)
		},
		func(err error) {
			s.log.WithField("recipient", principal.ID).WithError(err).Warn("notification subscription failed")
			if onError != nil {
				onError(err)
			}
		})
	if err != nil {
		s.log.WithField("recipient", principal.ID).WithError(err).Warn("could not subscribe to notifications")
		if onError != nil {
			onError(err)
		}
		return noop
	}
	if unsubscribe == nil {
		return noop
	}
	return unsubscribe
}

func (s *NotificationService) currentRecipient(ctx context.Context) (*Synchronizer[models.Notification], error) {
	principal, ok := s.identity.CurrentPrincipal(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}
	return s.forRecipient(principal.ID), nil
}

// ListNotifications returns the newest notifications of the current principal.
func (s *NotificationService) ListNotifications(ctx context.Context) ([]models.Record[models.Notification], error) {
	inbox, err := s.currentRecipient(ctx)
	if err != nil {
		return nil, err
	}
	return inbox.List(ctx, ListOptions{Limit: s.window}), nil
}

func (s *NotificationService) MarkAsRead(ctx context.Context, notificationID string) error {
	inbox, err := s.currentRecipient(ctx)
	if err != nil {
		return err
	}
	remoteErr := inbox.UpdateRemote(ctx, notificationID, models.Document{models.FieldIsRead: true})
	inbox.MutateLocal(ctx, notificationID, markRead)
	if errors.Is(remoteErr, stores.ErrDocumentNotFound) {
		if _, cached := inbox.findLocal(ctx, notificationID); !cached {
			return fmt.Errorf("%w: notification %s", ErrNotFound, notificationID)
		}
		return nil
	}
	if remoteErr != nil && !stores.IsRecoverable(remoteErr) {
		return remoteErr
	}
	return nil
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context) error {
	inbox, err := s.currentRecipient(ctx)
	if err != nil {
		return err
	}
	unread, err := s.deps.Remote.QueryDocuments(ctx, inbox.Path(), stores.Where(models.FieldIsRead, false))
	if err != nil {
		s.log.WithError(err).Warn("could not load unread notifications, marking local copies only")
	}
	var failed []string
	for _, snap := range unread {
		if err := inbox.UpdateRemote(ctx, snap.ID, models.Document{models.FieldIsRead: true}); err != nil {
			failed = append(failed, snap.ID)
		}
	}
	if len(failed) > 0 {
		s.log.WithField("failed", failed).Warn("some notifications were not marked read remotely")
	}
	for _, rec := range inbox.ListLocal(ctx) {
		if !rec.Payload.IsRead {
			inbox.MutateLocal(ctx, rec.ID, markRead)
		}
	}
	return nil
}

// DeleteNotification hard-deletes one notification of the current principal.
func (s *NotificationService) DeleteNotification(ctx context.Context, notificationID string) error {
	inbox, err := s.currentRecipient(ctx)
	if err != nil {
		return err
	}
	if err := s.deps.Remote.DeleteDocument(ctx, inbox.Path(), notificationID); err != nil {
		s.log.WithField("recordId", notificationID).WithError(err).Warn("remote notification delete failed")
	}
	inbox.PruneLocal(ctx, notificationID)
	return nil
}

// ClearAll hard-deletes every notification of the current principal.
func (s *NotificationService) ClearAll(ctx context.Context) error {
	inbox, err := s.currentRecipient(ctx)
	if err != nil {
		return err
	}
	snaps, err := s.deps.Remote.QueryDocuments(ctx, inbox.Path(), stores.Query{})
	if err != nil {
		s.log.WithError(err).Warn("could not load notifications, clearing local copies only")
	}
	var failed []string
	for _, snap := range snaps {
		if err := s.deps.Remote.DeleteDocument(ctx, inbox.Path(), snap.ID); err != nil {
			failed = append(failed, snap.ID)
		}
	}
	if len(failed) > 0 {
		s.log.WithField("failed", failed).Warn("some notifications were not deleted remotely")
	}
	inbox.ClearLocal(ctx)
	return nil
}

// UnreadCount is always derived from a count query, never cached. Offline it
// falls back to counting the local copies.
func (s *NotificationService) UnreadCount(ctx context.Context) (int, error) {
	inbox, err := s.currentRecipient(ctx)
	if err != nil {
		return 0, err
	}
	count, err := s.deps.Remote.CountDocuments(ctx, inbox.Path(), stores.Where(models.FieldIsRead, false))
	if err == nil {
		return count, nil
	}
	s.log.WithError(err).Warn("unread count unavailable remotely, counting local copies")
	count = 0
	for _, rec := range inbox.ListLocal(ctx) {
		if !rec.Payload.IsRead {
			count++
		}
	}
	return count, nil
}

func markRead(r *models.Record[models.Notification]) bool {
	if r.Payload.IsRead {
		return false
	}
	r.Payload.IsRead = true
	return true
}
