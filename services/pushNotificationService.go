package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"firebase.google.com/go/v4/messaging"
	"github.com/sirupsen/logrus"

	"github.com/PrayerLoop/recordsync/models"
	"github.com/PrayerLoop/recordsync/stores"
)

const expoPushURL = "https://exp.host/--/api/v2/push/send"

// Messenger is the part of the FCM client used for delivery.
type Messenger interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

type NotificationPayload struct {
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Data     map[string]string `json:"data,omitempty"`
	Sound    string            `json:"sound,omitempty"`
	Badge    string            `json:"badge,omitempty"`
	Priority string            `json:"priority,omitempty"`
}

// PushNotificationService delivers pushes through FCM, or the Expo push API
// for Expo Go tokens. Device tokens live in the remote document store.
type PushNotificationService struct {
	fcm        Messenger
	remote     stores.DocumentStore
	httpClient *http.Client
	expoURL    string
	log        logrus.FieldLogger
}

func NewPushNotificationService(fcm Messenger, remote stores.DocumentStore, log logrus.FieldLogger) *PushNotificationService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &PushNotificationService{
		fcm:        fcm,
		remote:     remote,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		expoURL:    expoPushURL,
		log:        log.WithField("service", "push"),
	}
}

// RegisterToken stores a device token for userID unless it is already known.
func (s *PushNotificationService) RegisterToken(ctx context.Context, userID string, req models.PushTokenRequest) error {
	existing, err := s.remote.QueryDocuments(ctx, models.PushTokensPath,
		stores.Where("userId", userID).Where("pushToken", req.PushToken))
	if err != nil {
		return fmt.Errorf("failed to look up push token: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}
	token := models.PushToken{UserID: userID, PushToken: req.PushToken, Platform: req.Platform, CreatedAt: time.Now().UTC()}
	if _, err := s.remote.CreateDocument(ctx, models.PushTokensPath, token.Fields()); err != nil {
		return fmt.Errorf("failed to store push token: %w", err)
	}
	return nil
}

func (s *PushNotificationService) tokens(ctx context.Context, userID string) ([]models.PushToken, error) {
	snaps, err := s.remote.QueryDocuments(ctx, models.PushTokensPath, stores.Where("userId", userID))
	if err != nil {
		return nil, fmt.Errorf("failed to get push tokens for user %s: %w", userID, err)
	}
	tokens := make([]models.PushToken, 0, len(snaps))
	for _, snap := range snaps {
		tokens = append(tokens, models.PushTokenFromFields(snap.Data))
	}
	return tokens, nil
}

// Push implements Pusher. Recipients without tokens are skipped silently. The
// badge carries the recipient's unread count when it can be read.
func (s *PushNotificationService) Push(ctx context.Context, recipientID string, n models.Notification) error {
	payload := NotificationPayload{
		Title: n.Title,
		Body:  n.Message,
		Data: map[string]string{
			"type":             n.Type,
			"communityId":      n.CommunityID,
			"targetId":         n.TargetID,
			"targetCollection": string(n.TargetCollection),
		},
		Sound:    "default",
		Priority: "high",
	}
	unread, err := s.remote.CountDocuments(ctx, models.NotificationsPath(recipientID), stores.Where(models.FieldIsRead, false))
	if err != nil {
		s.log.WithField("recipient", recipientID).WithError(err).Debug("push badge unavailable")
	} else {
		payload.Badge = strconv.Itoa(unread)
	}
	return s.SendNotificationToUser(ctx, recipientID, payload)
}

func (s *PushNotificationService) SendNotificationToUser(ctx context.Context, userID string, payload NotificationPayload) error {
	tokens, err := s.tokens(ctx, userID)
	if err != nil {
		return err
	}

	var failed int
	for _, token := range tokens {
		if err := s.sendToToken(ctx, token, payload); err != nil {
			failed++
			s.log.WithField("recipient", userID).WithField("platform", token.Platform).WithError(err).
				Warn("failed to send notification to token")
		}
	}
	if failed > 0 && failed == len(tokens) {
		return fmt.Errorf("all %d push tokens failed for user %s", failed, userID)
	}
	return nil
}

func (s *PushNotificationService) sendToToken(ctx context.Context, pushToken models.PushToken, payload NotificationPayload) error {
	if strings.HasPrefix(pushToken.PushToken, "ExponentPushToken[") {
		return s.sendExpoNotification(ctx, pushToken, payload)
	}
	if s.fcm == nil {
		return errors.New("FCM client not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	id, err := s.fcm.Send(ctx, buildFCMMessage(pushToken, payload))
	if err != nil {
		return fmt.Errorf("failed to send FCM message: %w", err)
	}
	s.log.WithField("messageId", id).Debug("sent FCM notification")
	return nil
}

func buildFCMMessage(pushToken models.PushToken, payload NotificationPayload) *messaging.Message {
	message := &messaging.Message{
		Token: pushToken.PushToken,
		Notification: &messaging.Notification{
			Title: payload.Title,
			Body:  payload.Body,
		},
		Data: payload.Data,
	}

	switch pushToken.Platform {
	case "ios":
		message.APNS = &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Alert: &messaging.ApsAlert{
						Title: payload.Title,
						Body:  payload.Body,
					},
					Sound: payload.Sound,
				},
			},
		}
		if payload.Priority == "high" {
			message.APNS.Headers = map[string]string{"apns-priority": "10"}
		}
		if badge, err := strconv.Atoi(payload.Badge); err == nil {
			message.APNS.Payload.Aps.Badge = &badge
		}
	case "android":
		message.Android = &messaging.AndroidConfig{
			Notification: &messaging.AndroidNotification{
				Title: payload.Title,
				Body:  payload.Body,
				Sound: payload.Sound,
			},
			Priority: "normal",
		}
		if payload.Priority == "high" {
			message.Android.Priority = "high"
		}
	}
	return message
}

// sendExpoNotification sends through the Expo push API (Expo Go builds).
func (s *PushNotificationService) sendExpoNotification(ctx context.Context, pushToken models.PushToken, payload NotificationPayload) error {
	expoMessage := map[string]interface{}{
		"to":    pushToken.PushToken,
		"title": payload.Title,
		"body":  payload.Body,
		"data":  payload.Data,
	}
	if payload.Sound != "" {
		expoMessage["sound"] = payload.Sound
	}
	if payload.Priority == "high" {
		expoMessage["priority"] = "high"
	}
	if badge, err := strconv.Atoi(payload.Badge); err == nil {
		expoMessage["badge"] = badge
	}

	jsonBody, err := json.Marshal(expoMessage)
	if err != nil {
		return fmt.Errorf("failed to marshal Expo message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.expoURL, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to build Expo request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send Expo notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("expo push API returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
