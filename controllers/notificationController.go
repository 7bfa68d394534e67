package controllers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PrayerLoop/recordsync/middlewares"
	"github.com/PrayerLoop/recordsync/models"
	"github.com/PrayerLoop/recordsync/services"
)

func (a *API) GetNotifications(c *gin.Context) {
	notifications, err := a.Notifications.ListNotifications(c.Request.Context())
	if err != nil {
		a.respondError(c, err, "Failed to fetch notifications")
		return
	}
	c.JSON(http.StatusOK, records(notifications))
}

func (a *API) GetUnreadCount(c *gin.Context) {
	count, err := a.Notifications.UnreadCount(c.Request.Context())
	if err != nil {
		a.respondError(c, err, "Failed to count notifications")
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": count})
}

// StreamNotifications pushes the newest notifications as server-sent events
// until the client goes away. Only the latest snapshot is kept when the client
// reads slower than updates arrive.
func (a *API) StreamNotifications(c *gin.Context) {
	principal, ok := middlewares.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	ctx := c.Request.Context()
	updates := make(chan []models.Record[models.Notification], 1)
	failed := make(chan error, 1)

	unsubscribe := a.Notifications.SubscribeToNotifications(ctx, &principal,
		func(recs []models.Record[models.Notification]) {
			for {
				select {
				case updates <- recs:
					return
				default:
				}
				select {
				case <-updates:
				default:
				}
			}
		},
		func(err error) {
			select {
			case failed <- err:
			default:
			}
		})
	defer unsubscribe()

	var warnings <-chan services.Warning
	if a.Tasks != nil {
		ch, stop := a.Tasks.WatchWarnings(principal.ID)
		defer stop()
		warnings = ch
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case err := <-failed:
			c.SSEvent("error", gin.H{"error": err.Error()})
			return false
		case recs := <-updates:
			c.SSEvent("notifications", records(recs))
			return true
		case w := <-warnings:
			c.SSEvent("warning", w)
			return true
		}
	})
}

// GetWarnings hands over background warnings raised for the caller since the
// last poll. Clients holding the stream open receive them there instead.
func (a *API) GetWarnings(c *gin.Context) {
	principal, ok := middlewares.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	warnings := []services.Warning{}
	if a.Tasks != nil {
		if taken := a.Tasks.TakeWarnings(principal.ID); taken != nil {
			warnings = taken
		}
	}
	c.JSON(http.StatusOK, gin.H{"warnings": warnings})
}

func (a *API) MarkNotificationRead(c *gin.Context) {
	if err := a.Notifications.MarkAsRead(c.Request.Context(), c.Param("id")); err != nil {
		a.respondError(c, err, "Failed to update notification")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}

func (a *API) MarkAllNotificationsAsRead(c *gin.Context) {
	if err := a.Notifications.MarkAllAsRead(c.Request.Context()); err != nil {
		a.respondError(c, err, "Failed to update notifications")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All notifications marked as read"})
}

func (a *API) DeleteNotification(c *gin.Context) {
	if err := a.Notifications.DeleteNotification(c.Request.Context(), c.Param("id")); err != nil {
		a.respondError(c, err, "Failed to delete notification")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification deleted successfully"})
}

func (a *API) ClearNotifications(c *gin.Context) {
	if err := a.Notifications.ClearAll(c.Request.Context()); err != nil {
		a.respondError(c, err, "Failed to clear notifications")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notifications cleared"})
}

func (a *API) StorePushToken(c *gin.Context) {
	principal, ok := middlewares.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	if a.Push == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Push notifications are disabled"})
		return
	}

	var req models.PushTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if err := a.Push.RegisterToken(c.Request.Context(), principal.ID, req); err != nil {
		a.respondError(c, err, "Failed to store push token")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Push token stored successfully"})
}
