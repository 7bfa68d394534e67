package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/PrayerLoop/recordsync/models"
	"github.com/PrayerLoop/recordsync/services"
)

// API holds the services behind the HTTP handlers.
type API struct {
	Prayers       *services.PrayerService
	Communities   *services.CommunityService
	Partners      *services.PartnerService
	Engagement    *services.EngagementService
	Notifications *services.NotificationService
	Push          *services.PushNotificationService
	Tasks         *services.Tasks
	Log           logrus.FieldLogger
}

// respondError maps service errors onto status codes. Anything unexpected is
// logged and reported as a 500 with the given message.
func (a *API) respondError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, services.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": message, "details": err.Error()})
	case errors.Is(err, services.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
	case errors.Is(err, services.ErrOwnership):
		c.JSON(http.StatusForbidden, gin.H{"error": "You don't have permission to modify this record"})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Record not found", "details": err.Error()})
	default:
		a.logger().WithField("path", c.FullPath()).WithError(err).Error(message)
		c.JSON(http.StatusInternalServerError, gin.H{"error": message, "details": err.Error()})
	}
}

func (a *API) logger() logrus.FieldLogger {
	if a.Log == nil {
		return logrus.StandardLogger()
	}
	return a.Log
}

// records keeps empty lists encoded as [] rather than null.
func records[P models.Payload](recs []models.Record[P]) []models.Record[P] {
	if recs == nil {
		return []models.Record[P]{}
	}
	return recs
}

func Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}
