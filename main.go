package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/PrayerLoop/recordsync/controllers"
	"github.com/PrayerLoop/recordsync/initializers"
	"github.com/PrayerLoop/recordsync/middlewares"
	"github.com/PrayerLoop/recordsync/models"
	"github.com/PrayerLoop/recordsync/services"
	"github.com/PrayerLoop/recordsync/stores"
)

func main() {
	ctx := context.Background()

	initializers.LoadEnv()
	cfg, err := initializers.LoadConfig()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load config")
	}
	log := initializers.NewLogger(cfg)

	backends, err := initializers.ConnectStores(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect stores")
	}
	defer backends.Close()

	tasks := services.NewTasks(log, 64)
	api := buildAPI(cfg, backends, tasks, log)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: newRouter(api, cfg.CORSOrigins),
	}

	// graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.WithError(err).Error("server shutdown failed")
		}
	}()

	log.WithField("port", cfg.Port).Info("Starting server")
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("Server error")
	}

	tasks.Wait()
	log.Info("Server stopped gracefully")
}

func buildAPI(cfg *initializers.Config, backends *initializers.Backends, tasks *services.Tasks, log logrus.FieldLogger) *controllers.API {
	deps := services.Deps{
		Remote:          backends.Remote,
		Local:           backends.Local,
		Locker:          backends.Locker,
		Log:             log,
		StrictOwnership: cfg.StrictOwnership,
	}
	registry := stores.NewRegistry()
	identity := services.ContextIdentity{}

	var uploader services.MediaUploader
	var pusher services.Pusher
	var push *services.PushNotificationService
	if fb := backends.Firebase; fb != nil {
		if fb.Bucket != nil {
			uploader = services.NewStorageUploader(fb.Bucket, fb.BucketName, cfg.MediaStagingDir)
		}
		var messenger services.Messenger
		if fb.Messaging != nil {
			messenger = fb.Messaging
		}
		push = services.NewPushNotificationService(messenger, backends.Remote, log)
		if cfg.PushEnabled {
			pusher = push
		}
	}

	prayers := services.NewPrayerService(deps, registry, identity, uploader)
	notifications := services.NewNotificationService(deps, registry, identity, pusher, cfg.NotificationWindow)
	communities := services.NewCommunityService(deps, registry, identity, uploader, prayers, notifications, tasks)
	partners := services.NewPartnerService(deps, registry, identity, uploader)
	engagement := services.NewEngagementService(deps, registry, identity, uploader, tasks)
	engagement.RegisterDefaultTargets(prayers, partners)
	engagement.NotifyWith(notifications, communities)

	return &controllers.API{
		Prayers:       prayers,
		Communities:   communities,
		Partners:      partners,
		Engagement:    engagement,
		Notifications: notifications,
		Push:          push,
		Tasks:         tasks,
		Log:           log,
	}
}

func newRouter(api *controllers.API, origins []string) *gin.Engine {
	router := gin.Default()
	router.Use(middlewares.CORS(origins))
	key := middlewares.PrincipalOrIPKey

	router.GET("/ping", middlewares.RateLimitMiddleware(2, 2, key), controllers.Ping)

	auth := router.Group("/")
	auth.Use(middlewares.CheckAuth)
	auth.Use(middlewares.RateLimitMiddleware(10, 10, key))
	{
		// prayer routes
		auth.POST("/prayers", api.CreatePrayer)
		auth.GET("/prayers", api.GetPrayers)
		auth.GET("/prayers/cached", api.GetCachedPrayers)
		auth.GET("/prayers/category/:category", api.GetPrayersByCategory)
		auth.DELETE("/prayers/:id", api.DeletePrayer)

		auth.POST("/prayer-requests", api.CreatePrayerRequest)
		auth.GET("/prayer-requests", api.GetPrayerRequests)
		auth.DELETE("/prayer-requests/:id", api.DeletePrayerRequest)
		auth.GET("/feed", api.GetFeed)

		// community routes
		auth.POST("/communities", api.CreateCommunity)
		auth.GET("/communities", api.GetCommunities)
		auth.GET("/communities/:id", api.GetCommunity)
		auth.DELETE("/communities/:id", api.DeleteCommunity)
		auth.POST("/communities/:id/join", api.JoinCommunity)
		auth.POST("/communities/:id/leave", api.LeaveCommunity)
		auth.GET("/communities/:id/membership", api.GetMembership)
		auth.POST("/communities/:id/posts", api.CreateCommunityPost)
		auth.GET("/communities/:id/posts", api.GetCommunityPosts)

		// partner routes
		auth.GET("/partners/:kind", api.GetPartnerContent)
		auth.POST("/partners/:kind", middlewares.CheckRole(models.RolePartner), api.CreatePartnerContent)
		auth.DELETE("/partners/:kind/:id", api.DeletePartnerContent)

		// engagement routes
		auth.POST("/records/:collection/:id/like", api.ToggleLike)
		auth.GET("/records/:collection/:id/comments", api.GetComments)
		auth.POST("/records/:collection/:id/comments", api.CreateComment)
		auth.DELETE("/records/:collection/:id/comments/:comment_id", api.DeleteComment)

		// notification routes
		auth.GET("/notifications", api.GetNotifications)
		auth.GET("/notifications/unread-count", api.GetUnreadCount)
		auth.GET("/notifications/stream", api.StreamNotifications)
		auth.PATCH("/notifications/mark-all-read", api.MarkAllNotificationsAsRead)
		auth.PATCH("/notifications/:id/read", api.MarkNotificationRead)
		auth.DELETE("/notifications/:id", api.DeleteNotification)
		auth.DELETE("/notifications", api.ClearNotifications)
		auth.GET("/warnings", api.GetWarnings)

		// push token route
		auth.POST("/users/push-token", api.StorePushToken)
	}

	return router
}
