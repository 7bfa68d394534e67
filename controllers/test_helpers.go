package controllers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/PrayerLoop/recordsync/middlewares"
	"github.com/PrayerLoop/recordsync/models"
	"github.com/PrayerLoop/recordsync/services"
	"github.com/PrayerLoop/recordsync/stores"
)

// TestAPI is an API backed by in-memory stores.
type TestAPI struct {
	*API
	Remote *stores.MemoryDocumentStore
	Local  *stores.MemoryLocalStore
	Tasks  *services.Tasks
	Hook   *test.Hook
}

// SetupTestAPI wires every service against fresh memory stores. The cleanup
// waits for background tasks so assertions see their writes.
func SetupTestAPI(t *testing.T) (*TestAPI, func()) {
	t.Helper()
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	remote := stores.NewMemoryDocumentStore()
	local := stores.NewMemoryLocalStore()
	registry := stores.NewRegistry()
	deps := services.Deps{Remote: remote, Local: local, Log: log}
	identity := services.ContextIdentity{}
	tasks := services.NewTasks(log, 16)

	push := services.NewPushNotificationService(nil, remote, log)
	prayers := services.NewPrayerService(deps, registry, identity, nil)
	notifications := services.NewNotificationService(deps, registry, identity, nil, 0)
	communities := services.NewCommunityService(deps, registry, identity, nil, prayers, notifications, tasks)
	partners := services.NewPartnerService(deps, registry, identity, nil)
	engagement := services.NewEngagementService(deps, registry, identity, nil, tasks)
	engagement.RegisterDefaultTargets(prayers, partners)
	engagement.NotifyWith(notifications, communities)

	api := &TestAPI{
		API: &API{
			Prayers:       prayers,
			Communities:   communities,
			Partners:      partners,
			Engagement:    engagement,
			Notifications: notifications,
			Push:          push,
			Tasks:         tasks,
			Log:           log,
		},
		Remote: remote,
		Local:  local,
		Tasks:  tasks,
		Hook:   hook,
	}
	return api, tasks.Wait
}

// SetupTestContext creates a test Gin context with a response recorder
func SetupTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/", nil)
	return c, w
}

// SetAuthenticatedPrincipal does what CheckAuth does for a verified token.
func SetAuthenticatedPrincipal(c *gin.Context, p models.Principal) {
	c.Set(middlewares.CurrentPrincipalKey, p)
	c.Set("admin", p.Role == models.RoleAdmin)
	c.Request = c.Request.WithContext(services.WithPrincipal(c.Request.Context(), p))
}

// SetJSONBody replaces the request with method and a JSON body.
func SetJSONBody(c *gin.Context, method, path string, body any) {
	var r io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req.WithContext(c.Request.Context())
}
