package controllers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PrayerLoop/recordsync/models"
)

func createPrayer(t *testing.T, api *TestAPI, p *models.Principal, input models.Prayer) models.Record[models.Prayer] {
	t.Helper()
	c, w := SetupTestContext()
	SetJSONBody(c, "POST", "/prayers", input)
	if p != nil {
		SetAuthenticatedPrincipal(c, *p)
	}
	api.CreatePrayer(c)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var rec models.Record[models.Prayer]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	return rec
}

func TestCreatePrayer(t *testing.T) {
	member := MockPrincipal()

	tests := []struct {
		name           string
		principal      *models.Principal
		body           any
		expectedStatus int
		expectedAuthor string
	}{
		{
			name:           "authenticated member",
			principal:      &member,
			body:           MockPrayer(),
			expectedStatus: http.StatusCreated,
			expectedAuthor: "Test User",
		},
		{
			name:           "anonymous caller",
			body:           MockPrayer(),
			expectedStatus: http.StatusCreated,
			expectedAuthor: "Anonymous",
		},
		{
			name:           "missing title",
			principal:      &member,
			body:           models.Prayer{Category: "Healing"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "malformed body",
			principal:      &member,
			body:           "not json",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api, cleanup := SetupTestAPI(t)
			defer cleanup()

			c, w := SetupTestContext()
			SetJSONBody(c, "POST", "/prayers", tt.body)
			if tt.principal != nil {
				SetAuthenticatedPrincipal(c, *tt.principal)
			}

			api.CreatePrayer(c)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus != http.StatusCreated {
				return
			}
			var rec models.Record[models.Prayer]
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
			assert.NotEmpty(t, rec.ID)
			assert.Equal(t, models.CollectionPrayer, rec.Collection)
			assert.True(t, rec.IsActive)
			assert.Equal(t, tt.expectedAuthor, rec.Payload.AuthorName)
		})
	}
}

func TestGetPrayers(t *testing.T) {
	api, cleanup := SetupTestAPI(t)
	defer cleanup()

	c, w := SetupTestContext()
	api.GetPrayers(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	member := MockPrincipal()
	created := createPrayer(t, api, &member, MockPrayer())

	c, w = SetupTestContext()
	api.GetPrayers(c)
	require.Equal(t, http.StatusOK, w.Code)
	var recs []models.Record[models.Prayer]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, created.ID, recs[0].ID)

	c, w = SetupTestContext()
	api.GetCachedPrayers(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, created.ID, recs[0].ID)
}

func TestGetPrayersByCategory(t *testing.T) {
	api, cleanup := SetupTestAPI(t)
	defer cleanup()

	member := MockPrincipal()
	createPrayer(t, api, &member, MockPrayer())
	createPrayer(t, api, &member, models.Prayer{Title: "Thanks", Category: "Gratitude"})

	tests := []struct {
		name           string
		category       string
		expectedStatus int
		expectedCount  int
	}{
		{name: "matching category", category: "Healing", expectedStatus: http.StatusOK, expectedCount: 1},
		{name: "no prayers in category", category: "Family", expectedStatus: http.StatusOK, expectedCount: 0},
		{name: "missing category", category: "", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := SetupTestContext()
			c.Params = gin.Params{{Key: "category", Value: tt.category}}

			api.GetPrayersByCategory(c)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus != http.StatusOK {
				return
			}
			var recs []models.Record[models.Prayer]
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &recs))
			assert.Len(t, recs, tt.expectedCount)
		})
	}
}

func TestDeletePrayer(t *testing.T) {
	owner := MockPrincipal()
	other := MockOtherPrincipal()

	tests := []struct {
		name           string
		deleter        *models.Principal
		expectedStatus int
	}{
		{name: "owner deletes", deleter: &owner, expectedStatus: http.StatusOK},
		{name: "other member forbidden", deleter: &other, expectedStatus: http.StatusForbidden},
		{name: "anonymous caller forbidden", expectedStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api, cleanup := SetupTestAPI(t)
			defer cleanup()
			rec := createPrayer(t, api, &owner, MockPrayer())

			c, w := SetupTestContext()
			c.Params = gin.Params{{Key: "id", Value: rec.ID}}
			if tt.deleter != nil {
				SetAuthenticatedPrincipal(c, *tt.deleter)
			}

			api.DeletePrayer(c)

			assert.Equal(t, tt.expectedStatus, w.Code)
			_, found, err := api.Remote.GetDocument(c.Request.Context(), "prayers", rec.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus != http.StatusOK, found)
		})
	}
}

func TestDeletePrayerNotFound(t *testing.T) {
	api, cleanup := SetupTestAPI(t)
	defer cleanup()

	c, w := SetupTestContext()
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	SetAuthenticatedPrincipal(c, MockPrincipal())

	api.DeletePrayer(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPrayerRequestsAndFeed(t *testing.T) {
	api, cleanup := SetupTestAPI(t)
	defer cleanup()
	member := MockPrincipal()

	createPrayer(t, api, &member, MockPrayer())

	c, w := SetupTestContext()
	SetJSONBody(c, "POST", "/prayer-requests", models.Prayer{Title: "New job", Category: "Work"})
	SetAuthenticatedPrincipal(c, member)
	api.CreatePrayerRequest(c)
	require.Equal(t, http.StatusCreated, w.Code)
	var request models.Record[models.Prayer]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &request))
	assert.Equal(t, models.CollectionPrayerRequest, request.Collection)

	c, w = SetupTestContext()
	api.GetPrayerRequests(c)
	var recs []models.Record[models.Prayer]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &recs))
	assert.Len(t, recs, 1)

	c, w = SetupTestContext()
	api.GetFeed(c)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &recs))
	assert.Len(t, recs, 2)

	c, w = SetupTestContext()
	c.Params = gin.Params{{Key: "id", Value: request.ID}}
	SetAuthenticatedPrincipal(c, member)
	api.DeletePrayerRequest(c)
	assert.Equal(t, http.StatusOK, w.Code)

	c, w = SetupTestContext()
	api.GetPrayerRequests(c)
	assert.JSONEq(t, "[]", w.Body.String())
}
