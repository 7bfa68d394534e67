package controllers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PrayerLoop/recordsync/models"
	"github.com/PrayerLoop/recordsync/services"
)

func recordParams(collection, id string) gin.Params {
	return gin.Params{{Key: "collection", Value: collection}, {Key: "id", Value: id}}
}

func TestToggleLike(t *testing.T) {
	api, cleanup := SetupTestAPI(t)
	defer cleanup()
	member := MockPrincipal()
	prayer := createPrayer(t, api, &member, MockPrayer())

	tests := []struct {
		name           string
		collection     string
		id             string
		expectedStatus int
		expectedLiked  bool
		expectedLikes  int
	}{
		{name: "first toggle likes", collection: "prayer", id: prayer.ID, expectedStatus: http.StatusOK, expectedLiked: true, expectedLikes: 1},
		{name: "second toggle unlikes", collection: "prayer", id: prayer.ID, expectedStatus: http.StatusOK, expectedLiked: false, expectedLikes: 0},
		{name: "unknown collection", collection: "sermons", id: prayer.ID, expectedStatus: http.StatusBadRequest},
		{name: "collection without engagement", collection: "notification", id: prayer.ID, expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := SetupTestContext()
			c.Params = recordParams(tt.collection, tt.id)
			SetAuthenticatedPrincipal(c, member)

			api.ToggleLike(c)

			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			if tt.expectedStatus != http.StatusOK {
				return
			}
			var result services.LikeResult
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
			assert.Equal(t, tt.expectedLiked, result.Liked)
			assert.Equal(t, tt.expectedLikes, result.Likes)
		})
	}
}

func TestCommentLifecycle(t *testing.T) {
	api, cleanup := SetupTestAPI(t)
	defer cleanup()
	author := MockPrincipal()
	prayer := createPrayer(t, api, &author, MockPrayer())

	c, w := SetupTestContext()
	SetJSONBody(c, "POST", "/records/prayer/"+prayer.ID+"/comments", CommentRequest{Text: "  Praying for you  "})
	c.Params = recordParams("prayer", prayer.ID)
	SetAuthenticatedPrincipal(c, author)
	api.CreateComment(c)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var comment models.Record[models.Comment]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &comment))
	assert.Equal(t, "Praying for you", comment.Payload.Text)
	assert.Equal(t, author.ID, comment.OwnerID)

	c, w = SetupTestContext()
	c.Params = recordParams("prayer", prayer.ID)
	api.GetComments(c)
	require.Equal(t, http.StatusOK, w.Code)
	var comments []models.Record[models.Comment]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &comments))
	require.Len(t, comments, 1)
	assert.Equal(t, comment.ID, comments[0].ID)

	c, w = SetupTestContext()
	c.Params = append(recordParams("prayer", prayer.ID), gin.Param{Key: "comment_id", Value: comment.ID})
	SetAuthenticatedPrincipal(c, MockOtherPrincipal())
	api.DeleteComment(c)
	assert.Equal(t, http.StatusForbidden, w.Code)

	c, w = SetupTestContext()
	c.Params = append(recordParams("prayer", prayer.ID), gin.Param{Key: "comment_id", Value: comment.ID})
	SetAuthenticatedPrincipal(c, author)
	api.DeleteComment(c)
	assert.Equal(t, http.StatusOK, w.Code)

	c, w = SetupTestContext()
	c.Params = recordParams("prayer", prayer.ID)
	api.GetComments(c)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestCreateCommentErrors(t *testing.T) {
	api, cleanup := SetupTestAPI(t)
	defer cleanup()
	member := MockPrincipal()
	prayer := createPrayer(t, api, &member, MockPrayer())

	tests := []struct {
		name           string
		collection     string
		id             string
		body           any
		expectedStatus int
	}{
		{name: "missing text", collection: "prayer", id: prayer.ID, body: CommentRequest{}, expectedStatus: http.StatusBadRequest},
		{name: "whitespace text", collection: "prayer", id: prayer.ID, body: CommentRequest{Text: "   "}, expectedStatus: http.StatusBadRequest},
		{name: "invalid collection", collection: "bogus", id: prayer.ID, body: CommentRequest{Text: "Amen"}, expectedStatus: http.StatusBadRequest},
		{name: "missing parent", collection: "prayer", id: "missing", body: CommentRequest{Text: "Amen"}, expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := SetupTestContext()
			SetJSONBody(c, "POST", "/records/"+tt.collection+"/"+tt.id+"/comments", tt.body)
			c.Params = recordParams(tt.collection, tt.id)
			SetAuthenticatedPrincipal(c, member)

			api.CreateComment(c)

			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
		})
	}
}
