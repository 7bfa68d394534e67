package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PrayerLoop/recordsync/models"
)

type CommentRequest struct {
	Text     string `json:"text" binding:"required"`
	ImageURI string `json:"imageUri"`
	VideoURI string `json:"videoUri"`
}

func parseRecordCollection(c *gin.Context) (models.Collection, bool) {
	collection, ok := models.ParseCollection(c.Param("collection"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid collection", "details": c.Param("collection")})
		return "", false
	}
	return collection, true
}

func (a *API) ToggleLike(c *gin.Context) {
	collection, ok := parseRecordCollection(c)
	if !ok {
		return
	}

	result, err := a.Engagement.ToggleLike(c.Request.Context(), collection, c.Param("id"))
	if err != nil {
		a.respondError(c, err, "Failed to toggle like")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (a *API) GetComments(c *gin.Context) {
	collection, ok := parseRecordCollection(c)
	if !ok {
		return
	}

	comments, err := a.Engagement.ListComments(c.Request.Context(), collection, c.Param("id"))
	if err != nil {
		a.respondError(c, err, "Failed to fetch comments")
		return
	}
	c.JSON(http.StatusOK, records(comments))
}

func (a *API) CreateComment(c *gin.Context) {
	collection, ok := parseRecordCollection(c)
	if !ok {
		return
	}

	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Comment text is required", "details": err.Error()})
		return
	}

	var media *models.CommentMedia
	if req.ImageURI != "" || req.VideoURI != "" {
		media = &models.CommentMedia{ImageURI: req.ImageURI, VideoURI: req.VideoURI}
	}

	comment, err := a.Engagement.AddComment(c.Request.Context(), collection, c.Param("id"), req.Text, media)
	if err != nil {
		a.respondError(c, err, "Failed to create comment")
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (a *API) DeleteComment(c *gin.Context) {
	collection, ok := parseRecordCollection(c)
	if !ok {
		return
	}

	err := a.Engagement.DeleteComment(c.Request.Context(), collection, c.Param("id"), c.Param("comment_id"))
	if err != nil {
		a.respondError(c, err, "Failed to delete comment")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted successfully"})
}
