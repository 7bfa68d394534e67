package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PrayerLoop/recordsync/middlewares"
	"github.com/PrayerLoop/recordsync/models"
)

func (a *API) CreateCommunity(c *gin.Context) {
	var input models.Community
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	community, err := a.Communities.CreateCommunity(c.Request.Context(), input)
	if err != nil {
		a.respondError(c, err, "Failed to create community")
		return
	}

	c.JSON(http.StatusCreated, community)
}

func (a *API) GetCommunities(c *gin.Context) {
	if c.Query("cached") == "true" {
		c.JSON(http.StatusOK, records(a.Communities.CachedCommunities(c.Request.Context())))
		return
	}
	c.JSON(http.StatusOK, records(a.Communities.ListCommunities(c.Request.Context())))
}

func (a *API) GetCommunity(c *gin.Context) {
	community, err := a.Communities.GetCommunity(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.respondError(c, err, "Failed to fetch community")
		return
	}
	c.JSON(http.StatusOK, community)
}

func (a *API) DeleteCommunity(c *gin.Context) {
	if err := a.Communities.DeleteCommunity(c.Request.Context(), c.Param("id")); err != nil {
		a.respondError(c, err, "Failed to delete community")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Community deleted successfully"})
}

func (a *API) JoinCommunity(c *gin.Context) {
	result, err := a.Communities.Join(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.respondError(c, err, "Failed to join community")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (a *API) LeaveCommunity(c *gin.Context) {
	result, err := a.Communities.Leave(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.respondError(c, err, "Failed to leave community")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (a *API) GetMembership(c *gin.Context) {
	var principal *models.Principal
	if p, ok := middlewares.CurrentPrincipal(c); ok {
		principal = &p
	}

	member, err := a.Communities.IsMember(c.Request.Context(), c.Param("id"), principal)
	if err != nil {
		a.respondError(c, err, "Failed to check membership")
		return
	}
	c.JSON(http.StatusOK, gin.H{"isMember": member})
}

func (a *API) CreateCommunityPost(c *gin.Context) {
	var input models.Prayer
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	post, err := a.Communities.CreatePost(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		a.respondError(c, err, "Failed to create community post")
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (a *API) GetCommunityPosts(c *gin.Context) {
	c.JSON(http.StatusOK, records(a.Communities.ListPosts(c.Request.Context(), c.Param("id"))))
}
