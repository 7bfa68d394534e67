package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PrayerLoop/recordsync/models"
)

func (a *API) CreatePrayer(c *gin.Context) {
	var input models.Prayer
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	prayer, err := a.Prayers.CreatePrayer(c.Request.Context(), input)
	if err != nil {
		a.respondError(c, err, "Failed to create prayer")
		return
	}

	c.JSON(http.StatusCreated, prayer)
}

func (a *API) GetPrayers(c *gin.Context) {
	c.JSON(http.StatusOK, records(a.Prayers.ListPrayers(c.Request.Context())))
}

func (a *API) GetCachedPrayers(c *gin.Context) {
	c.JSON(http.StatusOK, records(a.Prayers.CachedPrayers(c.Request.Context())))
}

func (a *API) GetPrayersByCategory(c *gin.Context) {
	category := c.Param("category")
	if category == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Category is required"})
		return
	}
	c.JSON(http.StatusOK, records(a.Prayers.ListByCategory(c.Request.Context(), category)))
}

func (a *API) DeletePrayer(c *gin.Context) {
	if err := a.Prayers.DeletePrayer(c.Request.Context(), c.Param("id")); err != nil {
		a.respondError(c, err, "Failed to delete prayer")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Prayer deleted successfully"})
}

func (a *API) CreatePrayerRequest(c *gin.Context) {
	var input models.Prayer
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	request, err := a.Prayers.CreatePrayerRequest(c.Request.Context(), input)
	if err != nil {
		a.respondError(c, err, "Failed to create prayer request")
		return
	}

	c.JSON(http.StatusCreated, request)
}

func (a *API) GetPrayerRequests(c *gin.Context) {
	c.JSON(http.StatusOK, records(a.Prayers.ListPrayerRequests(c.Request.Context())))
}

func (a *API) DeletePrayerRequest(c *gin.Context) {
	if err := a.Prayers.DeletePrayerRequest(c.Request.Context(), c.Param("id")); err != nil {
		a.respondError(c, err, "Failed to delete prayer request")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Prayer request deleted successfully"})
}

// GetFeed returns prayers and prayer requests together, newest first.
func (a *API) GetFeed(c *gin.Context) {
	c.JSON(http.StatusOK, records(a.Prayers.CombinedFeed(c.Request.Context())))
}
