package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PrayerLoop/recordsync/models"
	"github.com/PrayerLoop/recordsync/services"
)

func (a *API) GetPartnerContent(c *gin.Context) {
	kind, err := services.ParsePartnerKind(c.Param("kind"))
	if err != nil {
		a.respondError(c, err, "Invalid partner content kind")
		return
	}

	content, err := a.Partners.List(c.Request.Context(), kind)
	if err != nil {
		a.respondError(c, err, "Failed to fetch partner content")
		return
	}
	c.JSON(http.StatusOK, records(content))
}

func (a *API) CreatePartnerContent(c *gin.Context) {
	kind, err := services.ParsePartnerKind(c.Param("kind"))
	if err != nil {
		a.respondError(c, err, "Invalid partner content kind")
		return
	}

	var input models.PartnerContent
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	content, err := a.Partners.Create(c.Request.Context(), kind, input)
	if err != nil {
		a.respondError(c, err, "Failed to create partner content")
		return
	}
	c.JSON(http.StatusCreated, content)
}

func (a *API) DeletePartnerContent(c *gin.Context) {
	kind, err := services.ParsePartnerKind(c.Param("kind"))
	if err != nil {
		a.respondError(c, err, "Invalid partner content kind")
		return
	}

	if err := a.Partners.Delete(c.Request.Context(), kind, c.Param("id")); err != nil {
		a.respondError(c, err, "Failed to delete partner content")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Partner content deleted successfully"})
}
