package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PrayerLoop/recordsync/models"
)

// CheckRole admits principals holding role. Admins are always admitted.
func CheckRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := CurrentPrincipal(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		if principal.Role != role && principal.Role != models.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Requires role " + role})
			return
		}
		c.Next()
	}
}
