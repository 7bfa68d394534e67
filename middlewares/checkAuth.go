package middlewares

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"

	"github.com/PrayerLoop/recordsync/models"
	"github.com/PrayerLoop/recordsync/services"
)

const CurrentPrincipalKey = "currentPrincipal"

func CheckAuth(c *gin.Context) {

	authHeader := c.GetHeader("Authorization")

	if authHeader == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is missing"})
		return
	}

	authToken := strings.Split(authHeader, " ")
	if len(authToken) != 2 || authToken[0] != "Bearer" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token format"})
		return
	}

	token, err := jwt.Parse(authToken[1], func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(os.Getenv("SECRET")), nil
	})
	if err != nil || !token.Valid {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	exp, ok := claims["exp"].(float64)
	if !ok || float64(time.Now().Unix()) > exp {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token expired"})
		return
	}

	principal, ok := principalFromClaims(claims)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token has no subject"})
		return
	}

	c.Set(CurrentPrincipalKey, principal)
	c.Set("admin", principal.Role == models.RoleAdmin)
	c.Request = c.Request.WithContext(services.WithPrincipal(c.Request.Context(), principal))

	c.Next()

}

// principalFromClaims reads id, name, avatar and role. Numeric ids from older
// tokens are formatted without a fraction.
func principalFromClaims(claims jwt.MapClaims) (models.Principal, bool) {
	var id string
	switch v := claims["id"].(type) {
	case string:
		id = v
	case float64:
		id = fmt.Sprintf("%.0f", v)
	}
	if id == "" {
		return models.Principal{}, false
	}

	p := models.Principal{ID: id, Role: models.RoleMember}
	if name, ok := claims["name"].(string); ok {
		p.DisplayName = name
	}
	if avatar, ok := claims["avatar"].(string); ok {
		p.AvatarURL = avatar
	}
	if role, ok := claims["role"].(string); ok && role != "" {
		p.Role = role
	}
	return p, true
}

// CurrentPrincipal returns the principal CheckAuth stored on the gin context.
func CurrentPrincipal(c *gin.Context) (models.Principal, bool) {
	v, ok := c.Get(CurrentPrincipalKey)
	if !ok {
		return models.Principal{}, false
	}
	p, ok := v.(models.Principal)
	return p, ok
}
