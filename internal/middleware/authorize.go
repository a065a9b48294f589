package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"secureauth/api/internal/models"
)

// RequireAuth rejects anonymous requests with 401. It only requires an
// authenticated identity, not any particular role.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUser(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication_required"})
			return
		}
		c.Next()
	}
}

// RequireRoles rejects anonymous requests with 401 and authenticated
// requests whose role is outside the given set with 403. The two codes
// stay distinct so the caller can show a login prompt versus an
// access-denied page.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	roleSet := make(map[models.UserRole]struct{}, len(roles))
	for _, role := range roles {
		roleSet[role] = struct{}{}
	}

	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication_required"})
			return
		}

		if _, ok := roleSet[user.Role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}

		c.Next()
	}
}
