package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	"secureauth/api/internal/models"
	"secureauth/api/internal/service"
	"secureauth/api/internal/session"
)

const (
	ctxKeyUser  = "current_user"
	ctxKeyToken = "session_token"
)

// Identity resolves the session cookie to a user and attaches it to the
// request context. It never aborts: requests without a valid session
// simply proceed anonymous, and RequireAuth or RequireRoles decide what
// that means per route. Role checks therefore always run after session
// validation, never instead of it.
func Identity(manager *session.Manager, users service.UserStore, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cookieName)
		if err != nil || token == "" {
			c.Next()
			return
		}

		userID, err := manager.Validate(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, session.ErrInvalidSession) {
				_ = c.Error(err)
			}
			c.Next()
			return
		}

		user, err := users.GetByID(c.Request.Context(), userID)
		if err != nil || !user.IsActive {
			c.Next()
			return
		}

		c.Set(ctxKeyUser, user)
		c.Set(ctxKeyToken, token)
		c.Next()
	}
}

// CurrentUser returns the authenticated user attached by Identity.
func CurrentUser(c *gin.Context) (models.User, bool) {
	val, exists := c.Get(ctxKeyUser)
	if !exists {
		return models.User{}, false
	}
	user, ok := val.(models.User)
	return user, ok
}

// SessionToken returns the raw session token for the current request.
func SessionToken(c *gin.Context) (string, bool) {
	val, exists := c.Get(ctxKeyToken)
	if !exists {
		return "", false
	}
	token, ok := val.(string)
	return token, ok
}
