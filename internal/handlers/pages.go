package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"secureauth/api/internal/middleware"
	"secureauth/api/internal/models"
)

type userResponse struct {
	ID          string  `json:"id"`
	Username    string  `json:"username"`
	Email       string  `json:"email"`
	Role        string  `json:"role"`
	IsActive    bool    `json:"isActive"`
	LastLoginAt *string `json:"lastLoginAt"`
	CreatedAt   string  `json:"createdAt"`
}

func toUserResponse(user models.User) userResponse {
	resp := userResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Role:      string(user.Role),
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if user.LastLoginAt != nil {
		s := user.LastLoginAt.Format("2006-01-02T15:04:05Z07:00")
		resp.LastLoginAt = &s
	}
	return resp
}

// Home sends authenticated users to the dashboard and everyone else to
// the login page.
func (h HandlerSet) Home(c *gin.Context) {
	if _, ok := middleware.CurrentUser(c); ok {
		c.Redirect(http.StatusSeeOther, dashboardPath)
		return
	}
	c.Redirect(http.StatusSeeOther, loginPath)
}

func (h HandlerSet) Dashboard(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication_required"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"page": "dashboard",
		"user": toUserResponse(user),
	})
}

func (h HandlerSet) AdminHome(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	c.JSON(http.StatusOK, gin.H{
		"page": "admin",
		"user": toUserResponse(user),
	})
}
