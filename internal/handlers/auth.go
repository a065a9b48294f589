package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"secureauth/api/internal/forms"
	"secureauth/api/internal/middleware"
	"secureauth/api/internal/security"
	"secureauth/api/internal/service"
)

const dashboardPath = "/dashboard"
const loginPath = "/auth/login"

// RegisterUser handles POST /auth/register. An already-authenticated
// caller is bounced to the dashboard without touching the form. On
// success the new user is signed in immediately and sent to the
// validated next target or the dashboard.
func (h HandlerSet) RegisterUser(c *gin.Context) {
	if _, ok := middleware.CurrentUser(c); ok {
		c.Redirect(http.StatusSeeOther, dashboardPath)
		return
	}

	var form forms.RegisterForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed_form"})
		return
	}

	result, fieldErrs, err := h.auth.Register(c.Request.Context(), &form)
	if err != nil {
		h.log.Error().Err(err).Msg("registration failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_server_error"})
		return
	}
	if fieldErrs.Any() {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": fieldErrs})
		return
	}

	h.cookies.Write(c.Writer, result.Token, false)
	c.Redirect(http.StatusSeeOther, h.safeNext(c, form.Next))
}

// Login handles POST /auth/login. Every credential failure produces the
// same generic message so responses never reveal whether the email is
// registered.
func (h HandlerSet) Login(c *gin.Context) {
	if _, ok := middleware.CurrentUser(c); ok {
		c.Redirect(http.StatusSeeOther, dashboardPath)
		return
	}

	var form forms.LoginForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed_form"})
		return
	}

	result, fieldErrs, err := h.auth.Login(c.Request.Context(), &form)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Invalid email or password."})
			return
		}
		h.log.Error().Err(err).Msg("login failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_server_error"})
		return
	}
	if fieldErrs.Any() {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": fieldErrs})
		return
	}

	h.cookies.Write(c.Writer, result.Token, result.Remember)
	c.Redirect(http.StatusSeeOther, h.safeNext(c, form.Next))
}

// Logout handles POST /auth/logout. RequireAuth has already rejected
// anonymous callers, so a missing token here is a server-side bug.
func (h HandlerSet) Logout(c *gin.Context) {
	token, ok := middleware.SessionToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication_required"})
		return
	}

	if err := h.auth.Logout(c.Request.Context(), token); err != nil {
		h.log.Error().Err(err).Msg("logout failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_server_error"})
		return
	}

	h.cookies.Clear(c.Writer)
	c.Redirect(http.StatusSeeOther, loginPath)
}

// safeNext validates a post-auth redirect target against the current
// host, defaulting to the dashboard.
func (h HandlerSet) safeNext(c *gin.Context, next string) string {
	if next == "" {
		return dashboardPath
	}

	scheme := "http"
	if c.Request.TLS != nil || h.cfg.TLS.Enabled {
		scheme = "https"
	}
	hostURL := scheme + "://" + c.Request.Host + "/"

	if security.IsSafeRedirect(next, hostURL) {
		return next
	}
	return dashboardPath
}
