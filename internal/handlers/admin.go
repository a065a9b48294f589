package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// AdminListUsers pages through all user records. Reachable only through
// the admin role gate.
func (h HandlerSet) AdminListUsers(c *gin.Context) {
	limit := 50
	offset := 0

	if perPage := c.Query("perPage"); perPage != "" {
		if v, err := strconv.Atoi(perPage); err == nil && v > 0 && v <= 200 {
			limit = v
		}
	}
	if page := c.Query("page"); page != "" {
		if v, err := strconv.Atoi(page); err == nil && v > 1 {
			offset = (v - 1) * limit
		}
	}

	users, err := h.users.List(c.Request.Context(), limit, offset)
	if err != nil {
		h.log.Error().Err(err).Msg("list users failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_server_error"})
		return
	}

	items := make([]gin.H, 0, len(users))
	for _, user := range users {
		resp := toUserResponse(user)

		active, err := h.sessions.CountActive(c.Request.Context(), user.ID)
		if err != nil {
			h.log.Warn().Err(err).Str("user_id", user.ID).Msg("count sessions failed")
		}

		items = append(items, gin.H{
			"user":           resp,
			"activeSessions": active,
		})
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}
