package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-gateway/internal/core"
	"github.com/vovakirdan/wirechat-gateway/internal/service/follows"
)

// UserHandlers exposes follow management and chat privacy settings.
type UserHandlers struct {
	follows *follows.Service
	log     *zerolog.Logger
}

// NewUserHandlers creates user handlers.
func NewUserHandlers(svc *follows.Service, logger *zerolog.Logger) *UserHandlers {
	return &UserHandlers{follows: svc, log: logger}
}

// SettingsRequest updates the caller's chat privacy.
type SettingsRequest struct {
	RestrictChat *bool `json:"restrictChat"`
}

func targetUID(c *gin.Context) (int64, error) {
	uid, err := strconv.ParseInt(c.Param("uid"), 10, 64)
	if err != nil || uid <= 0 {
		return 0, core.ErrInvalidData
	}
	return uid, nil
}

// Follow makes the caller follow another user.
// PUT /api/v3/users/:uid/follow
func (h *UserHandlers) Follow(c *gin.Context) {
	target, err := targetUID(c)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	if err := h.follows.Follow(c.Request.Context(), c.GetInt64(ContextKeyUID), target); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.Status(http.StatusOK)
}

// Unfollow removes the caller's follow.
// DELETE /api/v3/users/:uid/follow
func (h *UserHandlers) Unfollow(c *gin.Context) {
	target, err := targetUID(c)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	if err := h.follows.Unfollow(c.Request.Context(), c.GetInt64(ContextKeyUID), target); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.Status(http.StatusOK)
}

// UpdateSettings changes the caller's chat privacy settings.
// PUT /api/v3/users/settings
func (h *UserHandlers) UpdateSettings(c *gin.Context) {
	var req SettingsRequest
	if err := bindJSON(c, &req, core.ErrWrongParameterType); err != nil {
		writeError(c, h.log, err)
		return
	}
	if req.RestrictChat == nil {
		writeError(c, h.log, core.ErrInvalidData)
		return
	}
	if err := h.follows.SetRestrictChat(c.Request.Context(), c.GetInt64(ContextKeyUID), *req.RestrictChat); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.Status(http.StatusOK)
}
