package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/sitetrack/internal/middleware"
	"github.com/lalith-99/sitetrack/internal/session"
	"go.uber.org/zap"
)

// SessionHandler exposes the caller's own session.
type SessionHandler struct {
	sessions *session.Manager
	logger   *zap.Logger
}

func NewSessionHandler(sessions *session.Manager, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, logger: logger}
}

// Get handles GET /v1/session. A fresh process answers from the profile
// cache with a provisional session and confirms it in the background.
func (h *SessionHandler) Get(c *gin.Context) {
	s, err := h.sessions.Restore(c.Request.Context(), middleware.GetActorID(c))
	if err != nil {
		writeError(c, h.logger, "restore session", err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// Logout handles POST /v1/session/logout
func (h *SessionHandler) Logout(c *gin.Context) {
	h.sessions.Logout(c.Request.Context(), middleware.GetActorID(c))
	c.Status(http.StatusNoContent)
}
