package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LogHandler is the admin view of the activity history.
type LogHandler struct {
	scope  ownerScope
	logger *zap.Logger
}

func NewLogHandler(scope ownerScope, logger *zap.Logger) *LogHandler {
	return &LogHandler{scope: scope, logger: logger}
}

// List handles GET /v1/logs, newest first.
func (h *LogHandler) List(c *gin.Context) {
	st, ok := h.scope.store(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, st.Logs())
}

// Delete handles DELETE /v1/logs/:id. Deleting an unknown id succeeds.
func (h *LogHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id", "log")
	if !ok {
		return
	}
	st, ok := h.scope.store(c)
	if !ok {
		return
	}
	if err := st.DeleteLog(c.Request.Context(), id); err != nil {
		writeError(c, h.logger, "delete log", err)
		return
	}
	c.Status(http.StatusNoContent)
}
