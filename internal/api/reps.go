package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/sitetrack/internal/geo"
	"github.com/lalith-99/sitetrack/internal/store"
	"github.com/lalith-99/sitetrack/internal/trajectory"
	"go.uber.org/zap"
)

// RepHandler serves representatives and their history.
type RepHandler struct {
	scope  ownerScope
	logger *zap.Logger
}

func NewRepHandler(scope ownerScope, logger *zap.Logger) *RepHandler {
	return &RepHandler{scope: scope, logger: logger}
}

type createRepRequest struct {
	Name  string `json:"name" binding:"required"`
	Phone string `json:"phone"`
}

// updateRepRequest: absent fields are left alone, an empty phone clears it.
type updateRepRequest struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
}

type importRepsRequest struct {
	Entries []store.ImportEntry `json:"entries" binding:"required,dive"`
}

// List handles GET /v1/reps
func (h *RepHandler) List(c *gin.Context) {
	st, ok := h.scope.store(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, st.Representatives())
}

// Create handles POST /v1/reps
func (h *RepHandler) Create(c *gin.Context) {
	var req createRepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	st, ok := h.scope.store(c)
	if !ok {
		return
	}
	rep, err := st.AddRepresentative(c.Request.Context(), req.Name, req.Phone)
	if err != nil {
		writeError(c, h.logger, "create representative", err)
		return
	}
	c.JSON(http.StatusCreated, rep)
}

// Update handles PATCH /v1/reps/:id
func (h *RepHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id", "representative")
	if !ok {
		return
	}
	var req updateRepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	st, ok := h.scope.store(c)
	if !ok {
		return
	}
	rep, err := st.UpdateRepresentative(c.Request.Context(), id, store.RepresentativePatch{Name: req.Name, Phone: req.Phone})
	if err != nil {
		writeError(c, h.logger, "update representative", err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

// Delete handles DELETE /v1/reps/:id. The sites the rep held come back
// in the response, now NEW.
func (h *RepHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id", "representative")
	if !ok {
		return
	}
	st, ok := h.scope.store(c)
	if !ok {
		return
	}
	released, err := st.DeleteRepresentative(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, "delete representative", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"released_sites": released})
}

// Import handles POST /v1/reps/import
func (h *RepHandler) Import(c *gin.Context) {
	var req importRepsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	st, ok := h.scope.store(c)
	if !ok {
		return
	}
	res, err := st.ImportRepresentatives(c.Request.Context(), req.Entries)
	if err != nil {
		writeError(c, h.logger, "import representatives", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Logs handles GET /v1/reps/:id/logs, oldest first.
func (h *RepHandler) Logs(c *gin.Context) {
	id, ok := paramID(c, "id", "representative")
	if !ok {
		return
	}
	st, ok := h.scope.store(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, st.LogsForRepresentative(id))
}

type trajectoryResponse struct {
	*trajectory.Trajectory
	Bounds *trajectory.Box `json:"bounds,omitempty"`
	Render []geo.Command   `json:"render"`
}

// Trajectory handles GET /v1/reps/:id/trajectory. It works for deleted
// reps too, as long as their logs remain.
func (h *RepHandler) Trajectory(c *gin.Context) {
	id, ok := paramID(c, "id", "representative")
	if !ok {
		return
	}
	st, ok := h.scope.store(c)
	if !ok {
		return
	}

	tr := trajectory.Build(id, st.LogsForRepresentative(id), st.Site).
		WithActive(st.ActiveSiteForRepresentative(id))

	var rec geo.Recorder
	tr.Render(&rec)

	resp := trajectoryResponse{Trajectory: tr, Render: rec.Commands()}
	if box, ok := tr.Bounds(); ok {
		resp.Bounds = &box
	}
	c.JSON(http.StatusOK, resp)
}
