package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/sitetrack/internal/assign"
	"github.com/lalith-99/sitetrack/internal/geo"
	"github.com/lalith-99/sitetrack/internal/middleware"
	"github.com/lalith-99/sitetrack/internal/store"
	"go.uber.org/zap"
)

// SiteHandler serves sites and every lifecycle move on them.
//
// Why do some routes call the engine and others the store?
//   - Moves (assign, unassign, complete, correct, handover, delete) change
//     status and may need a decision first, so they go through the engine,
//     which asks before it writes.
//   - Field edits (title, address, notes, photo) can't break any status
//     rule, so they go straight to the store.
type SiteHandler struct {
	scope    ownerScope
	engine   *assign.Engine
	geocoder geo.Geocoder
	logger   *zap.Logger
}

func NewSiteHandler(scope ownerScope, engine *assign.Engine, geocoder geo.Geocoder, logger *zap.Logger) *SiteHandler {
	return &SiteHandler{scope: scope, engine: engine, geocoder: geocoder, logger: logger}
}

// updateSiteRequest only carries descriptive fields; status and rep change
// through the lifecycle routes.
type updateSiteRequest struct {
	Title      *string  `json:"title"`
	Address    *string  `json:"address"`
	Lat        *float64 `json:"lat"`
	Lng        *float64 `json:"lng"`
	Notes      *string  `json:"notes"`
	Photo      []byte   `json:"photo"`
	ClearPhoto bool     `json:"clear_photo"`
}

type repRequest struct {
	RepID uuid.UUID `json:"rep_id" binding:"required"`
}

type decisionRequest struct {
	Choice assign.Choice `json:"choice" binding:"required"`
}

// List handles GET /v1/sites
func (h *SiteHandler) List(c *gin.Context) {
	st, ok := h.scope.store(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, st.Sites())
}

// Get handles GET /v1/sites/:id
func (h *SiteHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id", "site")
	if !ok {
		return
	}
	st, ok := h.scope.store(c)
	if !ok {
		return
	}
	site, found := st.Site(id)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "site not found"})
		return
	}
	c.JSON(http.StatusOK, site)
}

// Create handles POST /v1/sites. A site without an address gets one by
// reverse geocoding its coordinates.
func (h *SiteHandler) Create(c *gin.Context) {
	// Step 1: Parse the body. Range checks on lat/lng happen in the store's
	// validator, so a bad coordinate is a 400 with the field named.
	var req store.SiteInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	st, ok := h.scope.store(c)
	if !ok {
		return
	}
	// Step 2: Fill in the address. A geocoder failure is not an error here;
	// AddressAt falls back to a placeholder the user can edit later.
	if strings.TrimSpace(req.Address) == "" && h.geocoder != nil {
		req.Address = geo.AddressAt(c.Request.Context(), h.geocoder, h.logger, req.Lat, req.Lng)
	}

	// Step 3: Create through the engine. With a rep who is already busy it
	// answers with a conflict decision and nothing is stored yet.
	out, err := h.engine.CreateSite(c.Request.Context(), st, req)
	if err != nil {
		writeError(c, h.logger, "create site", err)
		return
	}
	if out.Blocked() {
		writeOutcome(c, out)
		return
	}
	c.JSON(http.StatusCreated, out)
}

// Update handles PATCH /v1/sites/:id
func (h *SiteHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id", "site")
	if !ok {
		return
	}
	var req updateSiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	st, ok := h.scope.store(c)
	if !ok {
		return
	}
	site, err := st.UpdateSite(c.Request.Context(), id, store.SitePatch{
		Title:      req.Title,
		Address:    req.Address,
		Lat:        req.Lat,
		Lng:        req.Lng,
		Notes:      req.Notes,
		Photo:      req.Photo,
		ClearPhoto: req.ClearPhoto,
	})
	if err != nil {
		writeError(c, h.logger, "update site", err)
		return
	}
	c.JSON(http.StatusOK, site)
}

// Delete handles DELETE /v1/sites/:id. Deleting an ACTIVE site may come
// back with a restore decision for its rep.
func (h *SiteHandler) Delete(c *gin.Context) {
	h.siteMove(c, "delete site", func(st *store.Store, id uuid.UUID) (*assign.Outcome, error) {
		return h.engine.DeleteSite(c.Request.Context(), st, id)
	})
}

// Unassign handles POST /v1/sites/:id/unassign
func (h *SiteHandler) Unassign(c *gin.Context) {
	h.siteMove(c, "unassign site", func(st *store.Store, id uuid.UUID) (*assign.Outcome, error) {
		return h.engine.Unassign(c.Request.Context(), st, id)
	})
}

// Complete handles POST /v1/sites/:id/complete
func (h *SiteHandler) Complete(c *gin.Context) {
	h.siteMove(c, "complete site", func(st *store.Store, id uuid.UUID) (*assign.Outcome, error) {
		return h.engine.Complete(c.Request.Context(), st, id)
	})
}

// Assign handles POST /v1/sites/:id/assign
func (h *SiteHandler) Assign(c *gin.Context) {
	h.repMove(c, "assign representative", h.engine.Assign)
}

// Correct handles POST /v1/sites/:id/correct
func (h *SiteHandler) Correct(c *gin.Context) {
	h.repMove(c, "correct assignment", h.engine.Correct)
}

// Handover handles POST /v1/sites/:id/handover
func (h *SiteHandler) Handover(c *gin.Context) {
	h.repMove(c, "hand over site", h.engine.Handover)
}

func (h *SiteHandler) siteMove(c *gin.Context, action string, move func(*store.Store, uuid.UUID) (*assign.Outcome, error)) {
	id, ok := paramID(c, "id", "site")
	if !ok {
		return
	}
	st, ok := h.scope.store(c)
	if !ok {
		return
	}
	out, err := move(st, id)
	if err != nil {
		writeError(c, h.logger, action, err)
		return
	}
	writeOutcome(c, out)
}

func (h *SiteHandler) repMove(c *gin.Context, action string, move func(context.Context, assign.Store, uuid.UUID, uuid.UUID) (*assign.Outcome, error)) {
	id, ok := paramID(c, "id", "site")
	if !ok {
		return
	}
	var req repRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	st, ok := h.scope.store(c)
	if !ok {
		return
	}
	out, err := move(c.Request.Context(), st, id, req.RepID)
	if err != nil {
		writeError(c, h.logger, action, err)
		return
	}
	writeOutcome(c, out)
}

// GetDecision handles GET /v1/decisions/:token
func (h *SiteHandler) GetDecision(c *gin.Context) {
	d, ok := h.engine.Pending(middleware.GetOwnerID(c), c.Param("token"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "decision not found or expired"})
		return
	}
	c.JSON(http.StatusOK, d)
}

// Resolve handles POST /v1/decisions/:token with the caller's choice.
func (h *SiteHandler) Resolve(c *gin.Context) {
	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	st, ok := h.scope.store(c)
	if !ok {
		return
	}
	out, err := h.engine.Resume(c.Request.Context(), st, c.Param("token"), req.Choice)
	if err != nil {
		writeError(c, h.logger, "resolve decision", err)
		return
	}
	writeOutcome(c, out)
}
