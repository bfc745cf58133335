package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/sitetrack/internal/geo"
	"github.com/lalith-99/sitetrack/internal/search"
	"go.uber.org/zap"
)

// SearchHandler serves the search box and the geocoding helpers.
type SearchHandler struct {
	scope    ownerScope
	searcher *search.Searcher
	geocoder geo.Geocoder
	logger   *zap.Logger
}

func NewSearchHandler(scope ownerScope, searcher *search.Searcher, geocoder geo.Geocoder, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{scope: scope, searcher: searcher, geocoder: geocoder, logger: logger}
}

// Search handles GET /v1/search?q=
func (h *SearchHandler) Search(c *gin.Context) {
	st, ok := h.scope.store(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.searcher.Search(c.Request.Context(), st, c.Query("q")))
}

// Reverse handles GET /v1/geocode/reverse?lat=&lng=. It always answers
// with an address, the placeholder when lookup fails.
func (h *SearchHandler) Reverse(c *gin.Context) {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil || lat < -90 || lat > 90 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lat"})
		return
	}
	lng, err := strconv.ParseFloat(c.Query("lng"), 64)
	if err != nil || lng < -180 || lng > 180 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lng"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"lat":     lat,
		"lng":     lng,
		"address": geo.AddressAt(c.Request.Context(), h.geocoder, h.logger, lat, lng),
	})
}

// Geocode handles GET /v1/geocode?q=
func (h *SearchHandler) Geocode(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}
	if h.geocoder == nil {
		c.JSON(http.StatusOK, []geo.Place{})
		return
	}
	places, err := h.geocoder.Geocode(c.Request.Context(), q)
	if err != nil {
		h.logger.Warn("geocode failed", zap.String("query", q), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "geocoder unavailable"})
		return
	}
	c.JSON(http.StatusOK, places)
}
