// Package search answers the global search box: sites and reps from the
// owner's store, plus places from the geocoder when one is configured.
package search

import (
	"context"
	"strings"
	"time"

	"github.com/lalith-99/sitetrack/internal/geo"
	"github.com/lalith-99/sitetrack/internal/models"
	"go.uber.org/zap"
)

// Source is what search reads from; store.Store satisfies it.
type Source interface {
	Representatives() []models.Representative
	Sites() []models.Site
}

type Result struct {
	Query  string                  `json:"query"`
	Sites  []models.Site           `json:"sites"`
	Reps   []models.Representative `json:"reps"`
	Places []geo.Place             `json:"places"`
}

// Empty reports whether nothing matched in any group.
func (r *Result) Empty() bool {
	return len(r.Sites)+len(r.Reps)+len(r.Places) == 0
}

type Searcher struct {
	geocoder geo.Geocoder
	timeout  time.Duration
	logger   *zap.Logger
}

// New returns a Searcher. geocoder may be nil, in which case no places are
// ever returned.
func New(geocoder geo.Geocoder, logger *zap.Logger) *Searcher {
	return &Searcher{geocoder: geocoder, timeout: 5 * time.Second, logger: logger}
}

// Search matches query as a case-insensitive substring of site titles and
// addresses and rep names. Rep phones match on digits, so "1234 5678"
// finds 010-1234-5678. An empty query matches nothing. A geocoder failure
// only drops the places group.
func (s *Searcher) Search(ctx context.Context, src Source, query string) *Result {
	query = strings.TrimSpace(query)
	res := &Result{
		Query:  query,
		Sites:  []models.Site{},
		Reps:   []models.Representative{},
		Places: []geo.Place{},
	}
	if query == "" {
		return res
	}

	needle := strings.ToLower(query)
	digits := digitsOf(query)

	for _, r := range src.Representatives() {
		if contains(r.Name, needle) || (digits != "" && strings.Contains(digitsOf(r.Phone), digits)) {
			res.Reps = append(res.Reps, r)
		}
	}
	for _, site := range src.Sites() {
		if contains(site.Title, needle) || contains(site.Address, needle) {
			res.Sites = append(res.Sites, site)
		}
	}

	if s.geocoder != nil {
		gctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		places, err := s.geocoder.Geocode(gctx, query)
		if err != nil {
			s.logger.Warn("place lookup failed", zap.String("query", query), zap.Error(err))
		} else {
			res.Places = places
		}
	}
	return res
}

func contains(haystack, lowerNeedle string) bool {
	return strings.Contains(strings.ToLower(haystack), lowerNeedle)
}

func digitsOf(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
