// Package trajectory rebuilds the path a representative has taken through
// their sites from the activity logs.
package trajectory

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/sitetrack/internal/models"
)

// Point is one stop on the drawn path.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Entry is one visit. Index is its 1-based position on the ascending path,
// whichever list it appears in, so list numbering and marker numbering
// agree.
type Entry struct {
	Index     int               `json:"index"`
	LogID     uuid.UUID         `json:"log_id"`
	SiteID    uuid.UUID         `json:"site_id"`
	Title     string            `json:"title"`
	Address   string            `json:"address"`
	Notes     string            `json:"notes"`
	Lat       float64           `json:"lat"`
	Lng       float64           `json:"lng"`
	Status    models.SiteStatus `json:"status"`
	Date      time.Time         `json:"date"`
	IsCurrent bool              `json:"is_current"`
}

type Trajectory struct {
	RepID uuid.UUID `json:"rep_id"`

	// Path is oldest first, for drawing and numbered markers.
	Path []Point `json:"path"`

	// Ascending holds the entries in path order; List holds the same
	// entries newest first, for display.
	Ascending []Entry `json:"-"`
	List      []Entry `json:"list"`

	// Active is the site the rep is ACTIVE at, if any, even when it has
	// no log (e.g. the log was pruned).
	Active *models.Site `json:"active,omitempty"`
}

// SiteLookup resolves a site id against the current state.
type SiteLookup func(id uuid.UUID) (*models.Site, bool)

// Build joins repID's logs to their sites. Logs whose site no longer exists
// are dropped. logs need not be sorted; ties on date keep the given order.
func Build(repID uuid.UUID, logs []models.ActivityLog, lookup SiteLookup) *Trajectory {
	ordered := make([]models.ActivityLog, 0, len(logs))
	for _, l := range logs {
		if l.RepID == repID {
			ordered = append(ordered, l)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Date.Before(ordered[j].Date) })

	t := &Trajectory{
		RepID:     repID,
		Path:      make([]Point, 0, len(ordered)),
		Ascending: make([]Entry, 0, len(ordered)),
	}
	for _, l := range ordered {
		site, ok := lookup(l.SiteID)
		if !ok {
			continue
		}
		current := site.AssignedTo(repID)
		if current && t.Active == nil {
			t.Active = site
		}
		t.Ascending = append(t.Ascending, Entry{
			Index:     len(t.Ascending) + 1,
			LogID:     l.ID,
			SiteID:    site.ID,
			Title:     site.Title,
			Address:   site.Address,
			Notes:     site.Notes,
			Lat:       site.Lat,
			Lng:       site.Lng,
			Status:    site.Status,
			Date:      l.Date,
			IsCurrent: current,
		})
		t.Path = append(t.Path, Point{Lat: site.Lat, Lng: site.Lng})
	}

	t.List = make([]Entry, len(t.Ascending))
	for i, e := range t.Ascending {
		t.List[len(t.Ascending)-1-i] = e
	}
	return t
}

// WithActive records the rep's active site when it isn't already known
// from the logs.
func (t *Trajectory) WithActive(site *models.Site) *Trajectory {
	if t.Active == nil && site != nil && site.AssignedTo(t.RepID) {
		t.Active = site
	}
	return t
}

// Box is a lat/lng bounding box.
type Box struct {
	MinLat float64 `json:"min_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLat float64 `json:"max_lat"`
	MaxLng float64 `json:"max_lng"`
}

// Bounds covers every path point and the active site. ok is false when
// there is nothing to frame.
func (t *Trajectory) Bounds() (Box, bool) {
	pts := append([]Point(nil), t.Path...)
	if t.Active != nil {
		pts = append(pts, Point{Lat: t.Active.Lat, Lng: t.Active.Lng})
	}
	if len(pts) == 0 {
		return Box{}, false
	}
	b := Box{MinLat: pts[0].Lat, MaxLat: pts[0].Lat, MinLng: pts[0].Lng, MaxLng: pts[0].Lng}
	for _, p := range pts[1:] {
		b.MinLat = min(b.MinLat, p.Lat)
		b.MaxLat = max(b.MaxLat, p.Lat)
		b.MinLng = min(b.MinLng, p.Lng)
		b.MaxLng = max(b.MaxLng, p.Lng)
	}
	return b, true
}
