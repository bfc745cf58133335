package trajectory

import (
	"strconv"

	"github.com/google/uuid"
	"github.com/lalith-99/sitetrack/internal/geo"
)

// DefaultZoom is the zoom used when the trajectory has a single stop.
const DefaultZoom = 14

// Render draws the trajectory onto the path layer: any earlier path is
// cleared, then one numbered marker per stop (the current stop styled
// active) and the line through them in ascending order. An active site
// with no stop in the list gets a site marker. Last comes a fly-to onto
// the active site or the latest stop.
func (t *Trajectory) Render(m geo.Map) {
	m.ClearPath()
	for _, e := range t.Ascending {
		style := geo.StyleNumbered
		if e.IsCurrent {
			style = geo.StyleActive
		}
		m.PlacePathMarker(e.Index, geo.LatLng{Lat: e.Lat, Lng: e.Lng}, strconv.Itoa(e.Index)+". "+e.Title, style)
	}
	if t.Active != nil && !t.hasSite(t.Active.ID) {
		m.PlaceOrUpdateMarker(t.Active.ID, geo.LatLng{Lat: t.Active.Lat, Lng: t.Active.Lng}, t.Active.Title, geo.StyleActive)
	}

	if len(t.Path) > 1 {
		points := make([]geo.LatLng, len(t.Path))
		for i, p := range t.Path {
			points[i] = geo.LatLng{Lat: p.Lat, Lng: p.Lng}
		}
		m.DrawPath(points)
	}

	switch {
	case t.Active != nil:
		m.FlyTo(geo.LatLng{Lat: t.Active.Lat, Lng: t.Active.Lng}, DefaultZoom)
	case len(t.Ascending) > 0:
		last := t.Ascending[len(t.Ascending)-1]
		m.FlyTo(geo.LatLng{Lat: last.Lat, Lng: last.Lng}, DefaultZoom)
	}
}

func (t *Trajectory) hasSite(id uuid.UUID) bool {
	for _, e := range t.Ascending {
		if e.SiteID == id {
			return true
		}
	}
	return false
}
