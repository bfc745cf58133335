// Package geo holds the map capability: the calls a map renderer accepts
// and the geocoding used when sites are placed and searched.
package geo

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Style hints how a marker is drawn.
type Style string

const (
	StyleNew      Style = "new"
	StyleActive   Style = "active"
	StyleComplete Style = "complete"
	StyleNumbered Style = "numbered"
)

// LatLng is a coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Map is what a renderer has to support. Implementations live on the
// client side; the server only ever drives a Recorder.
//
// Site markers and path markers are separate layers. A site has at most
// one site marker, keyed by its id. Path markers are keyed by their stop
// number, so a site visited twice gets two of them, and ClearPath removes
// them together with the path line without touching site markers.
type Map interface {
	PlaceOrUpdateMarker(siteID uuid.UUID, at LatLng, content string, style Style)
	RemoveMarker(siteID uuid.UUID)
	PlacePathMarker(index int, at LatLng, content string, style Style)
	DrawPath(points []LatLng)
	ClearPath()
	FlyTo(at LatLng, zoom int)
}

// Place is one geocoding hit.
type Place struct {
	Name    string  `json:"name"`
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) (string, error)
	Geocode(ctx context.Context, query string) ([]Place, error)
}

// Command is one recorded map call.
type Command struct {
	Op      string     `json:"op"`
	SiteID  *uuid.UUID `json:"site_id,omitempty"`
	At      *LatLng    `json:"at,omitempty"`
	Content string     `json:"content,omitempty"`
	Style   Style      `json:"style,omitempty"`
	Index   int        `json:"index,omitempty"`
	Points  []LatLng   `json:"points,omitempty"`
	Zoom    int        `json:"zoom,omitempty"`
}

// Recorder is a Map that remembers every call in order, so a render plan
// can be shipped to a client as data.
type Recorder struct {
	mu   sync.Mutex
	cmds []Command
}

var _ Map = (*Recorder)(nil)

func (r *Recorder) PlaceOrUpdateMarker(siteID uuid.UUID, at LatLng, content string, style Style) {
	r.add(Command{Op: "marker", SiteID: &siteID, At: &at, Content: content, Style: style})
}

func (r *Recorder) RemoveMarker(siteID uuid.UUID) {
	r.add(Command{Op: "remove_marker", SiteID: &siteID})
}

func (r *Recorder) PlacePathMarker(index int, at LatLng, content string, style Style) {
	r.add(Command{Op: "path_marker", Index: index, At: &at, Content: content, Style: style})
}

func (r *Recorder) ClearPath() {
	r.add(Command{Op: "clear_path"})
}

func (r *Recorder) DrawPath(points []LatLng) {
	r.add(Command{Op: "path", Points: append([]LatLng(nil), points...)})
}

func (r *Recorder) FlyTo(at LatLng, zoom int) {
	r.add(Command{Op: "fly_to", At: &at, Zoom: zoom})
}

func (r *Recorder) add(c Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cmds = append(r.cmds, c)
}

// Commands returns a copy of what has been recorded.
func (r *Recorder) Commands() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Command(nil), r.cmds...)
}
