package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestReverseGeocode(t *testing.T) {
	var gotPath, gotLat, gotLon, gotLang string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotLat = r.URL.Query().Get("lat")
		gotLon = r.URL.Query().Get("lon")
		gotLang = r.Header.Get("Accept-Language")
		_, _ = w.Write([]byte(`{"display_name":"Seoul City Hall"}`))
	}))
	defer srv.Close()

	g := NewHTTPGeocoder(WithBaseURL(srv.URL), WithLanguage("ko"))
	addr, err := g.ReverseGeocode(context.Background(), 37.5665, 126.978)
	require.NoError(t, err)
	assert.Equal(t, "Seoul City Hall", addr)
	assert.Equal(t, "/reverse", gotPath)
	assert.Equal(t, "37.5665", gotLat)
	assert.Equal(t, "126.978", gotLon)
	assert.Equal(t, "ko", gotLang)
}

func TestGeocodeParsesPlaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "gangnam", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`[
			{"name":"Gangnam Station","display_name":"Gangnam Station, Seoul","lat":"37.4979","lon":"127.0276"},
			{"name":"broken","display_name":"x","lat":"nope","lon":"1"}
		]`))
	}))
	defer srv.Close()

	places, err := NewHTTPGeocoder(WithBaseURL(srv.URL)).Geocode(context.Background(), " gangnam ")
	require.NoError(t, err)
	require.Len(t, places, 1)
	assert.Equal(t, Place{Name: "Gangnam Station", Address: "Gangnam Station, Seoul", Lat: 37.4979, Lng: 127.0276}, places[0])
}

func TestGeocodeRejectsEmptyQuery(t *testing.T) {
	_, err := NewHTTPGeocoder().Geocode(context.Background(), "  ")
	assert.ErrorIs(t, err, errEmptyQuery)
}

func TestAddressAtFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	g := NewHTTPGeocoder(WithBaseURL(srv.URL))
	_, err := g.ReverseGeocode(context.Background(), 1, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")

	assert.Equal(t, PlaceholderAddress, AddressAt(context.Background(), g, zap.NewNop(), 1, 2))
	assert.Equal(t, PlaceholderAddress, AddressAt(context.Background(), nil, zap.NewNop(), 1, 2))
}

func TestRecorderKeepsOrder(t *testing.T) {
	var r Recorder
	id := uuid.New()
	r.PlaceOrUpdateMarker(id, LatLng{1, 2}, "A", StyleActive)
	r.DrawPath([]LatLng{{1, 2}, {3, 4}})
	r.FlyTo(LatLng{1, 2}, 14)
	r.RemoveMarker(id)
	r.PlacePathMarker(2, LatLng{3, 4}, "2. B", StyleNumbered)
	r.ClearPath()

	cmds := r.Commands()
	require.Len(t, cmds, 6)
	ops := make([]string, len(cmds))
	for i, c := range cmds {
		ops[i] = c.Op
	}
	assert.Equal(t, []string{"marker", "path", "fly_to", "remove_marker", "path_marker", "clear_path"}, ops)
	assert.Equal(t, id, *cmds[0].SiteID)
	assert.Len(t, cmds[1].Points, 2)
	assert.Equal(t, 14, cmds[2].Zoom)
	assert.Equal(t, 2, cmds[4].Index)
	assert.Nil(t, cmds[4].SiteID)
}
