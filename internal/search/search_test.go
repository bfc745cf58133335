package search

import (
	"context"
	"errors"
	"testing"

	"github.com/lalith-99/sitetrack/internal/geo"
	"github.com/lalith-99/sitetrack/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixedSource struct {
	reps  []models.Representative
	sites []models.Site
}

func (f fixedSource) Representatives() []models.Representative { return f.reps }
func (f fixedSource) Sites() []models.Site                     { return f.sites }

type stubGeocoder struct {
	places []geo.Place
	err    error
}

func (s stubGeocoder) ReverseGeocode(context.Context, float64, float64) (string, error) {
	return "", nil
}

func (s stubGeocoder) Geocode(context.Context, string) ([]geo.Place, error) {
	return s.places, s.err
}

var src = fixedSource{
	reps: []models.Representative{
		{Name: "Kim Minsu", Phone: "010-1234-5678"},
		{Name: "Lee Jiyoung", Phone: ""},
	},
	sites: []models.Site{
		{Title: "Gangnam Tower", Address: "Teheran-ro 152"},
		{Title: "Pangyo Lab", Address: "Gangnam-adjacent road"},
		{Title: "Busan Port", Address: "Jung-gu"},
	},
}

func TestSearchGroupsMatches(t *testing.T) {
	s := New(nil, zap.NewNop())

	res := s.Search(context.Background(), src, "gangnam")
	require.Len(t, res.Sites, 2)
	assert.Equal(t, "Gangnam Tower", res.Sites[0].Title)
	assert.Equal(t, "Pangyo Lab", res.Sites[1].Title)
	assert.Empty(t, res.Reps)
	assert.Empty(t, res.Places)

	res = s.Search(context.Background(), src, "KIM")
	require.Len(t, res.Reps, 1)
	assert.Equal(t, "Kim Minsu", res.Reps[0].Name)
}

func TestSearchMatchesPhoneDigits(t *testing.T) {
	res := New(nil, zap.NewNop()).Search(context.Background(), src, "1234 5678")
	require.Len(t, res.Reps, 1)
	assert.Equal(t, "Kim Minsu", res.Reps[0].Name)
}

func TestSearchEmptyQuery(t *testing.T) {
	res := New(stubGeocoder{places: []geo.Place{{Name: "x"}}}, zap.NewNop()).Search(context.Background(), src, "   ")
	assert.True(t, res.Empty())
}

func TestSearchAppendsPlaces(t *testing.T) {
	g := stubGeocoder{places: []geo.Place{{Name: "Busan Station", Lat: 35.1, Lng: 129.0}}}
	res := New(g, zap.NewNop()).Search(context.Background(), src, "busan")
	assert.Len(t, res.Sites, 1)
	require.Len(t, res.Places, 1)
	assert.Equal(t, "Busan Station", res.Places[0].Name)
}

func TestSearchIgnoresGeocoderFailure(t *testing.T) {
	g := stubGeocoder{err: errors.New("unreachable")}
	res := New(g, zap.NewNop()).Search(context.Background(), src, "busan")
	assert.Len(t, res.Sites, 1)
	assert.Empty(t, res.Places)
	assert.False(t, res.Empty())
}
