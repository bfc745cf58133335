package trajectory

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/sitetrack/internal/geo"
	"github.com/lalith-99/sitetrack/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hour int) time.Time {
	return time.Date(2026, 3, 1, hour, 0, 0, 0, time.UTC)
}

func lookupOf(sites ...*models.Site) SiteLookup {
	byID := map[uuid.UUID]*models.Site{}
	for _, s := range sites {
		byID[s.ID] = s
	}
	return func(id uuid.UUID) (*models.Site, bool) {
		s, ok := byID[id]
		return s, ok
	}
}

func TestBuildNumbersListByPathOrder(t *testing.T) {
	rep := uuid.New()
	a := &models.Site{ID: uuid.New(), Title: "A", Lat: 1, Lng: 1, Status: models.StatusComplete}
	b := &models.Site{ID: uuid.New(), Title: "B", Lat: 2, Lng: 2, Status: models.StatusComplete}
	c := &models.Site{ID: uuid.New(), Title: "C", Lat: 3, Lng: 3, Status: models.StatusActive, AssignedRepID: &rep}

	logs := []models.ActivityLog{
		{ID: uuid.New(), RepID: rep, SiteID: b.ID, Date: at(10)},
		{ID: uuid.New(), RepID: rep, SiteID: a.ID, Date: at(9)},
		{ID: uuid.New(), RepID: rep, SiteID: c.ID, Date: at(11)},
	}

	tr := Build(rep, logs, lookupOf(a, b, c))

	require.Len(t, tr.Ascending, 3)
	assert.Equal(t, []string{"A", "B", "C"}, titles(tr.Ascending))
	assert.Equal(t, []int{1, 2, 3}, indices(tr.Ascending))

	assert.Equal(t, []string{"C", "B", "A"}, titles(tr.List))
	assert.Equal(t, []int{3, 2, 1}, indices(tr.List))

	assert.Equal(t, []Point{{1, 1}, {2, 2}, {3, 3}}, tr.Path)
	assert.True(t, tr.List[0].IsCurrent)
	assert.False(t, tr.List[1].IsCurrent)
	require.NotNil(t, tr.Active)
	assert.Equal(t, c.ID, tr.Active.ID)
}

func TestBuildDropsOrphansAndOtherReps(t *testing.T) {
	rep := uuid.New()
	a := &models.Site{ID: uuid.New(), Title: "A"}
	logs := []models.ActivityLog{
		{RepID: rep, SiteID: uuid.New(), Date: at(8)},
		{RepID: rep, SiteID: a.ID, Date: at(9)},
		{RepID: uuid.New(), SiteID: a.ID, Date: at(10)},
	}

	tr := Build(rep, logs, lookupOf(a))
	require.Len(t, tr.List, 1)
	assert.Equal(t, 1, tr.List[0].Index)
	assert.Equal(t, "A", tr.List[0].Title)
}

func TestCurrentRequiresSameRep(t *testing.T) {
	rep, other := uuid.New(), uuid.New()
	a := &models.Site{ID: uuid.New(), Status: models.StatusActive, AssignedRepID: &other}
	tr := Build(rep, []models.ActivityLog{{RepID: rep, SiteID: a.ID, Date: at(9)}}, lookupOf(a))
	assert.False(t, tr.List[0].IsCurrent)
	assert.Nil(t, tr.Active)
}

func TestBoundsIncludeActiveSite(t *testing.T) {
	rep := uuid.New()
	a := &models.Site{ID: uuid.New(), Lat: 37.5, Lng: 127.0}
	active := &models.Site{ID: uuid.New(), Lat: 35.1, Lng: 129.0, Status: models.StatusActive, AssignedRepID: &rep}

	tr := Build(rep, []models.ActivityLog{{RepID: rep, SiteID: a.ID, Date: at(9)}}, lookupOf(a)).WithActive(active)
	box, ok := tr.Bounds()
	require.True(t, ok)
	assert.Equal(t, Box{MinLat: 35.1, MinLng: 127.0, MaxLat: 37.5, MaxLng: 129.0}, box)

	_, ok = Build(rep, nil, lookupOf()).Bounds()
	assert.False(t, ok)
}

func titles(es []Entry) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = e.Title
	}
	return out
}

func indices(es []Entry) []int {
	out := make([]int, len(es))
	for i, e := range es {
		out[i] = e.Index
	}
	return out
}

func TestRenderRecordsPlan(t *testing.T) {
	rep := uuid.New()
	a := &models.Site{ID: uuid.New(), Title: "A", Lat: 1, Lng: 1, Status: models.StatusComplete}
	b := &models.Site{ID: uuid.New(), Title: "B", Lat: 2, Lng: 2, Status: models.StatusActive, AssignedRepID: &rep}
	logs := []models.ActivityLog{
		{RepID: rep, SiteID: a.ID, Date: at(9)},
		{RepID: rep, SiteID: b.ID, Date: at(10)},
	}

	var rec geo.Recorder
	Build(rep, logs, lookupOf(a, b)).Render(&rec)

	cmds := rec.Commands()
	require.Len(t, cmds, 5)
	assert.Equal(t, "clear_path", cmds[0].Op)
	assert.Equal(t, "1. A", cmds[1].Content)
	assert.Equal(t, geo.StyleNumbered, cmds[1].Style)
	assert.Equal(t, "2. B", cmds[2].Content)
	assert.Equal(t, geo.StyleActive, cmds[2].Style)
	assert.Equal(t, "path", cmds[3].Op)
	assert.Equal(t, "fly_to", cmds[4].Op)
	assert.Equal(t, geo.LatLng{Lat: 2, Lng: 2}, *cmds[4].At)
}

// markerMap keeps the latest marker per key, the way a map widget does.
type markerMap struct {
	geo.Recorder
	sites map[uuid.UUID]string
	stops map[int]string
}

func (m *markerMap) PlaceOrUpdateMarker(siteID uuid.UUID, at geo.LatLng, content string, style geo.Style) {
	m.sites[siteID] = content
}

func (m *markerMap) PlacePathMarker(index int, at geo.LatLng, content string, style geo.Style) {
	m.stops[index] = content
}

func TestRenderRevisitKeepsEveryStop(t *testing.T) {
	rep := uuid.New()
	a := &models.Site{ID: uuid.New(), Title: "A", Lat: 1, Lng: 1, Status: models.StatusComplete}
	b := &models.Site{ID: uuid.New(), Title: "B", Lat: 2, Lng: 2, Status: models.StatusComplete}
	logs := []models.ActivityLog{
		{ID: uuid.New(), RepID: rep, SiteID: a.ID, Date: at(9)},
		{ID: uuid.New(), RepID: rep, SiteID: b.ID, Date: at(10)},
		{ID: uuid.New(), RepID: rep, SiteID: a.ID, Date: at(11)},
	}

	m := &markerMap{sites: map[uuid.UUID]string{}, stops: map[int]string{}}
	tr := Build(rep, logs, lookupOf(a, b))
	tr.Render(m)

	require.Len(t, tr.List, 3)
	assert.Equal(t, map[int]string{1: "1. A", 2: "2. B", 3: "3. A"}, m.stops)
	assert.Empty(t, m.sites, "path markers leave site markers alone")
}
