package observ

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lalith-99/sitetrack/internal/models"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Transition(models.StatusNew, models.StatusActive)
		m.Conflict()
		m.Decision("conflict", "proceed")
		m.Restoration()
		m.Verification("ok")
		m.Request("/health", http.MethodGet, 200, time.Millisecond)
	})
}

func TestTransitionsAreCounted(t *testing.T) {
	m := NewMetrics()
	m.Transition("", models.StatusNew)
	m.Transition(models.StatusNew, models.StatusActive)
	m.Transition(models.StatusNew, models.StatusActive)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("created", "new")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.transitions.WithLabelValues("new", "active")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := NewMetrics()
	m.Restoration()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sitetrack_restorations_total 1")
}
