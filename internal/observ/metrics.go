package observ

import (
	"net/http"
	"strconv"
	"time"

	"github.com/lalith-99/sitetrack/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's collectors on a private registry. All methods
// are safe on a nil *Metrics, which records nothing.
type Metrics struct {
	registry *prometheus.Registry

	transitions   *prometheus.CounterVec
	conflicts     prometheus.Counter
	decisions     *prometheus.CounterVec
	restorations  prometheus.Counter
	verifications *prometheus.CounterVec
	requests      *prometheus.CounterVec
	latency       *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sitetrack",
			Name:      "site_transitions_total",
			Help:      "Site status transitions, by from and to status.",
		}, []string{"from", "to"}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sitetrack",
			Name:      "assignment_conflicts_total",
			Help:      "Assignments that found the rep active elsewhere.",
		}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sitetrack",
			Name:      "decisions_total",
			Help:      "Answered decisions, by kind and choice.",
		}, []string{"kind", "choice"}),
		restorations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sitetrack",
			Name:      "restorations_total",
			Help:      "Previous sites reactivated for a relieved rep.",
		}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sitetrack",
			Name:      "session_verifications_total",
			Help:      "Background session verifications, by result.",
		}, []string{"result"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sitetrack",
			Name:      "http_requests_total",
			Help:      "HTTP requests, by route, method and status.",
		}, []string{"route", "method", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sitetrack",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
	m.registry.MustRegister(
		m.transitions, m.conflicts, m.decisions, m.restorations,
		m.verifications, m.requests, m.latency,
		prometheus.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Transition records a site moving from one status to another. An empty
// from means the site was just created.
func (m *Metrics) Transition(from, to models.SiteStatus) {
	if m == nil {
		return
	}
	f := string(from)
	if f == "" {
		f = "created"
	}
	m.transitions.WithLabelValues(f, string(to)).Inc()
}

func (m *Metrics) Conflict() {
	if m == nil {
		return
	}
	m.conflicts.Inc()
}

func (m *Metrics) Decision(kind, choice string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(kind, choice).Inc()
}

func (m *Metrics) Restoration() {
	if m == nil {
		return
	}
	m.restorations.Inc()
}

// Verification records a background session check: "ok", "revoked" or
// "unreachable".
func (m *Metrics) Verification(result string) {
	if m == nil {
		return
	}
	m.verifications.WithLabelValues(result).Inc()
}

func (m *Metrics) Request(route, method string, status int, took time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(route).Observe(took.Seconds())
}
