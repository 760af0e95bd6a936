package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// RemoteRequestLatency tracks the latency of calls to the remote service
	RemoteRequestLatency = Histogram(
		"cardio_remote_request_latency_seconds",
		"Latency of remote service requests in seconds",
		prometheus.DefBuckets,
		"endpoint", "method",
	)

	// RemoteRequestTotal counts remote calls by outcome; status is the HTTP
	// code or "transport_error"
	RemoteRequestTotal = Counter(
		"cardio_remote_requests_total",
		"Total number of remote service requests",
		"endpoint", "method", "status",
	)

	// AssessmentsTotal counts completed assessments by category
	AssessmentsTotal = Counter(
		"cardio_assessments_total",
		"Total number of completed risk assessments",
		"category",
	)

	// IntegrityWarningsTotal counts server payloads corrected locally
	IntegrityWarningsTotal = Counter(
		"cardio_integrity_warnings_total",
		"Total number of inconsistent server payloads corrected locally",
		"field",
	)

	// FetchOutcomeTotal counts history/stats reads by tag (ok, empty, failed)
	FetchOutcomeTotal = Counter(
		"cardio_fetch_outcomes_total",
		"Outcome of best-effort history and stats reads",
		"resource", "outcome",
	)

	// GuardDecisionsTotal counts route guard decisions
	GuardDecisionsTotal = Counter(
		"cardio_guard_decisions_total",
		"Route guard decisions for protected views",
		"decision",
	)

	// SessionEventsTotal counts session lifecycle events
	SessionEventsTotal = Counter(
		"cardio_session_events_total",
		"Session lifecycle events",
		"event",
	)

	// SessionAuthenticated is 1 while a session is present
	SessionAuthenticated = Gauge(
		"cardio_session_authenticated",
		"Whether the client currently holds an authenticated session",
	)
)

func Counter(name, help string, labelKeys ...string) *prometheus.CounterVec {
	return promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: name,
			Help: help,
		},
		labelKeys,
	)
}

func Inc(c *prometheus.CounterVec, labels prometheus.Labels, v float64) {
	c.With(labels).Add(v)
}

func Gauge(name, help string, labelKeys ...string) *prometheus.GaugeVec {
	return promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: name,
			Help: help,
		},
		labelKeys,
	)
}

func Set(g *prometheus.GaugeVec, labels prometheus.Labels, v float64) {
	g.With(labels).Set(v)
}

func Histogram(name, help string, buckets []float64, labelKeys ...string) *prometheus.HistogramVec {
	return promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    name,
			Help:    help,
			Buckets: buckets, // e.g. prometheus.DefBuckets
		},
		labelKeys,
	)
}

func Observe(h *prometheus.HistogramVec, labels prometheus.Labels, v float64) {
	h.With(labels).Observe(v)
}

// Handler exposes the registered metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Start serves /metrics on addr in the background. An empty addr disables it.
func Start(addr string, logger zerolog.Logger) {
	if addr == "" {
		return
	}
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", Handler())

		logger.Info().Str("addr", addr).Msg("Metrics server starting")
		if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics server error")
		}
	}()
}
