package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the injection pipeline.
// Every Record method is nil-safe so components can run without metrics.
type Metrics struct {
	// Control API metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Matcher metrics
	MatchQueries  *prometheus.CounterVec
	MatchDuration prometheus.Histogram

	// Injection metrics
	Scripts  *prometheus.CounterVec
	Batches  *prometheus.CounterVec
	Contexts prometheus.Gauge

	// Bypass metrics
	Responses      *prometheus.CounterVec
	HeaderRewrites *prometheus.CounterVec
	Permissions    *prometheus.CounterVec

	// Event stream metrics
	StreamClients prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := NewMetricsWith(reg)
	m.registry = reg
	return m
}

// NewMetricsWith registers the collectors on reg.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shell_http_requests_total",
				Help: "Total number of control API requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shell_http_request_duration_seconds",
				Help:    "Control API request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"method", "path"},
		),

		MatchQueries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shell_match_queries_total",
				Help: "Matcher queries by outcome",
			},
			[]string{"outcome"},
		),
		MatchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "shell_match_duration_seconds",
				Help:    "Matcher query latency in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
		),

		Scripts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shell_scripts_total",
				Help: "Script delivery transitions by state",
			},
			[]string{"state"},
		),
		Batches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shell_batches_total",
				Help: "Executable batches by outcome",
			},
			[]string{"outcome"},
		),
		Contexts: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "shell_contexts_active",
				Help: "Navigable contexts currently tracked",
			},
		),

		Responses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shell_bypass_responses_total",
				Help: "Responses seen by the bypass engine by decision",
			},
			[]string{"decision"},
		),
		HeaderRewrites: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shell_bypass_header_rewrites_total",
				Help: "Header rewrites applied by class",
			},
			[]string{"class"},
		),
		Permissions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shell_bypass_permissions_total",
				Help: "Permission decisions by outcome",
			},
			[]string{"decision"},
		),

		StreamClients: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "shell_event_stream_clients",
				Help: "Connected delivery event stream clients",
			},
		),
	}
}

// Gatherer returns the registry created by NewMetrics, or the default gatherer.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil || m.registry == nil {
		return prometheus.DefaultGatherer
	}
	return m.registry
}

// RecordHTTPRequest records a control API request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordMatch records one matcher query
func (m *Metrics) RecordMatch(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.MatchQueries.WithLabelValues(outcome).Inc()
	if duration > 0 {
		m.MatchDuration.Observe(duration.Seconds())
	}
}

// RecordScripts adds n scripts that moved into state
func (m *Metrics) RecordScripts(state string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Scripts.WithLabelValues(state).Add(float64(n))
}

// RecordBatch records one batch outcome
func (m *Metrics) RecordBatch(outcome string) {
	if m == nil {
		return
	}
	m.Batches.WithLabelValues(outcome).Inc()
}

// SetContexts sets the number of tracked contexts
func (m *Metrics) SetContexts(n int) {
	if m == nil {
		return
	}
	m.Contexts.Set(float64(n))
}

// RecordResponse records whether a response matched the bypass patterns
func (m *Metrics) RecordResponse(decision string) {
	if m == nil {
		return
	}
	m.Responses.WithLabelValues(decision).Inc()
}

// RecordHeaderRewrite records one applied rewrite class
func (m *Metrics) RecordHeaderRewrite(class string) {
	if m == nil {
		return
	}
	m.HeaderRewrites.WithLabelValues(class).Inc()
}

// RecordPermission records one permission decision
func (m *Metrics) RecordPermission(decision string) {
	if m == nil {
		return
	}
	m.Permissions.WithLabelValues(decision).Inc()
}

// StreamClientConnected adjusts the event stream gauge
func (m *Metrics) StreamClientConnected(delta int) {
	if m == nil {
		return
	}
	m.StreamClients.Add(float64(delta))
}
