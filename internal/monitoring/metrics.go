// Package monitoring exposes Prometheus metrics for runs, output events,
// protocol noise, and the HTTP/WebSocket surfaces.
package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Run metrics
	RunsTotal     *prometheus.CounterVec
	RunDuration   prometheus.Histogram
	RunnersActive prometheus.Gauge

	// Protocol metrics
	EventsTotal     *prometheus.CounterVec
	MessagesDropped prometheus.Counter

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	startTime time.Time
}

// NewMetrics creates a metrics collector on its own registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry:  registry,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playground_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "playground_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),

		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playground_runs_total",
				Help: "Total number of run requests by outcome",
			},
			[]string{"outcome"},
		),
		RunDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "playground_run_duration_seconds",
				Help:    "Run duration from payload send to teardown",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
		),
		RunnersActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "playground_runners_active",
				Help: "Number of live runners",
			},
		),

		EventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playground_output_events_total",
				Help: "Output events appended to run logs by kind",
			},
			[]string{"kind"},
		),
		MessagesDropped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "playground_messages_dropped_total",
				Help: "Envelopes discarded by the protocol guard or buffer overflow",
			},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "playground_ws_connections",
				Help: "Active WebSocket sessions",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playground_ws_messages_total",
				Help: "WebSocket messages by direction and type",
			},
			[]string{"direction", "type"},
		),
	}
}

// Handler returns the Prometheus scrape handler for this collector.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records one served HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordRun records a finished run and its duration.
func (m *Metrics) RecordRun(outcome string, duration time.Duration) {
	m.RunsTotal.WithLabelValues(outcome).Inc()
	m.RunDuration.Observe(duration.Seconds())
}

// RecordEvent counts one appended output event.
func (m *Metrics) RecordEvent(kind string) {
	m.EventsTotal.WithLabelValues(kind).Inc()
}

// RecordDroppedMessage counts one silently discarded envelope.
func (m *Metrics) RecordDroppedMessage() {
	m.MessagesDropped.Inc()
}

// RunnerStarted increments the live runner gauge.
func (m *Metrics) RunnerStarted() { m.RunnersActive.Inc() }

// RunnerFinished decrements the live runner gauge.
func (m *Metrics) RunnerFinished() { m.RunnersActive.Dec() }

// WSConnected increments the WebSocket session gauge.
func (m *Metrics) WSConnected() { m.WSConnections.Inc() }

// WSDisconnected decrements the WebSocket session gauge.
func (m *Metrics) WSDisconnected() { m.WSConnections.Dec() }

// RecordWSMessage counts one WebSocket message.
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// Uptime reports time since the collector was created.
func (m *Metrics) Uptime() time.Duration {
	return time.Since(m.startTime)
}
