// Package telemetry exposes Prometheus metrics for the feed controller and
// the bundled stories endpoint. Controllers take a Recorder; the no-op
// recorder is the default so library users pay nothing for metrics they
// never scrape.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels recorded for fetches and mutations.
const (
	OutcomeApplied  = "applied"
	OutcomeStale    = "stale"
	OutcomeError    = "error"
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
)

// Mutation operation labels.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Recorder receives controller events. Implementations must be safe for
// concurrent use.
type Recorder interface {
	// RecordFetch records a settled list fetch and its outcome
	// (applied, stale, or error).
	RecordFetch(outcome string, duration time.Duration)
	// RecordSingleFlightRejection records a LoadMore call dropped because
	// another fetch was already in flight.
	RecordSingleFlightRejection()
	// RecordReset records a controller reset.
	RecordReset()
	// RecordMutation records a create/update/delete attempt and its
	// outcome (ok, error, or rejected before any network call).
	RecordMutation(op, outcome string)
}

// NopRecorder discards all events.
type NopRecorder struct{}

// NewNop returns a recorder that does nothing.
func NewNop() *NopRecorder { return &NopRecorder{} }

func (*NopRecorder) RecordFetch(string, time.Duration) {}
func (*NopRecorder) RecordSingleFlightRejection()      {}
func (*NopRecorder) RecordReset()                      {}
func (*NopRecorder) RecordMutation(string, string)     {}

// Metrics holds all storyfeed Prometheus collectors.
type Metrics struct {
	FetchesTotal           *prometheus.CounterVec
	FetchDuration          prometheus.Histogram
	SingleFlightRejections prometheus.Counter
	ResetsTotal            prometheus.Counter
	MutationsTotal         *prometheus.CounterVec

	// Request metrics for the bundled stories endpoint.
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// Provider wraps the collectors and implements Recorder.
type Provider struct {
	Metrics *Metrics
}

// NewProvider registers the storyfeed collectors on the default registry.
// Call at most once per process; promauto panics on duplicate registration.
func NewProvider() *Provider {
	return &Provider{Metrics: initMetrics()}
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func (p *Provider) Handler() http.Handler {
	return promhttp.Handler()
}

func initMetrics() *Metrics {
	m := &Metrics{}
	initControllerMetrics(m)
	initRequestMetrics(m)
	return m
}

func initControllerMetrics(m *Metrics) {
	m.FetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storyfeed_fetches_total",
		Help: "Total settled list fetches by outcome (applied, stale, error)",
	}, []string{"outcome"})

	m.FetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "storyfeed_fetch_duration_seconds",
		Help:    "Round-trip time of list fetches",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
	})

	m.SingleFlightRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storyfeed_single_flight_rejections_total",
		Help: "LoadMore calls dropped because a fetch was already in flight",
	})

	m.ResetsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storyfeed_resets_total",
		Help: "Total controller resets (identity changes, mutations, manual)",
	})

	m.MutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storyfeed_mutations_total",
		Help: "Total mutation attempts by operation and outcome",
	}, []string{"op", "outcome"})
}

func initRequestMetrics(m *Metrics) {
	m.RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storyfeed_api_requests_total",
		Help: "Total requests served by the stories endpoint",
	}, []string{"method", "path", "status"})

	m.RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storyfeed_api_request_duration_seconds",
		Help:    "Time to serve a stories endpoint request",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
}

// RecordFetch records a settled list fetch.
func (p *Provider) RecordFetch(outcome string, duration time.Duration) {
	p.Metrics.FetchesTotal.WithLabelValues(outcome).Inc()
	p.Metrics.FetchDuration.Observe(duration.Seconds())
}

// RecordSingleFlightRejection records a dropped LoadMore call.
func (p *Provider) RecordSingleFlightRejection() {
	p.Metrics.SingleFlightRejections.Inc()
}

// RecordReset records a controller reset.
func (p *Provider) RecordReset() {
	p.Metrics.ResetsTotal.Inc()
}

// RecordMutation records a mutation attempt.
func (p *Provider) RecordMutation(op, outcome string) {
	p.Metrics.MutationsTotal.WithLabelValues(op, outcome).Inc()
}

// RecordRequest records one request served by the stories endpoint.
func (p *Provider) RecordRequest(method, path string, status int, duration time.Duration) {
	p.Metrics.RequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	p.Metrics.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
