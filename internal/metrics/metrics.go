package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all Prometheus metrics for the snapshot service.
// Each Registry owns its own prometheus.Registry so that several instances (tests,
// embedded use) never collide on registration.
type Registry struct {
	reg *prometheus.Registry

	// Feed metrics
	FetchAttemptsTotal    *prometheus.CounterVec
	FetchResultsTotal     *prometheus.CounterVec
	FetchDuration         prometheus.Histogram
	DebugWriteErrorsTotal prometheus.Counter

	// Store metrics
	SnapshotRecords      prometheus.Gauge
	SnapshotReplacements prometheus.Counter

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New initializes and returns a Registry with all metrics registered
func New() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Registry{
		reg: reg,

		FetchAttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adsb_snapshot_fetch_attempts_total",
				Help: "Feed fetch attempts by outcome (ok, transient, invalid)",
			},
			[]string{"outcome"},
		),
		FetchResultsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adsb_snapshot_fetch_results_total",
				Help: "Completed fetches by result (success, exhausted)",
			},
			[]string{"result"},
		),
		FetchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "adsb_snapshot_fetch_duration_seconds",
				Help:    "Time spent in a fetch including all retries",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
		),
		DebugWriteErrorsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "adsb_snapshot_debug_write_errors_total",
				Help: "Failed writes of the raw debug payload",
			},
		),

		SnapshotRecords: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "adsb_snapshot_records",
				Help: "Number of aircraft records in the current snapshot",
			},
		),
		SnapshotReplacements: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "adsb_snapshot_replacements_total",
				Help: "Number of times the stored snapshot was replaced",
			},
		),

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adsb_snapshot_http_requests_total",
				Help: "Total HTTP requests processed by endpoint, method, and status code",
			},
			[]string{"endpoint", "method", "status_code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "adsb_snapshot_http_request_duration_seconds",
				Help:    "HTTP request latency distribution in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"endpoint", "method"},
		),
	}
}

// Handler exposes the registry in the Prometheus text format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// Gatherer exposes the underlying registry, mainly for tests
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}
