// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Simulation metrics
	RunsTotal           *prometheus.CounterVec
	RunDuration         *prometheus.HistogramVec
	TicksSimulated      prometheus.Counter
	EventsEmitted       *prometheus.CounterVec
	InvariantViolations *prometheus.CounterVec

	// Scoring metrics
	SecurityScore *prometheus.GaugeVec

	// Persistence metrics
	RunsPersisted    prometheus.Counter
	PersistenceError *prometheus.CounterVec

	// Reporting metrics
	ReportsGenerated prometheus.Counter

	// Server metrics
	StreamClients prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "securemint_lab"
	}

	return &Metrics{
		RunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "runs_total",
			Help:      "Total number of simulation runs by scenario and status",
		}, []string{"scenario", "status"}),
		RunDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of simulation runs by scenario",
			Buckets:   prometheus.DefBuckets,
		}, []string{"scenario"}),
		TicksSimulated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "ticks_total",
			Help:      "Total number of ticks simulated",
		}),
		EventsEmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "events_total",
			Help:      "Total number of events emitted by kind",
		}, []string{"kind"}),
		InvariantViolations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "invariant_violations_total",
			Help:      "Total number of ticks with an invariant violation by scenario",
		}, []string{"scenario"}),

		SecurityScore: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "economic_security_score",
			Help:      "Economic security score of the latest run by scenario",
		}, []string{"scenario"}),

		RunsPersisted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "runs_persisted_total",
			Help:      "Total number of runs written to storage",
		}),
		PersistenceError: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "persistence_errors_total",
			Help:      "Total number of storage write errors by store",
		}, []string{"store"}),

		ReportsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reporting",
			Name:      "reports_generated_total",
			Help:      "Total number of reports generated",
		}),

		StreamClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "stream_clients",
			Help:      "Number of connected event stream clients",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordRun records a completed or failed simulation run.
func RecordRun(scenario, status string, durationSeconds float64) {
	DefaultMetrics.RunsTotal.WithLabelValues(scenario, status).Inc()
	DefaultMetrics.RunDuration.WithLabelValues(scenario).Observe(durationSeconds)
}

// RecordTicks adds to the simulated tick counter.
func RecordTicks(n int) {
	DefaultMetrics.TicksSimulated.Add(float64(n))
}

// RecordEvents adds emitted events of one kind.
func RecordEvents(kind string, n int) {
	DefaultMetrics.EventsEmitted.WithLabelValues(kind).Add(float64(n))
}

// RecordViolations adds invariant violation ticks for a scenario.
func RecordViolations(scenario string, n int) {
	DefaultMetrics.InvariantViolations.WithLabelValues(scenario).Add(float64(n))
}

// SetSecurityScore publishes the latest score for a scenario.
func SetSecurityScore(scenario string, score float64) {
	DefaultMetrics.SecurityScore.WithLabelValues(scenario).Set(score)
}

// RecordRunPersisted increments the persisted run counter.
func RecordRunPersisted() {
	DefaultMetrics.RunsPersisted.Inc()
}

// RecordPersistenceError records a storage write failure.
func RecordPersistenceError(store string) {
	DefaultMetrics.PersistenceError.WithLabelValues(store).Inc()
}

// RecordReportGenerated increments the report counter.
func RecordReportGenerated() {
	DefaultMetrics.ReportsGenerated.Inc()
}
