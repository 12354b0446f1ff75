package worker

import (
	"intelwire/internal/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides Prometheus metrics for the worker process. It embeds the
// shared ConfigMetrics for configuration fallback tracking and adds counters
// for scheduled run execution.
//
// Worker metrics:
//   - worker_run_total: Total scheduled runs by status (success/failure)
//   - worker_run_duration_seconds: Duration histogram of run execution
//   - worker_run_sources_processed_total: Total sources processed across runs
//   - worker_run_last_success_timestamp: Unix timestamp of the last successful run
type Metrics struct {
	*config.ConfigMetrics

	RunsTotal *prometheus.CounterVec

	RunDurationSeconds prometheus.Histogram

	SourcesProcessedTotal prometheus.Counter

	LastSuccessTimestamp prometheus.Gauge
}

// NewMetrics creates and registers the worker metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		ConfigMetrics: config.NewConfigMetrics("worker"),

		RunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_run_total",
			Help: "Total number of scheduled runs by status (success/failure)",
		}, []string{"status"}),

		RunDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "worker_run_duration_seconds",
			Help:    "Duration of scheduled run execution in seconds",
			Buckets: []float64{1, 5, 30, 60, 300, 900, 1800},
		}),

		SourcesProcessedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "worker_run_sources_processed_total",
			Help: "Total number of sources processed across all runs",
		}),

		LastSuccessTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "worker_run_last_success_timestamp",
			Help: "Unix timestamp of the last successful run",
		}),
	}
}

// RecordRun increments the run counter. Status is "success" or "failure".
func (m *Metrics) RecordRun(status string) {
	m.RunsTotal.WithLabelValues(status).Inc()
}

// RecordRunDuration observes the duration of a run in seconds.
func (m *Metrics) RecordRunDuration(seconds float64) {
	m.RunDurationSeconds.Observe(seconds)
}

// RecordSourcesProcessed adds the number of sources handled by a run.
func (m *Metrics) RecordSourcesProcessed(count int) {
	m.SourcesProcessedTotal.Add(float64(count))
}

// RecordLastSuccess stamps the current time as the last successful run.
func (m *Metrics) RecordLastSuccess() {
	m.LastSuccessTimestamp.SetToCurrentTime()
}
