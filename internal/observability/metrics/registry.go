// Package metrics provides centralized Prometheus metrics for the
// application.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Remote call metrics track the resilient API clients.
var (
	// RemoteCallsTotal counts remote API calls by resource and outcome
	RemoteCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remote_calls_total",
			Help: "Total number of remote API calls",
		},
		[]string{"resource", "status"},
	)

	// RemoteCallDuration measures remote call duration in seconds
	RemoteCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "remote_call_duration_seconds",
			Help:    "Remote API call duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120},
		},
		[]string{"resource"},
	)

	// RetryAttemptsTotal counts retry attempts beyond the first try
	RetryAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_attempts_total",
			Help: "Total number of retry attempts",
		},
		[]string{"operation"},
	)

	// CircuitBreakerRejectionsTotal counts calls rejected by an open breaker
	CircuitBreakerRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_rejections_total",
			Help: "Total number of calls rejected by an open circuit breaker",
		},
		[]string{"resource"},
	)
)

// Pipeline metrics track orchestration runs and their outcomes.
var (
	// PipelineRunsTotal counts orchestration runs by final status
	PipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_runs_total",
			Help: "Total number of orchestration runs",
		},
		[]string{"status"},
	)

	// PipelineRunDuration measures end-to-end run duration
	PipelineRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pipeline_run_duration_seconds",
			Help:    "Orchestration run duration in seconds",
			Buckets: []float64{1, 5, 30, 60, 300, 900, 1800},
		},
	)

	// SourcesProcessedTotal counts per-source outcomes within runs
	SourcesProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_sources_processed_total",
			Help: "Total number of sources processed by the pipeline",
		},
		[]string{"outcome"},
	)

	// ArticlesCreatedTotal counts generated articles persisted by the pipeline
	ArticlesCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pipeline_articles_created_total",
			Help: "Total number of articles created by the pipeline",
		},
	)

	// ConfidenceScore observes the confidence score of generated articles
	ConfidenceScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pipeline_confidence_score",
			Help:    "Confidence score distribution of generated articles",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
	)
)

// Job and escalation metrics track the background task surface.
var (
	// JobTransitionsTotal counts job status transitions
	JobTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "job_transitions_total",
			Help: "Total number of job status transitions",
		},
		[]string{"type", "status"},
	)

	// EscalationsCreatedTotal counts escalations by type and priority
	EscalationsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "escalations_created_total",
			Help: "Total number of escalations created",
		},
		[]string{"type", "priority"},
	)

	// LogEntriesPersistedTotal counts persisted log entries by level
	LogEntriesPersistedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "log_entries_persisted_total",
			Help: "Total number of log entries persisted",
		},
		[]string{"level"},
	)
)
