package metrics

import "time"

// RecordRemoteCall records the outcome and duration of one remote API call.
func RecordRemoteCall(resource string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	RemoteCallsTotal.WithLabelValues(resource, status).Inc()
	RemoteCallDuration.WithLabelValues(resource).Observe(duration.Seconds())
}

// RecordRetryAttempt records one retry of the named operation.
func RecordRetryAttempt(operation string) {
	RetryAttemptsTotal.WithLabelValues(operation).Inc()
}

// RecordBreakerRejection records a call rejected by an open breaker.
func RecordBreakerRejection(resource string) {
	CircuitBreakerRejectionsTotal.WithLabelValues(resource).Inc()
}

// RecordPipelineRun records an orchestration run's final status and duration.
func RecordPipelineRun(status string, duration time.Duration) {
	PipelineRunsTotal.WithLabelValues(status).Inc()
	PipelineRunDuration.Observe(duration.Seconds())
}

// RecordSourceProcessed records the per-source outcome within a run:
// created, skipped, or failed.
func RecordSourceProcessed(outcome string) {
	SourcesProcessedTotal.WithLabelValues(outcome).Inc()
}

// RecordArticleCreated records one persisted article and its confidence.
func RecordArticleCreated(confidence float64) {
	ArticlesCreatedTotal.Inc()
	ConfidenceScore.Observe(confidence)
}

// RecordJobTransition records a job status change.
func RecordJobTransition(jobType, status string) {
	JobTransitionsTotal.WithLabelValues(jobType, status).Inc()
}

// RecordEscalationCreated records one created escalation.
func RecordEscalationCreated(escType, priority string) {
	EscalationsCreatedTotal.WithLabelValues(escType, priority).Inc()
}

// RecordLogPersisted records one persisted log entry.
func RecordLogPersisted(level string) {
	LogEntriesPersistedTotal.WithLabelValues(level).Inc()
}
