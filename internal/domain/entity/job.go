package entity

import "time"

// JobStatus is the lifecycle state of a background job.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// Terminal reports whether the status is a final state.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed || s == JobCancelled
}

// Valid reports whether the status is one of the known lifecycle states.
func (s JobStatus) Valid() bool {
	switch s {
	case JobPending, JobRunning, JobCompleted, JobFailed, JobCancelled:
		return true
	}
	return false
}

// Job is one tracked background task, visible to external pollers.
//
// Invariants maintained by the job tracker:
//   - CompletedAt is set exactly once, on the first transition into a
//     terminal status.
//   - Progress is monotonically non-decreasing while the job is running.
type Job struct {
	ID                string
	Type              string
	Status            JobStatus
	Progress          int
	Data              map[string]any
	Result            map[string]any
	Error             string
	StartedAt         time.Time
	CompletedAt       *time.Time
	EstimatedDuration time.Duration
}

// Elapsed returns the wall-clock time the job has been running. For terminal
// jobs it is the total run duration.
func (j *Job) Elapsed(now time.Time) time.Duration {
	if j.CompletedAt != nil {
		return j.CompletedAt.Sub(j.StartedAt)
	}
	return now.Sub(j.StartedAt)
}

// EstimatedRemaining extrapolates the remaining duration linearly from
// elapsed time and progress. This is a best-effort hint with no accuracy
// guarantee when progress reporting is coarse-grained; it is only defined
// for running jobs with non-zero progress.
func (j *Job) EstimatedRemaining(now time.Time) (time.Duration, bool) {
	if j.Status != JobRunning || j.Progress <= 0 {
		return 0, false
	}
	elapsed := j.Elapsed(now)
	total := time.Duration(float64(elapsed) / float64(j.Progress) * 100)
	return total - elapsed, true
}
