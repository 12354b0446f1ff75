// Package jobs tracks coarse background-task state visible to external
// pollers. Jobs move pending -> running -> completed/failed/cancelled;
// every status change is pushed to the notification sink.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"intelwire/internal/domain/entity"
	"intelwire/internal/observability/logging"
	"intelwire/internal/observability/metrics"
	"intelwire/internal/repository"
	"intelwire/internal/usecase/notify"
)

// estimatedDurations is the static per-type duration hint assigned at
// creation time.
var estimatedDurations = map[string]time.Duration{
	"intelligence_gathering": 5 * time.Minute,
	"crawl":                  2 * time.Minute,
	"generate":               1 * time.Minute,
	"log_cleanup":            30 * time.Second,
}

const defaultEstimatedDuration = 2 * time.Minute

// cancelledByUser is the fixed error recorded on user-requested cancellation.
const cancelledByUser = "cancelled by user request"

// UpdateInput carries the fields merged into a job by Update. Nil fields are
// left unchanged.
type UpdateInput struct {
	Status   *entity.JobStatus
	Progress *int
	Result   map[string]any
	Error    *string
}

// JobView is a stored job plus derived timing for pollers.
type JobView struct {
	*entity.Job
	Elapsed            time.Duration
	EstimatedRemaining *time.Duration
}

// ListOutput bundles a job page with aggregate counts by status.
type ListOutput struct {
	Jobs   []*entity.Job
	Counts map[entity.JobStatus]int
}

type Service struct {
	repo   repository.JobRepository
	sink   notify.Sink
	logger *logging.Logger
	now    func() time.Time
}

func NewService(repo repository.JobRepository, sink notify.Sink, logger *logging.Logger) *Service {
	return &Service{repo: repo, sink: sink, logger: logger, now: time.Now}
}

// Create allocates a new pending job and returns its id.
func (s *Service) Create(ctx context.Context, jobType string, data map[string]any) (string, error) {
	estimated, ok := estimatedDurations[jobType]
	if !ok {
		estimated = defaultEstimatedDuration
	}

	job := &entity.Job{
		ID:                fmt.Sprintf("%s_%s", jobType, uuid.New().String()),
		Type:              jobType,
		Status:            entity.JobPending,
		Progress:          0,
		Data:              data,
		StartedAt:         s.now(),
		EstimatedDuration: estimated,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}

	s.logger.Info(ctx, "job created",
		logging.WithContext("jobs"),
		logging.WithMetadata(map[string]any{"job_id": job.ID, "type": jobType}))
	metrics.RecordJobTransition(jobType, string(entity.JobPending))
	return job.ID, nil
}

// Update merges the given fields into the job. On a status change it emits a
// job.status_changed notification, and on entering a terminal status an
// additional completion/failure/cancellation notification with the elapsed
// duration.
func (s *Service) Update(ctx context.Context, jobID string, in UpdateInput) (*entity.Job, error) {
	job, err := s.repo.Get(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("update job %s: %w", jobID, err)
	}

	oldStatus := job.Status
	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, fmt.Errorf("%w: invalid job status %q", entity.ErrInvalidInput, *in.Status)
		}
		job.Status = *in.Status
	}
	if in.Progress != nil {
		// Progress is monotonic for pollers.
		if *in.Progress > job.Progress {
			job.Progress = *in.Progress
		}
	}
	if in.Result != nil {
		job.Result = in.Result
	}
	if in.Error != nil {
		job.Error = *in.Error
	}

	now := s.now()
	if job.Status.Terminal() && job.CompletedAt == nil {
		job.CompletedAt = &now
	}
	if oldStatus != entity.JobRunning && job.Status == entity.JobRunning {
		job.StartedAt = now
	}

	if err := s.repo.Update(ctx, job); err != nil {
		return nil, fmt.Errorf("update job %s: %w", jobID, err)
	}

	if job.Status != oldStatus {
		metrics.RecordJobTransition(job.Type, string(job.Status))
		s.sink.Notify(ctx, "job.status_changed", map[string]any{
			"job_id":     job.ID,
			"type":       job.Type,
			"old_status": string(oldStatus),
			"new_status": string(job.Status),
		})
		s.notifyTerminal(ctx, job)
	}
	return job, nil
}

func (s *Service) notifyTerminal(ctx context.Context, job *entity.Job) {
	var event string
	switch job.Status {
	case entity.JobCompleted:
		event = "job.completed"
	case entity.JobFailed:
		event = "job.failed"
	case entity.JobCancelled:
		event = "job.cancelled"
	default:
		return
	}
	s.sink.Notify(ctx, event, map[string]any{
		"job_id":     job.ID,
		"type":       job.Type,
		"elapsed_ms": job.Elapsed(s.now()).Milliseconds(),
		"error":      job.Error,
	})
}

// Get returns the stored job plus derived timing.
func (s *Service) Get(ctx context.Context, jobID string) (*JobView, error) {
	job, err := s.repo.Get(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", jobID, err)
	}

	now := s.now()
	view := &JobView{Job: job, Elapsed: job.Elapsed(now)}
	if remaining, ok := job.EstimatedRemaining(now); ok {
		view.EstimatedRemaining = &remaining
	}
	return view, nil
}

// List returns a filtered job page plus aggregate counts by status.
func (s *Service) List(ctx context.Context, filter repository.JobFilter) (*ListOutput, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	jobsList, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	counts, err := s.repo.CountByStatus(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("count jobs: %w", err)
	}
	return &ListOutput{Jobs: jobsList, Counts: counts}, nil
}

// Cancel stops a pending or running job. Cancelling an already-terminal job
// deletes its record outright.
func (s *Service) Cancel(ctx context.Context, jobID string) error {
	job, err := s.repo.Get(ctx, jobID)
	if err != nil {
		return fmt.Errorf("cancel job %s: %w", jobID, err)
	}

	if job.Status.Terminal() {
		if err := s.repo.Delete(ctx, jobID); err != nil {
			return fmt.Errorf("cancel job %s: %w", jobID, err)
		}
		s.logger.Info(ctx, "terminal job deleted on cancel",
			logging.WithContext("jobs"),
			logging.WithMetadata(map[string]any{"job_id": jobID, "status": string(job.Status)}))
		return nil
	}

	now := s.now()
	oldStatus := job.Status
	job.Status = entity.JobCancelled
	job.Error = cancelledByUser
	job.CompletedAt = &now
	if err := s.repo.Update(ctx, job); err != nil {
		return fmt.Errorf("cancel job %s: %w", jobID, err)
	}

	s.logger.Info(ctx, "job cancelled",
		logging.WithContext("jobs"),
		logging.WithMetadata(map[string]any{"job_id": jobID, "old_status": string(oldStatus)}))
	metrics.RecordJobTransition(job.Type, string(entity.JobCancelled))
	s.sink.Notify(ctx, "job.status_changed", map[string]any{
		"job_id":     job.ID,
		"type":       job.Type,
		"old_status": string(oldStatus),
		"new_status": string(entity.JobCancelled),
	})
	s.notifyTerminal(ctx, job)
	return nil
}
