package repository

import (
	"context"

	"intelwire/internal/domain/entity"
)

// JobFilter narrows List results. Zero values mean "no filter".
type JobFilter struct {
	Status entity.JobStatus
	Type   string
	Limit  int
	Offset int
}

type JobRepository interface {
	// Get returns entity.ErrNotFound when no job has the given id.
	Get(ctx context.Context, id string) (*entity.Job, error)
	List(ctx context.Context, filter JobFilter) ([]*entity.Job, error)
	// CountByStatus returns aggregate job counts keyed by status, applying
	// the filter's Type but ignoring its pagination.
	CountByStatus(ctx context.Context, filter JobFilter) (map[entity.JobStatus]int, error)
	Create(ctx context.Context, job *entity.Job) error
	Update(ctx context.Context, job *entity.Job) error
	Delete(ctx context.Context, id string) error
}
