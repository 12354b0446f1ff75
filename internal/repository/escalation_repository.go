package repository

import (
	"context"

	"intelwire/internal/domain/entity"
)

// EscalationFilter narrows List results. Zero values mean "no filter".
type EscalationFilter struct {
	Status   entity.EscalationStatus
	Type     entity.EscalationType
	Priority entity.Priority
	Limit    int
	Offset   int
}

// EscalationCounts aggregates escalations along each facet, ignoring
// pagination.
type EscalationCounts struct {
	ByStatus   map[entity.EscalationStatus]int
	ByPriority map[entity.Priority]int
	ByType     map[entity.EscalationType]int
}

type EscalationRepository interface {
	// Get returns entity.ErrNotFound when no escalation has the given id.
	Get(ctx context.Context, id string) (*entity.Escalation, error)
	List(ctx context.Context, filter EscalationFilter) ([]*entity.Escalation, error)
	Counts(ctx context.Context, filter EscalationFilter) (*EscalationCounts, error)
	Create(ctx context.Context, escalation *entity.Escalation) error
	Update(ctx context.Context, escalation *entity.Escalation) error
}
