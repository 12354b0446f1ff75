// Package escalation maintains the durable queue of items that need a human
// decision. Escalations are only ever mutated through explicit status
// updates; nothing auto-deletes them.
package escalation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"intelwire/internal/domain/entity"
	"intelwire/internal/observability/logging"
	"intelwire/internal/observability/metrics"
	"intelwire/internal/repository"
	"intelwire/internal/usecase/notify"
)

// CreateInput carries the fields for a new escalation.
type CreateInput struct {
	Type             entity.EscalationType
	Priority         entity.Priority
	Title            string
	Description      string
	Context          string
	Related          entity.RelatedEntities
	ConfidenceScore  *float64
	ErrorDetails     string
	SuggestedActions []string
}

// ListOutput bundles an escalation page with aggregate counts.
type ListOutput struct {
	Escalations []*entity.Escalation
	Counts      *repository.EscalationCounts
}

type Service struct {
	repo   repository.EscalationRepository
	sink   notify.Sink
	logger *logging.Logger
	now    func() time.Time
}

func NewService(repo repository.EscalationRepository, sink notify.Sink, logger *logging.Logger) *Service {
	return &Service{repo: repo, sink: sink, logger: logger, now: time.Now}
}

// Create stores a new pending escalation and returns its id. Critical
// escalations are flagged for immediate attention in the emitted event.
func (s *Service) Create(ctx context.Context, in CreateInput) (string, error) {
	if !in.Type.Valid() {
		return "", fmt.Errorf("%w: invalid escalation type %q", entity.ErrInvalidInput, in.Type)
	}
	if !in.Priority.Valid() {
		return "", fmt.Errorf("%w: invalid priority %q", entity.ErrInvalidInput, in.Priority)
	}
	if in.Title == "" {
		return "", &entity.ValidationError{Field: "title", Message: "is required"}
	}

	now := s.now()
	esc := &entity.Escalation{
		ID:               fmt.Sprintf("esc_%s", uuid.New().String()),
		Type:             in.Type,
		Priority:         in.Priority,
		Title:            in.Title,
		Description:      in.Description,
		Context:          in.Context,
		ConfidenceScore:  in.ConfidenceScore,
		ErrorDetails:     in.ErrorDetails,
		SuggestedActions: in.SuggestedActions,
		Related:          in.Related,
		Status:           entity.EscalationPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.Create(ctx, esc); err != nil {
		return "", fmt.Errorf("create escalation: %w", err)
	}

	s.logger.Warn(ctx, fmt.Sprintf("escalation created: %s", in.Title),
		logging.WithContext("escalation"),
		logging.WithMetadata(map[string]any{
			"escalation_id": esc.ID,
			"type":          string(in.Type),
			"priority":      string(in.Priority),
		}))
	metrics.RecordEscalationCreated(string(in.Type), string(in.Priority))

	payload := map[string]any{
		"escalation_id": esc.ID,
		"type":          string(in.Type),
		"priority":      string(in.Priority),
		"title":         in.Title,
	}
	if in.Priority == entity.PriorityCritical {
		payload["requires_immediate_attention"] = true
	}
	s.sink.Notify(ctx, "escalation.created", payload)

	return esc.ID, nil
}

// FlagLowConfidence escalates a low-scoring piece of content; priority is
// derived from the score.
func (s *Service) FlagLowConfidence(ctx context.Context, contentType string, contentID int64, score float64, contextInfo string, actions []string) (string, error) {
	if actions == nil {
		actions = []string{
			"review generated content",
			"verify against source material",
			"adjust generation prompt if needed",
		}
	}
	return s.Create(ctx, CreateInput{
		Type:             entity.EscalationLowConfidence,
		Priority:         entity.PriorityForConfidence(score),
		Title:            fmt.Sprintf("Low confidence %s #%d", contentType, contentID),
		Description:      fmt.Sprintf("%s scored %.2f, below the review threshold", contentType, score),
		Context:          contextInfo,
		Related:          entity.RelatedEntities{ArticleID: &contentID},
		ConfidenceScore:  &score,
		SuggestedActions: actions,
	})
}

// EscalateError escalates a failure. Contexts that mention critical flows
// get critical priority; everything else is high.
func (s *Service) EscalateError(ctx context.Context, message, errorContext, details string, related entity.RelatedEntities) (string, error) {
	priority := entity.PriorityHigh
	lowered := strings.ToLower(errorContext)
	if strings.Contains(lowered, "critical") || strings.Contains(lowered, "payment") {
		priority = entity.PriorityCritical
	}
	return s.Create(ctx, CreateInput{
		Type:         entity.EscalationError,
		Priority:     priority,
		Title:        message,
		Description:  fmt.Sprintf("Error in %s", errorContext),
		Context:      errorContext,
		Related:      related,
		ErrorDetails: details,
		SuggestedActions: []string{
			"inspect error details",
			"check dependency health",
			"retry the operation once resolved",
		},
	})
}

// FlagQualityReview queues content for a routine quality check.
func (s *Service) FlagQualityReview(ctx context.Context, contentID int64, reason, contextInfo string, priority entity.Priority) (string, error) {
	if priority == "" {
		priority = entity.PriorityMedium
	}
	return s.Create(ctx, CreateInput{
		Type:        entity.EscalationQualityConcern,
		Priority:    priority,
		Title:       fmt.Sprintf("Quality review for content #%d", contentID),
		Description: reason,
		Context:     contextInfo,
		Related:     entity.RelatedEntities{ArticleID: &contentID},
		SuggestedActions: []string{
			"review flagged content",
			"resolve or dismiss after inspection",
		},
	})
}

// List returns a filtered escalation page plus aggregate counts.
func (s *Service) List(ctx context.Context, filter repository.EscalationFilter) (*ListOutput, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	escalations, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list escalations: %w", err)
	}
	counts, err := s.repo.Counts(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("count escalations: %w", err)
	}
	return &ListOutput{Escalations: escalations, Counts: counts}, nil
}

// Get returns one escalation by id.
func (s *Service) Get(ctx context.Context, id string) (*entity.Escalation, error) {
	esc, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get escalation %s: %w", id, err)
	}
	return esc, nil
}

// UpdateStatus moves an escalation through its review lifecycle. Resolution
// stamps who resolved it and why.
func (s *Service) UpdateStatus(ctx context.Context, id string, newStatus entity.EscalationStatus, resolvedBy, notes string) (*entity.Escalation, error) {
	if !newStatus.Valid() {
		return nil, fmt.Errorf("%w: invalid escalation status %q", entity.ErrInvalidInput, newStatus)
	}

	esc, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("update escalation %s: %w", id, err)
	}

	oldStatus := esc.Status
	now := s.now()
	esc.Status = newStatus
	esc.UpdatedAt = now
	if newStatus == entity.EscalationResolved {
		esc.ResolvedAt = &now
		esc.ResolvedBy = resolvedBy
		esc.ResolutionNotes = notes
	}

	if err := s.repo.Update(ctx, esc); err != nil {
		return nil, fmt.Errorf("update escalation %s: %w", id, err)
	}

	s.logger.Info(ctx, "escalation status updated",
		logging.WithContext("escalation"),
		logging.WithMetadata(map[string]any{
			"escalation_id": id,
			"old_status":    string(oldStatus),
			"new_status":    string(newStatus),
		}))
	s.sink.Notify(ctx, "escalation.updated", map[string]any{
		"escalation_id": id,
		"old_status":    string(oldStatus),
		"new_status":    string(newStatus),
	})
	return esc, nil
}
