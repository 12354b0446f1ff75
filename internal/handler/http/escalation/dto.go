package escalation

import (
	"time"

	"intelwire/internal/domain/entity"
	"intelwire/internal/repository"
)

type DTO struct {
	ID               string                 `json:"id"`
	Type             string                 `json:"type"`
	Priority         string                 `json:"priority"`
	Title            string                 `json:"title"`
	Description      string                 `json:"description,omitempty"`
	Context          string                 `json:"context,omitempty"`
	ConfidenceScore  *float64               `json:"confidence_score,omitempty"`
	ErrorDetails     string                 `json:"error_details,omitempty"`
	SuggestedActions []string               `json:"suggested_actions,omitempty"`
	Related          entity.RelatedEntities `json:"related"`
	Status           string                 `json:"status"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
	ResolvedAt       *time.Time             `json:"resolved_at,omitempty"`
	ResolvedBy       string                 `json:"resolved_by,omitempty"`
	ResolutionNotes  string                 `json:"resolution_notes,omitempty"`
}

type countsDTO struct {
	ByStatus   map[string]int `json:"by_status"`
	ByPriority map[string]int `json:"by_priority"`
	ByType     map[string]int `json:"by_type"`
}

type listDTO struct {
	Escalations []DTO     `json:"escalations"`
	Counts      countsDTO `json:"counts"`
}

type createRequest struct {
	Type             string                 `json:"type"`
	Priority         string                 `json:"priority"`
	Title            string                 `json:"title"`
	Description      string                 `json:"description"`
	Context          string                 `json:"context"`
	SuggestedActions []string               `json:"suggested_actions"`
	Related          entity.RelatedEntities `json:"related"`
}

type updateRequest struct {
	Status          string `json:"status"`
	ResolvedBy      string `json:"resolved_by"`
	ResolutionNotes string `json:"resolution_notes"`
}

func toDTO(e *entity.Escalation) DTO {
	return DTO{
		ID:               e.ID,
		Type:             string(e.Type),
		Priority:         string(e.Priority),
		Title:            e.Title,
		Description:      e.Description,
		Context:          e.Context,
		ConfidenceScore:  e.ConfidenceScore,
		ErrorDetails:     e.ErrorDetails,
		SuggestedActions: e.SuggestedActions,
		Related:          e.Related,
		Status:           string(e.Status),
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
		ResolvedAt:       e.ResolvedAt,
		ResolvedBy:       e.ResolvedBy,
		ResolutionNotes:  e.ResolutionNotes,
	}
}

func toCountsDTO(c *repository.EscalationCounts) countsDTO {
	out := countsDTO{
		ByStatus:   make(map[string]int),
		ByPriority: make(map[string]int),
		ByType:     make(map[string]int),
	}
	if c == nil {
		return out
	}
	for k, v := range c.ByStatus {
		out.ByStatus[string(k)] = v
	}
	for k, v := range c.ByPriority {
		out.ByPriority[string(k)] = v
	}
	for k, v := range c.ByType {
		out.ByType[string(k)] = v
	}
	return out
}
