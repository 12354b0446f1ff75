package entity

import "time"

// EscalationType classifies why an item needs human review.
type EscalationType string

const (
	EscalationLowConfidence      EscalationType = "low_confidence"
	EscalationError              EscalationType = "error"
	EscalationReviewRequired     EscalationType = "review_required"
	EscalationQualityConcern     EscalationType = "quality_concern"
	EscalationManualIntervention EscalationType = "manual_intervention"
)

// Valid reports whether the escalation type is known.
func (t EscalationType) Valid() bool {
	switch t {
	case EscalationLowConfidence, EscalationError, EscalationReviewRequired,
		EscalationQualityConcern, EscalationManualIntervention:
		return true
	}
	return false
}

// Priority orders escalations for human triage.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Valid reports whether the priority is known.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// PriorityForConfidence derives the review priority of a low-confidence
// escalation from its confidence score.
func PriorityForConfidence(score float64) Priority {
	switch {
	case score < 0.3:
		return PriorityHigh
	case score < 0.5:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// EscalationStatus is the review state of an escalation.
type EscalationStatus string

const (
	EscalationPending   EscalationStatus = "pending"
	EscalationInReview  EscalationStatus = "in_review"
	EscalationResolved  EscalationStatus = "resolved"
	EscalationDismissed EscalationStatus = "dismissed"
)

// Valid reports whether the status is known.
func (s EscalationStatus) Valid() bool {
	switch s {
	case EscalationPending, EscalationInReview, EscalationResolved, EscalationDismissed:
		return true
	}
	return false
}

// RelatedEntities holds optional back-references from an escalation to the
// records it concerns. References only, no ownership.
type RelatedEntities struct {
	ArticleID *int64 `json:"article_id,omitempty"`
	JobID     string `json:"job_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
}

// Escalation is one item queued for a human decision. Escalations are
// mutated only through explicit status updates and are never auto-deleted.
type Escalation struct {
	ID               string
	Type             EscalationType
	Priority         Priority
	Title            string
	Description      string
	Context          string
	ConfidenceScore  *float64
	ErrorDetails     string
	SuggestedActions []string
	Related          RelatedEntities
	Status           EscalationStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
	ResolvedAt       *time.Time
	ResolvedBy       string
	ResolutionNotes  string
}
