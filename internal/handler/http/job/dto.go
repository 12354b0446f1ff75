package job

import (
	"time"

	"intelwire/internal/domain/entity"
	"intelwire/internal/usecase/jobs"
)

type DTO struct {
	ID                  string         `json:"id"`
	Type                string         `json:"type"`
	Status              string         `json:"status"`
	Progress            int            `json:"progress"`
	Data                map[string]any `json:"data,omitempty"`
	Result              map[string]any `json:"result,omitempty"`
	Error               string         `json:"error,omitempty"`
	StartedAt           time.Time      `json:"started_at"`
	CompletedAt         *time.Time     `json:"completed_at,omitempty"`
	EstimatedDurationMS int64          `json:"estimated_duration_ms"`
}

type viewDTO struct {
	DTO
	ElapsedMS            int64  `json:"elapsed_ms"`
	EstimatedRemainingMS *int64 `json:"estimated_remaining_ms,omitempty"`
}

type listDTO struct {
	Jobs   []DTO          `json:"jobs"`
	Counts map[string]int `json:"counts"`
}

func toDTO(j *entity.Job) DTO {
	return DTO{
		ID:                  j.ID,
		Type:                j.Type,
		Status:              string(j.Status),
		Progress:            j.Progress,
		Data:                j.Data,
		Result:              j.Result,
		Error:               j.Error,
		StartedAt:           j.StartedAt,
		CompletedAt:         j.CompletedAt,
		EstimatedDurationMS: j.EstimatedDuration.Milliseconds(),
	}
}

func toViewDTO(v *jobs.JobView) viewDTO {
	out := viewDTO{
		DTO:       toDTO(v.Job),
		ElapsedMS: v.Elapsed.Milliseconds(),
	}
	if v.EstimatedRemaining != nil {
		ms := v.EstimatedRemaining.Milliseconds()
		out.EstimatedRemainingMS = &ms
	}
	return out
}
