package repository

import (
	"context"
	"time"

	"intelwire/internal/domain/entity"
)

// LogFilter narrows log queries. Zero values mean "no filter".
type LogFilter struct {
	Level   entity.Level
	Context string
	Limit   int
	Offset  int
}

type LogRepository interface {
	// Save persists one entry. Callers treat failures as best-effort; the
	// logger swallows them.
	Save(ctx context.Context, entry *entity.LogEntry) error
	// Query returns entries most-recent-first. Rows that fail to decode are
	// skipped, not surfaced.
	Query(ctx context.Context, filter LogFilter) ([]*entity.LogEntry, error)
	// DeleteOlderThan removes entries with a timestamp before the cutoff and
	// returns how many were deleted.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
