package entity

import (
	"fmt"
	"time"
)

// Level is the severity of a log entry.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
	LevelFatal Level = "fatal"
)

// severityOrder maps levels to a comparable rank. Higher is more severe.
var severityOrder = map[Level]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
	LevelFatal: 4,
}

// Severity returns the numeric rank of the level for minimum-level filtering.
// Unknown levels rank as info.
func (l Level) Severity() int {
	if s, ok := severityOrder[l]; ok {
		return s
	}
	return severityOrder[LevelInfo]
}

// ParseLevel converts a string into a Level.
func ParseLevel(s string) (Level, error) {
	switch Level(s) {
	case LevelDebug, LevelInfo, LevelWarn, LevelError, LevelFatal:
		return Level(s), nil
	}
	return "", fmt.Errorf("%w: unknown log level %q", ErrInvalidInput, s)
}

// LogError captures an error carried inside a log entry.
type LogError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

// LogEntry is one structured log record. Entries are written to the console
// immediately and persisted best-effort; they are removed only by retention
// cleanup.
type LogEntry struct {
	ID        int64
	Timestamp time.Time
	Level     Level
	Message   string
	Context   string
	Metadata  map[string]any
	Error     *LogError
	RequestID string
	UserID    string
	SessionID string
	Source    string
}
