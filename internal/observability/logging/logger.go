// Package logging provides the process-wide structured logger. Every
// component emits leveled, structured records through a Logger; records are
// written to the console immediately and persisted best-effort through a
// repository.LogRepository so they can be queried and aged out later.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime/debug"
	"time"

	"intelwire/internal/domain/entity"
	"intelwire/internal/observability/metrics"
	"intelwire/internal/repository"
)

const persistTimeout = 5 * time.Second

// Config controls logger construction. The minimum level is fixed for the
// process lifetime.
type Config struct {
	// MinLevel drops entries below this severity before console output and
	// persistence.
	MinLevel entity.Level

	// Source is the emitting component name stamped on every entry.
	Source string

	// Production selects one-line JSON console output; otherwise output is
	// human-readable text.
	Production bool
}

// Logger is the single point through which components emit log records.
// Logging is best-effort: persistence failures are swallowed and surfaced
// only via a console fallback, never returned to the caller.
type Logger struct {
	console  *slog.Logger
	store    repository.LogRepository
	minLevel entity.Level
	source   string
}

// New creates a Logger. A nil store disables persistence (console only).
func New(cfg Config, store repository.LogRepository) *Logger {
	if cfg.MinLevel == "" {
		cfg.MinLevel = entity.LevelInfo
	}
	if cfg.Source == "" {
		cfg.Source = "intelwire"
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: slog.LevelDebug}
	if cfg.Production {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return &Logger{
		console:  slog.New(handler),
		store:    store,
		minLevel: cfg.MinLevel,
		source:   cfg.Source,
	}
}

// NewNop returns a Logger that discards console output and persists nothing.
// Intended for tests.
func NewNop() *Logger {
	return &Logger{
		console:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		minLevel: entity.LevelDebug,
		source:   "test",
	}
}

// Option mutates the entry under construction.
type Option func(*entity.LogEntry)

// WithContext tags the entry with a free-form context label.
func WithContext(c string) Option {
	return func(e *entity.LogEntry) { e.Context = c }
}

// WithMetadata attaches arbitrary key-value metadata.
func WithMetadata(md map[string]any) Option {
	return func(e *entity.LogEntry) { e.Metadata = md }
}

// WithError attaches an error with its type name and stack.
func WithError(err error) Option {
	return func(e *entity.LogEntry) {
		if err == nil {
			return
		}
		e.Error = &entity.LogError{
			Name:    fmt.Sprintf("%T", err),
			Message: err.Error(),
			Stack:   string(debug.Stack()),
		}
	}
}

// WithRequestID sets the request correlation identifier.
func WithRequestID(id string) Option {
	return func(e *entity.LogEntry) { e.RequestID = id }
}

// WithUserID sets the user correlation identifier.
func WithUserID(id string) Option {
	return func(e *entity.LogEntry) { e.UserID = id }
}

// WithSessionID sets the session correlation identifier.
func WithSessionID(id string) Option {
	return func(e *entity.LogEntry) { e.SessionID = id }
}

// WithSource overrides the emitting component name for this entry.
func WithSource(s string) Option {
	return func(e *entity.LogEntry) { e.Source = s }
}

// Log builds a LogEntry, writes it to the console, and persists it
// best-effort. Entries below the configured minimum level are dropped.
func (l *Logger) Log(ctx context.Context, level entity.Level, msg string, opts ...Option) {
	if level.Severity() < l.minLevel.Severity() {
		return
	}

	entry := &entity.LogEntry{
		Timestamp: time.Now(),
		Level:     level,
		Message:   msg,
		Source:    l.source,
	}
	for _, opt := range opts {
		opt(entry)
	}

	l.writeConsole(ctx, entry)
	l.persist(ctx, entry)
}

// Debug logs at debug level.
func (l *Logger) Debug(ctx context.Context, msg string, opts ...Option) {
	l.Log(ctx, entity.LevelDebug, msg, opts...)
}

// Info logs at info level.
func (l *Logger) Info(ctx context.Context, msg string, opts ...Option) {
	l.Log(ctx, entity.LevelInfo, msg, opts...)
}

// Warn logs at warn level.
func (l *Logger) Warn(ctx context.Context, msg string, opts ...Option) {
	l.Log(ctx, entity.LevelWarn, msg, opts...)
}

// Error logs at error level.
func (l *Logger) Error(ctx context.Context, msg string, opts ...Option) {
	l.Log(ctx, entity.LevelError, msg, opts...)
}

// Fatal logs at fatal level. It does not terminate the process; fatal is a
// severity, not an exit.
func (l *Logger) Fatal(ctx context.Context, msg string, opts ...Option) {
	l.Log(ctx, entity.LevelFatal, msg, opts...)
}

// LogRequest logs one handled HTTP request, deriving the level from the
// status code: >=500 error, >=400 warn, otherwise info.
func (l *Logger) LogRequest(ctx context.Context, method, url string, status int, duration time.Duration, opts ...Option) {
	level := entity.LevelInfo
	switch {
	case status >= 500:
		level = entity.LevelError
	case status >= 400:
		level = entity.LevelWarn
	}

	opts = append(opts, WithMetadata(map[string]any{
		"method":      method,
		"url":         url,
		"status_code": status,
		"duration_ms": duration.Milliseconds(),
	}))
	l.Log(ctx, level, fmt.Sprintf("%s %s - %d", method, url, status), opts...)
}

// LogEvent logs a named application event at info level with an
// "event:<name>" context tag.
func (l *Logger) LogEvent(ctx context.Context, event, description string, opts ...Option) {
	opts = append(opts, WithContext("event:"+event))
	l.Log(ctx, entity.LevelInfo, description, opts...)
}

// slowOperation is the duration above which a performance record is logged
// as a warning instead of debug.
const slowOperation = 5 * time.Second

// LogPerformance records the duration of a named operation.
func (l *Logger) LogPerformance(ctx context.Context, operation string, duration time.Duration, opts ...Option) {
	level := entity.LevelDebug
	if duration > slowOperation {
		level = entity.LevelWarn
	}
	opts = append(opts, WithMetadata(map[string]any{
		"operation":   operation,
		"duration_ms": duration.Milliseconds(),
	}))
	l.Log(ctx, level, fmt.Sprintf("performance: %s took %dms", operation, duration.Milliseconds()), opts...)
}

// LogSecurity logs a security event, mapping severity to level:
// low and medium are warnings, high is an error, critical is fatal.
func (l *Logger) LogSecurity(ctx context.Context, event, description, severity string, opts ...Option) {
	level := entity.LevelWarn
	switch severity {
	case "high":
		level = entity.LevelError
	case "critical":
		level = entity.LevelFatal
	}
	opts = append(opts, WithContext("security:"+event), WithMetadata(map[string]any{
		"severity": severity,
	}))
	l.Log(ctx, level, description, opts...)
}

// GetLogs returns persisted entries most-recent-first, optionally filtered
// by level and context tag.
func (l *Logger) GetLogs(ctx context.Context, filter repository.LogFilter) ([]*entity.LogEntry, error) {
	if l.store == nil {
		return nil, nil
	}
	return l.store.Query(ctx, filter)
}

// CleanupLogs deletes persisted entries older than the retention window and
// returns the number deleted. The cleanup itself is logged; its entry is
// newer than the cutoff so it cannot feed a second deletion pass.
func (l *Logger) CleanupLogs(ctx context.Context, retentionDays int) (int64, error) {
	if l.store == nil {
		return 0, nil
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	deleted, err := l.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup logs: %w", err)
	}
	l.Info(ctx, fmt.Sprintf("log cleanup removed %d entries older than %d days", deleted, retentionDays),
		WithContext("maintenance"),
		WithMetadata(map[string]any{"deleted": deleted, "retention_days": retentionDays}))
	return deleted, nil
}

func (l *Logger) writeConsole(ctx context.Context, entry *entity.LogEntry) {
	attrs := make([]any, 0, 8)
	attrs = append(attrs, slog.String("source", entry.Source))
	if entry.Context != "" {
		attrs = append(attrs, slog.String("context", entry.Context))
	}
	if entry.RequestID != "" {
		attrs = append(attrs, slog.String("request_id", entry.RequestID))
	}
	if entry.UserID != "" {
		attrs = append(attrs, slog.String("user_id", entry.UserID))
	}
	if entry.SessionID != "" {
		attrs = append(attrs, slog.String("session_id", entry.SessionID))
	}
	if entry.Error != nil {
		attrs = append(attrs, slog.String("error", entry.Error.Message))
	}
	for k, v := range entry.Metadata {
		attrs = append(attrs, slog.Any(k, v))
	}

	switch entry.Level {
	case entity.LevelDebug:
		l.console.DebugContext(ctx, entry.Message, attrs...)
	case entity.LevelWarn:
		l.console.WarnContext(ctx, entry.Message, attrs...)
	case entity.LevelError, entity.LevelFatal:
		l.console.ErrorContext(ctx, entry.Message, attrs...)
	default:
		l.console.InfoContext(ctx, entry.Message, attrs...)
	}
}

// persist writes the entry to the store. Failures are local-only: logged to
// the console, never returned, so logging can never abort the caller.
func (l *Logger) persist(ctx context.Context, entry *entity.LogEntry) {
	if l.store == nil {
		return
	}
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := l.store.Save(saveCtx, entry); err != nil {
		l.console.Error("failed to persist log entry",
			slog.String("message", entry.Message),
			slog.Any("error", err))
		return
	}
	metrics.RecordLogPersisted(string(entry.Level))
}
