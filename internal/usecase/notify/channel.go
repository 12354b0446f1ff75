// Package notify dispatches pipeline events to delivery channels. Dispatch
// is fire-and-forget: sends run in background goroutines with a bounded
// worker pool, failures are logged and counted but never surface to the
// caller.
package notify

import "context"

// Channel is one notification delivery target. Implementations handle their
// own rate limiting and retries and must be safe for concurrent use.
type Channel interface {
	// Name returns the channel identifier used for logging and metrics.
	Name() string

	// IsEnabled reports whether the channel should receive events.
	IsEnabled() bool

	// Send delivers one event. Implementations must respect context
	// cancellation and apply their own rate limiting.
	Send(ctx context.Context, event string, payload map[string]any) error
}

// Sink is the hand-off surface the rest of the system uses to emit events.
type Sink interface {
	// Notify dispatches an event to every enabled channel without blocking.
	// It reports whether the event was accepted for delivery by at least
	// one channel; actual delivery is asynchronous and best-effort.
	Notify(ctx context.Context, event string, payload map[string]any) bool
}
