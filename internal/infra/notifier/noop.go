package notifier

import "context"

// NoOpChannel is a no-operation channel used when notifications are
// disabled, so callers never need nil checks.
type NoOpChannel struct{}

func NewNoOpChannel() *NoOpChannel {
	return &NoOpChannel{}
}

func (n *NoOpChannel) Name() string { return "noop" }

func (n *NoOpChannel) IsEnabled() bool { return false }

func (n *NoOpChannel) Send(ctx context.Context, event string, payload map[string]any) error {
	return nil
}
