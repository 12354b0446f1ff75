// Package notifier provides delivery channels for pipeline events. Channels
// are used interchangeably through the notify service; the webhook channel
// posts events to an HTTPS endpoint and the no-op channel is used when
// notifications are disabled.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// WebhookConfig contains configuration for the webhook channel.
type WebhookConfig struct {
	// Enabled indicates whether webhook notifications are enabled
	Enabled bool

	// URL is the endpoint events are posted to
	URL string

	// Timeout is the HTTP request timeout per delivery attempt
	Timeout time.Duration
}

// Validate checks the configuration for a usable enabled channel.
func (c WebhookConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.URL == "" {
		return fmt.Errorf("webhook url is required when enabled")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("webhook timeout must be positive, got %v", c.Timeout)
	}
	return nil
}

// WebhookChannel delivers events as JSON to a configured endpoint.
type WebhookChannel struct {
	config      WebhookConfig
	httpClient  *http.Client
	rateLimiter *RateLimiter
}

// webhookPayload is the JSON body posted for each event.
type webhookPayload struct {
	Event     string         `json:"event"`
	Timestamp string         `json:"timestamp"`
	Payload   map[string]any `json:"payload"`
}

func NewWebhookChannel(config WebhookConfig) *WebhookChannel {
	return &WebhookChannel{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimiter: NewRateLimiter(2.0, 5),
	}
}

func (w *WebhookChannel) Name() string { return "webhook" }

func (w *WebhookChannel) IsEnabled() bool { return w.config.Enabled }

// Send posts one event. Transient failures (5xx) are retried once; rate
// limits honor the Retry-After header.
func (w *WebhookChannel) Send(ctx context.Context, event string, payload map[string]any) error {
	if !w.config.Enabled {
		return ErrChannelDisabled
	}

	if err := w.rateLimiter.Allow(ctx); err != nil {
		return fmt.Errorf("webhook rate limit: %w", err)
	}

	body, err := json.Marshal(webhookPayload{
		Event:     event,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		return fmt.Errorf("webhook marshal payload: %w", err)
	}

	const maxAttempts = 2
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = w.post(ctx, body)
		if lastErr == nil {
			return nil
		}

		if rateLimitErr, ok := asRateLimit(lastErr); ok {
			slog.Warn("webhook rate limited",
				slog.String("event", event),
				slog.Duration("retry_after", rateLimitErr.RetryAfter))
			select {
			case <-time.After(rateLimitErr.RetryAfter):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if !isRetryable(lastErr) {
			return lastErr
		}
	}
	return fmt.Errorf("webhook delivery failed after %d attempts: %w", maxAttempts, lastErr)
}

func (w *WebhookChannel) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.config.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := 2 * time.Second
		if header := resp.Header.Get("Retry-After"); header != "" {
			if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
				retryAfter = time.Duration(secs) * time.Second
			}
		}
		return &RateLimitError{RetryAfter: retryAfter}
	case resp.StatusCode >= 500:
		return &ServerError{StatusCode: resp.StatusCode, Message: resp.Status}
	default:
		return &ClientError{StatusCode: resp.StatusCode, Message: resp.Status}
	}
}
