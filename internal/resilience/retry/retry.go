// Package retry provides bounded retry with deterministic exponential
// backoff. It helps handle transient failures gracefully by automatically
// retrying failed operations, deciding per-error whether a retry is worth it.
package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
	"time"

	"intelwire/internal/observability/logging"
	"intelwire/internal/observability/metrics"
)

// Config holds the configuration for one retried operation.
type Config struct {
	// MaxAttempts is the total number of attempts, including the first
	MaxAttempts int

	// BaseDelay is the delay before the first retry
	BaseDelay time.Duration

	// MaxDelay caps the computed backoff delay
	MaxDelay time.Duration

	// BackoffFactor is the multiplier for exponential backoff
	BackoffFactor float64

	// RetryCondition decides per-error whether to retry.
	// Nil means DefaultRetryCondition.
	RetryCondition func(error) bool

	// OnRetry is invoked before each backoff sleep with the attempt number
	// that just failed and its error. Optional.
	OnRetry func(attempt int, err error)
}

// DefaultConfig returns a general-purpose retry configuration.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:   3,
		BaseDelay:     1 * time.Second,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2.0,
	}
}

// CrawlConfig returns configuration for remote crawl API calls.
// Crawls are slow, so the attempt budget is kept small.
func CrawlConfig() Config {
	return Config{
		MaxAttempts:   2,
		BaseDelay:     1 * time.Second,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2.0,
	}
}

// GenerateConfig returns configuration for text-generation API calls.
// The API is rate-limited, so only throttling and server errors are retried.
func GenerateConfig() Config {
	return Config{
		MaxAttempts:    3,
		BaseDelay:      2 * time.Second,
		MaxDelay:       10 * time.Second,
		BackoffFactor:  2.0,
		RetryCondition: RetryOnThrottleOrServerError,
	}
}

// DBConfig returns configuration for database operations.
// Fast retry for transient connection issues.
func DBConfig() Config {
	return Config{
		MaxAttempts:   3,
		BaseDelay:     100 * time.Millisecond,
		MaxDelay:      1 * time.Second,
		BackoffFactor: 2.0,
	}
}

// Executor runs fallible operations with bounded attempts and exponential
// backoff. Delay growth is strictly exponential and deterministic (no
// jitter): delay = min(BaseDelay * BackoffFactor^(attempt-1), MaxDelay).
type Executor struct {
	logger *logging.Logger
}

// NewExecutor creates an Executor. A nil logger falls back to a no-op.
func NewExecutor(logger *logging.Logger) *Executor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Executor{logger: logger}
}

// Do runs fn up to cfg.MaxAttempts times. On success the result is returned
// immediately; retries are invisible to the caller except through elapsed
// time and logs. After the final failed attempt the last error is re-raised,
// wrapped with the attempt count.
func (e *Executor) Do(ctx context.Context, cfg Config, name string, fn func() error) error {
	condition := cfg.RetryCondition
	if condition == nil {
		condition = DefaultRetryCondition
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		start := time.Now()
		lastErr = fn()

		if lastErr == nil {
			e.logger.LogPerformance(ctx, name, time.Since(start),
				logging.WithMetadata(map[string]any{"attempt": attempt}))
			return nil
		}

		willRetry := attempt < cfg.MaxAttempts && condition(lastErr)
		e.logger.Warn(ctx, fmt.Sprintf("%s failed on attempt %d/%d", name, attempt, cfg.MaxAttempts),
			logging.WithError(lastErr),
			logging.WithMetadata(map[string]any{
				"attempt":    attempt,
				"will_retry": willRetry,
			}))

		if !willRetry {
			if !condition(lastErr) {
				return lastErr
			}
			break
		}

		metrics.RecordRetryAttempt(name)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, lastErr)
		}

		select {
		case <-time.After(Delay(cfg, attempt)):
		case <-ctx.Done():
			return fmt.Errorf("retry aborted: %w", ctx.Err())
		}
	}

	e.logger.Error(ctx, fmt.Sprintf("%s failed after %d attempts", name, cfg.MaxAttempts),
		logging.WithError(lastErr))
	return fmt.Errorf("%s failed after %d attempts: %w", name, cfg.MaxAttempts, lastErr)
}

// Delay returns the backoff delay applied after the given failed attempt
// (1-based). Exposed for tests; the growth is a documented, observable
// property.
func Delay(cfg Config, attempt int) time.Duration {
	delay := cfg.BaseDelay
	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * cfg.BackoffFactor)
		if delay >= cfg.MaxDelay {
			return cfg.MaxDelay
		}
	}
	if delay > cfg.MaxDelay {
		return cfg.MaxDelay
	}
	return delay
}

// DefaultRetryCondition reports whether an error is worth retrying:
// connection reset/refused, unreachable or unresolved hosts, network
// timeouts, and HTTP 5xx responses.
func DefaultRetryCondition(err error) bool {
	if err == nil {
		return false
	}

	// Context errors are never retryable
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ETIMEDOUT) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return true
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= 500 && httpErr.StatusCode < 600
	}

	return false
}

// RetryOnThrottleOrServerError retries only HTTP 429 and 5xx responses.
func RetryOnThrottleOrServerError(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.StatusCode == http.StatusTooManyRequests {
			return true
		}
		return httpErr.StatusCode >= 500 && httpErr.StatusCode < 600
	}
	return false
}

// HTTPError represents a non-2xx HTTP response, surfaced as an error so
// retry conditions can branch on the status code.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Status)
}
