package retry

import (
	"context"
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"intelwire/internal/observability/metrics"
)

func fastConfig(attempts int) Config {
	return Config{
		MaxAttempts:   attempts,
		BaseDelay:     time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2.0,
	}
}

func TestExecutor_Do_FirstAttemptSucceeds(t *testing.T) {
	e := NewExecutor(nil)
	calls := 0
	err := e.Do(context.Background(), fastConfig(3), "op", func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestExecutor_Do_RetriesUntilSuccess(t *testing.T) {
	e := NewExecutor(nil)
	calls := 0
	err := e.Do(context.Background(), fastConfig(3), "op", func() error {
		calls++
		if calls < 3 {
			return &HTTPError{StatusCode: 503, Status: "Service Unavailable"}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestExecutor_Do_ExhaustsAttempts(t *testing.T) {
	e := NewExecutor(nil)
	cause := &HTTPError{StatusCode: 500, Status: "Internal Server Error"}
	calls := 0
	err := e.Do(context.Background(), fastConfig(3), "op", func() error {
		calls++
		return cause
	})
	if err == nil {
		t.Fatal("Do() error = nil, want failure")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != 500 {
		t.Errorf("Do() error = %v, want wrapped original", err)
	}
}

func TestExecutor_Do_NonRetryableReturnsImmediately(t *testing.T) {
	e := NewExecutor(nil)
	cause := &HTTPError{StatusCode: 400, Status: "Bad Request"}
	calls := 0
	err := e.Do(context.Background(), fastConfig(3), "op", func() error {
		calls++
		return cause
	})
	if !errors.Is(err, cause) {
		t.Errorf("Do() error = %v, want original unwrapped", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1: client errors are not retried", calls)
	}
}

func TestExecutor_Do_ContextCancelAbortsBackoff(t *testing.T) {
	e := NewExecutor(nil)
	ctx, cancel := context.WithCancel(context.Background())

	cfg := fastConfig(3)
	cfg.BaseDelay = time.Minute
	calls := 0
	err := e.Do(ctx, cfg, "op", func() error {
		calls++
		cancel()
		return &HTTPError{StatusCode: 503, Status: "Service Unavailable"}
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Do() error = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestExecutor_Do_OnRetryCallback(t *testing.T) {
	e := NewExecutor(nil)
	var attempts []int
	cfg := fastConfig(3)
	cfg.OnRetry = func(attempt int, err error) { attempts = append(attempts, attempt) }

	_ = e.Do(context.Background(), cfg, "op", func() error {
		return &HTTPError{StatusCode: 502, Status: "Bad Gateway"}
	})
	if len(attempts) != 2 || attempts[0] != 1 || attempts[1] != 2 {
		t.Errorf("OnRetry attempts = %v, want [1 2]", attempts)
	}
}

func TestExecutor_Do_CountsRetryAttempts(t *testing.T) {
	const op = "flaky fetch"
	before := testutil.ToFloat64(metrics.RetryAttemptsTotal.WithLabelValues(op))

	e := NewExecutor(nil)
	calls := 0
	err := e.Do(context.Background(), fastConfig(3), op, func() error {
		calls++
		if calls < 3 {
			return syscall.ECONNREFUSED
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do err=%v", err)
	}

	after := testutil.ToFloat64(metrics.RetryAttemptsTotal.WithLabelValues(op))
	if got := after - before; got != 2 {
		t.Errorf("retry_attempts_total delta = %v, want 2", got)
	}
}

func TestDelay(t *testing.T) {
	cfg := Config{
		BaseDelay:     100 * time.Millisecond,
		MaxDelay:      time.Second,
		BackoffFactor: 2.0,
	}
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, time.Second},
		{10, time.Second},
	}
	for _, tt := range tests {
		if got := Delay(cfg, tt.attempt); got != tt.want {
			t.Errorf("Delay(attempt=%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestDefaultRetryCondition(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"context canceled", context.Canceled, false},
		{"deadline exceeded", context.DeadlineExceeded, false},
		{"connection refused", syscall.ECONNREFUSED, true},
		{"connection reset", syscall.ECONNRESET, true},
		{"server error", &HTTPError{StatusCode: 500}, true},
		{"bad gateway", &HTTPError{StatusCode: 502}, true},
		{"client error", &HTTPError{StatusCode: 404}, false},
		{"throttled", &HTTPError{StatusCode: 429}, false},
		{"plain error", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DefaultRetryCondition(tt.err); got != tt.want {
				t.Errorf("DefaultRetryCondition(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRetryOnThrottleOrServerError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"throttled", &HTTPError{StatusCode: 429}, true},
		{"server error", &HTTPError{StatusCode: 503}, true},
		{"client error", &HTTPError{StatusCode: 404}, false},
		{"plain error", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RetryOnThrottleOrServerError(tt.err); got != tt.want {
				t.Errorf("RetryOnThrottleOrServerError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
