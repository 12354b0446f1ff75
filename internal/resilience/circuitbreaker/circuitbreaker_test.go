package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
)

func testConfig(name string) Config {
	return Config{
		Name:              name,
		FailureThreshold:  2,
		ResetTimeout:      50 * time.Millisecond,
		HalfOpenSuccesses: 1,
	}
}

var errBoom = errors.New("boom")

func fail(cb *CircuitBreaker) error {
	_, err := cb.Execute(func() (interface{}, error) { return nil, errBoom })
	return err
}

func succeed(cb *CircuitBreaker) error {
	_, err := cb.Execute(func() (interface{}, error) { return "ok", nil })
	return err
}

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	cb := New(testConfig("svc"))

	for i := 0; i < 2; i++ {
		if err := fail(cb); !errors.Is(err, errBoom) {
			t.Fatalf("failure %d: error = %v, want errBoom", i+1, err)
		}
	}
	if !cb.IsOpen() {
		t.Fatalf("state = %v, want open after threshold failures", cb.State())
	}

	invoked := false
	_, err := cb.Execute(func() (interface{}, error) {
		invoked = true
		return nil, nil
	})
	if !errors.Is(err, ErrOpen) {
		t.Errorf("Execute() error = %v, want ErrOpen", err)
	}
	if invoked {
		t.Error("operation invoked while breaker open")
	}
}

func TestCircuitBreaker_SuccessResetsFailureRun(t *testing.T) {
	cb := New(testConfig("svc"))

	if err := fail(cb); !errors.Is(err, errBoom) {
		t.Fatalf("first failure: %v", err)
	}
	if err := succeed(cb); err != nil {
		t.Fatalf("success: %v", err)
	}
	if err := fail(cb); !errors.Is(err, errBoom) {
		t.Fatalf("second failure: %v", err)
	}
	if cb.State() != gobreaker.StateClosed {
		t.Errorf("state = %v, want closed: failures were not consecutive", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb := New(testConfig("svc"))

	fail(cb)
	fail(cb)
	if !cb.IsOpen() {
		t.Fatalf("state = %v, want open", cb.State())
	}

	time.Sleep(60 * time.Millisecond)

	// First call after the reset window is the recovery probe.
	if err := succeed(cb); err != nil {
		t.Fatalf("probe: %v", err)
	}
	if cb.State() != gobreaker.StateClosed {
		t.Errorf("state = %v, want closed after successful probe", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := New(testConfig("svc"))

	fail(cb)
	fail(cb)
	time.Sleep(60 * time.Millisecond)

	if err := fail(cb); !errors.Is(err, errBoom) {
		t.Fatalf("probe: %v", err)
	}
	if !cb.IsOpen() {
		t.Errorf("state = %v, want open after failed probe", cb.State())
	}
	if err := succeed(cb); !errors.Is(err, ErrOpen) {
		t.Errorf("Execute() error = %v, want ErrOpen", err)
	}
}

func TestCircuitBreaker_ErrOpenNamesBreaker(t *testing.T) {
	cb := New(testConfig("payments"))
	fail(cb)
	fail(cb)

	err := fail(cb)
	if !errors.Is(err, ErrOpen) {
		t.Fatalf("error = %v, want ErrOpen", err)
	}
	if got := err.Error(); got != "payments: circuit breaker is open" {
		t.Errorf("error text = %q", got)
	}
}
