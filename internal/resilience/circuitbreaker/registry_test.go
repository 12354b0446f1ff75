package circuitbreaker

import (
	"testing"
	"time"

	"github.com/sony/gobreaker"
)

func TestRegistry_ForResourceReturnsSameBreaker(t *testing.T) {
	r := NewRegistry(DefaultConfig(""))

	a := r.ForResource("api.example.com")
	b := r.ForResource("api.example.com")
	if a != b {
		t.Error("same resource returned different breakers")
	}
	if a.Name() != "api.example.com" {
		t.Errorf("Name() = %q, want resource key", a.Name())
	}

	c := r.ForResource("other.example.com")
	if a == c {
		t.Error("distinct resources share a breaker")
	}
}

func TestRegistry_ResetClearsState(t *testing.T) {
	r := NewRegistry(Config{
		FailureThreshold:  1,
		ResetTimeout:      time.Minute,
		HalfOpenSuccesses: 1,
	})

	cb := r.ForResource("svc")
	fail(cb)
	if !cb.IsOpen() {
		t.Fatalf("state = %v, want open", cb.State())
	}

	r.Reset()

	fresh := r.ForResource("svc")
	if fresh == cb {
		t.Error("Reset() kept the old breaker")
	}
	if fresh.State() != gobreaker.StateClosed {
		t.Errorf("state after reset = %v, want closed", fresh.State())
	}
}

func TestRegistry_Stats(t *testing.T) {
	r := NewRegistry(Config{
		FailureThreshold:  2,
		ResetTimeout:      time.Minute,
		HalfOpenSuccesses: 1,
	})
	succeed(r.ForResource("healthy"))
	fail(r.ForResource("degraded"))

	stats := r.Stats()
	if len(stats) != 2 {
		t.Fatalf("len(stats) = %d, want 2", len(stats))
	}

	byName := make(map[string]Stats, len(stats))
	for _, s := range stats {
		byName[s.Name] = s
	}
	if got := byName["healthy"]; got.State != "closed" || got.TotalSuccesses != 1 {
		t.Errorf("healthy stats = %+v", got)
	}
	if got := byName["degraded"]; got.State != "closed" || got.TotalFailures != 1 || got.ConsecutiveFailures != 1 {
		t.Errorf("degraded stats = %+v", got)
	}
}
