package circuitbreaker

import (
	"sync"
	"time"
)

// Stats is a point-in-time snapshot of one tracked breaker, exposed for
// monitoring endpoints.
type Stats struct {
	Name                 string    `json:"name"`
	State                string    `json:"state"`
	Requests             uint32    `json:"requests"`
	TotalSuccesses       uint32    `json:"total_successes"`
	TotalFailures        uint32    `json:"total_failures"`
	ConsecutiveSuccesses uint32    `json:"consecutive_successes"`
	ConsecutiveFailures  uint32    `json:"consecutive_failures"`
	ObservedAt           time.Time `json:"observed_at"`
}

// Registry tracks one breaker per named resource. Breakers are created
// lazily on first use and live for the process lifetime; Reset is the only
// way to clear them.
type Registry struct {
	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
	defaults Config
}

// NewRegistry creates a registry whose breakers inherit the given defaults.
// The per-breaker name is always taken from the lookup key.
func NewRegistry(defaults Config) *Registry {
	return &Registry{
		breakers: make(map[string]*CircuitBreaker),
		defaults: defaults,
	}
}

// ForResource returns the breaker tracked under the given name, creating it
// in the closed state on first use.
func (r *Registry) ForResource(name string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, ok := r.breakers[name]; ok {
		return cb
	}
	cfg := r.defaults
	cfg.Name = name
	cb := New(cfg)
	r.breakers[name] = cb
	return cb
}

// Reset clears all tracked breakers back to the initial closed state. This
// is an administrative action for recovery and testing, not part of normal
// request flow.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.breakers = make(map[string]*CircuitBreaker)
}

// Stats returns a snapshot of every tracked breaker.
func (r *Registry) Stats() []Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	stats := make([]Stats, 0, len(r.breakers))
	for name, cb := range r.breakers {
		counts := cb.Counts()
		stats = append(stats, Stats{
			Name:                 name,
			State:                cb.State().String(),
			Requests:             counts.Requests,
			TotalSuccesses:       counts.TotalSuccesses,
			TotalFailures:        counts.TotalFailures,
			ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
			ConsecutiveFailures:  counts.ConsecutiveFailures,
			ObservedAt:           now,
		})
	}
	return stats
}
