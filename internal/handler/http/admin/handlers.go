// Package admin exposes operational endpoints: circuit breaker inspection and
// reset, and manual pipeline runs.
package admin

import (
	"context"
	"net/http"

	"intelwire/internal/handler/http/respond"
	"intelwire/internal/observability/logging"
	"intelwire/internal/resilience/circuitbreaker"
)

// PipelineRunner starts one orchestration run. Implemented by the
// intelligence orchestrator.
type PipelineRunner interface {
	Run(ctx context.Context) error
}

// RunnerFunc adapts a function to the PipelineRunner interface.
type RunnerFunc func(ctx context.Context) error

func (f RunnerFunc) Run(ctx context.Context) error { return f(ctx) }

// Register wires the admin routes into the mux. runner may be nil when the
// API process cannot trigger runs.
func Register(mux *http.ServeMux, breakers *circuitbreaker.Registry, runner PipelineRunner, logger *logging.Logger) {
	mux.Handle("GET /admin/breakers", BreakerStatsHandler{breakers})
	mux.Handle("POST /admin/breakers/reset", BreakerResetHandler{breakers, logger})
	if runner != nil {
		mux.Handle("POST /intelligence/run", TriggerRunHandler{runner, logger})
	}
}

type BreakerStatsHandler struct{ Breakers *circuitbreaker.Registry }

func (h BreakerStatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]any{"breakers": h.Breakers.Stats()})
}

// BreakerResetHandler clears every tracked breaker back to closed. This is a
// recovery hatch, not part of normal operation, so it is logged as a security
// event.
type BreakerResetHandler struct {
	Breakers *circuitbreaker.Registry
	Logger   *logging.Logger
}

func (h BreakerResetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.Breakers.Reset()
	h.Logger.LogSecurity(r.Context(), "breaker_reset", "all circuit breakers reset by operator", "medium")
	respond.JSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// TriggerRunHandler starts an orchestration run in the background and returns
// immediately; progress is polled through the jobs API.
type TriggerRunHandler struct {
	Runner PipelineRunner
	Logger *logging.Logger
}

func (h TriggerRunHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	go func() {
		// Detached from the request lifetime on purpose.
		if err := h.Runner.Run(context.Background()); err != nil {
			h.Logger.Error(context.Background(), "manually triggered run failed",
				logging.WithContext("pipeline"),
				logging.WithError(err))
		}
	}()
	respond.JSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}
