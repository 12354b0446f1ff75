// Package http wires the poll surface: request middleware plus per-resource
// handler packages for jobs, escalations, logs, and admin operations.
package http

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"intelwire/internal/handler/http/requestid"
	"intelwire/internal/handler/http/respond"
	"intelwire/internal/observability/logging"

	"go.opentelemetry.io/otel/trace"
)

// statusRecorder captures the status code and byte count of a response.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

// Logging logs every handled request through the persistent logger, deriving
// the level from the status code and carrying the request and trace ids.
func Logging(logger *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			opts := []logging.Option{
				logging.WithContext("api"),
				logging.WithRequestID(requestid.FromContext(r.Context())),
			}
			if span := trace.SpanFromContext(r.Context()); span.SpanContext().HasTraceID() {
				opts = append(opts, logging.WithMetadata(map[string]any{
					"trace_id": span.SpanContext().TraceID().String(),
					"bytes":    rec.bytes,
				}))
			}
			logger.LogRequest(r.Context(), r.Method, r.URL.Path, rec.status, time.Since(start), opts...)
		})
	}
}

// Recover turns handler panics into 500 responses instead of crashing the
// process.
func Recover(logger *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					respond.SafeError(w, http.StatusInternalServerError, fmt.Errorf("internal error"))
					logger.Error(r.Context(), "panic recovered in handler",
						logging.WithContext("api"),
						logging.WithRequestID(requestid.FromContext(r.Context())),
						logging.WithMetadata(map[string]any{
							"method": r.Method,
							"path":   r.URL.Path,
							"panic":  fmt.Sprint(rec),
							"stack":  string(debug.Stack()),
						}))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// LimitRequestBody bounds request body size.
func LimitRequestBody(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// Timeout enforces a per-request deadline. Handlers observe it through the
// request context; requests that outlive the deadline get a 503 with a JSON
// body.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, `{"error":"request timeout"}`)
	}
}
