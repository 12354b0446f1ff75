// Package tracing provides OpenTelemetry tracing integration: a process-wide
// tracer handle, an HTTP middleware that creates server spans, and a tracer
// provider setup for the composition roots.
package tracing
