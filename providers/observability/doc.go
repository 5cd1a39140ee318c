// Package observability defines the interfaces and semantic conventions used
// for tracing, metrics and structured logging across sagent.
//
// [Provider] composes [Tracer], [Metrics] and [Logger] into a single injectable
// dependency. An agent propagates the active [Provider] and [Span] through a
// [context.Context] with [ContextWithObserver] and [ContextWithSpan]; provider
// clients and HTTP helpers retrieve them with [ObserverFromContext] and
// [SpanFromContext]. Two implementations ship with the module: slogobs (log/slog)
// and otelobs (OpenTelemetry).
package observability
