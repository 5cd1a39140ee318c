// Package otelobs adapts OpenTelemetry tracing and metrics to
// observability.Provider. Log calls go to a slog.Logger and are also recorded
// as events on the active OpenTelemetry span.
package otelobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/leofalp/sagent/providers/observability"
)

const instrumentationName = "github.com/leofalp/sagent"

// Option configures an Observer.
type Option func(*Observer)

// WithTracerProvider overrides the global tracer provider.
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(o *Observer) {
		o.tracer = provider.Tracer(instrumentationName)
	}
}

// WithMeterProvider overrides the global meter provider.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(o *Observer) {
		o.meter = provider.Meter(instrumentationName)
	}
}

// WithLogger sets the logger used for Trace/Debug/Info/Warn/Error.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Observer) {
		o.logger = logger
	}
}

// Observer implements observability.Provider with OpenTelemetry.
type Observer struct {
	tracer trace.Tracer
	meter  metric.Meter
	logger *slog.Logger

	mu         sync.Mutex
	counters   map[string]metric.Int64Counter
	histograms map[string]metric.Float64Histogram
}

var _ observability.Provider = (*Observer)(nil)

// New builds an Observer from the global OpenTelemetry providers unless
// overridden with options.
func New(opts ...Option) *Observer {
	o := &Observer{
		tracer:     otel.GetTracerProvider().Tracer(instrumentationName),
		meter:      otel.GetMeterProvider().Meter(instrumentationName),
		logger:     slog.Default(),
		counters:   make(map[string]metric.Int64Counter),
		histograms: make(map[string]metric.Float64Histogram),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// --- TRACING ---

func (o *Observer) StartSpan(ctx context.Context, name string, attrs ...observability.Attribute) (context.Context, observability.Span) {
	ctx, otelSpan := o.tracer.Start(ctx, name, trace.WithAttributes(toOtel(attrs)...))
	wrapped := &span{span: otelSpan}
	return observability.ContextWithSpan(ctx, wrapped), wrapped
}

type span struct {
	span trace.Span
}

func (s *span) End() { s.span.End() }

func (s *span) SetAttributes(attrs ...observability.Attribute) {
	s.span.SetAttributes(toOtel(attrs)...)
}

func (s *span) SetStatus(code observability.StatusCode, description string) {
	switch code {
	case observability.StatusOK:
		s.span.SetStatus(codes.Ok, description)
	case observability.StatusError:
		s.span.SetStatus(codes.Error, description)
	default:
		s.span.SetStatus(codes.Unset, description)
	}
}

func (s *span) RecordError(err error) {
	if err != nil {
		s.span.RecordError(err)
	}
}

func (s *span) AddEvent(name string, attrs ...observability.Attribute) {
	s.span.AddEvent(name, trace.WithAttributes(toOtel(attrs)...))
}

// --- METRICS ---

func (o *Observer) Counter(name string) observability.Counter {
	o.mu.Lock()
	defer o.mu.Unlock()

	instrument, ok := o.counters[name]
	if !ok {
		var err error
		instrument, err = o.meter.Int64Counter(name)
		if err != nil {
			o.logger.Warn("otel counter unavailable", "metric", name, "error", err)
			return noopInstrument{}
		}
		o.counters[name] = instrument
	}
	return counter{instrument: instrument}
}

func (o *Observer) Histogram(name string) observability.Histogram {
	o.mu.Lock()
	defer o.mu.Unlock()

	instrument, ok := o.histograms[name]
	if !ok {
		var err error
		instrument, err = o.meter.Float64Histogram(name)
		if err != nil {
			o.logger.Warn("otel histogram unavailable", "metric", name, "error", err)
			return noopInstrument{}
		}
		o.histograms[name] = instrument
	}
	return histogram{instrument: instrument}
}

type counter struct {
	instrument metric.Int64Counter
}

func (c counter) Add(ctx context.Context, value int64, attrs ...observability.Attribute) {
	c.instrument.Add(ctx, value, metric.WithAttributes(toOtel(attrs)...))
}

type histogram struct {
	instrument metric.Float64Histogram
}

func (h histogram) Record(ctx context.Context, value float64, attrs ...observability.Attribute) {
	h.instrument.Record(ctx, value, metric.WithAttributes(toOtel(attrs)...))
}

type noopInstrument struct{}

func (noopInstrument) Add(context.Context, int64, ...observability.Attribute)      {}
func (noopInstrument) Record(context.Context, float64, ...observability.Attribute) {}

// --- LOGGING ---

func (o *Observer) Trace(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.log(ctx, slog.LevelDebug-4, msg, attrs)
}

func (o *Observer) Debug(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.log(ctx, slog.LevelDebug, msg, attrs)
}

func (o *Observer) Info(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.log(ctx, slog.LevelInfo, msg, attrs)
}

func (o *Observer) Warn(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.log(ctx, slog.LevelWarn, msg, attrs)
}

func (o *Observer) Error(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.log(ctx, slog.LevelError, msg, attrs)
}

func (o *Observer) log(ctx context.Context, level slog.Level, msg string, attrs []observability.Attribute) {
	if active := trace.SpanFromContext(ctx); active.IsRecording() {
		active.AddEvent(msg, trace.WithAttributes(append(toOtel(attrs), attribute.String("log.level", level.String()))...))
	}

	slogAttrs := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		slogAttrs = append(slogAttrs, slog.Any(attr.Key, attr.Value))
	}
	o.logger.LogAttrs(ctx, level, msg, slogAttrs...)
}

func toOtel(attrs []observability.Attribute) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		switch value := attr.Value.(type) {
		case string:
			out = append(out, attribute.String(attr.Key, value))
		case int:
			out = append(out, attribute.Int(attr.Key, value))
		case int64:
			out = append(out, attribute.Int64(attr.Key, value))
		case float64:
			out = append(out, attribute.Float64(attr.Key, value))
		case bool:
			out = append(out, attribute.Bool(attr.Key, value))
		case time.Duration:
			out = append(out, attribute.Int64(attr.Key+"_ms", value.Milliseconds()))
		default:
			out = append(out, attribute.String(attr.Key, fmt.Sprint(value)))
		}
	}
	return out
}
