package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const defaultTracerName = "meld"

// TracerConfig configures round-trip tracing.
type TracerConfig struct {
	// TracerName is the name of the tracer (default: "meld").
	TracerName string

	// Provider overrides the global tracer provider.
	Provider trace.TracerProvider
}

// TracerOption configures round-trip tracing.
type TracerOption func(*TracerConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) TracerOption {
	return func(c *TracerConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) TracerOption {
	return func(c *TracerConfig) {
		c.Provider = tp
	}
}

// Tracer starts one span per round trip.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a Tracer. Without WithTracerProvider the global
// OpenTelemetry provider is used; configure it before starting the engine.
func NewTracer(opts ...TracerOption) *Tracer {
	config := TracerConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}
	tp := config.Provider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Tracer{tracer: tp.Tracer(config.TracerName)}
}

// StartRoundTrip starts the span of one dispatch. A nil Tracer returns a
// no-op span and leaves any span already in ctx alone.
func (t *Tracer) StartRoundTrip(ctx context.Context, componentID, componentName string, actions int) (context.Context, trace.Span) {
	if t == nil {
		return ctx, noop.Span{}
	}
	return t.tracer.Start(ctx, "meld.round_trip",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("meld.component_id", componentID),
			attribute.String("meld.component_name", componentName),
			attribute.Int("meld.actions", actions),
		),
	)
}

// EndRoundTrip records the outcome and ends span.
func EndRoundTrip(span trace.Span, status string, err error) {
	if span == nil {
		return
	}
	span.SetAttributes(attribute.String("meld.status", status))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
