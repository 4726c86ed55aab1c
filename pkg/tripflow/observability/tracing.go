package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Spans emits OpenTelemetry spans for runs and node executions.
// Uses the global tracer provider; without one configured the spans
// are no-ops.
type Spans struct {
	tracer trace.Tracer
}

// NewSpans returns a span emitter bound to the global tracer provider.
// Configure the provider before calling:
//
//	otel.SetTracerProvider(yourProvider)
func NewSpans() *Spans {
	return &Spans{tracer: otel.Tracer("tripflow")}
}

// StartRunSpan opens the root span for a planning run.
func (s *Spans) StartRunSpan(ctx context.Context, runID string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "tripflow.run",
		trace.WithAttributes(
			attribute.String("run.id", runID),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartNodeSpan opens a child span for one node execution.
func (s *Spans) StartNodeSpan(ctx context.Context, nodeID string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "tripflow.node."+nodeID,
		trace.WithAttributes(
			attribute.String("node.id", nodeID),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpan completes a span, recording the error if any.
func (s *Spans) EndSpan(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// AddSpanEvent attaches an event to the span in ctx, if recording.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
