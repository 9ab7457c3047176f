package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/xraph/cascade"

// Tracer provides OpenTelemetry tracing for Cascade.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a new Cascade tracer.
func NewTracer() *Tracer {
	return &Tracer{
		tracer: otel.Tracer(tracerName),
	}
}

// StartDispatchSpan starts a new span for one event dispatch.
func (t *Tracer) StartDispatchSpan(ctx context.Context, eventID, eventType, tenantID string, depth int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "cascade.dispatch",
		trace.WithAttributes(
			attribute.String("cascade.event_id", eventID),
			attribute.String("cascade.event_type", eventType),
			attribute.String("cascade.tenant_id", tenantID),
			attribute.Int("cascade.depth", depth),
		),
	)
}

// EndDispatchSpan ends a dispatch span with result attributes.
func (t *Tracer) EndDispatchSpan(span trace.Span, executed int, duplicate bool, err string) {
	span.SetAttributes(
		attribute.Int("cascade.rules_executed", executed),
		attribute.Bool("cascade.duplicate", duplicate),
	)
	if err != "" {
		span.SetAttributes(attribute.String("cascade.error", err))
	}
	span.End()
}
