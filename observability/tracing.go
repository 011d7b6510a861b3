package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/xraph/conduit"

// Tracer provides OpenTelemetry tracing for Conduit.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a new Conduit tracer.
func NewTracer() *Tracer {
	return &Tracer{
		tracer: otel.Tracer(tracerName),
	}
}

// StartRequestSpan starts a span covering one endpoint request.
func (t *Tracer) StartRequestSpan(ctx context.Context, endpointID, method, path string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "conduit.request",
		trace.WithAttributes(
			attribute.String("conduit.endpoint_id", endpointID),
			attribute.String("http.method", method),
			attribute.String("http.route", path),
		),
	)
}

// EndRequestSpan ends a request span with the response status.
func (t *Tracer) EndRequestSpan(span trace.Span, status int) {
	span.SetAttributes(attribute.Int("http.status_code", status))
	span.End()
}

// StartDispatchSpan starts a span covering one delivery attempt.
func (t *Tracer) StartDispatchSpan(ctx context.Context, itemID, webhookID, event string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "conduit.dispatch",
		trace.WithAttributes(
			attribute.String("conduit.item_id", itemID),
			attribute.String("conduit.webhook_id", webhookID),
			attribute.String("conduit.event", event),
		),
	)
}

// EndDispatchSpan ends a dispatch span with result attributes.
func (t *Tracer) EndDispatchSpan(span trace.Span, statusCode int, latencyMs int64, err string) {
	span.SetAttributes(
		attribute.Int("http.status_code", statusCode),
		attribute.Int64("conduit.latency_ms", latencyMs),
	)
	if err != "" {
		span.SetAttributes(attribute.String("conduit.error", err))
	}
	span.End()
}
