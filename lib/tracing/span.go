package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/paddock/raceline"

// Common attribute keys for ingestion spans.
var (
	AttrJobType  = attribute.Key("raceline.job_type")
	AttrEntityID = attribute.Key("raceline.entity_id")
	AttrAttempts = attribute.Key("raceline.attempts")
)

// StartSpan creates a new span as a child of any existing span in ctx.
//
// Usage:
//
//	ctx, endSpan := tracing.StartSpan(ctx, "poll.odds", tracing.AttrEntityID.String(id))
//	defer endSpan()
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func()) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, func() { span.End() }
}

// RecordSpanError records err on the current span and sets status to Error.
func RecordSpanError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// SetSpanAttributes adds attributes to the current span in ctx.
func SetSpanAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).SetAttributes(attrs...)
}
