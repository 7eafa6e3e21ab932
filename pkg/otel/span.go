package otel

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// StartSessionSpan starts a span covering one relay session
func StartSessionSpan(ctx context.Context, sessionID string) (context.Context, trace.Span) {
	tracer := otel.Tracer("intake-agent")
	return tracer.Start(ctx, "relay.session",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
		),
	)
}

// WithFunctionSpan wraps an agent function call dispatch with a span
func WithFunctionSpan(ctx context.Context, name, callID string, fn func(context.Context) (string, error)) (string, error) {
	tracer := otel.Tracer("intake-agent")

	spanCtx, span := tracer.Start(ctx, fmt.Sprintf("function.%s", name),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("function.name", name),
			attribute.String("function.call_id", callID),
		),
	)
	defer span.End()

	result, err := fn(spanCtx)
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("function.error", true))
	}
	return result, err
}

// WithServiceSpan wraps a backend service call with a client span
func WithServiceSpan(ctx context.Context, service, operation string, fn func(context.Context) error) error {
	tracer := otel.Tracer("intake-agent")

	spanCtx, span := tracer.Start(ctx, fmt.Sprintf("%s.%s", service, operation),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("service.name", service),
			attribute.String("service.operation", operation),
		),
	)
	defer span.End()

	err := fn(spanCtx)
	if err != nil {
		span.RecordError(err)
	}
	return err
}
