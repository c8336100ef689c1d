// Package tracking holds the OpenTelemetry instrumentation of the API client.
// Instruments and tracers are resolved from the global providers, so they
// follow whatever the observability package (or a test) installs.
package tracking

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Span names
const (
	SpanDispatch = "httpclient.dispatch"
	SpanRefresh  = "httpclient.refresh"
)

const (
	attrAttempt  = "smash.dispatch.attempt"
	attrAttempts = "smash.dispatch.refreshes"
	attrCycle    = "smash.refresh.cycle"
)

func tracer() oteltrace.Tracer {
	return otel.Tracer(instrumentationName)
}

// StartDispatch starts the span covering one logical call, retries included.
func StartDispatch(ctx context.Context, service, method string) (context.Context, oteltrace.Span) {
	attrs := []attribute.KeyValue{attribute.String(attrHTTPMethod, method)}
	if service != "" {
		attrs = append(attrs, attribute.String(attrService, service))
	}
	return tracer().Start(ctx, SpanDispatch,
		oteltrace.WithSpanKind(oteltrace.SpanKindClient),
		oteltrace.WithAttributes(attrs...),
	)
}

// EndDispatch records the final status and refresh count, then ends span.
func EndDispatch(span oteltrace.Span, status, refreshes int, err error) {
	if status != 0 {
		span.SetAttributes(attribute.Int(attrHTTPStatusCode, status))
	}
	span.SetAttributes(attribute.Int(attrAttempts, refreshes))
	endWithError(span, err)
}

// StartRefresh starts the span of one refresh cycle.
func StartRefresh(ctx context.Context, attempt int) (context.Context, oteltrace.Span) {
	return tracer().Start(ctx, SpanRefresh,
		oteltrace.WithSpanKind(oteltrace.SpanKindInternal),
		oteltrace.WithAttributes(attribute.Int(attrAttempt, attempt)),
	)
}

// EndRefresh records the cycle number and outcome, then ends span.
func EndRefresh(span oteltrace.Span, cycle uint64, outcome string, err error) {
	span.SetAttributes(
		attribute.Int64(attrCycle, int64(cycle)),
		attribute.String(attrRefreshOutcome, outcome),
	)
	endWithError(span, err)
}

func endWithError(span oteltrace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
