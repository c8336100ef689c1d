// Package trace carries the correlation identifiers attached to every outbound
// API call: the X-Request-ID header and, optionally, W3C trace context.
package trace

import (
	"context"
	crand "crypto/rand"
	"encoding/hex"
	"net/http"

	"github.com/google/uuid"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// contextKey is the type for context keys to avoid collisions
type contextKey string

const (
	requestIDKey   contextKey = "request_id"
	traceParentKey contextKey = "traceparent"
	traceStateKey  contextKey = "tracestate"

	// HeaderXRequestID is the header used to correlate a call with server logs
	HeaderXRequestID = "X-Request-ID"
	// HeaderTraceParent is the W3C trace context header name
	HeaderTraceParent = "traceparent"
	// HeaderTraceState is the W3C trace context "tracestate" header name
	HeaderTraceState = "tracestate"
)

// WithRequestID stores a request id in the context. Calls made with the
// returned context reuse it instead of generating a new one.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the request id stored in ctx, if any.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if id, ok := ctx.Value(requestIDKey).(string); ok && id != "" {
		return id, true
	}
	return "", false
}

// EnsureRequestID returns the request id stored in ctx or a new UUID.
func EnsureRequestID(ctx context.Context) string {
	if id, ok := RequestIDFromContext(ctx); ok {
		return id
	}
	return uuid.NewString()
}

// WithTraceParent adds a W3C traceparent value to the context
func WithTraceParent(ctx context.Context, traceParent string) context.Context {
	return context.WithValue(ctx, traceParentKey, traceParent)
}

// ParentFromContext returns the traceparent for ctx. An active OpenTelemetry
// span wins over a value stored with WithTraceParent.
func ParentFromContext(ctx context.Context) (string, bool) {
	if sc := oteltrace.SpanContextFromContext(ctx); sc.IsValid() {
		return FormatTraceParent(sc), true
	}
	if tp, ok := ctx.Value(traceParentKey).(string); ok && tp != "" {
		return tp, true
	}
	return "", false
}

// WithTraceState adds a W3C tracestate value to the context
func WithTraceState(ctx context.Context, traceState string) context.Context {
	return context.WithValue(ctx, traceStateKey, traceState)
}

// StateFromContext returns a tracestate from context if present
func StateFromContext(ctx context.Context) (string, bool) {
	if sc := oteltrace.SpanContextFromContext(ctx); sc.IsValid() {
		if ts := sc.TraceState().String(); ts != "" {
			return ts, true
		}
	}
	if ts, ok := ctx.Value(traceStateKey).(string); ok && ts != "" {
		return ts, true
	}
	return "", false
}

// FormatTraceParent renders sc as a version 00 traceparent header value.
func FormatTraceParent(sc oteltrace.SpanContext) string {
	tid := sc.TraceID()
	sid := sc.SpanID()
	flags := "00"
	if sc.IsSampled() {
		flags = "01"
	}
	return "00-" + hex.EncodeToString(tid[:]) + "-" + hex.EncodeToString(sid[:]) + "-" + flags
}

// GenerateTraceParent creates a minimal sampled W3C traceparent header value.
// Format: version(2)-trace-id(32)-span-id(16)-flags(2), e.g., "00-<32>-<16>-01"
func GenerateTraceParent() string {
	var tid oteltrace.TraceID
	var sid oteltrace.SpanID
	_, _ = crand.Read(tid[:])
	_, _ = crand.Read(sid[:])
	// all-zero ids are invalid
	if !tid.IsValid() {
		tid[len(tid)-1] = 0x01
	}
	if !sid.IsValid() {
		sid[len(sid)-1] = 0x01
	}
	return FormatTraceParent(oteltrace.NewSpanContext(oteltrace.SpanContextConfig{
		TraceID:    tid,
		SpanID:     sid,
		TraceFlags: oteltrace.FlagsSampled,
	}))
}

// Inject sets the request id header on h unless the caller already set one
// and returns the id in use. With w3c, traceparent and tracestate are added
// the same way; a traceparent is generated when ctx carries none.
func Inject(ctx context.Context, h http.Header, w3c bool) string {
	id := h.Get(HeaderXRequestID)
	if id == "" {
		id = EnsureRequestID(ctx)
		h.Set(HeaderXRequestID, id)
	}

	if !w3c || h.Get(HeaderTraceParent) != "" {
		return id
	}
	tp, ok := ParentFromContext(ctx)
	if !ok {
		tp = GenerateTraceParent()
	}
	h.Set(HeaderTraceParent, tp)
	if ts, ok := StateFromContext(ctx); ok && h.Get(HeaderTraceState) == "" {
		h.Set(HeaderTraceState, ts)
	}
	return id
}
