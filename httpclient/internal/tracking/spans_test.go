package tracking

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)

	t.Cleanup(func() {
		_ = provider.Shutdown(context.Background())
		otel.SetTracerProvider(previous)
	})
	return recorder
}

func attrMap(kvs []attribute.KeyValue) map[string]any {
	out := make(map[string]any, len(kvs))
	for _, kv := range kvs {
		out[string(kv.Key)] = kv.Value.AsInterface()
	}
	return out
}

func TestDispatchSpan(t *testing.T) {
	recorder := setupTestTracer(t)

	_, span := StartDispatch(context.Background(), "transfer", "POST")
	EndDispatch(span, 201, 1, nil)

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	s := ended[0]

	assert.Equal(t, SpanDispatch, s.Name())
	assert.Equal(t, instrumentationName, s.InstrumentationScope().Name)
	assert.Equal(t, codes.Unset, s.Status().Code)

	attrs := attrMap(s.Attributes())
	assert.Equal(t, "POST", attrs[attrHTTPMethod])
	assert.Equal(t, "transfer", attrs[attrService])
	assert.Equal(t, int64(201), attrs[attrHTTPStatusCode])
	assert.Equal(t, int64(1), attrs[attrAttempts])
}

func TestRefreshSpanNestsUnderDispatch(t *testing.T) {
	recorder := setupTestTracer(t)

	ctx, dispatch := StartDispatch(context.Background(), "", "GET")
	_, refresh := StartRefresh(ctx, 0)
	EndRefresh(refresh, 3, OutcomeFailed, errors.New("auth server down"))
	EndDispatch(dispatch, 0, 0, errors.New("auth server down"))

	ended := recorder.Ended()
	require.Len(t, ended, 2)

	r := ended[0]
	assert.Equal(t, SpanRefresh, r.Name())
	assert.Equal(t, ended[1].SpanContext().SpanID(), r.Parent().SpanID())
	assert.Equal(t, codes.Error, r.Status().Code)
	assert.Equal(t, "auth server down", r.Status().Description)
	require.Len(t, r.Events(), 1)

	attrs := attrMap(r.Attributes())
	assert.Equal(t, int64(3), attrs[attrCycle])
	assert.Equal(t, OutcomeFailed, attrs[attrRefreshOutcome])
	assert.Equal(t, int64(0), attrs[attrAttempt])

	_, hasService := attrMap(ended[1].Attributes())[attrService]
	assert.False(t, hasService)
}
