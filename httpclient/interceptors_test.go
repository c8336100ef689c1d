package httpclient

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smashsdk/sdk-core/trace"
)

const interceptorTarget = "https://transfer.smash.example/v1/transfers"

func newInterceptedRequest(t *testing.T, preset http.Header) *http.Request {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, interceptorTarget, http.NoBody)
	require.NoError(t, err)
	for k, values := range preset {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	return req
}

func TestNewRequestIDInterceptor(t *testing.T) {
	tests := []struct {
		name      string
		ctxID     string
		preset    http.Header
		want      string
		generated bool
	}{
		{name: "from_context", ctxID: "transfer-upload-1", want: "transfer-upload-1"},
		{name: "caller_header_kept", ctxID: "ignored", preset: http.Header{http.CanonicalHeaderKey(HeaderXRequestID): {"caller-7"}}, want: "caller-7"},
		{name: "generated", generated: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			if tt.ctxID != "" {
				ctx = WithRequestID(ctx, tt.ctxID)
			}
			req := newInterceptedRequest(t, tt.preset)

			require.NoError(t, NewRequestIDInterceptor()(ctx, req))

			got := req.Header.Get(HeaderXRequestID)
			if tt.generated {
				assert.Len(t, got, 36)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewRequestIDInterceptorFor(t *testing.T) {
	ctx := WithRequestID(context.Background(), "batch-42")

	t.Run("custom_header_only", func(t *testing.T) {
		req := newInterceptedRequest(t, nil)
		require.NoError(t, NewRequestIDInterceptorFor("X-Correlation-ID")(ctx, req))

		assert.Equal(t, "batch-42", req.Header.Get("X-Correlation-ID"))
		assert.Empty(t, req.Header.Get(HeaderXRequestID))
	})

	t.Run("empty_name_uses_default", func(t *testing.T) {
		req := newInterceptedRequest(t, nil)
		require.NoError(t, NewRequestIDInterceptorFor("")(ctx, req))

		assert.Equal(t, "batch-42", req.Header.Get(HeaderXRequestID))
	})

	t.Run("chained_headers_share_id", func(t *testing.T) {
		req := newInterceptedRequest(t, nil)
		for _, h := range []string{"X-Smash-Trace", "X-Upstream-ID"} {
			require.NoError(t, NewRequestIDInterceptorFor(h)(ctx, req))
		}

		assert.Equal(t, "batch-42", req.Header.Get("X-Smash-Trace"))
		assert.Equal(t, "batch-42", req.Header.Get("X-Upstream-ID"))
	})
}

func TestRequestIDInterceptorIntegration(t *testing.T) {
	ctx := WithRequestID(context.Background(), "dispatch-9")
	ctx = trace.WithTraceParent(ctx, "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")

	req := newInterceptedRequest(t, nil)
	require.NoError(t, NewRequestIDInterceptor()(ctx, req))

	// traceparent belongs to the transport, not to the interceptor
	assert.Equal(t, "dispatch-9", req.Header.Get(HeaderXRequestID))
	assert.Empty(t, req.Header.Get(HeaderTraceParent))
}

func TestNewStaticHeaderInterceptor(t *testing.T) {
	interceptor := NewStaticHeaderInterceptor("X-Client", "cli")

	req := newInterceptedRequest(t, nil)
	require.NoError(t, interceptor(context.Background(), req))
	assert.Equal(t, "cli", req.Header.Get("X-Client"))

	req = newInterceptedRequest(t, http.Header{http.CanonicalHeaderKey("X-Client"): {"sdk"}})
	require.NoError(t, interceptor(context.Background(), req))
	assert.Equal(t, "sdk", req.Header.Get("X-Client"))
}

func TestRequestIDFromContext(t *testing.T) {
	_, ok := RequestIDFromContext(context.Background())
	assert.False(t, ok)

	id, ok := RequestIDFromContext(WithRequestID(context.Background(), "req-1"))
	assert.True(t, ok)
	assert.Equal(t, "req-1", id)
}
