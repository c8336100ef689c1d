package httpclient

import (
	"context"
	nethttp "net/http"

	"github.com/smashsdk/sdk-core/trace"
)

const (
	// HeaderXRequestID is the standard header name for request correlation
	HeaderXRequestID = trace.HeaderXRequestID
	// HeaderTraceParent is the W3C trace context header name
	HeaderTraceParent = trace.HeaderTraceParent
	// HeaderTraceState is the W3C trace context "tracestate" header name
	HeaderTraceState = trace.HeaderTraceState
)

// WithRequestID adds a correlation id to the context for propagation
func WithRequestID(ctx context.Context, id string) context.Context {
	return trace.WithRequestID(ctx, id)
}

// RequestIDFromContext returns the correlation id from context if present
func RequestIDFromContext(ctx context.Context) (string, bool) { return trace.RequestIDFromContext(ctx) }

// NewRequestIDInterceptor creates a request interceptor that adds the correlation id header.
// The transport already does this for X-Request-ID; the interceptor is for
// transports that skip trace injection.
func NewRequestIDInterceptor() RequestInterceptor {
	return NewRequestIDInterceptorFor(HeaderXRequestID)
}

// NewRequestIDInterceptorFor creates an interceptor that uses a custom header name
func NewRequestIDInterceptorFor(header string) RequestInterceptor {
	if header == "" {
		header = HeaderXRequestID
	}
	return func(ctx context.Context, req *nethttp.Request) error {
		if req.Header.Get(header) == "" {
			req.Header.Set(header, trace.EnsureRequestID(ctx))
		}
		return nil
	}
}

// NewStaticHeaderInterceptor sets header to value on every request that lacks it.
func NewStaticHeaderInterceptor(header, value string) RequestInterceptor {
	return func(_ context.Context, req *nethttp.Request) error {
		if req.Header.Get(header) == "" {
			req.Header.Set(header, value)
		}
		return nil
	}
}
