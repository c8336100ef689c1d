package logger

import (
	"context"
	"sync/atomic"
	"time"
)

// contextKey is the type for context keys to avoid collisions
type contextKey string

const (
	// httpCounterKey tracks outbound HTTP calls made on behalf of one operation
	httpCounterKey contextKey = "http_call_counter"
	// httpElapsedKey tracks the total time spent in those calls
	httpElapsedKey contextKey = "http_elapsed_nanos"
	// refreshCounterKey tracks credential refreshes triggered by one operation
	refreshCounterKey contextKey = "refresh_counter"
)

// WithHTTPCounter returns a context that accumulates the number of outbound
// calls, their elapsed time and the refreshes they trigger.
func WithHTTPCounter(ctx context.Context) context.Context {
	var calls, elapsed, refreshes int64
	ctx = context.WithValue(ctx, httpCounterKey, &calls)
	ctx = context.WithValue(ctx, httpElapsedKey, &elapsed)
	ctx = context.WithValue(ctx, refreshCounterKey, &refreshes)
	return ctx
}

func counter(ctx context.Context, key contextKey) *int64 {
	if ctx == nil {
		return nil
	}
	c, _ := ctx.Value(key).(*int64)
	return c
}

// IncrementHTTPCounter records one outbound call. It is a no-op without WithHTTPCounter.
func IncrementHTTPCounter(ctx context.Context) {
	if c := counter(ctx, httpCounterKey); c != nil {
		atomic.AddInt64(c, 1)
	}
}

// GetHTTPCounter returns the number of outbound calls recorded in ctx.
func GetHTTPCounter(ctx context.Context) int64 {
	if c := counter(ctx, httpCounterKey); c != nil {
		return atomic.LoadInt64(c)
	}
	return 0
}

// AddHTTPElapsed adds d to the outbound call time recorded in ctx.
func AddHTTPElapsed(ctx context.Context, d time.Duration) {
	if c := counter(ctx, httpElapsedKey); c != nil {
		atomic.AddInt64(c, int64(d))
	}
}

// GetHTTPElapsed returns the outbound call time recorded in ctx.
func GetHTTPElapsed(ctx context.Context) time.Duration {
	if c := counter(ctx, httpElapsedKey); c != nil {
		return time.Duration(atomic.LoadInt64(c))
	}
	return 0
}

// IncrementRefreshCounter records one credential refresh triggered from ctx.
func IncrementRefreshCounter(ctx context.Context) {
	if c := counter(ctx, refreshCounterKey); c != nil {
		atomic.AddInt64(c, 1)
	}
}

// GetRefreshCounter returns the number of refreshes recorded in ctx.
func GetRefreshCounter(ctx context.Context) int64 {
	if c := counter(ctx, refreshCounterKey); c != nil {
		return atomic.LoadInt64(c)
	}
	return 0
}
