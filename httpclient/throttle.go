package httpclient

import (
	"context"
	"fmt"
	"math"
	"time"

	"golang.org/x/time/rate"

	"github.com/smashsdk/sdk-core/logger"
)

// throttledTransport restricts outbound calls with a token bucket limiter.
type throttledTransport struct {
	limiter *rate.Limiter
	limit   float64
	burst   int
	next    Transport
	logger  logger.Logger
}

// NewThrottledTransport returns a Transport that waits for a limiter token
// before each call to next. limit is in requests per second. A burst below 1
// defaults to ceil(limit).
func NewThrottledTransport(next Transport, limit float64, burst int, log logger.Logger) (Transport, error) {
	if next == nil {
		return nil, ErrNilTransport
	}
	if limit <= 0 {
		return nil, NewValidationError(fmt.Sprintf("rate limit must be positive, got %v", limit), "rate.limit")
	}
	if burst < 1 {
		burst = int(math.Ceil(limit))
	}
	if log == nil {
		log = logger.Nop()
	}

	return &throttledTransport{
		limiter: rate.NewLimiter(rate.Limit(limit), burst),
		limit:   limit,
		burst:   burst,
		next:    next,
		logger:  log,
	}, nil
}

func (t *throttledTransport) Send(ctx context.Context, req *Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, classifyTransportError(err, 0)
	}

	exhausted := t.limiter.Tokens() < 1
	start := time.Now()

	if err := t.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, classifyTransportError(ctxErr, 0)
		}
		// Wait fails early when the deadline would pass before a token is available.
		return nil, newTimeoutError("rate limiter wait would exceed the deadline", 0, err)
	}

	if exhausted {
		t.logger.Debug().
			Interface("rate", t.limit).
			Int("burst", t.burst).
			Dur("waited", time.Since(start)).
			Msg("Throttle wait complete")
	}

	return t.next.Send(ctx, req)
}
