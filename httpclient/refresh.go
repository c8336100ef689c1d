package httpclient

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/smashsdk/sdk-core/httpclient/internal/tracking"
	"github.com/smashsdk/sdk-core/logger"
)

// refreshOutcome is delivered identically to every caller of one cycle.
type refreshOutcome struct {
	token string
	err   error
}

type refreshWaiter struct {
	ch      chan refreshOutcome
	onToken func(string)
}

// RefreshCoordinator runs at most one credential refresh at a time.
//
// The first caller of Refresh starts a cycle; callers arriving while it runs
// join it instead of starting their own. When the refresh function returns,
// every joined caller receives the same token or error in arrival order and
// the coordinator becomes idle again. Outcomes are not reused: a later
// Refresh starts a new cycle.
//
// The refresh function runs detached from the starting caller's cancellation,
// so a caller that gives up does not abort the cycle for the others.
type RefreshCoordinator struct {
	logger logger.Logger

	mu       sync.Mutex
	inFlight bool
	waiters  []refreshWaiter
	cycles   uint64
}

// NewRefreshCoordinator creates an idle coordinator.
func NewRefreshCoordinator(log logger.Logger) *RefreshCoordinator {
	if log == nil {
		log = logger.Nop()
	}
	return &RefreshCoordinator{logger: log}
}

// Refresh joins the current refresh cycle, starting one with fn when idle.
// failed and attempt are passed to fn unchanged. If ctx is done before the
// cycle completes, Refresh returns ctx.Err() and the cycle carries on.
func (rc *RefreshCoordinator) Refresh(ctx context.Context, fn RefreshFunc, failed *Response, attempt int) (string, error) {
	return rc.refreshWith(ctx, fn, failed, attempt, nil)
}

// refreshWith is Refresh with a hook run under the coordinator lock with the
// new token, before any waiter is released.
func (rc *RefreshCoordinator) refreshWith(
	ctx context.Context,
	fn RefreshFunc,
	failed *Response,
	attempt int,
	onToken func(string),
) (string, error) {
	if fn == nil {
		return "", NewValidationError("refresh function cannot be nil", "refreshFunc")
	}

	w := refreshWaiter{ch: make(chan refreshOutcome, 1), onToken: onToken}

	rc.mu.Lock()
	rc.waiters = append(rc.waiters, w)
	leader := !rc.inFlight
	rc.inFlight = true
	rc.mu.Unlock()

	if leader {
		go rc.run(context.WithoutCancel(ctx), fn, failed, attempt)
	} else {
		tracking.RecordRefreshWaiter(ctx)
		rc.logger.Debug().Int("attempt", attempt).Msg("Joining credential refresh in flight")
	}

	select {
	case out := <-w.ch:
		return out.token, out.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (rc *RefreshCoordinator) run(ctx context.Context, fn RefreshFunc, failed *Response, attempt int) {
	ctx, span := tracking.StartRefresh(ctx, attempt)
	start := time.Now()

	rc.logger.Debug().Int("attempt", attempt).Msg("Starting credential refresh")
	token, err := invokeRefresh(ctx, fn, failed, attempt)
	if err != nil {
		token = ""
	}

	rc.mu.Lock()
	rc.cycles++
	cycle := rc.cycles
	waiters := rc.waiters
	if token != "" {
		for _, w := range waiters {
			if w.onToken != nil {
				w.onToken(token)
			}
		}
	}
	rc.waiters = nil
	rc.inFlight = false
	rc.mu.Unlock()

	out := refreshOutcome{token: token, err: err}
	for _, w := range waiters {
		w.ch <- out
	}

	elapsed := time.Since(start)
	outcome := tracking.OutcomeIssued
	switch {
	case err != nil:
		outcome = tracking.OutcomeFailed
		rc.logger.Warn().
			Err(err).
			Uint64("cycle", cycle).
			Int("waiters", len(waiters)).
			Dur("elapsed", elapsed).
			Msg("Credential refresh failed")
	case token == "":
		outcome = tracking.OutcomeDeclined
		rc.logger.Info().
			Uint64("cycle", cycle).
			Int("waiters", len(waiters)).
			Msg("Credential refresh declined")
	default:
		rc.logger.Info().
			Uint64("cycle", cycle).
			Int("waiters", len(waiters)).
			Dur("elapsed", elapsed).
			Msg("Credential refreshed")
	}

	tracking.RecordRefresh(ctx, outcome, elapsed)
	tracking.EndRefresh(span, cycle, outcome, err)
}

func invokeRefresh(ctx context.Context, fn RefreshFunc, failed *Response, attempt int) (token string, err error) {
	defer func() {
		if r := recover(); r != nil {
			token = ""
			err = fmt.Errorf("%w: %v", ErrRefreshPanicked, r)
		}
	}()
	return fn(ctx, failed, attempt)
}

// Cycles returns the number of completed refresh cycles.
func (rc *RefreshCoordinator) Cycles() uint64 {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.cycles
}

// Waiting returns the number of callers waiting on the current cycle.
func (rc *RefreshCoordinator) Waiting() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return len(rc.waiters)
}

// InFlight reports whether a refresh cycle is running.
func (rc *RefreshCoordinator) InFlight() bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.inFlight
}
