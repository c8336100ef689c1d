// Package httpclient is the request pipeline of the SDK: it sends API calls,
// keeps the bearer credential fresh and turns responses into values or typed
// errors.
//
// Dispatch
//   - Client.Dispatch normalizes a Request (User-Agent, X-Request-ID, default
//     headers, bearer token), validates it and hands it to a Transport.
//   - Transport failures come back as ClientErrors (network, timeout,
//     connection aborted, unknown) and are never retried.
//   - Any response other than a 401 is returned as is, non-2xx included.
//
// Credential refresh
//   - A 401 with a refresh function set calls RefreshCoordinator.Refresh.
//   - Concurrent 401s share one refresh: the first caller runs the function,
//     the others wait and all receive the same token or error.
//   - A new token is stored on the Client before the waiters resume, then the
//     request is re-sent with it.
//   - An empty token declines: the 401 response is returned with a nil error.
//   - Each dispatch refreshes at most MaxRefreshAttempts times (default 1),
//     then fails with a RefreshLimitError.
//   - A body that is an io.Reader but not an io.Seeker cannot be re-sent and
//     fails with ErrBodyNotReplayable.
//
// Classification
//   - Classify decodes 2xx bodies (JSON, or XML by Content-Type) and maps
//     error documents through an ErrorRegistry keyed by error name.
//   - Invoke combines Dispatch and Classify.
//
// Notes
//   - The default HTTPTransport supports interceptors, per-call timeouts,
//     upload progress, streamed responses and payload logging with
//     credentials masked.
//   - NewThrottledTransport adds a token bucket in front of any Transport.
package httpclient
