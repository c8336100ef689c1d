package httpclient

import (
	"context"
	"fmt"
	"io"
	nethttp "net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/smashsdk/sdk-core/config"
	"github.com/smashsdk/sdk-core/httpclient/internal/tracking"
	"github.com/smashsdk/sdk-core/logger"
	"github.com/smashsdk/sdk-core/trace"
)

const (
	// DefaultTimeout is the default request timeout duration
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRefreshAttempts bounds the refresh-and-retry cycles of one dispatch
	DefaultMaxRefreshAttempts = 1

	// Version is the SDK version reported in the default User-Agent
	Version = "1.4.0"

	// DefaultUserAgent is sent when no User-Agent is configured
	DefaultUserAgent = "smash-sdk-go/" + Version

	headerUserAgent = "User-Agent"
)

// Client sends API calls for one service and keeps its bearer credential
// fresh. A Client is safe for concurrent use.
type Client struct {
	service            string
	region             config.Region
	host               string
	transport          Transport
	logger             logger.Logger
	coordinator        *RefreshCoordinator
	refreshFunc        RefreshFunc
	userAgent          string
	defaultHeaders     map[string]any
	maxRefreshAttempts int
	timeout            time.Duration

	mu    sync.RWMutex
	token string
}

// Defaults carries settings shared by many clients. Clients built with the
// same Defaults also share one refresh coordinator, so a burst of 401s across
// those clients triggers a single refresh.
type Defaults struct {
	Config      *config.Config
	RefreshFunc RefreshFunc

	once        sync.Once
	coordinator *RefreshCoordinator
}

// NewDefaults creates shared client settings.
func NewDefaults(cfg *config.Config, refreshFunc RefreshFunc) *Defaults {
	return &Defaults{Config: cfg, RefreshFunc: refreshFunc}
}

func (d *Defaults) sharedCoordinator(log logger.Logger) *RefreshCoordinator {
	d.once.Do(func() {
		d.coordinator = NewRefreshCoordinator(log)
	})
	return d.coordinator
}

// Builder provides a fluent interface for configuring a Client.
// Explicit options win over the configuration, which wins over built-in defaults.
type Builder struct {
	service  string
	logger   logger.Logger
	cfg      *config.Config
	defaults *Defaults

	token              *string
	region             *config.Region
	host               string
	transport          Transport
	transportSet       bool
	timeout            time.Duration
	refreshFunc        RefreshFunc
	userAgent          string
	maxRefreshAttempts *int
	rateLimit          *float64
	rateBurst          int
	logPayloads        *bool
	defaultHeaders     map[string]any
	transportConfig    TransportConfig
}

// NewBuilder creates a new client builder for service. service selects the
// host in the configuration's host table and may be empty when every request
// carries its own destination.
func NewBuilder(service string, log logger.Logger) *Builder {
	return &Builder{
		service:        service,
		logger:         log,
		defaultHeaders: make(map[string]any),
	}
}

// WithConfig sets the configuration object. It takes precedence over Defaults.Config.
func (b *Builder) WithConfig(cfg *config.Config) *Builder {
	b.cfg = cfg
	return b
}

// WithDefaults sets shared settings and the shared refresh coordinator.
func (b *Builder) WithDefaults(d *Defaults) *Builder {
	b.defaults = d
	return b
}

// WithToken sets the initial bearer credential
func (b *Builder) WithToken(token string) *Builder {
	b.token = &token
	return b
}

// WithRegion sets the region used to resolve the service host
func (b *Builder) WithRegion(region config.Region) *Builder {
	b.region = &region
	return b
}

// WithHost sets the host directly, skipping the host table
func (b *Builder) WithHost(host string) *Builder {
	b.host = strings.TrimRight(host, "/")
	return b
}

// WithTransport replaces the net/http transport. Transport options such as
// interceptors and payload logging are ignored for a custom transport.
func (b *Builder) WithTransport(t Transport) *Builder {
	b.transport = t
	b.transportSet = true
	return b
}

// WithTimeout sets the request timeout
func (b *Builder) WithTimeout(timeout time.Duration) *Builder {
	b.timeout = timeout
	return b
}

// WithRefreshFunc sets the function that obtains a new credential after a 401.
// The client gets its own refresh coordinator.
func (b *Builder) WithRefreshFunc(fn RefreshFunc) *Builder {
	b.refreshFunc = fn
	return b
}

// WithUserAgent sets the User-Agent header
func (b *Builder) WithUserAgent(userAgent string) *Builder {
	b.userAgent = userAgent
	return b
}

// WithMaxRefreshAttempts bounds how many refreshes one dispatch may trigger
func (b *Builder) WithMaxRefreshAttempts(n int) *Builder {
	b.maxRefreshAttempts = &n
	return b
}

// WithRateLimit throttles outbound calls to limit requests per second
func (b *Builder) WithRateLimit(limit float64, burst int) *Builder {
	b.rateLimit = &limit
	b.rateBurst = burst
	return b
}

// WithDefaultHeader adds a default header that will be sent with all requests
func (b *Builder) WithDefaultHeader(key string, value any) *Builder {
	b.defaultHeaders[key] = value
	return b
}

// WithRequestInterceptor adds a request interceptor
func (b *Builder) WithRequestInterceptor(interceptor RequestInterceptor) *Builder {
	b.transportConfig.RequestInterceptors = append(b.transportConfig.RequestInterceptors, interceptor)
	return b
}

// WithResponseInterceptor adds a response interceptor
func (b *Builder) WithResponseInterceptor(interceptor ResponseInterceptor) *Builder {
	b.transportConfig.ResponseInterceptors = append(b.transportConfig.ResponseInterceptors, interceptor)
	return b
}

// WithPayloadLogging enables debug logging of headers and body previews up to maxBytes
func (b *Builder) WithPayloadLogging(enabled bool, maxBytes int) *Builder {
	b.logPayloads = &enabled
	b.transportConfig.MaxPayloadLogBytes = maxBytes
	return b
}

// WithW3CTrace enables traceparent/tracestate propagation
func (b *Builder) WithW3CTrace(enabled bool) *Builder {
	b.transportConfig.EnableW3CTrace = enabled
	return b
}

// WithHTTPClient sets the *http.Client used by the default transport
func (b *Builder) WithHTTPClient(c *nethttp.Client) *Builder {
	b.transportConfig.HTTPClient = c
	return b
}

// Build creates the client. It fails with a *config.ConfigError wrapped in
// the returned error when the service has no host for the selected region.
func (b *Builder) Build() (*Client, error) {
	log := b.logger
	if log == nil {
		log = logger.Nop()
	}

	cfg := b.cfg
	if cfg == nil && b.defaults != nil {
		cfg = b.defaults.Config
	}
	var cc config.ClientConfig
	if cfg != nil {
		cc = cfg.Client
	}

	token := cc.Token
	if b.token != nil {
		token = *b.token
	}
	region := cc.Region
	if b.region != nil {
		region = *b.region
	}

	host, err := b.resolveHost(cfg, region)
	if err != nil {
		return nil, err
	}

	maxAttempts := firstPositive(cc.MaxRefreshAttempts, DefaultMaxRefreshAttempts)
	if b.maxRefreshAttempts != nil {
		if *b.maxRefreshAttempts < 1 {
			return nil, NewValidationError("max refresh attempts must be at least 1", "maxRefreshAttempts")
		}
		maxAttempts = *b.maxRefreshAttempts
	}

	timeout := firstPositive(b.timeout, cc.Timeout, DefaultTimeout)

	transport, err := b.buildTransport(log, cc, timeout)
	if err != nil {
		return nil, err
	}

	c := &Client{
		service:            b.service,
		region:             region,
		host:               host,
		transport:          transport,
		logger:             log,
		userAgent:          firstNonEmpty(b.userAgent, cc.UserAgent, DefaultUserAgent),
		defaultHeaders:     CleanValues(b.defaultHeaders),
		maxRefreshAttempts: maxAttempts,
		timeout:            timeout,
		token:              token,
	}

	switch {
	case b.refreshFunc != nil:
		c.refreshFunc = b.refreshFunc
		c.coordinator = NewRefreshCoordinator(log)
	case b.defaults != nil:
		c.refreshFunc = b.defaults.RefreshFunc
		c.coordinator = b.defaults.sharedCoordinator(log)
	default:
		c.coordinator = NewRefreshCoordinator(log)
	}

	return c, nil
}

func (b *Builder) resolveHost(cfg *config.Config, region config.Region) (string, error) {
	if b.host != "" || b.service == "" {
		return b.host, nil
	}
	if cfg == nil {
		return "", fmt.Errorf("failed to resolve host: %w", config.NewInvalidRegionError(b.service, region, nil))
	}
	host, err := cfg.GetHost(b.service, region)
	if err != nil {
		return "", fmt.Errorf("failed to resolve host: %w", err)
	}
	return host, nil
}

func (b *Builder) buildTransport(log logger.Logger, cc config.ClientConfig, timeout time.Duration) (Transport, error) {
	transport := b.transport
	if b.transportSet {
		if transport == nil {
			return nil, ErrNilTransport
		}
	} else {
		tc := b.transportConfig
		tc.Timeout = timeout
		tc.LogPayloads = cc.LogPayloads
		if b.logPayloads != nil {
			tc.LogPayloads = *b.logPayloads
		}
		tc.MaxPayloadLogBytes = firstPositive(tc.MaxPayloadLogBytes, cc.MaxPayloadLogBytes, DefaultMaxPayloadLogBytes)
		transport = NewHTTPTransport(log, &tc)
	}

	limit, burst := cc.Rate.Limit, cc.Rate.Burst
	if b.rateLimit != nil {
		limit, burst = *b.rateLimit, b.rateBurst
	}
	if limit <= 0 {
		return transport, nil
	}
	return NewThrottledTransport(transport, limit, burst, log)
}

func firstPositive[T int | time.Duration](values ...T) T {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Service returns the service name the client was built for
func (c *Client) Service() string { return c.service }

// Region returns the region used to resolve the host
func (c *Client) Region() config.Region { return c.region }

// Host returns the resolved host, empty when requests carry their own destination
func (c *Client) Host() string { return c.host }

// Coordinator returns the refresh coordinator used by the client
func (c *Client) Coordinator() *RefreshCoordinator { return c.coordinator }

// Token returns the current bearer credential
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken replaces the bearer credential used by subsequent dispatches
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Get performs a GET request
func (c *Client) Get(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodGet, req)
}

// Post performs a POST request
func (c *Client) Post(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodPost, req)
}

// Put performs a PUT request
func (c *Client) Put(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodPut, req)
}

// Patch performs a PATCH request
func (c *Client) Patch(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodPatch, req)
}

// Delete performs a DELETE request
func (c *Client) Delete(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodDelete, req)
}

// Do performs a request with the specified method
func (c *Client) Do(ctx context.Context, method string, req *Request) (*Response, error) {
	if req == nil {
		return nil, NewValidationError("request cannot be nil", "request")
	}
	r := req.Clone()
	r.Method = method
	return c.Dispatch(ctx, r)
}

// Dispatch sends req and handles credential expiry.
//
// A 401 response triggers a refresh through the client's coordinator when a
// refresh function is set on the request or the client. A new token is stored
// on the client and the request is sent again with it, up to the configured
// number of refreshes; past that a RefreshLimitError carrying the last
// response is returned. A declined refresh returns the 401 response with a
// nil error. A refresh error is returned as is.
//
// Transport failures are returned as ClientErrors and never retried. Other
// responses, non-2xx included, are returned without error; see Invoke and
// Classify. req is not modified.
func (c *Client) Dispatch(ctx context.Context, req *Request) (resp *Response, err error) {
	if req == nil {
		return nil, NewValidationError("request cannot be nil", "request")
	}

	refreshes := 0
	ctx, span := tracking.StartDispatch(ctx, c.service, normalizeMethod(req.Method))
	defer func() {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		tracking.EndDispatch(span, status, refreshes, err)
	}()

	current, err := c.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	refresh := current.RefreshFunc
	if refresh == nil {
		refresh = c.refreshFunc
	}

	for attempt := 0; ; attempt++ {
		resp, err = c.transport.Send(ctx, current)
		if err != nil {
			return nil, classifyTransportError(err, current.Timeout)
		}
		if resp == nil {
			return nil, NewUnknownError("transport returned no response", nil)
		}

		if resp.StatusCode != nethttp.StatusUnauthorized || refresh == nil {
			return resp, nil
		}

		if attempt >= c.maxRefreshAttempts {
			limitErr := NewRefreshLimitError(attempt, resp)
			c.logger.Warn().
				Err(limitErr).
				Str("service", c.service).
				Str("method", current.Method).
				Int("attempts", attempt).
				Msg("Credential still rejected after refresh")
			return resp, limitErr
		}

		if !replayable(current.Body) {
			return resp, fmt.Errorf("cannot retry %s after credential refresh: %w", current.Method, ErrBodyNotReplayable)
		}

		token, refreshErr := c.coordinator.refreshWith(ctx, refresh, resp, attempt, c.SetToken)
		logger.IncrementRefreshCounter(ctx)
		if refreshErr != nil {
			return nil, refreshErr
		}
		if token == "" {
			return resp, nil
		}
		refreshes++

		current = current.Clone()
		setHeader(current.Headers, headerAuthorization, "Bearer "+token)
		if err := rewindBody(current); err != nil {
			return nil, NewValidationError(fmt.Sprintf("failed to rewind request body: %v", err), "body")
		}
		tracking.RecordRetry(ctx, c.service)
	}
}

// prepare validates req and returns the normalized copy sent on the first attempt.
func (c *Client) prepare(ctx context.Context, req *Request) (*Request, error) {
	r := req.Clone()
	r.Method = normalizeMethod(r.Method)
	if r.URL == "" && r.Host == "" {
		r.Host = c.host
	}

	r.Query = CleanValues(r.Query)
	r.Headers = CleanValues(r.Headers)
	if r.Headers == nil {
		r.Headers = make(map[string]any)
	}
	if !hasHeader(r.Headers, headerUserAgent) {
		r.Headers[headerUserAgent] = c.userAgent
	}
	for key, value := range c.defaultHeaders {
		if !hasHeader(r.Headers, key) {
			r.Headers[key] = value
		}
	}
	if !hasHeader(r.Headers, HeaderXRequestID) {
		r.Headers[HeaderXRequestID] = trace.EnsureRequestID(ctx)
	}
	if token := c.Token(); token != "" && !hasHeader(r.Headers, headerAuthorization) {
		r.Headers[headerAuthorization] = "Bearer " + token
	}

	if err := validateRequest(r); err != nil {
		return nil, err
	}
	if r.Timeout == 0 {
		r.Timeout = c.timeout
	}

	if s, ok := r.Body.(io.Seeker); ok {
		offset, err := s.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, NewValidationError(fmt.Sprintf("failed to read body offset: %v", err), "body")
		}
		r.bodyOffset = offset
	}
	return r, nil
}

func normalizeMethod(method string) string {
	if method == "" {
		return nethttp.MethodGet
	}
	return strings.ToUpper(method)
}

// Invoke dispatches req and classifies the response into T or a typed error.
// With req.BypassErrorHandler a non-2xx response is returned with a zero T
// and a nil error. The response is returned whenever one was received.
func Invoke[T any](ctx context.Context, c *Client, req *Request, registry ErrorRegistry) (T, *Response, error) {
	var zero T
	if c == nil {
		return zero, nil, NewValidationError("client cannot be nil", "client")
	}

	resp, err := c.Dispatch(ctx, req)
	if err != nil {
		return zero, resp, err
	}
	if req.BypassErrorHandler && !resp.IsSuccess() {
		return zero, resp, nil
	}

	if resp.Stream != nil {
		if _, wantStream := any(&zero).(*io.ReadCloser); !wantStream {
			if err := bufferStream(resp); err != nil {
				return zero, resp, classifyTransportError(err, req.Timeout)
			}
		}
	}

	out, err := Classify[T](resp, registry)
	return out, resp, err
}

// bufferStream reads a streamed body into resp.Body and closes the stream.
func bufferStream(resp *Response) error {
	defer resp.Stream.Close()
	body, err := io.ReadAll(resp.Stream)
	if err != nil {
		return err
	}
	resp.Body = body
	resp.Stream = nil
	return nil
}

// BatchResult is the outcome of one request of DispatchAll.
type BatchResult struct {
	Response *Response
	Err      error
}

// DispatchAll dispatches reqs concurrently, at most limit at a time (no
// limit when limit <= 0). Results are in the order of reqs. A failed request
// does not cancel the others.
func (c *Client) DispatchAll(ctx context.Context, reqs []*Request, limit int) []BatchResult {
	results := make([]BatchResult, len(reqs))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, req := range reqs {
		g.Go(func() error {
			resp, err := c.Dispatch(ctx, req)
			results[i] = BatchResult{Response: resp, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}
