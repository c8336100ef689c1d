package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	nethttp "net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/smashsdk/sdk-core/httpclient/internal/tracking"
	"github.com/smashsdk/sdk-core/logger"
	"github.com/smashsdk/sdk-core/trace"
)

const (
	// DefaultMaxPayloadLogBytes caps body previews when payload logging is enabled
	DefaultMaxPayloadLogBytes = 1024

	headerContentType = "Content-Type"

	contentTypeJSON        = "application/json"
	contentTypeOctetStream = "application/octet-stream"
	contentTypeText        = "text/plain; charset=utf-8"
	contentTypeForm        = "application/x-www-form-urlencoded"
)

// Transport performs a single HTTP exchange. Implementations return a
// ClientError for failures that produced no response.
type Transport interface {
	Send(ctx context.Context, req *Request) (*Response, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, req *Request) (*Response, error)

// Send calls f(ctx, req).
func (f TransportFunc) Send(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// RequestInterceptor is called before sending the request
type RequestInterceptor func(ctx context.Context, req *nethttp.Request) error

// ResponseInterceptor is called after receiving the response
type ResponseInterceptor func(ctx context.Context, req *nethttp.Request, resp *nethttp.Response) error

// TransportConfig holds the net/http transport configuration
type TransportConfig struct {
	// Timeout applies to requests that do not set their own. Zero means no timeout.
	Timeout              time.Duration
	RequestInterceptors  []RequestInterceptor
	ResponseInterceptors []ResponseInterceptor
	// LogPayloads enables debug-level logging of headers and body payloads
	LogPayloads bool
	// MaxPayloadLogBytes caps the number of body bytes logged when LogPayloads is enabled
	MaxPayloadLogBytes int
	// EnableW3CTrace enables W3C Trace Context (traceparent/tracestate) propagation and generation
	EnableW3CTrace bool
	// HTTPClient replaces the default *http.Client. Its own Timeout is left untouched.
	HTTPClient *nethttp.Client
}

// HTTPTransport is the default Transport, built on net/http.
type HTTPTransport struct {
	httpClient *nethttp.Client
	logger     logger.Logger
	config     *TransportConfig
	callCount  atomic.Int64
}

// NewHTTPTransport creates a transport. A nil cfg uses DefaultTimeout and no interceptors.
func NewHTTPTransport(log logger.Logger, cfg *TransportConfig) *HTTPTransport {
	if log == nil {
		log = logger.Nop()
	}
	if cfg == nil {
		cfg = &TransportConfig{Timeout: DefaultTimeout}
	}
	if cfg.MaxPayloadLogBytes <= 0 {
		cfg.MaxPayloadLogBytes = DefaultMaxPayloadLogBytes
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &nethttp.Client{}
	}

	return &HTTPTransport{
		httpClient: httpClient,
		logger:     log,
		config:     cfg,
	}
}

// Send performs one HTTP exchange. The request timeout (or the transport
// default) bounds the whole exchange, including reading a buffered body.
// A streamed body stays bound to that deadline until it is closed.
func (t *HTTPTransport) Send(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, NewValidationError("request cannot be nil", "request")
	}

	logger.IncrementHTTPCounter(ctx)
	callCount := t.callCount.Add(1)

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = t.config.Timeout
	}
	cancel := context.CancelFunc(func() {})
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	}

	httpReq, payload, err := t.buildRequest(ctx, req)
	if err != nil {
		cancel()
		return nil, err
	}

	requestID := trace.Inject(ctx, httpReq.Header, t.config.EnableW3CTrace)

	if err := t.runRequestInterceptors(ctx, httpReq); err != nil {
		cancel()
		return nil, NewInterceptorError("request interceptor failed", "request", err)
	}

	t.logRequest(httpReq, payload, requestID)

	start := time.Now()
	httpResp, err := t.httpClient.Do(httpReq)
	if err != nil {
		cancel()
		return nil, t.failed(ctx, httpReq, requestID, start, classifyTransportError(err, timeout))
	}

	resp, err := t.buildResponse(ctx, req, httpReq, httpResp, start, callCount, cancel)
	if err != nil {
		var ce ClientError
		if !errors.As(err, &ce) {
			ce = classifyTransportError(err, timeout)
		}
		return nil, t.failed(ctx, httpReq, requestID, start, ce)
	}

	logger.AddHTTPElapsed(ctx, resp.Stats.ElapsedTime)
	tracking.RecordRequest(ctx, httpReq.Method, httpReq.URL.Host, resp.StatusCode, resp.Stats.ElapsedTime, "")
	t.logResponse(resp, requestID)
	return resp, nil
}

func (t *HTTPTransport) failed(ctx context.Context, httpReq *nethttp.Request, requestID string, start time.Time, err ClientError) error {
	elapsed := time.Since(start)
	logger.AddHTTPElapsed(ctx, elapsed)
	tracking.RecordRequest(ctx, httpReq.Method, httpReq.URL.Host, 0, elapsed, string(err.Type()))

	t.logger.Error().
		Err(err).
		Str("method", httpReq.Method).
		Str("url", httpReq.URL.Redacted()).
		Str("request_id", requestID).
		Dur("elapsed", elapsed).
		Msg("REST client request failed")
	return err
}

// buildRequest constructs an *http.Request and applies headers.
// The returned payload is the encoded body when it is known up front.
func (t *HTTPTransport) buildRequest(ctx context.Context, req *Request) (*nethttp.Request, []byte, error) {
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = nethttp.MethodGet
	}

	fullURL, err := req.FullURL()
	if err != nil {
		return nil, nil, err
	}

	body, err := encodeBody(req.Body)
	if err != nil {
		return nil, nil, err
	}

	httpReq, err := nethttp.NewRequestWithContext(ctx, method, fullURL, nethttp.NoBody)
	if err != nil {
		return nil, nil, NewValidationError(fmt.Sprintf("failed to create HTTP request: %v", err), destinationField(req))
	}

	if body.reader != nil && body.size != 0 {
		var r io.Reader = body.reader
		if req.OnUploadProgress != nil {
			r = newProgressReader(r, body.size, req.OnUploadProgress)
		}
		// NopCloser keeps net/http from closing a caller-owned reader we may rewind.
		httpReq.Body = io.NopCloser(r)
		httpReq.ContentLength = body.size
		if body.raw != nil {
			raw := body.raw
			httpReq.GetBody = func() (io.ReadCloser, error) {
				return io.NopCloser(bytes.NewReader(raw)), nil
			}
		}
	}

	applyHeaders(httpReq, req.Headers)
	if body.contentType != "" && httpReq.Header.Get(headerContentType) == "" {
		httpReq.Header.Set(headerContentType, body.contentType)
	}

	return httpReq, body.raw, nil
}

// applyHeaders copies non-nil header values. Slices become repeated values.
func applyHeaders(httpReq *nethttp.Request, headers map[string]any) {
	for key, value := range CleanValues(headers) {
		httpReq.Header.Del(key)
		for _, v := range formatValues(value) {
			httpReq.Header.Add(key, v)
		}
	}
}

// buildResponse runs response interceptors, reads body, and builds a Response.
// cancel is released when the body has been read, or handed to the stream.
func (t *HTTPTransport) buildResponse(
	ctx context.Context,
	req *Request,
	httpReq *nethttp.Request,
	httpResp *nethttp.Response,
	start time.Time,
	callCount int64,
	cancel context.CancelFunc,
) (*Response, error) {
	if err := t.runResponseInterceptors(ctx, httpReq, httpResp); err != nil {
		httpResp.Body.Close()
		cancel()
		return nil, NewInterceptorError("response interceptor failed", "response", err)
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
	}

	if req.ResponseType == ResponseTypeStream && IsSuccessStatus(httpResp.StatusCode) {
		resp.Stream = &cancelOnClose{ReadCloser: httpResp.Body, cancel: cancel}
	} else {
		defer cancel()
		defer httpResp.Body.Close()

		respBody, err := io.ReadAll(httpResp.Body)
		if err != nil {
			return nil, err
		}
		resp.Body = respBody
	}

	resp.Stats = Stats{
		ElapsedTime: time.Since(start),
		CallCount:   callCount,
	}
	return resp, nil
}

// runRequestInterceptors executes all request interceptors
func (t *HTTPTransport) runRequestInterceptors(ctx context.Context, req *nethttp.Request) error {
	for _, interceptor := range t.config.RequestInterceptors {
		if err := interceptor(ctx, req); err != nil {
			return err
		}
	}
	return nil
}

// runResponseInterceptors executes all response interceptors
func (t *HTTPTransport) runResponseInterceptors(ctx context.Context, req *nethttp.Request, resp *nethttp.Response) error {
	for _, interceptor := range t.config.ResponseInterceptors {
		if err := interceptor(ctx, req, resp); err != nil {
			return err
		}
	}
	return nil
}

// cancelOnClose releases the per-call context when a streamed body is closed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

type encodedBody struct {
	reader      io.Reader
	size        int64 // -1 when unknown
	contentType string
	raw         []byte
}

// encodeBody turns a Request body into a reader and its default content type.
func encodeBody(body any) (encodedBody, error) {
	if isNil(body) {
		return encodedBody{}, nil
	}

	switch b := body.(type) {
	case []byte:
		return rawBody(b, contentTypeOctetStream), nil
	case string:
		return rawBody([]byte(b), contentTypeText), nil
	case url.Values:
		return rawBody([]byte(b.Encode()), contentTypeForm), nil
	case io.Reader:
		size := int64(-1)
		if l, ok := b.(interface{ Len() int }); ok {
			size = int64(l.Len())
		}
		return encodedBody{reader: b, size: size, contentType: contentTypeOctetStream}, nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return encodedBody{}, NewValidationError(fmt.Sprintf("failed to encode body: %v", err), "body")
		}
		return rawBody(data, contentTypeJSON), nil
	}
}

func rawBody(data []byte, contentType string) encodedBody {
	return encodedBody{
		reader:      bytes.NewReader(data),
		size:        int64(len(data)),
		contentType: contentType,
		raw:         data,
	}
}

// classifyTransportError maps a failure that produced no response onto the
// client error taxonomy. ClientErrors pass through unchanged.
func classifyTransportError(err error, timeout time.Duration) ClientError {
	var ce ClientError
	if errors.As(err, &ce) {
		return ce
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return newTimeoutError("request timed out", timeout, err)
	case errors.Is(err, context.Canceled):
		return NewConnectionAbortedError("request canceled", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return newTimeoutError("request timed out", timeout, err)
	}

	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNABORTED) || errors.Is(err, io.ErrUnexpectedEOF) {
		return NewConnectionAbortedError("connection aborted", err)
	}

	var dnsErr *net.DNSError
	var opErr *net.OpError
	if errors.As(err, &dnsErr) || errors.As(err, &opErr) || errors.Is(err, syscall.ECONNREFUSED) {
		return NewNetworkError("request execution failed", err)
	}

	return NewUnknownError("request failed", err)
}
