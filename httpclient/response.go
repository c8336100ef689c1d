package httpclient

import (
	"io"
	nethttp "net/http"
	"time"
)

// Response represents an HTTP response with tracking information.
// Body holds the buffered payload. Stream is set instead for 2xx responses
// requested with ResponseTypeStream and must be closed by the caller.
type Response struct {
	StatusCode int
	Headers    nethttp.Header
	Body       []byte
	Stream     io.ReadCloser
	Stats      Stats
}

// Stats contains request execution statistics
type Stats struct {
	ElapsedTime time.Duration
	CallCount   int64
}

// IsSuccess reports whether the status code is 2xx.
func (r *Response) IsSuccess() bool {
	return r != nil && IsSuccessStatus(r.StatusCode)
}

// Err returns an HTTP error for a non-2xx response and nil otherwise.
func (r *Response) Err() error {
	if r == nil || r.IsSuccess() {
		return nil
	}
	return NewHTTPError(nethttp.StatusText(r.StatusCode), r.StatusCode, r.Body)
}

// Close releases the stream of a streamed response. It is safe to call on
// buffered responses.
func (r *Response) Close() error {
	if r == nil || r.Stream == nil {
		return nil
	}
	return r.Stream.Close()
}
