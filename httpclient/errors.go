package httpclient

import (
	"errors"
	"fmt"
	"time"
)

// ClientError represents different types of API client errors
type ClientError interface {
	error
	Type() ErrorType
}

// ErrorType defines the category of client error
type ErrorType string

const (
	NetworkError           ErrorType = "network"
	TimeoutError           ErrorType = "timeout"
	ConnectionAbortedError ErrorType = "connection_aborted"
	UnknownError           ErrorType = "unknown"
	HTTPError              ErrorType = "http"
	ValidationError        ErrorType = "validation"
	InterceptorError       ErrorType = "interceptor"
	RefreshLimitError      ErrorType = "refresh_limit"
	APIError               ErrorType = "api"
)

var (
	// ErrBodyNotReplayable is returned when a 401 would require re-sending a
	// request body that was already consumed (an io.Reader without io.Seeker).
	ErrBodyNotReplayable = errors.New("request body cannot be replayed")

	// ErrNilTransport is returned by Build when an explicit nil transport is configured.
	ErrNilTransport = errors.New("transport cannot be nil")

	// ErrTooManyRefreshAttempts matches every refresh limit error with errors.Is.
	ErrTooManyRefreshAttempts = errors.New("too many refresh attempts")

	// ErrRefreshPanicked wraps a panic raised by a refresh function.
	ErrRefreshPanicked = errors.New("refresh function panicked")
)

// networkError represents network-related errors
type networkError struct {
	message string
	wrapped error
}

func (e *networkError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("network error: %s: %v", e.message, e.wrapped)
	}
	return fmt.Sprintf("network error: %s", e.message)
}

func (e *networkError) Type() ErrorType {
	return NetworkError
}

func (e *networkError) Unwrap() error {
	return e.wrapped
}

// timeoutError represents timeout-related errors
type timeoutError struct {
	message string
	timeout time.Duration
	wrapped error
}

func (e *timeoutError) Error() string {
	return fmt.Sprintf("timeout error: %s (timeout: %v)", e.message, e.timeout)
}

func (e *timeoutError) Type() ErrorType {
	return TimeoutError
}

func (e *timeoutError) Unwrap() error {
	return e.wrapped
}

// Timeout reports the per-call timeout that expired.
func (e *timeoutError) Timeout() time.Duration {
	return e.timeout
}

// connectionAbortedError represents a connection closed before the exchange completed
type connectionAbortedError struct {
	message string
	wrapped error
}

func (e *connectionAbortedError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("connection aborted: %s: %v", e.message, e.wrapped)
	}
	return fmt.Sprintf("connection aborted: %s", e.message)
}

func (e *connectionAbortedError) Type() ErrorType {
	return ConnectionAbortedError
}

func (e *connectionAbortedError) Unwrap() error {
	return e.wrapped
}

// unknownError covers unrecognized transport failures and non-2xx responses
// whose error name is not registered. Detail holds the decoded wire error, if any.
type unknownError struct {
	message    string
	wrapped    error
	statusCode int
	body       []byte
	detail     *SDKError
}

func (e *unknownError) Error() string {
	msg := "unknown error: " + e.message
	if e.statusCode != 0 {
		msg = fmt.Sprintf("%s (status: %d)", msg, e.statusCode)
	}
	if e.wrapped != nil && e.detail == nil {
		msg = fmt.Sprintf("%s: %v", msg, e.wrapped)
	}
	return msg
}

func (e *unknownError) Type() ErrorType {
	return UnknownError
}

func (e *unknownError) Unwrap() error {
	if e.detail != nil {
		return e.detail
	}
	return e.wrapped
}

func (e *unknownError) StatusCode() int {
	return e.statusCode
}

func (e *unknownError) Body() []byte {
	return e.body
}

// Detail returns the decoded wire error of an unregistered error name, or nil.
func (e *unknownError) Detail() *SDKError {
	return e.detail
}

// httpError represents HTTP status-related errors
type httpError struct {
	message    string
	statusCode int
	body       []byte
}

func (e *httpError) Error() string {
	return fmt.Sprintf("HTTP error: %s (status: %d)", e.message, e.statusCode)
}

func (e *httpError) Type() ErrorType {
	return HTTPError
}

func (e *httpError) StatusCode() int {
	return e.statusCode
}

func (e *httpError) Body() []byte {
	return e.body
}

// validationError represents request validation errors
type validationError struct {
	message string
	field   string
}

func (e *validationError) Error() string {
	if e.field != "" {
		return fmt.Sprintf("validation error: %s (field: %s)", e.message, e.field)
	}
	return fmt.Sprintf("validation error: %s", e.message)
}

func (e *validationError) Type() ErrorType {
	return ValidationError
}

// Field returns the name of the offending request field.
func (e *validationError) Field() string {
	return e.field
}

// interceptorError represents interceptor-related errors
type interceptorError struct {
	message string
	wrapped error
	stage   string
}

func (e *interceptorError) Error() string {
	return fmt.Sprintf("interceptor error: %s (stage: %s): %v", e.message, e.stage, e.wrapped)
}

func (e *interceptorError) Type() ErrorType {
	return InterceptorError
}

func (e *interceptorError) Unwrap() error {
	return e.wrapped
}

// refreshLimitError is returned when a server keeps answering 401 after the
// configured number of credential refreshes. It carries the last response.
type refreshLimitError struct {
	attempts int
	response *Response
}

func (e *refreshLimitError) Error() string {
	status := 0
	if e.response != nil {
		status = e.response.StatusCode
	}
	return fmt.Sprintf("refresh limit error: %s (attempts: %d, status: %d)", ErrTooManyRefreshAttempts, e.attempts, status)
}

func (e *refreshLimitError) Type() ErrorType {
	return RefreshLimitError
}

func (e *refreshLimitError) Is(target error) bool {
	return target == ErrTooManyRefreshAttempts
}

// Attempts returns the number of refreshes performed before giving up.
func (e *refreshLimitError) Attempts() int {
	return e.attempts
}

// Response returns the last 401 response.
func (e *refreshLimitError) Response() *Response {
	return e.response
}

func (e *refreshLimitError) StatusCode() int {
	if e.response == nil {
		return 0
	}
	return e.response.StatusCode
}

// NewNetworkError creates a new network error
func NewNetworkError(message string, wrapped error) ClientError {
	return &networkError{
		message: message,
		wrapped: wrapped,
	}
}

// NewTimeoutError creates a new timeout error
func NewTimeoutError(message string, timeout time.Duration) ClientError {
	return &timeoutError{
		message: message,
		timeout: timeout,
	}
}

func newTimeoutError(message string, timeout time.Duration, wrapped error) ClientError {
	return &timeoutError{
		message: message,
		timeout: timeout,
		wrapped: wrapped,
	}
}

// NewConnectionAbortedError creates a new connection aborted error
func NewConnectionAbortedError(message string, wrapped error) ClientError {
	return &connectionAbortedError{
		message: message,
		wrapped: wrapped,
	}
}

// NewUnknownError creates an unknown error around an unrecognized failure
func NewUnknownError(message string, wrapped error) ClientError {
	return &unknownError{
		message: message,
		wrapped: wrapped,
	}
}

func newUnknownResponseError(message string, resp *Response, detail *SDKError, wrapped error) ClientError {
	return &unknownError{
		message:    message,
		wrapped:    wrapped,
		statusCode: resp.StatusCode,
		body:       resp.Body,
		detail:     detail,
	}
}

// NewHTTPError creates a new HTTP error
func NewHTTPError(message string, statusCode int, body []byte) ClientError {
	return &httpError{
		message:    message,
		statusCode: statusCode,
		body:       body,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message, field string) ClientError {
	return &validationError{
		message: message,
		field:   field,
	}
}

// NewInterceptorError creates a new interceptor error
func NewInterceptorError(message, stage string, wrapped error) ClientError {
	return &interceptorError{
		message: message,
		wrapped: wrapped,
		stage:   stage,
	}
}

// NewRefreshLimitError creates the error returned when the refresh budget is exhausted
func NewRefreshLimitError(attempts int, resp *Response) ClientError {
	return &refreshLimitError{
		attempts: attempts,
		response: resp,
	}
}

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errorType ErrorType) bool {
	if err == nil {
		return false
	}
	var clientErr ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type() == errorType
	}
	return false
}

// IsHTTPStatusError reports whether err carries the given HTTP status code.
// It matches HTTP errors, unknown response errors, refresh limit errors and SDK errors.
func IsHTTPStatusError(err error, statusCode int) bool {
	var withStatus interface{ StatusCode() int }
	if errors.As(err, &withStatus) {
		return withStatus.StatusCode() == statusCode
	}
	var sdkErr *SDKError
	if errors.As(err, &sdkErr) {
		return sdkErr.StatusCode == statusCode
	}
	return false
}

// IsSuccessStatus checks if a status code represents success (2xx)
func IsSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
