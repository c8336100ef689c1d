package httpclient

import (
	"errors"
	"fmt"
	"strings"
)

const (
	sdkErrorName     = "SDKError"
	unknownErrorName = "Unknown SDK error"
)

// ResponseError is the error document returned by the API in the body of a
// non-2xx response.
type ResponseError struct {
	Name      string        `json:"name"`
	Code      int           `json:"code,omitempty"`
	Message   string        `json:"error,omitempty"`
	RequestID string        `json:"requestId,omitempty"`
	Details   *ErrorDetails `json:"details,omitempty"`
}

// ErrorDetails describes validation-style failures. Every field is optional.
type ErrorDetails struct {
	Name      string   `json:"name,omitempty"`
	Type      string   `json:"type,omitempty"`
	Reason    string   `json:"reason,omitempty"`
	Expected  string   `json:"expected,omitempty"`
	Given     *float64 `json:"given,omitempty"`
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	Primary   string   `json:"primary,omitempty"`
	Secondary string   `json:"secondary,omitempty"`
}

// SDKError is a named API error. Registry factories receive one and usually
// embed it in their own type:
//
//	type NotFoundError struct{ *httpclient.SDKError }
//
// errors.As(err, &sdkErr) keeps working through such wrappers.
type SDKError struct {
	Name       string
	Code       int
	Message    string
	RequestID  string
	Details    *ErrorDetails
	StatusCode int

	cause error
}

// NewSDKError builds an SDKError from a decoded wire error and the response status.
func NewSDKError(wire *ResponseError, statusCode int) *SDKError {
	if wire == nil || strings.TrimSpace(wire.Name) == "" {
		return &SDKError{Name: unknownErrorName, Message: unknownErrorName, StatusCode: statusCode}
	}
	e := &SDKError{
		Name:       wire.Name,
		Code:       wire.Code,
		Message:    wire.Message,
		RequestID:  wire.RequestID,
		StatusCode: statusCode,
	}
	if wire.Details != nil {
		d := *wire.Details
		e.Details = &d
	}
	return e
}

// NewSDKErrorMessage creates an SDKError named "SDKError" with the given message.
func NewSDKErrorMessage(message string) *SDKError {
	return &SDKError{Name: sdkErrorName, Message: message}
}

// WrapSDKError converts err into an SDKError. Client errors are named after
// their type; err stays reachable through errors.Is and errors.As.
func WrapSDKError(err error) *SDKError {
	if err == nil {
		return nil
	}
	var existing *SDKError
	if errors.As(err, &existing) {
		return existing
	}
	name := sdkErrorName
	var clientErr ClientError
	if errors.As(err, &clientErr) {
		name = string(clientErr.Type())
	}
	return &SDKError{Name: name, Message: err.Error(), cause: err}
}

func (e *SDKError) Error() string {
	var b strings.Builder
	b.WriteString(e.Name)
	if e.Message != "" && e.Message != e.Name {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}

	var extra []string
	if e.StatusCode != 0 {
		extra = append(extra, fmt.Sprintf("status: %d", e.StatusCode))
	}
	if e.Code != 0 && e.Code != e.StatusCode {
		extra = append(extra, fmt.Sprintf("code: %d", e.Code))
	}
	if e.RequestID != "" {
		extra = append(extra, "request_id: "+e.RequestID)
	}
	if len(extra) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(extra, ", "))
		b.WriteString(")")
	}
	return b.String()
}

func (e *SDKError) Type() ErrorType {
	return APIError
}

func (e *SDKError) Unwrap() error {
	return e.cause
}

// As lets errors.As find the SDKError embedded in a registry error type.
func (e *SDKError) As(target any) bool {
	if t, ok := target.(**SDKError); ok {
		*t = e
		return true
	}
	return false
}
