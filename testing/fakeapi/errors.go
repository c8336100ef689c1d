package fakeapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// WireError is the error document returned for every non-2xx response.
type WireError struct {
	Name      string        `json:"name" xml:"name"`
	Code      int           `json:"code,omitempty" xml:"code,omitempty"`
	Message   string        `json:"error,omitempty" xml:"error,omitempty"`
	RequestID string        `json:"requestId,omitempty" xml:"requestId,omitempty"`
	Details   *ErrorDetails `json:"details,omitempty" xml:"details,omitempty"`
}

// ErrorDetails describes which input was rejected.
type ErrorDetails struct {
	Name     string `json:"name,omitempty" xml:"name,omitempty"`
	Type     string `json:"type,omitempty" xml:"type,omitempty"`
	Reason   string `json:"reason,omitempty" xml:"reason,omitempty"`
	Expected string `json:"expected,omitempty" xml:"expected,omitempty"`
}

// apiError is returned by handlers and rendered by errorHandler.
type apiError struct {
	status  int
	name    string
	message string
	details *ErrorDetails
}

func (e *apiError) Error() string {
	return e.name + ": " + e.message
}

func newAPIError(status int, name, message string) *apiError {
	return &apiError{status: status, name: name, message: message}
}

// statusName turns "Not Found" into "NotFound".
func statusName(status int) string {
	text := http.StatusText(status)
	if text == "" {
		return "Unknown"
	}
	return strings.ReplaceAll(text, " ", "")
}

// errorHandler renders handler and router errors as WireError documents.
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	doc := WireError{
		Code:      http.StatusInternalServerError,
		Name:      statusName(http.StatusInternalServerError),
		Message:   "internal error",
		RequestID: c.Response().Header().Get(echo.HeaderXRequestID),
	}

	switch e := err.(type) {
	case *apiError:
		doc.Code, doc.Name, doc.Message, doc.Details = e.status, e.name, e.message, e.details
	case *echo.HTTPError:
		doc.Code = e.Code
		doc.Name = statusName(e.Code)
		if msg, ok := e.Message.(string); ok {
			doc.Message = msg
		}
	}

	s.logger.Debug().
		Int("status", doc.Code).
		Str("name", doc.Name).
		Str("request_id", doc.RequestID).
		Msg("Fake API error response")

	if err := c.JSON(doc.Code, doc); err != nil {
		s.logger.Error().Err(err).Msg("Failed to write error response")
	}
}
