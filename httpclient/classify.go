package httpclient

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"mime"
	"strings"
)

const errorSuffix = "Error"

// FormatErrorName returns the registry key of an error name: the name with an
// "Error" suffix appended unless it already has one. It is idempotent.
func FormatErrorName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || strings.HasSuffix(name, errorSuffix) {
		return name
	}
	return name + errorSuffix
}

// ErrorFactory builds the typed error returned for a registered error name.
type ErrorFactory func(*SDKError) error

// ErrorRegistry maps error names to factories. Keys are compared after
// FormatErrorName, so "NotFound" and "NotFoundError" are the same entry.
type ErrorRegistry map[string]ErrorFactory

// Register adds a factory under the normalized name and returns the registry.
func (r ErrorRegistry) Register(name string, factory ErrorFactory) ErrorRegistry {
	r[FormatErrorName(name)] = factory
	return r
}

// Lookup returns the factory registered for name.
func (r ErrorRegistry) Lookup(name string) (ErrorFactory, bool) {
	key := FormatErrorName(name)
	if key == "" {
		return nil, false
	}
	if f, ok := r[key]; ok && f != nil {
		return f, true
	}
	for k, f := range r {
		if f != nil && FormatErrorName(k) == key {
			return f, true
		}
	}
	return nil, false
}

// Classify turns a completed response into a decoded value or a typed error.
//
// A 2xx response is decoded into T: JSON by default, XML when the
// Content-Type says so. An empty body yields the zero value. T may also be
// []byte, string or io.ReadCloser to receive the payload as is.
//
// Any other status is decoded as a ResponseError and resolved against
// registry. Unregistered names, and bodies that are not an error document,
// produce an UnknownError carrying the raw body and status.
//
// Classify does not modify resp.
func Classify[T any](resp *Response, registry ErrorRegistry) (T, error) {
	var out T
	if resp == nil {
		return out, NewValidationError("response cannot be nil", "response")
	}
	if IsSuccessStatus(resp.StatusCode) {
		return decodeSuccess[T](resp)
	}
	return out, classifyFailure(resp, registry)
}

func decodeSuccess[T any](resp *Response) (T, error) {
	var out T
	switch p := any(&out).(type) {
	case *[]byte:
		*p = bytes.Clone(resp.Body)
		return out, nil
	case *string:
		*p = string(resp.Body)
		return out, nil
	case *io.ReadCloser:
		if resp.Stream != nil {
			*p = resp.Stream
		} else {
			*p = io.NopCloser(bytes.NewReader(resp.Body))
		}
		return out, nil
	}

	if len(bytes.TrimSpace(resp.Body)) == 0 {
		return out, nil
	}

	var err error
	if isXMLContent(resp.Headers.Get("Content-Type")) {
		err = xml.Unmarshal(resp.Body, &out)
	} else {
		err = json.Unmarshal(resp.Body, &out)
	}
	if err != nil {
		return out, newUnknownResponseError("failed to decode response body", resp, nil, err)
	}
	return out, nil
}

func classifyFailure(resp *Response, registry ErrorRegistry) error {
	var wire ResponseError
	if err := json.Unmarshal(resp.Body, &wire); err != nil || strings.TrimSpace(wire.Name) == "" {
		return newUnknownResponseError("unexpected response status", resp, nil, err)
	}

	sdkErr := NewSDKError(&wire, resp.StatusCode)
	if factory, ok := registry.Lookup(wire.Name); ok {
		if typed := factory(sdkErr); typed != nil {
			return typed
		}
	}
	return newUnknownResponseError(fmt.Sprintf("unregistered error %q", wire.Name), resp, sdkErr, nil)
}

func isXMLContent(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/xml" || mediaType == "text/xml" || strings.HasSuffix(mediaType, "+xml")
}
