package httpclient

import (
	"context"
	"fmt"
	"io"
	"maps"
	"net/url"
	"reflect"
	"slices"
	"strings"
	"time"
)

// ResponseType selects how the transport hands back a response body.
type ResponseType string

const (
	// ResponseTypeObject buffers the whole body into Response.Body.
	ResponseTypeObject ResponseType = "object"
	// ResponseTypeStream leaves a 2xx body unread in Response.Stream.
	ResponseTypeStream ResponseType = "stream"
)

const headerAuthorization = "Authorization"

// RefreshFunc obtains a new bearer credential after failed received a 401.
// attempt counts the refreshes already performed by the current dispatch.
// An empty token with a nil error declines the refresh.
type RefreshFunc func(ctx context.Context, failed *Response, attempt int) (string, error)

// UploadProgressEvent reports request body upload progress. Timestamp is in
// Unix milliseconds. TotalBytes is zero when the body size is unknown.
type UploadProgressEvent struct {
	UploadedBytes int64
	TotalBytes    int64
	Timestamp     int64
}

// UploadProgressFunc receives upload progress samples. UploadedBytes and
// Timestamp never decrease within one call.
type UploadProgressFunc func(UploadProgressEvent)

// Request describes one API call.
//
// The destination is either URL or Host plus Path, never both. Path may hold
// ":name" segments replaced by the escaped PathParams values.
//
// Headers and Query values are scalars or slices of scalars. Entries whose
// value is nil are dropped before sending; "" and 0 are sent. Slices become
// repeated header values and repeated query keys (a=1&a=2).
//
// Body is nil, []byte, string, url.Values, an io.Reader or any value to be
// encoded as JSON. An io.Reader body is only re-sent after a credential
// refresh when it also implements io.Seeker.
type Request struct {
	Method     string         `validate:"oneof=GET HEAD POST PUT PATCH DELETE OPTIONS"`
	URL        string         `validate:"required_without=Host,excluded_with=Host"`
	Host       string         `validate:"required_without=URL,excluded_with=URL"`
	Path       string         `validate:"-"`
	PathParams map[string]any `validate:"-"`
	Headers    map[string]any `validate:"-"`
	Query      map[string]any `validate:"-"`
	Body       any            `validate:"-"`

	// Timeout overrides the client timeout for this call. Zero keeps the default.
	Timeout time.Duration `validate:"gte=0"`

	// BypassErrorHandler makes Invoke return non-2xx responses without classifying them.
	BypassErrorHandler bool

	ResponseType     ResponseType       `validate:"omitempty,oneof=object stream"`
	OnUploadProgress UploadProgressFunc `validate:"-"`

	// RefreshFunc overrides the client refresh function for this call.
	RefreshFunc RefreshFunc `validate:"-"`

	bodyOffset int64
}

// Clone returns a copy of r whose maps can be modified independently.
// The body is shared.
func (r *Request) Clone() *Request {
	c := *r
	c.PathParams = maps.Clone(r.PathParams)
	c.Headers = maps.Clone(r.Headers)
	c.Query = maps.Clone(r.Query)
	return &c
}

// FullURL resolves the destination, path parameters and query string.
func (r *Request) FullURL() (string, error) {
	raw := r.URL
	if raw == "" {
		raw = strings.TrimRight(r.Host, "/") + expandPath(r.Path, r.PathParams)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", NewValidationError(fmt.Sprintf("invalid destination %q: %v", raw, err), destinationField(r))
	}

	query := CleanValues(r.Query)
	if len(query) == 0 {
		return u.String(), nil
	}
	values := u.Query()
	for _, key := range slices.Sorted(maps.Keys(query)) {
		for _, v := range formatValues(query[key]) {
			values.Add(key, v)
		}
	}
	u.RawQuery = values.Encode()
	return u.String(), nil
}

func destinationField(r *Request) string {
	if r.URL != "" {
		return "url"
	}
	return "host"
}

// expandPath ensures a leading slash and substitutes ":name" segments.
// Longer names are replaced first so ":id" never clobbers ":idx".
func expandPath(path string, params map[string]any) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	keys := slices.Collect(maps.Keys(params))
	slices.SortFunc(keys, func(a, b string) int {
		if d := len(b) - len(a); d != 0 {
			return d
		}
		return strings.Compare(a, b)
	})
	for _, key := range keys {
		v := params[key]
		if isNil(v) {
			continue
		}
		path = strings.ReplaceAll(path, ":"+key, url.PathEscape(fmt.Sprint(v)))
	}
	return path
}

// CleanValues returns a copy of m without the entries whose value is nil
// (including typed nil pointers, maps and slices). Empty strings and zero
// values are kept. CleanValues is idempotent.
func CleanValues(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if isNil(v) {
			continue
		}
		out[k] = v
	}
	return out
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}

// formatValues renders a header or query value as strings. Slices and arrays
// (except []byte) yield one string per non-nil element.
func formatValues(v any) []string {
	if isNil(v) {
		return nil
	}
	switch t := v.(type) {
	case string:
		return []string{t}
	case []string:
		return slices.Clone(t)
	case []byte:
		return []string{string(t)}
	case fmt.Stringer:
		return []string{t.String()}
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []string{fmt.Sprint(rv.Interface())}
	}
	out := make([]string, 0, rv.Len())
	for i := range rv.Len() {
		elem := rv.Index(i).Interface()
		if isNil(elem) {
			continue
		}
		out = append(out, fmt.Sprint(elem))
	}
	return out
}

func headerKey(headers map[string]any, name string) (string, bool) {
	for k := range headers {
		if strings.EqualFold(k, name) {
			return k, true
		}
	}
	return "", false
}

func hasHeader(headers map[string]any, name string) bool {
	_, ok := headerKey(headers, name)
	return ok
}

// setHeader replaces every case variant of name with a single entry.
func setHeader(headers map[string]any, name string, value any) {
	for k := range headers {
		if strings.EqualFold(k, name) {
			delete(headers, k)
		}
	}
	headers[name] = value
}

// replayable reports whether the body can be sent again after a refresh.
func replayable(body any) bool {
	r, ok := body.(io.Reader)
	if !ok {
		return true
	}
	_, ok = r.(io.Seeker)
	return ok
}

// rewindBody seeks a seekable body back to the offset recorded at dispatch start.
func rewindBody(r *Request) error {
	s, ok := r.Body.(io.Seeker)
	if !ok {
		return nil
	}
	_, err := s.Seek(r.bodyOffset, io.SeekStart)
	return err
}
