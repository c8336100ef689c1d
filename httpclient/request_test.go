package httpclient

import (
	"bytes"
	"io"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHost = "https://transfer.smash.example"

func TestCleanValues(t *testing.T) {
	var nilPtr *string
	var nilSlice []string
	in := map[string]any{
		"keep-empty":  "",
		"keep-zero":   0,
		"keep-false":  false,
		"drop-nil":    nil,
		"drop-ptr":    nilPtr,
		"drop-slice":  nilSlice,
		"keep-values": []string{"a", "b"},
	}

	out := CleanValues(in)
	assert.Equal(t, map[string]any{
		"keep-empty":  "",
		"keep-zero":   0,
		"keep-false":  false,
		"keep-values": []string{"a", "b"},
	}, out)
	assert.Equal(t, out, CleanValues(out), "must be idempotent")
	assert.Len(t, in, 7, "input must not be modified")
	assert.Nil(t, CleanValues(nil))
}

func TestRequestFullURL(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want string
	}{
		{
			name: "host and path",
			req:  Request{Host: testHost + "/", Path: "v1/transfers"},
			want: testHost + "/v1/transfers",
		},
		{
			name: "path params are escaped",
			req: Request{
				Host:       testHost,
				Path:       "/v1/transfers/:id/files/:idx",
				PathParams: map[string]any{"id": "a b/c", "idx": 3},
			},
			want: testHost + "/v1/transfers/a%20b%2Fc/files/3",
		},
		{
			name: "repeated query keys",
			req: Request{
				URL:   testHost + "/v1/files",
				Query: map[string]any{"tag": []string{"x", "y"}, "limit": 10, "skip": nil, "q": ""},
			},
			want: testHost + "/v1/files?limit=10&q=&tag=x&tag=y",
		},
		{
			name: "url keeps its own query",
			req: Request{
				URL:   testHost + "/v1/files?sort=asc",
				Query: map[string]any{"page": 2},
			},
			want: testHost + "/v1/files?page=2&sort=asc",
		},
		{
			name: "int slice",
			req: Request{
				URL:   testHost,
				Query: map[string]any{"id": []int{1, 2}},
			},
			want: testHost + "?id=1&id=2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.req.FullURL()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpandPathPrefersLongerNames(t *testing.T) {
	got := expandPath("/:id/:idx", map[string]any{"id": "A", "idx": "B"})
	assert.Equal(t, "/A/B", got)
}

func TestRequestClone(t *testing.T) {
	orig := &Request{
		Method:  "POST",
		Host:    testHost,
		Headers: map[string]any{"X-A": "1"},
		Query:   map[string]any{"q": "1"},
	}
	c := orig.Clone()
	c.Headers["X-B"] = "2"
	c.Query["q"] = "2"

	assert.Len(t, orig.Headers, 1)
	assert.Equal(t, "1", orig.Query["q"])
}

func TestHeaderHelpers(t *testing.T) {
	headers := map[string]any{"authorization": "Bearer old", "X-A": "1"}
	assert.True(t, hasHeader(headers, "Authorization"))

	setHeader(headers, "Authorization", "Bearer new")
	assert.Equal(t, map[string]any{"Authorization": "Bearer new", "X-A": "1"}, headers)
}

func TestFormatValues(t *testing.T) {
	assert.Equal(t, []string{"a"}, formatValues("a"))
	assert.Equal(t, []string{"1", "2"}, formatValues([]int{1, 2}))
	assert.Equal(t, []string{"a", "c"}, formatValues([]any{"a", nil, "c"}))
	assert.Equal(t, []string{"true"}, formatValues(true))
	assert.Nil(t, formatValues(nil))
}

func TestReplayable(t *testing.T) {
	assert.True(t, replayable(nil))
	assert.True(t, replayable([]byte("x")))
	assert.True(t, replayable(map[string]any{"a": 1}))
	assert.True(t, replayable(strings.NewReader("x")))
	assert.True(t, replayable(bytes.NewReader([]byte("x"))))
	assert.False(t, replayable(io.MultiReader(strings.NewReader("x"))))
}

func TestRewindBody(t *testing.T) {
	body := strings.NewReader("0123456789")
	_, _ = body.Seek(2, io.SeekStart)

	r := &Request{Body: body, bodyOffset: 2}
	_, _ = io.ReadAll(body)

	require.NoError(t, rewindBody(r))
	rest, _ := io.ReadAll(body)
	assert.Equal(t, "23456789", string(rest))
}

func TestValidateRequest(t *testing.T) {
	tests := []struct {
		name  string
		req   Request
		field string
		msg   string
	}{
		{
			name:  "no destination",
			req:   Request{Method: "GET"},
			field: "url",
			msg:   "either url or host is required",
		},
		{
			name:  "both destinations",
			req:   Request{Method: "GET", URL: testHost, Host: testHost},
			field: "url",
			msg:   "url and host are mutually exclusive",
		},
		{
			name:  "unsupported method",
			req:   Request{Method: "BREW", Host: testHost},
			field: "method",
			msg:   "unsupported value",
		},
		{
			name:  "negative timeout",
			req:   Request{Method: "GET", Host: testHost, Timeout: -1},
			field: "timeout",
			msg:   "must not be negative",
		},
		{
			name:  "unknown response type",
			req:   Request{Method: "GET", Host: testHost, ResponseType: "blob"},
			field: "responsetype",
			msg:   "unsupported value",
		},
		{
			name:  "relative host",
			req:   Request{Method: "GET", Host: "transfer.local"},
			field: "host",
			msg:   "must be an absolute url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateRequest(&tt.req)
			require.Error(t, err)
			assert.True(t, IsErrorType(err, ValidationError))

			var ve *validationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field())
			assert.Contains(t, ve.Error(), tt.msg)
		})
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, validateRequest(&Request{Method: "POST", Host: testHost, ResponseType: ResponseTypeStream}))
		assert.NoError(t, validateRequest(&Request{Method: "GET", URL: testHost + "/x"}))
	})
}

func TestEncodeBody(t *testing.T) {
	tests := []struct {
		name        string
		body        any
		contentType string
		payload     string
		size        int64
	}{
		{"nil", nil, "", "", 0},
		{"bytes", []byte("raw"), contentTypeOctetStream, "raw", 3},
		{"string", "hello", contentTypeText, "hello", 5},
		{"form", url.Values{"a": {"1"}}, contentTypeForm, "a=1", 3},
		{"json", map[string]int{"n": 1}, contentTypeJSON, `{"n":1}`, 7},
		{"reader with length", strings.NewReader("abcd"), contentTypeOctetStream, "", 4},
		{"reader without length", io.MultiReader(strings.NewReader("abcd")), contentTypeOctetStream, "", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := encodeBody(tt.body)
			require.NoError(t, err)
			assert.Equal(t, tt.contentType, enc.contentType)
			assert.Equal(t, tt.payload, string(enc.raw))
			assert.Equal(t, tt.size, enc.size)
		})
	}

	t.Run("unencodable value", func(t *testing.T) {
		_, err := encodeBody(map[string]any{"ch": make(chan int)})
		assert.True(t, IsErrorType(err, ValidationError))
	})
}
