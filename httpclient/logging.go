package httpclient

import (
	"bytes"
	"encoding/json"
	nethttp "net/http"
	"strconv"

	"github.com/smashsdk/sdk-core/logger"
)

// payloadFilter masks credentials in logged headers and JSON bodies.
var payloadFilter = logger.NewSensitiveDataFilter(logger.DefaultFilterConfig())

// logRequest logs the outgoing request
func (t *HTTPTransport) logRequest(req *nethttp.Request, body []byte, requestID string) {
	logEvent := t.logger.Info().
		Str("direction", "outbound").
		Str("method", req.Method).
		Str("url", req.URL.Redacted()).
		Str("request_id", requestID)

	if n := len(req.Header); n > 0 {
		logEvent = logEvent.Int("header_count", n)
	}
	if len(body) > 0 {
		logEvent = logEvent.Int("body_size", len(body))
	}
	logEvent.Msg("REST client request")

	if !t.config.LogPayloads {
		return
	}

	preview, truncated := t.payloadPreview(body)
	t.logger.Debug().
		Str("direction", "outbound").
		Str("method", req.Method).
		Str("url", req.URL.Redacted()).
		Str("request_id", requestID).
		Interface("headers", payloadFilter.FilterHeaders(req.Header)).
		Int("body_size", len(body)).
		Str("body_truncated", strconv.FormatBool(truncated)).
		Bytes("body_preview", preview).
		Msg("REST client request")
}

// logResponse logs the incoming response
func (t *HTTPTransport) logResponse(resp *Response, requestID string) {
	logEvent := t.logger.Info().
		Str("direction", "inbound").
		Int("status", resp.StatusCode).
		Dur("elapsed", resp.Stats.ElapsedTime).
		Int64("call_count", resp.Stats.CallCount).
		Str("request_id", requestID)

	if len(resp.Body) > 0 {
		logEvent = logEvent.Int("body_size", len(resp.Body))
	}
	logEvent.Msg("REST client response")

	if !t.config.LogPayloads {
		return
	}

	preview, truncated := t.payloadPreview(resp.Body)
	t.logger.Debug().
		Str("direction", "inbound").
		Int("status", resp.StatusCode).
		Str("request_id", requestID).
		Interface("headers", payloadFilter.FilterHeaders(resp.Headers)).
		Int("body_size", len(resp.Body)).
		Str("body_truncated", strconv.FormatBool(truncated)).
		Bytes("body_preview", preview).
		Msg("REST client response")
}

func (t *HTTPTransport) payloadPreview(body []byte) ([]byte, bool) {
	limit := t.config.MaxPayloadLogBytes
	if limit <= 0 {
		limit = DefaultMaxPayloadLogBytes
	}
	body = maskPayload(body)
	if len(body) <= limit {
		return body, false
	}
	return body[:limit], true
}

// maskPayload masks sensitive fields of a JSON object or array body.
// Other bodies are returned unchanged.
func maskPayload(body []byte) []byte {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || (trimmed[0] != '{' && trimmed[0] != '[') {
		return body
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil || dec.More() {
		return body
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payloadFilter.FilterValue("", doc)); err != nil {
		return body
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
}
