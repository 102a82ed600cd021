package transport

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/seenimoa/stocksense/internal/pipeline"
)

// ErrHTTP wraps an HTTP error with status code.
type ErrHTTP struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("HTTP %d %s: %s", e.StatusCode, e.Status, e.Body)
}

// Unwrap returns body.response when body is a JSON object carrying one,
// otherwise body itself.
func Unwrap(body []byte) []byte {
	if !gjson.ValidBytes(body) {
		return body
	}
	if r := gjson.GetBytes(body, "response"); r.Exists() && (r.IsObject() || r.IsArray()) {
		return []byte(r.Raw)
	}
	return body
}

// MapError converts any collaborator failure into a transport *pipeline.Error.
// The message prefers body.error, then the body text, then err.
func MapError(status int, body []byte, err error) *pipeline.Error {
	msg := errorMessage(body)
	if msg == "" && err != nil {
		msg = err.Error()
	}
	if msg == "" {
		msg = fmt.Sprintf("HTTP %d", status)
	}
	return pipeline.TransportError(msg, err)
}

func errorMessage(body []byte) string {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return ""
	}
	if gjson.Valid(text) {
		e := gjson.Get(text, "error")
		switch {
		case !e.Exists():
		case e.IsObject():
			if m := e.Get("message"); m.Exists() {
				return m.String()
			}
			return e.Raw
		default:
			return e.String()
		}
	}
	return truncate(text, 512)
}
