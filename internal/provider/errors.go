package provider

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dgnsrekt/ttstudio/internal/ttypes"
)

// maxTextDetail caps how much of a plain text error body is shown.
const maxTextDetail = 200

// ErrorDetail extracts the most useful message from a failed response
// body: the JSON "error" field (a string or an object with "message"),
// else the whole JSON document, else the first 200 characters of the text,
// else the status text.
func ErrorDetail(status int, statusText string, body []byte) string {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err == nil && doc != nil {
		if raw, ok := doc["error"]; ok {
			var s string
			if json.Unmarshal(raw, &s) == nil && s != "" {
				return s
			}
			var obj struct {
				Message string `json:"message"`
			}
			if json.Unmarshal(raw, &obj) == nil && obj.Message != "" {
				return obj.Message
			}
		}
		return strings.TrimSpace(string(body))
	}

	if text := strings.TrimSpace(string(body)); text != "" {
		r := []rune(text)
		if len(r) > maxTextDetail {
			r = r[:maxTextDetail]
		}
		return string(r)
	}

	if statusText != "" {
		return statusText
	}
	return http.StatusText(status)
}

// StatusError builds the transport error for a non-2xx response.
func StatusError(resp *http.Response, msg string) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBody))

	statusText := strings.TrimSpace(strings.TrimPrefix(resp.Status, fmt.Sprint(resp.StatusCode)))
	detail := ErrorDetail(resp.StatusCode, statusText, body)

	code := ttypes.ErrorCodeTransport
	var cause error
	if resp.StatusCode == http.StatusNotFound {
		code, cause = ttypes.ErrorCodeNotFound, ttypes.ErrNotFound
	}
	return ttypes.NewError(code, fmt.Sprintf("%s (%d): %s", msg, resp.StatusCode, detail), cause).
		WithContext("status", resp.StatusCode)
}
