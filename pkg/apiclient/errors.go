package apiclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrSessionExpired is returned after a failed refresh; the session has
	// already been logged out when a caller sees it.
	ErrSessionExpired = errors.New("session expired")
)

// GenericMessage is shown when no better text can be extracted.
const GenericMessage = "An unexpected error occurred. Please try again."

// SessionExpiredMessage is shown on forced logout.
const SessionExpiredMessage = "Your session has expired. Please log in again."

// APIError is a non-2xx response from the upstream API.
type APIError struct {
	Method string
	Path   string
	Status int
	Body   []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s (%d): %s", e.Method, e.Path, e.Status, e.Message())
}

// Message extracts a human readable message from the response body. Known
// shapes are tried in order: a plain string, "error", "detail",
// "non_field_errors"; anything else is returned as compact JSON.
func (e *APIError) Message() string {
	body := bytes.TrimSpace(e.Body)
	if len(body) == 0 {
		return GenericMessage
	}

	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		// Not JSON: the body itself is the message.
		return string(body)
	}

	switch v := decoded.(type) {
	case string:
		if v != "" {
			return v
		}
	case map[string]any:
		if s, ok := v["error"].(string); ok && s != "" {
			return s
		}
		if s, ok := v["detail"].(string); ok && s != "" {
			return s
		}
		if list, ok := v["non_field_errors"].([]any); ok && len(list) > 0 {
			parts := make([]string, 0, len(list))
			for _, item := range list {
				parts = append(parts, fmt.Sprint(item))
			}
			return strings.Join(parts, ", ")
		}
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, body); err != nil {
		return string(body)
	}
	return compact.String()
}

// Message returns the user-facing text for any error returned by a Conn.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message()
	}
	if errors.Is(err, ErrSessionExpired) {
		return SessionExpiredMessage
	}
	return GenericMessage
}

// StatusOf returns the upstream status code, or 0 for transport errors.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

func IsNotFound(err error) bool {
	return StatusOf(err) == http.StatusNotFound
}

// Field returns a top-level string field of a JSON object body, or "".
func (e *APIError) Field(name string) string {
	var obj map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(e.Body), &obj); err != nil {
		return ""
	}
	s, _ := obj[name].(string)
	return s
}
