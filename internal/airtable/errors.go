package airtable

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"curiosity-sync/internal/shared/util"
)

// ErrMissingCredentials is returned when the client is built without a base id or token.
var ErrMissingCredentials = errors.New("airtable: base id and token are required")

// FetchError reports a failed record fetch. StatusCode is zero for transport
// failures (DNS, timeout, connection reset), in which case Err holds the cause.
type FetchError struct {
	Op         string
	Table      string
	View       string
	StatusCode int
	Message    string
	Err        error
}

func (e *FetchError) Error() string {
	if e == nil {
		return "airtable fetch error"
	}
	if e.StatusCode == 0 {
		return fmt.Sprintf("Airtable request failed: %s", e.Message)
	}
	return fmt.Sprintf("Airtable %d: %s", e.StatusCode, e.Message)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsUnauthorized checks if the error indicates an authentication failure.
func IsUnauthorized(err error) bool {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.StatusCode == http.StatusUnauthorized || fe.StatusCode == http.StatusForbidden
	}
	return false
}

// IsNotFound checks if the table, view or base does not exist.
func IsNotFound(err error) bool {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.StatusCode == http.StatusNotFound
	}
	return false
}

// IsRateLimited checks if the source rejected the request with 429.
func IsRateLimited(err error) bool {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.StatusCode == http.StatusTooManyRequests
	}
	return false
}

// errorEnvelope covers both shapes the API uses:
// {"error":{"type":"...","message":"..."}} and {"error":"NOT_FOUND"}.
type errorEnvelope struct {
	Error json.RawMessage `json:"error"`
}

type errorObject struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// extractMessage pulls error.message from a JSON body, falling back to the raw text.
func extractMessage(body []byte) string {
	text := strings.TrimSpace(string(body))
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && len(env.Error) > 0 {
		var obj errorObject
		if json.Unmarshal(env.Error, &obj) == nil {
			if msg := strings.TrimSpace(obj.Message); msg != "" {
				return util.RedactSecrets(msg)
			}
			if typ := strings.TrimSpace(obj.Type); typ != "" {
				return typ
			}
		}
		var code string
		if json.Unmarshal(env.Error, &code) == nil && strings.TrimSpace(code) != "" {
			return strings.TrimSpace(code)
		}
	}
	const max = 512
	if len(text) > max {
		text = text[:max] + "..."
	}
	return util.RedactSecrets(text)
}
