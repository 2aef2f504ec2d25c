package api

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Error is a non-auth backend failure: transport errors wrapped by callers
// and any non-2xx response other than 401.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// AuthError signals a 401 or a missing access token. It is distinct from
// generic HTTP errors so callers can perform their single re-auth retry.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return "authentication failed: " + e.Reason
}

// IsAuth reports whether err should trigger the re-authentication path.
// The backend also signals auth failures in-band with a plain
// AUTHENTICATION_FAILED message body.
func IsAuth(err error) bool {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return true
	}
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Message == "AUTHENTICATION_FAILED"
}

// errorBody mirrors the shapes the backend uses for failures.
type errorBody struct {
	Error   json.RawMessage `json:"error"`
	Message string          `json:"message"`
	Detail  string          `json:"detail"`
}

// extractMessage pulls the most specific nested message out of an error
// body: error.message, then error (string), then message, then detail,
// falling back to "HTTP <status>".
func extractMessage(body []byte, status int) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		if len(eb.Error) > 0 {
			var nested struct {
				Message string `json:"message"`
			}
			if err := json.Unmarshal(eb.Error, &nested); err == nil && nested.Message != "" {
				return nested.Message
			}
			var plain string
			if err := json.Unmarshal(eb.Error, &plain); err == nil && plain != "" {
				return plain
			}
		}
		if eb.Message != "" {
			return eb.Message
		}
		if eb.Detail != "" {
			return eb.Detail
		}
	}
	return fmt.Sprintf("HTTP %d", status)
}
