package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ErrUnauthorized indicates the session token was rejected by the backend.
// Callers must treat it as a forced sign-out, never as a retryable failure.
var ErrUnauthorized = errors.New("api: unauthorized (session expired or invalid)")

// AuthError is a rejected login or registration. Message carries the
// backend-provided text verbatim when one was supplied.
type AuthError struct {
	Message string
	// Fields holds structured per-field registration errors, when present.
	Fields map[string][]string
}

func (e *AuthError) Error() string {
	if e.Message != "" {
		return "api: " + e.Message
	}
	return "api: authentication failed"
}

// StatusError is a non-2xx response. The operation is not retried; the
// caller surfaces the error and leaves its state unchanged. The body is
// retained so auth failures can surface the backend's own message.
type StatusError struct {
	Status int
	Path   string
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api: %s: unexpected status %d", e.Path, e.Status)
}

// Unwrap exposes ErrUnauthorized for rejected-credential statuses so
// errors.Is checks see the forced-sign-out sentinel while the body stays
// available through errors.As.
func (e *StatusError) Unwrap() error {
	if e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden {
		return ErrUnauthorized
	}
	return nil
}

// authErrorFromBody converts a failed login/register response into an
// AuthError, surfacing whatever message shape the backend used. Returns nil
// when the body carries no recognizable message, so callers can pick a
// status-appropriate fallback.
func authErrorFromBody(body []byte) *AuthError {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil
	}

	for _, key := range []string{"message", "error", "detail"} {
		var msg string
		if raw, ok := payload[key]; ok && json.Unmarshal(raw, &msg) == nil && msg != "" {
			return &AuthError{Message: msg}
		}
	}

	// Registration conflicts come back as {"field": ["problem", ...]}.
	fields := make(map[string][]string)
	for key, raw := range payload {
		var list []string
		if json.Unmarshal(raw, &list) == nil && len(list) > 0 {
			fields[key] = list
		}
	}
	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for key := range fields {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, key := range keys {
			parts = append(parts, key+": "+strings.Join(fields[key], "; "))
		}
		return &AuthError{Message: strings.Join(parts, ", "), Fields: fields}
	}

	return nil
}
