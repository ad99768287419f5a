package api

import (
	"encoding/json"
	"strings"
)

// tokenPaths is the ordered list of response field paths accepted as a
// session token. The backend has shipped several shapes over time; the first
// non-empty match wins.
var tokenPaths = [][]string{
	{"access"},
	{"data", "token", "access"},
	{"token"},
	{"access_token"},
}

// linkTokenKeys is the ordered list of accepted link-token field names.
var linkTokenKeys = []string{"link_token", "linkToken"}

// extractToken pulls a session token out of a login/register response body.
func extractToken(body []byte) (string, bool) {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", false
	}
	for _, path := range tokenPaths {
		if tok, ok := lookupString(payload, path); ok {
			return tok, true
		}
	}
	return "", false
}

// extractLinkToken pulls a link token out of a create_link_token response.
func extractLinkToken(body []byte) (string, bool) {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", false
	}
	for _, key := range linkTokenKeys {
		if tok, ok := lookupString(payload, []string{key}); ok {
			return tok, true
		}
	}
	return "", false
}

// lookupString walks a decoded JSON object along path and returns the value
// if it is a non-empty string.
func lookupString(payload map[string]any, path []string) (string, bool) {
	current := payload
	for i, key := range path {
		value, ok := current[key]
		if !ok {
			return "", false
		}
		if i == len(path)-1 {
			s, ok := value.(string)
			if !ok || strings.TrimSpace(s) == "" {
				return "", false
			}
			return s, true
		}
		current, ok = value.(map[string]any)
		if !ok {
			return "", false
		}
	}
	return "", false
}
