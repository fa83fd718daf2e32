package captioner

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Error codes persisted on failed queue jobs. Stable identifiers, not
// display strings.
const (
	CodeMissingEndpoint = "missing_endpoint"
	CodeNetworkError    = "network_error"
	CodeHTTPError       = "provider_http_error"
	CodeParseError      = "provider_parse_error"
)

// Request modes, recorded in diagnostics so an operator can tell whether a
// failure happened with a URL reference or inlined bytes.
const (
	ModeURL   = "url"
	ModeBytes = "bytes"
)

// Error is a typed provider failure. Expected failure modes surface as
// values of this type; anything else from the client is a programming or
// encoding error.
type Error struct {
	Code    string
	Message string
	Mode    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return e.Message
}

// maxErrorDetail bounds the upstream detail copied into diagnostics.
const maxErrorDetail = 220

var (
	errTagPattern        = regexp.MustCompile(`<[^>]*>`)
	errWhitespacePattern = regexp.MustCompile(`\s+`)
)

// httpError composes a bounded diagnostic for a non-2xx response. The body
// is probed for structured detail, an upstream fetch URL, and an upstream
// status code under the field names the provider has been seen to use.
func httpError(status int, body []byte, imageURL, mode string) *Error {
	detail := ""
	fetchURL := imageURL
	fetchStatus := 0

	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err == nil {
		if v := stringField(decoded, "error"); v != "" {
			detail = v
		} else if v := stringField(decoded, "message"); v != "" {
			detail = v
		}
		for _, key := range []string{"fetch_url", "image_url", "url"} {
			if v := stringField(decoded, key); v != "" {
				fetchURL = v
				break
			}
		}
		for _, key := range []string{"fetch_status", "upstream_status", "status", "status_code", "http_status"} {
			if v, ok := numericField(decoded, key); ok && v > 0 {
				fetchStatus = v
				break
			}
		}
	}

	if detail == "" {
		detail = errTagPattern.ReplaceAllString(string(body), " ")
	}
	detail = strings.TrimSpace(errWhitespacePattern.ReplaceAllString(detail, " "))
	if len(detail) > maxErrorDetail {
		detail = detail[:maxErrorDetail]
	}

	parts := make([]string, 0, 4)
	if detail != "" {
		parts = append(parts, detail)
	}
	if fetchStatus > 0 {
		parts = append(parts, fmt.Sprintf("upstream status %d", fetchStatus))
	}
	if fetchURL != "" {
		parts = append(parts, "image URL: "+fetchURL)
	}
	parts = append(parts, "request mode: "+mode)

	return &Error{
		Code:    CodeHTTPError,
		Message: fmt.Sprintf("provider returned HTTP %d: %s", status, strings.Join(parts, "; ")),
		Mode:    mode,
	}
}

func numericField(data map[string]any, key string) (int, bool) {
	switch value := data[key].(type) {
	case float64:
		return int(value), true
	case string:
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return parsed, true
		}
	}
	return 0, false
}
