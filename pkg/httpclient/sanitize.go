package httpclient

import (
	"net/url"
	"strings"
)

// sensitiveParams are substrings of query parameter names redacted from logs.
// Matched case-insensitively.
var sensitiveParams = []string{
	"api_key",
	"apikey",
	"token",
	"password",
	"auth",
	"secret",
	"key",
	"signature",
}

const redacted = "[REDACTED]"

// sanitizeURL strips credentials and sensitive query parameters from u.
func sanitizeURL(u *url.URL) string {
	if u == nil {
		return ""
	}

	safe := *u
	if safe.User != nil {
		safe.User = url.User(redacted)
	}

	q := safe.Query()
	for param := range q {
		if isSensitiveParam(param) {
			q.Set(param, redacted)
		}
	}
	safe.RawQuery = q.Encode()
	return safe.String()
}

func isSensitiveParam(param string) bool {
	lower := strings.ToLower(param)
	for _, sensitive := range sensitiveParams {
		if strings.Contains(lower, sensitive) {
			return true
		}
	}
	return false
}
