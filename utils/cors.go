package utils

import (
	"net/url"
	"strings"
)

// IsAllowedOrigin checks whether an Origin header value should be trusted.
// The public site frontend lives on the configured origins; localhost and
// 127.0.0.1 are always allowed for local development.
func IsAllowedOrigin(origin string, allowed []string) bool {
	if origin == "" {
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}

	hostname := parsed.Hostname()
	if hostname == "localhost" || hostname == "127.0.0.1" {
		return true
	}

	for _, a := range allowed {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		if a == "*" || strings.EqualFold(a, origin) || strings.EqualFold(a, hostname) {
			return true
		}
	}
	return false
}
