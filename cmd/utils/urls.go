package utils

import (
	"net/url"
	"strings"
)

// IsLocalhost reports whether serverURL points at this machine.
func IsLocalhost(serverURL string) bool {
	u, err := url.Parse(serverURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}

// JoinURL appends path segments to base with exactly one slash between them.
// A trailing slash on the last segment is kept ("chat/" stays "chat/").
func JoinURL(base string, parts ...string) string {
	out := strings.TrimRight(base, "/")
	for _, p := range parts {
		if p == "" {
			continue
		}
		out += "/" + strings.TrimLeft(p, "/")
	}
	return out
}

// ServerRoot strips a trailing "/api" from an API base URL, giving the
// origin that serves /health.
func ServerRoot(apiBase string) string {
	trimmed := strings.TrimRight(apiBase, "/")
	if strings.HasSuffix(trimmed, "/api") {
		return strings.TrimSuffix(trimmed, "/api")
	}
	return trimmed
}
