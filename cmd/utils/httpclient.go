package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultRequestTimeout bounds a single tutor API call. Replies are produced
// by an LLM behind the backend, so this is generous.
const DefaultRequestTimeout = 60 * time.Second

// HTTPClient interface for testing
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// DefaultHTTPClient is the default HTTP client
type DefaultHTTPClient struct{ Timeout time.Duration }

// Do implements the HTTPClient interface
func (c *DefaultHTTPClient) Do(req *http.Request) (*http.Response, error) {
	// 0 means no timeout in Go's http.Client
	client := &http.Client{Timeout: c.Timeout}
	return client.Do(req)
}

var (
	httpClientMu sync.RWMutex
	httpClient   HTTPClient = &DefaultHTTPClient{Timeout: DefaultRequestTimeout}
)

// LogBodyContent safely reads and logs a body, restoring it for later use.
// Returns the restored body (or nil if input was nil).
// Truncates very large bodies to avoid flooding logs.
func LogBodyContent(body io.ReadCloser, label string) io.ReadCloser {
	if body == nil {
		LogDebug(fmt.Sprintf("  -> %s: <nil>", label))
		return nil
	}

	bodyBytes, err := io.ReadAll(body)
	body.Close()

	if err != nil {
		LogDebug(fmt.Sprintf("  -> %s: <error reading: %v>", label, err))
		return io.NopCloser(bytes.NewReader([]byte{}))
	}

	if len(bodyBytes) == 0 {
		LogDebug(fmt.Sprintf("  -> %s: <empty>", label))
		return io.NopCloser(bytes.NewReader(bodyBytes))
	}

	const maxLogSize = 1024
	bodyStr := string(bodyBytes)
	if len(bodyStr) > maxLogSize {
		bodyStr = bodyStr[:maxLogSize] + "... (truncated)"
	}

	LogDebug(fmt.Sprintf("  -> %s: %s", label, bodyStr))
	return io.NopCloser(bytes.NewReader(bodyBytes))
}

// VerboseHTTPClient wraps another HTTPClient and logs the request line,
// headers (sensitive ones redacted), bodies and the elapsed time.
type VerboseHTTPClient struct{ Inner HTTPClient }

func (v *VerboseHTTPClient) Do(req *http.Request) (*http.Response, error) {
	inner := v.Inner
	if inner == nil {
		inner = &DefaultHTTPClient{Timeout: DefaultRequestTimeout}
	}
	LogDebug(fmt.Sprintf("HTTP %s %s", req.Method, req.URL.String()))
	LogHeaders("request", req.Header)
	req.Body = LogBodyContent(req.Body, "request body")

	start := time.Now()
	resp, err := inner.Do(req)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		LogDebug(fmt.Sprintf("  -> error after %s: %v", FormatDuration(elapsed), err))
		return nil, err
	}
	LogDebug(fmt.Sprintf("  -> %d %s (%s)", resp.StatusCode, http.StatusText(resp.StatusCode), FormatDuration(elapsed)))
	LogHeaders("response", resp.Header)
	resp.Body = LogBodyContent(resp.Body, "response body")

	return resp, nil
}

// GetHTTPClient returns the shared client wrapped for debug logging.
func GetHTTPClient() HTTPClient {
	httpClientMu.RLock()
	defer httpClientMu.RUnlock()
	return &VerboseHTTPClient{Inner: httpClient}
}

// SetDefaultTimeout replaces the shared client's timeout (config
// request_timeout). Non-positive values restore the default.
func SetDefaultTimeout(timeout time.Duration) {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	httpClientMu.Lock()
	httpClient = &DefaultHTTPClient{Timeout: timeout}
	httpClientMu.Unlock()
}

// Headers that may carry credentials or identify the user, lower-cased.
var sensitiveHeaders = map[string]struct{}{
	"authorization":       {},
	"cookie":              {},
	"set-cookie":          {},
	"x-session-id":        {},
	"session-id":          {},
	"x-api-key":           {},
	"api-key":             {},
	"apikey":              {},
	"x-auth-token":        {},
	"x-access-token":      {},
	"x-refresh-token":     {},
	"x-csrf-token":        {},
	"x-xsrf-token":        {},
	"proxy-authorization": {},
	"www-authenticate":    {},
	"authentication":      {},
	"token":               {},
	"bearer":              {},
	"x-forwarded-for":     {},
	"x-real-ip":           {},
}

func LogHeaders(kind string, hdr http.Header) {
	if len(hdr) == 0 {
		return
	}
	keys := make([]string, 0, len(hdr))
	for k := range hdr {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		_, isSensitive := sensitiveHeaders[strings.ToLower(k)]
		for _, v := range hdr.Values(k) {
			if isSensitive {
				LogDebug(fmt.Sprintf("  %s header: %s: [REDACTED]", kind, k))
			} else {
				LogDebug(fmt.Sprintf("  %s header: %s: %s", kind, k, v))
			}
		}
	}
}

// PrettyServerError extracts a readable message from a server error response body.
// It understands FastAPI envelopes ({"detail": "..."} and validation lists
// with "msg"), plus {"message":...} and {"error":...}.
func PrettyServerError(resp *http.Response, body []byte) string {
	var env struct {
		Detail    any    `json:"detail"`
		Message   string `json:"message"`
		Error     string `json:"error"`
		RequestID string `json:"request_id"`
	}
	if json.Unmarshal(body, &env) == nil {
		switch v := env.Detail.(type) {
		case string:
			if v != "" {
				return v
			}
		case map[string]any:
			if m := firstString(v, "message", "detail", "msg"); m != "" {
				return m
			}
		case []any:
			if len(v) > 0 {
				if m, ok := v[0].(map[string]any); ok {
					if s := firstString(m, "message", "detail", "msg"); s != "" {
						return s
					}
				}
			}
		}
		if env.Message != "" {
			return env.Message
		}
		if env.Error != "" {
			return env.Error
		}
	}
	s := strings.TrimSpace(string(body))
	if s == "" {
		if resp == nil {
			return ""
		}
		return http.StatusText(resp.StatusCode)
	}
	if env.RequestID != "" {
		return s + " (request_id=" + env.RequestID + ")"
	}
	return s
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
