package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"neurotutor-cli/cmd/utils"
)

// Client talks to the tutor backend's chat endpoints.
type Client struct {
	mu      sync.RWMutex
	baseURL string
	http    utils.HTTPClient
}

// NewClient returns a client for baseURL (e.g. http://localhost:8000/api).
// A nil httpClient uses the shared logging client from utils.
func NewClient(baseURL string, httpClient utils.HTTPClient) *Client {
	if httpClient == nil {
		httpClient = utils.GetHTTPClient()
	}
	return &Client{baseURL: normalizeBase(baseURL), http: httpClient}
}

func normalizeBase(u string) string {
	return strings.TrimRight(strings.TrimSpace(u), "/")
}

// BaseURL returns the current API base.
func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

// SetBaseURL swaps the API base for subsequent requests. In-flight requests
// keep the URL they started with.
func (c *Client) SetBaseURL(u string) {
	c.mu.Lock()
	c.baseURL = normalizeBase(u)
	c.mu.Unlock()
}

// SendMessage posts the conversation and returns the assistant's reply.
// Every error is a *FriendlyError whose Message is safe to show the student.
func (c *Client) SendMessage(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	var out ChatResponse
	if err := c.do(ctx, http.MethodPost, "chat/", req, &out); err != nil {
		utils.LogDebug(fmt.Sprintf("Error sending message: %v", err))
		return nil, Friendly(err)
	}
	return &out, nil
}

// GetSessions lists session summaries, most recent first.
func (c *Client) GetSessions(ctx context.Context) (*SessionListResponse, error) {
	var out SessionListResponse
	if err := c.do(ctx, http.MethodGet, "chat/sessions", nil, &out); err != nil {
		utils.LogDebug(fmt.Sprintf("Error fetching sessions: %v", err))
		return nil, err
	}
	return &out, nil
}

// GetSessionMessages returns the stored history of one session.
func (c *Client) GetSessionMessages(ctx context.Context, sessionID string) (*SessionMessagesResponse, error) {
	var out SessionMessagesResponse
	path := "chat/sessions/" + url.PathEscape(sessionID) + "/messages"
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		utils.LogDebug(fmt.Sprintf("Error fetching session messages: %v", err))
		return nil, err
	}
	return &out, nil
}

// DeleteSession removes a session. 204 No Content counts as success.
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	path := "chat/sessions/" + url.PathEscape(sessionID)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		utils.LogDebug(fmt.Sprintf("Error deleting session: %v", err))
		return err
	}
	return nil
}

// Health calls GET /health on the server root (the base without /api).
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	target := utils.JoinURL(utils.ServerRoot(c.BaseURL()), "health")
	if err := c.doURL(ctx, http.MethodGet, target, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	return c.doURL(ctx, method, utils.JoinURL(c.BaseURL(), path), body, out)
}

func (c *Client) doURL(ctx context.Context, method, target string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &transportError{Op: method + " " + target, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &transportError{Op: "read response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{StatusCode: resp.StatusCode, Detail: detailFromBody(resp, respBody)}
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", target, err)
	}
	return nil
}

// detailFromBody keeps only messages the server actually sent; a bare status
// code must not be mistaken for a detail.
func detailFromBody(resp *http.Response, body []byte) string {
	if len(bytes.TrimSpace(body)) == 0 {
		return ""
	}
	return utils.PrettyServerError(resp, body)
}
