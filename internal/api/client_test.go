package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"neurotutor-cli/cmd/utils"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	t.Setenv("TUTOR_DATA_DIR", t.TempDir())
	utils.ResetDebugLoggerForTesting()
	t.Cleanup(utils.ResetDebugLoggerForTesting)

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/api", &utils.DefaultHTTPClient{Timeout: 5 * time.Second}), srv
}

func TestSendMessage(t *testing.T) {
	var got ChatRequest
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/chat/" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"session_id":"s-42","reply_message":{"id":"a1","role":"assistant","content":"What do you think a derivative measures?","timestamp":"2025-03-14T15:00:00.123456"}}`)
	})

	prefs := DefaultPreferences()
	resp, err := client.SendMessage(context.Background(), ChatRequest{
		Messages:    []Message{{ID: "u1", Role: RoleUser, Content: "What is a derivative?"}},
		Preferences: &prefs,
	})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if resp.SessionID != "s-42" || resp.ReplyMessage.Role != RoleAssistant {
		t.Fatalf("unexpected response %+v", resp)
	}
	if _, ok := ParseTimestamp(resp.ReplyMessage.Timestamp); !ok {
		t.Errorf("zone-less backend timestamp should parse")
	}
	if got.SessionID != "" || got.Preferences == nil || got.Preferences.ExplanationStyle != StyleStepByStep {
		t.Errorf("request body not as expected: %+v", got)
	}
}

func TestSendMessageOmitsEmptySessionID(t *testing.T) {
	var raw map[string]any
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&raw)
		io.WriteString(w, `{"session_id":"s","reply_message":{"id":"a","role":"assistant","content":"ok"}}`)
	})

	if _, err := client.SendMessage(context.Background(), ChatRequest{Messages: []Message{}}); err != nil {
		t.Fatal(err)
	}
	if _, present := raw["session_id"]; present {
		t.Errorf("session_id should be omitted, body: %v", raw)
	}
	if _, present := raw["preferences"]; present {
		t.Errorf("nil preferences should be omitted, body: %v", raw)
	}
}

func TestSendMessageErrorsAreFriendly(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"500 with detail", 500, `{"detail":"Error generating response: model offline"}`, MsgServer},
		{"500 bare", 500, ``, MsgServer},
		{"404 detail", 404, `{"detail":"Session s-9 not found"}`, MsgNotFound},
		{"429", 429, `{"detail":"Too many requests"}`, MsgRateLimit},
		{"401", 401, ``, MsgUnauthorized},
		{"400", 400, `{"detail":"Messages cannot be empty"}`, MsgBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})

			_, err := client.SendMessage(context.Background(), ChatRequest{})
			var fe *FriendlyError
			if !errors.As(err, &fe) {
				t.Fatalf("expected *FriendlyError, got %T: %v", err, err)
			}
			if fe.Message != tt.want {
				t.Errorf("message = %q, want %q", fe.Message, tt.want)
			}
			var he *HTTPError
			if !errors.As(err, &he) || he.StatusCode != tt.status {
				t.Errorf("expected wrapped HTTPError with status %d, got %v", tt.status, err)
			}
		})
	}
}

func TestSendMessageNetworkFailure(t *testing.T) {
	client, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()

	_, err := client.SendMessage(context.Background(), ChatRequest{})
	if err == nil || err.Error() != MsgNetwork {
		t.Fatalf("expected network message, got %v", err)
	}
}

func TestSendMessageTimeout(t *testing.T) {
	block := make(chan struct{})
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	})
	defer close(block)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := client.SendMessage(ctx, ChatRequest{})
	if err == nil || err.Error() != MsgTimeout {
		t.Fatalf("expected timeout message, got %v", err)
	}
}

func TestGetSessions(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/chat/sessions" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		io.WriteString(w, `{"sessions":[
			{"id":"s2","title":"Photosynthesis","created_at":"2025-03-14T10:00:00","last_updated_at":"2025-03-14T11:00:00","message_count":4},
			{"id":"s1","title":"Derivatives","created_at":"2025-03-13T10:00:00","last_updated_at":"2025-03-13T10:05:00","message_count":2}]}`)
	})

	resp, err := client.GetSessions(context.Background())
	if err != nil {
		t.Fatalf("GetSessions: %v", err)
	}
	if len(resp.Sessions) != 2 || resp.Sessions[0].ID != "s2" || resp.Sessions[1].MessageCount != 2 {
		t.Fatalf("unexpected sessions %+v", resp.Sessions)
	}
}

func TestListErrorsAreNotTranslated(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.GetSessions(context.Background())
	var he *HTTPError
	if !errors.As(err, &he) || he.StatusCode != 503 {
		t.Fatalf("expected HTTPError 503, got %v", err)
	}
	var fe *FriendlyError
	if errors.As(err, &fe) {
		t.Fatalf("list errors must not be friendly-translated")
	}

	_, err = client.GetSessionMessages(context.Background(), "s1")
	if !errors.As(err, &he) || he.StatusCode != 503 {
		t.Fatalf("expected HTTPError 503 from GetSessionMessages, got %v", err)
	}
}

func TestGetSessionMessagesEscapesID(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.EscapedPath() != "/api/chat/sessions/a%2Fb/messages" {
			t.Errorf("path not escaped: %s", r.URL.EscapedPath())
		}
		io.WriteString(w, `{"session_id":"a/b","messages":[{"id":"m1","role":"user","content":"hi"}]}`)
	})

	resp, err := client.GetSessionMessages(context.Background(), "a/b")
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Messages) != 1 || resp.Messages[0].Content != "hi" {
		t.Fatalf("unexpected messages %+v", resp.Messages)
	}
}

func TestDeleteSession(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"no content", http.StatusNoContent, false},
		{"ok", http.StatusOK, false},
		{"not found", http.StatusNotFound, true},
		{"protected", http.StatusBadRequest, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodDelete || r.URL.Path != "/api/chat/sessions/s1" {
					t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
				}
				w.WriteHeader(tt.status)
			})
			err := client.DeleteSession(context.Background(), "s1")
			if (err != nil) != tt.wantErr {
				t.Fatalf("DeleteSession error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSetBaseURL(t *testing.T) {
	hits := map[string]int{}
	mux := http.NewServeMux()
	mux.HandleFunc("/old/chat/sessions", func(w http.ResponseWriter, r *http.Request) {
		hits["old"]++
		io.WriteString(w, `{"sessions":[]}`)
	})
	mux.HandleFunc("/new/chat/sessions", func(w http.ResponseWriter, r *http.Request) {
		hits["new"]++
		io.WriteString(w, `{"sessions":[]}`)
	})
	client, srv := newTestClient(t, mux.ServeHTTP)
	client.SetBaseURL(srv.URL + "/old/")

	if _, err := client.GetSessions(context.Background()); err != nil {
		t.Fatal(err)
	}
	client.SetBaseURL(srv.URL + "/new")
	if _, err := client.GetSessions(context.Background()); err != nil {
		t.Fatal(err)
	}
	if hits["old"] != 1 || hits["new"] != 1 {
		t.Fatalf("unexpected hits %v", hits)
	}
	if !strings.HasSuffix(client.BaseURL(), "/new") {
		t.Errorf("BaseURL() = %q", client.BaseURL())
	}
}

func TestHealth(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("health should hit the server root, got %s", r.URL.Path)
		}
		io.WriteString(w, `{"status":"healthy","service":"Neuro Tutor","version":"1.0.0"}`)
	})

	h, err := client.Health(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if h.Status != "healthy" || h.Version != "1.0.0" {
		t.Fatalf("unexpected health %+v", h)
	}
}
