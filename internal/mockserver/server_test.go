package mockserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"neurotutor-cli/cmd/utils"
	"neurotutor-cli/internal/api"
	"neurotutor-cli/internal/session"
)

func newTestServer(t *testing.T, opts ...Option) (*Server, *api.Client) {
	t.Helper()
	t.Setenv("TUTOR_DATA_DIR", t.TempDir())
	utils.ResetDebugLoggerForTesting()
	t.Cleanup(utils.ResetDebugLoggerForTesting)

	srv := New(opts...)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, api.NewClient(ts.URL+"/api", &utils.DefaultHTTPClient{Timeout: 5 * time.Second})
}

func TestChatCreatesSessionWithServerTitle(t *testing.T) {
	srv, client := newTestServer(t)
	long := "Could you walk me through how the quadratic formula is derived from completing the square?"

	resp, err := client.SendMessage(context.Background(), api.ChatRequest{
		Messages: []api.Message{{ID: "u1", Role: api.RoleUser, Content: long}},
	})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if resp.SessionID == "" || resp.ReplyMessage.Role != api.RoleAssistant || resp.ReplyMessage.Content == "" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if _, ok := api.ParseTimestamp(resp.ReplyMessage.Timestamp); !ok {
		t.Errorf("reply timestamp %q should parse", resp.ReplyMessage.Timestamp)
	}

	list, err := client.GetSessions(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(list.Sessions) != 1 || srv.SessionCount() != 1 {
		t.Fatalf("expected one session, got %+v", list.Sessions)
	}
	got := list.Sessions[0]
	if got.Title != string([]rune(long)[:50])+"..." {
		t.Errorf("server title = %q", got.Title)
	}
	if got.MessageCount != 2 {
		t.Errorf("message_count = %d, want 2", got.MessageCount)
	}

	hist, err := client.GetSessionMessages(context.Background(), resp.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	if len(hist.Messages) != 2 || hist.Messages[0].Content != long {
		t.Fatalf("unexpected history %+v", hist.Messages)
	}
}

func TestUnknownSessionIs404(t *testing.T) {
	_, client := newTestServer(t)

	_, err := client.SendMessage(context.Background(), api.ChatRequest{
		SessionID: "missing",
		Messages:  []api.Message{{ID: "u", Role: api.RoleUser, Content: "hi"}},
	})
	if err == nil || err.Error() != api.MsgNotFound {
		t.Fatalf("expected not-found message, got %v", err)
	}

	_, err = client.GetSessionMessages(context.Background(), "missing")
	var he *api.HTTPError
	if !errors.As(err, &he) || he.StatusCode != http.StatusNotFound || !strings.Contains(he.Detail, "not found") {
		t.Fatalf("expected 404 with detail, got %v", err)
	}
}

func TestValidationErrors(t *testing.T) {
	_, client := newTestServer(t)
	bad := api.DefaultPreferences()
	bad.ExplanationStyle = "lecture"

	_, err := client.SendMessage(context.Background(), api.ChatRequest{
		Messages:    []api.Message{{ID: "u", Role: api.RoleUser, Content: "hi"}},
		Preferences: &bad,
	})
	var he *api.HTTPError
	if !errors.As(err, &he) || he.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %v", err)
	}
	if !strings.Contains(he.Detail, "explanation style") {
		t.Errorf("validation detail should name the field, got %q", he.Detail)
	}
}

func TestDeleteSession(t *testing.T) {
	srv, client := newTestServer(t)
	srv.SeedWelcome()

	resp, err := client.SendMessage(context.Background(), api.ChatRequest{
		Messages: []api.Message{{ID: "u", Role: api.RoleUser, Content: "photosynthesis"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := client.DeleteSession(context.Background(), resp.SessionID); err != nil {
		t.Fatalf("delete should succeed on 204, got %v", err)
	}
	var he *api.HTTPError
	if err := client.DeleteSession(context.Background(), resp.SessionID); !errors.As(err, &he) || he.StatusCode != 404 {
		t.Fatalf("second delete should 404, got %v", err)
	}
	if err := client.DeleteSession(context.Background(), WelcomeSessionID); !errors.As(err, &he) || he.StatusCode != 400 {
		t.Fatalf("welcome delete should 400, got %v", err)
	}
	if srv.SessionCount() != 1 {
		t.Fatalf("only the welcome session should remain")
	}
}

func TestFailNext(t *testing.T) {
	srv, client := newTestServer(t)
	srv.FailNext(http.StatusTooManyRequests, "Rate limit exceeded")
	srv.FailNext(http.StatusInternalServerError, "Error processing chat request: boom")

	req := api.ChatRequest{Messages: []api.Message{{ID: "u", Role: api.RoleUser, Content: "hi"}}}
	for _, want := range []string{api.MsgRateLimit, api.MsgServer} {
		if _, err := client.SendMessage(context.Background(), req); err == nil || err.Error() != want {
			t.Fatalf("expected %q, got %v", want, err)
		}
	}
	if _, err := client.SendMessage(context.Background(), req); err != nil {
		t.Fatalf("failures should be consumed, got %v", err)
	}
}

func TestListOrderMostRecentFirst(t *testing.T) {
	clock := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	_, client := newTestServer(t, WithClock(func() time.Time { clock = clock.Add(time.Minute); return clock }))

	first, _ := client.SendMessage(context.Background(), api.ChatRequest{Messages: []api.Message{{ID: "1", Role: api.RoleUser, Content: "first"}}})
	second, _ := client.SendMessage(context.Background(), api.ChatRequest{Messages: []api.Message{{ID: "2", Role: api.RoleUser, Content: "second"}}})
	_, _ = client.SendMessage(context.Background(), api.ChatRequest{SessionID: first.SessionID, Messages: []api.Message{{ID: "3", Role: api.RoleUser, Content: "again"}}})

	list, err := client.GetSessions(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(list.Sessions) != 2 || list.Sessions[0].ID != first.SessionID || list.Sessions[1].ID != second.SessionID {
		t.Fatalf("expected most recently updated first, got %+v", list.Sessions)
	}
}

func TestHealthAndHeartbeat(t *testing.T) {
	_, client := newTestServer(t)
	h, err := client.Health(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if h.Status != "healthy" {
		t.Fatalf("unexpected health %+v", h)
	}
}

// The store, the real client and the mock backend together.
func TestStoreAgainstMockServer(t *testing.T) {
	srv, client := newTestServer(t)
	srv.SeedWelcome()
	store := session.NewStore(client)

	if err := store.LoadSessions(context.Background()); err != nil {
		t.Fatal(err)
	}
	snap := store.Snapshot()
	if snap.ActiveID != WelcomeSessionID {
		t.Fatalf("welcome session should be selected, got %q", snap.ActiveID)
	}
	if err := store.LoadSessionMessages(context.Background(), WelcomeSessionID); err != nil {
		t.Fatal(err)
	}

	tempID := store.CreateNewSession()
	if err := store.SendMessage(context.Background(), "What is a derivative?"); err != nil {
		t.Fatal(err)
	}
	snap = store.Snapshot()
	if snap.ActiveID == tempID || session.IsTemporary(snap.ActiveID) {
		t.Fatalf("session should be persisted, active=%q", snap.ActiveID)
	}
	if active := snap.Active(); active.Title != "What is a derivative?" || len(active.Messages) != 2 {
		t.Fatalf("unexpected active session %+v", active)
	}

	srv.FailNext(http.StatusInternalServerError, "Internal server error")
	_ = store.SendMessage(context.Background(), "and the chain rule?")
	msgs := store.Snapshot().Active().Messages
	if len(msgs) != 4 || msgs[3].Content != api.MsgServer {
		t.Fatalf("expected friendly 500 turn, got %+v", msgs)
	}

	if err := store.LoadSessions(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := len(store.Snapshot().Sessions); got != 2 {
		t.Fatalf("expected welcome + new session after reload, got %d", got)
	}
}

func TestSocraticReply(t *testing.T) {
	prefs := api.DefaultPreferences()
	got := SocraticReply("What is a derivative?", prefs, 1)
	if !strings.Contains(got, "a derivative") || !strings.Contains(got, "Step 1") {
		t.Errorf("step-by-step reply = %q", got)
	}
	if !strings.Contains(got, "\n\n") || !strings.Contains(got, "diagram") {
		t.Errorf("comfortable reading with visual aids should add a spaced hint: %q", got)
	}

	prefs = api.Preferences{VerbosityLevel: 1, ExplanationStyle: api.StyleConcise, ReadingMode: api.ReadingCompact}
	if got := SocraticReply("", prefs, 0); got != "What do you already know about this topic?" {
		t.Errorf("concise reply = %q", got)
	}
	if SocraticReply("x", prefs, 0) != SocraticReply("x", prefs, 0) {
		t.Error("replies must be deterministic")
	}
}

func TestWriteJSONEncodeFailureKeepsStatus(t *testing.T) {
	t.Setenv("TUTOR_DATA_DIR", t.TempDir())
	utils.ResetDebugLoggerForTesting()
	t.Cleanup(utils.ResetDebugLoggerForTesting)

	rec := httptest.NewRecorder()
	// channels cannot be encoded
	writeJSON(rec, http.StatusCreated, make(chan int))

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusCreated)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if body := rec.Body.String(); body != "" {
		t.Errorf("expected no body after a failed encode, got %q", body)
	}
}
