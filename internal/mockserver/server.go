// Package mockserver is an in-memory stand-in for the tutor backend. It
// serves the same four chat endpoints plus /health, so the client can be
// developed and tested without the real service.
package mockserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"neurotutor-cli/cmd/utils"
	"neurotutor-cli/internal/api"
)

const (
	// WelcomeSessionID cannot be deleted.
	WelcomeSessionID = "welcome"
	// serverTitleRunes bounds titles the server derives from a first message.
	serverTitleRunes = 50
	timestampLayout  = "2006-01-02T15:04:05.000000"
	serviceName      = "Neuro Tutor (mock)"
	serviceVersion   = "1.0.0"
)

type storedSession struct {
	id        string
	title     string
	createdAt time.Time
	updatedAt time.Time
	messages  []api.Message
}

type failure struct {
	status int
	detail string
}

// Server holds sessions in memory. It is safe for concurrent use.
type Server struct {
	now        func() time.Time
	latency    time.Duration
	logRequest bool

	mu       sync.Mutex
	sessions map[string]*storedSession
	failures []failure
}

// Option configures a Server.
type Option func(*Server)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(s *Server) { s.now = now } }

// WithLatency delays every chat reply, to exercise the typing indicator.
func WithLatency(d time.Duration) Option { return func(s *Server) { s.latency = d } }

// WithRequestLogging enables chi's request logger on stdout.
func WithRequestLogging(on bool) Option { return func(s *Server) { s.logRequest = on } }

// New returns an empty server.
func New(opts ...Option) *Server {
	s := &Server{
		now:      time.Now,
		sessions: make(map[string]*storedSession),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SeedWelcome adds the protected welcome session.
func (s *Server) SeedWelcome() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	s.sessions[WelcomeSessionID] = &storedSession{
		id:        WelcomeSessionID,
		title:     "Welcome to Neuro Tutor",
		createdAt: now,
		updatedAt: now,
		messages: []api.Message{{
			ID:        uuid.NewString(),
			Role:      api.RoleAssistant,
			Content:   "Hi! I'm your tutor. Instead of handing you answers, I'll ask questions that help you find them. What would you like to explore today?",
			Timestamp: now.Format(timestampLayout),
		}},
	}
}

// FailNext makes the next chat request fail with status and detail. Calls
// queue up.
func (s *Server) FailNext(status int, detail string) {
	s.mu.Lock()
	s.failures = append(s.failures, failure{status: status, detail: detail})
	s.mu.Unlock()
}

// SessionCount returns the number of stored sessions.
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Handler returns the chi router serving the API under /api.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if s.logRequest {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	r.Get("/", s.root)
	r.Get("/health", s.health)
	r.Route("/api/chat", func(r chi.Router) {
		r.Post("/", s.chat)
		r.Get("/sessions", s.listSessions)
		r.Get("/sessions/{sessionID}/messages", s.sessionMessages)
		r.Delete("/sessions/{sessionID}", s.deleteSession)
	})
	return r
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// the status line is already out; all that is left is to log
	if err := json.NewEncoder(w).Encode(v); err != nil {
		utils.LogDebugf("mockserver: failed to encode %d response: %v", status, err)
	}
}

// writeDetail writes a FastAPI style {"detail": "..."} error.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

type validationIssue struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

func writeValidation(w http.ResponseWriter, loc []string, msg string) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string][]validationIssue{
		"detail": {{Loc: loc, Msg: msg, Type: "value_error"}},
	})
}

func (s *Server) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"name":    serviceName,
		"version": serviceVersion,
		"health":  "OK",
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.HealthResponse{Status: "healthy", Service: serviceName, Version: serviceVersion})
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var req api.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidation(w, []string{"body"}, "invalid JSON: "+err.Error())
		return
	}
	for i, m := range req.Messages {
		if m.Role != api.RoleUser && m.Role != api.RoleAssistant {
			writeValidation(w, []string{"body", "messages", fmt.Sprint(i), "role"}, "role must be 'user' or 'assistant'")
			return
		}
	}
	prefs := api.DefaultPreferences()
	if req.Preferences != nil {
		if err := req.Preferences.Validate(); err != nil {
			writeValidation(w, []string{"body", "preferences"}, err.Error())
			return
		}
		prefs = *req.Preferences
	}

	if s.latency > 0 {
		select {
		case <-time.After(s.latency):
		case <-r.Context().Done():
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.failures) > 0 {
		f := s.failures[0]
		s.failures = s.failures[1:]
		writeDetail(w, f.status, f.detail)
		return
	}

	now := s.now().UTC()
	var sess *storedSession
	if req.SessionID != "" {
		sess = s.sessions[req.SessionID]
		if sess == nil {
			writeDetail(w, http.StatusNotFound, fmt.Sprintf("Session %s not found", req.SessionID))
			return
		}
	} else {
		title := "New Chat"
		if n := len(req.Messages); n > 0 && req.Messages[n-1].Role == api.RoleUser {
			title = truncateRunes(req.Messages[n-1].Content, serverTitleRunes)
		}
		sess = &storedSession{id: uuid.NewString(), title: title, createdAt: now}
		s.sessions[sess.id] = sess
	}

	var question string
	if n := len(req.Messages); n > 0 && req.Messages[n-1].Role == api.RoleUser {
		question = req.Messages[n-1].Content
		sess.messages = append(sess.messages, api.Message{
			ID:        uuid.NewString(),
			Role:      api.RoleUser,
			Content:   question,
			Timestamp: now.Format(timestampLayout),
		})
	}

	reply := api.Message{
		ID:        uuid.NewString(),
		Role:      api.RoleAssistant,
		Content:   SocraticReply(question, prefs, len(sess.messages)),
		Timestamp: now.Format(timestampLayout),
	}
	sess.messages = append(sess.messages, reply)
	sess.updatedAt = now

	writeJSON(w, http.StatusOK, api.ChatResponse{SessionID: sess.id, ReplyMessage: reply})
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	list := make([]*storedSession, 0, len(s.sessions))
	for _, sess := range s.sessions {
		list = append(list, sess)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].updatedAt.Equal(list[j].updatedAt) {
			return list[i].id < list[j].id
		}
		return list[i].updatedAt.After(list[j].updatedAt)
	})
	out := api.SessionListResponse{Sessions: make([]api.SessionSummary, 0, len(list))}
	for _, sess := range list {
		out.Sessions = append(out.Sessions, api.SessionSummary{
			ID:            sess.id,
			Title:         sess.title,
			CreatedAt:     sess.createdAt.Format(timestampLayout),
			LastUpdatedAt: sess.updatedAt.Format(timestampLayout),
			MessageCount:  len(sess.messages),
		})
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) sessionMessages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	s.mu.Lock()
	sess := s.sessions[id]
	var msgs []api.Message
	if sess != nil {
		msgs = append([]api.Message{}, sess.messages...)
	}
	s.mu.Unlock()

	if sess == nil {
		writeDetail(w, http.StatusNotFound, fmt.Sprintf("Session %s not found", id))
		return
	}
	writeJSON(w, http.StatusOK, api.SessionMessagesResponse{SessionID: id, Messages: msgs})
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if id == WelcomeSessionID {
		writeDetail(w, http.StatusBadRequest, "Cannot delete welcome session")
		return
	}

	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		writeDetail(w, http.StatusNotFound, fmt.Sprintf("Session %s not found", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func truncateRunes(s string, max int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= max {
		return string(r)
	}
	return string(r[:max]) + "..."
}
