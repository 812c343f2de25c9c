// Package session holds the client-side view of chat sessions and reconciles
// it with the tutor backend.
//
// All mutations go through Store under one mutex. Observers receive
// immutable Snapshots after each change, so a renderer never sees the
// active pointer and the session collection disagree.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"neurotutor-cli/cmd/utils"
	"neurotutor-cli/internal/api"
)

const (
	// DefaultTitle names a session before its first message.
	DefaultTitle = "New Chat"
	// TempPrefix marks ids that were generated locally.
	TempPrefix = "temp-"
	// TitleMaxRunes bounds titles derived from a first message.
	TitleMaxRunes = 30
)

var (
	ErrNoActiveSession = errors.New("no active session")
	ErrSendInFlight    = errors.New("a message is already being sent")
	ErrUnknownSession  = errors.New("unknown session")
	ErrEmptyMessage    = errors.New("message is empty")
)

// Backend is the subset of the API client the store needs.
type Backend interface {
	SendMessage(ctx context.Context, req api.ChatRequest) (*api.ChatResponse, error)
	GetSessions(ctx context.Context) (*api.SessionListResponse, error)
	GetSessionMessages(ctx context.Context, sessionID string) (*api.SessionMessagesResponse, error)
}

// Session is one conversation thread.
type Session struct {
	ID        string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
	// MessageCount is the backend's count until messages are loaded.
	MessageCount int
	Messages     []api.Message
}

// IsTemporary reports whether the session has not been persisted yet.
func IsTemporary(id string) bool { return strings.HasPrefix(id, TempPrefix) }

// IsTemporary reports whether s has not been persisted yet.
func (s Session) IsTemporary() bool { return IsTemporary(s.ID) }

func (s Session) clone() Session {
	c := s
	c.Messages = append([]api.Message(nil), s.Messages...)
	return c
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator replaces the message id generator (uuid by default).
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// WithPreferences sets the initial preferences.
func WithPreferences(p api.Preferences) Option {
	return func(s *Store) { s.prefs = p }
}

// Store is the single owner of session state.
type Store struct {
	backend Backend
	now     func() time.Time
	newID   func() string

	mu       sync.Mutex
	sessions map[string]*Session
	order    []string
	activeID string
	loaded   map[string]bool
	// revs counts local message edits per session, so a fetch that raced a
	// send can tell its history is stale
	revs       map[string]uint64
	sendingID  string
	loading    bool
	awaiting   bool
	prefs      api.Preferences
	lastTempMs int64
	version    uint64
	subs       map[int]func(Snapshot)
	nextSub    int
	closed     bool
}

// NewStore returns an empty store backed by b.
func NewStore(b Backend, opts ...Option) *Store {
	s := &Store{
		backend:  b,
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
		sessions: make(map[string]*Session),
		loaded:   make(map[string]bool),
		revs:     make(map[string]uint64),
		prefs:    api.DefaultPreferences(),
		subs:     make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers fn to receive a snapshot after every change. fn runs on
// the goroutine that made the change and must not call back into the store
// synchronously. The returned func unsubscribes.
func (s *Store) Subscribe(fn func(Snapshot)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Close drops all subscribers. Later mutations still apply but notify nobody.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.subs = make(map[int]func(Snapshot))
	s.mu.Unlock()
}

// Version increases on every mutation.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Snapshot returns an immutable copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// update applies fn under the lock, bumps the version and notifies
// subscribers after unlocking. fn returning false means nothing changed.
func (s *Store) update(fn func() bool) {
	s.mu.Lock()
	if !fn() {
		s.mu.Unlock()
		return
	}
	s.version++
	snap := s.snapshotLocked()
	subs := make([]func(Snapshot), 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub(snap)
	}
}

// Preferences returns the current learning preferences.
func (s *Store) Preferences() api.Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs
}

// SetPreferences validates and stores p.
func (s *Store) SetPreferences(p api.Preferences) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.update(func() bool {
		if s.prefs == p {
			return false
		}
		s.prefs = p
		return true
	})
	return nil
}

// LoadSessions replaces the collection with the backend's summaries. Local
// temporary sessions stay at the front. On failure the collection is left
// as it was and the error is returned.
func (s *Store) LoadSessions(ctx context.Context) error {
	s.update(func() bool {
		s.loading = true
		return true
	})

	resp, err := s.backend.GetSessions(ctx)
	if err != nil {
		utils.LogDebug(fmt.Sprintf("Error loading sessions: %v", err))
		s.update(func() bool {
			s.loading = false
			return true
		})
		return fmt.Errorf("load sessions: %w", err)
	}

	s.update(func() bool {
		s.loading = false

		sessions := make(map[string]*Session, len(resp.Sessions))
		var order []string
		for _, id := range s.order {
			if IsTemporary(id) {
				sessions[id] = s.sessions[id]
				order = append(order, id)
			}
		}
		// a session mid-send stays even if the listing does not have it yet
		if id := s.sendingID; id != "" && !IsTemporary(id) && !listed(resp.Sessions, id) {
			if sess, ok := s.sessions[id]; ok {
				sessions[id] = sess
				order = append(order, id)
			}
		}
		for _, sum := range resp.Sessions {
			if _, dup := sessions[sum.ID]; dup {
				continue
			}
			sess := &Session{
				ID:           sum.ID,
				Title:        sum.Title,
				MessageCount: sum.MessageCount,
			}
			sess.CreatedAt, _ = api.ParseTimestamp(sum.CreatedAt)
			sess.UpdatedAt, _ = api.ParseTimestamp(sum.LastUpdatedAt)
			// unloaded sessions can still hold a turn sent from here
			if prev, ok := s.sessions[sum.ID]; ok && (s.loaded[sum.ID] || len(prev.Messages) > 0) {
				sess.Messages = prev.Messages
			}
			sessions[sum.ID] = sess
			order = append(order, sum.ID)
		}

		loaded := make(map[string]bool)
		for id := range s.loaded {
			if _, ok := sessions[id]; ok {
				loaded[id] = true
			}
		}

		s.sessions = sessions
		s.order = order
		s.loaded = loaded
		if _, ok := s.sessions[s.activeID]; !ok {
			s.activeID = ""
		}
		if s.activeID == "" && len(s.order) > 0 {
			s.activeID = s.order[0]
		}
		return true
	})
	return nil
}

// LoadSessionMessages replaces one session's messages with the backend's
// history. Turns sent while the fetch was in flight are kept after it.
// Temporary sessions have nothing to fetch.
func (s *Store) LoadSessionMessages(ctx context.Context, id string) error {
	if IsTemporary(id) {
		return nil
	}

	s.mu.Lock()
	rev := s.revs[id]
	pending := s.sendingID == id
	base := 0
	if sess, ok := s.sessions[id]; ok {
		base = len(sess.Messages)
		// the pending user turn may not be on the backend yet
		if pending && base > 0 {
			base--
		}
	}
	s.mu.Unlock()

	resp, err := s.backend.GetSessionMessages(ctx, id)
	if err != nil {
		utils.LogDebug(fmt.Sprintf("Error loading session messages for %s: %v", id, err))
		return fmt.Errorf("load messages for %s: %w", id, err)
	}

	var missing bool
	s.update(func() bool {
		sess, ok := s.sessions[id]
		if !ok {
			missing = true
			return false
		}
		msgs := append([]api.Message(nil), resp.Messages...)
		if (pending || s.revs[id] != rev) && base <= len(sess.Messages) {
			msgs = appendUnseen(msgs, sess.Messages[base:])
		}
		sess.Messages = msgs
		sess.MessageCount = len(sess.Messages)
		s.loaded[id] = true
		return true
	})
	if missing {
		return fmt.Errorf("load messages for %s: %w", id, ErrUnknownSession)
	}
	return nil
}

// CreateNewSession prepends an empty temporary session and makes it active.
func (s *Store) CreateNewSession() string {
	var id string
	s.update(func() bool {
		now := s.now()
		ms := now.UnixMilli()
		if ms <= s.lastTempMs {
			ms = s.lastTempMs + 1
		}
		s.lastTempMs = ms
		id = TempPrefix + strconv.FormatInt(ms, 10)

		s.sessions[id] = &Session{ID: id, Title: DefaultTitle, CreatedAt: now, UpdatedAt: now}
		s.order = append([]string{id}, s.order...)
		s.activeID = id
		return true
	})
	return id
}

// SelectSession makes id active. It reports whether the caller should load
// the session's messages (persisted and not loaded yet).
func (s *Store) SelectSession(id string) (needsLoad bool, err error) {
	s.update(func() bool {
		if _, ok := s.sessions[id]; !ok {
			err = ErrUnknownSession
			return false
		}
		needsLoad = !IsTemporary(id) && !s.loaded[id]
		if s.activeID == id {
			return false
		}
		s.activeID = id
		return true
	})
	return needsLoad, err
}

// NeedsLoad reports whether id is persisted and its messages are not loaded.
func (s *Store) NeedsLoad(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[id]
	return ok && !IsTemporary(id) && !s.loaded[id]
}

// SendMessage appends text as a user message to the active session, sends
// the conversation and appends the reply. Backend failures become an
// assistant message carrying a friendly explanation; the error is also
// returned. Only one send may be in flight at a time.
func (s *Store) SendMessage(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	var (
		req      api.ChatRequest
		tempID   string
		sendErr  error
		targetID string
	)
	s.update(func() bool {
		if s.awaiting {
			sendErr = ErrSendInFlight
			return false
		}
		sess, ok := s.sessions[s.activeID]
		if !ok {
			sendErr = ErrNoActiveSession
			return false
		}

		now := s.now()
		userMsg := api.Message{
			ID:        s.newID(),
			Role:      api.RoleUser,
			Content:   text,
			Timestamp: api.FormatTimestamp(now),
		}
		if len(sess.Messages) == 0 && (sess.IsTemporary() || sess.Title == DefaultTitle) {
			sess.Title = DeriveTitle(text)
		}
		sess.Messages = append(sess.Messages, userMsg)
		sess.MessageCount = len(sess.Messages)
		sess.UpdatedAt = now
		s.awaiting = true
		s.sendingID = sess.ID
		s.revs[sess.ID]++

		prefs := s.prefs
		req = api.ChatRequest{
			Messages:    append([]api.Message(nil), sess.Messages...),
			Preferences: &prefs,
		}
		if sess.IsTemporary() {
			tempID = sess.ID
		} else {
			req.SessionID = sess.ID
		}
		targetID = sess.ID
		return true
	})
	if sendErr != nil {
		return sendErr
	}

	resp, err := s.backend.SendMessage(ctx, req)

	s.update(func() bool {
		s.awaiting = false
		s.sendingID = ""

		sess, ok := s.sessions[targetID]
		if !ok {
			return true
		}
		sess.UpdatedAt = s.now()
		s.revs[targetID]++

		if err != nil {
			sess.Messages = append(sess.Messages, api.Message{
				ID:        s.newID(),
				Role:      api.RoleAssistant,
				Content:   friendlyText(err),
				Timestamp: api.FormatTimestamp(sess.UpdatedAt),
			})
			sess.MessageCount = len(sess.Messages)
			return true
		}

		reply := resp.ReplyMessage
		reply.Role = api.RoleAssistant
		// a history fetch that finished first may already carry the reply
		if reply.ID == "" || !hasMessage(sess.Messages, reply.ID) {
			sess.Messages = append(sess.Messages, reply)
		}
		sess.MessageCount = len(sess.Messages)

		if tempID != "" && resp.SessionID != "" && resp.SessionID != tempID {
			s.rekeyLocked(tempID, resp.SessionID)
		}
		return true
	})

	if err != nil {
		utils.LogDebug(fmt.Sprintf("Error getting tutor response: %v", err))
		return err
	}
	return nil
}

// rekeyLocked moves a session from oldID to newID in the map, the order
// slice, the loaded set and the active pointer. Callers hold s.mu.
func (s *Store) rekeyLocked(oldID, newID string) {
	sess := s.sessions[oldID]
	delete(s.sessions, oldID)
	sess.ID = newID

	// The backend id may already be listed if a reload raced the send.
	if _, exists := s.sessions[newID]; exists {
		filtered := s.order[:0]
		for _, id := range s.order {
			if id != newID {
				filtered = append(filtered, id)
			}
		}
		s.order = filtered
	}
	s.sessions[newID] = sess

	for i, id := range s.order {
		if id == oldID {
			s.order[i] = newID
		}
	}
	// A temporary session's messages are all local, so it counts as loaded.
	s.loaded[newID] = true
	delete(s.loaded, oldID)
	s.revs[newID] += s.revs[oldID]
	delete(s.revs, oldID)
	if s.activeID == oldID {
		s.activeID = newID
	}
}

func listed(sums []api.SessionSummary, id string) bool {
	for _, sum := range sums {
		if sum.ID == id {
			return true
		}
	}
	return false
}

func hasMessage(msgs []api.Message, id string) bool {
	for _, m := range msgs {
		if m.ID == id {
			return true
		}
	}
	return false
}

// appendUnseen appends the local messages that fetched does not already
// contain. Replies keep the backend's id; user turns get a new id on the
// backend, so they match by content against the newest fetched messages.
func appendUnseen(fetched, local []api.Message) []api.Message {
	recent := fetched
	if n := 2 * len(local); len(recent) > n {
		recent = recent[len(recent)-n:]
	}
	used := make([]bool, len(recent))
	out := fetched
	for _, m := range local {
		if hasMessage(fetched, m.ID) {
			continue
		}
		matched := false
		if m.Role == api.RoleUser {
			for i, r := range recent {
				if !used[i] && r.Role == api.RoleUser && r.Content == m.Content {
					used[i], matched = true, true
					break
				}
			}
		}
		if !matched {
			out = append(out, m)
		}
	}
	return out
}

func friendlyText(err error) string {
	var fe *api.FriendlyError
	if errors.As(err, &fe) {
		return fe.Message
	}
	return api.FriendlyMessage(api.ClassificationText(err))
}

// DeriveTitle turns a first message into a session title: the first
// TitleMaxRunes runes, with "..." appended when cut.
func DeriveTitle(text string) string {
	return utils.Truncate(text, TitleMaxRunes)
}
