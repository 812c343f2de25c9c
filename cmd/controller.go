package cmd

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"neurotutor-cli/cmd/utils"
	"neurotutor-cli/internal/api"
	"neurotutor-cli/internal/session"
)

// StateUpdateMsg is emitted by the controller to notify the UI of state changes.
type StateUpdateMsg struct {
	Snapshot session.Snapshot
	Notice   string
}

type sessionsLoadedMsg struct{ err error }

type messagesLoadedMsg struct {
	id  string
	err error
}

type sendFinishedMsg struct {
	text string
	err  error
}

type healthMsg struct {
	health *api.HealthResponse
	err    error
}

// Controller owns data/state updates and produces Tea messages for the UI.
// The store is the single source of truth; the UI only ever renders
// snapshots it receives through StateUpdateMsg.
type Controller struct {
	ctx    context.Context
	store  *session.Store
	client *api.Client
}

func NewController(ctx context.Context, store *session.Store, client *api.Client) *Controller {
	return &Controller{ctx: ctx, store: store, client: client}
}

func (c *Controller) Snapshot() session.Snapshot { return c.store.Snapshot() }

// Watch forwards every store change to send, usually tea.Program.Send.
// Store subscribers run on the goroutine that mutated the store, which may be
// the program's own Update loop, so delivery is asynchronous and the UI drops
// snapshots older than the one it has.
func (c *Controller) Watch(send func(tea.Msg)) (cancel func()) {
	return c.store.Subscribe(func(snap session.Snapshot) {
		go send(StateUpdateMsg{Snapshot: snap})
	})
}

// LoadSessions refreshes the session list from the backend.
func (c *Controller) LoadSessions() tea.Cmd {
	return func() tea.Msg {
		return sessionsLoadedMsg{err: c.store.LoadSessions(c.ctx)}
	}
}

// LoadMessages fetches the messages of id.
func (c *Controller) LoadMessages(id string) tea.Cmd {
	return func() tea.Msg {
		return messagesLoadedMsg{id: id, err: c.store.LoadSessionMessages(c.ctx, id)}
	}
}

// Select makes id active and loads its messages when they were never fetched.
func (c *Controller) Select(id string) tea.Cmd {
	needsLoad, err := c.store.SelectSession(id)
	if err != nil {
		utils.LogDebugf("select %s: %v", id, err)
		return nil
	}
	if needsLoad {
		return c.LoadMessages(id)
	}
	return nil
}

// NewChat creates a temporary session and makes it active.
func (c *Controller) NewChat() tea.Cmd {
	id := c.store.CreateNewSession()
	utils.LogDebugf("created session %s", id)
	return nil
}

// Send posts text on the active session. A send that is rejected before it
// reaches the network (empty text, one already in flight) comes back with
// its text so the input can be restored.
func (c *Controller) Send(text string) tea.Cmd {
	return func() tea.Msg {
		return sendFinishedMsg{text: text, err: c.store.SendMessage(c.ctx, text)}
	}
}

// SetPreferences applies p to every following send.
func (c *Controller) SetPreferences(p api.Preferences) tea.Cmd {
	if err := c.store.SetPreferences(p); err != nil {
		utils.LogDebugf("preferences rejected: %v", err)
	}
	return nil
}

// CheckHealth queries the backend's health endpoint.
func (c *Controller) CheckHealth() tea.Cmd {
	return func() tea.Msg {
		h, err := c.client.Health(c.ctx)
		return healthMsg{health: h, err: err}
	}
}

// SetBaseURL points the client at a new backend.
func (c *Controller) SetBaseURL(u string) {
	c.client.SetBaseURL(u)
}

// sendRejected reports whether err means the message never left the client.
func sendRejected(err error) bool {
	return rejectionNotice(err) != ""
}

// rejectionNotice is the toast for a send the store refused, or "".
func rejectionNotice(err error) string {
	switch {
	case errors.Is(err, session.ErrSendInFlight):
		return "Wait for the current reply first"
	case errors.Is(err, session.ErrEmptyMessage):
		return "Type a message first"
	case errors.Is(err, session.ErrNoActiveSession):
		return "Start a new chat with ctrl+n"
	}
	return ""
}
