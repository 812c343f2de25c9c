package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"

	"neurotutor-cli/cmd/utils"
	"neurotutor-cli/internal/api"
	"neurotutor-cli/internal/session"
	uitk "neurotutor-cli/internal/tui"
)

const (
	inputPlaceholder   = "Ask about neurons, synapses, memory..."
	waitingPlaceholder = "Waiting for the tutor..."
	healthInterval     = 30 * time.Second
	// below this width the sidebar is hidden and tab still focuses it
	narrowWidth = 70
)

type focusArea int

const (
	focusInput focusArea = iota
	focusSidebar
)

type healthTickMsg struct{}

type themeSavedMsg struct{ err error }

type chatModel struct {
	ctrl *Controller
	snap session.Snapshot

	theme    uitk.Theme
	sidebar  uitk.SidebarModel
	prefs    uitk.PreferencesModel
	toast    uitk.ToastModel
	typing   uitk.TypingModel
	spin     spinner.Model
	viewport viewport.Model
	textarea textarea.Model

	focus  focusArea
	width  int
	height int
	health string

	// selected once the first session list arrives
	pendingSelect string
}

func runChatTUI(sessionID string) error {
	prefs, err := startupPreferences(current.Config)
	if err != nil {
		OutputWarning("%v", err)
	}
	client := newClient()
	store := session.NewStore(client, session.WithPreferences(prefs))
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctrl := NewController(ctx, store, client)
	m := newChatModel(ctrl, resolveTheme(), sessionID)
	p := tea.NewProgram(m, tea.WithAltScreen())

	stop := ctrl.Watch(p.Send)
	defer stop()
	if err := StartConfigWatcher(ctx, current.ConfigPath, p.Send); err != nil {
		utils.LogDebugf("config hot reload disabled: %v", err)
	}

	// Enable TUI mode for output routing
	SetTUIMode(p)
	defer ClearTUIMode()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

func newChatModel(ctrl *Controller, themeName, sessionID string) chatModel {
	theme := uitk.ThemeFor(themeName)

	ta := textarea.New()
	ta.Placeholder = inputPlaceholder
	ta.Prompt = "> "
	ta.SetWidth(30)
	ta.SetHeight(1)
	ta.ShowLineNumbers = false
	ta.CharLimit = 4000
	// Remove cursor line styling
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.Focus()

	vp := viewport.New(30, 5)
	// arrows and letters belong to the input; only paging scrolls the transcript
	vp.KeyMap = viewport.KeyMap{
		PageDown:     key.NewBinding(key.WithKeys("pgdown")),
		PageUp:       key.NewBinding(key.WithKeys("pgup")),
		HalfPageUp:   key.NewBinding(key.WithKeys("ctrl+u")),
		HalfPageDown: key.NewBinding(key.WithKeys("ctrl+d")),
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(theme.Accent)

	width, height, err := term.GetSize(uintptr(os.Stdout.Fd()))
	if err != nil {
		width, height = 80, 24
	}

	m := chatModel{
		ctrl:          ctrl,
		snap:          ctrl.Snapshot(),
		theme:         theme,
		sidebar:       uitk.NewSidebarModel(theme),
		prefs:         uitk.NewPreferencesModel(ctrl.Snapshot().Preferences, theme),
		toast:         uitk.NewToastModel(theme),
		typing:        uitk.NewTypingModel(theme),
		spin:          s,
		viewport:      vp,
		textarea:      ta,
		width:         width,
		height:        height,
		pendingSelect: sessionID,
	}
	m.sidebar.SetSnapshot(m.snap)
	m.layout()
	return m
}

func (m chatModel) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spin.Tick, m.ctrl.LoadSessions(), m.ctrl.CheckHealth())
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	// Route all messages to toast, typing indicator and spinner
	m.toast, cmd = m.toast.Update(msg)
	cmds = append(cmds, cmd)
	m.typing, cmd = m.typing.Update(msg)
	cmds = append(cmds, cmd)
	m.spin, cmd = m.spin.Update(msg)
	cmds = append(cmds, cmd)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.refreshViewportBottom()

	case StateUpdateMsg:
		if msg.Snapshot.Version <= m.snap.Version {
			break
		}
		cmds = append(cmds, m.applySnapshot(msg.Snapshot))
		if msg.Notice != "" {
			cmds = append(cmds, uitk.ShowToastCmd(msg.Notice))
		}

	case sessionsLoadedMsg:
		if msg.err != nil {
			utils.LogDebugf("session list unavailable: %v", msg.err)
			break
		}
		cmds = append(cmds, m.afterSessionsLoaded())

	case messagesLoadedMsg:
		if msg.err != nil {
			utils.LogDebugf("messages for %s unavailable: %v", msg.id, msg.err)
		}

	case sendFinishedMsg:
		if notice := rejectionNotice(msg.err); notice != "" {
			cmds = append(cmds, m.restoreInput(msg.text), uitk.ShowToastCmd(notice))
		}

	case healthMsg:
		if msg.err != nil || msg.health == nil {
			m.health = "unreachable"
		} else {
			m.health = msg.health.Status
		}
		cmds = append(cmds, tea.Tick(healthInterval, func(time.Time) tea.Msg { return healthTickMsg{} }))

	case healthTickMsg:
		cmds = append(cmds, m.ctrl.CheckHealth())

	case configReloadedMsg:
		cmds = append(cmds, m.applyConfigReload(msg))

	case themeSavedMsg:
		if msg.err != nil {
			utils.LogDebugf("failed to save theme: %v", msg.err)
		}

	case TUIMessageMsg:
		if msg.Message.Type != DebugMessage {
			cmds = append(cmds, uitk.ShowToastCmd(FormatMessage(msg.Message)))
		}

	case uitk.SelectSessionMsg:
		cmds = append(cmds, m.ctrl.Select(msg.ID), m.focusOn(focusInput))

	case uitk.NewChatMsg:
		cmds = append(cmds, m.ctrl.NewChat(), m.focusOn(focusInput))

	case uitk.PreferencesChangedMsg:
		cmds = append(cmds, m.ctrl.SetPreferences(msg.Preferences))

	case uitk.ToggleThemeMsg:
		next := m.theme.Other()
		m.setTheme(next)
		cmds = append(cmds, saveThemeCmd(next), uitk.ShowToastCmd("Switched to "+next+" theme"))

	case tea.KeyMsg:
		cmds = append(cmds, m.handleKey(msg))

	default:
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *chatModel) handleKey(msg tea.KeyMsg) tea.Cmd {
	var cmd tea.Cmd

	switch msg.String() {
	case "ctrl+c":
		return tea.Quit
	case "ctrl+t":
		return uitk.ToggleThemeCmd()
	}

	if m.prefs.IsActive() {
		m.prefs, cmd = m.prefs.Update(msg)
		if !m.prefs.IsActive() {
			m.layout()
			return tea.Batch(cmd, m.focusOn(focusInput))
		}
		return cmd
	}

	switch msg.String() {
	case "ctrl+p":
		m.prefs.Toggle()
		m.textarea.Blur()
		m.layout()
		return nil
	case "ctrl+n":
		return tea.Batch(m.ctrl.NewChat(), m.focusOn(focusInput))
	case "ctrl+r":
		return tea.Batch(m.ctrl.LoadSessions(), m.ctrl.CheckHealth(), uitk.ShowToastCmd("Refreshing chats"))
	case "ctrl+y":
		return m.copyLastReply()
	case "tab":
		if m.focus == focusSidebar {
			return m.focusOn(focusInput)
		}
		return m.focusOn(focusSidebar)
	case "pgup", "pgdown", "ctrl+u", "ctrl+d":
		m.viewport, cmd = m.viewport.Update(msg)
		return cmd
	}

	if m.focus == focusSidebar {
		if msg.String() == "esc" {
			return m.focusOn(focusInput)
		}
		m.sidebar, cmd = m.sidebar.Update(msg)
		return cmd
	}

	if msg.Type == tea.KeyEnter {
		return m.submit()
	}
	// the textarea is blurred while a reply is pending and ignores keys
	m.textarea, cmd = m.textarea.Update(msg)
	return cmd
}

func (m *chatModel) submit() tea.Cmd {
	if m.snap.Awaiting {
		return nil
	}
	text := strings.TrimSpace(m.textarea.Value())
	if text == "" {
		return nil
	}
	var cmds []tea.Cmd
	active := m.snap.Active()
	if active == nil {
		cmds = append(cmds, m.ctrl.NewChat())
	} else if !m.snap.Loaded(active.ID) {
		// sending now would go out without the earlier turns
		return uitk.ShowToastCmd("Messages are still loading (ctrl+r to retry)")
	}
	m.textarea.Reset()
	m.textarea.Blur()
	m.textarea.Placeholder = waitingPlaceholder
	cmds = append(cmds, m.ctrl.Send(text), m.typing.Start())
	return tea.Batch(cmds...)
}

// restoreInput puts the text of a refused send back into an empty input.
func (m *chatModel) restoreInput(text string) tea.Cmd {
	if m.textarea.Value() == "" {
		m.textarea.SetValue(text)
	}
	m.textarea.Placeholder = inputPlaceholder
	if m.snap.Awaiting {
		return nil
	}
	m.typing.Stop()
	if m.focus != focusInput || m.prefs.IsActive() {
		return nil
	}
	return m.textarea.Focus()
}

// applySnapshot renders a newer store state.
func (m *chatModel) applySnapshot(snap session.Snapshot) tea.Cmd {
	m.snap = snap
	m.sidebar.SetSnapshot(snap)
	m.prefs.SetPreferences(snap.Preferences)

	var cmd tea.Cmd
	if snap.Awaiting {
		m.textarea.Blur()
		m.textarea.Placeholder = waitingPlaceholder
		cmd = m.typing.Start()
	} else {
		m.typing.Stop()
		m.textarea.Placeholder = inputPlaceholder
		if m.focus == focusInput && !m.prefs.IsActive() {
			cmd = m.textarea.Focus()
		}
	}
	m.refreshViewportBottom()
	return cmd
}

// afterSessionsLoaded selects a session requested on the command line, then
// loads the messages of whichever session ended up active.
func (m *chatModel) afterSessionsLoaded() tea.Cmd {
	snap := m.ctrl.Snapshot()
	var notice tea.Cmd
	if id := m.pendingSelect; id != "" {
		m.pendingSelect = ""
		if snap.Find(id) != nil {
			return m.ctrl.Select(id)
		}
		notice = uitk.ShowToastCmd("Session " + utils.Truncate(id, 12) + " not found")
	}
	if snap.ActiveID != "" && !snap.Loaded(snap.ActiveID) {
		return tea.Batch(notice, m.ctrl.LoadMessages(snap.ActiveID))
	}
	return notice
}

func (m *chatModel) applyConfigReload(msg configReloadedMsg) tea.Cmd {
	if msg.err != nil {
		utils.LogDebugf("config reload failed: %v", msg.err)
		return uitk.ShowToastCmd("Config reload failed, keeping " + m.ctrl.client.BaseURL())
	}
	if msg.apiURL == m.ctrl.client.BaseURL() {
		return nil
	}
	m.ctrl.SetBaseURL(msg.apiURL)
	current.APIURL = msg.apiURL
	return tea.Batch(
		uitk.ShowToastCmd("Config reloaded: "+msg.apiURL),
		m.ctrl.LoadSessions(),
		m.ctrl.CheckHealth(),
	)
}

func (m *chatModel) copyLastReply() tea.Cmd {
	active := m.snap.Active()
	if active == nil {
		return uitk.ShowToastCmd("Nothing to copy")
	}
	for i := len(active.Messages) - 1; i >= 0; i-- {
		if active.Messages[i].Role != api.RoleAssistant {
			continue
		}
		if err := clipboard.WriteAll(active.Messages[i].Content); err != nil {
			utils.LogDebugf("clipboard: %v", err)
			return uitk.ShowToastCmd("Clipboard unavailable")
		}
		return uitk.ShowToastCmd("Copied reply to clipboard")
	}
	return uitk.ShowToastCmd("Nothing to copy")
}

func (m *chatModel) focusOn(area focusArea) tea.Cmd {
	m.focus = area
	// a narrow terminal shows the sidebar only while it has focus
	m.layout()
	m.refreshViewportBottom()
	if area == focusSidebar {
		m.sidebar.Focus()
		m.textarea.Blur()
		return nil
	}
	m.sidebar.Blur()
	if m.snap.Awaiting {
		return nil
	}
	return m.textarea.Focus()
}

func (m *chatModel) setTheme(name string) {
	m.theme = uitk.ThemeFor(name)
	m.sidebar.SetTheme(m.theme)
	m.prefs.SetTheme(m.theme)
	m.toast.SetTheme(m.theme)
	m.typing.SetTheme(m.theme)
	m.spin.Style = lipgloss.NewStyle().Foreground(m.theme.Accent)
	m.refreshViewportBottom()
}

func saveThemeCmd(name string) tea.Cmd {
	return func() tea.Msg { return themeSavedMsg{err: saveTheme(name)} }
}

func (m chatModel) sidebarWidth() int {
	if m.width < narrowWidth && m.focus != focusSidebar {
		return 0
	}
	return uitk.SidebarWidth
}

// layout sizes the panes from the terminal size.
func (m *chatModel) layout() {
	sw := m.sidebarWidth()
	chatWidth := m.width - sw
	if chatWidth < 20 {
		chatWidth = 20
	}

	inputWidth := m.width - 2
	if inputWidth < 10 {
		inputWidth = 10
	}
	m.textarea.SetWidth(inputWidth)
	m.toast, _ = m.toast.Update(tea.WindowSizeMsg{Width: m.width, Height: m.height})
	m.prefs, _ = m.prefs.Update(tea.WindowSizeMsg{Width: chatWidth, Height: m.height})

	headerHeight := 2 // status bar and toast line
	footerHeight := lipgloss.Height(renderChatInput(*m))
	bodyHeight := m.height - headerHeight - footerHeight
	if bodyHeight < 3 {
		bodyHeight = 3
	}
	m.sidebar.SetSize(sw, bodyHeight)

	// typing indicator line
	vpHeight := bodyHeight - 1
	if m.prefs.IsActive() {
		vpHeight -= lipgloss.Height(m.prefs.View())
	}
	if vpHeight < 1 {
		vpHeight = 1
	}
	m.viewport.Width = chatWidth
	m.viewport.Height = vpHeight
}

func renderChatContent(m chatModel) string {
	width := m.viewport.Width - 2
	active := m.snap.Active()
	switch {
	case active == nil && m.snap.Loading:
		return lipgloss.Place(m.viewport.Width, m.viewport.Height, lipgloss.Center, lipgloss.Center, m.spin.View()+" Loading chats...")
	case active == nil || (len(active.Messages) == 0 && m.snap.Loaded(active.ID)):
		return uitk.RenderEmptyState(m.viewport.Width, m.viewport.Height, m.theme)
	case len(active.Messages) == 0:
		return lipgloss.Place(m.viewport.Width, m.viewport.Height, lipgloss.Center, lipgloss.Center, m.spin.View()+" Loading messages...")
	}
	return lipgloss.NewStyle().PaddingLeft(1).Render(uitk.RenderMessages(active.Messages, width, m.snap.Preferences.ReadingMode, m.theme))
}

// setViewportContent updates the viewport with the current chat rendering.
func (m *chatModel) setViewportContent() {
	m.viewport.SetContent(renderChatContent(*m))
}

// refreshViewportBottom updates the viewport and scrolls to the bottom.
func (m *chatModel) refreshViewportBottom() {
	m.setViewportContent()
	m.viewport.GotoBottom()
}

func renderChatInput(m chatModel) string {
	border := m.theme.Accent
	if m.focus != focusInput || m.snap.Awaiting {
		border = m.theme.Border
	}
	cbStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(border)

	var b strings.Builder
	b.WriteString(cbStyle.Render(m.textarea.View()))
	b.WriteString("\n")
	b.WriteString(uitk.RenderKeyHints(m.focus == focusSidebar, m.theme))
	return b.String()
}

func renderInfoBar(m chatModel) string {
	title := ""
	if active := m.snap.Active(); active != nil {
		title = active.Title
	}
	return uitk.RenderHeader(uitk.HeaderInfo{
		SessionTitle: title,
		Health:       m.health,
		Theme:        m.theme,
		Width:        m.width,
	})
}

func (m chatModel) View() string {
	chatPane := []string{}
	if m.prefs.IsActive() {
		chatPane = append(chatPane, m.prefs.View())
	}
	chatPane = append(chatPane, m.viewport.View())

	status := m.typing.View()
	if status == "" && m.snap.Loading {
		status = m.spin.View() + " Refreshing chats"
	}
	chatPane = append(chatPane, " "+status)

	body := lipgloss.JoinVertical(lipgloss.Left, chatPane...)
	if m.sidebarWidth() > 0 {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.sidebar.View(), body)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		renderInfoBar(m),
		m.toast.View(),
		body,
		renderChatInput(m),
	)
}
