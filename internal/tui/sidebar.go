package tui

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"neurotutor-cli/cmd/utils"
	"neurotutor-cli/internal/session"
)

// SidebarWidth is the default width of the session list.
const SidebarWidth = 30

const newChatLabel = "+ New Chat"

// SidebarModel lists sessions most recent first. Row 0 is the
// "+ New Chat" entry; row i+1 is sessions[i].
type SidebarModel struct {
	sessions []session.Session
	activeID string
	loading  bool

	cursor  int
	offset  int
	focused bool
	width   int
	height  int
	theme   Theme
	now     func() time.Time
}

func NewSidebarModel(theme Theme) SidebarModel {
	return SidebarModel{width: SidebarWidth, theme: theme, now: time.Now}
}

func (m *SidebarModel) SetTheme(t Theme) { m.theme = t }

func (m *SidebarModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.clampOffset()
}

func (m *SidebarModel) Focus()       { m.focused = true }
func (m *SidebarModel) Blur()        { m.focused = false }
func (m SidebarModel) Focused() bool { return m.focused }

// Cursor returns the highlighted row.
func (m SidebarModel) Cursor() int { return m.cursor }

// SetSnapshot replaces the rendered sessions. The cursor stays on the same
// session when it still exists, including across a temp id rekey of the
// active session.
func (m *SidebarModel) SetSnapshot(snap session.Snapshot) {
	prevID := m.cursorID()
	hadSessions := len(m.sessions) > 0

	m.sessions = snap.Sessions
	m.activeID = snap.ActiveID
	m.loading = snap.Loading

	switch {
	case prevID != "" && m.indexOf(prevID) >= 0:
		m.cursor = m.indexOf(prevID) + 1
	case prevID == "" && hadSessions:
		m.cursor = 0
	default:
		m.cursor = m.indexOf(m.activeID) + 1
	}
	if m.cursor > len(m.sessions) {
		m.cursor = len(m.sessions)
	}
	m.clampOffset()
}

func (m SidebarModel) cursorID() string {
	if m.cursor <= 0 || m.cursor > len(m.sessions) {
		return ""
	}
	return m.sessions[m.cursor-1].ID
}

func (m SidebarModel) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i, s := range m.sessions {
		if s.ID == id {
			return i
		}
	}
	return -1
}

func (m SidebarModel) Update(msg tea.Msg) (SidebarModel, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok || !m.focused {
		return m, nil
	}
	last := len(m.sessions)
	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		} else {
			m.cursor = last
		}
	case "down", "j":
		if m.cursor < last {
			m.cursor++
		} else {
			m.cursor = 0
		}
	case "home", "g":
		m.cursor = 0
	case "end", "G":
		m.cursor = last
	case "n":
		return m, newChatCmd()
	case "enter":
		if m.cursor == 0 {
			return m, newChatCmd()
		}
		return m, selectSessionCmd(m.sessions[m.cursor-1].ID)
	default:
		return m, nil
	}
	m.clampOffset()
	return m, nil
}

// visibleRows is how many session rows fit below the header and the
// "+ New Chat" line. Each session takes two lines.
func (m SidebarModel) visibleRows() int {
	if m.height <= 0 {
		return len(m.sessions)
	}
	rows := (m.height - 4) / 2
	if rows < 1 {
		rows = 1
	}
	return rows
}

func (m *SidebarModel) clampOffset() {
	rows := m.visibleRows()
	idx := m.cursor - 1
	if idx < 0 {
		idx = 0
	}
	if idx < m.offset {
		m.offset = idx
	}
	if idx >= m.offset+rows {
		m.offset = idx - rows + 1
	}
	if maxOffset := len(m.sessions) - rows; m.offset > maxOffset {
		m.offset = maxOffset
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

func (m SidebarModel) View() string {
	inner := m.width - 2
	if inner < 8 {
		inner = 8
	}
	header := lipgloss.NewStyle().Bold(true).Foreground(m.theme.Accent)
	muted := lipgloss.NewStyle().Foreground(m.theme.Muted)
	cursorStyle := lipgloss.NewStyle().Background(m.theme.Highlight).Foreground(m.theme.Text)
	activeStyle := lipgloss.NewStyle().Bold(true).Foreground(m.theme.Accent)

	var b strings.Builder
	b.WriteString(header.Render("Chats") + "\n")

	newLine := padRight(newChatLabel, inner)
	if m.focused && m.cursor == 0 {
		newLine = cursorStyle.Render(newLine)
	} else {
		newLine = activeStyle.Render(newLine)
	}
	b.WriteString(newLine + "\n\n")

	if m.loading && len(m.sessions) == 0 {
		b.WriteString(muted.Render("Loading chats...") + "\n")
		return m.frame(b.String())
	}
	if len(m.sessions) == 0 {
		b.WriteString(muted.Render("No chats yet") + "\n")
		return m.frame(b.String())
	}

	now := m.now()
	end := m.offset + m.visibleRows()
	if end > len(m.sessions) {
		end = len(m.sessions)
	}
	for i := m.offset; i < end; i++ {
		s := m.sessions[i]
		marker := "  "
		if s.ID == m.activeID {
			marker = "▌ "
		}
		title := padRight(marker+truncate.StringWithTail(s.Title, uint(inner-2), "..."), inner)
		when := s.UpdatedAt
		if when.IsZero() {
			when = s.CreatedAt
		}
		sub := padRight("  "+utils.FormatLastActive(when, now), inner)

		switch {
		case m.focused && m.cursor == i+1:
			title = cursorStyle.Render(title)
			sub = cursorStyle.Render(sub)
		case s.ID == m.activeID:
			title = activeStyle.Render(title)
			sub = muted.Render(sub)
		default:
			sub = muted.Render(sub)
		}
		b.WriteString(title + "\n" + sub + "\n")
	}
	if m.loading {
		b.WriteString(muted.Render("Refreshing...") + "\n")
	}
	return m.frame(b.String())
}

func (m SidebarModel) frame(content string) string {
	border := m.theme.Border
	if m.focused {
		border = m.theme.Accent
	}
	style := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, true, false, false).
		BorderForeground(border).
		Width(m.width - 1).
		PaddingLeft(1)
	if m.height > 0 {
		style = style.Height(m.height)
	}
	return style.Render(strings.TrimRight(content, "\n"))
}

func padRight(s string, width int) string {
	s = truncate.String(s, uint(width))
	if diff := width - lipgloss.Width(s); diff > 0 {
		return s + strings.Repeat(" ", diff)
	}
	return s
}
