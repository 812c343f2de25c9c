package tui

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"

	"neurotutor-cli/internal/api"
)

const (
	emptyTitle = "Start a conversation"
	emptyHint  = "Ask me anything about neuroscience, from neurons to networks."
)

// RenderMessages lays msgs out as chat bubbles in a column width cells
// wide: user turns on the right, tutor turns on the left. Compact reading
// mode drops the blank line between turns.
func RenderMessages(msgs []api.Message, width int, readingMode string, theme Theme) string {
	if width < 20 {
		width = 20
	}
	sep := "\n\n"
	if readingMode == api.ReadingCompact {
		sep = "\n"
	}
	parts := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		parts = append(parts, renderBubble(msg, width, theme))
	}
	return strings.Join(parts, sep)
}

func renderBubble(msg api.Message, width int, theme Theme) string {
	maxBubble := width * 3 / 4
	if maxBubble < 16 {
		maxBubble = width
	}
	// one cell of padding on each side
	body := wrapContent(msg.Content, maxBubble-2)

	label := "Tutor"
	bg, fg := theme.AssistantBubble, theme.AssistantText
	align := lipgloss.Left
	if msg.Role == api.RoleUser {
		label = "You"
		bg, fg = theme.UserBubble, theme.UserText
		align = lipgloss.Right
	}
	if at := clockTime(msg.Timestamp); at != "" {
		label += " · " + at
	}

	bubble := lipgloss.NewStyle().
		Background(bg).
		Foreground(fg).
		Padding(0, 1).
		Render(body)
	caption := lipgloss.NewStyle().Foreground(theme.Muted).Render(label)
	block := lipgloss.JoinVertical(align, caption, bubble)
	return lipgloss.PlaceHorizontal(width, align, block)
}

// wrapContent word-wraps s to width, hard-breaking words that are longer
// than a whole line.
func wrapContent(s string, width int) string {
	if width <= 0 {
		return s
	}
	s = strings.TrimRight(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	return wrap.String(wordwrap.String(s, width), width)
}

func clockTime(ts string) string {
	t, ok := api.ParseTimestamp(ts)
	if !ok {
		return ""
	}
	return t.Local().Format("15:04")
}

// RenderEmptyState is shown for a session without messages.
func RenderEmptyState(width, height int, theme Theme) string {
	title := lipgloss.NewStyle().Bold(true).Foreground(theme.Accent).Render(emptyTitle)
	hint := lipgloss.NewStyle().Foreground(theme.Muted).Render(wrapContent(emptyHint, max(width-4, 10)))
	block := lipgloss.JoinVertical(lipgloss.Center, title, "", hint)
	if width <= 0 || height <= 0 {
		return block
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, block)
}

// TypingInterval is the frame time of the typing indicator.
const TypingInterval = 250 * time.Millisecond

type typingTickMsg struct{ id int }

// TypingModel animates three dots while a reply is pending.
type TypingModel struct {
	active bool
	frame  int
	id     int
	theme  Theme
}

func NewTypingModel(theme Theme) TypingModel { return TypingModel{theme: theme} }

func (m *TypingModel) SetTheme(t Theme) { m.theme = t }

func (m TypingModel) Active() bool { return m.active }

// Start begins the animation. Calling it while running is a no-op.
func (m *TypingModel) Start() tea.Cmd {
	if m.active {
		return nil
	}
	m.active = true
	m.frame = 0
	m.id++
	return m.tick()
}

func (m *TypingModel) Stop() { m.active = false }

func (m TypingModel) tick() tea.Cmd {
	id := m.id
	return tea.Tick(TypingInterval, func(time.Time) tea.Msg { return typingTickMsg{id: id} })
}

func (m TypingModel) Update(msg tea.Msg) (TypingModel, tea.Cmd) {
	tick, ok := msg.(typingTickMsg)
	if !ok || !m.active || tick.id != m.id {
		return m, nil
	}
	m.frame = (m.frame + 1) % 3
	return m, m.tick()
}

func (m TypingModel) View() string {
	if !m.active {
		return ""
	}
	dim := lipgloss.NewStyle().Foreground(m.theme.Muted)
	lit := lipgloss.NewStyle().Foreground(m.theme.Accent).Bold(true)
	dots := make([]string, 3)
	for i := range dots {
		if i == m.frame {
			dots[i] = lit.Render("●")
		} else {
			dots[i] = dim.Render("●")
		}
	}
	return dim.Render("Tutor is thinking ") + strings.Join(dots, " ")
}
