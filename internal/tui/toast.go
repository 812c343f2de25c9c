package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ToastDuration is how long a notice stays visible.
const ToastDuration = 3 * time.Second

type ToastModel struct {
	message string
	visible bool
	shownAt time.Time
	width   int
	theme   Theme
}

type HideToastMsg struct{ shownAt time.Time }

func NewToastModel(theme Theme) ToastModel { return ToastModel{theme: theme} }

func (m *ToastModel) SetTheme(t Theme) { m.theme = t }

func (m ToastModel) Visible() bool { return m.visible }

func (m ToastModel) Message() string { return m.message }

func (m ToastModel) Update(msg tea.Msg) (ToastModel, tea.Cmd) {
	switch msg := msg.(type) {
	case ShowToastMsg:
		m.message = msg.Message
		m.visible = true
		m.shownAt = time.Now()
		shownAt := m.shownAt
		return m, tea.Tick(ToastDuration, func(time.Time) tea.Msg { return HideToastMsg{shownAt: shownAt} })
	case HideToastMsg:
		// a newer toast replaced the one this hide was scheduled for
		if msg.shownAt.IsZero() || msg.shownAt.Equal(m.shownAt) {
			m.visible = false
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
	}
	return m, nil
}

func (m ToastModel) View() string {
	if !m.visible {
		return ""
	}
	toast := lipgloss.NewStyle().
		Foreground(m.theme.ToastFg).
		Background(m.theme.ToastBg).
		Padding(0, 2).
		MarginRight(2).
		Bold(true).
		Render(m.message)
	if m.width <= 0 {
		return toast
	}
	return lipgloss.PlaceHorizontal(m.width, lipgloss.Right, toast)
}
