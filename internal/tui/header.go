package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"neurotutor-cli/cmd/utils"
)

const AppTitle = "Neuro Tutor"

// HeaderInfo is what the header shows.
type HeaderInfo struct {
	SessionTitle string
	Health       string // "healthy", "unreachable", "" for unknown
	Theme        Theme
	Width        int
}

// RenderHeader draws the single-line status bar at the top of the chat page.
func RenderHeader(h HeaderInfo) string {
	t := h.Theme
	bar := lipgloss.NewStyle().Background(t.StatusBg).Foreground(t.StatusFg)
	title := bar.Bold(true).Foreground(t.Accent).Render(" " + AppTitle + " ")

	dotColor := t.Muted
	switch strings.ToLower(h.Health) {
	case "healthy", "ok":
		dotColor = lipgloss.Color("42")
	case "degraded":
		dotColor = lipgloss.Color("214")
	case "unhealthy", "unreachable":
		dotColor = t.Error
	}
	dot := bar.Foreground(dotColor).Render(utils.IconForStatus(h.Health) + " ")

	themeLabel := "☾ dark"
	if t.Name == ThemeLight {
		themeLabel = "☀ light"
	}
	right := bar.Render(themeLabel + "  ")

	left := title + dot
	avail := h.Width - lipgloss.Width(left) - lipgloss.Width(right)
	session := ""
	if h.SessionTitle != "" && avail > 4 {
		session = truncate.StringWithTail(h.SessionTitle, uint(avail-1), "...")
	}
	middle := bar.Render(session)
	line := left + middle
	if gap := h.Width - lipgloss.Width(line) - lipgloss.Width(right); gap > 0 {
		line += bar.Render(strings.Repeat(" ", gap))
	}
	return line + right
}

// RenderKeyHints is the faint help line under the input.
func RenderKeyHints(sidebarFocused bool, theme Theme) string {
	hints := []string{"enter send", "tab sidebar", "ctrl+n new", "ctrl+p prefs", "ctrl+t theme", "ctrl+r reload", "ctrl+y copy", "ctrl+c quit"}
	if sidebarFocused {
		hints = []string{"↑↓ move", "enter open", "n new", "tab input", "ctrl+c quit"}
	}
	return lipgloss.NewStyle().Foreground(theme.Muted).Faint(true).Render(strings.Join(hints, " • "))
}
