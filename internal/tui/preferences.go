package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"neurotutor-cli/internal/api"
)

type prefField int

const (
	fieldVerbosity prefField = iota
	fieldStyle
	fieldVisualAids
	fieldReadingMode
	fieldCount
)

var styleLabels = map[string]string{
	api.StyleConcise:    "Concise",
	api.StyleStepByStep: "Step by step",
	api.StyleAnalogy:    "Analogy",
}

var readingLabels = map[string]string{
	api.ReadingCompact:     "Compact",
	api.ReadingComfortable: "Comfortable",
}

// PreferencesModel is the learning preferences drawer. Every edit is
// applied immediately through PreferencesChangedMsg.
type PreferencesModel struct {
	active bool
	cursor prefField
	prefs  api.Preferences
	width  int
	height int
	theme  Theme
}

func NewPreferencesModel(p api.Preferences, theme Theme) PreferencesModel {
	return PreferencesModel{prefs: p, theme: theme}
}

func (m *PreferencesModel) SetTheme(t Theme) { m.theme = t }

// SetPreferences syncs the drawer with the store.
func (m *PreferencesModel) SetPreferences(p api.Preferences) { m.prefs = p }

func (m PreferencesModel) Preferences() api.Preferences { return m.prefs }

func (m *PreferencesModel) Toggle() {
	m.active = !m.active
	if m.active {
		m.cursor = fieldVerbosity
	}
}

func (m *PreferencesModel) Close()        { m.active = false }
func (m PreferencesModel) IsActive() bool { return m.active }

func (m PreferencesModel) Update(msg tea.Msg) (PreferencesModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		if !m.active {
			return m, nil
		}
		switch msg.String() {
		case "esc", "ctrl+p", "q":
			m.active = false
		case "up", "k":
			m.cursor = (m.cursor - 1 + fieldCount) % fieldCount
		case "down", "j", "tab":
			m.cursor = (m.cursor + 1) % fieldCount
		case "left", "h":
			return m.adjust(-1)
		case "right", "l", "enter", " ":
			return m.adjust(1)
		}
	}
	return m, nil
}

func (m PreferencesModel) adjust(delta int) (PreferencesModel, tea.Cmd) {
	p := m.prefs
	switch m.cursor {
	case fieldVerbosity:
		p.VerbosityLevel += delta
		if p.VerbosityLevel < 1 {
			p.VerbosityLevel = 1
		}
		if p.VerbosityLevel > 5 {
			p.VerbosityLevel = 5
		}
	case fieldStyle:
		p.ExplanationStyle = cycle(api.ExplanationStyles, p.ExplanationStyle, delta)
	case fieldVisualAids:
		p.VisualAids = !p.VisualAids
	case fieldReadingMode:
		p.ReadingMode = cycle(api.ReadingModes, p.ReadingMode, delta)
	}
	if p == m.prefs {
		return m, nil
	}
	m.prefs = p
	return m, preferencesChangedCmd(p)
}

func cycle(options []string, current string, delta int) string {
	idx := 0
	for i, o := range options {
		if o == current {
			idx = i
			break
		}
	}
	n := len(options)
	return options[((idx+delta)%n+n)%n]
}

func (m PreferencesModel) View() string {
	if !m.active {
		return ""
	}
	const drawerWidth = 44
	header := lipgloss.NewStyle().Bold(true).Foreground(m.theme.Accent)
	focused := lipgloss.NewStyle().Foreground(m.theme.Accent).Bold(true)
	hint := lipgloss.NewStyle().Foreground(m.theme.Muted)

	rows := []struct{ label, value string }{
		{"Verbosity", verbosityBar(m.prefs.VerbosityLevel)},
		{"Style", "‹ " + styleLabels[m.prefs.ExplanationStyle] + " ›"},
		{"Visual aids", checkbox(m.prefs.VisualAids)},
		{"Reading mode", "‹ " + readingLabels[m.prefs.ReadingMode] + " ›"},
	}

	var b strings.Builder
	b.WriteString(header.Render("Learning Preferences") + "\n")
	b.WriteString(hint.Render(strings.Repeat("─", drawerWidth-6)) + "\n\n")
	for i, r := range rows {
		cursor := "  "
		if prefField(i) == m.cursor {
			cursor = "→ "
		}
		line := fmt.Sprintf("%s%-13s %s", cursor, r.label, r.value)
		if prefField(i) == m.cursor {
			line = focused.Render(line)
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n" + hint.Render("↑↓: field  ←→: change  Esc: close"))

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.theme.Accent).
		Padding(1, 2).
		Width(drawerWidth).
		Render(b.String())
	if m.width <= 0 {
		return box
	}
	return lipgloss.PlaceHorizontal(m.width, lipgloss.Right, box)
}

func verbosityBar(level int) string {
	var b strings.Builder
	for i := 1; i <= 5; i++ {
		if i <= level {
			b.WriteString("■")
		} else {
			b.WriteString("□")
		}
	}
	return fmt.Sprintf("%s %d/5", b.String(), level)
}

func checkbox(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}
