package tui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"

	"neurotutor-cli/internal/api"
)

func TestRenderMessagesReadingMode(t *testing.T) {
	msgs := []api.Message{
		{ID: "1", Role: api.RoleUser, Content: "What is a synapse?"},
		{ID: "2", Role: api.RoleAssistant, Content: "A junction between two neurons."},
	}
	theme := ThemeFor(ThemeDark)
	comfortable := RenderMessages(msgs, 60, api.ReadingComfortable, theme)
	compact := RenderMessages(msgs, 60, api.ReadingCompact, theme)

	if got, want := strings.Count(comfortable, "\n")-strings.Count(compact, "\n"), 1; got != want {
		t.Fatalf("comfortable has %d more lines than compact, want %d", got, want)
	}
	for _, want := range []string{"You", "Tutor", "What is a synapse?", "A junction between two neurons."} {
		if !strings.Contains(compact, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestRenderMessagesAlignment(t *testing.T) {
	theme := ThemeFor(ThemeLight)
	user := RenderMessages([]api.Message{{Role: api.RoleUser, Content: "hi"}}, 40, api.ReadingCompact, theme)
	tutor := RenderMessages([]api.Message{{Role: api.RoleAssistant, Content: "hello"}}, 40, api.ReadingCompact, theme)

	lastLine := func(s string) string {
		lines := strings.Split(s, "\n")
		return lines[len(lines)-1]
	}
	if i := strings.Index(lastLine(user), "hi"); i < 20 {
		t.Errorf("user bubble not right aligned: %q", lastLine(user))
	}
	if i := strings.Index(lastLine(tutor), "hello"); i < 0 || i > 2 {
		t.Errorf("tutor bubble not left aligned: %q", lastLine(tutor))
	}
}

func TestWrapContent(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		width int
	}{
		{"words", "the hippocampus consolidates short term memories into long term storage", 20},
		{"long word", strings.Repeat("a", 50), 10},
		{"newlines kept", "line one\nline two", 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := wrapContent(tt.in, tt.width)
			for _, line := range strings.Split(out, "\n") {
				if w := lipgloss.Width(line); w > tt.width {
					t.Errorf("line %q is %d wide, limit %d", line, w, tt.width)
				}
			}
		})
	}
}

func TestRenderEmptyState(t *testing.T) {
	out := RenderEmptyState(60, 10, ThemeFor(ThemeDark))
	if !strings.Contains(out, "Start a conversation") {
		t.Fatalf("missing empty state title:\n%s", out)
	}
	if h := lipgloss.Height(out); h != 10 {
		t.Fatalf("height = %d, want 10", h)
	}
}

func TestTypingModel(t *testing.T) {
	m := NewTypingModel(ThemeFor(ThemeDark))
	if m.View() != "" {
		t.Fatal("inactive indicator should render nothing")
	}
	if cmd := m.Start(); cmd == nil {
		t.Fatal("Start should schedule a tick")
	}
	if cmd := m.Start(); cmd != nil {
		t.Fatal("second Start should be a no-op")
	}
	if !strings.Contains(m.View(), "thinking") {
		t.Fatalf("view = %q", m.View())
	}

	m, cmd := m.Update(typingTickMsg{id: m.id})
	if cmd == nil || m.frame != 1 {
		t.Fatalf("tick should advance the frame, frame=%d", m.frame)
	}

	m, cmd = m.Update(typingTickMsg{id: m.id - 1})
	if cmd != nil {
		t.Fatal("stale tick should be dropped")
	}

	m.Stop()
	if _, cmd := m.Update(typingTickMsg{id: m.id}); cmd != nil {
		t.Fatal("stopped indicator should not tick")
	}
}
