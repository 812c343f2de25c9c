package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"neurotutor-cli/internal/api"
)

// SelectSessionMsg asks the chat page to make a session active.
type SelectSessionMsg struct{ ID string }

func selectSessionCmd(id string) tea.Cmd {
	return func() tea.Msg { return SelectSessionMsg{ID: id} }
}

// NewChatMsg asks the chat page to start a fresh session.
type NewChatMsg struct{}

func newChatCmd() tea.Cmd { return func() tea.Msg { return NewChatMsg{} } }

// PreferencesChangedMsg carries edited learning preferences.
type PreferencesChangedMsg struct{ Preferences api.Preferences }

func preferencesChangedCmd(p api.Preferences) tea.Cmd {
	return func() tea.Msg { return PreferencesChangedMsg{Preferences: p} }
}

type ToggleThemeMsg struct{}

// ToggleThemeCmd emits ToggleThemeMsg.
func ToggleThemeCmd() tea.Cmd { return func() tea.Msg { return ToggleThemeMsg{} } }

type ShowToastMsg struct{ Message string }

// ShowToastCmd shows message in the toast area for a few seconds.
func ShowToastCmd(message string) tea.Cmd {
	return func() tea.Msg { return ShowToastMsg{Message: message} }
}
