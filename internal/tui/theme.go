package tui

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// Theme is a palette of terminal colors. The two palettes mirror the web
// client's light and dark modes.
type Theme struct {
	Name string

	Accent          lipgloss.Color
	Text            lipgloss.Color
	Muted           lipgloss.Color
	Border          lipgloss.Color
	UserBubble      lipgloss.Color
	UserText        lipgloss.Color
	AssistantBubble lipgloss.Color
	AssistantText   lipgloss.Color
	Highlight       lipgloss.Color
	StatusBg        lipgloss.Color
	StatusFg        lipgloss.Color
	ToastBg         lipgloss.Color
	ToastFg         lipgloss.Color
	Error           lipgloss.Color
}

var (
	lightTheme = Theme{
		Name:            ThemeLight,
		Accent:          lipgloss.Color("63"),
		Text:            lipgloss.Color("235"),
		Muted:           lipgloss.Color("244"),
		Border:          lipgloss.Color("250"),
		UserBubble:      lipgloss.Color("63"),
		UserText:        lipgloss.Color("231"),
		AssistantBubble: lipgloss.Color("254"),
		AssistantText:   lipgloss.Color("235"),
		Highlight:       lipgloss.Color("189"),
		StatusBg:        lipgloss.Color("252"),
		StatusFg:        lipgloss.Color("236"),
		ToastBg:         lipgloss.Color("63"),
		ToastFg:         lipgloss.Color("231"),
		Error:           lipgloss.Color("160"),
	}
	darkTheme = Theme{
		Name:            ThemeDark,
		Accent:          lipgloss.Color("86"),
		Text:            lipgloss.Color("252"),
		Muted:           lipgloss.Color("240"),
		Border:          lipgloss.Color("238"),
		UserBubble:      lipgloss.Color("62"),
		UserText:        lipgloss.Color("230"),
		AssistantBubble: lipgloss.Color("236"),
		AssistantText:   lipgloss.Color("252"),
		Highlight:       lipgloss.Color("237"),
		StatusBg:        lipgloss.Color("235"),
		StatusFg:        lipgloss.Color("250"),
		ToastBg:         lipgloss.Color("86"),
		ToastFg:         lipgloss.Color("230"),
		Error:           lipgloss.Color("203"),
	}
)

// ThemeFor returns the palette for name. Unknown names get the dark palette.
func ThemeFor(name string) Theme {
	if strings.EqualFold(strings.TrimSpace(name), ThemeLight) {
		return lightTheme
	}
	return darkTheme
}

// ParseThemeName normalizes a user supplied theme name.
func ParseThemeName(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case ThemeLight:
		return ThemeLight, nil
	case ThemeDark:
		return ThemeDark, nil
	}
	return "", fmt.Errorf("unknown theme %q (expected light or dark)", s)
}

// Other returns the name of the opposite palette.
func (t Theme) Other() string {
	if t.Name == ThemeLight {
		return ThemeDark
	}
	return ThemeLight
}

// DetectSystemTheme guesses the terminal background from COLORFGBG
// ("fg;bg", where bg 7 or 15 is a light background). Terminals that do not
// set it are assumed dark.
func DetectSystemTheme() string {
	return themeFromColorFGBG(os.Getenv("COLORFGBG"))
}

func themeFromColorFGBG(v string) string {
	parts := strings.Split(v, ";")
	if len(parts) < 2 {
		return ThemeDark
	}
	bg, err := strconv.Atoi(strings.TrimSpace(parts[len(parts)-1]))
	if err != nil {
		return ThemeDark
	}
	if bg == 7 || bg == 15 {
		return ThemeLight
	}
	return ThemeDark
}
