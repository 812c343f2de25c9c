package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"neurotutor-cli/cmd/config"
	"neurotutor-cli/internal/tui"
)

func TestClientStateRoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TUTOR_DATA_DIR", dir)

	st, err := loadClientState()
	if err != nil {
		t.Fatalf("loading a missing state file: %v", err)
	}
	if st.Theme != "" {
		t.Errorf("expected empty state, got %+v", st)
	}

	if err := saveTheme(tui.ThemeLight); err != nil {
		t.Fatalf("saveTheme: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, stateFileName)); err != nil {
		t.Fatalf("expected state file: %v", err)
	}

	st, err = loadClientState()
	if err != nil {
		t.Fatalf("loadClientState: %v", err)
	}
	if st.Theme != tui.ThemeLight {
		t.Errorf("expected light, got %q", st.Theme)
	}
}

func TestResolveThemePrecedence(t *testing.T) {
	old := current
	defer func() { current = old }()

	tests := []struct {
		name   string
		saved  string
		config string
		want   string
	}{
		{"saved wins", tui.ThemeLight, tui.ThemeDark, tui.ThemeLight},
		{"config when nothing saved", "", tui.ThemeLight, tui.ThemeLight},
		{"bad saved value falls through", "purple", tui.ThemeDark, tui.ThemeDark},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			t.Setenv("TUTOR_DATA_DIR", dir)
			if tt.saved != "" {
				if err := saveClientState(clientState{Theme: tt.saved}); err != nil {
					t.Fatal(err)
				}
			}
			current = settings{Config: &config.TutorConfig{Theme: tt.config}}

			if got := resolveTheme(); got != tt.want {
				t.Errorf("resolveTheme() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveThemeFallsBackToTerminal(t *testing.T) {
	old := current
	defer func() { current = old }()
	current = settings{}

	t.Setenv("TUTOR_DATA_DIR", t.TempDir())
	t.Setenv("COLORFGBG", "0;15")
	if got := resolveTheme(); got != tui.ThemeLight {
		t.Errorf("expected light from COLORFGBG, got %q", got)
	}
}
