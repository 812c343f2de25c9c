package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
	yaml "gopkg.in/yaml.v2"

	"neurotutor-cli/cmd/utils"
	"neurotutor-cli/internal/tui"
)

const stateFileName = "state.yaml"

// clientState is persisted between runs in the data directory.
type clientState struct {
	Theme string `yaml:"theme,omitempty"`
}

func getStatePath() (string, error) {
	dir, err := utils.GetDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, stateFileName), nil
}

// withStateLock holds a lock on the state file's sibling .lock file while fn
// runs. Two TUIs toggling the theme at once must not interleave writes.
func withStateLock(path string, shared bool, fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	lock := flock.New(path + ".lock")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var (
		locked bool
		err    error
	)
	if shared {
		locked, err = lock.TryRLockContext(ctx, 50*time.Millisecond)
	} else {
		locked, err = lock.TryLockContext(ctx, 50*time.Millisecond)
	}
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("timeout waiting for state file lock")
	}
	defer lock.Unlock()
	return fn()
}

func loadClientState() (clientState, error) {
	var st clientState
	path, err := getStatePath()
	if err != nil {
		return st, err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return st, nil
	}
	err = withStateLock(path, true, func() error {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read state file: %w", err)
		}
		if err := yaml.Unmarshal(data, &st); err != nil {
			return fmt.Errorf("failed to parse state file: %w", err)
		}
		return nil
	})
	return st, err
}

func saveClientState(st clientState) error {
	path, err := getStatePath()
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	return withStateLock(path, false, func() error {
		return utils.WriteFileAtomic(path, data, 0644)
	})
}

// resolveTheme picks the saved theme, then the config file's, then the
// terminal's background.
func resolveTheme() string {
	if st, err := loadClientState(); err != nil {
		utils.LogDebugf("theme state: %v", err)
	} else if name, err := tui.ParseThemeName(st.Theme); err == nil {
		return name
	}
	if current.Config != nil {
		if name, err := tui.ParseThemeName(current.Config.Theme); err == nil {
			return name
		}
	}
	return tui.DetectSystemTheme()
}

func saveTheme(name string) error {
	st, err := loadClientState()
	if err != nil {
		utils.LogDebugf("theme state unreadable, overwriting: %v", err)
		st = clientState{}
	}
	st.Theme = name
	return saveClientState(st)
}

var themeCmd = &cobra.Command{
	Use:       "theme [light|dark|toggle]",
	Short:     "Show or set the color theme",
	Long:      "Show the current color theme, or set it to light, dark, or the opposite of the current one. The choice is remembered between runs.",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{tui.ThemeLight, tui.ThemeDark, "toggle"},
	RunE: func(cmd *cobra.Command, args []string) error {
		active := resolveTheme()
		if len(args) == 0 {
			OutputInfoPlain("%s", active)
			return nil
		}

		var next string
		if strings.EqualFold(args[0], "toggle") {
			next = tui.ThemeFor(active).Other()
		} else {
			name, err := tui.ParseThemeName(args[0])
			if err != nil {
				return err
			}
			next = name
		}
		if err := saveTheme(next); err != nil {
			return fmt.Errorf("failed to save theme: %w", err)
		}
		OutputSuccess("Theme set to %s", next)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(themeCmd)
}
