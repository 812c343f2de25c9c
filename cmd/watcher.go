package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"

	"neurotutor-cli/cmd/config"
	"neurotutor-cli/cmd/utils"
)

// configDebounce lets editors finish their write-rename dance before the
// file is parsed.
const configDebounce = 100 * time.Millisecond

// configReloadedMsg carries the API URL resolved from a changed config file.
type configReloadedMsg struct {
	apiURL string
	err    error
}

// watchConfigFile calls onChange with the freshly parsed file every time
// path settles after a change, until ctx is done. The parent directory is
// watched rather than the file, so atomic replaces are seen too.
func watchConfigFile(ctx context.Context, path string, debounce time.Duration, onChange func(*config.TutorConfig, error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch config directory: %w", err)
	}
	utils.LogDebugf("watching config %s", abs)

	go func() {
		defer watcher.Close()

		var (
			timer *time.Timer
			fire  <-chan time.Time
		)
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != abs {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(debounce)
				} else {
					timer.Reset(debounce)
				}
				fire = timer.C
			case <-fire:
				fire = nil
				onChange(config.LoadConfigFile(abs))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				utils.LogDebugf("config watcher error: %v", err)
			}
		}
	}()
	return nil
}

// StartConfigWatcher hot-reloads api_url from the active config file into
// the running program. Flags and environment variables still win.
func StartConfigWatcher(ctx context.Context, path string, send func(tea.Msg)) error {
	if path == "" {
		return nil
	}
	return watchConfigFile(ctx, path, configDebounce, func(cfg *config.TutorConfig, err error) {
		if err != nil {
			send(configReloadedMsg{err: err})
			return
		}
		send(configReloadedMsg{apiURL: config.ResolveAPIURL(apiURLFlag, cfg)})
	})
}
