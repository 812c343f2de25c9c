package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func TestStartConfigWatcherReloadsAPIURL(t *testing.T) {
	t.Setenv("TUTOR_API_URL", "")
	t.Setenv("VITE_API_URL", "")

	dir := t.TempDir()
	path := filepath.Join(dir, "tutor.yaml")
	if err := os.WriteFile(path, []byte("api_url: http://one:8000/api\n"), 0644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan configReloadedMsg, 8)
	err := StartConfigWatcher(ctx, path, func(msg tea.Msg) {
		if m, ok := msg.(configReloadedMsg); ok {
			got <- m
		}
	})
	if err != nil {
		t.Fatalf("StartConfigWatcher: %v", err)
	}

	if err := os.WriteFile(path, []byte("api_url: http://two:8000/api/\n"), 0644); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case m := <-got:
			if m.err != nil {
				t.Fatalf("unexpected reload error: %v", m.err)
			}
			if m.apiURL == "http://two:8000/api" {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for config reload")
		}
	}
}

func TestWatchConfigFileIgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tutor.yaml")
	if err := os.WriteFile(path, []byte("api_url: http://one/api\n"), 0644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := make(chan struct{}, 8)
	if err := StartConfigWatcher(ctx, path, func(tea.Msg) { calls <- struct{}{} }); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-calls:
		t.Error("a change to another file triggered a reload")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestStartConfigWatcherNoPath(t *testing.T) {
	if err := StartConfigWatcher(context.Background(), "", func(tea.Msg) {}); err != nil {
		t.Errorf("expected no error without a config path, got %v", err)
	}
}
