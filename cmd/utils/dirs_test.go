package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state", "theme")

	for _, content := range []string{"dark", "light"} {
		t.Run(content, func(t *testing.T) {
			if err := WriteFileAtomic(path, []byte(content), 0644); err != nil {
				t.Fatalf("WriteFileAtomic: %v", err)
			}
			got, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("read back: %v", err)
			}
			if string(got) != content {
				t.Errorf("content = %q, want %q", got, content)
			}
			// no temp files are left next to the target
			entries, _ := os.ReadDir(filepath.Dir(path))
			if len(entries) != 1 {
				t.Errorf("expected only the target file, got %d entries", len(entries))
			}
		})
	}
}

func TestReplaceFileRemovesSourceOnFailure(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	if err := os.WriteFile(src, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	// a missing parent directory makes the rename fail
	if err := replaceFile(src, filepath.Join(dir, "missing", "dst")); err == nil {
		t.Fatal("expected an error")
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Errorf("expected the source removed, stat err = %v", err)
	}
}
