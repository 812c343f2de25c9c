package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// GetDataDir returns the directory to store tutor state (debug log, theme).
func GetDataDir() (string, error) {
	dataDir := os.Getenv("TUTOR_DATA_DIR")
	if dataDir != "" {
		return dataDir, nil
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".neurotutor"), nil
	} else {
		return "", fmt.Errorf("getDataDir: could not determine home directory: %w", err)
	}
}

// WriteFileAtomic writes data to a sibling temp file and moves it over path,
// so readers never observe a half-written file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to finalize temp file: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return err
	}
	return replaceFile(tmpName, path)
}

// replaceFile renames src over dst. Windows refuses to rename onto an
// existing file, so dst is removed first there.
func replaceFile(src, dst string) error {
	if runtime.GOOS == "windows" {
		if _, err := os.Stat(dst); err == nil {
			if err := os.Remove(dst); err != nil {
				return fmt.Errorf("failed to remove existing file at %s: %w", dst, err)
			}
		}
	}
	if err := os.Rename(src, dst); err != nil {
		os.Remove(src)
		return fmt.Errorf("failed to replace %s: %w", dst, err)
	}
	return nil
}

// OverrideCwd is set from the global --cwd flag.
var OverrideCwd string

// GetEffectiveCWD returns --cwd as an absolute path when set, otherwise the
// process working directory. Config files are searched here.
func GetEffectiveCWD() string {
	if dir := strings.TrimSpace(OverrideCwd); dir != "" {
		if abs, err := filepath.Abs(dir); err == nil {
			return abs
		}
		return "."
	}
	if wd, _ := os.Getwd(); wd != "" {
		return wd
	}
	return "."
}
