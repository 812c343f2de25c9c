package utils

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

type redaction struct {
	re   *regexp.Regexp
	repl string
}

var (
	debugOnce   sync.Once
	debugFile   *os.File
	debugLogger *log.Logger
	enableDebug bool = false

	// DebugSink receives sanitized debug lines when debug mode is on.
	// The cmd package points it at the output manager so lines land in the TUI
	// while it runs; nil means stderr.
	DebugSink func(string)

	// redactions run in order; specific shapes come before the generic
	// key=value rules that would otherwise swallow them
	redactions = []redaction{
		{regexp.MustCompile(`\beyJ[\w-]+\.eyJ[\w-]+\.[\w-]+`), "[REDACTED-JWT]"},
		{regexp.MustCompile(`\b(sk|pk|sess)-[\w-]{20,}`), "[REDACTED-KEY]"},
		{regexp.MustCompile(`(?i)(authorization[=:\s]+['"]?)(basic|bearer|digest)\s+[\w\-.=]+`), "${1}${2} [REDACTED]"},
		{regexp.MustCompile(`(?i)(bearer\s+)[\w\-.]+`), "${1}[REDACTED]"},
		{regexp.MustCompile(`(?i)((?:api[_-]?key|(?:access|refresh)[_-]?token|token)[=:\s]+['"]?)[\w\-.]{16,}`), "${1}[REDACTED]"},
		{regexp.MustCompile(`(?i)((?:password|passwd|pwd)[=:\s]+['"]?)[^\s&'"]+`), "${1}[REDACTED]"},
		// header-style session ids only; "session_id":"..." in JSON bodies stays readable
		{regexp.MustCompile(`(?i)((?:session[_-]?id|sid)[=:\s]+['"]?)[\w-]{16,}`), "${1}[REDACTED]"},
		{regexp.MustCompile(`(?i)(cookie[=:\s]+['"]?)[^;\n]+`), "${1}[REDACTED]"},
	}
)

// InitDebugLogger initializes a shared file-backed logger and Bubble Tea logging.
// If path is empty, it defaults to debug.log in the tutor data directory.
// Safe to call multiple times.
func InitDebugLogger(path string, debug bool) error {
	enableDebug = debug
	var initErr error
	debugOnce.Do(func() {
		if path == "" {
			dir, err := GetDataDir()
			if err != nil {
				dir = GetEffectiveCWD()
			}
			if err := os.MkdirAll(dir, 0755); err != nil {
				initErr = fmt.Errorf("failed to create data directory: %w", err)
				return
			}
			path = filepath.Join(dir, "debug.log")
		}

		if debug {
			absPath, _ := filepath.Abs(path)
			if absPath == "" {
				absPath = path
			}
			fmt.Fprintf(os.Stderr, "[DEBUG] Logging to: %s\n", absPath)
		}

		// Bubble Tea's LogToFile also routes tea's own logging into the same file
		f, err := tea.LogToFile(path, "tutor")
		if err != nil {
			initErr = err
			return
		}

		debugFile = f
		debugLogger = log.New(io.MultiWriter(f), "", log.LstdFlags)
	})
	return initErr
}

// CloseDebugLogger closes the underlying debug log file if it was opened.
func CloseDebugLogger() {
	if debugFile != nil {
		_ = debugFile.Sync()
		_ = debugFile.Close()
	}
}

// ResetDebugLoggerForTesting resets the debug logger state for testing purposes.
// WARNING: This should ONLY be called from tests!
func ResetDebugLoggerForTesting() {
	CloseDebugLogger()
	debugOnce = sync.Once{}
	debugFile = nil
	debugLogger = nil
	DebugSink = nil
}

// sanitizeLogMessage redacts credentials from a log line.
func sanitizeLogMessage(msg string) string {
	for _, r := range redactions {
		msg = r.re.ReplaceAllString(msg, r.repl)
	}
	return msg
}

// LogDebug writes a debug message to the debug log file and, in debug mode,
// to the debug sink.
// SECURITY: common secret patterns are redacted automatically, but callers
// should still avoid logging sensitive data.
func LogDebug(msg string) {
	if debugLogger == nil {
		if err := InitDebugLogger("", enableDebug); err != nil {
			fmt.Fprintf(os.Stderr, "failed to initialize debug logger: %v\n", err)
		}
	}

	if debugLogger == nil {
		return
	}

	sanitized := sanitizeLogMessage(msg)
	debugLogger.Println(sanitized)

	if enableDebug {
		if DebugSink != nil {
			DebugSink(sanitized)
		} else {
			fmt.Fprintln(os.Stderr, sanitized)
		}
	}
}

// LogDebugf is LogDebug with fmt formatting.
func LogDebugf(format string, args ...any) {
	LogDebug(fmt.Sprintf(format, args...))
}
