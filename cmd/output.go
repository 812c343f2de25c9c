package cmd

import (
	"fmt"
	"io"
	"os"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"neurotutor-cli/cmd/utils"
)

// MessageType represents the type of output message
type MessageType int

const (
	InfoMessage MessageType = iota
	WarningMessage
	ErrorMessage
	SuccessMessage
	DebugMessage
)

// OutputMessage represents a message to be displayed
type OutputMessage struct {
	Type    MessageType
	Content string
	Writer  io.Writer // fallback writer when not in TUI mode
	NoIcon  bool
}

// TUIMessageMsg is a Bubble Tea message for routing output to the TUI
type TUIMessageMsg struct {
	Message OutputMessage
}

// OutputManager routes CLI output either to the terminal or, while the chat
// TUI runs, into the program as TUIMessageMsg.
type OutputManager struct {
	mu           sync.RWMutex
	tuiProgram   *tea.Program
	inTUIMode    bool
	messageQueue []OutputMessage
}

var outputManager = &OutputManager{}

// SetTUIMode configures the output manager for TUI mode. Queued messages are
// flushed to program, and debug lines follow them.
func SetTUIMode(program *tea.Program) {
	outputManager.mu.Lock()
	outputManager.tuiProgram = program
	outputManager.inTUIMode = true
	queued := outputManager.messageQueue
	outputManager.messageQueue = nil
	outputManager.mu.Unlock()

	if program != nil {
		for _, msg := range queued {
			program.Send(TUIMessageMsg{Message: msg})
		}
	}
	utils.DebugSink = func(line string) { OutputDebug("%s", line) }
}

// ClearTUIMode disables TUI mode
func ClearTUIMode() {
	outputManager.mu.Lock()
	defer outputManager.mu.Unlock()
	outputManager.tuiProgram = nil
	outputManager.inTUIMode = false
	outputManager.messageQueue = nil
	utils.DebugSink = nil
}

func sendMessage(msgType MessageType, noIcon bool, format string, args ...any) {
	msg := OutputMessage{
		Type:    msgType,
		Content: fmt.Sprintf(format, args...),
		Writer:  getDefaultWriter(msgType),
		NoIcon:  noIcon,
	}

	outputManager.mu.Lock()
	inTUI := outputManager.inTUIMode
	program := outputManager.tuiProgram
	if inTUI && program == nil {
		outputManager.messageQueue = append(outputManager.messageQueue, msg)
	}
	outputManager.mu.Unlock()

	switch {
	case inTUI && program != nil:
		// Send never blocks the caller once the program has exited
		go program.Send(TUIMessageMsg{Message: msg})
	case inTUI:
		// queued above
	default:
		fmt.Fprintln(msg.Writer, FormatMessage(msg))
	}
}

// getDefaultWriter returns the appropriate writer for each message type
func getDefaultWriter(msgType MessageType) io.Writer {
	switch msgType {
	case ErrorMessage, WarningMessage, DebugMessage:
		return os.Stderr
	default:
		return os.Stdout
	}
}

// OutputInfo sends an informational message
func OutputInfo(format string, args ...any) { sendMessage(InfoMessage, false, format, args...) }

// OutputInfoPlain sends an informational message without an icon
func OutputInfoPlain(format string, args ...any) { sendMessage(InfoMessage, true, format, args...) }

// OutputWarning sends a warning message
func OutputWarning(format string, args ...any) { sendMessage(WarningMessage, false, format, args...) }

// OutputError sends an error message
func OutputError(format string, args ...any) { sendMessage(ErrorMessage, false, format, args...) }

// OutputSuccess sends a success message
func OutputSuccess(format string, args ...any) { sendMessage(SuccessMessage, false, format, args...) }

// OutputDebug sends a debug message (respects the global debug flag)
func OutputDebug(format string, args ...any) {
	if !debug {
		return
	}
	sendMessage(DebugMessage, false, format, args...)
}

// FormatMessage prefixes the content with the icon for its type.
func FormatMessage(msg OutputMessage) string {
	if msg.NoIcon {
		return msg.Content
	}
	var prefix string
	switch msg.Type {
	case InfoMessage:
		prefix = "ℹ"
	case WarningMessage:
		prefix = "⚠"
	case ErrorMessage:
		prefix = "✗"
	case SuccessMessage:
		prefix = "✓"
	case DebugMessage:
		prefix = "·"
	}
	return fmt.Sprintf("%s  %s", prefix, msg.Content)
}
