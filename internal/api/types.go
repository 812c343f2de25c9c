package api

import (
	"fmt"
	"strings"
	"time"
)

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single chat turn. Timestamps are kept as the raw wire string
// because the backend emits zone-less ISO times; use ParseTimestamp to read one.
type Message struct {
	ID        string `json:"id"`
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Explanation styles accepted by the backend.
const (
	StyleConcise    = "concise"
	StyleStepByStep = "step_by_step"
	StyleAnalogy    = "analogy"
)

// Reading modes accepted by the backend.
const (
	ReadingCompact     = "compact"
	ReadingComfortable = "comfortable"
)

var (
	ExplanationStyles = []string{StyleConcise, StyleStepByStep, StyleAnalogy}
	ReadingModes      = []string{ReadingCompact, ReadingComfortable}
)

// Preferences tune how the tutor phrases replies.
type Preferences struct {
	VerbosityLevel   int    `json:"verbosity_level"`
	ExplanationStyle string `json:"explanation_style"`
	ReadingMode      string `json:"reading_mode"`
	VisualAids       bool   `json:"visual_aids"`
}

// DefaultPreferences returns the preferences a fresh client starts with.
func DefaultPreferences() Preferences {
	return Preferences{
		VerbosityLevel:   3,
		ExplanationStyle: StyleStepByStep,
		ReadingMode:      ReadingComfortable,
		VisualAids:       true,
	}
}

// Validate reports the first out-of-range field.
func (p Preferences) Validate() error {
	if p.VerbosityLevel < 1 || p.VerbosityLevel > 5 {
		return fmt.Errorf("verbosity level must be between 1 and 5, got %d", p.VerbosityLevel)
	}
	if !contains(ExplanationStyles, p.ExplanationStyle) {
		return fmt.Errorf("explanation style must be one of %s, got %q", strings.Join(ExplanationStyles, ", "), p.ExplanationStyle)
	}
	if !contains(ReadingModes, p.ReadingMode) {
		return fmt.Errorf("reading mode must be one of %s, got %q", strings.Join(ReadingModes, ", "), p.ReadingMode)
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// ChatRequest is the body of POST /chat/. SessionID is omitted for new chats.
type ChatRequest struct {
	Messages    []Message    `json:"messages"`
	Preferences *Preferences `json:"preferences,omitempty"`
	SessionID   string       `json:"session_id,omitempty"`
}

// ChatResponse carries the assistant reply and the session it belongs to.
type ChatResponse struct {
	SessionID    string  `json:"session_id"`
	ReplyMessage Message `json:"reply_message"`
}

type SessionSummary struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	CreatedAt     string `json:"created_at"`
	LastUpdatedAt string `json:"last_updated_at"`
	MessageCount  int    `json:"message_count"`
}

type SessionListResponse struct {
	Sessions []SessionSummary `json:"sessions"`
}

type SessionMessagesResponse struct {
	SessionID string    `json:"session_id"`
	Messages  []Message `json:"messages"`
}

// HealthResponse is returned by GET /health on the server root.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service,omitempty"`
	Version string `json:"version,omitempty"`
}

// TimestampLayout is used for locally created messages.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp reads a backend timestamp. Zone-less values are UTC.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatTimestamp renders t the way locally created messages carry it.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
