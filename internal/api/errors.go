package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// HTTPError is a non-2xx response. Detail is the server's message when the
// body carried one.
type HTTPError struct {
	StatusCode int
	Detail     string
}

func (e *HTTPError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("HTTP error, status %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP error, status %d: %s", e.StatusCode, e.Detail)
}

// FriendlyError wraps a send failure with the message shown to the student.
type FriendlyError struct {
	Message string
	Err     error
}

func (e *FriendlyError) Error() string { return e.Message }
func (e *FriendlyError) Unwrap() error { return e.Err }

// Friendly messages, in match order.
const (
	MsgNetwork      = "I'm having trouble connecting to my brain right now. Please check your internet connection and try again."
	MsgTimeout      = "I'm thinking a bit too slowly right now. Let me try that again - could you please resend your message?"
	MsgServer       = "I seem to have hit a mental roadblock. Let's try that question again in a different way."
	MsgRateLimit    = "Whoa, slow down there! My brain needs a moment to catch up. Let's try again in a few seconds."
	MsgUnauthorized = "I seem to have lost my connection to the knowledge network. Please let me know if this keeps happening."
	MsgNotFound     = "I can't seem to find what I'm looking for. Could we try starting a new conversation?"
	MsgBadRequest   = "I'm not quite sure what you're asking. Could you try phrasing that differently?"
	MsgFallback     = "I'm having a bit of trouble processing that right now. Could you try asking in a different way, or let's start fresh with a new question?"
)

var friendlyRules = []struct {
	needles []string
	message string
}{
	{[]string{"network", "fetch"}, MsgNetwork},
	{[]string{"timeout"}, MsgTimeout},
	{[]string{"500", "internal server error"}, MsgServer},
	{[]string{"429", "rate limit"}, MsgRateLimit},
	{[]string{"401", "unauthorized"}, MsgUnauthorized},
	{[]string{"404", "not found"}, MsgNotFound},
	{[]string{"400", "bad request"}, MsgBadRequest},
}

// FriendlyMessage maps an error description to a student-facing sentence.
// Matching is a case-insensitive substring test; the first rule wins.
func FriendlyMessage(text string) string {
	lower := strings.ToLower(text)
	for _, rule := range friendlyRules {
		for _, n := range rule.needles {
			if strings.Contains(lower, n) {
				return rule.message
			}
		}
	}
	return MsgFallback
}

// ClassificationText describes err so that FriendlyMessage can categorize it:
// HTTP errors keep their status, deadline errors say "timeout", other
// transport failures say "network error".
func ClassificationText(err error) string {
	if err == nil {
		return ""
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Error()
	}
	var tErr *transportError
	if errors.As(err, &tErr) {
		if isTimeout(tErr.Err) {
			return "timeout: " + tErr.Err.Error()
		}
		return "network error: " + tErr.Err.Error()
	}
	if isTimeout(err) {
		return "timeout: " + err.Error()
	}
	return err.Error()
}

// Friendly wraps err as a *FriendlyError. Already friendly errors pass through.
func Friendly(err error) error {
	if err == nil {
		return nil
	}
	var fe *FriendlyError
	if errors.As(err, &fe) {
		return err
	}
	return &FriendlyError{Message: FriendlyMessage(ClassificationText(err)), Err: err}
}

// transportError marks a failure before any HTTP status was received.
type transportError struct {
	Op  string
	Err error
}

func (e *transportError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *transportError) Unwrap() error { return e.Err }

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
