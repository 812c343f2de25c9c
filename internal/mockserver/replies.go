package mockserver

import (
	"fmt"
	"strings"

	"neurotutor-cli/internal/api"
)

var openers = map[string][]string{
	api.StyleConcise: {
		"What do you already know about %s?",
		"Which part of %s feels least clear?",
	},
	api.StyleStepByStep: {
		"Let's take %s one step at a time. Step 1: what do you already know about it?",
		"Good. Before we go further with %s, can you tell me the first thing that happens?",
	},
	api.StyleAnalogy: {
		"Think of %s like something you use every day. What does it remind you of?",
		"If %s were a kitchen recipe, what would the ingredients be?",
	},
}

// SocraticReply builds a deterministic tutoring question for the mock
// backend. turn varies the phrasing across a conversation.
func SocraticReply(question string, prefs api.Preferences, turn int) string {
	topic := topicOf(question)
	choices := openers[prefs.ExplanationStyle]
	if len(choices) == 0 {
		choices = openers[api.StyleStepByStep]
	}
	parts := []string{fmt.Sprintf(choices[(turn/2)%len(choices)], topic)}

	if prefs.VerbosityLevel >= 4 {
		parts = append(parts, "Take your time. There is no wrong starting point, and we can connect it to ideas you already know.")
	}
	if prefs.VisualAids {
		parts = append(parts, "It may help to sketch a quick diagram while you think.")
	}

	sep := " "
	if prefs.ReadingMode == api.ReadingComfortable {
		sep = "\n\n"
	}
	return strings.Join(parts, sep)
}

func topicOf(question string) string {
	q := strings.TrimSpace(question)
	q = strings.TrimRight(q, "?!. ")
	lower := strings.ToLower(q)
	for _, prefix := range []string{"what is ", "what are ", "how does ", "how do ", "explain ", "can you explain ", "why is ", "why do "} {
		if strings.HasPrefix(lower, prefix) {
			q = q[len(prefix):]
			break
		}
	}
	if q == "" {
		return "this topic"
	}
	return truncateRunes(q, 60)
}
