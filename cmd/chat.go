package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"neurotutor-cli/cmd/utils"
	"neurotutor-cli/internal/api"
	"neurotutor-cli/internal/session"
)

var (
	chatInputFile   string
	chatSessionID   string
	chatVerbosity   int
	chatStyle       string
	chatReadingMode string
	chatNoVisual    bool
	dryRun          bool
)

// chatCmd represents the `tutor chat` command
var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Ask the tutor a question",
	Long: `Send one message to the tutor and print the reply. Without a message
(and without --file) the interactive chat opens instead.

Examples:
  # Ask a question in a new session
  tutor chat "How do neurons fire?"

  # Continue an existing session
  tutor chat --session 6f1c... "And what stops them?"

  # Read the question from a file, short answers by analogy
  tutor chat -f ./question.txt --verbosity 1 --style analogy

  # Show the request instead of sending it
  tutor chat --dry-run "What is myelin?"

With --session, --dry-run still reads the session's history from the backend
so the printed request carries the earlier turns.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) > 1 {
			return fmt.Errorf("quote the message to pass it as one argument")
		}
		if chatInputFile != "" && len(args) == 1 {
			return fmt.Errorf("specify either --file or an inline message, not both")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		input, err := readChatInput(args)
		if err != nil {
			return err
		}
		if strings.TrimSpace(input) == "" {
			return runChatTUI(chatSessionID)
		}

		prefs, err := chatPreferences(cmd)
		if err != nil {
			return err
		}

		if dryRun {
			curl, err := dryRunChat(cmd.Context(), input, prefs)
			if err != nil {
				return fmt.Errorf("failed to build curl command: %w", err)
			}
			fmt.Println(curl)
			return nil
		}

		return sendOneShot(cmd.Context(), input, prefs)
	},
}

func init() {
	chatCmd.Flags().StringVarP(&chatInputFile, "file", "f", "", "path to file containing the message")
	chatCmd.Flags().StringVar(&chatSessionID, "session", "", "continue the session with this id")
	chatCmd.Flags().IntVar(&chatVerbosity, "verbosity", 0, "detail level from 1 (brief) to 5 (thorough)")
	chatCmd.Flags().StringVar(&chatStyle, "style", "", "explanation style: "+strings.Join(api.ExplanationStyles, ", "))
	chatCmd.Flags().StringVar(&chatReadingMode, "reading-mode", "", "reading mode: "+strings.Join(api.ReadingModes, ", "))
	chatCmd.Flags().BoolVar(&chatNoVisual, "no-visual-aids", false, "ask for replies without diagrams or tables")
	chatCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the equivalent curl command instead of executing the request")

	rootCmd.AddCommand(chatCmd)
}

func readChatInput(args []string) (string, error) {
	if chatInputFile != "" {
		data, err := os.ReadFile(chatInputFile)
		if err != nil {
			return "", fmt.Errorf("error reading file '%s': %w", chatInputFile, err)
		}
		return string(data), nil
	}
	if len(args) == 1 {
		return args[0], nil
	}
	return "", nil
}

// chatPreferences layers explicit flags over the config defaults.
func chatPreferences(cmd *cobra.Command) (api.Preferences, error) {
	p, err := startupPreferences(current.Config)
	if err != nil {
		return p, err
	}
	flags := cmd.Flags()
	if flags.Changed("verbosity") {
		p.VerbosityLevel = chatVerbosity
	}
	if flags.Changed("style") {
		p.ExplanationStyle = chatStyle
	}
	if flags.Changed("reading-mode") {
		p.ReadingMode = chatReadingMode
	}
	if flags.Changed("no-visual-aids") {
		p.VisualAids = !chatNoVisual
	}
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

// sendOneShot runs one exchange through the session store so the CLI and
// the TUI share the same reconciliation rules.
func sendOneShot(ctx context.Context, input string, prefs api.Preferences) error {
	if ctx == nil {
		ctx = context.Background()
	}
	client := newClient()
	store := session.NewStore(client, session.WithPreferences(prefs))

	if chatSessionID != "" {
		if err := store.LoadSessions(ctx); err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}
		if _, err := store.SelectSession(chatSessionID); err != nil {
			return fmt.Errorf("session %s: %w", chatSessionID, err)
		}
		if err := store.LoadSessionMessages(ctx, chatSessionID); err != nil {
			return fmt.Errorf("failed to load session %s: %w", chatSessionID, err)
		}
	} else {
		store.CreateNewSession()
	}

	start := time.Now()
	if err := store.SendMessage(ctx, input); err != nil {
		return err
	}

	active := store.Snapshot().Active()
	if active == nil || len(active.Messages) == 0 {
		fmt.Println("No response received")
		return nil
	}
	reply := active.Messages[len(active.Messages)-1]
	fmt.Println(reply.Content)
	utils.LogDebugf("reply in %s", utils.FormatDuration(time.Since(start).Seconds()))
	if chatSessionID == "" {
		fmt.Fprintf(os.Stderr, "\nsession %s (continue with --session %s)\n", active.ID, active.ID)
	}
	return nil
}

// dryRunChat renders the request sendOneShot would make, history included.
func dryRunChat(ctx context.Context, input string, prefs api.Preferences) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var history []api.Message
	if chatSessionID != "" {
		resp, err := newClient().GetSessionMessages(ctx, chatSessionID)
		if err != nil {
			return "", fmt.Errorf("failed to load session %s: %w", chatSessionID, err)
		}
		history = resp.Messages
	}
	return buildChatCurl(current.APIURL, history, input, prefs, chatSessionID)
}

// buildChatCurl renders the POST /chat/ request as a shell command.
func buildChatCurl(baseURL string, history []api.Message, input string, prefs api.Preferences, sessionID string) (string, error) {
	msgs := append([]api.Message(nil), history...)
	msgs = append(msgs, api.Message{
		ID:        uuid.NewString(),
		Role:      api.RoleUser,
		Content:   strings.TrimSpace(input),
		Timestamp: api.FormatTimestamp(time.Now()),
	})
	req := api.ChatRequest{
		Messages:    msgs,
		Preferences: &prefs,
		SessionID:   sessionID,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}
	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	headers.Set("Accept", "application/json")
	return buildChatCurlCommand(utils.JoinURL(baseURL, "chat/"), body, headers), nil
}

func buildChatCurlCommand(url string, body []byte, headers http.Header) string {
	var b strings.Builder
	b.WriteString("curl -sS -X POST ")
	b.WriteString(shellQuote(url))

	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range headers[k] {
			b.WriteString(" \\\n  -H ")
			b.WriteString(shellQuote(k + ": " + v))
		}
	}
	b.WriteString(" \\\n  --data ")
	b.WriteString(shellQuote(string(body)))
	return b.String()
}

// shellQuote wraps s in single quotes for POSIX shells.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}
