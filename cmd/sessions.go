package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"neurotutor-cli/cmd/utils"
	"neurotutor-cli/internal/api"
)

var sessionsCmd = &cobra.Command{
	Use:     "sessions",
	Aliases: []string{"session"},
	Short:   "List, inspect and delete chat sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions, most recent first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := newClient().GetSessions(commandContext(cmd))
		if err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}
		if len(resp.Sessions) == 0 {
			OutputInfo("No sessions yet. Start one with: tutor chat \"your question\"")
			return nil
		}
		printSessionTable(os.Stdout, resp.Sessions, time.Now())
		return nil
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Print the messages of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := newClient().GetSessionMessages(commandContext(cmd), args[0])
		if err != nil {
			return fmt.Errorf("failed to load session %s: %w", args[0], err)
		}
		printTranscript(os.Stdout, resp.Messages)
		return nil
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newClient().DeleteSession(commandContext(cmd), args[0]); err != nil {
			return fmt.Errorf("failed to delete session %s: %w", args[0], err)
		}
		OutputSuccess("Deleted session %s", args[0])
		return nil
	},
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd, sessionsShowCmd, sessionsDeleteCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func printSessionTable(w io.Writer, sessions []api.SessionSummary, now time.Time) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tMESSAGES\tLAST ACTIVE")
	for _, s := range sessions {
		when := s.LastUpdatedAt
		if when == "" {
			when = s.CreatedAt
		}
		last := ""
		if t, ok := api.ParseTimestamp(when); ok {
			last = utils.FormatLastActive(t, now)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", s.ID, utils.Truncate(s.Title, 40), s.MessageCount, last)
	}
	tw.Flush()
}

func printTranscript(w io.Writer, msgs []api.Message) {
	if len(msgs) == 0 {
		fmt.Fprintln(w, "(no messages)")
		return
	}
	for i, m := range msgs {
		if i > 0 {
			fmt.Fprintln(w)
		}
		who := "You"
		if m.Role == api.RoleAssistant {
			who = "Tutor"
		}
		header := who
		if t, ok := api.ParseTimestamp(m.Timestamp); ok {
			header += " · " + t.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintln(w, header)
		fmt.Fprintln(w, strings.TrimRight(m.Content, "\n"))
	}
}
