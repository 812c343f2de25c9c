package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"neurotutor-cli/cmd/utils"
	"neurotutor-cli/internal/api"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check whether the tutor backend is reachable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()
		h, err := client.Health(commandContext(cmd))
		printStatus(os.Stdout, client.BaseURL(), h, err)
		if err != nil {
			return fmt.Errorf("backend unreachable")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func printStatus(w io.Writer, baseURL string, h *api.HealthResponse, err error) {
	root := utils.ServerRoot(baseURL)
	if err != nil {
		fmt.Fprintf(w, "%s unreachable  %s\n", utils.IconForStatus("unreachable"), root)
		utils.LogDebugf("health check failed: %v", err)
		if utils.IsLocalhost(baseURL) {
			fmt.Fprintln(w, "  Start the backend, or run `tutor mock-server` to try the client offline.")
		}
		return
	}
	fmt.Fprintf(w, "%s %s  %s\n", utils.IconForStatus(h.Status), h.Status, root)
	if h.Service != "" {
		fmt.Fprintf(w, "  service: %s\n", h.Service)
	}
	if h.Version != "" {
		fmt.Fprintf(w, "  version: %s\n", FormatVersionForDisplay(h.Version))
	}
}
