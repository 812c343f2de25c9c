package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"neurotutor-cli/internal/mockserver"
)

var (
	mockAddr    string
	mockLatency time.Duration
	mockEmpty   bool
)

var mockServerCmd = &cobra.Command{
	Use:   "mock-server",
	Short: "Run a local stand-in for the tutor backend",
	Long: `Serve the tutor API from memory so the client can be tried offline.
Replies are canned Socratic prompts shaped by the request's preferences.

  tutor mock-server --addr :8000
  tutor --api-url http://localhost:8000/api chat`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		srv := mockserver.New(
			mockserver.WithLatency(mockLatency),
			mockserver.WithRequestLogging(debug),
		)
		if !mockEmpty {
			srv.SeedWelcome()
		}

		ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serveMock(ctx, mockAddr, srv.Handler())
	},
}

func init() {
	mockServerCmd.Flags().StringVar(&mockAddr, "addr", ":8000", "address to listen on")
	mockServerCmd.Flags().DurationVar(&mockLatency, "latency", 0, "artificial delay before each chat reply")
	mockServerCmd.Flags().BoolVar(&mockEmpty, "empty", false, "start without the welcome session")
	rootCmd.AddCommand(mockServerCmd)
}

func serveMock(ctx context.Context, addr string, h http.Handler) error {
	httpSrv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.ListenAndServe()
	}()
	OutputSuccess("Mock tutor backend listening on %s", addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("mock server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("mock server shutdown: %w", err)
	}
	OutputInfo("Mock tutor backend stopped")
	return nil
}
