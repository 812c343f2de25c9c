package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"neurotutor-cli/cmd/config"
	"neurotutor-cli/cmd/utils"
	"neurotutor-cli/internal/api"
)

var (
	debug       bool
	apiURLFlag  string
	overrideCwd string
	configFlag  string
)

// settings is resolved once the flags are parsed.
type settings struct {
	Config     *config.TutorConfig
	ConfigPath string
	APIURL     string
}

var current settings

var rootCmd = &cobra.Command{
	Use:   "tutor",
	Short: "Neuro Tutor - a neuroscience tutor in your terminal",
	Long: `Neuro Tutor is a terminal client for the Neuro Tutor backend. It keeps
your conversations in sessions, remembers your learning preferences and
explains neuroscience at the level you ask for.

Getting started:
  # Open the chat interface
  tutor

  # Ask a one-off question
  tutor chat "What does the hippocampus do?"

  # Try it without a backend
  tutor mock-server &
  tutor`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChatTUI("")
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		utils.OverrideCwd = overrideCwd
		loadDotEnv(utils.GetEffectiveCWD())
		if err := utils.InitDebugLogger("", debug); err != nil && debug {
			OutputWarning("debug log unavailable: %v", err)
		}
		return resolveSettings()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		utils.CloseDebugLogger()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		OutputError("%v", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&apiURLFlag, "api-url", "", "Tutor API base URL (default: "+config.DefaultAPIURL+")")
	rootCmd.PersistentFlags().StringVar(&overrideCwd, "cwd", "", "Override the current working directory for CLI operations")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Path to a tutor config file or a directory containing one")
}

// loadDotEnv reads dir/.env without overriding variables that are already
// set. A missing file is not an error.
func loadDotEnv(dir string) {
	path := filepath.Join(dir, ".env")
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		utils.LogDebugf("failed to load %s: %v", path, err)
	}
}

func resolveSettings() error {
	dataDir, err := utils.GetDataDir()
	if err != nil {
		utils.LogDebugf("no data dir: %v", err)
	}
	cfg, path, err := config.Load(configFlag, utils.GetEffectiveCWD(), dataDir)
	if err != nil {
		return err
	}
	if path != "" {
		utils.LogDebugf("using config %s", path)
	}

	timeout, err := cfg.Timeout()
	if err != nil {
		return err
	}
	utils.SetDefaultTimeout(timeout)

	current = settings{
		Config:     cfg,
		ConfigPath: path,
		APIURL:     config.ResolveAPIURL(apiURLFlag, cfg),
	}
	return nil
}

// newClient returns an API client for the resolved base URL.
var newClient = func() *api.Client {
	return api.NewClient(current.APIURL, nil)
}

// startupPreferences merges config defaults over the built-in preferences.
func startupPreferences(cfg *config.TutorConfig) (api.Preferences, error) {
	p := api.DefaultPreferences()
	if cfg == nil {
		return p, nil
	}
	d := cfg.Preferences
	if d.VerbosityLevel != nil {
		p.VerbosityLevel = *d.VerbosityLevel
	}
	if d.ExplanationStyle != "" {
		p.ExplanationStyle = d.ExplanationStyle
	}
	if d.ReadingMode != "" {
		p.ReadingMode = d.ReadingMode
	}
	if d.VisualAids != nil {
		p.VisualAids = *d.VisualAids
	}
	if err := p.Validate(); err != nil {
		return api.DefaultPreferences(), fmt.Errorf("config preferences: %w", err)
	}
	return p, nil
}
