package cmd

import (
	"context"
	"strings"
	"time"

	semver "github.com/Masterminds/semver/v3"
	"github.com/spf13/cobra"
)

// Version will be set by build flags during release builds
var Version = "dev"

var versionCheckBackend bool

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of the tutor CLI",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		OutputInfoPlain("Neuro Tutor CLI %s", FormatVersionForDisplay(Version))
		if !versionCheckBackend {
			return
		}

		ctx, cancel := context.WithTimeout(commandContext(cmd), 3*time.Second)
		defer cancel()
		client := newClient()
		h, err := client.Health(ctx)
		if err != nil || h.Version == "" {
			OutputInfoPlain("Backend: unknown (%s)", client.BaseURL())
			return
		}
		OutputInfoPlain("Backend: %s", FormatVersionForDisplay(h.Version))
		if ok, known := versionsCompatible(Version, h.Version); known && !ok {
			OutputWarning("CLI %s and backend %s differ in major version; some features may not work",
				FormatVersionForDisplay(Version), FormatVersionForDisplay(h.Version))
		}
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionCheckBackend, "backend", true, "also report the backend's version")
	rootCmd.AddCommand(versionCmd)
}

// FormatVersionForDisplay normalizes a version string for consistent display.
// It ensures the version has a "v" prefix while avoiding double prefixes.
// Examples: "v1.0.0" -> "v1.0.0", "1.0.0" -> "v1.0.0", "" -> "unknown"
func FormatVersionForDisplay(version string) string {
	version = strings.TrimSpace(version)
	if version == "" {
		return "unknown"
	}
	if _, parsed := normalizeForSemver(version); parsed == nil {
		// dev builds and tag names are shown as they are
		return version
	}
	return "v" + strings.TrimPrefix(strings.TrimPrefix(version, "v"), "V")
}

func normalizeForSemver(raw string) (string, *semver.Version) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return trimmed, nil
	}
	normalized := strings.TrimPrefix(strings.TrimPrefix(trimmed, "v"), "V")
	parsed, err := semver.NewVersion(normalized)
	if err != nil {
		return normalized, nil
	}
	return normalized, parsed
}

// versionsCompatible compares major versions. known is false when either
// side is not semver (for example "dev").
func versionsCompatible(cli, backend string) (ok, known bool) {
	_, c := normalizeForSemver(cli)
	_, b := normalizeForSemver(backend)
	if c == nil || b == nil {
		return false, false
	}
	return c.Major() == b.Major(), true
}
