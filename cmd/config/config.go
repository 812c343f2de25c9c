package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	yaml "gopkg.in/yaml.v2"
)

// DefaultAPIURL is used when neither flags, environment nor config name one.
const DefaultAPIURL = "http://localhost:8000/api"

// ErrNoConfigFile is returned by FindConfigFile when no candidate exists.
var ErrNoConfigFile = errors.New("no tutor config file (yaml/toml/json) found")

// LoadConfigFile loads and parses a config file based on its extension.
func LoadConfigFile(filePath string) (*TutorConfig, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filePath, err)
	}

	fileExt := strings.ToLower(filepath.Ext(filePath))

	var config TutorConfig
	switch fileExt {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config file %s: %w", filePath, err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse TOML config file %s: %w", filePath, err)
		}
	case ".json":
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config file %s: %w", filePath, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file extension: %s", fileExt)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", filePath, err)
	}

	return &config, nil
}

// FindConfigFile searches for tutor config files (yaml/toml/json) in the specified directory
func FindConfigFile(searchPath string) (string, error) {
	if searchPath == "" {
		return "", fmt.Errorf("search path is required")
	}

	for _, configFile := range SupportedConfigFiles {
		fullPath := filepath.Join(searchPath, configFile)
		if _, err := os.Stat(fullPath); err == nil {
			return fullPath, nil
		}
	}
	return "", fmt.Errorf("%w in %s", ErrNoConfigFile, searchPath)
}

// Discover resolves which config file to use. An explicit path (file or
// directory) must exist; otherwise each search directory is tried in order.
// It returns "" with no error when nothing is found.
func Discover(explicit string, searchDirs ...string) (string, error) {
	if explicit != "" {
		info, err := os.Stat(explicit)
		if err != nil {
			return "", fmt.Errorf("config %s: %w", explicit, err)
		}
		if info.IsDir() {
			return FindConfigFile(explicit)
		}
		return explicit, nil
	}

	for _, dir := range searchDirs {
		if dir == "" {
			continue
		}
		if path, err := FindConfigFile(dir); err == nil {
			return path, nil
		}
	}
	return "", nil
}

// Load discovers and parses the config file. A missing file yields an
// empty config and an empty path.
func Load(explicit string, searchDirs ...string) (*TutorConfig, string, error) {
	path, err := Discover(explicit, searchDirs...)
	if err != nil {
		return nil, "", err
	}
	if path == "" {
		return &TutorConfig{}, "", nil
	}
	cfg, err := LoadConfigFile(path)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// Validate checks values that can be validated without the API types.
func (c *TutorConfig) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Theme)) {
	case "", "light", "dark":
	default:
		return fmt.Errorf("theme must be 'light' or 'dark', got %q", c.Theme)
	}
	if _, err := c.Timeout(); err != nil {
		return err
	}
	if p := c.Preferences.VerbosityLevel; p != nil && (*p < 1 || *p > 5) {
		return fmt.Errorf("preferences.verbosity_level must be between 1 and 5, got %d", *p)
	}
	return nil
}

// Timeout parses request_timeout. Bare numbers are seconds. Zero means
// "use the default".
func (c *TutorConfig) Timeout() (time.Duration, error) {
	raw := strings.TrimSpace(c.RequestTimeout)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		d, err = time.ParseDuration(raw + "s")
		if err != nil {
			return 0, fmt.Errorf("request_timeout %q is not a duration", c.RequestTimeout)
		}
	}
	if d < 0 {
		return 0, fmt.Errorf("request_timeout must not be negative")
	}
	return d, nil
}

// ResolveAPIURL applies the precedence flag > TUTOR_API_URL > VITE_API_URL >
// config file > DefaultAPIURL. Trailing slashes are trimmed.
func ResolveAPIURL(flagValue string, cfg *TutorConfig) string {
	candidates := []string{flagValue, os.Getenv("TUTOR_API_URL"), os.Getenv("VITE_API_URL")}
	if cfg != nil {
		candidates = append(candidates, cfg.APIURL)
	}
	for _, c := range candidates {
		if c = strings.TrimSpace(c); c != "" {
			return strings.TrimRight(c, "/")
		}
	}
	return DefaultAPIURL
}
