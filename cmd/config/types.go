package config

// Config file names (searched in this order)
var SupportedConfigFiles = []string{
	"tutor.yaml",
	"tutor.yml",
	"tutor.toml",
	"tutor.json",
}

// TutorConfig represents the tutor client configuration file.
type TutorConfig struct {
	APIURL         string             `yaml:"api_url,omitempty" toml:"api_url,omitempty" json:"api_url,omitempty"`
	RequestTimeout string             `yaml:"request_timeout,omitempty" toml:"request_timeout,omitempty" json:"request_timeout,omitempty"`
	Theme          string             `yaml:"theme,omitempty" toml:"theme,omitempty" json:"theme,omitempty"`
	Preferences    PreferenceDefaults `yaml:"preferences,omitempty" toml:"preferences,omitempty" json:"preferences,omitempty"`
}

// PreferenceDefaults seeds the learning preferences at startup. Unset fields
// keep the built-in defaults.
type PreferenceDefaults struct {
	VerbosityLevel   *int   `yaml:"verbosity_level,omitempty" toml:"verbosity_level,omitempty" json:"verbosity_level,omitempty"`
	ExplanationStyle string `yaml:"explanation_style,omitempty" toml:"explanation_style,omitempty" json:"explanation_style,omitempty"`
	ReadingMode      string `yaml:"reading_mode,omitempty" toml:"reading_mode,omitempty" json:"reading_mode,omitempty"`
	VisualAids       *bool  `yaml:"visual_aids,omitempty" toml:"visual_aids,omitempty" json:"visual_aids,omitempty"`
}
