// Package config loads dialscout configuration from a YAML file with
// environment variable overrides for credentials.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all dialscout configuration.
type Config struct {
	// Telephony provider (Vapi)
	Telephony TelephonyConfig `yaml:"telephony"`

	// Reasoning provider (Gemini) used for transcript analysis
	Analysis AnalysisConfig `yaml:"analysis"`

	// Campaign pacing and limits
	Campaign CampaignConfig `yaml:"campaign"`

	// Storage paths
	Storage StorageConfig `yaml:"storage"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// TelephonyConfig configures the Vapi client.
type TelephonyConfig struct {
	APIKey        string `yaml:"api_key"`
	PhoneNumberID string `yaml:"phone_number_id"`
	BaseURL       string `yaml:"base_url"`
	Timeout       string `yaml:"timeout"`
	// CountryCode is prepended to domestic numbers, e.g. "+27".
	CountryCode string `yaml:"country_code"`
	// AssistantProfile optionally points at a YAML assistant profile file.
	AssistantProfile string `yaml:"assistant_profile"`
}

// AnalysisConfig configures the transcript analyzer.
type AnalysisConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	Timeout string `yaml:"timeout"`
}

// CampaignConfig configures batch pacing.
type CampaignConfig struct {
	// MaxCalls bounds the number of contacts dialed per invocation.
	MaxCalls int `yaml:"max_calls"`
	// PollInterval is the fixed wait between call status queries.
	PollInterval string `yaml:"poll_interval"`
	// CallTimeout is how long to wait for one call to reach a terminal state.
	CallTimeout string `yaml:"call_timeout"`
	// InterCallDelay is the fixed pause after each attempt, regardless of outcome.
	InterCallDelay string `yaml:"inter_call_delay"`
}

// StorageConfig configures file locations.
type StorageConfig struct {
	// DataDir is the root for the database, recordings and logs.
	DataDir string `yaml:"data_dir"`
	// DatabasePath overrides the default <data_dir>/dialscout.db.
	DatabasePath string `yaml:"database_path"`
	// RecordingsDir overrides the default <data_dir>/recordings.
	RecordingsDir string `yaml:"recordings_dir"`
	// TargetsPath is the discovery collaborator's output file.
	TargetsPath string `yaml:"targets_path"`
}

// LoggingConfig configures the category file logger.
type LoggingConfig struct {
	Level     string `yaml:"level"` // debug, info, warn, error
	DebugMode bool   `yaml:"debug_mode"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Telephony: TelephonyConfig{
			BaseURL:     "https://api.vapi.ai",
			Timeout:     "30s",
			CountryCode: "+27",
		},
		Analysis: AnalysisConfig{
			Model:   "gemini-2.0-flash",
			Timeout: "60s",
		},
		Campaign: CampaignConfig{
			MaxCalls:       10,
			PollInterval:   "5s",
			CallTimeout:    "300s",
			InterCallDelay: "10s",
		},
		Storage: StorageConfig{
			DataDir:     "data",
			TargetsPath: "targets.json",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields
// defaults; credentials always come from the environment when set.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides applies environment variables over file values.
// Environment wins so credentials can stay out of the config file.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("VAPI_API_KEY"); key != "" {
		c.Telephony.APIKey = key
	}
	if id := os.Getenv("VAPI_PHONE_NUMBER_ID"); id != "" {
		c.Telephony.PhoneNumberID = id
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Analysis.APIKey = key
	}
	if dir := os.Getenv("DIALSCOUT_DATA_DIR"); dir != "" {
		c.Storage.DataDir = dir
	}
	if path := os.Getenv("DIALSCOUT_TARGETS"); path != "" {
		c.Storage.TargetsPath = path
	}
}

// Validate checks that everything a live calling run needs is present.
// A failure here is fatal and happens before any billable action.
func (c *Config) Validate() error {
	if c.Telephony.APIKey == "" {
		return fmt.Errorf("missing telephony API key (set VAPI_API_KEY)")
	}
	if c.Telephony.PhoneNumberID == "" {
		return fmt.Errorf("missing telephony phone number ID (set VAPI_PHONE_NUMBER_ID)")
	}
	if c.Telephony.CountryCode == "" {
		return fmt.Errorf("telephony country_code must be set")
	}
	if c.Campaign.MaxCalls <= 0 {
		return fmt.Errorf("campaign max_calls must be positive, got %d", c.Campaign.MaxCalls)
	}
	for name, v := range map[string]string{
		"telephony.timeout":         c.Telephony.Timeout,
		"analysis.timeout":          c.Analysis.Timeout,
		"campaign.poll_interval":    c.Campaign.PollInterval,
		"campaign.call_timeout":     c.Campaign.CallTimeout,
		"campaign.inter_call_delay": c.Campaign.InterCallDelay,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid duration for %s: %q", name, v)
		}
	}
	return nil
}

// DatabasePath resolves the sqlite database location.
func (c *Config) DatabasePath() string {
	if c.Storage.DatabasePath != "" {
		return c.Storage.DatabasePath
	}
	return filepath.Join(c.Storage.DataDir, "dialscout.db")
}

// RecordingsDir resolves the recordings directory.
func (c *Config) RecordingsDir() string {
	if c.Storage.RecordingsDir != "" {
		return c.Storage.RecordingsDir
	}
	return filepath.Join(c.Storage.DataDir, "recordings")
}

// Duration parses a duration field that Validate has already checked.
func Duration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
