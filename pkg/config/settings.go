package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

// DefaultSettingsFile is looked up in the home directory when no path is given.
const DefaultSettingsFile = "~/.blockfit.yaml"

// Environment keys overriding Settings.
const (
	EnvStrategy          = "BLOCKFIT_STRATEGY"
	EnvMaxTokens         = "BLOCKFIT_MAX_TOKENS"
	EnvPreserveStructure = "BLOCKFIT_PRESERVE_STRUCTURE"
	EnvTimeout           = "BLOCKFIT_TIMEOUT"
	EnvPollInterval      = "BLOCKFIT_POLL_INTERVAL"
	EnvValidationTimeout = "BLOCKFIT_VALIDATION_TIMEOUT"
	EnvBatchTimeout      = "BLOCKFIT_BATCH_TIMEOUT"
	EnvMaxConcurrent     = "BLOCKFIT_MAX_CONCURRENT"
	EnvEncoding          = "BLOCKFIT_ENCODING"
	EnvModel             = "BLOCKFIT_MODEL"
	EnvLogLevel          = "BLOCKFIT_LOG_LEVEL"
)

// Settings are the tunables shared by the CLI and the coordinator graph.
// Durations are stored in milliseconds on disk. A non-empty Model takes
// precedence over Encoding when building the token counter.
type Settings struct {
	Strategy            string `yaml:"strategy"`
	MaxTokens           int    `yaml:"max_tokens"`
	PreserveStructure   bool   `yaml:"preserve_structure"`
	TimeoutMs           int    `yaml:"timeout_ms"`
	PollIntervalMs      int    `yaml:"poll_interval_ms"`
	ValidationTimeoutMs int    `yaml:"validation_timeout_ms"`
	BatchTimeoutMs      int    `yaml:"batch_timeout_ms"`
	MaxConcurrent       int    `yaml:"max_concurrent"`
	Encoding            string `yaml:"encoding"`
	Model               string `yaml:"model"`
	LogLevel            string `yaml:"log_level"`
}

// DefaultSettings returns the built-in defaults.
func DefaultSettings() Settings {
	return Settings{
		Strategy:            "balanced",
		MaxTokens:           4000,
		PreserveStructure:   true,
		TimeoutMs:           30000,
		PollIntervalMs:      10,
		ValidationTimeoutMs: 5000,
		BatchTimeoutMs:      60000,
		MaxConcurrent:       5,
		Encoding:            "cl100k_base",
		LogLevel:            "info",
	}
}

func (s Settings) Timeout() time.Duration {
	return time.Duration(s.TimeoutMs) * time.Millisecond
}

func (s Settings) PollInterval() time.Duration {
	return time.Duration(s.PollIntervalMs) * time.Millisecond
}

func (s Settings) ValidationTimeout() time.Duration {
	return time.Duration(s.ValidationTimeoutMs) * time.Millisecond
}

func (s Settings) BatchTimeout() time.Duration {
	return time.Duration(s.BatchTimeoutMs) * time.Millisecond
}

// ResolvePath expands a leading "~" to the user's home directory.
func ResolvePath(path string) (string, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("expanding path %s: %w", path, err)
	}
	return expanded, nil
}

// LoadSettings overlays the YAML file at path on top of DefaultSettings.
// A missing file is not an error when optional is true.
func LoadSettings(path string, optional bool) (Settings, error) {
	settings := DefaultSettings()
	if path == "" {
		path = DefaultSettingsFile
		optional = true
	}

	resolved, err := ResolvePath(path)
	if err != nil {
		return settings, err
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return settings, nil
		}
		return settings, fmt.Errorf("error reading settings file: %w", err)
	}

	if err := yaml.Unmarshal(data, &settings); err != nil {
		return settings, fmt.Errorf("error unmarshaling settings: %w", err)
	}
	return settings, settings.Validate()
}

// LoadEnvFile loads KEY=VALUE pairs from a .env file into the process
// environment without overriding variables that are already set.
// A missing file is ignored.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	resolved, err := ResolvePath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(resolved); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(resolved); err != nil {
		return fmt.Errorf("error loading env file %s: %w", resolved, err)
	}
	return nil
}

// ApplyEnv overrides settings with any BLOCKFIT_* values present in m.
func (s Settings) ApplyEnv(m Manager) Settings {
	s.Strategy = m.GetStringWithDefault(EnvStrategy, s.Strategy)
	s.MaxTokens = m.GetIntWithDefault(EnvMaxTokens, s.MaxTokens)
	s.PreserveStructure = m.GetBoolWithDefault(EnvPreserveStructure, s.PreserveStructure)
	s.TimeoutMs = int(m.GetDurationWithDefault(EnvTimeout, s.Timeout()).Milliseconds())
	s.PollIntervalMs = int(m.GetDurationWithDefault(EnvPollInterval, s.PollInterval()).Milliseconds())
	s.ValidationTimeoutMs = int(m.GetDurationWithDefault(EnvValidationTimeout, s.ValidationTimeout()).Milliseconds())
	s.BatchTimeoutMs = int(m.GetDurationWithDefault(EnvBatchTimeout, s.BatchTimeout()).Milliseconds())
	s.MaxConcurrent = m.GetIntWithDefault(EnvMaxConcurrent, s.MaxConcurrent)
	s.Encoding = m.GetStringWithDefault(EnvEncoding, s.Encoding)
	s.Model = m.GetStringWithDefault(EnvModel, s.Model)
	s.LogLevel = m.GetStringWithDefault(EnvLogLevel, s.LogLevel)
	return s
}

// Validate rejects settings no component can run with.
func (s Settings) Validate() error {
	switch {
	case s.MaxTokens < 0:
		return fmt.Errorf("max_tokens must not be negative, got %d", s.MaxTokens)
	case s.TimeoutMs <= 0:
		return fmt.Errorf("timeout_ms must be positive, got %d", s.TimeoutMs)
	case s.PollIntervalMs <= 0:
		return fmt.Errorf("poll_interval_ms must be positive, got %d", s.PollIntervalMs)
	case s.ValidationTimeoutMs <= 0:
		return fmt.Errorf("validation_timeout_ms must be positive, got %d", s.ValidationTimeoutMs)
	case s.BatchTimeoutMs <= 0:
		return fmt.Errorf("batch_timeout_ms must be positive, got %d", s.BatchTimeoutMs)
	case s.MaxConcurrent <= 0:
		return fmt.Errorf("max_concurrent must be positive, got %d", s.MaxConcurrent)
	}
	return nil
}
