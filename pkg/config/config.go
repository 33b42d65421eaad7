// Package config provides configuration management for theia-picker. It
// handles loading and validating the YAML configuration file holding the
// catalog credentials and download settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/remicres/theia-picker/pkg/auth"
	pkgerrors "github.com/remicres/theia-picker/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	// Credentials is the Theia account used to acquire tokens.
	Credentials CredentialsConfig `yaml:"credentials"`

	// Settings holds general download settings.
	Settings Settings `yaml:"settings"`

	// Hooks optionally points to Tengo scripts run around downloads.
	Hooks HooksConfig `yaml:"hooks,omitempty"`
}

// CredentialsConfig holds the catalog account identity. Fields are explicit
// and validated at load time.
type CredentialsConfig struct {
	Ident    string `yaml:"ident"`
	Password string `yaml:"pass"`
}

// HooksConfig points to optional hook script files.
type HooksConfig struct {
	PreDownload  string `yaml:"pre_download,omitempty"`
	PostDownload string `yaml:"post_download,omitempty"`
}

// Settings represents general application settings.
type Settings struct {
	// DownloadDir is the default destination for downloads.
	DownloadDir string `yaml:"download_dir,omitempty"`

	// HTTPTimeout is the per-request timeout.
	HTTPTimeout time.Duration `yaml:"http_timeout"`

	// MaxConcurrent is the number of parallel file downloads.
	MaxConcurrent int `yaml:"max_concurrent"`

	// MaxRetries bounds extraction attempts per file.
	MaxRetries int `yaml:"max_retries"`

	// MaxRecords bounds the number of search results.
	MaxRecords int `yaml:"max_records"`

	// LogLevel is one of panic, fatal, error, warn, info, debug, trace.
	LogLevel string `yaml:"log_level"`
}

// Default configuration values.
const (
	DefaultHTTPTimeout   = 10 * time.Second
	DefaultMaxConcurrent = 2
	DefaultMaxRetries    = 5
	DefaultMaxRecords    = 500
)

// DefaultConfig returns a configuration with sensible defaults and no
// credentials.
func DefaultConfig() *Config {
	return &Config{
		Settings: Settings{
			HTTPTimeout:   DefaultHTTPTimeout,
			MaxConcurrent: DefaultMaxConcurrent,
			MaxRetries:    DefaultMaxRetries,
			MaxRecords:    DefaultMaxRecords,
			LogLevel:      "info",
		},
	}
}

// LoadConfig reads and validates the configuration at path.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, pkgerrors.ErrEmptyConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", pkgerrors.ErrInvalidConfigPath, path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", pkgerrors.ErrConfigParse, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for missing or inconsistent fields.
func (c *Config) Validate() error {
	if _, err := c.ToCredentials(); err != nil {
		return fmt.Errorf("%w: credentials: %w", pkgerrors.ErrConfigValidation, err)
	}
	if c.Settings.HTTPTimeout <= 0 {
		return fmt.Errorf("%w: http_timeout must be positive", pkgerrors.ErrConfigValidation)
	}
	if c.Settings.MaxRetries < 1 {
		return fmt.Errorf("%w: max_retries must be at least 1", pkgerrors.ErrConfigValidation)
	}
	return nil
}

// ToCredentials converts the credential fields to a validated auth value.
func (c *Config) ToCredentials() (auth.Credentials, error) {
	return auth.NewCredentials(c.Credentials.Ident, c.Credentials.Password)
}

// GetDefaultConfigPath returns the user-level config file location.
func GetDefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", pkgerrors.Wrap(err, "could not determine user config dir")
	}
	return filepath.Join(configDir, "theia-picker", "config.yaml"), nil
}
