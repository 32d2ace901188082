package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// IntercomConfig holds settings for the Intercom connector. The API
// base URL, ID prefix, and link base are explicit configuration rather
// than package globals so tests and self-hosted proxies can override
// them.
type IntercomConfig struct {
	// BaseURL is the root URL of the Intercom REST API.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// WorkspaceID is the Intercom workspace (app) identifier, used
	// only for building links back to conversations. When empty,
	// documents are produced without links.
	WorkspaceID string `mapstructure:"workspace_id" yaml:"workspace_id"`

	// LinkBaseURL is the root URL of the Intercom inbox web UI.
	LinkBaseURL string `mapstructure:"link_base_url" yaml:"link_base_url"`
}

// SyncConfig holds settings shared by all sync runs.
type SyncConfig struct {
	// BatchSize is the maximum number of documents per emitted batch.
	BatchSize int `mapstructure:"batch_size" yaml:"batch_size"`

	// PollIntervalSec is how often (in seconds) the watch mode polls.
	PollIntervalSec int `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	// DBPath is the path of the local SQLite database.
	DBPath string `mapstructure:"db_path" yaml:"db_path"`

	// LogLevel is the zerolog level name (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`

	Intercom IntercomConfig `mapstructure:"intercom" yaml:"intercom"`
	Sync     SyncConfig     `mapstructure:"sync" yaml:"sync"`
}

// DefaultConfigPath returns the default path for the configuration
// file, located at ~/.config/helpdesksync/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "helpdesksync", "config.yaml")
}

// defaultDBPath returns the default SQLite database location.
func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "helpdesk.db")
	}
	return filepath.Join(home, ".local", "share", "helpdesksync", "helpdesk.db")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		DBPath:   defaultDBPath(),
		LogLevel: "info",
		Intercom: IntercomConfig{
			BaseURL:     "https://api.intercom.io",
			LinkBaseURL: "https://app.intercom.com/a/inbox",
		},
		Sync: SyncConfig{
			BatchSize:       50,
			PollIntervalSec: 300,
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using
// Viper. If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("db_path", defaultDBPath())
	v.SetDefault("log_level", "info")
	v.SetDefault("intercom.base_url", "https://api.intercom.io")
	v.SetDefault("intercom.link_base_url", "https://app.intercom.com/a/inbox")
	v.SetDefault("sync.batch_size", 50)
	v.SetDefault("sync.poll_interval_sec", 300)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultAppConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultAppConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Sync.BatchSize <= 0 {
		cfg.Sync.BatchSize = 50
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("db_path", cfg.DBPath)
	v.Set("log_level", cfg.LogLevel)
	v.Set("intercom", cfg.Intercom)
	v.Set("sync", cfg.Sync)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
