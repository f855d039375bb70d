// Package config loads engine configuration from file, env, and defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the medication engine.
type Config struct {
	Storage   StorageConfig   `mapstructure:"storage"`
	Reminders RemindersConfig `mapstructure:"reminders"`
	Policy    PolicyConfig    `mapstructure:"policy"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// StorageConfig holds database settings.
type StorageConfig struct {
	DataDir    string `mapstructure:"data_dir"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// RemindersConfig holds the local alert settings.
type RemindersConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// PolicyConfig resolves behavior the domain deliberately leaves open:
// what an expired medication (end date in the past) still counts for.
type PolicyConfig struct {
	// ExpiredStopsReminders stops registering alerts for expired
	// medications.
	ExpiredStopsReminders bool `mapstructure:"expired_stops_reminders"`
	// ExpiredStopsExpected would freeze expected-dose accrual at the
	// end date. Off by default: adherence keeps counting, matching the
	// recorded history semantics.
	ExpiredStopsExpected bool `mapstructure:"expired_stops_expected"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Load loads configuration from file, env, and defaults.
func Load(configPath, dataDir string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if dataDir == "" {
		dataDir = getDefaultDataDir()
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	v.Set("storage.data_dir", dataDir)
	v.Set("storage.sqlite_path", filepath.Join(dataDir, "meditrack.db"))

	if configPath == "" {
		configPath = filepath.Join(dataDir, "meditrack.yaml")
	}

	if _, err := os.Stat(configPath); err == nil {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// Environment variables (MEDITRACK_REMINDERS_ENABLED, etc.)
	v.SetEnvPrefix("MEDITRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("reminders.enabled", true)

	v.SetDefault("policy.expired_stops_reminders", true)
	v.SetDefault("policy.expired_stops_expected", false)

	v.SetDefault("logging.level", "info")
}

func getDefaultDataDir() string {
	// Try XDG_DATA_HOME first
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "meditrack")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}

	return filepath.Join(home, ".local", "share", "meditrack")
}

func validate(cfg *Config) error {
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", cfg.Logging.Level)
	}
	return nil
}
