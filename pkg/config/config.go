// Package config loads, defaults and validates the DittoDrive
// configuration, and holds the factories that turn configuration into
// running stores.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete DittoDrive configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (DITTODRIVE_*)
//  2. Configuration file (YAML)
//  3. Default values
//
// Store configuration follows a type-plus-sections pattern: the Store.Type
// field selects the backend and only the matching type-specific section is
// decoded.
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging"`

	// Server contains the HTTP API settings.
	Server ServerConfig `mapstructure:"server"`

	// Auth lists the principals allowed to use the drive.
	Auth AuthConfig `mapstructure:"auth"`

	// Store selects and configures the object store backend.
	Store StoreConfig `mapstructure:"store"`

	// Upload tunes the upload coordinator.
	Upload UploadConfig `mapstructure:"upload"`

	// Metrics controls Prometheus metrics collection.
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive).
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`
}

// ServerConfig contains the HTTP API settings.
type ServerConfig struct {
	// ListenAddress is the host:port the API binds to.
	ListenAddress string `mapstructure:"listen_address" validate:"required"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`
}

// AuthConfig lists the allowed principals.
type AuthConfig struct {
	// AllowedUIDs is the set of principal UIDs permitted to use the
	// drive. An empty list authorizes nobody.
	AllowedUIDs []string `mapstructure:"allowed_uids" validate:"required,min=1,dive,required"`
}

// StoreConfig selects and configures the object store backend.
type StoreConfig struct {
	// Type specifies which backend to use.
	// Valid values: memory, s3.
	Type string `mapstructure:"type" validate:"required,oneof=memory s3"`

	// S3 contains S3-specific configuration.
	// Only used when Type = "s3".
	S3 map[string]any `mapstructure:"s3"`

	// Cache configures the metadata cache wrapped around the backend.
	Cache CacheConfig `mapstructure:"cache"`
}

// CacheConfig controls the BadgerDB metadata cache.
type CacheConfig struct {
	// Enabled turns the cache decorator on.
	Enabled bool `mapstructure:"enabled"`

	// Path is the BadgerDB directory. Empty runs in memory.
	Path string `mapstructure:"path"`

	// TTL is the cache entry lifetime. Zero uses the cache default.
	TTL time.Duration `mapstructure:"ttl"`
}

// UploadConfig tunes the upload coordinator.
type UploadConfig struct {
	// Concurrency bounds simultaneous file transfers per batch.
	Concurrency int `mapstructure:"concurrency" validate:"required,gt=0,lte=64"`
}

// MetricsConfig controls Prometheus metrics collection.
type MetricsConfig struct {
	// Enabled turns on the global metrics registry and the /metrics
	// endpoint.
	Enabled bool `mapstructure:"enabled"`
}

// Load loads configuration from file, environment, and defaults.
// configPath may be empty, in which case the default location is searched
// and a missing file falls back to defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures environment variable support and config file search.
// Environment variables use the DITTODRIVE_ prefix with underscores, e.g.
// DITTODRIVE_LOGGING_LEVEL=DEBUG.
func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("DITTODRIVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// No file is fine, defaults apply.
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// getConfigDir returns the configuration directory, preferring
// XDG_CONFIG_HOME over ~/.config.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "dittodrive")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "dittodrive")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
