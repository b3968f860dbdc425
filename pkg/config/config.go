package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/marmos91/wwwserver/pkg/adapter/www"
)

// Config represents the complete wwwserver configuration.
//
// This structure captures all configurable aspects of the server including:
//   - Logging configuration
//   - Server-wide settings and the metrics endpoint
//   - Site store selection and configuration (store-specific)
//   - Medium selection and configuration (medium-specific)
//   - Protocol adapter configurations
//
// Configuration sources (in order of precedence):
//  1. Environment variables (WWWSERVER_*)
//  2. Configuration file (YAML or TOML)
//  3. Default values (lowest priority)
//
// Store Configuration Pattern:
// Each store implementation has its own option map (e.g., site.ini,
// medium.s3). Only the section matching the selected type is used.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging"`

	// Server contains server-wide settings
	Server ServerConfig `mapstructure:"server"`

	// Site specifies where the per-path site configuration is read from
	Site SiteConfig `mapstructure:"site"`

	// Medium specifies where served files are read from
	Medium MediumConfig `mapstructure:"medium"`

	// Adapters contains protocol adapter configurations
	Adapters AdaptersConfig `mapstructure:"adapters"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" jsonschema:"enum=DEBUG,enum=INFO,enum=WARN,enum=ERROR,enum=debug,enum=info,enum=warn,enum=error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" jsonschema:"enum=text,enum=json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required"`
}

// ServerConfig contains server-wide settings.
type ServerConfig struct {
	// ShutdownTimeout is the maximum time to wait for all adapters to stop
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`

	// Metrics configures the Prometheus endpoint
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// MetricsConfig controls the Prometheus metrics HTTP server.
type MetricsConfig struct {
	// Enabled starts the /metrics endpoint
	Enabled bool `mapstructure:"enabled"`

	// Port is the HTTP port of the metrics endpoint
	Port int `mapstructure:"port" validate:"min=0,max=65535"`
}

// SiteConfig specifies the site configuration store.
//
// The Type field determines which store implementation is used.
type SiteConfig struct {
	// Type specifies which store implementation to use
	// Valid values: ini, memory, badger
	Type string `mapstructure:"type" validate:"required,oneof=ini memory badger" jsonschema:"enum=ini,enum=memory,enum=badger"`

	// INI contains INI file options
	// Only used when Type = "ini"
	INI map[string]any `mapstructure:"ini"`

	// Memory contains the sections of an in-memory store
	// Only used when Type = "memory"
	Memory map[string]any `mapstructure:"memory"`

	// Badger contains BadgerDB options
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger"`
}

// MediumConfig specifies the storage medium files are served from.
//
// The Type field determines which medium implementation is used.
type MediumConfig struct {
	// Type specifies which medium implementation to use
	// Valid values: filesystem, memory, s3
	Type string `mapstructure:"type" validate:"required,oneof=filesystem memory s3" jsonschema:"enum=filesystem,enum=memory,enum=s3"`

	// Filesystem contains filesystem-specific configuration
	// Only used when Type = "filesystem"
	Filesystem map[string]any `mapstructure:"filesystem"`

	// Memory contains the files of an in-memory tree
	// Only used when Type = "memory"
	Memory map[string]any `mapstructure:"memory"`

	// S3 contains S3-specific configuration
	// Only used when Type = "s3"
	S3 map[string]any `mapstructure:"s3"`
}

// AdaptersConfig contains all protocol adapter configurations.
type AdaptersConfig struct {
	// WWW contains web server configuration.
	// Uses the www.WWWConfig type directly to avoid duplication.
	WWW www.WWWConfig `mapstructure:"www"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (WWWSERVER_*)
//  2. Configuration file
//  3. Default values
//
// A missing configuration file is not an error; defaults are used instead.
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

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use WWWSERVER_ prefix and underscores
	// Example: WWWSERVER_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("WWWSERVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only applies to keys viper already knows about, so the
	// scalar settings are registered up front.
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/wwwserver/config.{yaml,toml}
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// envKeys are the settings that can be overridden from the environment
// without appearing in the configuration file.
var envKeys = []string{
	"logging.level",
	"logging.format",
	"logging.output",
	"server.shutdown_timeout",
	"server.metrics.enabled",
	"server.metrics.port",
	"site.type",
	"medium.type",
	"adapters.www.enabled",
	"adapters.www.bind_address",
	"adapters.www.port",
	"adapters.www.buffer_size",
	"adapters.www.drain_delay",
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "wwwserver")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "wwwserver")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists checks if a config file exists at the default location.
func ConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for init command).
func GetConfigDir() string {
	return getConfigDir()
}
