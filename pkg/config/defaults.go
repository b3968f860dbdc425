package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/marmos91/wwwserver/pkg/adapter/www"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
//   - Store-specific defaults are handled by store implementations
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applySiteDefaults(&cfg.Site)
	applyMediumDefaults(&cfg.Medium)
	applyAdaptersDefaults(&cfg.Adapters)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyServerDefaults sets server defaults.
func applyServerDefaults(cfg *ServerConfig) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9090
	}
}

// applySiteDefaults sets site store defaults.
func applySiteDefaults(cfg *SiteConfig) {
	if cfg.Type == "" {
		cfg.Type = "ini"
	}

	if cfg.INI == nil {
		cfg.INI = make(map[string]any)
	}
	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}
	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}

	// Apply defaults for all store types (for config file generation)
	if _, ok := cfg.INI["path"]; !ok {
		cfg.INI["path"] = filepath.Join(getConfigDir(), "site.ini")
	}
	if _, ok := cfg.Badger["db_path"]; !ok {
		cfg.Badger["db_path"] = filepath.Join(getConfigDir(), "site.db")
	}
}

// applyMediumDefaults sets medium defaults.
func applyMediumDefaults(cfg *MediumConfig) {
	if cfg.Type == "" {
		cfg.Type = "filesystem"
	}

	if cfg.Filesystem == nil {
		cfg.Filesystem = make(map[string]any)
	}
	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}
	if cfg.S3 == nil {
		cfg.S3 = make(map[string]any)
	}

	if _, ok := cfg.Filesystem["path"]; !ok {
		cfg.Filesystem["path"] = filepath.Join(getConfigDir(), "htdocs")
	}
}

// applyAdaptersDefaults sets adapter defaults.
func applyAdaptersDefaults(cfg *AdaptersConfig) {
	// Enable the web adapter by default if it was not configured at all, so
	// that a config loaded without a file passes validation. Users can set
	// enabled: false explicitly to disable it.
	if !cfg.WWW.Enabled && cfg.WWW.Port == 0 {
		cfg.WWW.Enabled = true
	}

	applyWWWDefaults(&cfg.WWW)
}

// applyWWWDefaults sets web adapter defaults.
func applyWWWDefaults(cfg *www.WWWConfig) {
	if cfg.Port == 0 {
		cfg.Port = 80
	}
	if cfg.BufferSize == 0 {
		cfg.BufferSize = 512
	}
	if cfg.TickInterval == 0 {
		cfg.TickInterval = time.Millisecond
	}
	if cfg.DrainDelay == 0 {
		cfg.DrainDelay = 2 * time.Second
	}
	if cfg.ReadBufferSize == 0 {
		cfg.ReadBufferSize = 1024
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 5 * time.Second
	}

	// AcceptRate and PerHostRate default to 0 (unlimited)

	if cfg.AcceptBurst == 0 {
		cfg.AcceptBurst = 8
	}
	if cfg.PerHostBurst == 0 {
		cfg.PerHostBurst = 4
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	if cfg.MetricsLogInterval == 0 {
		cfg.MetricsLogInterval = 5 * time.Minute
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{
		Adapters: AdaptersConfig{
			WWW: www.WWWConfig{
				Enabled: true,
			},
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
