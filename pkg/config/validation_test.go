package config

import (
	"strings"
	"testing"
	"time"
)

func TestValidate_ValidConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	err := Validate(cfg)
	if err != nil {
		t.Errorf("Expected valid config to pass validation, got error: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "INVALID"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for invalid log level")
	}
	if !strings.Contains(err.Error(), "oneof") {
		t.Errorf("Expected 'oneof' validation error, got: %v", err)
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr string
	}{
		{
			name:    "log format",
			mutate:  func(cfg *Config) { cfg.Logging.Format = "xml" },
			wantErr: "Format",
		},
		{
			name:    "site type",
			mutate:  func(cfg *Config) { cfg.Site.Type = "postgres" },
			wantErr: "Site.Type",
		},
		{
			name:    "medium type",
			mutate:  func(cfg *Config) { cfg.Medium.Type = "ftp" },
			wantErr: "Medium.Type",
		},
		{
			name:    "port too large",
			mutate:  func(cfg *Config) { cfg.Adapters.WWW.Port = 70000 },
			wantErr: "Port",
		},
		{
			name:    "negative port",
			mutate:  func(cfg *Config) { cfg.Adapters.WWW.Port = -1 },
			wantErr: "Port",
		},
		{
			name:    "buffer too small",
			mutate:  func(cfg *Config) { cfg.Adapters.WWW.BufferSize = 2 },
			wantErr: "BufferSize",
		},
		{
			name: "read buffer smaller than line buffer",
			mutate: func(cfg *Config) {
				cfg.Adapters.WWW.BufferSize = 512
				cfg.Adapters.WWW.ReadBufferSize = 16
			},
			wantErr: "read_buffer_size",
		},
		{
			name:    "negative drain delay",
			mutate:  func(cfg *Config) { cfg.Adapters.WWW.DrainDelay = -time.Second },
			wantErr: "DrainDelay",
		},
		{
			name:    "zero server shutdown timeout",
			mutate:  func(cfg *Config) { cfg.Server.ShutdownTimeout = 0 },
			wantErr: "ShutdownTimeout",
		},
		{
			name:    "zero adapter shutdown timeout",
			mutate:  func(cfg *Config) { cfg.Adapters.WWW.ShutdownTimeout = 0 },
			wantErr: "ShutdownTimeout",
		},
		{
			name:    "negative accept rate",
			mutate:  func(cfg *Config) { cfg.Adapters.WWW.AcceptRate = -1 },
			wantErr: "AcceptRate",
		},
		{
			name:    "no adapters",
			mutate:  func(cfg *Config) { cfg.Adapters.WWW.Enabled = false },
			wantErr: "at least one adapter",
		},
		{
			name: "metrics port clash",
			mutate: func(cfg *Config) {
				cfg.Server.Metrics.Enabled = true
				cfg.Server.Metrics.Port = cfg.Adapters.WWW.Port
			},
			wantErr: "server.metrics.port",
		},
		{
			name:    "ini without path",
			mutate:  func(cfg *Config) { cfg.Site.INI["path"] = "" },
			wantErr: "site.ini.path",
		},
		{
			name: "badger without path",
			mutate: func(cfg *Config) {
				cfg.Site.Type = "badger"
				delete(cfg.Site.Badger, "db_path")
			},
			wantErr: "site.badger.db_path",
		},
		{
			name:    "filesystem without path",
			mutate:  func(cfg *Config) { cfg.Medium.Filesystem["path"] = "" },
			wantErr: "medium.filesystem.path",
		},
		{
			name: "s3 without bucket",
			mutate: func(cfg *Config) {
				cfg.Medium.Type = "s3"
				cfg.Medium.S3["region"] = "us-east-1"
			},
			wantErr: "medium.s3.bucket",
		},
		{
			name: "s3 without region",
			mutate: func(cfg *Config) {
				cfg.Medium.Type = "s3"
				cfg.Medium.S3["bucket"] = "site"
			},
			wantErr: "medium.s3.region",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error mentioning %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidate_LogLevelNormalization(t *testing.T) {
	testCases := []string{"debug", "DEBUG", "info", "INFO", "warn", "WARN", "error", "ERROR"}

	for _, level := range testCases {
		t.Run(level, func(t *testing.T) {
			cfg := GetDefaultConfig()
			cfg.Logging.Level = level

			if err := Validate(cfg); err != nil {
				t.Errorf("Level %q should be valid, got error: %v", level, err)
			}
		})
	}
}

func TestValidate_MemoryStoresNeedNoPaths(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Site.Type = "memory"
	cfg.Site.INI = map[string]any{}
	cfg.Medium.Type = "memory"
	cfg.Medium.Filesystem = map[string]any{}

	if err := Validate(cfg); err != nil {
		t.Errorf("Expected memory stores to validate without paths, got: %v", err)
	}
}
