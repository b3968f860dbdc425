package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_DefaultConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
logging:
  level: "INFO"

site:
  type: "ini"
  ini:
    path: "/srv/www/site.ini"

adapters:
  www:
    enabled: true
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default output 'stdout', got %q", cfg.Logging.Output)
	}
	if cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown_timeout 30s, got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Adapters.WWW.Port != 80 {
		t.Errorf("Expected default WWW port 80, got %d", cfg.Adapters.WWW.Port)
	}
	if got := cfg.Site.INI["path"]; got != "/srv/www/site.ini" {
		t.Errorf("Expected site.ini.path from file, got %v", got)
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	// Use a temporary directory with a non-existent config file path
	// This ensures we don't load the user's config from ~/.config/wwwserver/
	tmpDir := t.TempDir()
	nonExistentPath := filepath.Join(tmpDir, "nonexistent.yaml")

	cfg, err := Load(nonExistentPath)
	if err != nil {
		t.Fatalf("Expected no error with missing config file, got: %v", err)
	}

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Site.Type != "ini" {
		t.Errorf("Expected default site type 'ini', got %q", cfg.Site.Type)
	}
	if cfg.Medium.Type != "filesystem" {
		t.Errorf("Expected default medium type 'filesystem', got %q", cfg.Medium.Type)
	}
	if !cfg.Adapters.WWW.Enabled {
		t.Error("Expected WWW adapter enabled without a config file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	configContent := `
logging:
  level: INFO
  invalid yaml here [[[
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Expected error with invalid YAML, got nil")
	}
}

func TestLoad_TOML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	configContent := `
[logging]
level = "WARN"
format = "json"

[medium]
type = "memory"

[adapters.www]
enabled = true
port = 8080
drain_delay = "500ms"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load TOML config: %v", err)
	}

	if cfg.Logging.Level != "WARN" {
		t.Errorf("Expected level 'WARN', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Expected format 'json', got %q", cfg.Logging.Format)
	}
	if cfg.Medium.Type != "memory" {
		t.Errorf("Expected medium type 'memory', got %q", cfg.Medium.Type)
	}
	if cfg.Adapters.WWW.Port != 8080 {
		t.Errorf("Expected port 8080, got %d", cfg.Adapters.WWW.Port)
	}
	if cfg.Adapters.WWW.DrainDelay != 500*time.Millisecond {
		t.Errorf("Expected drain_delay 500ms, got %v", cfg.Adapters.WWW.DrainDelay)
	}
}

func TestLoad_MemoryStores(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
site:
  type: memory
  memory:
    sections:
      - name: /
        values:
          handler: default
      - name: /private
        values:
          handler: forbidden

medium:
  type: memory
  memory:
    directories:
      - /docs
    files:
      - path: /index.html
        content: "<html>home</html>"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Site.Type != "memory" || cfg.Medium.Type != "memory" {
		t.Fatalf("Expected memory stores, got site=%q medium=%q", cfg.Site.Type, cfg.Medium.Type)
	}
	if _, ok := cfg.Site.Memory["sections"]; !ok {
		t.Error("Expected site.memory.sections to be loaded")
	}
	if _, ok := cfg.Medium.Memory["files"]; !ok {
		t.Error("Expected medium.memory.files to be loaded")
	}
}

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default log level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default log format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default log output 'stdout', got %q", cfg.Logging.Output)
	}
	if cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown timeout 30s, got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Site.Type != "ini" {
		t.Errorf("Expected default site type 'ini', got %q", cfg.Site.Type)
	}
	if cfg.Medium.Type != "filesystem" {
		t.Errorf("Expected default medium type 'filesystem', got %q", cfg.Medium.Type)
	}
	if !cfg.Adapters.WWW.Enabled {
		t.Error("Expected WWW adapter enabled by default")
	}
	if cfg.Adapters.WWW.Port != 80 {
		t.Errorf("Expected default WWW port 80, got %d", cfg.Adapters.WWW.Port)
	}
}

func TestGetDefaultConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	path := GetDefaultConfigPath()

	if !filepath.IsAbs(path) {
		t.Errorf("Expected absolute path, got %q", path)
	}
	if filepath.Base(path) != "config.yaml" {
		t.Errorf("Expected filename 'config.yaml', got %q", filepath.Base(path))
	}
}

func TestGetConfigDir(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	dir := GetConfigDir()

	if dir != filepath.Join(xdg, "wwwserver") {
		t.Errorf("Expected %q, got %q", filepath.Join(xdg, "wwwserver"), dir)
	}
}

func TestConfigExists(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if ConfigExists() {
		t.Fatal("Expected no config in a fresh config directory")
	}

	if _, err := InitConfig(false); err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}

	if !ConfigExists() {
		t.Error("Expected config to exist after InitConfig")
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("WWWSERVER_LOGGING_LEVEL", "ERROR")
	t.Setenv("WWWSERVER_ADAPTERS_WWW_PORT", "8081")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
logging:
  level: "INFO"

adapters:
  www:
    enabled: true
    port: 8080
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "ERROR" {
		t.Errorf("Expected level 'ERROR' from env var, got %q", cfg.Logging.Level)
	}
	if cfg.Adapters.WWW.Port != 8081 {
		t.Errorf("Expected port 8081 from env var, got %d", cfg.Adapters.WWW.Port)
	}
}

func TestLoad_EnvironmentOnly(t *testing.T) {
	t.Setenv("WWWSERVER_MEDIUM_TYPE", "memory")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Medium.Type != "memory" {
		t.Errorf("Expected medium type 'memory' from env var, got %q", cfg.Medium.Type)
	}
}
