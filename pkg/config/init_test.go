package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestInitConfig_Success(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	configPath, err := InitConfig(false)
	if err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("Failed to read config file: %v", err)
	}

	contentStr := string(content)
	expectedSections := []string{
		"# wwwserver Configuration File",
		"logging:",
		"site:",
		"medium:",
		"adapters:",
	}

	for _, section := range expectedSections {
		if !strings.Contains(contentStr, section) {
			t.Errorf("Config file missing section: %s", section)
		}
	}

	var doc map[string]any
	if err := yaml.Unmarshal(content, &doc); err != nil {
		t.Fatalf("Generated config is not valid YAML: %v", err)
	}

	// The sample site and document root are created alongside
	dir := filepath.Dir(configPath)
	for _, name := range []string{"site.ini", filepath.Join("htdocs", "index.html"), filepath.Join("htdocs", "errors", "404.html")} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("Expected %s to be created: %v", name, err)
		}
	}
}

func TestInitConfig_AlreadyExists(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if _, err := InitConfig(false); err != nil {
		t.Fatalf("First InitConfig failed: %v", err)
	}

	_, err := InitConfig(false)
	if err == nil {
		t.Fatal("Expected error when config already exists")
	}
	if !strings.Contains(err.Error(), "already exists") {
		t.Errorf("Expected 'already exists' error, got: %v", err)
	}
}

func TestInitConfig_ForceOverwrite(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	configPath, err := InitConfig(false)
	if err != nil {
		t.Fatalf("First InitConfig failed: %v", err)
	}

	if err := os.WriteFile(configPath, []byte("modified"), 0644); err != nil {
		t.Fatalf("Failed to modify config: %v", err)
	}

	if _, err := InitConfig(true); err != nil {
		t.Fatalf("Force InitConfig failed: %v", err)
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("Failed to read config: %v", err)
	}
	if !strings.Contains(string(content), "# wwwserver Configuration File") {
		t.Error("Config file was not properly overwritten")
	}
}

func TestInitConfigToPath_KeepsExistingSite(t *testing.T) {
	tmpDir := t.TempDir()
	sitePath := filepath.Join(tmpDir, "site.ini")
	if err := os.WriteFile(sitePath, []byte("[/]\nhandler = forbidden\n"), 0644); err != nil {
		t.Fatalf("Failed to write site file: %v", err)
	}

	if err := InitConfigToPath(filepath.Join(tmpDir, "config.yaml"), false); err != nil {
		t.Fatalf("InitConfigToPath failed: %v", err)
	}

	content, err := os.ReadFile(sitePath)
	if err != nil {
		t.Fatalf("Failed to read site file: %v", err)
	}
	if string(content) != "[/]\nhandler = forbidden\n" {
		t.Error("Existing site file was overwritten")
	}
}

func TestInitConfigToPath_AlreadyExists(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte("existing"), 0644); err != nil {
		t.Fatalf("Failed to create existing file: %v", err)
	}

	err := InitConfigToPath(configPath, false)
	if err == nil {
		t.Fatal("Expected error when file already exists")
	}
	if !strings.Contains(err.Error(), "already exists") {
		t.Errorf("Expected 'already exists' error, got: %v", err)
	}
}

func TestGenerateYAMLWithComments_ValidConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	out, err := generateYAMLWithComments(cfg)
	if err != nil {
		t.Fatalf("generateYAMLWithComments failed: %v", err)
	}

	if !strings.Contains(out, "#") {
		t.Error("Generated YAML should contain comments")
	}
	for _, want := range []string{"INFO", "port: 80", "buffer_size: 512", "drain_delay: 2s"} {
		if !strings.Contains(out, want) {
			t.Errorf("Generated YAML should contain %q", want)
		}
	}
}

func TestGeneratedConfigIsLoadable(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	configPath, err := InitConfig(false)
	if err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load generated config: %v", err)
	}

	if err := Validate(cfg); err != nil {
		t.Fatalf("Generated config failed validation: %v", err)
	}
}

func TestGeneratedConfigValuesAreCorrect(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := InitConfigToPath(configPath, false); err != nil {
		t.Fatalf("Failed to generate config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected INFO log level in generated config, got %q", cfg.Logging.Level)
	}
	if cfg.Adapters.WWW.Port != 80 {
		t.Errorf("Expected port 80 in generated config, got %d", cfg.Adapters.WWW.Port)
	}
	if got := cfg.Site.INI["path"]; got != filepath.Join(tmpDir, "site.ini") {
		t.Errorf("Expected site file next to config, got %v", got)
	}
	if got := cfg.Medium.Filesystem["path"]; got != filepath.Join(tmpDir, "htdocs") {
		t.Errorf("Expected document root next to config, got %v", got)
	}
}
