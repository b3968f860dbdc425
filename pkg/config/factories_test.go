package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/marmos91/wwwserver/pkg/store/confstore"
)

func readSiteValue(t *testing.T, store confstore.Store, section, key string) (confstore.Status, string) {
	t.Helper()

	buf := make([]byte, 64)
	var st confstore.ReadState
	for i := 0; i < 100; i++ {
		status, n, err := store.GetValue(context.Background(), section, key, buf, &st)
		if err != nil {
			t.Fatalf("GetValue(%q, %q) failed: %v", section, key, err)
		}
		if status.Done() {
			return status, string(buf[:n])
		}
	}
	t.Fatalf("GetValue(%q, %q) did not finish", section, key)
	return confstore.StatusInProgress, ""
}

func TestCreateSiteStore_INI(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site.ini")
	if err := os.WriteFile(path, []byte("[/]\nhandler = default\n"), 0644); err != nil {
		t.Fatalf("Failed to write site file: %v", err)
	}

	store, err := CreateSiteStore(context.Background(), &SiteConfig{
		Type: "ini",
		INI:  map[string]any{"path": path},
	}, 512)
	if err != nil {
		t.Fatalf("Failed to create ini site store: %v", err)
	}
	defer store.Close()

	status, value := readSiteValue(t, store, "/", "handler")
	if status != confstore.StatusFound || value != "default" {
		t.Errorf("Expected handler=default, got status=%v value=%q", status, value)
	}
}

func TestCreateSiteStore_INILineTooLong(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site.ini")
	content := "[/]\nlocation = " + strings.Repeat("x", 100) + "\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write site file: %v", err)
	}

	_, err := CreateSiteStore(context.Background(), &SiteConfig{
		Type: "ini",
		INI:  map[string]any{"path": path},
	}, 32)
	if err == nil {
		t.Fatal("Expected error for a line longer than the buffer")
	}
}

func TestCreateSiteStore_INIMissingFile(t *testing.T) {
	_, err := CreateSiteStore(context.Background(), &SiteConfig{
		Type: "ini",
		INI:  map[string]any{"path": filepath.Join(t.TempDir(), "missing.ini")},
	}, 512)
	if err == nil {
		t.Fatal("Expected error for missing site file")
	}
}

func TestCreateSiteStore_INIMissingPath(t *testing.T) {
	_, err := CreateSiteStore(context.Background(), &SiteConfig{
		Type: "ini",
		INI:  map[string]any{},
	}, 512)
	if err == nil {
		t.Fatal("Expected error for missing path")
	}
	if !strings.Contains(err.Error(), "path is required") {
		t.Errorf("Expected 'path is required' error, got: %v", err)
	}
}

func TestCreateSiteStore_Memory(t *testing.T) {
	store, err := CreateSiteStore(context.Background(), &SiteConfig{
		Type: "memory",
		Memory: map[string]any{
			"sections": []any{
				map[string]any{"name": "/", "values": map[string]any{"handler": "default"}},
				map[string]any{"name": "/old", "values": map[string]any{"handler": "moved permanently", "location": "/new/"}},
			},
		},
	}, 512)
	if err != nil {
		t.Fatalf("Failed to create memory site store: %v", err)
	}
	defer store.Close()

	status, value := readSiteValue(t, store, "/old", "location")
	if status != confstore.StatusFound || value != "/new/" {
		t.Errorf("Expected location=/new/, got status=%v value=%q", status, value)
	}
}

func TestCreateSiteStore_MemoryDuplicateSection(t *testing.T) {
	_, err := CreateSiteStore(context.Background(), &SiteConfig{
		Type: "memory",
		Memory: map[string]any{
			"sections": []any{
				map[string]any{"name": "/"},
				map[string]any{"name": "/"},
			},
		},
	}, 512)
	if err == nil {
		t.Fatal("Expected error for duplicate section")
	}
}

func TestCreateSiteStore_BadgerImport(t *testing.T) {
	dir := t.TempDir()
	importPath := filepath.Join(dir, "site.ini")
	if err := os.WriteFile(importPath, []byte("[/status]\nhandler = status\n"), 0644); err != nil {
		t.Fatalf("Failed to write import file: %v", err)
	}

	store, err := CreateSiteStore(context.Background(), &SiteConfig{
		Type: "badger",
		Badger: map[string]any{
			"db_path":     filepath.Join(dir, "db"),
			"import_path": importPath,
		},
	}, 512)
	if err != nil {
		t.Fatalf("Failed to create badger site store: %v", err)
	}
	defer store.Close()

	status, value := readSiteValue(t, store, "/status", "handler")
	if status != confstore.StatusFound || value != "status" {
		t.Errorf("Expected handler=status, got status=%v value=%q", status, value)
	}
}

func TestCreateSiteStore_UnknownType(t *testing.T) {
	_, err := CreateSiteStore(context.Background(), &SiteConfig{Type: "postgres"}, 512)
	if err == nil {
		t.Fatal("Expected error for unknown site store type")
	}
	if !strings.Contains(err.Error(), "unknown site store type") {
		t.Errorf("Expected 'unknown site store type' error, got: %v", err)
	}
}

func TestCreateSiteStore_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := CreateSiteStore(ctx, &SiteConfig{
		Type:   "badger",
		Badger: map[string]any{"db_path": t.TempDir()},
	}, 512)
	if err == nil {
		t.Fatal("Expected error with canceled context")
	}
}

func TestCreateMedium_Filesystem(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "index.html"), []byte("home"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	m, err := CreateMedium(context.Background(), &MediumConfig{
		Type:       "filesystem",
		Filesystem: map[string]any{"path": root},
	})
	if err != nil {
		t.Fatalf("Failed to create filesystem medium: %v", err)
	}
	defer m.Close()

	ok, err := m.Exists(context.Background(), "/index.html")
	if err != nil || !ok {
		t.Errorf("Expected /index.html to exist, got ok=%v err=%v", ok, err)
	}
}

func TestCreateMedium_FilesystemMissingPath(t *testing.T) {
	_, err := CreateMedium(context.Background(), &MediumConfig{
		Type:       "filesystem",
		Filesystem: map[string]any{},
	})
	if err == nil {
		t.Fatal("Expected error for missing path")
	}
	if !strings.Contains(err.Error(), "path is required") {
		t.Errorf("Expected 'path is required' error, got: %v", err)
	}
}

func TestCreateMedium_Memory(t *testing.T) {
	m, err := CreateMedium(context.Background(), &MediumConfig{
		Type: "memory",
		Memory: map[string]any{
			"directories": []any{"/empty"},
			"files": []any{
				map[string]any{"path": "/docs/a.html", "content": "<p>a</p>"},
			},
		},
	})
	if err != nil {
		t.Fatalf("Failed to create memory medium: %v", err)
	}
	defer m.Close()

	for _, name := range []string{"/docs/a.html", "/docs", "/empty"} {
		ok, err := m.Exists(context.Background(), name)
		if err != nil || !ok {
			t.Errorf("Expected %s to exist, got ok=%v err=%v", name, ok, err)
		}
	}
}

func TestCreateMedium_S3MissingBucket(t *testing.T) {
	_, err := CreateMedium(context.Background(), &MediumConfig{
		Type: "s3",
		S3:   map[string]any{"region": "us-east-1"},
	})
	if err == nil {
		t.Fatal("Expected error for missing bucket")
	}
	if !strings.Contains(err.Error(), "bucket is required") {
		t.Errorf("Expected 'bucket is required' error, got: %v", err)
	}
}

func TestCreateMedium_S3(t *testing.T) {
	// Building the client does not contact the endpoint.
	m, err := CreateMedium(context.Background(), &MediumConfig{
		Type: "s3",
		S3: map[string]any{
			"region":            "us-east-1",
			"bucket":            "site",
			"endpoint":          "http://127.0.0.1:9000",
			"access_key_id":     "test",
			"secret_access_key": "test",
			"max_retries":       2,
		},
	})
	if err != nil {
		t.Fatalf("Failed to create S3 medium: %v", err)
	}
	defer m.Close()
}

func TestCreateMedium_UnknownType(t *testing.T) {
	_, err := CreateMedium(context.Background(), &MediumConfig{Type: "ftp"})
	if err == nil {
		t.Fatal("Expected error for unknown medium type")
	}
}

func TestCreateAdapters(t *testing.T) {
	cfg := GetDefaultConfig()

	adapters, err := CreateAdapters(cfg, nil)
	if err != nil {
		t.Fatalf("CreateAdapters failed: %v", err)
	}
	if len(adapters) != 1 || adapters[0].Protocol() != "WWW" {
		t.Fatalf("Expected one WWW adapter, got %v", adapters)
	}

	cfg.Adapters.WWW.Enabled = false
	if _, err := CreateAdapters(cfg, nil); err == nil {
		t.Error("Expected error with no adapters enabled")
	}
}

func TestInitializeMetrics_Disabled(t *testing.T) {
	cfg := GetDefaultConfig()

	result := InitializeMetrics(cfg)
	if result.Server != nil {
		t.Error("Expected no metrics server when disabled")
	}
	if result.WWWMetrics == nil {
		t.Error("Expected no-op WWW metrics when disabled")
	}
}
