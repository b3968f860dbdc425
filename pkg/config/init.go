package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// sampleSite is written next to a freshly generated configuration file.
const sampleSite = `; Site configuration. Each section applies to a path and everything below
; it; the nearest section that defines a key wins.

[/]
handler = default
error document 404 = /errors/404.html

[/cgi-bin]
handler = forbidden

[/status]
handler = status

[mime types]
html = text/html
htm = text/html
txt = text/plain
css = text/css
js = application/javascript
png = image/png
jpg = image/jpeg
gif = image/gif
default = application/octet-stream
`

const sampleIndex = "<html><body><h1>It works!</h1></body></html>\n"

const sampleNotFound = "<html><body><h1>Not Found</h1></body></html>\n"

// InitConfig writes a sample configuration to the default location, along
// with a sample site file and document root when they do not exist yet.
//
// Returns the path of the configuration file. Fails if it already exists and
// force is false.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a sample configuration to path. The site file and
// document root it refers to are created in the same directory.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	cfg := GetDefaultConfig()
	sitePath := filepath.Join(dir, "site.ini")
	docRoot := filepath.Join(dir, "htdocs")
	cfg.Site.INI["path"] = sitePath
	cfg.Site.Badger["db_path"] = filepath.Join(dir, "site.db")
	cfg.Medium.Filesystem["path"] = docRoot

	content, err := generateYAMLWithComments(cfg)
	if err != nil {
		return fmt.Errorf("failed to generate config: %w", err)
	}

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return writeSampleSite(sitePath, docRoot)
}

// writeSampleSite creates the sample site file and document root. Existing
// files are left alone.
func writeSampleSite(sitePath, docRoot string) error {
	if err := os.MkdirAll(filepath.Join(docRoot, "errors"), 0755); err != nil {
		return fmt.Errorf("failed to create document root: %w", err)
	}

	files := []struct {
		path    string
		content string
	}{
		{sitePath, sampleSite},
		{filepath.Join(docRoot, "index.html"), sampleIndex},
		{filepath.Join(docRoot, "errors", "404.html"), sampleNotFound},
	}
	for _, f := range files {
		if _, err := os.Stat(f.path); err == nil {
			continue
		}
		if err := os.WriteFile(f.path, []byte(f.content), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", f.path, err)
		}
	}
	return nil
}

// generateYAMLWithComments renders cfg as a commented YAML document.
func generateYAMLWithComments(cfg *Config) (string, error) {
	w := cfg.Adapters.WWW

	doc := mapping(
		section("logging", "Logging configuration",
			scalar("level", cfg.Logging.Level, "DEBUG, INFO, WARN or ERROR"),
			scalar("format", cfg.Logging.Format, "text or json"),
			scalar("output", cfg.Logging.Output, "stdout, stderr or a file path"),
		),
		section("server", "Server-wide settings",
			scalar("shutdown_timeout", duration(cfg.Server.ShutdownTimeout), "Maximum time to wait for adapters to stop"),
			section("metrics", "Prometheus /metrics endpoint",
				scalar("enabled", strconv.FormatBool(cfg.Server.Metrics.Enabled), ""),
				scalar("port", strconv.Itoa(cfg.Server.Metrics.Port), ""),
			),
		),
		section("site", "Per-path site configuration (handlers, redirects, error documents, MIME types)",
			scalar("type", cfg.Site.Type, "ini, memory or badger"),
			section("ini", "",
				scalar("path", optionString(cfg.Site.INI, "path"), ""),
			),
			section("badger", "",
				scalar("db_path", optionString(cfg.Site.Badger, "db_path"), ""),
				scalar("import_path", "", "Optional INI file imported into the database at startup"),
			),
		),
		section("medium", "Where served files come from",
			scalar("type", cfg.Medium.Type, "filesystem, memory or s3"),
			section("filesystem", "",
				scalar("path", optionString(cfg.Medium.Filesystem, "path"), "Document root"),
			),
		),
		section("adapters", "Protocol adapters",
			section("www", "Web server",
				scalar("enabled", strconv.FormatBool(w.Enabled), ""),
				scalar("port", strconv.Itoa(w.Port), ""),
				scalar("buffer_size", strconv.Itoa(w.BufferSize), "Longest request line and file chunk size in bytes"),
				scalar("tick_interval", duration(w.TickInterval), "Idle sleep between engine ticks"),
				scalar("drain_delay", duration(w.DrainDelay), "Time a finished connection stays open"),
				scalar("read_buffer_size", strconv.Itoa(w.ReadBufferSize), ""),
				scalar("write_timeout", duration(w.WriteTimeout), ""),
				scalar("accept_rate", strconv.FormatFloat(w.AcceptRate, 'f', -1, 64), "Connections per second, 0 for unlimited"),
				scalar("accept_burst", strconv.Itoa(w.AcceptBurst), ""),
				scalar("shutdown_timeout", duration(w.ShutdownTimeout), ""),
				scalar("metrics_log_interval", duration(w.MetricsLogInterval), ""),
			),
		),
	)

	root := &yaml.Node{
		Kind:        yaml.DocumentNode,
		HeadComment: "wwwserver Configuration File\nGenerated by 'wwwserver init'",
		Content:     []*yaml.Node{doc},
	}

	out, err := yaml.Marshal(root)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// keyValue is a key node and its value node.
type keyValue [2]*yaml.Node

func mapping(entries ...keyValue) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode}
	for _, e := range entries {
		n.Content = append(n.Content, e[0], e[1])
	}
	return n
}

func section(key, comment string, entries ...keyValue) keyValue {
	return keyValue{
		{Kind: yaml.ScalarNode, Value: key, HeadComment: comment},
		mapping(entries...),
	}
}

func scalar(key, value, comment string) keyValue {
	return keyValue{
		{Kind: yaml.ScalarNode, Value: key},
		{Kind: yaml.ScalarNode, Value: value, LineComment: comment},
	}
}

func duration(d time.Duration) string {
	return d.String()
}
