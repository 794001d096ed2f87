package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Archive.RootDir != "site" || cfg.Archive.MetadataFile != "metadata.json" {
		t.Fatalf("unexpected archive defaults: %+v", cfg.Archive)
	}
	if cfg.Feed.MaxItems != 20 {
		t.Fatalf("expected feed window of 20, got %d", cfg.Feed.MaxItems)
	}
	if len(cfg.Logging.OutputPaths) != 1 || cfg.Logging.OutputPaths[0] != "stderr" {
		t.Fatalf("expected stderr log sink, got %v", cfg.Logging.OutputPaths)
	}
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
archive:
  root_dir: /srv/archive
feed:
  title: Saved
  link: https://reading.example.com/
  max_items: 5
http:
  timeout_seconds: 45
  max_retries: 4
extractor:
  headless_fallback: true
  nav_timeout_seconds: 12
  shell_min_text: 512
images:
  max_width: 800
  concurrency: 2
  timeout_seconds: 7
  jpeg_quality: 70
  max_pixels: 1000000
logging:
  development: false
  output_paths: ["stdout", "/var/log/archiver.log"]
notify:
  project_id: proj
  topic_name: archived
catalog:
  dsn: postgres://localhost/archive
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Archive.RootDir != "/srv/archive" || cfg.Archive.EntriesDir != "entries" {
		t.Fatalf("expected root override with default layout, got %+v", cfg.Archive)
	}
	if cfg.Feed.Title != "Saved" || cfg.Feed.MaxItems != 5 {
		t.Fatalf("expected feed overrides, got %+v", cfg.Feed)
	}
	if !cfg.Extractor.HeadlessFallback || cfg.Extractor.NavTimeoutSeconds != 12 || cfg.Extractor.ShellMinText != 512 {
		t.Fatalf("expected extractor overrides, got %+v", cfg.Extractor)
	}
	if cfg.Images.MaxWidth != 800 || cfg.Images.ReferencePrefix != "" || cfg.Images.MaxPixels != 1000000 {
		t.Fatalf("expected image overrides, got %+v", cfg.Images)
	}
	if got := cfg.FetchTimeout(); got != 45*time.Second {
		t.Fatalf("expected fetch timeout 45s, got %v", got)
	}
	if got := cfg.ImageTimeout(); got != 7*time.Second {
		t.Fatalf("expected image timeout 7s, got %v", got)
	}
	if len(cfg.Logging.OutputPaths) != 2 || cfg.Logging.Development {
		t.Fatalf("expected logging overrides, got %+v", cfg.Logging)
	}
	if cfg.Catalog.DSN == "" || cfg.Catalog.Table != "archive_entries" {
		t.Fatalf("expected catalog dsn with default table, got %+v", cfg.Catalog)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "root dir", mutate: func(c *Config) { c.Archive.RootDir = " " }, want: "archive.root_dir"},
		{name: "metadata file", mutate: func(c *Config) { c.Archive.MetadataFile = "" }, want: "archive.metadata_file"},
		{name: "feed window", mutate: func(c *Config) { c.Feed.MaxItems = 0 }, want: "feed.max_items"},
		{name: "timeout", mutate: func(c *Config) { c.HTTP.TimeoutSeconds = 0 }, want: "http.timeout_seconds"},
		{name: "retries", mutate: func(c *Config) { c.HTTP.MaxRetries = -1 }, want: "http.max_retries"},
		{
			name: "headless timeout",
			mutate: func(c *Config) {
				c.Extractor.HeadlessFallback = true
				c.Extractor.NavTimeoutSeconds = 0
			},
			want: "extractor.nav_timeout_seconds",
		},
		{name: "max width", mutate: func(c *Config) { c.Images.MaxWidth = 0 }, want: "images.max_width"},
		{name: "concurrency", mutate: func(c *Config) { c.Images.Concurrency = 0 }, want: "images.concurrency"},
		{name: "quality", mutate: func(c *Config) { c.Images.JPEGQuality = 101 }, want: "images.jpeg_quality"},
		{name: "max pixels", mutate: func(c *Config) { c.Images.MaxPixels = 0 }, want: "images.max_pixels"},
		{name: "shell threshold", mutate: func(c *Config) { c.Extractor.ShellMinText = -1 }, want: "extractor.shell_min_text"},
		{name: "notify pair", mutate: func(c *Config) { c.Notify.ProjectID = "proj" }, want: "notify.project_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestValidateSkipsImageChecksWhenDisabled(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	cfg.Images.Enabled = false
	cfg.Images.MaxWidth = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected disabled images to skip validation, got %v", err)
	}
}
