// Package config loads and validates archiver configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Archive   ArchiveConfig   `mapstructure:"archive"`
	Feed      FeedConfig      `mapstructure:"feed"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Extractor ExtractorConfig `mapstructure:"extractor"`
	Images    ImagesConfig    `mapstructure:"images"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Mirror    MirrorConfig    `mapstructure:"mirror"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
}

// ArchiveConfig lays out the archive tree. Every file and directory is relative to RootDir.
type ArchiveConfig struct {
	RootDir      string `mapstructure:"root_dir"`
	MetadataFile string `mapstructure:"metadata_file"`
	EntriesDir   string `mapstructure:"entries_dir"`
	ImagesDir    string `mapstructure:"images_dir"`
	IndexFile    string `mapstructure:"index_file"`
	FeedFile     string `mapstructure:"feed_file"`
}

// FeedConfig describes the syndication channel.
type FeedConfig struct {
	Title       string `mapstructure:"title"`
	Link        string `mapstructure:"link"`
	Description string `mapstructure:"description"`
	MaxItems    int    `mapstructure:"max_items"`
}

// HTTPConfig configures page fetches and retry behavior.
type HTTPConfig struct {
	TimeoutSeconds   int    `mapstructure:"timeout_seconds"`
	MaxRetries       int    `mapstructure:"max_retries"`
	BackoffInitialMs int    `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs     int    `mapstructure:"backoff_max_ms"`
	UserAgent        string `mapstructure:"user_agent"`
	MaxBodyBytes     int    `mapstructure:"max_body_bytes"`
}

// ExtractorConfig controls the optional headless browser fallback.
type ExtractorConfig struct {
	HeadlessFallback  bool `mapstructure:"headless_fallback"`
	NavTimeoutSeconds int  `mapstructure:"nav_timeout_seconds"`
	// ShellMinText is the visible text length under which a script-heavy static page
	// is treated as a JavaScript shell and retried in the browser.
	ShellMinText int `mapstructure:"shell_min_text"`
}

// ImagesConfig governs image localization.
type ImagesConfig struct {
	Enabled         bool    `mapstructure:"enabled"`
	MaxWidth        int     `mapstructure:"max_width"`
	Concurrency     int     `mapstructure:"concurrency"`
	TimeoutSeconds  int     `mapstructure:"timeout_seconds"`
	JPEGQuality     int     `mapstructure:"jpeg_quality"`
	PerHostRPS      float64 `mapstructure:"per_host_rps"`
	PerHostBurst    int     `mapstructure:"per_host_burst"`
	MaxBytes        int     `mapstructure:"max_bytes"`
	MaxPixels       int     `mapstructure:"max_pixels"`
	// ReferencePrefix overrides the path from an entry page back to the archive root.
	// Empty derives it from archive.entries_dir.
	ReferencePrefix string `mapstructure:"reference_prefix"`
}

// LoggingConfig toggles zap development features and sinks.
type LoggingConfig struct {
	Development bool     `mapstructure:"development"`
	OutputPaths []string `mapstructure:"output_paths"`
}

// MetricsConfig points at a node-exporter textfile written after each run.
type MetricsConfig struct {
	TextfilePath string `mapstructure:"textfile_path"`
}

// MirrorConfig enables publishing the archive tree to a GCS bucket.
type MirrorConfig struct {
	GCSBucket    string `mapstructure:"gcs_bucket"`
	Prefix       string `mapstructure:"prefix"`
	CacheControl string `mapstructure:"cache_control"`
}

// NotifyConfig holds Pub/Sub settings for entry.archived events.
type NotifyConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// CatalogConfig controls the optional Postgres entry catalog.
type CatalogConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ARCHIVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("archive.root_dir", "site")
	v.SetDefault("archive.metadata_file", "metadata.json")
	v.SetDefault("archive.entries_dir", "entries")
	v.SetDefault("archive.images_dir", "images")
	v.SetDefault("archive.index_file", "index.html")
	v.SetDefault("archive.feed_file", "feed.xml")
	v.SetDefault("feed.title", "Reading Archive")
	v.SetDefault("feed.link", "https://example.invalid/")
	v.SetDefault("feed.description", "Articles saved for later.")
	v.SetDefault("feed.max_items", 20)
	v.SetDefault("http.timeout_seconds", 20)
	v.SetDefault("http.max_retries", 2)
	v.SetDefault("http.backoff_initial_ms", 250)
	v.SetDefault("http.backoff_max_ms", 2000)
	v.SetDefault("http.user_agent", "Mozilla/5.0 (compatible; article-archiver/1.0)")
	v.SetDefault("http.max_body_bytes", 10<<20)
	v.SetDefault("extractor.headless_fallback", false)
	v.SetDefault("extractor.nav_timeout_seconds", 30)
	v.SetDefault("extractor.shell_min_text", 2048)
	v.SetDefault("images.enabled", true)
	v.SetDefault("images.max_width", 1200)
	v.SetDefault("images.concurrency", 4)
	v.SetDefault("images.timeout_seconds", 15)
	v.SetDefault("images.jpeg_quality", 85)
	v.SetDefault("images.per_host_rps", 4.0)
	v.SetDefault("images.per_host_burst", 2)
	v.SetDefault("images.max_bytes", 20<<20)
	v.SetDefault("images.max_pixels", 40_000_000)
	v.SetDefault("images.reference_prefix", "")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.output_paths", []string{"stderr"})
	v.SetDefault("mirror.cache_control", "no-cache, max-age=60")
	v.SetDefault("catalog.table", "archive_entries")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Archive.RootDir) == "" {
		return fmt.Errorf("archive.root_dir is required")
	}
	for key, value := range map[string]string{
		"archive.metadata_file": c.Archive.MetadataFile,
		"archive.entries_dir":   c.Archive.EntriesDir,
		"archive.images_dir":    c.Archive.ImagesDir,
		"archive.index_file":    c.Archive.IndexFile,
		"archive.feed_file":     c.Archive.FeedFile,
	} {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s is required", key)
		}
	}
	if c.Feed.MaxItems <= 0 {
		return fmt.Errorf("feed.max_items must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.MaxRetries < 0 {
		return fmt.Errorf("http.max_retries must be >= 0")
	}
	if c.Extractor.HeadlessFallback && c.Extractor.NavTimeoutSeconds <= 0 {
		return fmt.Errorf("extractor.nav_timeout_seconds must be > 0 when headless fallback is enabled")
	}
	if c.Extractor.ShellMinText < 0 {
		return fmt.Errorf("extractor.shell_min_text must be >= 0")
	}
	if c.Images.Enabled {
		if c.Images.MaxWidth <= 0 {
			return fmt.Errorf("images.max_width must be > 0")
		}
		if c.Images.Concurrency <= 0 {
			return fmt.Errorf("images.concurrency must be > 0")
		}
		if c.Images.TimeoutSeconds <= 0 {
			return fmt.Errorf("images.timeout_seconds must be > 0")
		}
		if c.Images.JPEGQuality < 1 || c.Images.JPEGQuality > 100 {
			return fmt.Errorf("images.jpeg_quality must be between 1 and 100")
		}
		if c.Images.MaxPixels <= 0 {
			return fmt.Errorf("images.max_pixels must be > 0")
		}
	}
	if (c.Notify.ProjectID == "") != (c.Notify.TopicName == "") {
		return fmt.Errorf("notify.project_id and notify.topic_name must be set together")
	}
	return nil
}

// FetchTimeout is the per-request deadline for page fetches.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// ImageTimeout is the per-image fetch deadline.
func (c Config) ImageTimeout() time.Duration {
	return time.Duration(c.Images.TimeoutSeconds) * time.Second
}
