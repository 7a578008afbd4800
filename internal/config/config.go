// Package config loads and validates searchive configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Archive ArchiveConfig `mapstructure:"archive"`
	Publish PublishConfig `mapstructure:"publish"`
	Search  SearchConfig  `mapstructure:"search"`
	Extract ExtractConfig `mapstructure:"extract"`
	Server  ServerConfig  `mapstructure:"server"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// ArchiveConfig sets the archive root and the extracted-text blob provider.
type ArchiveConfig struct {
	Root      string `mapstructure:"root"`
	Provider  string `mapstructure:"provider"`
	GCSBucket string `mapstructure:"gcs_bucket"`
}

// PublishConfig controls batch-archived notifications.
type PublishConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// SearchConfig governs the query client and its rate limiter.
type SearchConfig struct {
	BaseURL           string  `mapstructure:"base_url"`
	APIKey            string  `mapstructure:"api_key"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	DefaultCount      int     `mapstructure:"default_count"`
}

// ExtractConfig governs the extraction pipeline.
type ExtractConfig struct {
	TimeoutSeconds         int    `mapstructure:"timeout_seconds"`
	MaxTextLength          int    `mapstructure:"max_text_length"`
	Concurrency            int    `mapstructure:"concurrency"`
	UserAgent              string `mapstructure:"user_agent"`
	HeadlessEnabled        bool   `mapstructure:"headless_enabled"`
	HeadlessTimeoutSeconds int    `mapstructure:"headless_timeout_seconds"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SEARCHIVE")
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
	v.SetDefault("logging.development", true)
	v.SetDefault("archive.root", "./archives")
	v.SetDefault("archive.provider", "local")
	v.SetDefault("search.base_url", "https://api.search.brave.com/res/v1")
	v.SetDefault("search.requests_per_second", 1.0)
	v.SetDefault("search.default_count", 10)
	v.SetDefault("extract.timeout_seconds", 15)
	v.SetDefault("extract.max_text_length", 50000)
	v.SetDefault("extract.concurrency", 5)
	v.SetDefault("extract.user_agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	v.SetDefault("extract.headless_enabled", false)
	v.SetDefault("extract.headless_timeout_seconds", 25)
	v.SetDefault("server.port", 8080)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Archive.Root) == "" {
		return fmt.Errorf("archive.root must be set")
	}
	switch c.Archive.Provider {
	case "local", "gcs", "memory":
	default:
		return fmt.Errorf("unknown archive.provider: %s", c.Archive.Provider)
	}
	if c.Archive.Provider == "gcs" && c.Archive.GCSBucket == "" {
		return fmt.Errorf("archive.gcs_bucket must be set when archive.provider is gcs")
	}
	if c.Search.RequestsPerSecond <= 0 {
		return fmt.Errorf("search.requests_per_second must be > 0")
	}
	if c.Extract.TimeoutSeconds <= 0 {
		return fmt.Errorf("extract.timeout_seconds must be > 0")
	}
	if c.Extract.MaxTextLength <= 0 {
		return fmt.Errorf("extract.max_text_length must be > 0")
	}
	if c.Extract.Concurrency <= 0 {
		return fmt.Errorf("extract.concurrency must be > 0")
	}
	if c.Publish.Enabled && (c.Publish.ProjectID == "" || c.Publish.Topic == "") {
		return fmt.Errorf("publish.project_id and publish.topic must be set when publish.enabled")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	return nil
}

// FetchTimeout converts the extraction timeout into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Extract.TimeoutSeconds) * time.Second
}

// HeadlessTimeout converts the headless navigation timeout into a duration.
func (c Config) HeadlessTimeout() time.Duration {
	return time.Duration(c.Extract.HeadlessTimeoutSeconds) * time.Second
}
