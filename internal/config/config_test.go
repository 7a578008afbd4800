package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
logging:
  development: false
archive:
  root: /tmp/archives
  provider: gcs
  gcs_bucket: bucket
publish:
  enabled: true
  project_id: project
  topic: searchive-batches
search:
  base_url: https://search.internal/res/v1
  api_key: secret
  requests_per_second: 2.5
  default_count: 20
extract:
  timeout_seconds: 30
  max_text_length: 10000
  concurrency: 8
  user_agent: test-agent
  headless_enabled: true
  headless_timeout_seconds: 40
server:
  port: 9090
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Logging.Development {
		t.Fatal("expected production logging")
	}
	if cfg.Archive.Root != "/tmp/archives" || cfg.Archive.Provider != "gcs" {
		t.Fatalf("archive overrides not applied: %+v", cfg.Archive)
	}
	if !cfg.Publish.Enabled || cfg.Publish.Topic != "searchive-batches" {
		t.Fatalf("publish overrides not applied: %+v", cfg.Publish)
	}
	if cfg.Search.RequestsPerSecond != 2.5 || cfg.Search.DefaultCount != 20 {
		t.Fatalf("search overrides not applied: %+v", cfg.Search)
	}
	if cfg.Extract.Concurrency != 8 || cfg.Extract.UserAgent != "test-agent" {
		t.Fatalf("extract overrides not applied: %+v", cfg.Extract)
	}
	if got := cfg.FetchTimeout(); got != 30*time.Second {
		t.Fatalf("expected fetch timeout 30s, got %v", got)
	}
	if got := cfg.HeadlessTimeout(); got != 40*time.Second {
		t.Fatalf("expected headless timeout 40s, got %v", got)
	}
	if cfg.Server.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Server.Port)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Archive.Root != "./archives" || cfg.Archive.Provider != "local" {
		t.Fatalf("unexpected archive defaults: %+v", cfg.Archive)
	}
	if cfg.Search.RequestsPerSecond != 1.0 || cfg.Search.DefaultCount != 10 {
		t.Fatalf("unexpected search defaults: %+v", cfg.Search)
	}
	if cfg.Extract.MaxTextLength != 50000 || cfg.Extract.Concurrency != 5 {
		t.Fatalf("unexpected extract defaults: %+v", cfg.Extract)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Parallel()

	base, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	cases := map[string]func(Config) Config{
		"zero rate": func(c Config) Config {
			c.Search.RequestsPerSecond = 0
			return c
		},
		"negative rate": func(c Config) Config {
			c.Search.RequestsPerSecond = -1
			return c
		},
		"zero concurrency": func(c Config) Config {
			c.Extract.Concurrency = 0
			return c
		},
		"zero text cap": func(c Config) Config {
			c.Extract.MaxTextLength = 0
			return c
		},
		"gcs without bucket": func(c Config) Config {
			c.Archive.Provider = "gcs"
			c.Archive.GCSBucket = ""
			return c
		},
		"publish without topic": func(c Config) Config {
			c.Publish.Enabled = true
			c.Publish.ProjectID = "p"
			c.Publish.Topic = ""
			return c
		},
		"unknown provider": func(c Config) Config {
			c.Archive.Provider = "s3"
			return c
		},
	}
	for name, mutate := range cases {
		if err := mutate(base).Validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}
