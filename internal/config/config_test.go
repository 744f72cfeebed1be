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
	if cfg.Server.Port != 8000 {
		t.Fatalf("expected default port 8000, got %d", cfg.Server.Port)
	}
	if got := cfg.Server.Addr(); got != "0.0.0.0:8000" {
		t.Fatalf("expected default addr 0.0.0.0:8000, got %s", got)
	}
	if cfg.Scrape.DefaultLimit != 100 || cfg.Scrape.MaxLimit != 1000 {
		t.Fatalf("unexpected scrape limit defaults: %+v", cfg.Scrape)
	}
	if got := cfg.Scrape.ScrollInterval(); got != time.Second {
		t.Fatalf("expected 1s scroll interval, got %v", got)
	}
	if cfg.Storage.Backend != "local" || cfg.DB.Backend != "memory" {
		t.Fatalf("unexpected backend defaults: storage=%s db=%s", cfg.Storage.Backend, cfg.DB.Backend)
	}
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  host: 127.0.0.1
  port: 9090
auth:
  enabled: true
  api_key: secret
browser:
  channel: chromium
  cookies_file: /etc/fbscraper/cookies.txt
  user_data_dir: /var/lib/fbscraper/profile
  headless: true
  nav_timeout_seconds: 45
scrape:
  default_limit: 50
  max_limit: 500
  default_wait_seconds: 5
  max_wait_seconds: 30
  screenshots: false
storage:
  backend: gcs
  gcs_bucket: fbscraper-artifacts
  prefix: runs/
db:
  backend: postgres
  dsn: postgres://scraper@localhost/scraper
  table: scrape_history
pubsub:
  enabled: true
  project_id: proj
  topic_name: scrape-events
logging:
  development: false
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Addr() != "127.0.0.1:9090" {
		t.Fatalf("expected addr 127.0.0.1:9090, got %s", cfg.Server.Addr())
	}
	if !cfg.Auth.Enabled || cfg.Auth.APIKey != "secret" {
		t.Fatalf("expected auth enabled with secret key")
	}
	if cfg.Browser.Channel != "chromium" || cfg.Browser.UserDataDir != "/var/lib/fbscraper/profile" {
		t.Fatalf("expected browser overrides to apply: %+v", cfg.Browser)
	}
	if got := cfg.Browser.NavTimeout(); got != 45*time.Second {
		t.Fatalf("expected nav timeout 45s, got %v", got)
	}
	if cfg.Scrape.DefaultLimit != 50 || cfg.Scrape.Screenshots {
		t.Fatalf("expected scrape overrides to apply: %+v", cfg.Scrape)
	}
	if cfg.Storage.Backend != "gcs" || cfg.Storage.GCSBucket != "fbscraper-artifacts" {
		t.Fatalf("expected gcs storage: %+v", cfg.Storage)
	}
	if cfg.DB.Backend != "postgres" || cfg.DB.Table != "scrape_history" {
		t.Fatalf("expected postgres db: %+v", cfg.DB)
	}
	if !cfg.PubSub.Enabled || cfg.PubSub.TopicName != "scrape-events" {
		t.Fatalf("expected pubsub overrides: %+v", cfg.PubSub)
	}
	if cfg.Logging.Development {
		t.Fatalf("expected production logging")
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8000},
		Scrape: ScrapeConfig{
			DefaultLimit:   100,
			MaxLimit:       1000,
			DefaultWaitSec: 10,
			MaxWaitSec:     60,
		},
		Storage: StorageConfig{Backend: "memory"},
		DB:      DBConfig{Backend: "memory"},
	}

	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "invalid port",
			cfg: func() Config {
				c := base
				c.Server.Port = 0
				return c
			}(),
			want: "server.port",
		},
		{
			name: "max limit below default",
			cfg: func() Config {
				c := base
				c.Scrape.MaxLimit = 10
				return c
			}(),
			want: "scrape.max_limit",
		},
		{
			name: "gcs without bucket",
			cfg: func() Config {
				c := base
				c.Storage.Backend = "gcs"
				return c
			}(),
			want: "storage.gcs_bucket",
		},
		{
			name: "unknown storage backend",
			cfg: func() Config {
				c := base
				c.Storage.Backend = "s3"
				return c
			}(),
			want: "storage.backend",
		},
		{
			name: "postgres without dsn",
			cfg: func() Config {
				c := base
				c.DB.Backend = "postgres"
				return c
			}(),
			want: "db.dsn",
		},
		{
			name: "pubsub missing topic",
			cfg: func() Config {
				c := base
				c.PubSub.Enabled = true
				c.PubSub.ProjectID = "proj"
				return c
			}(),
			want: "pubsub",
		},
		{
			name: "auth missing api key",
			cfg: func() Config {
				c := base
				c.Auth.Enabled = true
				return c
			}(),
			want: "auth.api_key",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadExpandsTildePaths(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
browser:
  cache_dir: ~/.cache/fbscraper/browsers
  cookies_file: ~/cookies.txt
storage:
  local_dir: ~/screenshots
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if want := filepath.Join(home, ".cache/fbscraper/browsers"); cfg.Browser.CacheDir != want {
		t.Fatalf("expected cache dir %s, got %s", want, cfg.Browser.CacheDir)
	}
	if want := filepath.Join(home, "cookies.txt"); cfg.Browser.CookiesFile != want {
		t.Fatalf("expected cookies file %s, got %s", want, cfg.Browser.CookiesFile)
	}
	if want := filepath.Join(home, "screenshots"); cfg.Storage.LocalDir != want {
		t.Fatalf("expected local dir %s, got %s", want, cfg.Storage.LocalDir)
	}
	if strings.HasPrefix(cfg.Browser.CacheDir, "~") {
		t.Fatalf("cache dir kept literal tilde: %s", cfg.Browser.CacheDir)
	}
}
