// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/vkotov/fbscraper/internal/browser"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Browser  BrowserConfig  `mapstructure:"browser"`
	Scrape   ScrapeConfig   `mapstructure:"scrape"`
	Storage  StorageConfig  `mapstructure:"storage"`
	DB       DBConfig       `mapstructure:"db"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Progress ProgressConfig `mapstructure:"progress"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// BrowserConfig governs headless browser launch and profile reuse.
type BrowserConfig struct {
	ExecPath       string `mapstructure:"exec_path"`
	Channel        string `mapstructure:"channel"`
	CacheDir       string `mapstructure:"cache_dir"`
	UserDataDir    string `mapstructure:"user_data_dir"`
	CookiesFile    string `mapstructure:"cookies_file"`
	Headless       bool   `mapstructure:"headless"`
	UserAgent      string `mapstructure:"user_agent"`
	NavTimeoutSec  int    `mapstructure:"nav_timeout_seconds"`
	WindowWidth    int    `mapstructure:"window_width"`
	WindowHeight   int    `mapstructure:"window_height"`
	LaunchProbeSec int    `mapstructure:"launch_probe_seconds"`
}

// ScrapeConfig bounds the scroll-and-collect loop and request validation.
type ScrapeConfig struct {
	DefaultLimit      int  `mapstructure:"default_limit"`
	MaxLimit          int  `mapstructure:"max_limit"`
	DefaultWaitSec    int  `mapstructure:"default_wait_seconds"`
	MaxWaitSec        int  `mapstructure:"max_wait_seconds"`
	MaxScrolls        int  `mapstructure:"max_scrolls"`
	ScrollIntervalMs  int  `mapstructure:"scroll_interval_ms"`
	IdleRounds        int  `mapstructure:"idle_rounds"`
	Screenshots       bool `mapstructure:"screenshots"`
	PlainFetchTimeout int  `mapstructure:"plain_fetch_timeout_seconds"`
}

// StorageConfig selects the blob backend for screenshots and DOM snapshots.
type StorageConfig struct {
	Backend   string `mapstructure:"backend"`
	LocalDir  string `mapstructure:"local_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// DBConfig controls access to the scrape history database.
type DBConfig struct {
	Backend      string `mapstructure:"backend"`
	DSN          string `mapstructure:"dsn"`
	Table        string `mapstructure:"table"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// PubSubConfig holds metadata for scrape completion notifications.
type PubSubConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// ProgressConfig tunes the progress hub batching behavior.
type ProgressConfig struct {
	BufferSize     int  `mapstructure:"buffer_size"`
	MaxBatchEvents int  `mapstructure:"max_batch_events"`
	MaxBatchWaitMs int  `mapstructure:"max_batch_wait_ms"`
	LogEvents      bool `mapstructure:"log_events"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FBSCRAPER")
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
	cfg.expandPaths()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// expandPaths resolves "~" prefixes in configured paths so a shipped default
// like ~/.cache/fbscraper/browsers points at the real home cache instead of a
// literal "~" directory under the working directory.
func (c *Config) expandPaths() {
	c.Browser.ExecPath = browser.ExpandUser(c.Browser.ExecPath)
	c.Browser.CacheDir = browser.ExpandUser(c.Browser.CacheDir)
	c.Browser.UserDataDir = browser.ExpandUser(c.Browser.UserDataDir)
	c.Browser.CookiesFile = browser.ExpandUser(c.Browser.CookiesFile)
	c.Storage.LocalDir = browser.ExpandUser(c.Storage.LocalDir)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.nav_timeout_seconds", 60)
	v.SetDefault("browser.window_width", 1920)
	v.SetDefault("browser.window_height", 1080)
	v.SetDefault("browser.launch_probe_seconds", 30)
	v.SetDefault("browser.cookies_file", "cookies.txt")
	v.SetDefault("scrape.default_limit", 100)
	v.SetDefault("scrape.max_limit", 1000)
	v.SetDefault("scrape.default_wait_seconds", 10)
	v.SetDefault("scrape.max_wait_seconds", 60)
	v.SetDefault("scrape.max_scrolls", 100)
	v.SetDefault("scrape.scroll_interval_ms", 1000)
	v.SetDefault("scrape.idle_rounds", 4)
	v.SetDefault("scrape.screenshots", true)
	v.SetDefault("scrape.plain_fetch_timeout_seconds", 15)
	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.local_dir", "screenshots")
	v.SetDefault("storage.prefix", "scrapes/")
	v.SetDefault("db.backend", "memory")
	v.SetDefault("db.table", "scrape_history")
	v.SetDefault("db.max_open_conns", 4)
	v.SetDefault("progress.buffer_size", 1024)
	v.SetDefault("progress.max_batch_events", 64)
	v.SetDefault("progress.max_batch_wait_ms", 500)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Scrape.DefaultLimit <= 0 {
		return fmt.Errorf("scrape.default_limit must be > 0")
	}
	if c.Scrape.MaxLimit < c.Scrape.DefaultLimit {
		return fmt.Errorf("scrape.max_limit must be >= scrape.default_limit")
	}
	if c.Scrape.MaxWaitSec < c.Scrape.DefaultWaitSec {
		return fmt.Errorf("scrape.max_wait_seconds must be >= scrape.default_wait_seconds")
	}
	switch c.Storage.Backend {
	case "memory", "local":
	case "gcs":
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket must be set for the gcs backend")
		}
	default:
		return fmt.Errorf("unknown storage.backend %q", c.Storage.Backend)
	}
	switch c.DB.Backend {
	case "memory":
	case "postgres":
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn must be set for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown db.backend %q", c.DB.Backend)
	}
	if c.PubSub.Enabled && (c.PubSub.ProjectID == "" || c.PubSub.TopicName == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic_name must be set when pubsub is enabled")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	return nil
}

// NavTimeout converts the browser navigation timeout to a duration.
func (c BrowserConfig) NavTimeout() time.Duration {
	return time.Duration(c.NavTimeoutSec) * time.Second
}

// LaunchProbeTimeout bounds the startup browser probe.
func (c BrowserConfig) LaunchProbeTimeout() time.Duration {
	return time.Duration(c.LaunchProbeSec) * time.Second
}

// ScrollInterval converts the scroll pause to a duration.
func (c ScrapeConfig) ScrollInterval() time.Duration {
	return time.Duration(c.ScrollIntervalMs) * time.Millisecond
}

// DefaultWait converts the default settle wait to a duration.
func (c ScrapeConfig) DefaultWait() time.Duration {
	return time.Duration(c.DefaultWaitSec) * time.Second
}

// MaxWait converts the maximum settle wait to a duration.
func (c ScrapeConfig) MaxWait() time.Duration {
	return time.Duration(c.MaxWaitSec) * time.Second
}

// PlainFetchBudget bounds a single browserless page fetch.
func (c ScrapeConfig) PlainFetchBudget() time.Duration {
	return time.Duration(c.PlainFetchTimeout) * time.Second
}

// MaxBatchWait converts the progress batch wait to a duration.
func (c ProgressConfig) MaxBatchWait() time.Duration {
	return time.Duration(c.MaxBatchWaitMs) * time.Millisecond
}

// Addr renders the listen address for the HTTP server.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
