package main

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/hojadevida/uploads"
	"github.com/hazyhaar/hojadevida/web"
)

// Config holds the service configuration. Values come from the YAML file,
// then environment overrides, then defaults.
type Config struct {
	Port     string `yaml:"port"`
	DBPath   string `yaml:"db_path"`
	LogLevel string `yaml:"log_level"`

	// AdminURL is linked from the no-profile page. Empty hides the link.
	AdminURL string `yaml:"admin_url"`

	// TrustedProxies lists CIDRs or addresses of reverse proxies whose
	// X-Forwarded-For is believed.
	TrustedProxies []string `yaml:"trusted_proxies"`

	Chrome    ChromeConfig    `yaml:"chrome"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Storage   uploads.Config  `yaml:"storage"`
	Admin     web.AdminConfig `yaml:"admin"`
	Retention RetentionConfig `yaml:"retention"`
	SQLTrace  SQLTraceConfig  `yaml:"sql_trace"`
}

// ChromeConfig selects the browser used to print PDFs.
type ChromeConfig struct {
	URL     string        `yaml:"url"` // DevTools WebSocket of a remote Chrome
	Bin     string        `yaml:"bin"`
	Recycle time.Duration `yaml:"recycle"`
}

// FetchConfig bounds attachment downloads during an export.
type FetchConfig struct {
	Timeout time.Duration `yaml:"timeout"`
	MaxSize int64         `yaml:"max_size"`
	Workers int           `yaml:"workers"`

	// AllowPrivate lets exports download from private and loopback
	// addresses, e.g. a MinIO on the same host.
	AllowPrivate bool `yaml:"allow_private"`
}

// SQLTraceConfig enables the traced SQLite driver. Slow and failed
// statements go to their own database at DBPath; empty disables tracing.
type SQLTraceConfig struct {
	DBPath string        `yaml:"db_path"`
	Slow   time.Duration `yaml:"slow"`
}

// RetentionConfig is the observability retention, in days.
type RetentionConfig struct {
	MetricsDays int `yaml:"metrics_days"`
	EventsDays  int `yaml:"events_days"`
}

func (c *Config) defaults() {
	if c.Port == "" {
		c.Port = "8000"
	}
	if c.DBPath == "" {
		c.DBPath = "data/hojadevida.db"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Admin.User == "" {
		c.Admin.User = "admin"
	}
	if c.Retention.MetricsDays <= 0 {
		c.Retention.MetricsDays = 30
	}
	if c.Retention.EventsDays <= 0 {
		c.Retention.EventsDays = 180
	}
}

// applyEnv overrides file values with the environment.
func (c *Config) applyEnv() {
	c.Port = env("PORT", c.Port)
	c.DBPath = env("DB_PATH", c.DBPath)
	c.LogLevel = env("LOG_LEVEL", c.LogLevel)
	c.Chrome.URL = env("CHROME_URL", c.Chrome.URL)
	c.Chrome.Bin = env("CHROME_BIN", c.Chrome.Bin)
	c.SQLTrace.DBPath = env("SQL_TRACE_DB", c.SQLTrace.DBPath)
	if v := os.Getenv("TRUSTED_PROXIES"); v != "" {
		c.TrustedProxies = strings.Split(v, ",")
	}

	c.Storage.Endpoint = env("S3_ENDPOINT", c.Storage.Endpoint)
	c.Storage.AccessKey = env("S3_ACCESS_KEY", c.Storage.AccessKey)
	c.Storage.SecretKey = env("S3_SECRET_KEY", c.Storage.SecretKey)
	c.Storage.Bucket = env("S3_BUCKET", c.Storage.Bucket)
	c.Storage.Region = env("S3_REGION", c.Storage.Region)
	c.Storage.PublicBaseURL = env("S3_PUBLIC_URL", c.Storage.PublicBaseURL)

	c.Admin.User = env("ADMIN_USER", c.Admin.User)
	c.Admin.PasswordHash = env("ADMIN_PASSWORD_HASH", c.Admin.PasswordHash)
}

// LoadConfigFile reads a YAML config file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadConfig resolves the configuration. An empty path uses the
// environment and defaults only.
func loadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		var err error
		if cfg, err = LoadConfigFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	cfg.defaults()
	return cfg, nil
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
