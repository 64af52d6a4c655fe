package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig_FileEnvDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hojadevida.yaml")
	err := os.WriteFile(path, []byte(`
port: "9000"
db_path: /var/lib/cv/cv.db
chrome:
  url: ws://chrome:9222/devtools/browser/abc
fetch:
  timeout: 20s
  workers: 8
storage:
  endpoint: https://s3.example.com
  bucket: cv
admin:
  user: editor
`), 0o644)
	if err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"PORT", "DB_PATH", "LOG_LEVEL", "CHROME_URL", "S3_ENDPOINT", "ADMIN_USER"} {
		t.Setenv(k, "")
	}
	t.Setenv("S3_BUCKET", "cv-prod")
	t.Setenv("ADMIN_PASSWORD_HASH", "$2a$10$hash")

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "9000" || cfg.DBPath != "/var/lib/cv/cv.db" {
		t.Fatalf("file values lost: %+v", cfg)
	}
	if cfg.Chrome.URL != "ws://chrome:9222/devtools/browser/abc" {
		t.Fatalf("chrome url %q", cfg.Chrome.URL)
	}
	if cfg.Fetch.Timeout != 20*time.Second || cfg.Fetch.Workers != 8 {
		t.Fatalf("fetch: %+v", cfg.Fetch)
	}
	if cfg.Storage.Bucket != "cv-prod" || cfg.Storage.Endpoint != "https://s3.example.com" {
		t.Fatalf("storage: %+v", cfg.Storage)
	}
	if cfg.Admin.User != "editor" || cfg.Admin.PasswordHash != "$2a$10$hash" {
		t.Fatalf("admin: %+v", cfg.Admin)
	}
	if cfg.LogLevel != "info" || cfg.Retention.MetricsDays != 30 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestLoadConfig_NoFile(t *testing.T) {
	for _, k := range []string{"DB_PATH", "ADMIN_USER"} {
		t.Setenv(k, "")
	}
	t.Setenv("PORT", "8123")
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "8123" || cfg.DBPath != "data/hojadevida.db" || cfg.Admin.User != "admin" {
		t.Fatalf("cfg: %+v", cfg)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error")
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"info":  slog.LevelInfo,
		"":      slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoadConfig_SQLTraceFromEnv(t *testing.T) {
	t.Setenv("SQL_TRACE_DB", "data/sqltrace.db")
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SQLTrace.DBPath != "data/sqltrace.db" || cfg.SQLTrace.Slow != 0 {
		t.Fatalf("sql trace: %+v", cfg.SQLTrace)
	}
}

func TestLoadConfig_TrustedProxiesFromEnv(t *testing.T) {
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8,127.0.0.1")
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.TrustedProxies) != 2 || cfg.TrustedProxies[1] != "127.0.0.1" {
		t.Fatalf("trusted proxies: %v", cfg.TrustedProxies)
	}
}
