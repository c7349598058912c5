package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/joho/godotenv"
)

func TestFromEnv(t *testing.T) {
	t.Setenv("TJ_DATABASE_PATH", "/tmp/j.db")
	t.Setenv("TJ_ACCOUNT_ID", "7")
	t.Setenv("TJ_QUOTES_TTL", "5m")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DatabasePath != "/tmp/j.db" || cfg.AccountID != 7 || cfg.QuotesTTL != 5*time.Minute {
		t.Errorf("FromEnv() = %+v", cfg)
	}
	if cfg.UserID != 1 || cfg.Addr != ":8080" || cfg.MaxUploadBytes != 10<<20 {
		t.Errorf("FromEnv() defaults = %+v", cfg)
	}
}

func TestFromEnv_Invalid(t *testing.T) {
	t.Setenv("TJ_USER_ID", "me")
	t.Setenv("TJ_QUOTES_TTL", "often")
	cfg, err := FromEnv()
	if err == nil {
		t.Fatal("FromEnv() succeeded on invalid values")
	}
	if cfg.UserID != 1 || cfg.QuotesTTL != time.Minute {
		t.Errorf("FromEnv() did not fall back to defaults: %+v", cfg)
	}
}

func TestDotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("TJ_LOG_LEVEL=debug\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	env, err := godotenv.Read(path)
	if err != nil {
		t.Fatal(err)
	}
	for k, v := range env {
		t.Setenv(k, v)
	}
	cfg, err := FromEnv()
	if err != nil || cfg.LogLevel != "debug" {
		t.Errorf("FromEnv() = %+v, %v; want debug log level", cfg, err)
	}
}
