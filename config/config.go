// Package config loads the journal configuration from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every setting of the journal.
type Config struct {
	DatabasePath   string
	LogLevel       string
	UserID         int64 // the journal owner for the command line
	AccountID      int64 // default account of the command line, 0 for none
	Addr           string
	QuotesURL      string
	QuotesTTL      time.Duration
	MaxUploadBytes int64
	GeminiModel    string
}

// Load reads the .env file of the current directory, if any, then the environment.
// Invalid values are reported rather than silently defaulted.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("cannot load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv reads the configuration from environment variables only.
func FromEnv() (Config, error) {
	var errs []error
	cfg := Config{
		DatabasePath:   getEnv("TJ_DATABASE_PATH", defaultDatabasePath()),
		LogLevel:       getEnv("TJ_LOG_LEVEL", "info"),
		UserID:         getEnvAsInt(&errs, "TJ_USER_ID", 1),
		AccountID:      getEnvAsInt(&errs, "TJ_ACCOUNT_ID", 0),
		Addr:           getEnv("TJ_ADDR", ":8080"),
		QuotesURL:      getEnv("TJ_QUOTES_URL", ""),
		QuotesTTL:      getEnvAsDuration(&errs, "TJ_QUOTES_TTL", time.Minute),
		MaxUploadBytes: getEnvAsInt(&errs, "TJ_MAX_UPLOAD_BYTES", 10<<20),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
	}
	return cfg, errors.Join(errs...)
}

func defaultDatabasePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "tradejournal.db"
	}
	return filepath.Join(dir, "tradejournal", "journal.db")
}

// getEnv retrieves an environment variable or returns a fallback value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(errs *[]error, key string, fallback int64) int64 {
	s := getEnv(key, "")
	if s == "" {
		return fallback
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid integer value for %s: %q", key, s))
		return fallback
	}
	return v
}

func getEnvAsDuration(errs *[]error, key string, fallback time.Duration) time.Duration {
	s := getEnv(key, "")
	if s == "" {
		return fallback
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid duration value for %s: %q", key, s))
		return fallback
	}
	return v
}
