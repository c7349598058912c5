// Package logger holds the process-wide structured logger.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// L is the global logger. It is usable before InitLogger is called.
var L = slog.Default()

type contextKey string

const loggerKey contextKey = "logger"

// ParseLevel reads a level name, defaulting to info.
func ParseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}

// New returns a logger writing to w, as JSON when json is set and as text otherwise.
func New(w io.Writer, level slog.Level, json bool) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.Format(time.RFC3339))
				}
			}
			return a
		},
	}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// InitLogger initializes the global logger. Call it once at startup, after loading the config.
// Servers log JSON to stdout, the command line logs text to stderr.
func InitLogger(levelStr string, json bool) *slog.Logger {
	level, ok := ParseLevel(levelStr)
	w := io.Writer(os.Stderr)
	if json {
		w = os.Stdout
	}
	L = New(w, level, json)
	slog.SetDefault(L)
	if !ok {
		L.Warn("invalid log level, defaulting to info", "configuredLevel", levelStr)
	}
	return L
}

// FromContext retrieves the logger of the context, or the global one.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return L
}

// ToContext embeds a logger into a context.
func ToContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}
