package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		in   string
		want slog.Level
		ok   bool
	}{
		{"debug", slog.LevelDebug, true},
		{"WARN", slog.LevelWarn, true},
		{"", slog.LevelInfo, true},
		{"verbose", slog.LevelInfo, false},
	}
	for _, tc := range testCases {
		got, ok := ParseLevel(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, slog.LevelInfo, true)
	l.Debug("hidden")
	l.Info("import done", "trades", 3)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("log line is not a single JSON object: %q", buf.String())
	}
	if rec["msg"] != "import done" || rec["trades"] != float64(3) {
		t.Errorf("log record = %v", rec)
	}
}

func TestContext(t *testing.T) {
	if FromContext(context.Background()) != L {
		t.Errorf("FromContext() without logger is not the global logger")
	}
	l := New(&bytes.Buffer{}, slog.LevelInfo, false)
	if FromContext(ToContext(context.Background(), l)) != l {
		t.Errorf("FromContext() did not return the embedded logger")
	}
}
