package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"DEBUG", zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"info", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
		{"bogus", zapcore.InfoLevel},
	}
	for _, tc := range tests {
		if got := ParseLevel(tc.in); got != tc.want {
			t.Errorf("ParseLevel(%q): expected %v, got %v", tc.in, tc.want, got)
		}
	}
}

func TestConsoleLevelFilter(t *testing.T) {
	defer func() { Log = zap.NewNop() }()

	var buf bytes.Buffer
	if err := InitWithFileConfig("warn", FileConfig{}, &buf); err != nil {
		t.Fatal(err)
	}
	Log.Info("quiet")
	Log.Warn("loud")
	Sync()

	out := buf.String()
	if strings.Contains(out, "quiet") {
		t.Errorf("info message logged at warn level: %q", out)
	}
	if !strings.Contains(out, "loud") {
		t.Errorf("warn message missing: %q", out)
	}
}

func TestFileOutput(t *testing.T) {
	defer func() { Log = zap.NewNop() }()

	path := filepath.Join(t.TempDir(), "shade.log")
	cfg := DefaultFileConfig(path)
	cfg.Compress = false
	if err := InitWithFileConfig("debug", cfg, nil); err != nil {
		t.Fatal(err)
	}
	Log.Debug("resolved", zap.String("method", "ray-tracing"))
	Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v: %q", err, data)
	}
	if entry["msg"] != "resolved" || entry["method"] != "ray-tracing" || entry["level"] != "debug" {
		t.Errorf("unexpected log entry %v", entry)
	}
}
