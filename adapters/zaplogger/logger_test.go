package zaplogger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger_WritesStructuredEntries(t *testing.T) {
	observed, logs := observer.New(zapcore.DebugLevel)
	logger := Wrap(zap.New(observed))

	logger.Info("session_refresh succeeded", "duration_ms", 12)
	logger.WithFields(map[string]any{"operation": "sign_in"}).Error("sign_in failed", "error", "bad credentials")
	logger.Trace("trace maps to debug")

	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Message != "session_refresh succeeded" || entries[0].ContextMap()["duration_ms"] != int64(12) {
		t.Fatalf("unexpected info entry: %#v", entries[0])
	}
	failure := entries[1].ContextMap()
	if entries[1].Level != zapcore.ErrorLevel || failure["operation"] != "sign_in" || failure["error"] != "bad credentials" {
		t.Fatalf("unexpected error entry: %#v", entries[1])
	}
	if entries[2].Level != zapcore.DebugLevel {
		t.Fatalf("expected trace at debug level, got %s", entries[2].Level)
	}
}

func TestProvider_NamesLoggers(t *testing.T) {
	observed, logs := observer.New(zapcore.InfoLevel)
	provider := NewProvider(Wrap(zap.New(observed)))

	provider.GetLogger("puthelp.transport").Info("attached")
	provider.GetLogger("").Info("root")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].LoggerName != "puthelp.transport" {
		t.Fatalf("expected named logger, got %q", entries[0].LoggerName)
	}
	if entries[1].LoggerName != "" {
		t.Fatalf("expected root logger, got %q", entries[1].LoggerName)
	}
}

func TestNew_RotatedFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "puthelp.log")
	logger, closer, err := New(Config{Level: "warn", File: FileConfig{Path: path}})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	logger.Info("filtered by level")
	logger.Warn("refresh_failed", "attempt", 2)
	_ = logger.Sync()
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	matches, err := filepath.Glob(path + ".*")
	if err != nil || len(matches) != 1 {
		t.Fatalf("expected one rotated file, got %v err=%v", matches, err)
	}
	content, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	text := string(content)
	if strings.Contains(text, "filtered by level") {
		t.Fatalf("expected info entry below warn to be dropped")
	}
	if !strings.Contains(text, `"msg":"refresh_failed"`) || !strings.Contains(text, `"attempt":2`) {
		t.Fatalf("expected JSON warn entry, got %q", text)
	}
}

func TestLevelFromString(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"TRACE":   zapcore.DebugLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"verbose": zapcore.InfoLevel,
	}
	for input, expected := range cases {
		if got := levelFromString(input); got != expected {
			t.Fatalf("level %q: expected %s, got %s", input, expected, got)
		}
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("PUTHELP_LOG_DEV", "1")
	t.Setenv("PUTHELP_LOG_LEVEL", "")
	t.Setenv("PUTHELP_LOG_FILE", "/tmp/puthelp.log")
	cfg := ConfigFromEnv()
	if !cfg.Dev || cfg.Level != "debug" || cfg.File.Path != "/tmp/puthelp.log" {
		t.Fatalf("unexpected config: %#v", cfg)
	}
}
