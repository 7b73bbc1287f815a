package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// TestBuildWritesJSONToFile checks the file sink and the timestamp key
func TestBuildWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sasu-tax.log")
	logger, err := Build(Config{Level: "debug", Format: "json", Output: path})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	logger.Named("engine").Debug("calculated", zap.Int("tax_year", 2024))
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(data))), &entry); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", data, err)
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Error("missing timestamp key")
	}
	if entry["logger"] != "engine" || entry["msg"] != "calculated" || entry["tax_year"] != float64(2024) {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestBuildLevelFallback(t *testing.T) {
	logger, err := Build(Config{Level: "chatty", Format: "console", Output: "stderr"})
	if err != nil {
		t.Fatal(err)
	}
	if logger.Core().Enabled(zapcore.DebugLevel) {
		t.Error("an unknown level must fall back to info")
	}
}

func TestBuildBadOutput(t *testing.T) {
	_, err := Build(Config{Output: filepath.Join(t.TempDir(), "missing", "dir", "x.log")})
	if err == nil {
		t.Error("expected an error for an unwritable path")
	}
}

func TestNopAndNamed(t *testing.T) {
	Nop()
	defer InitializeDefault()

	Info("silent")
	if Named("api") == nil || With() == nil {
		t.Fatal("helpers must return a logger")
	}
}
