package config

import (
	"os"
	"path/filepath"
	"testing"

	"sasu-tax/internal/errors"
)

// TestLoadMissingFileUsesDefaults proves a missing file is not fatal
func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Rates.Year != 2024 {
		t.Errorf("expected default year 2024, got %d", cfg.Rates.Year)
	}
	if cfg.Storage.Backend != "memory" {
		t.Errorf("expected memory backend, got %q", cfg.Storage.Backend)
	}
	if cfg.Server.RateLimitPerMinute != 100 {
		t.Errorf("expected 100 req/min, got %d", cfg.Server.RateLimitPerMinute)
	}
}

// TestLoadFileAndEnvOverride proves env beats file and file beats defaults
func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
  "rates": {"year": 2025},
  "server": {"addr": ":9090"},
  "logging": {"level": "debug"}
}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("SASU_TAX_SERVER_ADDR", ":7070")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Rates.Year != 2025 {
		t.Errorf("file value lost: year = %d", cfg.Rates.Year)
	}
	if cfg.Server.Addr != ":7070" {
		t.Errorf("env override lost: addr = %q", cfg.Server.Addr)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("file value lost: level = %q", cfg.Logging.Level)
	}
	if cfg.Server.ShutdownTimeoutSeconds != 10 {
		t.Errorf("default lost: shutdown = %d", cfg.Server.ShutdownTimeoutSeconds)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults are valid", mutate: func(c *Config) {}},
		{name: "file backend", mutate: func(c *Config) { c.Storage.Backend = "file" }},
		{
			name:    "postgres without url",
			mutate:  func(c *Config) { c.Storage.Backend = "postgres" },
			wantErr: true,
		},
		{
			name: "postgres with url",
			mutate: func(c *Config) {
				c.Storage.Backend = "postgres"
				c.Storage.DatabaseURL = "postgres://localhost/sasu"
			},
		},
		{name: "unknown backend", mutate: func(c *Config) { c.Storage.Backend = "redis" }, wantErr: true},
		{name: "zero rate limit", mutate: func(c *Config) { c.Server.RateLimitPerMinute = 0 }, wantErr: true},
		{name: "zero year", mutate: func(c *Config) { c.Rates.Year = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.IsType(err, errors.TypeConfig) {
				t.Errorf("expected CONFIG_ERROR, got %v", err)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := Default()
	cfg.Rates.Year = 2025

	if err := cfg.Save(path); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Rates.Year != 2025 {
		t.Errorf("expected year 2025 after round trip, got %d", loaded.Rates.Year)
	}
}
