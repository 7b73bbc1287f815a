// Package config provides configuration management.
package config

import (
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"sasu-tax/internal/errors"
	"sasu-tax/internal/logging"
)

// EnvPrefix prefixes every environment override, e.g. SASU_TAX_RATES_YEAR.
const EnvPrefix = "SASU_TAX"

// Config is the main application configuration
type Config struct {
	// Version is the configuration version
	Version string `json:"version" mapstructure:"version"`

	// Rates selects the tax-year rate tables
	Rates RatesConfig `json:"rates" mapstructure:"rates"`

	// Server contains HTTP server configuration
	Server ServerConfig `json:"server" mapstructure:"server"`

	// Storage contains calculation store configuration
	Storage StorageConfig `json:"storage" mapstructure:"storage"`

	// Output contains CLI output configuration
	Output OutputConfig `json:"output" mapstructure:"output"`

	// Logging contains logging configuration
	Logging logging.Config `json:"logging" mapstructure:"logging"`
}

// RatesConfig contains rate-table settings
type RatesConfig struct {
	// Year is the default tax year when a request does not name one
	Year int `json:"year" mapstructure:"year"`

	// Dir holds extra <year>.hcl rate files that override the built-in tables
	Dir string `json:"dir,omitempty" mapstructure:"dir"`
}

// ServerConfig contains HTTP settings
type ServerConfig struct {
	// Addr is the listen address
	Addr string `json:"addr" mapstructure:"addr"`

	// CORSOrigins lists allowed browser origins
	CORSOrigins []string `json:"cors_origins" mapstructure:"cors_origins"`

	// RateLimitPerMinute is the per-client request budget
	RateLimitPerMinute int `json:"rate_limit_per_minute" mapstructure:"rate_limit_per_minute"`

	// ShutdownTimeoutSeconds bounds graceful shutdown
	ShutdownTimeoutSeconds int `json:"shutdown_timeout_seconds" mapstructure:"shutdown_timeout_seconds"`
}

// StorageConfig contains calculation store settings
type StorageConfig struct {
	// Backend is one of memory, file, postgres
	Backend string `json:"backend" mapstructure:"backend"`

	// Directory is the root of the file backend
	Directory string `json:"directory,omitempty" mapstructure:"directory"`

	// DatabaseURL is the PostgreSQL connection string
	DatabaseURL string `json:"database_url,omitempty" mapstructure:"database_url"`
}

// OutputConfig contains output-related settings
type OutputConfig struct {
	// DefaultFormat is the default CLI output format (table, json)
	DefaultFormat string `json:"default_format" mapstructure:"default_format"`
}

// Default returns a default configuration
func Default() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Version: "1.0",
		Rates: RatesConfig{
			Year: 2024,
		},
		Server: ServerConfig{
			Addr:                   ":8080",
			CORSOrigins:            []string{"http://localhost:3000"},
			RateLimitPerMinute:     100,
			ShutdownTimeoutSeconds: 10,
		},
		Storage: StorageConfig{
			Backend:   "memory",
			Directory: filepath.Join(homeDir, ".sasu-tax", "calculations"),
		},
		Output: OutputConfig{
			DefaultFormat: "table",
		},
		Logging: logging.DefaultConfig(),
	}
}

// setDefaults registers every key so AutomaticEnv can override it during Unmarshal.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("version", d.Version)

	v.SetDefault("rates.year", d.Rates.Year)
	v.SetDefault("rates.dir", d.Rates.Dir)

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.cors_origins", d.Server.CORSOrigins)
	v.SetDefault("server.rate_limit_per_minute", d.Server.RateLimitPerMinute)
	v.SetDefault("server.shutdown_timeout_seconds", d.Server.ShutdownTimeoutSeconds)

	v.SetDefault("storage.backend", d.Storage.Backend)
	v.SetDefault("storage.directory", d.Storage.Directory)
	v.SetDefault("storage.database_url", d.Storage.DatabaseURL)

	v.SetDefault("output.default_format", d.Output.DefaultFormat)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output", d.Logging.Output)
	v.SetDefault("logging.development", d.Logging.Development)
}

// Load loads configuration from a file, a .env file and the environment.
// A missing file is not an error: defaults and environment still apply.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, errors.Wrapf(errors.TypeConfig, err, "error reading config file %s", path)
			}
		} else if !os.IsNotExist(err) {
			return nil, errors.Config("cannot access config file", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Config("error unmarshaling config", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the server cannot start with
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "memory", "file":
	case "postgres":
		if c.Storage.DatabaseURL == "" {
			return errors.New(errors.TypeConfig, "storage.database_url is required for the postgres backend")
		}
	default:
		return errors.Newf(errors.TypeConfig, "unknown storage backend: %q", c.Storage.Backend)
	}

	if c.Server.RateLimitPerMinute <= 0 {
		return errors.Newf(errors.TypeConfig, "server.rate_limit_per_minute must be positive, got %d", c.Server.RateLimitPerMinute)
	}
	if c.Rates.Year <= 0 {
		return errors.Newf(errors.TypeConfig, "rates.year must be positive, got %d", c.Rates.Year)
	}
	return nil
}

// Save saves configuration to a file
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Global configuration instance
var globalConfig = Default()

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}

// Set sets the global configuration
func Set(config *Config) {
	globalConfig = config
}
