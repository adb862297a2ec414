// Package config loads runtime settings for the scraper binaries.
//
// Precedence, lowest first: built-in defaults, optional YAML file, .env file,
// process environment. Environment keys use the SECSCRAPER prefix, e.g.
// SECSCRAPER_SEC_USER_AGENT; DATABASE_URL is honored on its own as well.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix is the envconfig prefix for every setting.
const EnvPrefix = "SECSCRAPER"

// ErrDatabaseNotConfigured is returned by RequireDatabase when no URL is set.
var ErrDatabaseNotConfigured = errors.New("database url not configured (set DATABASE_URL)")

// Config is the complete application configuration.
type Config struct {
	SEC      SECConfig      `yaml:"sec" envconfig:"SEC"`
	Database DatabaseConfig `yaml:"database" envconfig:"DATABASE"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Batch    BatchConfig    `yaml:"batch" envconfig:"BATCH"`
	Debug    DebugConfig    `yaml:"debug" envconfig:"DEBUG"`
}

// SECConfig controls EDGAR access. SEC rejects requests without a
// descriptive User-Agent and throttles clients above 10 requests per second.
type SECConfig struct {
	UserAgent         string        `yaml:"user_agent" envconfig:"USER_AGENT" validate:"required"`
	BaseURL           string        `yaml:"base_url" envconfig:"BASE_URL" validate:"required,url"`
	DataURL           string        `yaml:"data_url" envconfig:"DATA_URL" validate:"required,url"`
	RequestsPerSecond float64       `yaml:"requests_per_second" envconfig:"REQUESTS_PER_SECOND" validate:"gt=0,lte=10"`
	Timeout           time.Duration `yaml:"timeout" envconfig:"TIMEOUT" validate:"gt=0"`
	Form              string        `yaml:"form" envconfig:"FORM" validate:"oneof=10-Q 10-K"`
}

// DatabaseConfig points at the Postgres instance holding extracted rows.
type DatabaseConfig struct {
	URL      string `yaml:"url" envconfig:"URL"`
	MaxConns int32  `yaml:"max_conns" envconfig:"MAX_CONNS" validate:"gte=1"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Format   string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" validate:"required_unless=Output console"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Addr            string        `yaml:"addr" envconfig:"ADDR" validate:"required"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes" envconfig:"MAX_BODY_BYTES" validate:"gt=0"`
}

// BatchConfig bounds a multi-symbol run.
type BatchConfig struct {
	Concurrency int    `yaml:"concurrency" envconfig:"CONCURRENCY" validate:"gte=1,lte=16"`
	SymbolsFile string `yaml:"symbols_file" envconfig:"SYMBOLS_FILE"`
}

// DebugConfig enables the verbatim markup copy kept for every parse.
type DebugConfig struct {
	Enabled bool   `yaml:"enabled" envconfig:"ENABLED"`
	Dir     string `yaml:"dir" envconfig:"DIR" validate:"required_if=Enabled true"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		SEC: SECConfig{
			UserAgent:         "sec_scraper research@example.com",
			BaseURL:           "https://www.sec.gov",
			DataURL:           "https://data.sec.gov",
			RequestsPerSecond: 2,
			Timeout:           60 * time.Second,
			Form:              "10-Q",
		},
		Database: DatabaseConfig{MaxConns: 4},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/sec_scraper.log",
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    32 << 20,
		},
		Batch: BatchConfig{Concurrency: 4},
		Debug: DebugConfig{Dir: "debug"},
	}
}

// Load builds the configuration. path names an optional YAML file; an empty
// path skips it. A missing .env file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	// No default tags: envconfig leaves fields alone when a variable is unset,
	// so file values survive.
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}
	if cfg.Database.URL == "" {
		cfg.Database.URL = os.Getenv("DATABASE_URL")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

var validate = validator.New()

// Validate checks every field constraint.
func (c *Config) Validate() error {
	return validate.Struct(c)
}

// RequireDatabase reports ErrDatabaseNotConfigured for commands that persist.
func (c *Config) RequireDatabase() error {
	if c.Database.URL == "" {
		return ErrDatabaseNotConfigured
	}
	return nil
}
