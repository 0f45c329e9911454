// Package config loads and validates application configuration. Values come
// from built-in defaults, an optional YAML file, and BULLBOARD_* environment
// variables, in that order of precedence (environment wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// ErrInvalid marks configuration errors. They fail pipeline construction at
// startup, before any symbol is processed.
var ErrInvalid = errors.New("invalid configuration")

// Config represents the complete application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Provider ProviderConfig `yaml:"provider" envconfig:"PROVIDER"`
	Pipeline PipelineConfig `yaml:"pipeline" envconfig:"PIPELINE"`
	Refresh  RefreshConfig  `yaml:"refresh" envconfig:"REFRESH"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" validate:"gt=0"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level      string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Output     string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath   string `yaml:"file_path" envconfig:"FILE_PATH"`
	MaxSizeMB  int    `yaml:"max_size_mb" envconfig:"MAX_SIZE_MB" validate:"min=1"`
	MaxBackups int    `yaml:"max_backups" envconfig:"MAX_BACKUPS" validate:"min=0"`
}

// ProviderConfig describes how to reach the market-data provider.
type ProviderConfig struct {
	BaseURL        string        `yaml:"base_url" envconfig:"BASE_URL" validate:"required,url"`
	RequestTimeout time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" validate:"gt=0"`
}

// PipelineConfig holds every tunable of the ETL pipeline. Out-of-range values
// are a configuration error at startup, not a runtime failure.
type PipelineConfig struct {
	MaxRetries            int           `yaml:"max_retries" envconfig:"MAX_RETRIES" validate:"min=0"`
	BackoffBase           time.Duration `yaml:"backoff_base" envconfig:"BACKOFF_BASE" validate:"gt=0"`
	BackoffCap            time.Duration `yaml:"backoff_cap" envconfig:"BACKOFF_CAP" validate:"gt=0"`
	CompletenessThreshold float64       `yaml:"completeness_threshold" envconfig:"COMPLETENESS_THRESHOLD" validate:"gte=0,lte=1"`
	StalenessMaxDays      int           `yaml:"staleness_max_days" envconfig:"STALENESS_MAX_DAYS" validate:"min=1"`
	AnomalyK              float64       `yaml:"anomaly_k" envconfig:"ANOMALY_K" validate:"gt=0"`
	MaxDroppedBarFraction float64       `yaml:"max_dropped_bar_fraction" envconfig:"MAX_DROPPED_BAR_FRACTION" validate:"gte=0,lte=1"`
	Windows               []int         `yaml:"windows" envconfig:"WINDOWS" validate:"min=1,dive,gt=0"`
	MaxFetchConcurrency   int           `yaml:"max_fetch_concurrency" envconfig:"MAX_FETCH_CONCURRENCY" validate:"min=1"`
	PerSymbolTimeout      time.Duration `yaml:"per_symbol_timeout" envconfig:"PER_SYMBOL_TIMEOUT" validate:"gt=0"`
	RateLimitRPS          float64       `yaml:"rate_limit_rps" envconfig:"RATE_LIMIT_RPS" validate:"gt=0"`
	RateLimitBurst        int           `yaml:"rate_limit_burst" envconfig:"RATE_LIMIT_BURST" validate:"min=1"`
}

// RefreshConfig drives the scheduled re-run of the pipeline over a fixed
// symbol universe.
type RefreshConfig struct {
	Enabled   bool     `yaml:"enabled" envconfig:"ENABLED"`
	CronSpec  string   `yaml:"cron_spec" envconfig:"CRON_SPEC"`
	Symbols   []string `yaml:"symbols" envconfig:"SYMBOLS"`
	RangeDays int      `yaml:"range_days" envconfig:"RANGE_DAYS" validate:"min=1"`
}

// Load builds the configuration: defaults, then the YAML file at path (if
// non-empty and present), then environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cfg.loadFromFile(path); err != nil {
				return nil, fmt.Errorf("load config file %s: %w", path, err)
			}
		}
	}

	if err := envconfig.Process("BULLBOARD", cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile overlays values from a YAML file onto the receiver.
func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

// Validate checks every configured value. Violations wrap ErrInvalid.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.Pipeline.BackoffCap < c.Pipeline.BackoffBase {
		return fmt.Errorf("%w: backoff cap %v is below base %v", ErrInvalid, c.Pipeline.BackoffCap, c.Pipeline.BackoffBase)
	}
	if c.Logging.Output != "console" && c.Logging.FilePath == "" {
		return fmt.Errorf("%w: logging output %q requires a file path", ErrInvalid, c.Logging.Output)
	}
	return nil
}

// Default returns the documented default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     "both",
			FilePath:   "logs/bullboard.log",
			MaxSizeMB:  50,
			MaxBackups: 5,
		},
		Provider: ProviderConfig{
			BaseURL:        "https://data.bullboard.local/v1",
			RequestTimeout: 10 * time.Second,
		},
		Pipeline: PipelineConfig{
			MaxRetries:            3,
			BackoffBase:           500 * time.Millisecond,
			BackoffCap:            30 * time.Second,
			CompletenessThreshold: 0.30,
			StalenessMaxDays:      5,
			AnomalyK:              5,
			MaxDroppedBarFraction: 0.30,
			Windows:               []int{21, 63},
			MaxFetchConcurrency:   4,
			PerSymbolTimeout:      60 * time.Second,
			RateLimitRPS:          2,
			RateLimitBurst:        1,
		},
		Refresh: RefreshConfig{
			Enabled:   false,
			CronSpec:  "0 30 21 * * 1-5", // weekdays 21:30, after US close
			RangeDays: 365,
		},
	}
}
