package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config struct to hold the configuration settings
type Config struct {
	Postgres      PostgresConfig      `yaml:"postgres"`
	NATS          NATSConfig          `yaml:"nats"`
	HTTP          HTTPConfig          `yaml:"http"`
	Observability ObservabilityConfig `yaml:"observability"`
	Round         RoundConfig         `yaml:"round"`
}

// PostgresConfig holds Postgres configuration.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// NATSConfig holds NATS configuration. Events are only published when
// Enabled is set.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Enabled bool   `yaml:"enabled"`
}

// HTTPConfig holds the API listener and per-client rate limit.
type HTTPConfig struct {
	Addr      string  `yaml:"addr"`
	RateLimit float64 `yaml:"rate_limit"`
	Burst     int     `yaml:"burst"`
}

// ObservabilityConfig holds configuration for observability components
type ObservabilityConfig struct {
	Environment    string `yaml:"environment"`
	LogLevel       string `yaml:"log_level"`
	MetricsAddress string `yaml:"metrics_address"`
}

// RoundConfig tunes the round engine.
type RoundConfig struct {
	Retry              RetryConfig   `yaml:"retry"`
	RecentLimitDefault int           `yaml:"recent_limit_default"`
	RecentLimitMax     int           `yaml:"recent_limit_max"`
	Sweeper            SweeperConfig `yaml:"sweeper"`
}

// RetryConfig bounds conflict retries.
type RetryConfig struct {
	MaxAttempts     int           `yaml:"max_attempts"`
	InitialInterval time.Duration `yaml:"initial_interval"`
}

// SweeperConfig controls the optional expired-round sweeper.
type SweeperConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// LoadConfig loads the configuration from a YAML file. A .env file in the
// working directory is loaded first; environment variables override file
// values. When the file is missing, configuration comes from the environment
// alone.
func LoadConfig(filename string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg Config
	data, err := os.ReadFile(filename)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
		// Environment only.
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NATS.URL = v
		cfg.NATS.Enabled = true
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
	if v := os.Getenv("METRICS_ADDRESS"); v != "" {
		cfg.Observability.MetricsAddress = v
	}
	if v := os.Getenv("ENV"); v != "" {
		cfg.Observability.Environment = v
	}
	if v := os.Getenv("ROUND_SWEEPER_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid ROUND_SWEEPER_ENABLED value: %w", err)
		}
		cfg.Round.Sweeper.Enabled = enabled
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.RateLimit <= 0 {
		c.HTTP.RateLimit = 10
	}
	if c.HTTP.Burst <= 0 {
		c.HTTP.Burst = 20
	}
	if c.Observability.Environment == "" {
		c.Observability.Environment = "development"
	}
	if c.Observability.LogLevel == "" {
		c.Observability.LogLevel = "info"
	}
	if c.Round.Retry.MaxAttempts <= 0 {
		c.Round.Retry.MaxAttempts = 5
	}
	if c.Round.Retry.InitialInterval <= 0 {
		c.Round.Retry.InitialInterval = 20 * time.Millisecond
	}
	if c.Round.RecentLimitDefault <= 0 {
		c.Round.RecentLimitDefault = 10
	}
	if c.Round.RecentLimitMax <= 0 {
		c.Round.RecentLimitMax = 100
	}
	if c.Round.Sweeper.Interval <= 0 {
		c.Round.Sweeper.Interval = 15 * time.Second
	}
}

// Validate reports settings the application cannot start without.
func (c *Config) Validate() error {
	if c.Postgres.DSN == "" {
		return errors.New("postgres dsn is required (set DATABASE_URL)")
	}
	if c.NATS.Enabled && c.NATS.URL == "" {
		return errors.New("nats url is required when nats is enabled (set NATS_URL)")
	}
	if c.Round.RecentLimitDefault > c.Round.RecentLimitMax {
		return fmt.Errorf("round.recent_limit_default (%d) exceeds round.recent_limit_max (%d)",
			c.Round.RecentLimitDefault, c.Round.RecentLimitMax)
	}
	return nil
}
