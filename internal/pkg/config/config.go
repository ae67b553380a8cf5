package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"github.com/user/log-shipper/internal/domain"
)

// Config holds the shipper configuration. ServerURL is the only
// required field; everything else carries a default.
type Config struct {
	ServerURL      string        `env:"SHIPPER_SERVER_URL"`
	APIKey         string        `env:"SHIPPER_API_KEY"`
	BatchSize      int           `env:"SHIPPER_BATCH_SIZE" envDefault:"10"`
	FlushInterval  time.Duration `env:"SHIPPER_FLUSH_INTERVAL" envDefault:"5s"`
	QueueSizeLimit int           `env:"SHIPPER_QUEUE_SIZE_LIMIT" envDefault:"1000"`
	Timeout        time.Duration `env:"SHIPPER_TIMEOUT" envDefault:"30s"`
	RetryAttempts  int           `env:"SHIPPER_RETRY_ATTEMPTS" envDefault:"3"`
	RetryDelay     time.Duration `env:"SHIPPER_RETRY_DELAY" envDefault:"1s"`
	Compress       bool          `env:"SHIPPER_COMPRESS" envDefault:"false"`
	CircuitBreaker bool          `env:"SHIPPER_CIRCUIT_BREAKER" envDefault:"false"`
	AppName        string        `env:"SHIPPER_APP_NAME" envDefault:"app"`
	MinLevel       string        `env:"SHIPPER_MIN_LEVEL" envDefault:"info"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	MetricsAddr    string        `env:"METRICS_ADDR" envDefault:":9091"`
}

// Load reads the shipper configuration from environment variables.
func Load() (*Config, error) {
	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the invariants the delivery pipeline relies on.
// Violations are construction-time errors, never runtime ones.
func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return &domain.ConfigError{Reason: "server url is required"}
	}
	if c.BatchSize <= 0 {
		return &domain.ConfigError{Reason: "batch size must be positive"}
	}
	if c.QueueSizeLimit < c.BatchSize {
		return &domain.ConfigError{Reason: "queue size limit must be at least the batch size"}
	}
	if c.FlushInterval <= 0 {
		return &domain.ConfigError{Reason: "flush interval must be positive"}
	}
	if c.Timeout <= 0 {
		return &domain.ConfigError{Reason: "timeout must be positive"}
	}
	if c.RetryAttempts < 0 {
		return &domain.ConfigError{Reason: "retry attempts must not be negative"}
	}
	if c.RetryDelay <= 0 {
		return &domain.ConfigError{Reason: "retry delay must be positive"}
	}
	return nil
}

// CollectorConfig holds configuration for the dev collector binary.
type CollectorConfig struct {
	Addr         string `env:"COLLECTOR_ADDR" envDefault:":8080"`
	APIKey       string `env:"COLLECTOR_API_KEY"`
	PostgresURL  string `env:"POSTGRES_URL,required"`
	RedisAddr    string `env:"REDIS_ADDR"`
	MaxEventSize int64  `env:"MAX_EVENT_SIZE_BYTES" envDefault:"1048576"` // 1MB
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
}

// LoadCollector reads the collector configuration from environment variables.
func LoadCollector() (*CollectorConfig, error) {
	_ = godotenv.Load()

	cfg := &CollectorConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
