package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Redis configuration
	Redis RedisConfig

	// HTTP query surface
	API APIConfig

	// Logging configuration
	Log LogConfig

	// Batch source configuration
	Source SourceConfig

	// Pipeline / feature parameters
	Pipeline PipelineConfig
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host            string        `envconfig:"DB_HOST" default:"localhost"`
	Port            int           `envconfig:"DB_PORT" default:"5432"`
	Name            string        `envconfig:"DB_NAME" default:"warehouse"`
	User            string        `envconfig:"DB_USER" default:"warehouse"`
	Password        string        `envconfig:"DB_PASSWORD" default:"warehouse"`
	SSLMode         string        `envconfig:"DB_SSLMODE" default:"disable"`
	MaxOpenConns    int           `envconfig:"DB_POOL_SIZE" default:"5"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
}

// RedisConfig holds query cache settings. An empty host disables caching.
type RedisConfig struct {
	Host     string        `envconfig:"REDIS_HOST" default:"localhost"`
	Port     string        `envconfig:"REDIS_PORT" default:"6379"`
	Password string        `envconfig:"REDIS_PASSWORD"`
	CacheTTL time.Duration `envconfig:"CACHE_TTL" default:"10m"`
}

// APIConfig holds HTTP server settings
type APIConfig struct {
	Host               string        `envconfig:"API_HOST" default:"0.0.0.0"`
	Port               int           `envconfig:"API_PORT" default:"8000"`
	RateLimitPerMinute int           `envconfig:"RATE_LIMIT_PER_MINUTE" default:"100"`
	ShutdownTimeout    time.Duration `envconfig:"API_SHUTDOWN_TIMEOUT" default:"10s"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"` // json | console
}

// SourceConfig describes where raw batches are read from
type SourceConfig struct {
	DataDir string `envconfig:"DATA_DIR" default:"data"`
	Format  string `envconfig:"SOURCE_FORMAT" default:"csv"` // csv | parquet
}

// PipelineConfig holds validation thresholds and indicator parameters
type PipelineConfig struct {
	BatchSize  int `envconfig:"BATCH_SIZE" default:"10000"`
	MaxWorkers int `envconfig:"MAX_WORKERS" default:"4"`

	// Data quality thresholds
	MinVolume         int64   `envconfig:"MIN_VOLUME" default:"100"`
	MaxPriceChangePct float64 `envconfig:"MAX_PRICE_CHANGE_PCT" default:"50"`

	// Feature engineering parameters
	RSIPeriods            []int   `envconfig:"RSI_PERIODS" default:"14,28"`
	AvgVolumeWindow       int     `envconfig:"AVG_VOLUME_WINDOW" default:"20"`
	VWAPMode              string  `envconfig:"VWAP_MODE" default:"session"` // session | rolling
	VWAPWindow            int     `envconfig:"VWAP_WINDOW" default:"20"`
	MarketTimezone        string  `envconfig:"MARKET_TIMEZONE" default:"UTC"`
	MinCorrelationOverlap int     `envconfig:"MIN_CORRELATION_OVERLAP" default:"20"`
	SignalThreshold       float64 `envconfig:"SIGNAL_THRESHOLD" default:"0.3"`

	// Scheduled reloads in serve mode; zero disables them
	Interval time.Duration `envconfig:"PIPELINE_INTERVAL" default:"0s"`
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	// Load .env file if exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate rejects settings the pipeline cannot run with
func (c *Config) Validate() error {
	p := c.Pipeline
	if p.BatchSize <= 0 {
		return fmt.Errorf("BATCH_SIZE must be positive, got %d", p.BatchSize)
	}
	if p.MaxWorkers <= 0 {
		return fmt.Errorf("MAX_WORKERS must be positive, got %d", p.MaxWorkers)
	}
	if len(p.RSIPeriods) == 0 || len(p.RSIPeriods) > 2 {
		return fmt.Errorf("RSI_PERIODS must list one or two periods, got %v", p.RSIPeriods)
	}
	for _, period := range p.RSIPeriods {
		if period < 2 {
			return fmt.Errorf("RSI period must be at least 2, got %d", period)
		}
	}
	if p.AvgVolumeWindow <= 0 || p.VWAPWindow <= 0 {
		return fmt.Errorf("volume and VWAP windows must be positive")
	}
	switch strings.ToLower(p.VWAPMode) {
	case "session", "rolling":
	default:
		return fmt.Errorf("VWAP_MODE must be session or rolling, got %q", p.VWAPMode)
	}
	if _, err := time.LoadLocation(p.MarketTimezone); err != nil {
		return fmt.Errorf("invalid MARKET_TIMEZONE %q: %w", p.MarketTimezone, err)
	}
	if p.MinCorrelationOverlap < 2 {
		return fmt.Errorf("MIN_CORRELATION_OVERLAP must be at least 2, got %d", p.MinCorrelationOverlap)
	}
	if p.SignalThreshold <= 0 || p.SignalThreshold > 1 {
		return fmt.Errorf("SIGNAL_THRESHOLD must be in (0, 1], got %v", p.SignalThreshold)
	}
	switch strings.ToLower(c.Source.Format) {
	case "csv", "parquet":
	default:
		return fmt.Errorf("SOURCE_FORMAT must be csv or parquet, got %q", c.Source.Format)
	}
	return nil
}

// DSN returns the PostgreSQL connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// Location returns the market timezone used for session and date boundaries
func (p PipelineConfig) Location() *time.Location {
	loc, err := time.LoadLocation(p.MarketTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
