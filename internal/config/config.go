// Package config loads battlewatch settings from BATTLEWATCH_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/whisper/battlewatch/internal/feed"
)

// Prefix is prepended to every variable name.
const Prefix = "BATTLEWATCH_"

// Seen store backends.
const (
	SeenMemory = "memory"
	SeenRedis  = "redis"
)

// Config is the full service configuration.
type Config struct {
	FeedEndpoint  string        `env:"FEED_ENDPOINT"`
	FeedTimeout   time.Duration `env:"FEED_TIMEOUT" envDefault:"15s"`
	TelegramToken string        `env:"TELEGRAM_TOKEN"`
	TelegramAPI   string        `env:"TELEGRAM_API_URL"`
	PollInterval  time.Duration `env:"POLL_INTERVAL" envDefault:"10s"`
	DirectoryDSN  string        `env:"DIRECTORY_DSN" envDefault:"postgres://localhost:5432/battlewatch?sslmode=disable"`
	AutoMigrate   bool          `env:"AUTO_MIGRATE" envDefault:"true"`
	SeenBackend   string        `env:"SEEN_BACKEND" envDefault:"memory"`
	SeenTTL       time.Duration `env:"SEEN_TTL" envDefault:"0s"`
	RedisAddr     string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	NATSURL       string        `env:"NATS_URL"`
	MetricsAddr   string        `env:"METRICS_ADDR" envDefault:":9109"`
	Timezone      string        `env:"TIMEZONE" envDefault:"Local"`
	LogLevel      string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat     string        `env:"LOG_FORMAT" envDefault:"json"`
	OTelEndpoint  string        `env:"OTEL_ENDPOINT"`
	OTelSample    float64       `env:"OTEL_SAMPLE_RATIO" envDefault:"1"`
}

// Load parses the environment into a Config and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: Prefix}); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}
	if cfg.FeedEndpoint == "" {
		cfg.FeedEndpoint = feed.DefaultConfig().Endpoint
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.TelegramToken == "" {
		errs = append(errs, errors.New(Prefix+"TELEGRAM_TOKEN is required"))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("%sPOLL_INTERVAL must be positive, got %s", Prefix, c.PollInterval))
	}
	if c.OTelSample < 0 || c.OTelSample > 1 {
		errs = append(errs, fmt.Errorf("%sOTEL_SAMPLE_RATIO must be within [0, 1], got %g", Prefix, c.OTelSample))
	}
	if c.SeenTTL < 0 {
		errs = append(errs, fmt.Errorf("%sSEEN_TTL must not be negative, got %s", Prefix, c.SeenTTL))
	}
	switch c.SeenBackend {
	case SeenMemory, SeenRedis:
	default:
		errs = append(errs, fmt.Errorf("%sSEEN_BACKEND must be %q or %q, got %q", Prefix, SeenMemory, SeenRedis, c.SeenBackend))
	}
	if !strings.HasPrefix(c.DirectoryDSN, "postgres://") &&
		!strings.HasPrefix(c.DirectoryDSN, "postgresql://") &&
		!strings.HasPrefix(c.DirectoryDSN, "sqlite://") {
		errs = append(errs, fmt.Errorf("%sDIRECTORY_DSN must use postgres:// or sqlite://", Prefix))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Location resolves Timezone. "Local" and "" select the host zone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%sTIMEZONE: %w", Prefix, err)
	}
	return loc, nil
}
