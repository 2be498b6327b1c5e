package config

import (
	"strings"
	"testing"
	"time"

	"github.com/whisper/battlewatch/internal/feed"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(Prefix+"TELEGRAM_TOKEN", "token")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PollInterval != 10*time.Second {
		t.Errorf("PollInterval = %s, want 10s", cfg.PollInterval)
	}
	if cfg.FeedEndpoint != feed.DefaultConfig().Endpoint {
		t.Errorf("FeedEndpoint = %q", cfg.FeedEndpoint)
	}
	if cfg.SeenBackend != SeenMemory || cfg.SeenTTL != 0 {
		t.Errorf("seen = %s/%s, want memory with no ttl", cfg.SeenBackend, cfg.SeenTTL)
	}
	if cfg.NATSURL != "" {
		t.Errorf("NATSURL = %q, want disabled by default", cfg.NATSURL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv(Prefix+"TELEGRAM_TOKEN", "token")
	t.Setenv(Prefix+"POLL_INTERVAL", "30s")
	t.Setenv(Prefix+"SEEN_BACKEND", "redis")
	t.Setenv(Prefix+"DIRECTORY_DSN", "sqlite:///tmp/subs.db")
	t.Setenv(Prefix+"TIMEZONE", "UTC")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PollInterval != 30*time.Second || cfg.SeenBackend != SeenRedis {
		t.Errorf("cfg = %+v", cfg)
	}
	loc, err := cfg.Location()
	if err != nil || loc != time.UTC {
		t.Errorf("Location = %v, %v; want UTC", loc, err)
	}
}

func TestLoadParseError(t *testing.T) {
	t.Setenv(Prefix+"TELEGRAM_TOKEN", "token")
	t.Setenv(Prefix+"POLL_INTERVAL", "often")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "parse env") {
		t.Fatalf("err = %v, want parse env error", err)
	}
}

func TestValidate(t *testing.T) {
	valid := Config{
		TelegramToken: "token",
		PollInterval:  time.Second,
		OTelSample:    1,
		SeenBackend:   SeenMemory,
		DirectoryDSN:  "sqlite://subs.db",
		Timezone:      "Local",
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid config: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing token", func(c *Config) { c.TelegramToken = "" }, "TELEGRAM_TOKEN"},
		{"zero interval", func(c *Config) { c.PollInterval = 0 }, "POLL_INTERVAL"},
		{"sample ratio above one", func(c *Config) { c.OTelSample = 1.5 }, "OTEL_SAMPLE_RATIO"},
		{"negative ttl", func(c *Config) { c.SeenTTL = -time.Second }, "SEEN_TTL"},
		{"unknown backend", func(c *Config) { c.SeenBackend = "disk" }, "SEEN_BACKEND"},
		{"bad dsn", func(c *Config) { c.DirectoryDSN = "mysql://x" }, "DIRECTORY_DSN"},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }, "TIMEZONE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want error mentioning %s", err, tt.want)
			}
		})
	}
}
