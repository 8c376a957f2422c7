// Package config loads runtime settings from an optional YAML file with
// environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sentinelsoc/sentry/internal/model"
)

// Config is the full runtime configuration. Interval fields are plain
// seconds/milliseconds so they read naturally in YAML and env vars.
type Config struct {
	HTTPAddr string `yaml:"http_addr"`
	NATSURL  string `yaml:"nats_url"`
	LogLevel string `yaml:"log_level"`

	MaxEvents int `yaml:"max_events"`
	MaxAlerts int `yaml:"max_alerts"`

	Mode                 string `yaml:"mode"`
	SyntheticIntervalSec int    `yaml:"synthetic_interval_sec"`
	LiveIntervalSec      int    `yaml:"live_interval_sec"`
	CooldownSec          int    `yaml:"cooldown_sec"`
	StaggerMs            int    `yaml:"stagger_ms"`
	FetchTimeoutSec      int    `yaml:"fetch_timeout_sec"`
	DedupeCap            int    `yaml:"dedupe_cap"`

	URLhausURL     string `yaml:"urlhaus_url"`
	URLhausLimit   int    `yaml:"urlhaus_limit"`
	BlocklistURL   string `yaml:"blocklist_url"`
	BlocklistLimit int    `yaml:"blocklist_limit"`

	// ThreatIndexFile points at a YAML indicator table overriding the
	// built-in reference set.
	ThreatIndexFile string `yaml:"threat_index_file"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		HTTPAddr:             ":8080",
		LogLevel:             "info",
		MaxEvents:            100,
		MaxAlerts:            50,
		Mode:                 "synthetic",
		SyntheticIntervalSec: 3,
		LiveIntervalSec:      60,
		CooldownSec:          30,
		StaggerMs:            500,
		FetchTimeoutSec:      15,
		DedupeCap:            4096,
		URLhausURL:           "https://urlhaus-api.abuse.ch/v1/urls/recent/limit/10/",
		URLhausLimit:         10,
		BlocklistURL:         "https://lists.blocklist.de/lists/all.txt",
		BlocklistLimit:       10,
	}
}

// Load builds the configuration: defaults, then the YAML file at path
// (skipped when path is empty), then environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.HTTPAddr = getEnv("SENTRY_HTTP_ADDR", c.HTTPAddr)
	c.NATSURL = getEnv("SENTRY_NATS_URL", c.NATSURL)
	c.LogLevel = getEnv("SENTRY_LOG_LEVEL", c.LogLevel)
	c.Mode = getEnv("SENTRY_MODE", c.Mode)
	c.MaxEvents = getEnvInt("SENTRY_MAX_EVENTS", c.MaxEvents)
	c.MaxAlerts = getEnvInt("SENTRY_MAX_ALERTS", c.MaxAlerts)
	c.SyntheticIntervalSec = getEnvInt("SENTRY_SYNTHETIC_INTERVAL_SEC", c.SyntheticIntervalSec)
	c.LiveIntervalSec = getEnvInt("SENTRY_LIVE_INTERVAL_SEC", c.LiveIntervalSec)
	c.CooldownSec = getEnvInt("SENTRY_COOLDOWN_SEC", c.CooldownSec)
	c.StaggerMs = getEnvInt("SENTRY_STAGGER_MS", c.StaggerMs)
	c.FetchTimeoutSec = getEnvInt("SENTRY_FETCH_TIMEOUT_SEC", c.FetchTimeoutSec)
	c.DedupeCap = getEnvInt("SENTRY_DEDUPE_CAP", c.DedupeCap)
	c.URLhausURL = getEnv("SENTRY_URLHAUS_URL", c.URLhausURL)
	c.URLhausLimit = getEnvInt("SENTRY_URLHAUS_LIMIT", c.URLhausLimit)
	c.BlocklistURL = getEnv("SENTRY_BLOCKLIST_URL", c.BlocklistURL)
	c.BlocklistLimit = getEnvInt("SENTRY_BLOCKLIST_LIMIT", c.BlocklistLimit)
	c.ThreatIndexFile = getEnv("SENTRY_THREAT_INDEX_FILE", c.ThreatIndexFile)
}

func (c *Config) validate() error {
	if c.MaxEvents <= 0 || c.MaxAlerts <= 0 {
		return fmt.Errorf("retention caps must be positive (events=%d alerts=%d)", c.MaxEvents, c.MaxAlerts)
	}
	if c.SyntheticIntervalSec <= 0 || c.LiveIntervalSec <= 0 {
		return fmt.Errorf("scheduler intervals must be positive")
	}
	if c.Mode != "synthetic" && c.Mode != "live" {
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	return nil
}

// SyntheticInterval returns the synthetic tick period.
func (c *Config) SyntheticInterval() time.Duration {
	return time.Duration(c.SyntheticIntervalSec) * time.Second
}

// LiveInterval returns the live fetch-cycle period.
func (c *Config) LiveInterval() time.Duration {
	return time.Duration(c.LiveIntervalSec) * time.Second
}

// Cooldown returns the minimum spacing between fetch cycles.
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.CooldownSec) * time.Second
}

// Stagger returns the inter-item insertion delay for live batches.
func (c *Config) Stagger() time.Duration {
	return time.Duration(c.StaggerMs) * time.Millisecond
}

// FetchTimeout returns the per-feed fetch deadline.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSec) * time.Second
}

// LoadThreatIndex reads a YAML indicator table (indicator string to
// reputation record). An empty path returns nil, meaning use the
// built-in table.
func LoadThreatIndex(path string) (map[string]model.ThreatIndicator, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading threat index file: %w", err)
	}
	var table map[string]model.ThreatIndicator
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parsing threat index file: %w", err)
	}
	return table, nil
}

// getEnv gets an environment variable with a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an environment variable as an integer with a default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
