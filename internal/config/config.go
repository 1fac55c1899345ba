// Package config loads service configuration from an optional YAML file and
// the process environment. Environment values win over the file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"antroute/internal/opt"
	"antroute/internal/webhooks"
)

type Config struct {
	Port        string `yaml:"port"`
	DatabaseURL string `yaml:"database_url"`
	SQLitePath  string `yaml:"sqlite_path"`
	RedisURL    string `yaml:"redis_url"`
	DBMigrate   bool   `yaml:"db_migrate"`
	LogLevel    string `yaml:"log_level"`

	// RateRPS <= 0 disables rate limiting.
	RateRPS   float64 `yaml:"rate_rps"`
	RateBurst int     `yaml:"rate_burst"`

	// AuthMode is "dev" (tenant:role tokens or headers) or "hmac".
	AuthMode   string `yaml:"auth_mode"`
	AuthSecret string `yaml:"auth_secret"`

	Webhooks           []webhooks.Target `yaml:"webhooks"`
	WebhookMaxAttempts int               `yaml:"webhook_max_attempts"`

	Solver opt.Params `yaml:"solver"`
}

func Default() Config {
	return Config{
		Port:      "8080",
		DBMigrate: true,
		LogLevel:  "info",
		RateBurst: 20,
		AuthMode:  "dev",

		WebhookMaxAttempts: 10,
		Solver:             opt.DefaultParams(),
	}
}

// Load reads ANTROUTE_CONFIG if set, then applies environment overrides.
func Load() (Config, error) {
	cfg := Default()
	if path := os.Getenv("ANTROUTE_CONFIG"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("config %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return cfg, err
	}
	if err := cfg.Solver.Validate(); err != nil {
		return cfg, fmt.Errorf("config solver defaults: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("PORT", &cfg.Port)
	str("DATABASE_URL", &cfg.DatabaseURL)
	str("SQLITE_PATH", &cfg.SQLitePath)
	str("REDIS_URL", &cfg.RedisURL)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("AUTH_MODE", &cfg.AuthMode)
	str("AUTH_HMAC_SECRET", &cfg.AuthSecret)
	if v, ok := lookup("WEBHOOK_URL"); ok && v != "" {
		secret, _ := lookup("WEBHOOK_SECRET")
		cfg.Webhooks = append(cfg.Webhooks, webhooks.Target{URL: v, Secret: secret})
	}
	if v, ok := lookup("WEBHOOK_MAX_ATTEMPTS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config WEBHOOK_MAX_ATTEMPTS: %w", err)
		}
		cfg.WebhookMaxAttempts = n
	}
	if v, ok := lookup("DB_MIGRATE"); ok && v != "" {
		cfg.DBMigrate = v != "false"
	}
	if v, ok := lookup("RATE_RPS"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("config RATE_RPS: %w", err)
		}
		cfg.RateRPS = f
	}
	if v, ok := lookup("RATE_BURST"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config RATE_BURST: %w", err)
		}
		cfg.RateBurst = n
	}
	return nil
}

// Addr is the listen address.
func (c Config) Addr() string { return ":" + c.Port }
