// Package config resolves service configuration from defaults, an optional
// YAML file, and the environment, in increasing precedence. Provider keys
// live only here and in per-request options; nothing else in the codebase
// reads the environment.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port              string  `yaml:"port"`
	DatabaseURL       string  `yaml:"database_url"`
	RedisURL          string  `yaml:"redis_url"`
	NextBillionAPIKey string  `yaml:"nextbillion_api_key"`
	TomTomAPIKey      string  `yaml:"tomtom_api_key"`
	AuthMode          string  `yaml:"auth_mode"`
	AuthSecret        string  `yaml:"auth_secret"`
	MaxEnrichLegs     int     `yaml:"max_enrich_legs"`
	EnrichRatePerSec  float64 `yaml:"enrich_rate_per_sec"`
}

func Default() Config {
	return Config{
		Port:             "8080",
		AuthMode:         "dev",
		MaxEnrichLegs:    50,
		EnrichRatePerSec: 5,
	}
}

// Load reads the file at path when non-empty, then applies environment
// overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setStr := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setStr(&cfg.Port, "PORT")
	setStr(&cfg.DatabaseURL, "DATABASE_URL")
	setStr(&cfg.RedisURL, "REDIS_URL")
	setStr(&cfg.NextBillionAPIKey, "NEXTBILLION_API_KEY")
	setStr(&cfg.TomTomAPIKey, "TOMTOM_API_KEY")
	setStr(&cfg.AuthMode, "AUTH_MODE")
	setStr(&cfg.AuthSecret, "AUTH_SECRET")
	if v := os.Getenv("MAX_ENRICH_LEGS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxEnrichLegs = n
		}
	}
	if v := os.Getenv("ENRICH_RATE_PER_SEC"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.EnrichRatePerSec = f
		}
	}
}
