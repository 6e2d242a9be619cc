package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" || cfg.AuthMode != "dev" {
		t.Fatalf("defaults %+v", cfg)
	}
	if cfg.MaxEnrichLegs != 50 || cfg.EnrichRatePerSec != 5 {
		t.Fatalf("defaults %+v", cfg)
	}
}

func TestFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "port: \"9090\"\nauth_mode: hmac\nauth_secret: s3cr3t\nmax_enrich_legs: 10\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "9090" || cfg.AuthMode != "hmac" || cfg.AuthSecret != "s3cr3t" {
		t.Fatalf("config %+v", cfg)
	}
	if cfg.MaxEnrichLegs != 10 {
		t.Fatalf("config %+v", cfg)
	}
	if cfg.EnrichRatePerSec != 5 {
		t.Fatalf("unset fields keep defaults: %+v", cfg)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("port: \"9090\"\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("PORT", "7070")
	t.Setenv("NEXTBILLION_API_KEY", "nb-key")
	t.Setenv("ENRICH_RATE_PER_SEC", "2.5")
	t.Setenv("MAX_ENRICH_LEGS", "not-a-number")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "7070" || cfg.NextBillionAPIKey != "nb-key" {
		t.Fatalf("config %+v", cfg)
	}
	if cfg.EnrichRatePerSec != 2.5 {
		t.Fatalf("config %+v", cfg)
	}
	if cfg.MaxEnrichLegs != 50 {
		t.Fatalf("unparseable numeric overrides are ignored: %+v", cfg)
	}
}

func TestMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("missing file must error")
	}
}
