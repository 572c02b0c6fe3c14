package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_valid(t *testing.T) {
	cfg, err := Load("testdata/valid.yaml")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want 15s", cfg.Server.ReadTimeout)
	}
	if cfg.Identity.Issuer != "https://auth.scholarpress.example" {
		t.Errorf("Identity.Issuer = %q", cfg.Identity.Issuer)
	}
	if cfg.Identity.Audience != "quire-bff" {
		t.Errorf("Identity.Audience = %q", cfg.Identity.Audience)
	}
	if len(cfg.Identity.Algorithms) != 2 {
		t.Errorf("Identity.Algorithms = %v, want 2 entries", cfg.Identity.Algorithms)
	}

	svc, ok := cfg.Services["platform"]
	if !ok {
		t.Fatal("Services[platform] not found")
	}
	if svc.BaseURL != "https://platform.internal" {
		t.Errorf("platform.BaseURL = %q", svc.BaseURL)
	}
	if svc.CircuitBreaker.FailureThreshold != 5 {
		t.Errorf("platform.CircuitBreaker.FailureThreshold = %d, want 5", svc.CircuitBreaker.FailureThreshold)
	}
	if !svc.Retry.IdempotentOnly {
		t.Error("platform.Retry.IdempotentOnly = false, want true")
	}

	if cfg.Wizard.SessionTTL != 12*time.Hour {
		t.Errorf("Wizard.SessionTTL = %v, want 12h", cfg.Wizard.SessionTTL)
	}
	if cfg.Wizard.Store.Driver != "postgres" {
		t.Errorf("Wizard.Store.Driver = %q", cfg.Wizard.Store.Driver)
	}
	if cfg.Wizard.InflightGuard.Driver != "redis" {
		t.Errorf("Wizard.InflightGuard.Driver = %q", cfg.Wizard.InflightGuard.Driver)
	}
	if cfg.Media.BaseURL != "https://media.scholarpress.example" {
		t.Errorf("Media.BaseURL = %q", cfg.Media.BaseURL)
	}
}

func TestLoad_missing_file(t *testing.T) {
	_, err := Load("testdata/nonexistent.yaml")
	if err == nil {
		t.Fatal("Load() with missing file should return error")
	}
}

func TestLoad_missing_identity(t *testing.T) {
	_, err := Load("testdata/missing_identity.yaml")
	if err == nil {
		t.Fatal("Load() with missing identity should return error")
	}
}

func TestLoad_envOverrides(t *testing.T) {
	os.Setenv("QUIRE_SERVER_PORT", "7070")
	os.Setenv("QUIRE_WIZARD_STORE_DRIVER", "memory")
	defer os.Unsetenv("QUIRE_SERVER_PORT")
	defer os.Unsetenv("QUIRE_WIZARD_STORE_DRIVER")

	cfg, err := Load("testdata/valid.yaml")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want env override 7070", cfg.Server.Port)
	}
	if cfg.Wizard.Store.Driver != "memory" {
		t.Errorf("Wizard.Store.Driver = %q, want env override memory", cfg.Wizard.Store.Driver)
	}
}

func TestValidate_badDrivers(t *testing.T) {
	cfg := Defaults()
	cfg.Identity.Issuer = "https://auth.example"
	cfg.Identity.JWKSURL = "https://auth.example/jwks"
	cfg.Identity.Audience = "quire"
	cfg.Services = map[string]ServiceConfig{"platform": {BaseURL: "https://platform"}}

	cfg.Wizard.Store.Driver = "sqlite"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unsupported store driver")
	}

	cfg.Wizard.Store.Driver = "memory"
	cfg.Wizard.InflightGuard.Driver = "etcd"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unsupported guard driver")
	}
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.Server.Port != 8080 {
		t.Errorf("default Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Wizard.SessionTTL != 24*time.Hour {
		t.Errorf("default Wizard.SessionTTL = %v, want 24h", cfg.Wizard.SessionTTL)
	}
	if cfg.Wizard.Store.Driver != "memory" {
		t.Errorf("default store driver = %q, want memory", cfg.Wizard.Store.Driver)
	}
	if cfg.Observability.LogLevel != "info" {
		t.Errorf("default LogLevel = %q, want info", cfg.Observability.LogLevel)
	}
}
