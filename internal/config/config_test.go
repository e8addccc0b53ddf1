package config

import (
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Port:           "8000",
		Env:            "development",
		DatabaseURL:    "postgres://localhost:5432/medrec",
		RequestTimeout: 30 * time.Second,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid without ledger", func(*Config) {}, false},
		{
			"valid with ledger",
			func(c *Config) {
				c.LedgerBaseURL = "http://ledger:9000"
				c.LedgerUsername = "svc"
				c.LedgerPassword = "pw"
			},
			false,
		},
		{"missing database url", func(c *Config) { c.DatabaseURL = "" }, true},
		{
			"ledger url without credentials",
			func(c *Config) { c.LedgerBaseURL = "http://ledger:9000" },
			true,
		},
		{
			"ledger url with only username",
			func(c *Config) {
				c.LedgerBaseURL = "http://ledger:9000"
				c.LedgerUsername = "svc"
			},
			true,
		},
		{"zero timeout", func(c *Config) { c.RequestTimeout = 0 }, true},
		{"negative timeout", func(c *Config) { c.RequestTimeout = -time.Second }, true},
	}

	for _, tt := range tests {
		cfg := validConfig()
		tt.mutate(&cfg)
		if err := cfg.Validate(); (err != nil) != tt.wantErr {
			t.Errorf("%s: Validate() = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/medrec_test")
	t.Setenv("PORT", "9001")
	t.Setenv("REQUEST_TIMEOUT", "5s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9001" {
		t.Errorf("Port = %q, want 9001", cfg.Port)
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Errorf("RequestTimeout = %v, want 5s", cfg.RequestTimeout)
	}
	if !cfg.IsDev() {
		t.Error("default ENV should be development")
	}
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); err == nil {
		t.Error("expected Load to fail without DATABASE_URL")
	}
}
