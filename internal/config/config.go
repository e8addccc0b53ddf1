package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port           string        `mapstructure:"PORT"`
	Env            string        `mapstructure:"ENV"`
	DatabaseURL    string        `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32         `mapstructure:"DB_MIN_CONNS"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	SecureCookies  bool          `mapstructure:"SECURE_COOKIES"`
	LedgerBaseURL  string        `mapstructure:"LEDGER_BASE_URL"`
	LedgerUsername string        `mapstructure:"LEDGER_USERNAME"`
	LedgerPassword string        `mapstructure:"LEDGER_PASSWORD"`
	CORSOrigins    []string      `mapstructure:"CORS_ORIGINS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("SECURE_COOKIES", false)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("REQUEST_TIMEOUT")
	v.BindEnv("SECURE_COOKIES")
	v.BindEnv("LEDGER_BASE_URL")
	v.BindEnv("LEDGER_USERNAME")
	v.BindEnv("LEDGER_PASSWORD")
	v.BindEnv("CORS_ORIGINS")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the configuration is safe to run. DATABASE_URL is
// always required. When a ledger base URL is configured its credentials must
// be present too, otherwise every record creation would fail at the
// authentication step.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.LedgerBaseURL != "" && (c.LedgerUsername == "" || c.LedgerPassword == "") {
		return fmt.Errorf("LEDGER_USERNAME and LEDGER_PASSWORD are required when LEDGER_BASE_URL is set")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	return nil
}
