package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Debug  bool `env:"DEBUG"`
	Syslog bool `env:"SYSLOG"`

	HttpAddr     string        `env:"HTTP_ADDR" envDefault:":8000"`
	AllowOrigins string        `env:"ALLOW_ORIGINS" envDefault:"*"`
	CookieSecure bool          `env:"COOKIE_SECURE"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	BodyLimit    int           `env:"BODY_LIMIT" envDefault:"4194304"`

	DbDriver  string `env:"DB_DRIVER" envDefault:"pg"`
	DbDsn     string `env:"DB_DSN,required,notEmpty"`
	DbVerbose bool   `env:"DB_VERBOSE"`

	SessionDb string `env:"SESSION_DB" envDefault:"kv.db"`
	MediaRoot string `env:"MEDIA_ROOT" envDefault:"./media"`
}

// Load reads the configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	switch cfg.DbDriver {
	case "pg", "sqlite":
	default:
		return Config{}, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DbDriver)
	}
	if cfg.BodyLimit <= 0 {
		return Config{}, fmt.Errorf("BODY_LIMIT must be positive, got %d", cfg.BodyLimit)
	}
	return cfg, nil
}
