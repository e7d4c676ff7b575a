package database

import (
	"fmt"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
)

const (
	TypeRedis  = "redis"
	TypeSQLite = "sqlite"

	defaultRedisDomain  = "localhost:6379"
	defaultSQLiteDomain = "file:gallery.db"
)

// ClientConfig holds the two external values the client is built from plus the backend type.
type ClientConfig struct {
	Type string `env:"DB_TYPE" envDefault:"redis"`
	// Secret is passed through untouched; a bad value only shows up on the first operation.
	Secret string `env:"DB_SECRET_KEY"`
	// Domain overrides the vendor default address of the backend.
	Domain string `env:"DB_DOMAIN"`
}

// LoadClientConfig reads .env (if present) and the process environment into a ClientConfig.
func LoadClientConfig() (ClientConfig, error) {
	// Load .env if available; ignore error if file does not exist
	_ = godotenv.Load()

	var cfg ClientConfig
	if err := env.Parse(&cfg); err != nil {
		return ClientConfig{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// ResolvedDomain returns the configured domain or the default of the selected backend.
func (c ClientConfig) ResolvedDomain() string {
	if c.Domain != "" {
		return c.Domain
	}
	switch c.Type {
	case TypeSQLite:
		return defaultSQLiteDomain
	default:
		return defaultRedisDomain
	}
}
