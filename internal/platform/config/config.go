package config

import (
	"os"
	"strings"
	"time"
)

// Config captures process-level configuration. Empty PostgresDSN, RedisURL,
// or KafkaBrokers select the in-memory implementations so the server runs
// standalone in dev and tests.
type Config struct {
	Addr string

	JWTSigningKey   string
	JWTIssuer       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	PostgresDSN string
	RedisURL    string

	KafkaBrokers []string
}

// RedisConfig tunes the go-redis client pool.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	addr := os.Getenv("SLOTBOOK_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	signingKey := os.Getenv("JWT_SIGNING_KEY")
	if signingKey == "" {
		// Use a default for development - should be overridden in production
		signingKey = "dev-secret-key-change-in-production"
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		brokers = strings.Split(raw, ",")
	}

	return Config{
		Addr:            addr,
		JWTSigningKey:   signingKey,
		JWTIssuer:       "slotbook",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 30 * 24 * time.Hour,
		PostgresDSN:     os.Getenv("POSTGRES_DSN"),
		RedisURL:        os.Getenv("REDIS_URL"),
		KafkaBrokers:    brokers,
	}
}

// Redis derives a pool config with defaults suitable for a single instance.
func (c Config) Redis() RedisConfig {
	return RedisConfig{
		URL:          c.RedisURL,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}
