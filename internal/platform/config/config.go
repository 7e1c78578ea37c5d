// Package config assembles runtime configuration from the environment so
// main stays lean. Every backing service is optional: an empty URL or broker
// list disables that component and the server runs on in-memory fallbacks.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// Postgres configures the primary document store and the audit table.
type Postgres struct {
	URL string
}

// Redis configures the audit stream sink.
type Redis struct {
	URL          string
	Stream       string
	MaxLen       int64
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka configures the audit topic sink.
type Kafka struct {
	Brokers []string
	Topic   string
}

// JWT configures access-token signing and verification.
type JWT struct {
	SigningKey string
	Issuer     string
	Audience   string
	TTL        time.Duration
}

// Audit configures the asynchronous sink dispatcher.
type Audit struct {
	BufferSize int
}

// Config is the full runtime configuration.
type Config struct {
	Server   Server
	Postgres Postgres
	Redis    Redis
	Kafka    Kafka
	JWT      JWT
	Audit    Audit
}

// FromEnv builds the configuration from environment variables.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:            envOr("NUCLEO_ADDR", ":8080"),
			ShutdownTimeout: envDuration("NUCLEO_SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Postgres: Postgres{
			URL: os.Getenv("NUCLEO_POSTGRES_URL"),
		},
		Redis: Redis{
			URL:          os.Getenv("NUCLEO_REDIS_URL"),
			Stream:       envOr("NUCLEO_REDIS_STREAM", "nucleo:audit"),
			MaxLen:       envInt64("NUCLEO_REDIS_STREAM_MAXLEN", 100_000),
			PoolSize:     envInt("NUCLEO_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("NUCLEO_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDuration("NUCLEO_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("NUCLEO_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("NUCLEO_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers: envList("NUCLEO_KAFKA_BROKERS"),
			Topic:   envOr("NUCLEO_KAFKA_TOPIC", "nucleo.audit"),
		},
		JWT: JWT{
			// Development default, override in production.
			SigningKey: envOr("NUCLEO_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			Issuer:     envOr("NUCLEO_JWT_ISSUER", "nucleo"),
			Audience:   envOr("NUCLEO_JWT_AUDIENCE", "nucleo-api"),
			TTL:        envDuration("NUCLEO_JWT_TTL", time.Hour),
		},
		Audit: Audit{
			BufferSize: envInt("NUCLEO_AUDIT_BUFFER", 1024),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v, err := strconv.ParseInt(os.Getenv(key), 10, 64); err == nil {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}
