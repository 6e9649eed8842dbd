// Package config builds runtime configuration from environment variables
// so main stays lean.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full runtime configuration.
type Config struct {
	Server    ServerConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Consent   ConsentConfig
	RateLimit RateLimitConfig
}

// ServerConfig captures HTTP server level configuration.
type ServerConfig struct {
	Addr          string
	LogLevel      string
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string
	// PublicBaseURL is the externally reachable URL used in consent links.
	PublicBaseURL string
	// AuditBuffer sizes the async audit trail queue.
	AuditBuffer int
	// SeedDemo inserts a demo application on startup. Development only.
	SeedDemo bool
}

// PostgresConfig carries the filing store connection settings.
type PostgresConfig struct {
	DSN string
}

// RedisConfig carries the summary cache connection settings. An empty URL
// disables the cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	SummaryTTL   time.Duration
}

// KafkaConfig carries the event sink settings. Empty brokers disable
// publishing.
type KafkaConfig struct {
	Brokers     []string
	Topic       string
	AsyncBuffer int
}

// ConsentConfig tunes the consent request flow.
type ConsentConfig struct {
	TokenTTL time.Duration
}

// RateLimitConfig tunes the per-IP limit on the public consent response
// endpoint.
type RateLimitConfig struct {
	ConsentLimit  int
	ConsentWindow time.Duration
}

// FromEnv builds the configuration from environment variables.
func FromEnv() Config {
	return Config{
		Server: ServerConfig{
			Addr:          envOr("PROBATA_ADDR", ":8080"),
			LogLevel:      envOr("PROBATA_LOG_LEVEL", "info"),
			JWTSigningKey: envOr("PROBATA_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			JWTIssuer:     envOr("PROBATA_JWT_ISSUER", "probata"),
			JWTAudience:   envOr("PROBATA_JWT_AUDIENCE", "probata-staff"),
			PublicBaseURL: envOr("PROBATA_PUBLIC_BASE_URL", "http://localhost:8080"),
			AuditBuffer:   envInt("PROBATA_AUDIT_BUFFER", 256),
			SeedDemo:      envBool("PROBATA_SEED_DEMO", false),
		},
		Postgres: PostgresConfig{
			DSN: envOr("PROBATA_POSTGRES_DSN", ""),
		},
		Redis: RedisConfig{
			URL:          envOr("PROBATA_REDIS_URL", ""),
			PoolSize:     envInt("PROBATA_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("PROBATA_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("PROBATA_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("PROBATA_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("PROBATA_REDIS_WRITE_TIMEOUT", 3*time.Second),
			SummaryTTL:   envDuration("PROBATA_SUMMARY_TTL", 10*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers:     envList("PROBATA_KAFKA_BROKERS"),
			Topic:       envOr("PROBATA_KAFKA_TOPIC", "probata.filing.events"),
			AsyncBuffer: envInt("PROBATA_KAFKA_ASYNC_BUFFER", 256),
		},
		Consent: ConsentConfig{
			TokenTTL: envDuration("PROBATA_CONSENT_TOKEN_TTL", 14*24*time.Hour),
		},
		RateLimit: RateLimitConfig{
			ConsentLimit:  envInt("PROBATA_CONSENT_RATE_LIMIT", 20),
			ConsentWindow: envDuration("PROBATA_CONSENT_RATE_WINDOW", time.Minute),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// envList parses a comma-separated value, dropping blanks and repeated
// entries so a broker listed twice does not get two connections.
func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, part := range strings.Split(v, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}
