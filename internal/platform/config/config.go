package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures process-level configuration for the registry server.
type Config struct {
	Addr string

	// PublicBaseURL is the externally visible root of this registry, used
	// to build self links in feeds.
	PublicBaseURL string

	// DatabaseURL is the Postgres DSN. Empty means the in-memory store,
	// for local development only.
	DatabaseURL string

	// RedisURL enables the GeoIP resolution cache when set.
	RedisURL string

	// KafkaBrokers enables the audit event publisher when non-empty.
	KafkaBrokers []string
	AuditTopic   string

	// AdminTokenHash is the bcrypt hash of the operator token exchanged for
	// admin JWTs. Admin routes are disabled when empty.
	AdminTokenHash string
	JWTSigningKey  string

	// ServiceRadiusKm bounds how far away a library may be and still count
	// as "nearby".
	ServiceRadiusKm float64

	// FetchTimeout bounds each outbound catalog/auth document fetch.
	FetchTimeout time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	cfg := Config{
		Addr:            envOr("LIBREGISTRY_ADDR", ":8080"),
		PublicBaseURL:   envOr("LIBREGISTRY_PUBLIC_BASE_URL", "http://localhost:8080"),
		DatabaseURL:     os.Getenv("LIBREGISTRY_DATABASE_URL"),
		RedisURL:        os.Getenv("LIBREGISTRY_REDIS_URL"),
		AuditTopic:      envOr("LIBREGISTRY_AUDIT_TOPIC", "libregistry.audit"),
		AdminTokenHash:  os.Getenv("LIBREGISTRY_ADMIN_TOKEN_HASH"),
		JWTSigningKey:   envOr("LIBREGISTRY_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		ServiceRadiusKm: 150,
		FetchTimeout:    20 * time.Second,
	}

	if brokers := os.Getenv("LIBREGISTRY_KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}
	if radius := os.Getenv("LIBREGISTRY_SERVICE_RADIUS_KM"); radius != "" {
		if parsed, err := strconv.ParseFloat(radius, 64); err == nil && parsed > 0 {
			cfg.ServiceRadiusKm = parsed
		}
	}
	if timeout := os.Getenv("LIBREGISTRY_FETCH_TIMEOUT"); timeout != "" {
		if parsed, err := time.ParseDuration(timeout); err == nil && parsed > 0 {
			cfg.FetchTimeout = parsed
		}
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
