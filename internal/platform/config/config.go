package config

import (
	"os"
	"strconv"
	"time"
)

// RedisConfig carries connection settings for the token revocation list.
// An empty URL disables Redis; revocation then runs in process memory.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server captures process-level configuration.
type Server struct {
	Addr          string
	PostgresDSN   string
	RecordsDir    string
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string
	TokenTTL      time.Duration
	Redis         RedisConfig
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("BTOFLOW_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	tokenTTL := time.Hour
	if raw := os.Getenv("BTOFLOW_TOKEN_TTL_MINUTES"); raw != "" {
		if minutes, err := strconv.Atoi(raw); err == nil && minutes > 0 {
			tokenTTL = time.Duration(minutes) * time.Minute
		}
	}

	return Server{
		Addr:          addr,
		PostgresDSN:   os.Getenv("BTOFLOW_POSTGRES_DSN"),
		RecordsDir:    os.Getenv("BTOFLOW_RECORDS_DIR"),
		JWTSigningKey: jwtSigningKey,
		JWTIssuer:     envOr("BTOFLOW_JWT_ISSUER", "btoflow"),
		JWTAudience:   envOr("BTOFLOW_JWT_AUDIENCE", "btoflow-api"),
		TokenTTL:      tokenTTL,
		Redis: RedisConfig{
			URL:          os.Getenv("BTOFLOW_REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
