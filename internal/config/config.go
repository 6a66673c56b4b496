// internal/config/config.go
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"fluencr-service/internal/pkg/jwt"
)

// Store backends.
const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type AppConfig struct {
	// Server
	Env         string
	HTTPAddr    string
	CORSOrigins []string

	// Storage
	StoreBackend    string
	RedisAddr       string
	RedisPass       string
	RedisDB         int
	RedisPoolSize   int
	DatabaseURL     string
	StoreTimeout    time.Duration
	MaxWriteRetries int

	// JWT
	JWT jwt.Config

	// Billing
	StripeWebhookSecret string

	// Features
	TrialDays         int
	AIRateLimit       int
	AIRateLimitWindow time.Duration
	PolicyFile        string
}

// Load loads environment variables into AppConfig.
func Load() AppConfig {
	return AppConfig{
		Env:         getEnv("APP_ENV", "production"),
		HTTPAddr:    getEnv("HTTP_ADDR", ":8000"),
		CORSOrigins: getEnvSlice("CORS_ORIGINS", []string{"http://localhost:5173"}),

		StoreBackend:    strings.ToLower(getEnv("STORE_BACKEND", BackendRedis)),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass:       getEnv("REDIS_PASS", ""),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		RedisPoolSize:   getEnvInt("REDIS_POOL_SIZE", 20),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		StoreTimeout:    getEnvDuration("STORE_TIMEOUT", 3*time.Second),
		MaxWriteRetries: getEnvInt("MAX_WRITE_RETRIES", 3),

		JWT: jwt.Config{
			Mode:          strings.ToLower(getEnv("JWT_MODE", jwt.ModeHMAC)),
			Secret:        getEnv("JWT_SECRET", ""),
			PubPath:       getEnv("JWT_PUBLIC_KEY_PATH", "/app/secrets/jwt_public.pem"),
			Issuer:        getEnv("JWT_ISSUER", ""),
			Audience:      getEnv("JWT_AUDIENCE", "authenticated"),
			OIDCIssuerURL: getEnv("OIDC_ISSUER_URL", ""),
			OIDCClientID:  getEnv("OIDC_CLIENT_ID", ""),
		},

		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),

		TrialDays:         getEnvInt("TRIAL_DAYS", 7),
		AIRateLimit:       getEnvInt("AI_RATE_LIMIT", 10),
		AIRateLimitWindow: getEnvDuration("AI_RATE_LIMIT_WINDOW", time.Minute),
		PolicyFile:        getEnv("POLICY_FILE", ""),
	}
}

func (c AppConfig) IsDevelopment() bool {
	return c.Env == "development"
}

// --- Helper functions ---

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
