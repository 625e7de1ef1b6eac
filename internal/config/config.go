package config

import (
	"os"
	"strconv"
	"time"
)

// Config is assembled from environment variables. Every field has a workable
// default except AuthSecret, which main validates before serving.
type Config struct {
	Port          string
	AllowedOrigin string

	// DatabaseURL selects the Postgres store; when empty the server runs on
	// the seeded in-memory store.
	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AuthSecret     string
	AccessTokenTTL time.Duration

	ReportCacheTTL time.Duration
	MetricsEnabled bool
}

func (c Config) Address() string {
	return ":" + c.Port
}

func Load() Config {
	return Config{
		Port:           getEnv("PORT", "8080"),
		AllowedOrigin:  getEnv("ALLOWED_ORIGIN", "*"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisDB:        getEnvInt("REDIS_DB", 0),
		AuthSecret:     getEnv("AUTH_SECRET", ""),
		AccessTokenTTL: time.Duration(getEnvInt("ACCESS_TOKEN_TTL_MINUTES", 60)) * time.Minute,
		ReportCacheTTL: time.Duration(getEnvInt("REPORT_CACHE_TTL_SECONDS", 30)) * time.Second,
		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
