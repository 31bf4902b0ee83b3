package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the application
type Config struct {
	Port           string
	AllowedOrigins []string
	LogLevel       string
	Environment    string

	// DatabasePath is the DuckDB database file; ":memory:" gives a fresh
	// in-memory store (used by tests).
	DatabasePath string

	// RedisURL is optional; when empty the geo resolver caches in-process.
	RedisURL string

	// GeoAPIURL is the ip-api style endpoint queried per client address.
	GeoAPIURL  string
	GeoTimeout time.Duration

	JWTSecret     string
	AdminPassword string

	// IdleWindow is the inactivity threshold after which an active session
	// is considered ended.
	IdleWindow        time.Duration
	ReaperInterval    time.Duration
	BroadcastInterval time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Port:              getEnv("PORT", "8080"),
		AllowedOrigins:    parseOrigins(getEnv("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:4321")),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		Environment:       getEnv("ENVIRONMENT", "production"),
		DatabasePath:      getEnv("DATABASE_PATH", "data/analytics.db"),
		RedisURL:          getEnv("REDIS_URL", ""),
		GeoAPIURL:         getEnv("GEO_API_URL", "http://ip-api.com/json"),
		GeoTimeout:        getDurationEnv("GEO_TIMEOUT_SECONDS", 3*time.Second),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		AdminPassword:     getEnv("ADMIN_PASSWORD", ""),
		IdleWindow:        getDurationEnv("IDLE_WINDOW_SECONDS", 60*time.Second),
		ReaperInterval:    getDurationEnv("REAPER_INTERVAL_SECONDS", 30*time.Second),
		BroadcastInterval: getDurationEnv("BROADCAST_INTERVAL_SECONDS", 10*time.Second),
	}, nil
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getDurationEnv reads a duration expressed in whole seconds
func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return fallback
}

// parseOrigins parses comma-separated origins into a slice
func parseOrigins(origins string) []string {
	if origins == "" {
		return []string{}
	}

	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))

	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
