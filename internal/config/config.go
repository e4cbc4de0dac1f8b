package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Session store drivers
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
	StoreMemory   = "memory"
)

// Config holds all configuration for the dashboard server and worker
type Config struct {
	// HTTP Server Configuration
	Server ServerConfig

	// Backend API Configuration
	Backend BackendConfig

	// Database Configuration (browser session registry)
	Database DatabaseConfig

	// Session Configuration
	Sessions SessionConfig

	// Redis Configuration
	Redis RedisConfig

	// Logging Configuration
	Logging LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	ListenAddr  string
	CORSOrigins []string
	RoutesFile  string // optional YAML guard rules, empty = built-in rules
}

// BackendConfig holds the remote plant API configuration
type BackendConfig struct {
	URL     string
	Timeout time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// SessionConfig holds browser session configuration
type SessionConfig struct {
	Store           string // sqlite, postgres, redis, memory
	PostgresURL     string
	Secret          string
	EphemeralSecret bool // true when SESSION_SECRET was not set
	TTL             time.Duration
	CookieName      string
	SecureCookie    bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Address string // Redis address (host:port)
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // json, console
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	cfg := &Config{
		Server: ServerConfig{
			ListenAddr:  getenv("LISTEN_ADDR", ":8080"),
			CORSOrigins: splitList(getenv("CORS_ORIGINS", "http://localhost:5173")),
			RoutesFile:  os.Getenv("ROUTES_FILE"),
		},
		Backend: BackendConfig{
			URL: getenv("API_URL", "http://localhost:8000"),
		},
		Database: DatabaseConfig{
			URL: getenv("DATABASE_URL", "plantdash.sqlite"),
		},
		Sessions: SessionConfig{
			Store:       strings.ToLower(getenv("SESSION_STORE", StoreSQLite)),
			PostgresURL: os.Getenv("POSTGRES_URL"),
			Secret:      os.Getenv("SESSION_SECRET"),
			CookieName:  getenv("SESSION_COOKIE", "plantdash_sid"),
		},
		Redis: RedisConfig{
			Address: getenv("REDIS_ADDRESS", "localhost:6379"),
		},
		Logging: LoggingConfig{
			Level:  getenv("LOG_LEVEL", "info"),
			Format: getenv("LOG_FORMAT", "json"),
		},
	}

	var err error
	if cfg.Backend.Timeout, err = time.ParseDuration(getenv("API_TIMEOUT", "30s")); err != nil {
		return nil, fmt.Errorf("invalid API_TIMEOUT: %w", err)
	}
	if cfg.Sessions.TTL, err = time.ParseDuration(getenv("SESSION_TTL", "168h")); err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
	}
	if cfg.Sessions.SecureCookie, err = strconv.ParseBool(getenv("SESSION_SECURE_COOKIE", "false")); err != nil {
		return nil, fmt.Errorf("invalid SESSION_SECURE_COOKIE: %w", err)
	}

	switch cfg.Sessions.Store {
	case StoreSQLite, StoreRedis, StoreMemory:
	case StorePostgres:
		if cfg.Sessions.PostgresURL == "" {
			return nil, fmt.Errorf("POSTGRES_URL is required when SESSION_STORE=postgres")
		}
	default:
		return nil, fmt.Errorf("invalid SESSION_STORE %q, must be one of: sqlite, postgres, redis, memory", cfg.Sessions.Store)
	}

	// Without a configured secret, cookies are only valid for this process
	if cfg.Sessions.Secret == "" {
		secretBytes := make([]byte, 32)
		if _, err := rand.Read(secretBytes); err != nil {
			return nil, fmt.Errorf("failed to generate session secret: %w", err)
		}
		cfg.Sessions.Secret = hex.EncodeToString(secretBytes)
		cfg.Sessions.EphemeralSecret = true
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
