package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig
	HTTP     HTTPConfig
	GRPC     GRPCConfig
	Auth     AuthConfig
	Log      LogConfig
}

// DatabaseConfig contains database-related settings.
type DatabaseConfig struct {
	Path string // SQLite database file path
}

// HTTPConfig contains REST server settings.
type HTTPConfig struct {
	Address string // REST listen address (e.g., ":3000")
}

// GRPCConfig contains settings of the gRPC health endpoint.
type GRPCConfig struct {
	Address string // gRPC server listen address (e.g., ":50051")
}

// AuthConfig contains authentication settings.
type AuthConfig struct {
	JWTSecret             string        // JWT signing secret
	TokenTTL              time.Duration // lifetime of issued session tokens
	AdminRegistrationCode string        // code required to self-register as admin
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level slog.Level
}

const devJWTSecret = "dev-secret-change-me"

// Load loads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg, err := load(getEnv("JWT_SECRET", ""))
	if err != nil {
		return nil, err
	}

	// Validate critical settings
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is not set; required for production")
	}

	return cfg, nil
}

// LoadWithDefaults is like Load but uses a safe default for JWT_SECRET in development.
// WARNING: Only use in development! Use Load() in production.
func LoadWithDefaults() (*Config, error) {
	return load(getEnv("JWT_SECRET", devJWTSecret))
}

func load(secret string) (*Config, error) {
	ttlHours, err := getEnvInt("TOKEN_TTL_HOURS", 8)
	if err != nil {
		return nil, err
	}
	if ttlHours <= 0 {
		return nil, fmt.Errorf("TOKEN_TTL_HOURS must be positive, got %d", ttlHours)
	}
	level, err := parseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	return &Config{
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "library.db"),
		},
		HTTP: HTTPConfig{
			Address: getEnv("HTTP_ADDRESS", ":3000"),
		},
		GRPC: GRPCConfig{
			Address: getEnv("GRPC_ADDRESS", ":50051"),
		},
		Auth: AuthConfig{
			JWTSecret:             secret,
			TokenTTL:              time.Duration(ttlHours) * time.Hour,
			AdminRegistrationCode: getEnv("ADMIN_REGISTRATION_CODE", "ADMIN123"),
		},
		Log: LogConfig{Level: level},
	}, nil
}

// getEnv retrieves an environment variable with a default fallback.
func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

// getEnvInt retrieves an environment variable as an integer with a default fallback.
func getEnvInt(key string, defaultVal int) (int, error) {
	if value, exists := os.LookupEnv(key); exists {
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid integer for %s: %w", key, err)
		}
		return intVal, nil
	}
	return defaultVal, nil
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q: %w", s, err)
	}
	return l, nil
}

// String returns a string representation of the config (sensitive values are masked).
func (c *Config) String() string {
	return fmt.Sprintf("Config{DB: %s, HTTP: %s, gRPC: %s, TokenTTL: %s, Log: %s, Auth: *** (masked) ***}",
		c.Database.Path, c.HTTP.Address, c.GRPC.Address, c.Auth.TokenTTL, c.Log.Level)
}
