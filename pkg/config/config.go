// Package config loads service configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/folderguard/folderguard/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Inventory     InventoryConfig
	RateLimit     RateLimitConfig
	Crumb         CrumbConfig
	Audit         AuditConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds role store database configuration
type DatabaseConfig struct {
	// Driver is "postgres" or "sqlite3"
	Driver string
	// URL is the postgres connection string or the sqlite file path
	URL string
}

// RedisConfig holds the read-through role cache configuration
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// InventoryConfig holds the folder/agent registry configuration
type InventoryConfig struct {
	Path  string
	Watch bool
}

// RateLimitConfig holds per-client rate limiting configuration
type RateLimitConfig struct {
	Enabled bool
	// Distributed shares limits across instances through Redis; it requires
	// the Redis cache to be enabled.
	Distributed bool
}

// CrumbConfig holds anti-forgery token configuration
type CrumbConfig struct {
	TTL time.Duration
	// SweepSchedule is a cron expression for the expired-crumb sweeper
	SweepSchedule string
}

// AuditConfig holds audit logging configuration
type AuditConfig struct {
	Enabled bool
	Path    string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("FOLDERGUARD_HOST", "0.0.0.0"),
			Port:            getEnv("FOLDERGUARD_PORT", "8080"),
			ReadTimeout:     getEnvDuration("FOLDERGUARD_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("FOLDERGUARD_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("FOLDERGUARD_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("FOLDERGUARD_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Driver: getEnv("FOLDERGUARD_DB_DRIVER", "postgres"),
			URL:    getEnv("FOLDERGUARD_DB_URL", ""),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("FOLDERGUARD_REDIS_ENABLED", false),
			Addr:     getEnv("FOLDERGUARD_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("FOLDERGUARD_REDIS_PASSWORD", ""),
			DB:       getEnvInt("FOLDERGUARD_REDIS_DB", 0),
		},
		Inventory: InventoryConfig{
			Path:  getEnv("FOLDERGUARD_INVENTORY_PATH", "inventory.yaml"),
			Watch: getEnvBool("FOLDERGUARD_INVENTORY_WATCH", true),
		},
		RateLimit: RateLimitConfig{
			Enabled:     getEnvBool("FOLDERGUARD_RATELIMIT_ENABLED", true),
			Distributed: getEnvBool("FOLDERGUARD_RATELIMIT_DISTRIBUTED", false),
		},
		Crumb: CrumbConfig{
			TTL:           getEnvDuration("FOLDERGUARD_CRUMB_TTL", 30*time.Minute),
			SweepSchedule: getEnv("FOLDERGUARD_CRUMB_SWEEP_SCHEDULE", "@every 5m"),
		},
		Audit: AuditConfig{
			Enabled: getEnvBool("FOLDERGUARD_AUDIT_ENABLED", false),
			Path:    getEnv("FOLDERGUARD_AUDIT_PATH", "/var/log/folderguard/audit.log"),
		},
		Observability: ObservabilityConfig{
			LogLevel:       parseLogLevel(getEnv("FOLDERGUARD_LOG_LEVEL", "info")),
			MetricsEnabled: getEnvBool("FOLDERGUARD_METRICS_ENABLED", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	switch c.Database.Driver {
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("database URL is required for postgres")
		}
	case "sqlite3":
		if c.Database.URL == "" {
			return fmt.Errorf("database path is required for sqlite3")
		}
	default:
		return fmt.Errorf("invalid database driver: %s (must be postgres or sqlite3)", c.Database.Driver)
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required when the cache is enabled")
	}
	if c.Inventory.Path == "" {
		return fmt.Errorf("inventory path is required")
	}
	if c.RateLimit.Distributed && !c.Redis.Enabled {
		return fmt.Errorf("distributed rate limiting requires redis to be enabled")
	}
	if c.Crumb.TTL <= 0 {
		return fmt.Errorf("crumb TTL must be positive")
	}
	if c.Audit.Enabled && c.Audit.Path == "" {
		return fmt.Errorf("audit log path is required when audit logging is enabled")
	}
	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
