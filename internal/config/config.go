package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// JWT configuration
	JWT JWTConfig

	// Rate limiting configuration
	RateLimit RateLimitConfig

	// WebSocket gateway configuration
	WebSocket WebSocketConfig

	// Reconnecting client configuration
	Reconnect ReconnectConfig

	// Logging configuration
	Logging LoggingConfig

	// Application metadata
	App AppConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	MigrationsPath  string
	AutoMigrate     bool
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret         string
	AccessTokenTTL time.Duration
	Audience       string // empty disables the aud check
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	BurstSize         int
}

// WebSocketConfig holds WebSocket configuration
type WebSocketConfig struct {
	AllowedOrigins    []string
	ReadBufferSize    int
	WriteBufferSize   int
	MessagesPerSecond float64 // inbound chat frames per connection
	MessageBurst      int
}

// ReconnectConfig holds the settings of the reconnecting chat client
type ReconnectConfig struct {
	URL              string
	Token            string
	ConversationID   string
	HandshakeTimeout time.Duration
	WriteWait        time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string
	Version     string
	Environment string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	loadDotEnv()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", ":8080"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getDurationOrDefault("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    getIntOrDefault("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getIntOrDefault("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDurationOrDefault("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime: getDurationOrDefault("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			MigrationsPath:  getEnvOrDefault("DB_MIGRATIONS_PATH", "migrations"),
			AutoMigrate:     getBoolOrDefault("DB_AUTO_MIGRATE", true),
		},
		JWT: JWTConfig{
			Secret:         os.Getenv("JWT_SECRET"),
			AccessTokenTTL: getDurationOrDefault("JWT_ACCESS_TOKEN_TTL", 1*time.Hour),
			Audience:       os.Getenv("JWT_AUDIENCE"),
		},
		RateLimit: RateLimitConfig{
			Enabled:           getBoolOrDefault("RATE_LIMIT_ENABLED", true),
			RequestsPerSecond: getFloatOrDefault("RATE_LIMIT_RPS", 10),
			BurstSize:         getIntOrDefault("RATE_LIMIT_BURST", 20),
		},
		WebSocket: WebSocketConfig{
			AllowedOrigins:    getStringSliceOrDefault("WS_ALLOWED_ORIGINS", []string{}),
			ReadBufferSize:    getIntOrDefault("WS_READ_BUFFER_SIZE", 1024),
			WriteBufferSize:   getIntOrDefault("WS_WRITE_BUFFER_SIZE", 1024),
			MessagesPerSecond: getFloatOrDefault("WS_MESSAGES_PER_SECOND", 5),
			MessageBurst:      getIntOrDefault("WS_MESSAGE_BURST", 10),
		},
		Reconnect: loadReconnectConfig(),
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
		App: AppConfig{
			Name:        getEnvOrDefault("APP_NAME", "portal-realtime"),
			Version:     getEnvOrDefault("APP_VERSION", "dev"),
			Environment: getEnvOrDefault("APP_ENV", "development"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// problems collects configuration errors and reports them together.
type problems []string

func (p *problems) check(ok bool, format string, args ...any) {
	if !ok {
		*p = append(*p, fmt.Sprintf(format, args...))
	}
}

func (p problems) err() error {
	if len(p) == 0 {
		return nil
	}
	return errors.New("configuration errors:\n  - " + strings.Join(p, "\n  - "))
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var p problems

	p.check(c.Database.URL != "", "DATABASE_URL is required")
	p.check(c.JWT.Secret != "", "JWT_SECRET is required")

	if c.IsProduction() {
		p.check(len(c.JWT.Secret) >= 32, "JWT_SECRET must be at least 32 characters in production")
		p.check(len(c.WebSocket.AllowedOrigins) > 0, "WS_ALLOWED_ORIGINS must be set in production")
	}

	p.check(c.Database.MaxIdleConns <= c.Database.MaxOpenConns,
		"DB_MAX_IDLE_CONNS cannot be greater than DB_MAX_OPEN_CONNS")
	p.check(!c.RateLimit.Enabled || c.RateLimit.RequestsPerSecond > 0,
		"RATE_LIMIT_RPS must be positive when rate limiting is enabled")
	p.check(c.WebSocket.MessagesPerSecond > 0 && c.WebSocket.MessageBurst > 0,
		"WS_MESSAGES_PER_SECOND and WS_MESSAGE_BURST must be positive")

	return p.err()
}

// LoadReconnect loads only the client settings. The terminal client uses it
// and does not need a database or a signing secret.
func LoadReconnect() ReconnectConfig {
	loadDotEnv()
	return loadReconnectConfig()
}

// Validate validates the client settings
func (c ReconnectConfig) Validate() error {
	var p problems
	p.check(c.URL != "", "CHAT_URL is required")
	p.check(c.Token != "", "CHAT_TOKEN is required")
	p.check(c.HandshakeTimeout > 0, "CHAT_HANDSHAKE_TIMEOUT must be positive")
	return p.err()
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// Helper functions

var dotEnvOnce sync.Once

// loadDotEnv loads a local .env file once per process. A missing file is not
// an error; the process environment is used as is.
func loadDotEnv() {
	dotEnvOnce.Do(func() {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Printf("config: ignoring .env: %v", err)
		}
	})
}

func loadReconnectConfig() ReconnectConfig {
	return ReconnectConfig{
		URL:              getEnvOrDefault("CHAT_URL", "http://localhost:8080/api/v1/ws"),
		Token:            os.Getenv("CHAT_TOKEN"),
		ConversationID:   os.Getenv("CHAT_CONVERSATION"),
		HandshakeTimeout: getDurationOrDefault("CHAT_HANDSHAKE_TIMEOUT", 10*time.Second),
		WriteWait:        getDurationOrDefault("CHAT_WRITE_WAIT", 10*time.Second),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

// String returns a redacted string representation of the config (safe for logging)
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Server: %s, DB: %s, JWT: [REDACTED], RateLimit: %v, WSOrigins: %d, Environment: %s}",
		c.Server.Port,
		redactURL(c.Database.URL),
		c.RateLimit.Enabled,
		len(c.WebSocket.AllowedOrigins),
		c.App.Environment,
	)
}

// redactURL redacts sensitive parts of a database URL
func redactURL(url string) string {
	if url == "" {
		return ""
	}
	if idx := strings.Index(url, "@"); idx > 0 {
		return "[REDACTED]" + url[idx:]
	}
	return "[REDACTED]"
}
