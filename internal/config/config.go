package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Telegram bot configuration
	Telegram TelegramConfig

	// Dispatch board configuration
	Board BoardConfig

	// Report schedule configuration
	Schedule ScheduleConfig

	// Database configuration
	Database DatabaseConfig

	// Ops HTTP server configuration
	Server ServerConfig

	// JWT configuration for the ops API
	JWT JWTConfig

	// Rate limiting configuration for the ops API
	RateLimit RateLimitConfig

	// Logging configuration
	Logging LoggingConfig

	// Application metadata
	App AppConfig
}

// TelegramConfig holds bot credentials and chat routing.
type TelegramConfig struct {
	Token string
	// BroadcastChatIDs receive scheduled reports and close notices.
	BroadcastChatIDs []int64
	// AdminChatIDs may trigger the broadcast report from a group chat.
	AdminChatIDs []int64
	// MessagesPerSecond bounds outgoing bot calls.
	MessagesPerSecond float64
}

// BoardConfig holds the dispatch board API connection settings.
type BoardConfig struct {
	Host           string
	Port           string
	Token          string
	DefectTemplate string
}

// ScheduleConfig holds the daily report times, as local HH:MM strings.
type ScheduleConfig struct {
	// BroadcastTimes trigger the group-wide report.
	BroadcastTimes []string
	// PersonalTimes trigger the per-technician digests.
	PersonalTimes []string
	// ExportDir stages spreadsheet files before sending.
	ExportDir string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// ServerConfig holds the ops HTTP server configuration
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
	// AdminUser and AdminPasswordHash (bcrypt) guard the ops login.
	AdminUser         string
	AdminPasswordHash string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret         string
	AccessTokenTTL time.Duration
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	BurstSize         int
	AuthRPS           float64 // Stricter limit for the login endpoint
	AuthBurst         int
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
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	broadcastChats, err := getInt64SliceOrDefault("TELEGRAM_BROADCAST_CHAT_IDS", nil)
	if err != nil {
		return nil, err
	}
	adminChats, err := getInt64SliceOrDefault("TELEGRAM_ADMIN_CHAT_IDS", nil)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Telegram: TelegramConfig{
			Token:             os.Getenv("TELEGRAM_BOT_TOKEN"),
			BroadcastChatIDs:  broadcastChats,
			AdminChatIDs:      adminChats,
			MessagesPerSecond: getFloatOrDefault("TELEGRAM_MESSAGES_PER_SECOND", 20),
		},
		Board: BoardConfig{
			Host:           os.Getenv("BOARD_HOST"),
			Port:           getEnvOrDefault("BOARD_PORT", "80"),
			Token:          os.Getenv("BOARD_TOKEN"),
			DefectTemplate: getEnvOrDefault("BOARD_DEFECT_TEMPLATE", "***"),
		},
		Schedule: ScheduleConfig{
			BroadcastTimes: getStringSliceOrDefault("SCHEDULE_BROADCAST_TIMES", []string{"08:00"}),
			PersonalTimes:  getStringSliceOrDefault("SCHEDULE_PERSONAL_TIMES", []string{"08:30", "13:00"}),
			ExportDir:      getEnvOrDefault("EXPORT_DIR", "exports"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    getIntOrDefault("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntOrDefault("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDurationOrDefault("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime: getDurationOrDefault("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		},
		Server: ServerConfig{
			Port:              getEnvOrDefault("SERVER_PORT", ":8080"),
			ReadTimeout:       getDurationOrDefault("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:      getDurationOrDefault("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:       getDurationOrDefault("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout:   getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			AllowedOrigins:    getStringSliceOrDefault("SERVER_ALLOWED_ORIGINS", []string{}),
			AdminUser:         getEnvOrDefault("OPS_ADMIN_USER", "admin"),
			AdminPasswordHash: os.Getenv("OPS_ADMIN_PASSWORD_HASH"),
		},
		JWT: JWTConfig{
			Secret:         os.Getenv("JWT_SECRET"),
			AccessTokenTTL: getDurationOrDefault("JWT_ACCESS_TOKEN_TTL", 1*time.Hour),
		},
		RateLimit: RateLimitConfig{
			Enabled:           getBoolOrDefault("RATE_LIMIT_ENABLED", true),
			RequestsPerSecond: getFloatOrDefault("RATE_LIMIT_RPS", 10),
			BurstSize:         getIntOrDefault("RATE_LIMIT_BURST", 20),
			AuthRPS:           getFloatOrDefault("RATE_LIMIT_AUTH_RPS", 1),
			AuthBurst:         getIntOrDefault("RATE_LIMIT_AUTH_BURST", 5),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
		App: AppConfig{
			Name:        getEnvOrDefault("APP_NAME", "field-dispatch-bot"),
			Version:     getEnvOrDefault("APP_VERSION", "dev"),
			Environment: getEnvOrDefault("APP_ENV", "development"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []string

	// Required fields
	if c.Telegram.Token == "" {
		errs = append(errs, "TELEGRAM_BOT_TOKEN is required")
	}

	if len(c.Telegram.BroadcastChatIDs) == 0 {
		errs = append(errs, "TELEGRAM_BROADCAST_CHAT_IDS is required")
	}

	if c.Board.Host == "" {
		errs = append(errs, "BOARD_HOST is required")
	}

	if c.Board.Token == "" {
		errs = append(errs, "BOARD_TOKEN is required")
	}

	if c.Database.URL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}

	if c.JWT.Secret == "" {
		errs = append(errs, "JWT_SECRET is required")
	}

	for _, at := range append(append([]string{}, c.Schedule.BroadcastTimes...), c.Schedule.PersonalTimes...) {
		if _, err := time.Parse("15:04", at); err != nil {
			errs = append(errs, fmt.Sprintf("schedule time %q is not HH:MM", at))
		}
	}

	// Security validations
	if c.App.Environment == "production" {
		if len(c.JWT.Secret) < 32 {
			errs = append(errs, "JWT_SECRET must be at least 32 characters in production")
		}

		if c.Server.AdminPasswordHash == "" {
			errs = append(errs, "OPS_ADMIN_PASSWORD_HASH must be set in production")
		}
	}

	// Logical validations
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		errs = append(errs, "DB_MAX_IDLE_CONNS cannot be greater than DB_MAX_OPEN_CONNS")
	}

	if len(errs) > 0 {
		return errors.New("configuration errors:\n  - " + strings.Join(errs, "\n  - "))
	}

	return nil
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

// getInt64SliceOrDefault parses a comma-separated list of chat IDs. A
// malformed entry is a hard error: silently dropping a chat ID would
// silently drop a report recipient.
func getInt64SliceOrDefault(key string, defaultValue []int64) ([]int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parts := strings.Split(value, ",")
	result := make([]int64, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		id, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %q is not a chat id", key, trimmed)
		}
		result = append(result, id)
	}
	return result, nil
}

// String returns a redacted string representation of the config (safe for logging)
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Server: %s, DB: %s, Board: %s, Telegram: [REDACTED], JWT: [REDACTED], Environment: %s}",
		c.Server.Port,
		redactURL(c.Database.URL),
		c.Board.Host,
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
