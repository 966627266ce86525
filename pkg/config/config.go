package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"

	// Load environment variables from .env files when present.
	_ "github.com/joho/godotenv/autoload"
)

// Config holds all application configuration
type Config struct {
	Import        ImportConfig
	Server        ServerConfig
	Observability ObservabilityConfig
	Log           LogConfig
}

type ImportConfig struct {
	AcceptedExtensions []string
	Workers            int
	InboxDir           string
	ArchiveDir         string
	Schedule           string
	MaxUploadBytes     int64
}

type ServerConfig struct {
	Host               string
	Port               int
	RateLimitPerSecond int
	RateLimitBurst     int
	CORSOrigins        []string
}

type ObservabilityConfig struct {
	MetricsEnabled bool
	MetricsPort    int
}

type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Import: ImportConfig{
			AcceptedExtensions: getEnvAsList("IMPORT_ACCEPTED_EXTENSIONS", []string{"pdf", "csv"}),
			Workers:            getEnvAsInt("IMPORT_WORKERS", runtime.GOMAXPROCS(0)),
			InboxDir:           getEnv("IMPORT_INBOX_DIR", "./inbox"),
			ArchiveDir:         getEnv("IMPORT_ARCHIVE_DIR", "./archive"),
			Schedule:           getEnv("IMPORT_SCHEDULE", "*/5 * * * *"),
			MaxUploadBytes:     int64(getEnvAsInt("IMPORT_MAX_UPLOAD_BYTES", 32<<20)),
		},
		Server: ServerConfig{
			Host:               getEnv("SERVER_HOST", "localhost"),
			Port:               getEnvAsInt("SERVER_PORT", 8080),
			RateLimitPerSecond: getEnvAsInt("SERVER_RATE_LIMIT_PER_SECOND", 10),
			RateLimitBurst:     getEnvAsInt("SERVER_RATE_LIMIT_BURST", 20),
			CORSOrigins:        getEnvAsList("SERVER_CORS_ORIGINS", []string{"*"}),
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
			MetricsPort:    getEnvAsInt("METRICS_PORT", 9090),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}

	if len(cfg.Import.AcceptedExtensions) == 0 {
		return nil, errors.New("IMPORT_ACCEPTED_EXTENSIONS must list at least one extension")
	}
	if cfg.Import.Workers < 1 {
		cfg.Import.Workers = 1
	}
	if cfg.Import.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("IMPORT_MAX_UPLOAD_BYTES must be positive, got %d", cfg.Import.MaxUploadBytes)
	}

	return cfg, nil
}

// Addr returns the HTTP listen address
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SlogLevel maps the configured level name to a slog.Level; unknown names
// mean info.
func (c *LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the process logger: JSON when Format is "json", text
// otherwise.
func (c *LogConfig) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if strings.EqualFold(c.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
