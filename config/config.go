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

// Config holds the service settings
type Config struct {
	ListenAddr      string
	GRPCListenAddr  string
	SchemaPath      string
	DefaultSettle   time.Duration
	MaxSettle       time.Duration
	ShutdownTimeout time.Duration
	LogLevel        string
	LogJSON         bool
}

// Load reads config from .env and the environment
func Load() (*Config, error) {
	// .env is optional, plain environment variables still apply
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		ListenAddr:      getEnv("LISTEN_ADDR", "127.0.0.1:8080"),
		GRPCListenAddr:  getEnv("GRPC_LISTEN_ADDR", ""),
		SchemaPath:      getEnvAllowEmpty("SCHEMA_PATH", "schema.graphql"),
		DefaultSettle:   envMillis("DEFAULT_SETTLE_MS", 500*time.Millisecond),
		MaxSettle:       envMillis("MAX_SETTLE_MS", 60*time.Second),
		ShutdownTimeout: envDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogJSON:         envBool("LOG_JSON", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.ListenAddr) == "" {
		return errors.New("LISTEN_ADDR is required")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("SHUTDOWN_TIMEOUT must be > 0")
	}
	if c.DefaultSettle < 0 || c.MaxSettle < 0 {
		return errors.New("settle durations must be >= 0")
	}
	if c.MaxSettle > 0 && c.DefaultSettle > c.MaxSettle {
		return fmt.Errorf("DEFAULT_SETTLE_MS (%v) exceeds MAX_SETTLE_MS (%v)", c.DefaultSettle, c.MaxSettle)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported LOG_LEVEL %q", c.LogLevel)
	}
	return nil
}

// getEnv returns the env value or fallback when unset
func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

// getEnvAllowEmpty lets a variable set to "" switch a feature off
func getEnvAllowEmpty(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return fallback
}

func envMillis(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	ms, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}

func envBool(key string, fallback bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch v {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
