// Package config provides configuration management using Viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// defaultDataDir returns the default directory for storing WhatsApp data.
// Uses ~/.whatsapp-dashboard/ so data is in a fixed location regardless of CWD.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./store"
	}
	return filepath.Join(home, ".whatsapp-dashboard")
}

// Config holds all configuration for the dashboard service.
type Config struct {
	// HTTP
	HTTPAddr    string   `mapstructure:"http_addr"`
	CORSOrigins []string `mapstructure:"cors_origins"`

	// Session
	SessionID   string `mapstructure:"session_id"`
	SessionPath string `mapstructure:"session_path"`
	PrintQR     bool   `mapstructure:"print_qr"`

	// Message store
	StoreDriver string `mapstructure:"store_driver"`
	StoreDSN    string `mapstructure:"store_dsn"`

	// Sent-message cache, disabled when RedisAddr is empty
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	RedisTTL      time.Duration `mapstructure:"redis_ttl"`

	// Connection
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`

	// Acquisition retry
	AcquireMaxRetries int           `mapstructure:"acquire_max_retries"`
	AcquireBaseDelay  time.Duration `mapstructure:"acquire_base_delay"`
	AcquireMaxDelay   time.Duration `mapstructure:"acquire_max_delay"`

	// Logging
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	dataDir := defaultDataDir()
	return &Config{
		HTTPAddr:          ":5000",
		CORSOrigins:       []string{"*"},
		SessionID:         "session",
		SessionPath:       filepath.Join(dataDir, "whatsapp.db"),
		PrintQR:           false,
		StoreDriver:       StoreMemory,
		StoreDSN:          "",
		RedisAddr:         "",
		RedisPassword:     "",
		RedisDB:           0,
		RedisTTL:          24 * time.Hour,
		ConnectTimeout:    30 * time.Second,
		AcquireMaxRetries: 0,
		AcquireBaseDelay:  1 * time.Second,
		AcquireMaxDelay:   5 * time.Minute,
		LogLevel:          "info",
		LogFormat:         "json",
	}
}

// LoadConfig loads configuration from file, environment, and defaults.
// Priority: CLI flags > Environment > Config file > Defaults
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("http_addr", defaults.HTTPAddr)
	v.SetDefault("cors_origins", defaults.CORSOrigins)
	v.SetDefault("session_id", defaults.SessionID)
	v.SetDefault("session_path", defaults.SessionPath)
	v.SetDefault("print_qr", defaults.PrintQR)
	v.SetDefault("store_driver", defaults.StoreDriver)
	v.SetDefault("store_dsn", defaults.StoreDSN)
	v.SetDefault("redis_addr", defaults.RedisAddr)
	v.SetDefault("redis_password", defaults.RedisPassword)
	v.SetDefault("redis_db", defaults.RedisDB)
	v.SetDefault("redis_ttl", defaults.RedisTTL)
	v.SetDefault("connect_timeout", defaults.ConnectTimeout)
	v.SetDefault("acquire_max_retries", defaults.AcquireMaxRetries)
	v.SetDefault("acquire_base_delay", defaults.AcquireBaseDelay)
	v.SetDefault("acquire_max_delay", defaults.AcquireMaxDelay)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("log_format", defaults.LogFormat)

	// Environment variables with WADASH_ prefix
	v.SetEnvPrefix("WADASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// A missing default config.yaml falls back to built-in defaults.
			isNotFound := errors.Is(err, os.ErrNotExist)
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !isNotFound {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	if c.HTTPAddr == "" {
		return fmt.Errorf("http address must not be empty")
	}

	if c.SessionID == "" {
		return fmt.Errorf("session id must not be empty")
	}

	switch c.StoreDriver {
	case StoreMemory:
	case StoreSQLite, StorePostgres:
		if c.StoreDSN == "" {
			return fmt.Errorf("store dsn is required for driver %s", c.StoreDriver)
		}
	default:
		return fmt.Errorf("invalid store driver: %s (must be memory, sqlite, or postgres)", c.StoreDriver)
	}

	if c.RedisAddr != "" && c.RedisTTL <= 0 {
		return fmt.Errorf("redis ttl must be positive")
	}

	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("connect timeout must be positive")
	}

	if c.AcquireMaxRetries < 0 {
		return fmt.Errorf("acquire max retries must be non-negative")
	}

	if c.AcquireBaseDelay <= 0 {
		return fmt.Errorf("acquire base delay must be positive")
	}

	if c.AcquireMaxDelay <= 0 {
		return fmt.Errorf("acquire max delay must be positive")
	}

	if c.AcquireBaseDelay > c.AcquireMaxDelay {
		return fmt.Errorf("acquire base delay must be less than or equal to max delay")
	}

	return nil
}
