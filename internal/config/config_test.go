package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	home, _ := os.UserHomeDir()
	assert.Equal(t, ":5000", cfg.HTTPAddr)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, "session", cfg.SessionID)
	assert.Equal(t, filepath.Join(home, ".whatsapp-dashboard", "whatsapp.db"), cfg.SessionPath)
	assert.Equal(t, StoreMemory, cfg.StoreDriver)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, 24*time.Hour, cfg.RedisTTL)
	assert.Equal(t, 30*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, 0, cfg.AcquireMaxRetries)
	assert.Equal(t, 1*time.Second, cfg.AcquireBaseDelay)
	assert.Equal(t, 5*time.Minute, cfg.AcquireMaxDelay)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.False(t, cfg.PrintQR)
}

func TestLoadConfig_FromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
http_addr: ":8080"
cors_origins:
  - http://localhost:5173
session_id: ops
session_path: /custom/session.db
print_qr: true
store_driver: sqlite
store_dsn: /custom/messages.db
redis_addr: localhost:6379
redis_db: 2
redis_ttl: 1h
connect_timeout: 60s
acquire_max_retries: 3
acquire_base_delay: 2s
acquire_max_delay: 10m
log_level: debug
log_format: text
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORSOrigins)
	assert.Equal(t, "ops", cfg.SessionID)
	assert.Equal(t, "/custom/session.db", cfg.SessionPath)
	assert.True(t, cfg.PrintQR)
	assert.Equal(t, StoreSQLite, cfg.StoreDriver)
	assert.Equal(t, "/custom/messages.db", cfg.StoreDSN)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, time.Hour, cfg.RedisTTL)
	assert.Equal(t, 60*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, 3, cfg.AcquireMaxRetries)
	assert.Equal(t, 2*time.Second, cfg.AcquireBaseDelay)
	assert.Equal(t, 10*time.Minute, cfg.AcquireMaxDelay)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
log_level: info
session_id: from-file
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	t.Setenv("WADASH_LOG_LEVEL", "debug")
	t.Setenv("WADASH_SESSION_ID", "from-env")
	t.Setenv("WADASH_ACQUIRE_MAX_RETRIES", "4")

	cfg, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "from-env", cfg.SessionID)
	assert.Equal(t, 4, cfg.AcquireMaxRetries)
}

func TestLoadConfig_NoFile(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	home, _ := os.UserHomeDir()
	assert.Equal(t, filepath.Join(home, ".whatsapp-dashboard", "whatsapp.db"), cfg.SessionPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "session", cfg.SessionID)
}

func TestLoadConfig_MissingFileIgnored(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, StoreMemory, cfg.StoreDriver)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "invalid log level",
			modify:  func(c *Config) { c.LogLevel = "verbose" },
			wantErr: true,
		},
		{
			name:    "empty http address",
			modify:  func(c *Config) { c.HTTPAddr = "" },
			wantErr: true,
		},
		{
			name:    "empty session id",
			modify:  func(c *Config) { c.SessionID = "" },
			wantErr: true,
		},
		{
			name:    "unknown store driver",
			modify:  func(c *Config) { c.StoreDriver = "mongo" },
			wantErr: true,
		},
		{
			name:    "sqlite without dsn",
			modify:  func(c *Config) { c.StoreDriver = StoreSQLite },
			wantErr: true,
		},
		{
			name: "postgres with dsn",
			modify: func(c *Config) {
				c.StoreDriver = StorePostgres
				c.StoreDSN = "postgres://localhost/wadash"
			},
			wantErr: false,
		},
		{
			name: "redis without ttl",
			modify: func(c *Config) {
				c.RedisAddr = "localhost:6379"
				c.RedisTTL = 0
			},
			wantErr: true,
		},
		{
			name:    "zero connect timeout",
			modify:  func(c *Config) { c.ConnectTimeout = 0 },
			wantErr: true,
		},
		{
			name:    "negative max retries",
			modify:  func(c *Config) { c.AcquireMaxRetries = -1 },
			wantErr: true,
		},
		{
			name:    "zero base delay",
			modify:  func(c *Config) { c.AcquireBaseDelay = 0 },
			wantErr: true,
		},
		{
			name: "base delay greater than max delay",
			modify: func(c *Config) {
				c.AcquireBaseDelay = 10 * time.Minute
				c.AcquireMaxDelay = 1 * time.Minute
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
