package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeErrorMessage(t *testing.T) {
	fallback := "operation failed"
	testErr := errors.New("internal database error")

	// nil err returns fallback
	assert.Equal(t, fallback, SafeErrorMessage(nil, fallback))

	// release mode hides details
	GlobalConfig = &Config{Server: ServerConfig{Mode: "release"}}
	defer func() { GlobalConfig = nil }()
	assert.Equal(t, fallback, SafeErrorMessage(testErr, fallback))

	GlobalConfig = &Config{Server: ServerConfig{Mode: "debug"}}
	assert.Equal(t, "internal database error", SafeErrorMessage(testErr, fallback))

	// no config counts as development
	GlobalConfig = nil
	assert.Equal(t, "internal database error", SafeErrorMessage(testErr, fallback))
}

func TestLoadConfig_Defaults(t *testing.T) {
	defer func() { GlobalConfig = nil }()

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "1234", cfg.Backoffice.DefaultPin)
	assert.Equal(t, []string{"cash", "gcash"}, cfg.Backoffice.PaymentMethods)
	assert.Equal(t, time.Minute, cfg.Backoffice.PinWindow)
	assert.Equal(t, 12*time.Hour, cfg.JWT.ExpireTime)
	assert.Equal(t, time.Duration(0), cfg.Sync.Interval)
	assert.Empty(t, cfg.Inventory.DSN)
	assert.Same(t, cfg, GlobalConfig)
}

func TestLoadConfig_FileAndEnvOverride(t *testing.T) {
	defer func() { GlobalConfig = nil }()

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("server:\n  port: \":9000\"\nsync:\n  interval: 15m\n")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	t.Setenv("POS_DATABASE_PATH", "/tmp/other.db")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Port)
	assert.Equal(t, 15*time.Minute, cfg.Sync.Interval)
	assert.Equal(t, "/tmp/other.db", cfg.Database.Path)
	// untouched keys keep embedded values
	assert.Equal(t, "debug", cfg.Server.Mode)
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "uploads", cfg.Uploads.Dir)
	assert.Equal(t, 5, cfg.Backoffice.PinAttempts)
	assert.Equal(t, 30*time.Second, cfg.Redis.TTL)
	assert.Equal(t, 12*time.Hour, cfg.JWT.ExpireTime)
}
