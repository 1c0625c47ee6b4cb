package logger

import (
	"testing"

	"pos/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{Mode: "release"},
		Log:    config.LogConfig{Level: "warn", Encoding: "json"},
	}
	l, err := New(cfg)
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))
}

func TestNew_InvalidLevel(t *testing.T) {
	cfg := &config.Config{Log: config.LogConfig{Level: "loud"}}
	_, err := New(cfg)
	assert.Error(t, err)
}

func TestInit(t *testing.T) {
	old := L
	defer func() { L = old }()

	require.NoError(t, Init(&config.Config{Log: config.LogConfig{Level: "debug"}}))
	assert.True(t, L.Core().Enabled(zapcore.DebugLevel))
}
