package logger

import (
	"pos/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// L process-wide logger; a no-op logger until Init is called
var L = zap.NewNop()

// New builds a zap logger from the log section. Debug server mode gets
// development settings (caller, stacktraces on warn).
func New(cfg *config.Config) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.Server.Mode == "release" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}

	level := zapcore.InfoLevel
	if cfg.Log.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
			return nil, err
		}
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	if cfg.Log.Encoding != "" {
		zc.Encoding = cfg.Log.Encoding
	}
	if zc.Encoding == "console" {
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return zc.Build()
}

// Init builds the logger and installs it as L and as zap's global logger
func Init(cfg *config.Config) error {
	l, err := New(cfg)
	if err != nil {
		return err
	}
	L = l
	zap.ReplaceGlobals(l)
	return nil
}
