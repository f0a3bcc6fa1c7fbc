// Package logger builds the process-wide zap logger.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the encoder and minimum level.
type Config struct {
	Development bool
	// Level is one of debug, info, warn, error. Empty keeps the preset's level.
	Level string
	// Encoding is "json" or "console". Empty keeps the preset's encoding.
	Encoding string
}

// New creates a new zap logger
func New(c Config) (*zap.Logger, error) {
	var cfg zap.Config

	if c.Development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	if c.Level != "" {
		lvl, err := zapcore.ParseLevel(c.Level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	if c.Encoding != "" {
		cfg.Encoding = c.Encoding
	}

	return cfg.Build()
}

// Must creates a logger or panics
func Must(c Config) *zap.Logger {
	log, err := New(c)
	if err != nil {
		panic(err)
	}
	return log
}
