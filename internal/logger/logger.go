package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options controls logger construction.
type Options struct {
	Development bool
	// Level is a zap level name. Empty means debug in development and info otherwise.
	Level string
}

// New creates a new zap logger
func New(opts Options) (*zap.Logger, error) {
	var cfg zap.Config

	if opts.Development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
	}

	if opts.Level != "" {
		level, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("parsing log level: %w", err)
		}
		cfg.Level = zap.NewAtomicLevelAt(level)
	}

	return cfg.Build()
}

// Must creates a logger or panics
func Must(opts Options) *zap.Logger {
	log, err := New(opts)
	if err != nil {
		panic(err)
	}
	return log
}
