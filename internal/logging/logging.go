package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger. debug switches to the console encoder with caller info.
// An unknown level falls back to info.
func New(level string, debug bool) (*zap.Logger, error) {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level, debug))
	return cfg.Build()
}

func parseLevel(v string, debug bool) zapcore.Level {
	v = strings.TrimSpace(strings.ToLower(v))
	if v == "" {
		if debug {
			return zapcore.DebugLevel
		}
		return zapcore.InfoLevel
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(v)); err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
