package logger

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds logger configuration
type Config struct {
	// Level is either a zap level name (debug, info, warn, error) or an
	// environment name (development, staging, production)
	Level       string
	ServiceName string
	Development bool
}

var (
	mu  sync.RWMutex
	log = zap.NewNop()
)

// Init builds the process-wide logger
func Init(cfg *Config) error {
	if cfg == nil {
		cfg = &Config{Level: "info"}
	}

	l, err := New(cfg)
	if err != nil {
		return err
	}

	Set(l)
	return nil
}

// New builds a zap logger from the given configuration without installing it
func New(cfg *Config) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zcfg = zap.NewProductionConfig()
		zcfg.EncoderConfig.TimeKey = "timestamp"
		zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	zcfg.Level = zap.NewAtomicLevelAt(parseLevel(cfg.Level, cfg.Development))

	// LOG_LEVEL always wins over the configured level
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		var level zapcore.Level
		if err := level.UnmarshalText([]byte(lvl)); err == nil {
			zcfg.Level = zap.NewAtomicLevelAt(level)
		}
	}

	l, err := zcfg.Build()
	if err != nil {
		return nil, err
	}

	if cfg.ServiceName != "" {
		l = l.With(zap.String("service", cfg.ServiceName))
	}
	return l, nil
}

func parseLevel(level string, development bool) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "development", "dev", "debug":
		return zapcore.DebugLevel
	case "staging", "production", "prod", "info", "":
		if development {
			return zapcore.DebugLevel
		}
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Get returns the process-wide logger
func Get() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// Set replaces the process-wide logger (tests use zaptest / observer loggers)
func Set(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	log = l
	mu.Unlock()
}

func Info(msg string, fields ...zap.Field) {
	Get().Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	Get().Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	Get().Error(msg, fields...)
}

func Debug(msg string, fields ...zap.Field) {
	Get().Debug(msg, fields...)
}

// With returns a child logger with the given fields
func With(fields ...zap.Field) *zap.Logger {
	return Get().With(fields...)
}

// Sync flushes buffered log entries
func Sync() error {
	return Get().Sync()
}
