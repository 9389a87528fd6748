package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger defines the interface for logging
type Logger interface {
	Log(format string, args ...interface{})
	Warn(format string, args ...interface{})
}

// NoopLogger implements a no-op logger
type NoopLogger struct{}

func (l *NoopLogger) Log(format string, args ...interface{}) {}

func (l *NoopLogger) Warn(format string, args ...interface{}) {}

// DefaultLogger is the default logger instance
var DefaultLogger Logger = &NoopLogger{}

// SetLogger sets the default logger
func SetLogger(l Logger) {
	if l == nil {
		l = &NoopLogger{}
	}
	DefaultLogger = l
}

// Log logs a message using the default logger
func Log(format string, args ...interface{}) {
	DefaultLogger.Log(format, args...)
}

// Warn logs a recoverable problem using the default logger
func Warn(format string, args ...interface{}) {
	DefaultLogger.Warn(format, args...)
}

// ZapLogger adapts a zap logger to Logger
type ZapLogger struct {
	z *zap.Logger
	s *zap.SugaredLogger
}

// NewZap builds a zap-backed logger. Level is one of debug, info, warn, error.
func NewZap(level string, development bool) (*ZapLogger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	z, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building zap logger: %w", err)
	}
	return WrapZap(z), nil
}

// WrapZap wraps an existing zap logger
func WrapZap(z *zap.Logger) *ZapLogger {
	return &ZapLogger{z: z, s: z.Sugar()}
}

func (l *ZapLogger) Log(format string, args ...interface{}) {
	l.s.Infof(format, args...)
}

func (l *ZapLogger) Warn(format string, args ...interface{}) {
	l.s.Warnf(format, args...)
}

// Zap exposes the structured logger for callers that want fields
func (l *ZapLogger) Zap() *zap.Logger {
	return l.z
}

// Sync flushes buffered entries
func (l *ZapLogger) Sync() error {
	return l.z.Sync()
}
