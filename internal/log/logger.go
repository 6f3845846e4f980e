// Package log provides structured logging for cryptotap using zap.
package log

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger with cryptotap-specific helpers.
type Logger struct {
	*zap.Logger
}

var (
	// L is the global logger instance.
	L    *Logger
	once sync.Once
)

// Init initializes the global logger with the given configuration.
// Safe to call multiple times; only the first call takes effect.
func Init(debug bool) {
	once.Do(func() {
		L = New(debug)
	})
}

// Get returns the global logger, or a no-op logger before Init.
func Get() *Logger {
	if L == nil {
		return NewNop()
	}
	return L
}

// New creates a new Logger instance.
func New(debug bool) *Logger {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}

	// Shorter timestamps in development
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		// Fallback to no-op if config fails
		logger = zap.NewNop()
	}

	return &Logger{Logger: logger}
}

// NewNop creates a no-op logger for testing.
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// Bound logs a binding installation or observer swap.
func (l *Logger) Bound(binding string, swapped bool) {
	l.Debug("bound",
		Binding(binding),
		zap.Bool("swap", swapped),
	)
}

// Unbound logs the restoration of an original implementation.
func (l *Logger) Unbound(binding string) {
	l.Debug("unbound", Binding(binding))
}

// Skipped logs a catalog definition the host could not resolve.
func (l *Logger) Skipped(binding string, err error) {
	l.Debug("skipped",
		Binding(binding),
		zap.Error(err),
	)
}

// Fault logs an error raised by an original implementation. The error is
// passed through to the caller; this is informational only.
func (l *Logger) Fault(binding string, err error) {
	l.Debug("original fault",
		Binding(binding),
		zap.Error(err),
	)
}

// ObserverFault logs a recovered failure in diagnostic rendering or emission.
func (l *Logger) ObserverFault(binding string, recovered any) {
	l.Warn("observer fault",
		Binding(binding),
		zap.Any("panic", recovered),
	)
}

// Capture logs one rendered capture line at debug level.
func (l *Logger) Capture(binding, line string) {
	l.Debug("capture",
		Binding(binding),
		zap.String("line", line),
	)
}

// WithCategory returns a logger with the category field preset.
func (l *Logger) WithCategory(category string) *Logger {
	return &Logger{Logger: l.Logger.With(Cat(category))}
}

// Field helpers for common patterns.

// Binding creates a binding key field.
func Binding(key string) zap.Field {
	return zap.String("binding", key)
}

// Cat creates a category field.
func Cat(category string) zap.Field {
	return zap.String("cat", category)
}

// Fn creates a method name field.
func Fn(name string) zap.Field {
	return zap.String("fn", name)
}

// Session creates a session id field.
func Session(id string) zap.Field {
	return zap.String("session", id)
}
