// Package log wraps the zap logger used across raceline so that packages log
// through one global sugared logger and tests can swap it out.
package log

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	_default *zap.SugaredLogger
)

// configure a default logger
func init() {
	zapConfig := zap.NewProductionConfig()
	zapConfig.Encoding = "console"
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapConfig.DisableStacktrace = true

	ConfigureLogger(zapConfig)
}

// ConfigureLogger configures a global zap logger instance.
func ConfigureLogger(zapConfig zap.Config) *zap.SugaredLogger {
	logger, err := zapConfig.Build()
	if err != nil {
		panic(err)
	}

	// Skip this wrapper in a call stack.
	logger = logger.WithOptions(zap.AddCallerSkip(1))

	_default = logger.Sugar()
	return _default
}

// SetGlobalLogger sets the global logger and returns a func which restores
// the previous one.
func SetGlobalLogger(l *zap.SugaredLogger) (restore func()) {
	prev := _default
	_default = l
	return func() { _default = prev }
}

// Default returns the default global logger.
func Default() *zap.SugaredLogger {
	return _default
}

// Debugf uses fmt.Sprintf to log a templated message.
func Debugf(template string, args ...interface{}) {
	Default().Debugf(template, args...)
}

// Infof uses fmt.Sprintf to log a templated message.
func Infof(template string, args ...interface{}) {
	Default().Infof(template, args...)
}

// Warnf uses fmt.Sprintf to log a templated message.
func Warnf(template string, args ...interface{}) {
	Default().Warnf(template, args...)
}

// Errorf uses fmt.Sprintf to log a templated message.
func Errorf(template string, args ...interface{}) {
	Default().Errorf(template, args...)
}

// Fatalf uses fmt.Sprintf to log a templated message, then calls os.Exit.
func Fatalf(template string, args ...interface{}) {
	Default().Fatalf(template, args...)
}

// Infow logs a message with some additional context. The variadic key-value
// pairs are treated as they are in With.
func Infow(msg string, keysAndValues ...interface{}) {
	Default().Infow(msg, keysAndValues...)
}

// Warnw logs a message with some additional context. The variadic key-value
// pairs are treated as they are in With.
func Warnw(msg string, keysAndValues ...interface{}) {
	Default().Warnw(msg, keysAndValues...)
}

// Errorw logs a message with some additional context. The variadic key-value
// pairs are treated as they are in With.
func Errorw(msg string, keysAndValues ...interface{}) {
	Default().Errorw(msg, keysAndValues...)
}

// With adds a variadic number of fields to the logging context.
func With(args ...interface{}) *zap.SugaredLogger {
	return Default().With(args...)
}
