package log

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// Observe replaces the global logger with one which records every entry at
// debug level or above. Callers must invoke restore once done.
func Observe() (logs *observer.ObservedLogs, restore func()) {
	core, logs := observer.New(zapcore.DebugLevel)
	return logs, SetGlobalLogger(zap.New(core).Sugar())
}
