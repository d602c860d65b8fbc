package xlog

import (
	"go.uber.org/zap/zapcore"
)

// AntsXLogger adapts the XLogger into the ants pool logger.
// ants only prints the worker panics, so they are logged as errors.
type AntsXLogger struct {
	logger XLogger
}

func (l *AntsXLogger) Printf(format string, args ...any) {
	if l == nil || l.logger == nil {
		return
	}
	l.logger.Logf(zapcore.ErrorLevel, format, args...)
}

func NewAntsXLogger(logger XLogger) *AntsXLogger {
	return &AntsXLogger{
		logger: logger.Named("Ants"),
	}
}
