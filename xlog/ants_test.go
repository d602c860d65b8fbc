package xlog

import (
	"testing"
	"time"

	antsv2 "github.com/panjf2000/ants/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestAntsXLogger_ParentLogLevelChanged(t *testing.T) {
	var (
		parentLogger XLogger      = nil
		logger       *AntsXLogger = nil
	)
	logger.Printf("test %d", 123)

	w := &testMemOutWriter{}
	parentLogger = MustXLogger(
		WithXLoggerWriter(w),
		WithXLoggerLevel(LogLevelDebug),
		WithXLoggerEncoder(JSON),
		WithXLoggerTimeEncoder(zapcore.ISO8601TimeEncoder),
		WithXLoggerLevelEncoder(zapcore.CapitalLevelEncoder),
	)
	logger = NewAntsXLogger(parentLogger)
	parentLogger.IncreaseLogLevel(zapcore.InfoLevel)
	parentLogger.Debug("abc")
	logger.Printf("test %d", 123)
	require.Len(t, w.Lines(), 1)

	parentLogger.IncreaseLogLevel(zapcore.DebugLevel)
	parentLogger.Debug("abc")
	logger.Printf("test %d", 456)
	lines := w.Lines()
	require.Len(t, lines, 3)
	last := decodeLine(t, lines[2])
	require.Equal(t, "Ants", last["component"])
	require.Equal(t, "test 456", last["msg"])
	require.Equal(t, "ERROR", last["lvl"])
}

func TestAntsXLogger_AntsPool(t *testing.T) {
	w := &testMemOutWriter{}
	parentLogger := MustXLogger(
		WithXLoggerWriter(w),
		WithXLoggerLevel(LogLevelDebug),
		WithXLoggerEncoder(JSON),
	)
	logger := NewAntsXLogger(parentLogger)

	p, err := antsv2.NewPool(10, antsv2.WithLogger(logger))
	require.NoError(t, err)
	defer p.Release()

	done := make(chan struct{})
	err = p.Submit(func() {
		parentLogger.Logf(LogLevelDebug.zapLevel(), "test %d", 123)
		close(done)
	})
	require.NoError(t, err)
	<-done
	err = p.Submit(func() {
		panic("xlogger panic in ants pool")
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		for _, line := range w.Lines() {
			if decodeLine(t, line)["component"] == "Ants" {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)
	_ = parentLogger.Sync()
}
