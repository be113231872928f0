// Package log provides the diagnostic logger of the harvester.
// Batches themselves are written by pkg/sink, not here.
package log

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the process-wide logger. Commands replace it once the log
// level and file are known.
var Logger = newHarvesterLogger(mustBuild(zap.NewAtomicLevel()))

var nopLogger = zap.NewNop().Sugar()

// logFileMaxSizeMB is the size at which the diagnostic log file rotates.
const logFileMaxSizeMB = 128

// ParseLogLevel parses a zap level name. An empty name means info.
func ParseLogLevel(logLevel string) (zap.AtomicLevel, error) {
	if logLevel == "" {
		return zap.NewAtomicLevel(), nil
	}
	return zap.ParseAtomicLevel(logLevel)
}

// CreateLogger logs JSON to a rotated file when logFile is set, and to
// stderr through the zap production config otherwise.
func CreateLogger(lvl zap.AtomicLevel, logFile string) *harvesterLogger {
	if logFile == "" {
		return newHarvesterLogger(mustBuild(lvl))
	}

	w := zapcore.AddSync(&lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    logFileMaxSizeMB,
		MaxBackups: 5,
		MaxAge:     3, // days
		Compress:   true,
	})
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), w, lvl)
	return newHarvesterLogger(zap.New(core).Sugar())
}

// NewFromZap wraps an existing zap logger (e.g., zaptest/observer in tests).
func NewFromZap(logger *zap.Logger) *harvesterLogger {
	if logger == nil {
		return newHarvesterLogger(nil)
	}
	return newHarvesterLogger(logger.Sugar())
}

// SetLogger swaps the logger behind Logger; nil silences it.
func SetLogger(logger *harvesterLogger) {
	if logger == nil {
		Logger.set(nil)
		return
	}
	Logger.set(logger.get())
}

func encoderConfig() zapcore.EncoderConfig {
	c := zap.NewProductionEncoderConfig()
	c.EncodeTime = zapcore.ISO8601TimeEncoder
	return c
}

func mustBuild(lvl zap.AtomicLevel) *zap.SugaredLogger {
	c := zap.NewProductionConfig()
	c.Level = lvl
	c.EncoderConfig = encoderConfig()
	l, err := c.Build()
	if err != nil {
		panic(err)
	}
	return l.Sugar()
}

type harvesterLogger struct {
	logger atomic.Pointer[zap.SugaredLogger]
}

func newHarvesterLogger(logger *zap.SugaredLogger) *harvesterLogger {
	l := &harvesterLogger{}
	l.set(logger)
	return l
}

func (l *harvesterLogger) get() *zap.SugaredLogger {
	if l == nil {
		return nopLogger
	}
	if logger := l.logger.Load(); logger != nil {
		return logger
	}
	return nopLogger
}

func (l *harvesterLogger) set(logger *zap.SugaredLogger) {
	if logger == nil {
		logger = nopLogger
	}
	l.logger.Store(logger)
}

func (l *harvesterLogger) Debugw(msg string, keysAndValues ...interface{}) {
	l.get().Debugw(msg, keysAndValues...)
}

func (l *harvesterLogger) Infow(msg string, keysAndValues ...interface{}) {
	l.get().Infow(msg, keysAndValues...)
}

func (l *harvesterLogger) Infof(template string, args ...interface{}) {
	l.get().Infof(template, args...)
}

func (l *harvesterLogger) Warnw(msg string, keysAndValues ...interface{}) {
	l.get().Warnw(msg, keysAndValues...)
}

// Errorw logs at warn level when the "error" field is a canceled
// context, which is expected while stopping.
func (l *harvesterLogger) Errorw(msg string, keysAndValues ...interface{}) {
	if isCanceled(keysAndValues) {
		l.get().Warnw(msg, keysAndValues...)
		return
	}
	l.get().Errorw(msg, keysAndValues...)
}

func (l *harvesterLogger) Desugar() *zap.Logger {
	return l.get().Desugar()
}

func isCanceled(keysAndValues []interface{}) bool {
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if keysAndValues[i] != "error" {
			continue
		}
		err, ok := keysAndValues[i+1].(error)
		if !ok {
			continue
		}
		if errors.Is(err, context.Canceled) || strings.Contains(err.Error(), context.Canceled.Error()) {
			return true
		}
	}
	return false
}
