//
// connectoragents is licensed under the Apache License Version 2.0.
//
//

// Package log provides the leveled logging interface used by this
// module: the scheduler logs through it rather than fmt/stdlib log
// directly.
package log

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log level constants.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
	LevelFatal = "fatal"
)

// Default borrows logging utilities from zap. Replace it with anything
// implementing Logger.
var Default Logger = zap.New(
	zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(os.Stdout),
		zapLevel,
	),
	zap.AddCaller(),
	zap.AddCallerSkip(1),
).Sugar()

var zapLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)

// SetLevel sets the log level of Default. Valid levels are "debug",
// "info", "warn", "error", "fatal"; anything else resets to "info".
func SetLevel(level string) {
	switch level {
	case LevelDebug:
		zapLevel.SetLevel(zapcore.DebugLevel)
	case LevelInfo:
		zapLevel.SetLevel(zapcore.InfoLevel)
	case LevelWarn:
		zapLevel.SetLevel(zapcore.WarnLevel)
	case LevelError:
		zapLevel.SetLevel(zapcore.ErrorLevel)
	case LevelFatal:
		zapLevel.SetLevel(zapcore.FatalLevel)
	default:
		zapLevel.SetLevel(zapcore.InfoLevel)
	}
}

var encoderConfig = zapcore.EncoderConfig{
	TimeKey:        "ts",
	LevelKey:       "lvl",
	NameKey:        "name",
	CallerKey:      "caller",
	MessageKey:     "message",
	StacktraceKey:  "stacktrace",
	LineEnding:     zapcore.DefaultLineEnding,
	EncodeLevel:    zapcore.CapitalColorLevelEncoder,
	EncodeTime:     zapcore.RFC3339TimeEncoder,
	EncodeDuration: zapcore.SecondsDurationEncoder,
	EncodeCaller:   zapcore.ShortCallerEncoder,
}

// Logger is the interface the scheduler logs through. Inject your own
// implementation via scheduler.WithLogger.
type Logger interface {
	Debug(args ...any)
	Debugf(format string, args ...any)
	Info(args ...any)
	Infof(format string, args ...any)
	Warn(args ...any)
	Warnf(format string, args ...any)
	Error(args ...any)
	Errorf(format string, args ...any)
	Fatal(args ...any)
	Fatalf(format string, args ...any)
}

// Debug logs to Default at debug level.
func Debug(args ...any) { Default.Debug(args...) }

// Debugf logs to Default at debug level with formatting.
func Debugf(format string, args ...any) { Default.Debugf(format, args...) }

// Info logs to Default at info level.
func Info(args ...any) { Default.Info(args...) }

// Infof logs to Default at info level with formatting.
func Infof(format string, args ...any) { Default.Infof(format, args...) }

// Warn logs to Default at warn level.
func Warn(args ...any) { Default.Warn(args...) }

// Warnf logs to Default at warn level with formatting.
func Warnf(format string, args ...any) { Default.Warnf(format, args...) }

// Error logs to Default at error level.
func Error(args ...any) { Default.Error(args...) }

// Errorf logs to Default at error level with formatting.
func Errorf(format string, args ...any) { Default.Errorf(format, args...) }

// Fatal logs to Default at fatal level then terminates the process
// (assuming Default is the zap-backed implementation).
func Fatal(args ...any) { Default.Fatal(args...) }

// Fatalf logs to Default at fatal level with formatting then
// terminates the process (assuming Default is the zap-backed
// implementation).
func Fatalf(format string, args ...any) { Default.Fatalf(format, args...) }
