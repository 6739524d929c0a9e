// internal/logging/logger.go
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const timestampLayout = "2006-01-02 15:04:05.000"

// Options configures the console and file outputs of a Logger.
type Options struct {
	// Level is the minimum console level: debug, info, warning, error, fatal.
	Level string
	// FilePath enables a rotating JSON log file when non-empty.
	FilePath string
	// NoColor disables ANSI colors on the console.
	NoColor bool
	// ConsoleWriter overrides the console destination. Defaults to os.Stderr
	// so command output on stdout stays parseable.
	ConsoleWriter io.Writer
}

// Logger provides leveled printf-style logging backed by zap, with colored
// console output and optional rotating file output.
type Logger struct {
	sugar *zap.SugaredLogger
	level zapcore.Level
}

var (
	global *Logger
	once   sync.Once
)

// ParseLevel maps a level name to its zap level, defaulting to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warning", "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// Init initializes the global logger. Subsequent calls are no-ops.
func Init(opts Options) *Logger {
	once.Do(func() {
		global = NewLogger(opts)
	})
	return global
}

// Get returns the global logger, initializing it with defaults if needed.
func Get() *Logger {
	if global == nil {
		Init(Options{Level: "info"})
	}
	return global
}

// NewLogger creates an independent logger instance from opts.
func NewLogger(opts Options) *Logger {
	level := ParseLevel(opts.Level)

	consoleCfg := zap.NewProductionEncoderConfig()
	consoleCfg.EncodeTime = zapcore.TimeEncoderOfLayout(timestampLayout)
	if opts.NoColor {
		consoleCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	} else {
		consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	consoleW := opts.ConsoleWriter
	if consoleW == nil {
		consoleW = os.Stderr
	}

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.AddSync(consoleW), level),
	}

	if opts.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(opts.FilePath), 0755); err == nil {
			fileCfg := zap.NewProductionEncoderConfig()
			fileCfg.EncodeTime = zapcore.TimeEncoderOfLayout(timestampLayout)
			fileCfg.EncodeLevel = zapcore.CapitalLevelEncoder
			fileW := zapcore.AddSync(&lumberjack.Logger{
				Filename:   opts.FilePath,
				MaxSize:    50, // megabytes
				MaxBackups: 5,
				MaxAge:     28, // days
				Compress:   true,
			})
			// The file always records debug and up; the console level only
			// gates what the user sees.
			cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileCfg), fileW, zapcore.DebugLevel))
		}
	}

	zl := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))

	return &Logger{sugar: zl.Sugar(), level: level}
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

// Warning logs a warning message.
func (l *Logger) Warning(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

// Fatal logs a fatal message and exits the program.
func (l *Logger) Fatal(format string, args ...interface{}) {
	l.sugar.Fatalf(format, args...)
}

// With returns a logger that attaches the given key/value pairs to every
// message, e.g. With("container", name).
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{sugar: l.sugar.With(keysAndValues...), level: l.level}
}

// Level reports the minimum console level of this logger.
func (l *Logger) Level() zapcore.Level {
	return l.level
}

// Sync flushes buffered log entries. Call before exit.
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}

func (l *Logger) skip() *zap.SugaredLogger {
	return l.sugar.WithOptions(zap.AddCallerSkip(1))
}

// Debug logs a debug message on the global logger.
func Debug(format string, args ...interface{}) {
	Get().skip().Debugf(format, args...)
}

// Info logs an informational message on the global logger.
func Info(format string, args ...interface{}) {
	Get().skip().Infof(format, args...)
}

// Warning logs a warning message on the global logger.
func Warning(format string, args ...interface{}) {
	Get().skip().Warnf(format, args...)
}

// Error logs an error message on the global logger.
func Error(format string, args ...interface{}) {
	Get().skip().Errorf(format, args...)
}

// Fatal logs a fatal message on the global logger and exits.
func Fatal(format string, args ...interface{}) {
	Get().skip().Fatalf(format, args...)
}

// Sync flushes the global logger.
func Sync() error {
	return Get().Sync()
}
