package logger

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Static errors for err113 compliance.
var (
	ErrInvalidLogLevel = errors.New("invalid log level")
)

// DefaultFileMode is used when logging to a file.
const DefaultFileMode = 0o644

// Logger supports both f and non-f methods.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})

	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})

	GetLevel() string

	WithField(key string, value interface{}) Logger
	Named(name string) Logger
}

// Implementation holds the zap logger.
type Implementation struct {
	logger *zap.Logger
	sugar  *zap.SugaredLogger
	level  zapcore.Level
}

// Global logger instance.
var globalLogger Logger //nolint:gochecknoglobals // Global logger is needed for package-level logging

func init() { //nolint:gochecknoinits // Required for global logger initialization
	globalLogger, _ = New(Config{
		Level:  "info",
		Format: "console",
	})
}

// Config holds logger configuration.
type Config struct {
	Level      string // debug, info, warn, error, fatal
	Format     string // json, console
	OutputPath string // stdout, stderr, or file path
	CallerSkip int
}

// New creates a new logger instance.
func New(config Config) (Logger, error) {
	level, err := parseLevel(config.Level)
	if err != nil {
		return nil, err
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	if config.Format == "json" {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	var writer zapcore.WriteSyncer

	switch config.OutputPath {
	case "", "stdout":
		writer = zapcore.AddSync(os.Stdout)
	case "stderr":
		writer = zapcore.AddSync(os.Stderr)
	default:
		file, err := os.OpenFile(config.OutputPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, DefaultFileMode)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}

		writer = zapcore.AddSync(file)
	}

	core := zapcore.NewCore(encoder, writer, level)

	callerSkip := config.CallerSkip
	if callerSkip == 0 {
		callerSkip = 1
	}

	zl := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(callerSkip))

	return &Implementation{
		logger: zl,
		sugar:  zl.Sugar(),
		level:  level,
	}, nil
}

func parseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(level) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	case "fatal":
		return zapcore.FatalLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("%w: %s", ErrInvalidLogLevel, level)
	}
}

// Get returns the global logger.
func Get() Logger {
	return globalLogger
}

// Set sets the global logger.
func Set(logger Logger) {
	globalLogger = logger
}

// Configure configures the global logger.
func Configure(config Config) error {
	logger, err := New(config)
	if err != nil {
		return err
	}

	globalLogger = logger

	return nil
}

// Implementation of Logger interface

func (l *Implementation) Debugf(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

func (l *Implementation) Infof(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

func (l *Implementation) Warnf(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

func (l *Implementation) Errorf(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

func (l *Implementation) Fatalf(format string, args ...interface{}) {
	l.sugar.Fatalf(format, args...)
}

func (l *Implementation) Debug(msg string, args ...interface{}) {
	if len(args) > 0 {
		l.sugar.Debugw(msg, args...)
	} else {
		l.logger.Debug(msg)
	}
}

func (l *Implementation) Info(msg string, args ...interface{}) {
	if len(args) > 0 {
		l.sugar.Infow(msg, args...)
	} else {
		l.logger.Info(msg)
	}
}

func (l *Implementation) Warn(msg string, args ...interface{}) {
	if len(args) > 0 {
		l.sugar.Warnw(msg, args...)
	} else {
		l.logger.Warn(msg)
	}
}

func (l *Implementation) Error(msg string, args ...interface{}) {
	if len(args) > 0 {
		l.sugar.Errorw(msg, args...)
	} else {
		l.logger.Error(msg)
	}
}

func (l *Implementation) Fatal(msg string, args ...interface{}) {
	if len(args) > 0 {
		l.sugar.Fatalw(msg, args...)
	} else {
		l.logger.Fatal(msg)
	}
}

func (l *Implementation) GetLevel() string {
	return l.level.String()
}

func (l *Implementation) WithField(key string, value interface{}) Logger {
	child := l.logger.With(zap.Any(key, value))

	return &Implementation{
		logger: child,
		sugar:  child.Sugar(),
		level:  l.level,
	}
}

func (l *Implementation) Named(name string) Logger {
	child := l.logger.Named(name)

	return &Implementation{
		logger: child,
		sugar:  child.Sugar(),
		level:  l.level,
	}
}

// Global convenience functions that use the global logger

func Debugf(format string, args ...interface{}) {
	globalLogger.Debugf(format, args...)
}

func Infof(format string, args ...interface{}) {
	globalLogger.Infof(format, args...)
}

func Warnf(format string, args ...interface{}) {
	globalLogger.Warnf(format, args...)
}

func Errorf(format string, args ...interface{}) {
	globalLogger.Errorf(format, args...)
}

func Fatalf(format string, args ...interface{}) {
	globalLogger.Fatalf(format, args...)
}
