// Package logger provides structured logging for the reconciliation engine.
//
// It wraps logrus behind a small interface so components depend on the
// contract rather than the library. Components tag their entries with
// WithComponent; per-row extraction noise belongs at Debug, per-upload
// summaries at Info, and anything touching money state at Error.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger interface defines the logging contract
type Logger interface {
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Warn(args ...interface{})
	Warnf(format string, args ...interface{})
	Error(args ...interface{})
	Errorf(format string, args ...interface{})
	Fatal(args ...interface{})
	Fatalf(format string, args ...interface{})
	WithField(key string, value interface{}) Logger
	WithFields(fields Fields) Logger
	WithError(err error) Logger
	WithComponent(component string) Logger
}

// Fields represents a map of key-value pairs for structured logging
type Fields map[string]interface{}

// Level represents log levels
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
	FatalLevel Level = "fatal"
)

// Format represents log output formats
type Format string

const (
	JSONFormat Format = "json"
	TextFormat Format = "text"
)

// Output represents log output destinations
type Output string

const (
	StdoutOutput Output = "stdout"
	StderrOutput Output = "stderr"
)

// Config holds configuration options for the logger
type Config struct {
	Level  Level  `json:"level"`
	Format Format `json:"format"`
	Output Output `json:"output"`
}

// DefaultConfig returns a default logger configuration
func DefaultConfig() *Config {
	return &Config{
		Level:  InfoLevel,
		Format: TextFormat,
		Output: StderrOutput,
	}
}

// DebugConfig returns a configuration suitable for debugging
func DebugConfig() *Config {
	return &Config{
		Level:  DebugLevel,
		Format: TextFormat,
		Output: StderrOutput,
	}
}

// Validate validates the logger configuration
func (c *Config) Validate() error {
	validLevels := map[Level]bool{
		DebugLevel: true,
		InfoLevel:  true,
		WarnLevel:  true,
		ErrorLevel: true,
		FatalLevel: true,
	}
	if !validLevels[c.Level] {
		return fmt.Errorf("invalid log level: %s", c.Level)
	}

	validFormats := map[Format]bool{
		JSONFormat: true,
		TextFormat: true,
	}
	if !validFormats[c.Format] {
		return fmt.Errorf("invalid log format: %s", c.Format)
	}

	validOutputs := map[Output]bool{
		StdoutOutput: true,
		StderrOutput: true,
	}
	if !validOutputs[c.Output] {
		return fmt.Errorf("invalid log output: %s", c.Output)
	}

	return nil
}

// logrusLogger wraps logrus.Logger to implement our Logger interface
type logrusLogger struct {
	logger *logrus.Logger
	config *Config
}

// NewLogger creates a new logger with the given configuration
func NewLogger(config *Config) (Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid logger configuration: %w", err)
	}

	logger := logrus.New()

	level, err := logrus.ParseLevel(string(config.Level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %s: %w", config.Level, err)
	}
	logger.SetLevel(level)
	logger.SetOutput(getOutputWriter(config))
	logger.SetFormatter(getFormatter(config))

	return &logrusLogger{
		logger: logger,
		config: config,
	}, nil
}

func getOutputWriter(config *Config) io.Writer {
	switch config.Output {
	case StdoutOutput:
		return os.Stdout
	default:
		return os.Stderr
	}
}

func getFormatter(config *Config) logrus.Formatter {
	switch config.Format {
	case JSONFormat:
		return &logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		}
	default:
		return &logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		}
	}
}

func (l *logrusLogger) Debug(args ...interface{}) { l.logger.Debug(args...) }
func (l *logrusLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debugf(format, args...)
}
func (l *logrusLogger) Info(args ...interface{}) { l.logger.Info(args...) }
func (l *logrusLogger) Infof(format string, args ...interface{}) {
	l.logger.Infof(format, args...)
}
func (l *logrusLogger) Warn(args ...interface{}) { l.logger.Warn(args...) }
func (l *logrusLogger) Warnf(format string, args ...interface{}) {
	l.logger.Warnf(format, args...)
}
func (l *logrusLogger) Error(args ...interface{}) { l.logger.Error(args...) }
func (l *logrusLogger) Errorf(format string, args ...interface{}) {
	l.logger.Errorf(format, args...)
}
func (l *logrusLogger) Fatal(args ...interface{}) { l.logger.Fatal(args...) }
func (l *logrusLogger) Fatalf(format string, args ...interface{}) {
	l.logger.Fatalf(format, args...)
}

func (l *logrusLogger) WithField(key string, value interface{}) Logger {
	return &entryLogger{entry: l.logger.WithField(key, value)}
}

func (l *logrusLogger) WithFields(fields Fields) Logger {
	return &entryLogger{entry: l.logger.WithFields(logrus.Fields(fields))}
}

func (l *logrusLogger) WithError(err error) Logger {
	return &entryLogger{entry: l.logger.WithError(err)}
}

func (l *logrusLogger) WithComponent(component string) Logger {
	return &entryLogger{entry: l.logger.WithField("component", component)}
}

// entryLogger wraps a logrus.Entry so chained WithX calls keep their fields
type entryLogger struct {
	entry *logrus.Entry
}

func (l *entryLogger) Debug(args ...interface{}) { l.entry.Debug(args...) }
func (l *entryLogger) Debugf(format string, args ...interface{}) {
	l.entry.Debugf(format, args...)
}
func (l *entryLogger) Info(args ...interface{}) { l.entry.Info(args...) }
func (l *entryLogger) Infof(format string, args ...interface{}) {
	l.entry.Infof(format, args...)
}
func (l *entryLogger) Warn(args ...interface{}) { l.entry.Warn(args...) }
func (l *entryLogger) Warnf(format string, args ...interface{}) {
	l.entry.Warnf(format, args...)
}
func (l *entryLogger) Error(args ...interface{}) { l.entry.Error(args...) }
func (l *entryLogger) Errorf(format string, args ...interface{}) {
	l.entry.Errorf(format, args...)
}
func (l *entryLogger) Fatal(args ...interface{}) { l.entry.Fatal(args...) }
func (l *entryLogger) Fatalf(format string, args ...interface{}) {
	l.entry.Fatalf(format, args...)
}

func (l *entryLogger) WithField(key string, value interface{}) Logger {
	return &entryLogger{entry: l.entry.WithField(key, value)}
}

func (l *entryLogger) WithFields(fields Fields) Logger {
	return &entryLogger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

func (l *entryLogger) WithError(err error) Logger {
	return &entryLogger{entry: l.entry.WithError(err)}
}

func (l *entryLogger) WithComponent(component string) Logger {
	return &entryLogger{entry: l.entry.WithField("component", component)}
}

// Global logger instance
var globalLogger Logger

func init() {
	logger, err := NewLogger(DefaultConfig())
	if err != nil {
		// Fall back to a bare logrus logger
		fallback := logrus.New()
		fallback.SetLevel(logrus.InfoLevel)
		globalLogger = &logrusLogger{logger: fallback, config: DefaultConfig()}
		return
	}
	globalLogger = logger
}

// SetGlobalLogger sets the global logger instance
func SetGlobalLogger(logger Logger) {
	globalLogger = logger
}

// GetGlobalLogger returns the global logger instance
func GetGlobalLogger() Logger {
	return globalLogger
}

// ParseLevel converts a string into a Level, defaulting to info
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	case "fatal":
		return FatalLevel
	default:
		return InfoLevel
	}
}

// Convenience functions using the global logger

func Debug(args ...interface{})                 { globalLogger.Debug(args...) }
func Debugf(format string, args ...interface{}) { globalLogger.Debugf(format, args...) }
func Info(args ...interface{})                  { globalLogger.Info(args...) }
func Infof(format string, args ...interface{})  { globalLogger.Infof(format, args...) }
func Warn(args ...interface{})                  { globalLogger.Warn(args...) }
func Warnf(format string, args ...interface{})  { globalLogger.Warnf(format, args...) }
func Error(args ...interface{})                 { globalLogger.Error(args...) }
func Errorf(format string, args ...interface{}) { globalLogger.Errorf(format, args...) }

// WithField returns the global logger with an attached field
func WithField(key string, value interface{}) Logger {
	return globalLogger.WithField(key, value)
}

// WithFields returns the global logger with attached fields
func WithFields(fields Fields) Logger {
	return globalLogger.WithFields(fields)
}

// WithError returns the global logger with an attached error
func WithError(err error) Logger {
	return globalLogger.WithError(err)
}

// WithComponent returns the global logger tagged with a component name
func WithComponent(component string) Logger {
	return globalLogger.WithComponent(component)
}
