package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Environment variables controlling the file logger.
const (
	EnvDebugFile  = "BLOCKFIT_DEBUG_FILE"
	EnvDebugLevel = "BLOCKFIT_DEBUG_LEVEL"
)

// Logger interface for dependency injection and testing
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
	WithGroup(name string) Logger
	SetLevel(level slog.Level)
}

// Config holds logger configuration
type Config struct {
	Level   slog.Level
	Format  Format
	Output  io.Writer
	AddTime bool
}

// Format represents the output format
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

// slogLogger wraps slog.Logger. The level lives in a shared LevelVar so
// loggers derived with With/WithGroup follow SetLevel on their parent.
type slogLogger struct {
	logger *slog.Logger
	level  *slog.LevelVar
}

// NewLogger creates a new logger with the given configuration
func NewLogger(config Config) Logger {
	if config.Output == nil {
		config.Output = os.Stderr
	}

	level := new(slog.LevelVar)
	level.Set(config.Level)

	opts := &slog.HandlerOptions{Level: level}
	if !config.AddTime {
		opts.ReplaceAttr = func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		}
	}

	var handler slog.Handler
	switch config.Format {
	case FormatJSON:
		handler = slog.NewJSONHandler(config.Output, opts)
	default:
		handler = slog.NewTextHandler(config.Output, opts)
	}

	return &slogLogger{
		logger: slog.New(handler),
		level:  level,
	}
}

// NewDefaultLogger creates a logger with sensible defaults for CLI tools
func NewDefaultLogger() Logger {
	return NewLogger(Config{
		Level:  slog.LevelInfo,
		Format: FormatText,
		Output: os.Stderr,
	})
}

// NewQuietLogger creates a logger that only shows errors
func NewQuietLogger() Logger {
	return NewLogger(Config{
		Level:  slog.LevelError,
		Format: FormatText,
		Output: os.Stderr,
	})
}

// NewVerboseLogger creates a logger that shows debug information
func NewVerboseLogger() Logger {
	return NewLogger(Config{
		Level:  slog.LevelDebug,
		Format: FormatText,
		Output: os.Stderr,
	})
}

// NewDisabledLogger creates a logger that discards all output (useful for tests)
func NewDisabledLogger() Logger {
	return NewLogger(Config{
		Level:  slog.Level(1000),
		Format: FormatText,
		Output: io.Discard,
	})
}

// ParseLevel maps a level name to a slog level. Unknown names map to fallback.
func ParseLevel(name string, fallback slog.Level) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return fallback
	}
}

// GetDebugFilePath returns the debug file path from BLOCKFIT_DEBUG_FILE or a temp file
func GetDebugFilePath(defaultFileName string) string {
	debugFile := os.Getenv(EnvDebugFile)
	if debugFile == "" {
		debugFile = filepath.Join(os.TempDir(), defaultFileName)
	}
	return debugFile
}

// NewFileLoggerFromEnv creates a file-based logger. The level comes from
// BLOCKFIT_DEBUG_LEVEL and defaults to errors only.
func NewFileLoggerFromEnv(defaultFileName string) Logger {
	debugFile := GetDebugFilePath(defaultFileName)
	logLevel := ParseLevel(os.Getenv(EnvDebugLevel), slog.LevelError)

	file, err := os.OpenFile(debugFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return NewLogger(Config{Level: logLevel, Format: FormatText, Output: io.Discard})
	}
	return NewLogger(Config{
		Level:   logLevel,
		Format:  FormatText,
		Output:  file,
		AddTime: true,
	})
}

func (l *slogLogger) Debug(msg string, args ...any) {
	l.logger.Debug(msg, args...)
}

func (l *slogLogger) Info(msg string, args ...any) {
	l.logger.Info(msg, args...)
}

func (l *slogLogger) Warn(msg string, args ...any) {
	l.logger.Warn(msg, args...)
}

func (l *slogLogger) Error(msg string, args ...any) {
	l.logger.Error(msg, args...)
}

// With returns a logger with additional attributes
func (l *slogLogger) With(args ...any) Logger {
	return &slogLogger{logger: l.logger.With(args...), level: l.level}
}

// WithGroup returns a logger with a group name
func (l *slogLogger) WithGroup(name string) Logger {
	return &slogLogger{logger: l.logger.WithGroup(name), level: l.level}
}

// SetLevel updates the logger's level dynamically
func (l *slogLogger) SetLevel(level slog.Level) {
	l.level.Set(level)
}

var (
	globalMu     sync.RWMutex
	globalLogger = NewDefaultLogger()
)

// SetGlobalLogger sets the logger used by the package-level helpers.
// Only the CLI should call this; library types take a Logger explicitly.
func SetGlobalLogger(logger Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = logger
}

// GetGlobalLogger returns the global logger instance
func GetGlobalLogger() Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

func Debug(msg string, args ...any) {
	GetGlobalLogger().Debug(msg, args...)
}

func Info(msg string, args ...any) {
	GetGlobalLogger().Info(msg, args...)
}

func Warn(msg string, args ...any) {
	GetGlobalLogger().Warn(msg, args...)
}

func Error(msg string, args ...any) {
	GetGlobalLogger().Error(msg, args...)
}

// NewComponentLogger tags the global logger with a component name.
func NewComponentLogger(component string) Logger {
	return GetGlobalLogger().With("component", component)
}

// NewRunLogger tags a logger with the identity of one optimization run.
func NewRunLogger(base Logger, runID, label string) Logger {
	return base.With("run_id", runID, "label", label)
}
