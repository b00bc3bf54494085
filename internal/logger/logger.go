package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
)

// Level is a minimum severity; messages below it are dropped.
type Level int32

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}

func (l Level) String() string {
	if l < DebugLevel || l > FatalLevel {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// Logger is the interface for logging operations
type Logger interface {
	Debug(format string, v ...any)
	Info(format string, v ...any)
	Warn(format string, v ...any)
	Error(format string, v ...any)
	Fatal(format string, v ...any)
	SetLevel(level Level)
	// With returns a logger that prefixes every message with scope.
	// The returned logger shares output and level with its parent.
	With(scope string) Logger
}

// LogConfig holds configuration for the logger
type LogConfig struct {
	// Output destination: "file" or "stderr"
	Output string
	// Log level: "debug", "info", "warn", "error", "fatal"
	Level string
	// FilePath for file output (only used when Output is "file")
	FilePath string
}

// standardLogger implements the Logger interface using Go's standard log package
type standardLogger struct {
	logger *log.Logger
	level  *atomic.Int32
	scope  string
}

// NewLogger creates a logger from config, filling unset fields from
// LOG_OUTPUT, LOG_LEVEL and LOG_FILE_PATH.
func NewLogger(config LogConfig) (Logger, error) {
	output := firstNonEmpty(config.Output, os.Getenv("LOG_OUTPUT"), detectEnvironment())
	writer, err := openWriter(output, firstNonEmpty(config.FilePath, os.Getenv("LOG_FILE_PATH")))
	if err != nil {
		return nil, err
	}
	level := ParseLevel(firstNonEmpty(config.Level, os.Getenv("LOG_LEVEL")))
	return newStandardLogger(writer, log.LstdFlags, level), nil
}

func openWriter(output, filePath string) (io.Writer, error) {
	switch output {
	case "stderr":
		return os.Stderr, nil
	case "file":
	default:
		return nil, fmt.Errorf("invalid log output: %s (expected 'file' or 'stderr')", output)
	}

	if filePath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		filePath = filepath.Join(homeDir, ".casebrief", "casebrief.log")
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return file, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// NewWriterLogger creates a logger writing to w. Useful for CLIs and tests
// that need to inspect output.
func NewWriterLogger(w io.Writer, level Level) Logger {
	return newStandardLogger(w, 0, level)
}

// NewNoOpLogger creates a logger that discards all output (useful for tests)
func NewNoOpLogger() Logger {
	return newStandardLogger(io.Discard, 0, FatalLevel)
}

func newStandardLogger(w io.Writer, flags int, level Level) *standardLogger {
	lvl := &atomic.Int32{}
	lvl.Store(int32(level))
	return &standardLogger{
		logger: log.New(w, "", flags),
		level:  lvl,
	}
}

// detectEnvironment sends container logs to stderr and local runs to a file.
func detectEnvironment() string {
	_, err := os.Stat("/.dockerenv")
	if err == nil || os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return "stderr"
	}
	return "file"
}

// ParseLevel converts a level name to a Level, defaulting to InfoLevel.
func ParseLevel(level string) Level {
	name := strings.ToUpper(strings.TrimSpace(level))
	if name == "WARNING" {
		return WarnLevel
	}
	for i, n := range levelNames {
		if n == name {
			return Level(i)
		}
	}
	return InfoLevel
}

// SetLevel sets the minimum log level
func (l *standardLogger) SetLevel(level Level) {
	l.level.Store(int32(level))
}

func (l *standardLogger) With(scope string) Logger {
	if l.scope != "" {
		scope = l.scope + " " + scope
	}
	return &standardLogger{logger: l.logger, level: l.level, scope: scope}
}

func (l *standardLogger) Debug(format string, v ...any) { l.log(DebugLevel, format, v...) }
func (l *standardLogger) Info(format string, v ...any) { l.log(InfoLevel, format, v...) }
func (l *standardLogger) Warn(format string, v ...any) { l.log(WarnLevel, format, v...) }
func (l *standardLogger) Error(format string, v ...any) { l.log(ErrorLevel, format, v...) }

// Fatal logs regardless of level and exits.
func (l *standardLogger) Fatal(format string, v ...any) {
	l.write(FatalLevel, format, v...)
	os.Exit(1)
}

func (l *standardLogger) log(level Level, format string, v ...any) {
	if Level(l.level.Load()) <= level {
		l.write(level, format, v...)
	}
}

func (l *standardLogger) write(level Level, format string, v ...any) {
	prefix := "[" + level.String() + "] "
	if l.scope != "" {
		prefix += "[" + l.scope + "] "
	}
	l.logger.Print(prefix + fmt.Sprintf(format, v...))
}
