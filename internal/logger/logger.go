package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level represents the logging level
type Level int

const (
	// DEBUG level for detailed debugging information
	DEBUG Level = iota
	// INFO level for informational messages
	INFO
	// WARN level for warning messages
	WARN
	// ERROR level for error messages
	ERROR
)

// String returns the string representation of the level
func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) slogLevel() slog.Level {
	switch l {
	case DEBUG:
		return slog.LevelDebug
	case WARN:
		return slog.LevelWarn
	case ERROR:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLevel maps "debug", "info", "warn" and "error" to a Level
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG, nil
	case "", "info":
		return INFO, nil
	case "warn", "warning":
		return WARN, nil
	case "error":
		return ERROR, nil
	default:
		return INFO, fmt.Errorf("unknown log level: %q", s)
	}
}

// FilePrefix is the prefix of daily log file names
const FilePrefix = "ezdictate"

// Logger writes structured records to a daily rotated file
type Logger struct {
	mu            sync.Mutex
	file          *os.File
	console       io.Writer
	logDir        string
	currentDay    string
	retentionDays int

	level *slog.LevelVar
	slog  *slog.Logger
}

// Config holds logger configuration
type Config struct {
	LogDir        string
	Level         Level
	RetentionDays int
	// Console, when set, receives a copy of every record
	Console io.Writer
}

// DefaultConfig returns the default logger configuration
func DefaultConfig(appDir string) Config {
	return Config{
		LogDir:        filepath.Join(appDir, "logs"),
		Level:         INFO,
		RetentionDays: 7,
	}
}

// New creates a new logger
func New(config Config) (*Logger, error) {
	l := &Logger{
		logDir:        config.LogDir,
		retentionDays: config.RetentionDays,
		console:       config.Console,
		level:         new(slog.LevelVar),
	}
	l.level.Set(config.Level.slogLevel())

	if err := l.rotate(time.Now().Format("20060102")); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	l.slog = slog.New(slog.NewTextHandler(l, &slog.HandlerOptions{Level: l.level}))
	return l, nil
}

// Discard returns a slog.Logger that drops everything
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Slog returns the structured logger backed by this file
func (l *Logger) Slog() *slog.Logger {
	return l.slog
}

// Write implements io.Writer for the slog handler, rotating at day change
func (l *Logger) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	today := time.Now().Format("20060102")
	if today != l.currentDay {
		if err := l.rotate(today); err != nil {
			// Can't log this error since logging is failing
			fmt.Fprintf(os.Stderr, "Failed to rotate log: %v\n", err)
		}
	}

	if l.console != nil {
		l.console.Write(p)
	}
	if l.file == nil {
		return len(p), nil
	}
	return l.file.Write(p)
}

// rotate opens the file for day. Callers hold l.mu except during New.
func (l *Logger) rotate(day string) error {
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}

	if err := os.MkdirAll(l.logDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	filePath := filepath.Join(l.logDir, fmt.Sprintf("%s-%s.log", FilePrefix, day))
	file, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	l.file = file
	l.currentDay = day

	if err := l.cleanOldLogs(); err != nil {
		fmt.Fprintf(file, "failed to clean old logs: %v\n", err)
	}

	return nil
}

// cleanOldLogs deletes log files older than retentionDays
func (l *Logger) cleanOldLogs() error {
	cutoffDate := time.Now().AddDate(0, 0, -l.retentionDays)

	entries, err := os.ReadDir(l.logDir)
	if err != nil {
		return fmt.Errorf("failed to read log directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".log" {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoffDate) {
			// Continue even if we can't delete a file
			_ = os.Remove(filepath.Join(l.logDir, entry.Name()))
		}
	}

	return nil
}

// Debugf logs a formatted debug message
func (l *Logger) Debugf(format string, v ...interface{}) {
	l.slog.Debug(fmt.Sprintf(format, v...))
}

// Infof logs a formatted informational message
func (l *Logger) Infof(format string, v ...interface{}) {
	l.slog.Info(fmt.Sprintf(format, v...))
}

// Warnf logs a formatted warning message
func (l *Logger) Warnf(format string, v ...interface{}) {
	l.slog.Warn(fmt.Sprintf(format, v...))
}

// Errorf logs a formatted error message
func (l *Logger) Errorf(format string, v ...interface{}) {
	l.slog.Error(fmt.Sprintf(format, v...))
}

// Close closes the log file
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// SetLevel sets the logging level
func (l *Logger) SetLevel(level Level) {
	l.level.Set(level.slogLevel())
}

// GetLevel returns the current logging level
func (l *Logger) GetLevel() Level {
	switch l.level.Level() {
	case slog.LevelDebug:
		return DEBUG
	case slog.LevelWarn:
		return WARN
	case slog.LevelError:
		return ERROR
	default:
		return INFO
	}
}
