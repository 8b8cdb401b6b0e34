// Package logger is a small leveled logger writing timestamped lines to
// a file, or to stderr when no file is configured.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Level filters which messages reach the sink.
type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelNone
)

var levelNames = map[Level]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
	LevelNone:  "NONE",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseLevel maps a config string to a Level. Unknown values fall back
// to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "none":
		return LevelNone
	default:
		return LevelInfo
	}
}

// Logger writes leveled lines to one sink. Safe for concurrent use.
type Logger struct {
	level atomic.Int32
	mu    sync.Mutex
	out   io.Writer
	file  *os.File
}

var (
	global     *Logger
	globalOnce sync.Once
)

// Init sets up the global logger. Later calls are no-ops.
func Init(level Level, path string) error {
	var err error
	globalOnce.Do(func() {
		global, err = New(level, path)
	})
	return err
}

// New creates a logger appending to the file at path. An empty path
// selects stderr; LevelNone silences the logger entirely.
func New(level Level, path string) (*Logger, error) {
	l := &Logger{}
	l.level.Store(int32(level))

	switch {
	case level == LevelNone:
		l.out = io.Discard
	case path == "":
		l.out = os.Stderr
	default:
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		l.file = file
		l.out = file
	}

	return l, nil
}

// Global returns the global logger, silently discarding output when Init
// was never called.
func Global() *Logger {
	globalOnce.Do(func() {
		global = &Logger{out: io.Discard}
		global.level.Store(int32(LevelNone))
	})
	return global
}

// SetLevel changes the filter at runtime.
func (l *Logger) SetLevel(level Level) {
	l.level.Store(int32(level))
}

func (l *Logger) write(level Level, format string, args ...interface{}) {
	if level < Level(l.level.Load()) {
		return
	}

	line := fmt.Sprintf("%s [%s] %s\n",
		time.Now().Format("2006-01-02 15:04:05.000"),
		level.String(),
		fmt.Sprintf(format, args...))

	l.mu.Lock()
	defer l.mu.Unlock()
	io.WriteString(l.out, line)
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.write(LevelDebug, format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.write(LevelInfo, format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.write(LevelWarn, format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.write(LevelError, format, args...)
}

// Close releases the file sink, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Package-level helpers log through the global logger.

func Debug(format string, args ...interface{}) {
	Global().Debug(format, args...)
}

func Info(format string, args ...interface{}) {
	Global().Info(format, args...)
}

func Warn(format string, args ...interface{}) {
	Global().Warn(format, args...)
}

func Error(format string, args ...interface{}) {
	Global().Error(format, args...)
}
