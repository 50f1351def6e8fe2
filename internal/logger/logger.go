// Package logger provides the process-wide structured logger used by the
// session FSM, acceptor, and client stub. It is a trimmed rendition of the
// teacher's internal/logger package: the same level/format configuration and
// context-scoped field propagation, built on log/slog, with the teacher's
// custom ANSI color text handler dropped since a headless RPC library has no
// terminal to color for (see DESIGN.md).
package logger

import (
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// Level mirrors slog's levels under the names used in configuration.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Config controls the process-wide logger.
type Config struct {
	// Level is one of DEBUG, INFO, WARN, ERROR. Defaults to INFO.
	Level string
	// Format is "text" or "json". Defaults to "text".
	Format string
}

var (
	currentLevel  atomic.Int32
	currentFormat atomic.Value // stores "text" or "json"

	mu      sync.RWMutex
	slogger *slog.Logger
)

func init() {
	currentLevel.Store(int32(LevelInfo))
	currentFormat.Store("text")
	reconfigure("text")
}

func toSlogLevel(l Level) slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func reconfigure(format string) {
	currentFormat.Store(format)
	levelVar := new(slog.LevelVar)
	levelVar.Set(toSlogLevel(Level(currentLevel.Load())))
	opts := &slog.HandlerOptions{Level: levelVar}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	mu.Lock()
	slogger = slog.New(handler)
	mu.Unlock()
}

// Init applies cfg to the process-wide logger. Safe to call more than once;
// later calls replace earlier configuration.
func Init(cfg Config) {
	if cfg.Level != "" {
		SetLevel(cfg.Level)
	}
	format := strings.ToLower(cfg.Format)
	if format != "json" {
		format = "text"
	}
	reconfigure(format)
}

// SetLevel sets the minimum level that will be emitted. Unknown levels are
// ignored.
func SetLevel(level string) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		currentLevel.Store(int32(LevelDebug))
	case "INFO":
		currentLevel.Store(int32(LevelInfo))
	case "WARN":
		currentLevel.Store(int32(LevelWarn))
	case "ERROR":
		currentLevel.Store(int32(LevelError))
	default:
		return
	}
	format, _ := currentFormat.Load().(string)
	reconfigure(format)
}

func get() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return slogger
}

// Debug logs msg at debug level with structured key/value args.
func Debug(msg string, args ...any) { get().Debug(msg, args...) }

// Info logs msg at info level with structured key/value args.
func Info(msg string, args ...any) { get().Info(msg, args...) }

// Warn logs msg at warn level with structured key/value args.
func Warn(msg string, args ...any) { get().Warn(msg, args...) }

// Error logs msg at error level with structured key/value args.
func Error(msg string, args ...any) { get().Error(msg, args...) }

// With returns a logger with args pre-bound, for attaching per-session
// fields without repeating them on every call site.
func With(args ...any) *slog.Logger {
	return get().With(args...)
}
