// Package logger writes structured logs to a file. The terminal belongs to
// the TUI, so nothing is ever logged to stdout or stderr.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu      sync.RWMutex
	base    = zerolog.Nop()
	logFile *os.File
)

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(name string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

// Init opens path for appending and routes all component loggers to it.
// Calling Init again replaces the previous file.
func Init(path, level string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	mu.Lock()
	if logFile != nil {
		logFile.Close()
	}
	logFile = f
	base = newLogger(f, ParseLevel(level))
	mu.Unlock()

	Component("logger").Info().Str("path", path).Msg("logger initialized")
	return nil
}

// SetOutput routes logs to w. Intended for tests.
func SetOutput(w io.Writer, level string) {
	mu.Lock()
	defer mu.Unlock()
	base = newLogger(w, ParseLevel(level))
}

func newLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// Component returns a logger tagged with the given component name.
//
//	log := logger.Component("api")
//	log.Error().Err(err).Str("id", id).Msg("get conversation")
func Component(name string) *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := base.With().Str("component", name).Logger()
	return &l
}

// Close flushes and closes the log file. Later log calls are dropped.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	base = zerolog.Nop()
}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
}
