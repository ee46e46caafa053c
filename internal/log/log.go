// Package log provides structured logging for reactune on top of zerolog.
package log

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu     sync.RWMutex
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger()
)

// Init configures the global logger. Valid levels are "debug", "info", "warn"
// and "error"; anything else means info. Output is JSON when REACTUNE_ENV is
// "production" and a console format otherwise. A nil w means stderr.
func Init(level string, w io.Writer) {
	if w == nil {
		w = os.Stderr
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	if os.Getenv("REACTUNE_ENV") != "production" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}

	mu.Lock()
	defer mu.Unlock()
	logger = zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// L returns the global logger.
func L() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := logger
	return &l
}

// With returns a child logger tagged with a component name.
func With(component string) zerolog.Logger {
	return L().With().Str("component", component).Logger()
}

// Nop returns a logger that discards everything. Tests use it to keep output
// quiet.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
