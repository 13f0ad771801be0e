// Package log wraps zerolog with named component loggers used across the
// pipeline. Components obtain a logger once at construction and attach
// structured fields on each event; output defaults to stderr and can be
// reconfigured globally by the CLI entry point.
package log

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// Field keys shared by all components so log lines aggregate cleanly.
const (
	ComponentKey = "component"
	OperationKey = "op"
	SamplesKey   = "samples"
	FeaturesKey  = "features"
	RowsKey      = "rows"
	DurationKey  = "duration_ms"
	SeedKey      = "seed"
	ModelKey     = "model"
	StrategyKey  = "strategy"
	ScoreKey     = "score"
)

var (
	mu   sync.RWMutex
	root = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
)

// SetOutput replaces the global log destination.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	root = zerolog.New(w).With().Timestamp().Logger()
}

// SetLevel sets the global log level ("debug", "info", "warn", "error").
func SetLevel(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

// GetLogger returns the root logger.
func GetLogger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root
}

// GetLoggerWithName returns a logger tagged with a component name.
func GetLoggerWithName(name string) zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root.With().Str(ComponentKey, name).Logger()
}
