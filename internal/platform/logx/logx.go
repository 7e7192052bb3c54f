// Package logx wraps the process-wide structured logger. A zerolog
// logger, configured once at startup, is one of the few mutable
// globals the engine allows (spec §9: "a process-wide logger
// (configurable)").
package logx

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu     sync.RWMutex
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
)

// Configure replaces the process-wide logger. Call once at startup;
// safe to call again in tests that want a captured writer.
func Configure(w io.Writer, level zerolog.Level, json bool) {
	mu.Lock()
	defer mu.Unlock()

	var out io.Writer = w
	if !json {
		out = zerolog.ConsoleWriter{Out: w}
	}
	logger = zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// L returns the current process-wide logger.
func L() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return &logger
}

// Named returns a child logger tagged with a "component" field, the
// convention every package below uses so provider/circuit/health
// events can be filtered by component in aggregate log storage.
func Named(component string) zerolog.Logger {
	return L().With().Str("component", component).Logger()
}
