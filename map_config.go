package safemap

import (
	"log/slog"
)

// ============================================================================
// Configuration
// ============================================================================

// defaultDegree is the B-tree degree used for entry storage.
const defaultDegree = 32

// MapConfig defines configurable options for Map initialization.
// A Collection applies the same options to every map it registers.
type MapConfig struct {
	// spin selects SpinRWLock for the structural lock and every entry
	// lock instead of sync.RWMutex.
	spin bool

	// logger receives contract violations (error level) and sweep
	// statistics (debug level). If nil, nothing is logged.
	logger *slog.Logger

	// degree is the degree of the B-tree that stores the entries.
	// If zero or less than 2, defaultDegree is used.
	degree int
}

// WithSpinLock configures spin-based reader/writer locks (SpinRWLock)
// for the structural lock and the entry locks.
//
// Spinning wins when entries are held for a few field accesses, and
// loses badly when visitors block or run long. Disabled by default.
func WithSpinLock() func(*MapConfig) {
	return func(c *MapConfig) {
		c.spin = true
	}
}

// WithLogger sets the logger used to report contract violations before
// the violating call panics, and to trace Clean sweeps at debug level.
//
// Usage:
//
//	m := NewMap[int, Entity](WithLogger(slog.Default()))
func WithLogger(logger *slog.Logger) func(*MapConfig) {
	return func(c *MapConfig) {
		c.logger = logger
	}
}

// WithDegree sets the degree of the B-tree holding the entries.
// Larger degrees trade insertion cost for shallower lookups.
// Values below 2 are ignored.
func WithDegree(degree int) func(*MapConfig) {
	return func(c *MapConfig) {
		if degree >= 2 {
			c.degree = degree
		}
	}
}

func (c *MapConfig) newLocker() RWLocker {
	if c.spin {
		return new(SpinRWLock)
	}
	return nil
}

func (c *MapConfig) treeDegree() int {
	if c.degree < 2 {
		return defaultDegree
	}
	return c.degree
}

var discardLogger = slog.New(slog.DiscardHandler)

func (c *MapConfig) log() *slog.Logger {
	if c.logger == nil {
		return discardLogger
	}
	return c.logger
}
