package safemap

import "sync"

// Guarded owns one value and the reader/writer lock covering it. The value
// is only reachable through the handles returned by RLock and Lock.
//
// The zero value is ready to use and guards the zero T with a sync.RWMutex.
// A Guarded must not be copied after first use.
type Guarded[T any] struct {
	_     noCopy
	rw    sync.RWMutex
	mu    RWLocker // set at construction only; nil selects rw
	value T
}

// NewGuarded returns a Guarded holding v. Of the MapConfig options only
// WithSpinLock has an effect here.
func NewGuarded[T any](v T, options ...func(*MapConfig)) *Guarded[T] {
	var cfg MapConfig
	for _, o := range options {
		o(&cfg)
	}
	g := &Guarded[T]{value: v}
	if cfg.spin {
		g.mu = new(SpinRWLock)
	}
	return g
}

func (g *Guarded[T]) locker() RWLocker {
	if g.mu != nil {
		return g.mu
	}
	return &g.rw
}

// RLock blocks until the value can be read and returns a shared handle.
func (g *Guarded[T]) RLock() *ReadLocked[T] {
	return newReadLocked(&g.value, g.locker())
}

// Lock blocks until no other handle is held and returns an exclusive handle.
func (g *Guarded[T]) Lock() *WriteLocked[T] {
	return newWriteLocked(&g.value, g.locker())
}
