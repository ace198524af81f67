package safemap

import "reflect"

// ReadLocked is a shared-mode handle: a pointer to a guarded value together
// with the read lock that covers it. It is the only way to read a guarded
// value.
//
// A nil *ReadLocked or a zero ReadLocked is the null handle: it holds no lock
// and Valid reports false. A valid handle holds its lock until Unlock, after
// which it is null again. Unlock is nil-safe and idempotent, so
//
//	h := m.ReadLock(k)
//	defer h.Unlock()
//	if h.Valid() {
//		use(h.Load())
//	}
//
// is always correct.
//
// A handle must not be copied and must not be shared between goroutines.
type ReadLocked[T any] struct {
	_  noCopy
	v  *T
	mu RWLocker
}

// WriteLocked is the exclusive-mode counterpart of ReadLocked. It is a
// distinct type: there is no conversion between read and write handles.
type WriteLocked[T any] struct {
	_  noCopy
	v  *T
	mu RWLocker
}

func newReadLocked[T any](v *T, mu RWLocker) *ReadLocked[T] {
	mu.RLock()
	return &ReadLocked[T]{v: v, mu: mu}
}

func newWriteLocked[T any](v *T, mu RWLocker) *WriteLocked[T] {
	mu.Lock()
	return &WriteLocked[T]{v: v, mu: mu}
}

// Valid reports whether the handle is non-null and still holds its lock.
func (l *ReadLocked[T]) Valid() bool {
	return l != nil && l.v != nil
}

// Load returns a copy of the guarded value.
// It panics with a *ContractError if the handle is null.
func (l *ReadLocked[T]) Load() T {
	if !l.Valid() {
		panic(nullHandle[T]("ReadLocked.Load"))
	}
	return *l.v
}

// Unlock releases the read lock and makes the handle null.
func (l *ReadLocked[T]) Unlock() {
	if l == nil || l.mu == nil {
		return
	}
	mu := l.mu
	l.v, l.mu = nil, nil
	mu.RUnlock()
}

// Valid reports whether the handle is non-null and still holds its lock.
func (l *WriteLocked[T]) Valid() bool {
	return l != nil && l.v != nil
}

// Get returns a pointer to the guarded value. The pointer is only meaningful
// until Unlock; copy out whatever must outlive the critical section.
// It panics with a *ContractError if the handle is null.
func (l *WriteLocked[T]) Get() *T {
	if !l.Valid() {
		panic(nullHandle[T]("WriteLocked.Get"))
	}
	return l.v
}

// Load returns a copy of the guarded value.
func (l *WriteLocked[T]) Load() T {
	if !l.Valid() {
		panic(nullHandle[T]("WriteLocked.Load"))
	}
	return *l.v
}

// Store replaces the guarded value.
func (l *WriteLocked[T]) Store(v T) {
	if !l.Valid() {
		panic(nullHandle[T]("WriteLocked.Store"))
	}
	*l.v = v
}

// Unlock releases the write lock and makes the handle null.
func (l *WriteLocked[T]) Unlock() {
	if l == nil || l.mu == nil {
		return
	}
	mu := l.mu
	l.v, l.mu = nil, nil
	mu.Unlock()
}

// moveRead transfers the lock tenure of src to a new handle over p, which
// must be covered by the same lock. src is left null.
func moveRead[U, T any](src *ReadLocked[T], p *U) *ReadLocked[U] {
	dst := &ReadLocked[U]{v: p, mu: src.mu}
	src.v, src.mu = nil, nil
	return dst
}

// moveWrite is moveRead for write handles.
func moveWrite[U, T any](src *WriteLocked[T], p *U) *WriteLocked[U] {
	dst := &WriteLocked[U]{v: p, mu: src.mu}
	src.v, src.mu = nil, nil
	return dst
}

func nullHandle[T any](op string) *ContractError {
	return &ContractError{Op: op, Type: reflect.TypeFor[T](), Err: ErrNullHandle}
}
