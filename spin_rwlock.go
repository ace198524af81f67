package safemap

import (
	"sync"
	"sync/atomic"
)

// RWLocker is the reader/writer lock a Map uses for its structural lock and
// for every entry lock. *sync.RWMutex and *SpinRWLock implement it.
type RWLocker interface {
	sync.Locker
	RLock()
	RUnlock()
}

var (
	_ RWLocker = (*sync.RWMutex)(nil)
	_ RWLocker = (*SpinRWLock)(nil)
)

// SpinRWLock is a spin-based Reader-Writer lock backed by a uintptr.
// It is writer-preferred to prevent reader starvation.
//
// It suits maps whose entries are held for a handful of field accesses.
// Visitors that run for a long time should stay on the default
// sync.RWMutex, which parks waiters instead of spinning.
//
// The zero value is an unlocked lock.
type SpinRWLock uintptr

const (
	rwWriteMask = 1
	rwReadShift = 2
	rwReadUnit  = 1 << rwReadShift
	rwFreeState = 2 // 2 (binary 10) means initialized, no writer, no readers
)

// Lock acquires the write lock.
// It spins until the lock is free.
func (l *SpinRWLock) Lock() {
	var spins int
	for {
		// 1. Acquire Write Bit (Bit 0). This blocks NEW readers.
		s := atomic.LoadUintptr((*uintptr)(l))
		if s&rwWriteMask == 0 {
			if atomic.CompareAndSwapUintptr((*uintptr)(l), s, s|rwWriteMask) {
				// 2. Wait for existing readers (bits 2+) to drain.
				for {
					if atomic.LoadUintptr((*uintptr)(l))>>rwReadShift == 0 {
						return
					}
					delay(&spins)
				}
			}
		}
		delay(&spins)
	}
}

// Unlock releases the write lock.
// It resets the state to rwFreeState (2), indicating "initialized and free".
func (l *SpinRWLock) Unlock() {
	atomic.StoreUintptr((*uintptr)(l), rwFreeState)
}

// RLock acquires a read lock.
func (l *SpinRWLock) RLock() {
	var spins int
	for {
		s := atomic.LoadUintptr((*uintptr)(l))
		if s&rwWriteMask == 0 { // No writer
			if atomic.CompareAndSwapUintptr((*uintptr)(l), s, s+rwReadUnit) {
				return
			}
		}
		delay(&spins)
	}
}

// RUnlock releases a read lock.
func (l *SpinRWLock) RUnlock() {
	atomic.AddUintptr((*uintptr)(l), ^uintptr(rwReadUnit-1))
}
