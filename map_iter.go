package safemap

import (
	"cmp"
	"iter"
)

// next returns the first entry whose key is greater than after, or the
// first entry at all when started is false. The structural lock is held
// only for the seek.
func (m *Map[K, V]) next(after K, started bool) *entry[K, V] {
	mu := m.structure()
	mu.RLock()
	defer mu.RUnlock()
	if m.tree == nil {
		return nil
	}
	var e *entry[K, V]
	visit := func(it item[K, V]) bool {
		if started && cmp.Compare(it.key, after) == 0 {
			return true
		}
		e = it.e
		return false
	}
	if started {
		m.tree.AscendGreaterOrEqual(item[K, V]{key: after}, visit)
	} else {
		m.tree.Ascend(visit)
	}
	return e
}

func visitWrite[K cmp.Ordered, V any](e *entry[K, V], yield func(K, *WriteLocked[V]) bool) bool {
	h := e.g.Lock()
	defer h.Unlock()
	if e.removed() || !h.v.valid {
		return true
	}
	s := h.v
	v := moveWrite(h, &s.value)
	defer v.Unlock()
	return yield(e.key, v)
}

func visitRead[K cmp.Ordered, V any](e *entry[K, V], yield func(K, *ReadLocked[V]) bool) bool {
	h := e.g.RLock()
	defer h.Unlock()
	if e.removed() || !h.v.valid {
		return true
	}
	s := h.v
	v := moveRead(h, &s.value)
	defer v.Unlock()
	return yield(e.key, v)
}

// All returns an iterator over the entries holding a value, in ascending
// key order, each yielded with its write lock held. The lock is released
// when the loop body returns, or earlier if the body unlocks the handle.
//
// The structural lock is taken only to step from one key to the next, so
// the traversal is weakly consistent: a key erased before the cursor
// reaches it is skipped, and a key inserted behind the cursor is not seen,
// while one inserted ahead of it may be. The value under a visited key is
// never modified by anyone else while the body runs.
//
// The body may call ReadLock, WriteLock, Emplace, Destroy, Erase and Clean
// on other keys of the same map, and other goroutines may Clean or Clear the
// map meanwhile.
func (m *Map[K, V]) All() iter.Seq2[K, *WriteLocked[V]] {
	return func(yield func(K, *WriteLocked[V]) bool) {
		var cur K
		started := false
		for {
			e := m.next(cur, started)
			if e == nil {
				return
			}
			cur, started = e.key, true
			if !visitWrite(e, yield) {
				return
			}
		}
	}
}

// AllRead is All with read handles. Other readers of a visited key are not
// blocked.
func (m *Map[K, V]) AllRead() iter.Seq2[K, *ReadLocked[V]] {
	return func(yield func(K, *ReadLocked[V]) bool) {
		var cur K
		started := false
		for {
			e := m.next(cur, started)
			if e == nil {
				return
			}
			cur, started = e.key, true
			if !visitRead(e, yield) {
				return
			}
		}
	}
}

// ForEach calls fn for every entry holding a value, with the same ordering
// and consistency as All.
func (m *Map[K, V]) ForEach(fn func(key K, v *WriteLocked[V])) {
	for k, v := range m.All() {
		fn(k, v)
	}
}

// ForEachRead calls fn for every entry holding a value with its read lock
// held.
func (m *Map[K, V]) ForEachRead(fn func(key K, v *ReadLocked[V])) {
	for k, v := range m.AllRead() {
		fn(k, v)
	}
}
