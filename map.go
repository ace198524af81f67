package safemap

import (
	"cmp"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/google/btree"

	"github.com/fburgerdev/safemap/internal/opt"
)

// Map is an ordered map whose entries are locked individually.
//
// Two lock tiers exist:
//   - the structural lock covers membership: which keys exist;
//   - every entry owns a lock covering its value and whether the value
//     is alive.
//
// An entry can exist without a value. Emplace constructs a value, Destroy
// drops it and keeps the key, Erase drops both, and Clean sweeps every key
// whose value is gone. ReadLock and WriteLock hand out locked access to one
// value at a time, so goroutines working on different keys never wait for
// each other.
//
// The structural lock is never held while waiting on an entry lock. Every
// entry carries an atomic state word; Clean, Erase and Clear flip it with a
// CAS under the exclusive structural lock instead of locking the entry, so a
// goroutine holding a handle may work on other keys while another goroutine
// sweeps the map. Clear waits for every outstanding handle and must not be
// called by a goroutine holding one.
//
// Usage recommendations:
//   - Direct declaration: var m Map[int, Entity]
//   - With options: NewMap[int, Entity](WithSpinLock())
//
// Notes:
//   - Map must not be copied after first use.
type Map[K cmp.Ordered, V any] struct {
	_    noCopy
	rw   sync.RWMutex
	mu   RWLocker // structural lock; nil selects rw
	tree *btree.BTreeG[item[K, V]]
	cfg  MapConfig
	id   atomic.Uint64
	live opt.Counter_
}

// item is the B-tree element; e is nil in search pivots.
type item[K cmp.Ordered, V any] struct {
	key K
	e   *entry[K, V]
}

// Entry states. entryLive is set and cleared only under the entry's write
// lock. entryRemoved is set only under the exclusive structural lock, when
// the entry leaves the tree; it is never cleared.
const (
	entryLive    uint32 = 1 << iota // the slot holds a value
	entryRemoved                    // the entry is no longer in the tree
)

type entry[K cmp.Ordered, V any] struct {
	key   K
	state atomic.Uint32
	g     Guarded[Slot[V]]
}

func (e *entry[K, V]) removed() bool {
	return e.state.Load()&entryRemoved != 0
}

// claim marks e live before a value is constructed into it. It fails once
// e has been removed; the caller holds the entry's write lock.
func (e *entry[K, V]) claim() bool {
	for {
		s := e.state.Load()
		if s&entryRemoved != 0 {
			return false
		}
		if s&entryLive != 0 || e.state.CompareAndSwap(s, s|entryLive) {
			return true
		}
	}
}

// sweep removes e if it holds no value. It never blocks on the entry lock;
// the caller holds the exclusive structural lock.
func (e *entry[K, V]) sweep() bool {
	return e.state.CompareAndSwap(0, entryRemoved)
}

func itemLess[K cmp.Ordered, V any](a, b item[K, V]) bool {
	return cmp.Less(a.key, b.key)
}

var mapIDs atomic.Uint64

// NewMap creates a new Map instance. Direct declaration is also
// supported and equals NewMap without options.
//
// Parameters:
//   - options: configuration options (WithSpinLock, WithLogger, WithDegree)
func NewMap[K cmp.Ordered, V any](options ...func(*MapConfig)) *Map[K, V] {
	m := &Map[K, V]{}
	for _, o := range options {
		o(&m.cfg)
	}
	m.mu = m.cfg.newLocker()
	return m
}

func (m *Map[K, V]) structure() RWLocker {
	if m.mu != nil {
		return m.mu
	}
	return &m.rw
}

// identity returns a process-unique, non-zero number for m.
func (m *Map[K, V]) identity() uint64 {
	if id := m.id.Load(); id != 0 {
		return id
	}
	m.id.CompareAndSwap(0, mapIDs.Add(1))
	return m.id.Load()
}

func (m *Map[K, V]) valueType() reflect.Type {
	return reflect.TypeFor[V]()
}

// fail reports a contract violation. Callers must not hold any lock.
func (m *Map[K, V]) fail(op string, key K, err error) {
	ce := &ContractError{Op: "Map." + op, Key: key, Type: m.valueType(), Err: err}
	m.cfg.log().Error("safemap: contract violation",
		"op", ce.Op, "key", key, "type", ce.Type.String(), "err", err)
	panic(ce)
}

// load finds the entry for key under the shared structural lock.
func (m *Map[K, V]) load(key K) *entry[K, V] {
	mu := m.structure()
	mu.RLock()
	defer mu.RUnlock()
	if m.tree == nil {
		return nil
	}
	if it, ok := m.tree.Get(item[K, V]{key: key}); ok {
		return it.e
	}
	return nil
}

// loadOrCreate finds or inserts the entry for key under the exclusive
// structural lock. A new entry has an empty slot.
func (m *Map[K, V]) loadOrCreate(key K) *entry[K, V] {
	mu := m.structure()
	mu.Lock()
	defer mu.Unlock()
	if m.tree == nil {
		m.tree = btree.NewG(m.cfg.treeDegree(), itemLess[K, V])
	}
	if it, ok := m.tree.Get(item[K, V]{key: key}); ok {
		return it.e
	}
	e := &entry[K, V]{key: key}
	e.g.mu = m.cfg.newLocker()
	m.tree.ReplaceOrInsert(item[K, V]{key: key, e: e})
	return e
}

// snapshot returns the current entries in key order.
func (m *Map[K, V]) snapshot() []*entry[K, V] {
	mu := m.structure()
	mu.RLock()
	defer mu.RUnlock()
	if m.tree == nil {
		return nil
	}
	entries := make([]*entry[K, V], 0, m.tree.Len())
	m.tree.Ascend(func(it item[K, V]) bool {
		entries = append(entries, it.e)
		return true
	})
	return entries
}

// construct and destroy keep the live counter and the entry state in step
// with slot validity. The caller holds the entry's write lock.
func (m *Map[K, V]) construct(s *Slot[V], v V) {
	if !s.valid {
		m.live.Add(1)
	}
	s.Construct(v)
}

func (m *Map[K, V]) destroy(e *entry[K, V], s *Slot[V]) {
	if s.valid {
		m.live.Add(-1)
		s.Destroy()
		e.state.And(^entryLive)
	}
}

// emplaceEntry builds the value once through get, then constructs it into e
// unless e has been removed in the meantime.
func (m *Map[K, V]) emplaceEntry(e *entry[K, V], get func() V) bool {
	h := e.g.Lock()
	defer h.Unlock()
	if e.removed() {
		return false
	}
	v := get()
	if !e.claim() {
		return false
	}
	m.construct(h.v, v)
	return true
}

func (m *Map[K, V]) destroyEntry(e *entry[K, V]) {
	h := e.g.Lock()
	defer h.Unlock()
	m.destroy(e, h.v)
}

// Emplace stores value under key. A missing key is inserted; an existing
// key has its value replaced, and the old value is destroyed first.
//
// The structural lock is held only to find or insert the entry; the value
// is constructed under the entry's write lock.
func (m *Map[K, V]) Emplace(key K, value V) {
	m.EmplaceFunc(key, func() V { return value })
}

// EmplaceFunc is Emplace with the value built by fn while the entry's write
// lock is held. fn must not call into m.
func (m *Map[K, V]) EmplaceFunc(key K, fn func() V) {
	var (
		v     V
		built bool
	)
	get := func() V {
		if !built {
			v, built = fn(), true
		}
		return v
	}
	for {
		// The entry may be swept by Clean, Erase or Clear between lookup and
		// claim; emplaceEntry reports that and we start over with a fresh
		// entry, keeping the value already built.
		if m.emplaceEntry(m.loadOrCreate(key), get) {
			return
		}
	}
}

// Erase destroys the value under key and removes the key.
//
// The value is destroyed under the entry's write lock with only a shared
// view of the structure; the key is then removed under the exclusive
// structural lock, unless another goroutine re-emplaced it in between.
// Erasing a key that is not present is a contract violation.
func (m *Map[K, V]) Erase(key K) {
	e := m.load(key)
	if e == nil {
		m.fail("Erase", key, ErrKeyNotFound)
	}
	m.destroyEntry(e)

	mu := m.structure()
	mu.Lock()
	defer mu.Unlock()
	if it, ok := m.tree.Get(item[K, V]{key: key}); ok && it.e == e && e.sweep() {
		m.tree.Delete(item[K, V]{key: key})
	}
}

// Destroy drops the value under key and keeps the key, leaving an empty
// entry that ReadLock and WriteLock report as absent until the next
// Emplace. Destroying an empty entry is a no-op; destroying a key that is
// not present is a contract violation.
func (m *Map[K, V]) Destroy(key K) {
	e := m.load(key)
	if e == nil {
		m.fail("Destroy", key, ErrKeyNotFound)
	}
	m.destroyEntry(e)
}

// Clear removes all keys under one exclusive structural lock and then
// destroys the detached values one entry lock at a time, waiting for
// outstanding handles. An Emplace that finds its entry detached starts over
// on a fresh entry, so values emplaced after the keys are gone survive.
func (m *Map[K, V]) Clear() {
	for _, e := range m.detach() {
		m.destroyEntry(e)
	}
}

// detach flags every entry as removed and empties the tree.
func (m *Map[K, V]) detach() []*entry[K, V] {
	mu := m.structure()
	mu.Lock()
	defer mu.Unlock()
	if m.tree == nil {
		return nil
	}
	entries := make([]*entry[K, V], 0, m.tree.Len())
	m.tree.Ascend(func(it item[K, V]) bool {
		it.e.state.Or(entryRemoved)
		entries = append(entries, it.e)
		return true
	})
	m.tree.Clear(false)
	return entries
}

// Clean removes every key whose value has been destroyed and returns how
// many were removed. Entries holding a value are left untouched.
//
// Clean holds the exclusive structural lock for the whole sweep but never
// waits on an entry lock: an entry is removed by a CAS of its state from
// empty to removed, which fails for any entry holding a value.
func (m *Map[K, V]) Clean() int {
	mu := m.structure()
	mu.Lock()
	defer mu.Unlock()
	if m.tree == nil {
		return 0
	}
	var dead []K
	m.tree.Ascend(func(it item[K, V]) bool {
		if it.e.sweep() {
			dead = append(dead, it.key)
		}
		return true
	})
	for _, k := range dead {
		m.tree.Delete(item[K, V]{key: k})
	}
	if len(dead) > 0 {
		m.cfg.log().Debug("safemap: cleaned empty entries",
			"type", m.valueType().String(), "removed", len(dead), "remaining", m.tree.Len())
	}
	return len(dead)
}

// ReadLock returns a shared handle to the value under key, or nil if the
// key is absent or its value has been destroyed. Absence is not an error.
func (m *Map[K, V]) ReadLock(key K) *ReadLocked[V] {
	e := m.load(key)
	if e == nil {
		return nil
	}
	h := e.g.RLock()
	if e.removed() || !h.v.valid {
		h.Unlock()
		return nil
	}
	s := h.v
	return moveRead(h, &s.value)
}

// WriteLock returns an exclusive handle to the value under key, or nil if
// the key is absent or its value has been destroyed.
func (m *Map[K, V]) WriteLock(key K) *WriteLocked[V] {
	e := m.load(key)
	if e == nil {
		return nil
	}
	h := e.g.Lock()
	if e.removed() || !h.v.valid {
		h.Unlock()
		return nil
	}
	s := h.v
	return moveWrite(h, &s.value)
}

// Load returns a copy of the value under key.
func (m *Map[K, V]) Load(key K) (value V, ok bool) {
	h := m.ReadLock(key)
	if h == nil {
		return *new(V), false
	}
	defer h.Unlock()
	return h.Load(), true
}

// Update runs fn on the value under key while holding its write lock and
// reports whether a value was present. fn must not call into m.
func (m *Map[K, V]) Update(key K, fn func(v *V)) bool {
	h := m.WriteLock(key)
	if h == nil {
		return false
	}
	defer h.Unlock()
	fn(h.Get())
	return true
}

// Has reports whether key is present, with or without a value.
func (m *Map[K, V]) Has(key K) bool {
	return m.load(key) != nil
}

// Len returns the number of keys, including keys whose value has been
// destroyed but not yet cleaned.
func (m *Map[K, V]) Len() int {
	mu := m.structure()
	mu.RLock()
	defer mu.RUnlock()
	if m.tree == nil {
		return 0
	}
	return m.tree.Len()
}

// Live returns the number of constructed values. Under concurrent
// modification it is a momentary reading.
func (m *Map[K, V]) Live() int {
	return int(m.live.Load())
}

// Keys returns the present keys in ascending order.
func (m *Map[K, V]) Keys() []K {
	entries := m.snapshot()
	keys := make([]K, len(entries))
	for i, e := range entries {
		keys[i] = e.key
	}
	return keys
}
