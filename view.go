package safemap

import (
	"cmp"
	"reflect"
)

// KeyedView is a key bound to a map without holding any lock. Every Read
// or Write looks the key up again and locks it for the lifetime of the
// returned handle; the view itself never holds a lock between accesses.
//
// Views compare by key alone, whatever map they point to. The map must
// outlive the view.
type KeyedView[K cmp.Ordered, V any] struct {
	key K
	m   *Map[K, V]
}

// NewView binds key to m.
func NewView[K cmp.Ordered, V any](key K, m *Map[K, V]) KeyedView[K, V] {
	return KeyedView[K, V]{key: key, m: m}
}

// View binds key to m.
func (m *Map[K, V]) View(key K) KeyedView[K, V] {
	return NewView(key, m)
}

// Key returns the view's key.
func (v KeyedView[K, V]) Key() K {
	return v.key
}

// Map returns the map the view points to.
func (v KeyedView[K, V]) Map() *Map[K, V] {
	return v.m
}

// Read is Map.ReadLock on the view's key. A zero view reads nothing.
func (v KeyedView[K, V]) Read() *ReadLocked[V] {
	if v.m == nil {
		return nil
	}
	return v.m.ReadLock(v.key)
}

// Write is Map.WriteLock on the view's key.
func (v KeyedView[K, V]) Write() *WriteLocked[V] {
	if v.m == nil {
		return nil
	}
	return v.m.WriteLock(v.key)
}

// Compare orders views by key.
func (v KeyedView[K, V]) Compare(o KeyedView[K, V]) int {
	return cmp.Compare(v.key, o.key)
}

// Less reports whether v's key sorts before o's.
func (v KeyedView[K, V]) Less(o KeyedView[K, V]) bool {
	return cmp.Less(v.key, o.key)
}

// Equal reports whether v and o have the same key.
func (v KeyedView[K, V]) Equal(o KeyedView[K, V]) bool {
	return cmp.Compare(v.key, o.key) == 0
}

// Erased drops the value type so views into maps of different value types
// can share a container.
func (v KeyedView[K, V]) Erased() ErasedView[K] {
	ev := ErasedView[K]{key: v.key}
	if v.m != nil {
		ev.m = v.m
	}
	return ev
}

// viewTarget is what an ErasedView remembers of its map.
type viewTarget interface {
	identity() uint64
	valueType() reflect.Type
}

// ErasedView is a KeyedView with its value type erased.
//
// Compare and Less look at the key only, so erased views into different
// maps with equal keys compare equal; CompareIdentity breaks the tie by
// map. The == operator, and therefore Go map keys, include the map.
type ErasedView[K cmp.Ordered] struct {
	key K
	m   viewTarget
}

// Key returns the view's key.
func (v ErasedView[K]) Key() K {
	return v.key
}

// ValueType returns the value type of the map the view points to, or nil
// for a zero view.
func (v ErasedView[K]) ValueType() reflect.Type {
	if v.m == nil {
		return nil
	}
	return v.m.valueType()
}

// Compare orders views by key.
func (v ErasedView[K]) Compare(o ErasedView[K]) int {
	return cmp.Compare(v.key, o.key)
}

// Less reports whether v's key sorts before o's.
func (v ErasedView[K]) Less(o ErasedView[K]) bool {
	return cmp.Less(v.key, o.key)
}

// CompareIdentity orders views by key, then by the map they point to.
// The order between maps is arbitrary but stable for the process.
func (v ErasedView[K]) CompareIdentity(o ErasedView[K]) int {
	if c := cmp.Compare(v.key, o.key); c != 0 {
		return c
	}
	return cmp.Compare(v.mapID(), o.mapID())
}

func (v ErasedView[K]) mapID() uint64 {
	if v.m == nil {
		return 0
	}
	return v.m.identity()
}

// Typed recovers the typed view. ok is false when v does not point to a
// Map[K, V].
func Typed[V any, K cmp.Ordered](v ErasedView[K]) (view KeyedView[K, V], ok bool) {
	m, ok := v.m.(*Map[K, V])
	if !ok {
		return KeyedView[K, V]{}, false
	}
	return KeyedView[K, V]{key: v.key, m: m}, true
}

// MustTyped is Typed that panics with a *ContractError when V is not the
// value type of the view's map.
func MustTyped[V any, K cmp.Ordered](v ErasedView[K]) KeyedView[K, V] {
	tv, ok := Typed[V](v)
	if !ok {
		panic(&ContractError{Op: "MustTyped", Key: v.key, Type: reflect.TypeFor[V](), Err: ErrTypeMismatch})
	}
	return tv
}
