package safemap

import (
	"cmp"
	"context"
	"reflect"
	"runtime"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/llxisdsh/pb"
	"golang.org/x/sync/errgroup"
)

// erasedMap is the face a Map[K, V] shows to its Collection, whatever V is.
type erasedMap interface {
	viewTarget
	Len() int
	Live() int
	Clean() int
	Clear()
}

var _ erasedMap = (*Map[int, struct{}])(nil)

// Collection holds one Map per value type, all keyed by K. It is the
// storage of an entity-component store: the key is the entity, each value
// type is a component, and every component type is locked independently
// of the others.
//
// A value type must be registered with AddType before any operation names
// it. Go methods cannot take type parameters, so the typed operations are
// the package functions AddType, Get, Lookup, Emplace, Erase, Destroy,
// Clear, Clean, ReadLock, WriteLock and ViewOf.
//
//	var world safemap.Collection[EntityID]
//	safemap.AddType[Position](&world)
//	safemap.Emplace(&world, id, Position{X: 1})
//	if h := safemap.WriteLock[Position](&world, id); h != nil {
//		h.Get().X++
//		h.Unlock()
//	}
//
// The zero value is ready to use. A Collection must not be copied after
// first use.
type Collection[K cmp.Ordered] struct {
	_       noCopy
	maps    pb.MapOf[reflect.Type, erasedMap]
	options []func(*MapConfig)
	cfg     MapConfig
}

// NewCollection returns a Collection whose maps are created with options.
func NewCollection[K cmp.Ordered](options ...func(*MapConfig)) *Collection[K] {
	c := &Collection[K]{options: options}
	for _, o := range options {
		o(&c.cfg)
	}
	return c
}

// TypeStats describes one registered value type.
type TypeStats struct {
	Type    reflect.Type
	Entries int // keys, including emptied ones
	Live    int // constructed values
}

// AddType registers an empty Map[K, V] for V. It returns false, and changes
// nothing, when V is already registered.
func AddType[V any, K cmp.Ordered](c *Collection[K]) bool {
	t := reflect.TypeFor[V]()
	if _, ok := c.maps.Load(t); !ok {
		if _, loaded := c.maps.LoadOrStore(t, NewMap[K, V](c.options...)); !loaded {
			return true
		}
	}
	c.cfg.log().Debug("safemap: value type already registered", "type", t.String())
	return false
}

// Lookup returns the map registered for V, or an error wrapping
// ErrTypeNotRegistered.
func Lookup[V any, K cmp.Ordered](c *Collection[K]) (*Map[K, V], error) {
	t := reflect.TypeFor[V]()
	em, ok := c.maps.Load(t)
	if !ok {
		return nil, &ContractError{Op: "Lookup", Type: t, Err: ErrTypeNotRegistered}
	}
	// Only AddType[V] stores under TypeFor[V], always a *Map[K, V].
	return em.(*Map[K, V]), nil
}

// Get returns the map registered for V. Naming an unregistered type is a
// contract violation.
func Get[V any, K cmp.Ordered](c *Collection[K]) *Map[K, V] {
	m, err := Lookup[V](c)
	if err != nil {
		ce := err.(*ContractError)
		ce.Op = "Get"
		c.cfg.log().Error("safemap: contract violation",
			"op", ce.Op, "type", ce.Type.String(), "err", ce.Err)
		panic(ce)
	}
	return m
}

// Emplace is Map.Emplace on the map registered for V.
func Emplace[V any, K cmp.Ordered](c *Collection[K], key K, value V) {
	Get[V](c).Emplace(key, value)
}

// Erase is Map.Erase on the map registered for V.
func Erase[V any, K cmp.Ordered](c *Collection[K], key K) {
	Get[V](c).Erase(key)
}

// Destroy is Map.Destroy on the map registered for V.
func Destroy[V any, K cmp.Ordered](c *Collection[K], key K) {
	Get[V](c).Destroy(key)
}

// Clear is Map.Clear on the map registered for V.
func Clear[V any, K cmp.Ordered](c *Collection[K]) {
	Get[V](c).Clear()
}

// Clean is Map.Clean on the map registered for V.
func Clean[V any, K cmp.Ordered](c *Collection[K]) int {
	return Get[V](c).Clean()
}

// ReadLock is Map.ReadLock on the map registered for V.
func ReadLock[V any, K cmp.Ordered](c *Collection[K], key K) *ReadLocked[V] {
	return Get[V](c).ReadLock(key)
}

// WriteLock is Map.WriteLock on the map registered for V.
func WriteLock[V any, K cmp.Ordered](c *Collection[K], key K) *WriteLocked[V] {
	return Get[V](c).WriteLock(key)
}

// ViewOf binds key to the map registered for V.
func ViewOf[V any, K cmp.Ordered](c *Collection[K], key K) KeyedView[K, V] {
	return Get[V](c).View(key)
}

type registered struct {
	t reflect.Type
	m erasedMap
}

// registry returns the registered maps ordered by type name.
func (c *Collection[K]) registry() []registered {
	var rs []registered
	c.maps.Range(func(t reflect.Type, m erasedMap) bool {
		rs = append(rs, registered{t: t, m: m})
		return true
	})
	slices.SortFunc(rs, func(a, b registered) int {
		return strings.Compare(a.t.String(), b.t.String())
	})
	return rs
}

// Len returns the number of registered value types.
func (c *Collection[K]) Len() int {
	return c.maps.Size()
}

// Types returns the registered value types ordered by name.
func (c *Collection[K]) Types() []reflect.Type {
	rs := c.registry()
	types := make([]reflect.Type, len(rs))
	for i, r := range rs {
		types[i] = r.t
	}
	return types
}

// Stats returns entry counts for every registered value type, ordered by
// type name.
func (c *Collection[K]) Stats() []TypeStats {
	rs := c.registry()
	stats := make([]TypeStats, len(rs))
	for i, r := range rs {
		stats[i] = TypeStats{Type: r.t, Entries: r.m.Len(), Live: r.m.Live()}
	}
	return stats
}

// CleanAll runs Clean on every registered map, several maps at a time, and
// returns the total number of keys removed. Maps not yet started when ctx
// is done are skipped and ctx's error is returned.
func (c *Collection[K]) CleanAll(ctx context.Context) (int, error) {
	var removed atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, r := range c.registry() {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			removed.Add(int64(r.m.Clean()))
			return nil
		})
	}
	err := g.Wait()
	return int(removed.Load()), err
}

// ClearAll runs Clear on every registered map. The types stay registered.
func (c *Collection[K]) ClearAll() {
	for _, r := range c.registry() {
		r.m.Clear()
	}
}
