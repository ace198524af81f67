package benchmark

import (
	"sync"

	"github.com/Snawoot/lfmap"
	"github.com/alphadose/haxmap"
	"github.com/fufuok/cmap"
	"github.com/llxisdsh/pb"
	csmap "github.com/mhmtszr/concurrent-swiss-map"
	orcaman_map "github.com/orcaman/concurrent-map/v2"
	"github.com/puzpuzpuz/xsync/v4"
	"github.com/zhangyunhao116/skipmap"

	"github.com/fburgerdev/safemap"
)

// ============================================================================
// Map Adapters
// ============================================================================

type MapInterface interface {
	Store(key, value int)
	Load(key int) (int, bool)
	Delete(key int)
}

// safeMapAdapter deletes by destroying the value: the key stays until a
// Clean, which keeps Delete from racing with itself on absent keys.
type safeMapAdapter struct{ m *safemap.Map[int, int] }

func (a *safeMapAdapter) Store(k, v int)         { a.m.Emplace(k, v) }
func (a *safeMapAdapter) Load(k int) (int, bool) { return a.m.Load(k) }
func (a *safeMapAdapter) Delete(k int) {
	if a.m.Has(k) {
		a.m.Destroy(k)
	}
}

// funcMap adapts maps whose method names differ from MapInterface.
type funcMap struct {
	store func(k, v int)
	load  func(k int) (int, bool)
	del   func(k int)
}

func (a funcMap) Store(k, v int)         { a.store(k, v) }
func (a funcMap) Load(k int) (int, bool) { return a.load(k) }
func (a funcMap) Delete(k int)           { a.del(k) }

type syncMapAdapter struct{ m *sync.Map }

func (a *syncMapAdapter) Store(k, v int) { a.m.Store(k, v) }
func (a *syncMapAdapter) Load(k int) (int, bool) {
	v, ok := a.m.Load(k)
	if ok {
		return v.(int), true
	}
	return 0, false
}
func (a *syncMapAdapter) Delete(k int) { a.m.Delete(k) }

type impl struct {
	name string
	make func() MapInterface
}

// impls lists every map under comparison. Only safemap and skipmap keep
// their keys ordered.
func impls() []impl {
	return []impl{
		{"safemap.Map", func() MapInterface { return &safeMapAdapter{safemap.NewMap[int, int]()} }},
		{"safemap.Map/spin", func() MapInterface {
			return &safeMapAdapter{safemap.NewMap[int, int](safemap.WithSpinLock())}
		}},
		{"sync.Map", func() MapInterface { return &syncMapAdapter{&sync.Map{}} }},
		{"pb.MapOf", func() MapInterface {
			m := &pb.MapOf[int, int]{}
			return funcMap{
				func(k, v int) { m.Store(k, v) },
				m.Load,
				func(k int) { m.Delete(k) },
			}
		}},
		{"xsync.Map", func() MapInterface {
			m := xsync.NewMap[int, int]()
			return funcMap{
				func(k, v int) { m.Store(k, v) },
				m.Load,
				func(k int) { m.Delete(k) },
			}
		}},
		{"skipmap", func() MapInterface {
			m := skipmap.New[int, int]()
			return funcMap{
				func(k, v int) { m.Store(k, v) },
				m.Load,
				func(k int) { m.Delete(k) },
			}
		}},
		{"haxmap", func() MapInterface {
			m := haxmap.New[int, int]()
			return funcMap{
				func(k, v int) { m.Set(k, v) },
				m.Get,
				func(k int) { m.Del(k) },
			}
		}},
		{"fufuok/cmap", func() MapInterface {
			m := cmap.NewOf[int, int]()
			return funcMap{
				func(k, v int) { m.Set(k, v) },
				m.Get,
				func(k int) { m.Remove(k) },
			}
		}},
		{"concurrent-swiss-map", func() MapInterface {
			m := csmap.New(csmap.WithShardCount[int, int](32))
			return funcMap{
				func(k, v int) { m.Store(k, v) },
				m.Load,
				func(k int) { m.Delete(k) },
			}
		}},
		{"lfmap", func() MapInterface {
			m := lfmap.New[int, int]()
			return funcMap{
				func(k, v int) { m.Set(k, v) },
				m.Get,
				func(k int) { m.Delete(k) },
			}
		}},
		{"orcaman/concurrent-map", func() MapInterface {
			m := orcaman_map.NewWithCustomShardingFunction[int, int](
				func(key int) uint32 { return uint32(key) },
			)
			return funcMap{
				func(k, v int) { m.Set(k, v) },
				m.Get,
				func(k int) { m.Remove(k) },
			}
		}},
	}
}
