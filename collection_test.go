package safemap

import (
	"context"
	"errors"
	"reflect"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/sync/errgroup"
)

type position struct{ x, y float64 }

type velocity struct{ dx, dy float64 }

type health int

func TestCollection_AddType(t *testing.T) {
	var c Collection[int]
	if !AddType[position](&c) {
		t.Fatal("first AddType should register")
	}
	Emplace(&c, 1, position{1, 2})

	if AddType[position](&c) {
		t.Fatal("second AddType should report a duplicate")
	}
	if r := ReadLock[position](&c, 1); !r.Valid() {
		t.Fatal("duplicate AddType replaced the existing map")
	} else {
		r.Unlock()
	}
	if c.Len() != 1 {
		t.Fatalf("len=%d", c.Len())
	}
}

func TestCollection_AddTypeConcurrent(t *testing.T) {
	var c Collection[int]
	var added atomic.Int32
	var g errgroup.Group
	for range 16 {
		g.Go(func() error {
			if AddType[health](&c) {
				added.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()
	if added.Load() != 1 {
		t.Fatalf("%d registrations succeeded", added.Load())
	}
}

func TestCollection_ConcurrentRegistryAccess(t *testing.T) {
	var c Collection[int]
	AddType[position](&c)

	var g errgroup.Group
	for i := range 8 {
		g.Go(func() error {
			AddType[velocity](&c)
			AddType[health](&c)
			Emplace(&c, i, position{x: float64(i)})
			if r := ReadLock[position](&c, i); r != nil {
				r.Unlock()
			}
			_ = c.Stats()
			_ = c.Types()
			_, err := Lookup[health](&c)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	if c.Len() != 3 || Get[position](&c).Live() != 8 {
		t.Fatalf("types=%d live=%d", c.Len(), Get[position](&c).Live())
	}
}

func TestCollection_LookupMatchesGet(t *testing.T) {
	var c Collection[string]
	AddType[position](&c)
	AddType[velocity](&c)

	pm, err := Lookup[position](&c)
	if err != nil || pm != Get[position](&c) {
		t.Fatalf("Lookup[position]=%p,%v", pm, err)
	}
	vm, err := Lookup[velocity](&c)
	if err != nil || vm != Get[velocity](&c) {
		t.Fatalf("Lookup[velocity]=%p,%v", vm, err)
	}
}

func TestCollection_TypesAreIndependent(t *testing.T) {
	c := NewCollection[int]()
	AddType[position](c)
	AddType[velocity](c)

	Emplace(c, 7, position{1, 1})
	Emplace(c, 7, velocity{2, 0})

	pw := WriteLock[position](c, 7)
	defer pw.Unlock()

	done := async(func() {
		vw := WriteLock[velocity](c, 7)
		vw.Get().dx = 5
		vw.Unlock()
		Destroy[velocity](c, 7)
		Clean[velocity](c)
	})
	expectDone(t, done, "velocity operations while position is locked")

	if Get[velocity](c).Has(7) {
		t.Fatal("velocity entry survived Clean")
	}
	if pw.Load() != (position{1, 1}) {
		t.Fatal("position changed")
	}
}

func TestCollection_UnregisteredType(t *testing.T) {
	var c Collection[string]
	AddType[position](&c)

	if _, err := Lookup[velocity](&c); !errors.Is(err, ErrTypeNotRegistered) {
		t.Fatalf("Lookup err=%v", err)
	}
	var ce *ContractError
	_, err := Lookup[health](&c)
	if !errors.As(err, &ce) || ce.Type != reflect.TypeFor[health]() || ce.Op != "Lookup" {
		t.Fatalf("Lookup err=%#v", err)
	}

	ops := map[string]func(){
		"Get":       func() { Get[velocity](&c) },
		"Emplace":   func() { Emplace(&c, "e", velocity{}) },
		"Erase":     func() { Erase[velocity](&c, "e") },
		"Destroy":   func() { Destroy[velocity](&c, "e") },
		"Clear":     func() { Clear[velocity](&c) },
		"Clean":     func() { Clean[velocity](&c) },
		"ReadLock":  func() { ReadLock[velocity](&c, "e") },
		"WriteLock": func() { WriteLock[velocity](&c, "e") },
		"ViewOf":    func() { ViewOf[velocity](&c, "e") },
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			ce := mustContract(t, ErrTypeNotRegistered, op)
			if ce.Op != "Get" {
				t.Fatalf("op=%q", ce.Op)
			}
		})
	}

	// The registered type is unaffected.
	Emplace(&c, "e", position{})
	if !Get[position](&c).Has("e") {
		t.Fatal("position map broken by failed lookups")
	}
}

func TestCollection_Forwarders(t *testing.T) {
	var destroyed atomic.Int32
	var c Collection[int]
	AddType[tracked](&c)

	for i := range 4 {
		Emplace(&c, i, tracked{id: i, destroyed: &destroyed})
	}
	Destroy[tracked](&c, 0)
	Erase[tracked](&c, 1)
	mustContract(t, ErrKeyNotFound, func() { Erase[tracked](&c, 1) })

	if n := Clean[tracked](&c); n != 1 {
		t.Fatalf("Clean removed %d", n)
	}
	if diff := cmp.Diff([]int{2, 3}, Get[tracked](&c).Keys()); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}

	v := ViewOf[tracked](&c, 3)
	if r := v.Read(); r.Load().id != 3 {
		t.Fatal("view reads the wrong value")
	} else {
		r.Unlock()
	}

	Clear[tracked](&c)
	if destroyed.Load() != 4 || Get[tracked](&c).Len() != 0 {
		t.Fatalf("destroyed=%d len=%d", destroyed.Load(), Get[tracked](&c).Len())
	}
}

func TestCollection_TypesAndStats(t *testing.T) {
	var c Collection[int]
	AddType[velocity](&c)
	AddType[position](&c)
	AddType[health](&c)

	Emplace(&c, 1, position{})
	Emplace(&c, 2, position{})
	Destroy[position](&c, 2)
	Emplace(&c, 1, velocity{})

	var names []string
	for _, typ := range c.Types() {
		names = append(names, typ.String())
	}
	if diff := cmp.Diff([]string{"safemap.health", "safemap.position", "safemap.velocity"}, names); diff != "" {
		t.Fatalf("types (-want +got):\n%s", diff)
	}

	want := []TypeStats{
		{Type: reflect.TypeFor[health](), Entries: 0, Live: 0},
		{Type: reflect.TypeFor[position](), Entries: 2, Live: 1},
		{Type: reflect.TypeFor[velocity](), Entries: 1, Live: 1},
	}
	typeName := cmp.Transformer("typeName", func(t reflect.Type) string { return t.String() })
	if diff := cmp.Diff(want, c.Stats(), typeName); diff != "" {
		t.Fatalf("stats (-want +got):\n%s", diff)
	}
}

func TestCollection_CleanAll(t *testing.T) {
	var c Collection[int]
	AddType[position](&c)
	AddType[velocity](&c)
	AddType[health](&c)
	for i := range 10 {
		Emplace(&c, i, position{})
		Emplace(&c, i, velocity{})
		Emplace(&c, i, health(i))
	}
	for i := range 3 {
		Destroy[position](&c, i)
		Destroy[velocity](&c, i)
	}
	Destroy[health](&c, 9)

	n, err := c.CleanAll(context.Background())
	if err != nil || n != 7 {
		t.Fatalf("CleanAll=%d, %v", n, err)
	}
	for _, st := range c.Stats() {
		if st.Entries != st.Live {
			t.Fatalf("%v: entries=%d live=%d", st.Type, st.Entries, st.Live)
		}
	}
	if n, _ := c.CleanAll(context.Background()); n != 0 {
		t.Fatalf("second CleanAll removed %d", n)
	}
}

func TestCollection_CleanAllCanceled(t *testing.T) {
	var c Collection[int]
	AddType[position](&c)
	Emplace(&c, 1, position{})
	Destroy[position](&c, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n, err := c.CleanAll(ctx)
	if !errors.Is(err, context.Canceled) || n != 0 {
		t.Fatalf("CleanAll=%d, %v", n, err)
	}
	if Get[position](&c).Len() != 1 {
		t.Fatal("canceled CleanAll touched a map")
	}
}

func TestCollection_ClearAll(t *testing.T) {
	var c Collection[int]
	AddType[position](&c)
	AddType[velocity](&c)
	Emplace(&c, 1, position{})
	Emplace(&c, 1, velocity{})

	c.ClearAll()
	for _, st := range c.Stats() {
		if st.Entries != 0 || st.Live != 0 {
			t.Fatalf("%v not cleared: %+v", st.Type, st)
		}
	}
	if c.Len() != 2 {
		t.Fatal("ClearAll unregistered types")
	}
}

func TestCollection_ViewsAcrossTypes(t *testing.T) {
	var c Collection[int]
	AddType[position](&c)
	AddType[velocity](&c)
	Emplace(&c, 1, position{x: 3})
	Emplace(&c, 1, velocity{dx: 4})

	byMap := NewViewSetByMap[int]()
	byKey := NewViewSet[int]()
	for _, ev := range []ErasedView[int]{
		ViewOf[position](&c, 1).Erased(),
		ViewOf[velocity](&c, 1).Erased(),
	} {
		byMap.Insert(ev)
		byKey.Insert(ev)
	}
	if byMap.Len() != 2 || byKey.Len() != 1 {
		t.Fatalf("byMap=%d byKey=%d", byMap.Len(), byKey.Len())
	}

	var sum float64
	for ev := range byMap.All() {
		switch ev.ValueType() {
		case reflect.TypeFor[position]():
			r := MustTyped[position](ev).Read()
			sum += r.Load().x
			r.Unlock()
		case reflect.TypeFor[velocity]():
			r := MustTyped[velocity](ev).Read()
			sum += r.Load().dx
			r.Unlock()
		}
	}
	if sum != 7 {
		t.Fatalf("sum=%v", sum)
	}
}

func TestCollection_SpinOption(t *testing.T) {
	c := NewCollection[int](WithSpinLock(), WithDegree(4))
	AddType[health](c)
	var g errgroup.Group
	for i := range 64 {
		g.Go(func() error {
			Emplace(c, i, health(i))
			return nil
		})
	}
	_ = g.Wait()
	if Get[health](c).Live() != 64 {
		t.Fatalf("live=%d", Get[health](c).Live())
	}
	if _, ok := Get[health](c).mu.(*SpinRWLock); !ok {
		t.Fatal("spin option not applied to registered map")
	}
}
