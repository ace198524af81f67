package safemap

import (
	"cmp"
	"iter"

	"github.com/google/btree"
)

// ViewSet is an ordered set of erased views.
//
// The ordering decides what counts as a duplicate. NewViewSet orders by
// key only: two views with the same key are one element even when they
// point to different maps, and inserting the second replaces the first.
// Use it when every view in the set targets the same map, or when one
// element per key is wanted. NewViewSetByMap orders by key and then by map,
// keeping views into different maps apart.
//
// A ViewSet is not safe for concurrent use.
type ViewSet[K cmp.Ordered] struct {
	tree *btree.BTreeG[ErasedView[K]]
}

// NewViewSet returns a set ordered and deduplicated by key alone.
func NewViewSet[K cmp.Ordered]() *ViewSet[K] {
	return &ViewSet[K]{tree: btree.NewG(defaultDegree, ErasedView[K].Less)}
}

// NewViewSetByMap returns a set ordered by key, then by map.
func NewViewSetByMap[K cmp.Ordered]() *ViewSet[K] {
	less := func(a, b ErasedView[K]) bool {
		return a.CompareIdentity(b) < 0
	}
	return &ViewSet[K]{tree: btree.NewG(defaultDegree, less)}
}

// Insert adds v and reports whether it replaced an equal element.
func (s *ViewSet[K]) Insert(v ErasedView[K]) (replaced bool) {
	_, replaced = s.tree.ReplaceOrInsert(v)
	return replaced
}

// Delete removes the element equal to v and reports whether there was one.
func (s *ViewSet[K]) Delete(v ErasedView[K]) bool {
	_, ok := s.tree.Delete(v)
	return ok
}

// Get returns the stored element equal to v.
func (s *ViewSet[K]) Get(v ErasedView[K]) (ErasedView[K], bool) {
	return s.tree.Get(v)
}

// Has reports whether an element equal to v is present.
func (s *ViewSet[K]) Has(v ErasedView[K]) bool {
	return s.tree.Has(v)
}

// Len returns the number of elements.
func (s *ViewSet[K]) Len() int {
	return s.tree.Len()
}

// All returns an iterator over the elements in ascending order.
func (s *ViewSet[K]) All() iter.Seq[ErasedView[K]] {
	return func(yield func(ErasedView[K]) bool) {
		s.tree.Ascend(yield)
	}
}
