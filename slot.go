package safemap

import "reflect"

// Destroyer is implemented by values that need to release something when
// their slot is destroyed, replaced, erased or cleared. Destroy runs exactly
// once per constructed value, under the entry's write lock.
type Destroyer interface {
	Destroy()
}

// Slot holds zero or one value of V. It has no default value: a fresh slot
// is empty until Construct. A Slot does no locking; inside a Map it is
// always reached through its entry's lock.
type Slot[V any] struct {
	value V
	valid bool
}

// Construct stores v, destroying the current value first if there is one.
func (s *Slot[V]) Construct(v V) {
	s.Destroy()
	s.value = v
	s.valid = true
}

// Destroy finalizes and drops the current value. It is a no-op on an empty
// slot.
func (s *Slot[V]) Destroy() {
	if !s.valid {
		return
	}
	s.valid = false
	if d, ok := any(&s.value).(Destroyer); ok {
		d.Destroy()
	} else if d, ok := any(s.value).(Destroyer); ok {
		d.Destroy()
	}
	s.value = *new(V)
}

// Valid reports whether the slot holds a value.
func (s *Slot[V]) Valid() bool {
	return s.valid
}

// Get returns a pointer to the stored value.
// It panics with a *ContractError if the slot is empty.
func (s *Slot[V]) Get() *V {
	if !s.valid {
		panic(&ContractError{Op: "Slot.Get", Type: reflect.TypeFor[V](), Err: ErrEmptySlot})
	}
	return &s.value
}
