// Package safemap provides maps whose entries are locked one by one.
//
// A [Map] keeps a structural lock for its key set and a reader/writer lock
// per entry, so goroutines reading and writing different keys do not
// serialize on one lock. Every entry holds a [Slot]: the key can stay in
// the map while its value is destroyed and later constructed again, which
// suits entity stores where an entity outlives some of its components.
//
// Values are reached only through [ReadLocked] and [WriteLocked] handles.
// A handle holds its entry's lock until Unlock; a nil handle means the key
// is absent or empty.
//
// A [Collection] keeps one Map per value type under a common key type.
// [KeyedView] and [ErasedView] name an entry without locking it, and can be
// collected in a [ViewSet].
//
// Misuse, such as erasing a missing key, reading through a null handle,
// or naming an unregistered type, panics with a [*ContractError]. All locks
// are released before the panic.
package safemap
