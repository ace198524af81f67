//go:build !(amd64 || 386 || arm || mips || mipsle || wasm) && !safemap_disable_padding && !safemap_enable_padding

package opt

import (
	"unsafe"
)

// Counter_ is a live-value counter shared by every entry of a map.
// Padding is automatically enabled for architectures that are NOT:
// - amd64 (x86_64): Hardware optimizations often make padding less critical
// - 32-bit architectures (386, arm, mips, mipsle, wasm): Smaller cache lines/memory constraints
//
// The leading pad keeps the counter off the cache line of the structural
// lock that precedes it in the map header.
type Counter_ struct {
	_ [(CacheLineSize_ - unsafe.Sizeof(counter{})%CacheLineSize_) % CacheLineSize_]byte
	counter
}
