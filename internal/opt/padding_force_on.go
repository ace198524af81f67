//go:build safemap_enable_padding

package opt

import (
	"unsafe"
)

// Counter_ is a live-value counter shared by every entry of a map.
// Padding is force-enabled via the safemap_enable_padding build tag.
// Use: go build -tags=safemap_enable_padding
type Counter_ struct {
	_ [(CacheLineSize_ - unsafe.Sizeof(counter{})%CacheLineSize_) % CacheLineSize_]byte
	counter
}
