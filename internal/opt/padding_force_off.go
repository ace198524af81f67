//go:build safemap_disable_padding

package opt

// Counter_ is a live-value counter shared by every entry of a map.
// Padding is force-disabled via the safemap_disable_padding build tag.
// Use: go build -tags=safemap_disable_padding
type Counter_ struct {
	counter
}
