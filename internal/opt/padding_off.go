//go:build (amd64 || 386 || arm || mips || mipsle || wasm) && !safemap_disable_padding && !safemap_enable_padding

package opt

// Counter_ is a live-value counter shared by every entry of a map.
// Padding is disabled by default for:
// - amd64
// - 32-bit architectures (386, arm, mips, mipsle, wasm)
type Counter_ struct {
	counter
}
