//go:build race

package opt

// Race_ reports whether the race detector is enabled. Tests shrink their
// iteration counts under -race.
const Race_ = true
