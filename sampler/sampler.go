// Package sampler defines the conversion layer between raw bijection
// words and typed pseudorandom values. A sampler owns a distribution
// and a fixed yield: every Sample call produces exactly RandomsPerCall
// values and advances the lane state it draws from.
package sampler

import (
	"github.com/mkeeler/counter-rand/bijection"
)

// Element is the set of value types samplers can produce and output
// buffers can store.
type Element interface {
	~uint32 | ~uint64 | ~float32 | ~float64
}

// Sampler converts a lane's raw word stream into values of one
// distribution.
type Sampler[E Element] interface {
	// RandomsPerCall is the fixed number of values produced by one
	// Sample call. Always at least 1; the engine rejects anything
	// else before generation starts.
	RandomsPerCall() int

	// Sample fills out[:RandomsPerCall()] with the next values of the
	// stream, advancing st. len(out) must be at least RandomsPerCall.
	Sample(st *bijection.State, out []E)
}

// UnitFloat64 maps a raw word to [0, 1) using the top 53 bits.
func UnitFloat64(u uint64) float64 {
	return float64(u>>11) * 0x1p-53
}

// UnitFloat32 maps a raw word to [0, 1) using the top 24 bits.
func UnitFloat32(u uint32) float32 {
	return float32(u>>8) * 0x1p-24
}

// OpenUnitFloat64 maps a raw word to (0, 1) using the top 52 bits: the
// half-step offset keeps the result away from both endpoints, so it is
// safe to take logs of. At 53 bits the offset on the largest word would
// round up and produce exactly 1.
func OpenUnitFloat64(u uint64) float64 {
	return (float64(u>>12) + 0.5) * 0x1p-52
}
