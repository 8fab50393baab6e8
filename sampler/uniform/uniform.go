// Package uniform provides samplers for uniformly distributed integers
// and floats over half-open ranges.
package uniform

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/mkeeler/counter-rand/bijection"
	"github.com/mkeeler/counter-rand/sampler"
)

// Uint32 samples uniformly from [low, high) as uint32 values. Range
// reduction is multiply-shift: the same scaled-reduction bias tradeoff
// as float scaling, without leaving integer space.
type Uint32 struct {
	low  uint32
	span uint32
}

// NewUint32 returns a sampler over [low, high).
func NewUint32(low, high uint32) (*Uint32, error) {
	if low >= high {
		return nil, fmt.Errorf("uniform: empty uint32 range [%d, %d)", low, high)
	}
	return &Uint32{low: low, span: high - low}, nil
}

func (s *Uint32) RandomsPerCall() int { return 1 }

func (s *Uint32) Sample(st *bijection.State, out []uint32) {
	w := st.Uint32()
	out[0] = s.low + uint32((uint64(w)*uint64(s.span))>>32)
}

// Uint64 samples uniformly from [low, high) as uint64 values.
type Uint64 struct {
	low  uint64
	span uint64
}

// NewUint64 returns a sampler over [low, high).
func NewUint64(low, high uint64) (*Uint64, error) {
	if low >= high {
		return nil, fmt.Errorf("uniform: empty uint64 range [%d, %d)", low, high)
	}
	return &Uint64{low: low, span: high - low}, nil
}

func (s *Uint64) RandomsPerCall() int { return 1 }

func (s *Uint64) Sample(st *bijection.State, out []uint64) {
	hi, _ := bits.Mul64(st.Uint64(), s.span)
	out[0] = s.low + hi
}

// Float64 samples uniformly from [low, high) as float64 values.
type Float64 struct {
	low  float64
	span float64
}

// NewFloat64 returns a sampler over [low, high). The bounds must be
// finite with low < high.
func NewFloat64(low, high float64) (*Float64, error) {
	if err := checkFloatRange(low, high); err != nil {
		return nil, err
	}
	return &Float64{low: low, span: high - low}, nil
}

func (s *Float64) RandomsPerCall() int { return 1 }

func (s *Float64) Sample(st *bijection.State, out []float64) {
	out[0] = s.low + sampler.UnitFloat64(st.Uint64())*s.span
}

// Float32 samples uniformly from [low, high) as float32 values.
type Float32 struct {
	low  float32
	span float32
}

// NewFloat32 returns a sampler over [low, high). The bounds must be
// finite with low < high.
func NewFloat32(low, high float32) (*Float32, error) {
	if err := checkFloatRange(float64(low), float64(high)); err != nil {
		return nil, err
	}
	return &Float32{low: low, span: high - low}, nil
}

func (s *Float32) RandomsPerCall() int { return 1 }

func (s *Float32) Sample(st *bijection.State, out []float32) {
	out[0] = s.low + sampler.UnitFloat32(st.Uint32())*s.span
}

func checkFloatRange(low, high float64) error {
	if math.IsNaN(low) || math.IsNaN(high) || math.IsInf(low, 0) || math.IsInf(high, 0) {
		return fmt.Errorf("uniform: bounds must be finite, got [%v, %v)", low, high)
	}
	if low >= high {
		return fmt.Errorf("uniform: empty float range [%v, %v)", low, high)
	}
	return nil
}
