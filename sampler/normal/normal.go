// Package normal provides a Gaussian sampler using the Box-Muller
// transform, which turns two uniform words into two independent
// normal values per call.
package normal

import (
	"fmt"
	"math"

	"github.com/mkeeler/counter-rand/bijection"
	"github.com/mkeeler/counter-rand/sampler"
)

// BoxMuller samples float64 values from N(mean, sigma²), two per call.
type BoxMuller struct {
	mean  float64
	sigma float64
}

// NewBoxMuller returns a Gaussian sampler. sigma must be positive and
// both parameters finite.
func NewBoxMuller(mean, sigma float64) (*BoxMuller, error) {
	if math.IsNaN(mean) || math.IsInf(mean, 0) || math.IsNaN(sigma) || math.IsInf(sigma, 0) {
		return nil, fmt.Errorf("normal: parameters must be finite, got mean=%v sigma=%v", mean, sigma)
	}
	if sigma <= 0 {
		return nil, fmt.Errorf("normal: sigma must be positive, got %v", sigma)
	}
	return &BoxMuller{mean: mean, sigma: sigma}, nil
}

func (s *BoxMuller) RandomsPerCall() int { return 2 }

// Sample draws an angle word and a magnitude word. The magnitude word
// uses the open-interval conversion so the log never sees zero.
func (s *BoxMuller) Sample(st *bijection.State, out []float64) {
	a := sampler.UnitFloat64(st.Uint64())
	m := sampler.OpenUnitFloat64(st.Uint64())

	sin, cos := math.Sincos(2 * math.Pi * a)
	r := math.Sqrt(-2 * math.Log(m))

	out[0] = s.mean + s.sigma*r*cos
	out[1] = s.mean + s.sigma*r*sin
}
