// Package philox implements the Philox2x32 keyed permutation, a
// multiplication-based counter bijection that is cheap on anything with
// a fast 32x32->64 multiply. It is the engine's default bijection.
package philox

import (
	"fmt"

	"github.com/mkeeler/counter-rand/bijection"
)

const (
	// DefaultRounds matches the reference parameterization (10R).
	DefaultRounds = 10
	// MinRounds is the lowest round count with published statistical
	// results (7R); configurations below it are rejected.
	MinRounds = 7
	// MaxRounds is the highest defined round count.
	MaxRounds = 16

	multiplier = 0xD256D193
	keyWeyl    = 0x9E3779B9
)

// Philox is a Philox2x32-R bijection: 64-bit counters, 32-bit keys,
// two 32-bit words per block.
type Philox struct {
	rounds int
}

// Option adjusts a Philox under construction.
type Option func(*Philox)

// WithRounds overrides the round count. New rejects values outside
// [MinRounds, MaxRounds].
func WithRounds(rounds int) Option {
	return func(p *Philox) {
		p.rounds = rounds
	}
}

// New returns a Philox2x32 bijection with DefaultRounds unless
// overridden.
func New(opts ...Option) (*Philox, error) {
	p := &Philox{rounds: DefaultRounds}
	for _, opt := range opts {
		opt(p)
	}
	if p.rounds < MinRounds || p.rounds > MaxRounds {
		return nil, fmt.Errorf("philox: rounds must be in [%d, %d], got %d", MinRounds, MaxRounds, p.rounds)
	}
	return p, nil
}

func (p *Philox) Name() string {
	return fmt.Sprintf("philox2x32-%d", p.rounds)
}

// KeyBits is 32: only the low word of the key participates in mixing.
func (p *Philox) KeyBits() int { return 32 }

func (p *Philox) BlockWords() int { return 2 }

// Block runs the round function over the counter halves. Each round
// replaces the pair with (mulhi ^ key ^ hi, mullo) and bumps the key by
// the Weyl constant.
func (p *Philox) Block(key, counter uint64, out *[bijection.MaxBlockWords]uint32) {
	k := uint32(key)
	lo := uint32(counter)
	hi := uint32(counter >> 32)

	for r := 0; r < p.rounds; r++ {
		prod := uint64(multiplier) * uint64(lo)
		lo = uint32(prod>>32) ^ k ^ hi
		hi = uint32(prod)
		k += keyWeyl
	}

	out[0] = lo
	out[1] = hi
}
