// Package threefry implements the Threefry2x32 keyed permutation, the
// add-rotate-xor counter bijection derived from the Skein cipher. It
// trades the multiplier of philox for rotations, and carries a full
// 64-bit key.
package threefry

import (
	"fmt"
	"math/bits"

	"github.com/mkeeler/counter-rand/bijection"
)

const (
	// DefaultRounds matches the reference parameterization (20R).
	DefaultRounds = 20
	// MinRounds is the lowest round count with published statistical
	// results for the 2x32 variant (13R).
	MinRounds = 13
	// MaxRounds is the highest defined round count.
	MaxRounds = 32

	// keyParity folds into the key schedule so that zero keys still
	// produce an asymmetric schedule.
	keyParity = 0x1BD11BDA
)

// rotations is the per-round rotation schedule, repeating every eight
// rounds.
var rotations = [8]int{13, 15, 26, 6, 17, 29, 16, 24}

// Threefry is a Threefry2x32-R bijection: 64-bit counters, 64-bit keys,
// two 32-bit words per block.
type Threefry struct {
	rounds int
}

// Option adjusts a Threefry under construction.
type Option func(*Threefry)

// WithRounds overrides the round count. New rejects values outside
// [MinRounds, MaxRounds].
func WithRounds(rounds int) Option {
	return func(t *Threefry) {
		t.rounds = rounds
	}
}

// New returns a Threefry2x32 bijection with DefaultRounds unless
// overridden.
func New(opts ...Option) (*Threefry, error) {
	t := &Threefry{rounds: DefaultRounds}
	for _, opt := range opts {
		opt(t)
	}
	if t.rounds < MinRounds || t.rounds > MaxRounds {
		return nil, fmt.Errorf("threefry: rounds must be in [%d, %d], got %d", MinRounds, MaxRounds, t.rounds)
	}
	return t, nil
}

func (t *Threefry) Name() string {
	return fmt.Sprintf("threefry2x32-%d", t.rounds)
}

func (t *Threefry) KeyBits() int { return 64 }

func (t *Threefry) BlockWords() int { return 2 }

// Block mixes the counter halves with add-rotate-xor rounds, injecting
// the rotating key schedule every four rounds.
func (t *Threefry) Block(key, counter uint64, out *[bijection.MaxBlockWords]uint32) {
	ks := [3]uint32{uint32(key), uint32(key >> 32), 0}
	ks[2] = keyParity ^ ks[0] ^ ks[1]

	x0 := uint32(counter) + ks[0]
	x1 := uint32(counter>>32) + ks[1]

	for r := 0; r < t.rounds; r++ {
		x0 += x1
		x1 = bits.RotateLeft32(x1, rotations[r%8])
		x1 ^= x0

		if (r+1)%4 == 0 {
			j := uint32(r+1) / 4
			x0 += ks[j%3]
			x1 += ks[(j+1)%3] + j
		}
	}

	out[0] = x0
	out[1] = x1
}
