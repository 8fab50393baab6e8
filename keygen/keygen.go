// Package keygen derives per-lane bijection keys. Every lane must see a
// distinct key, otherwise two lanes would replay the same stream, so
// derivation is a collision-free mapping from lane index into the
// bijection's key space.
package keygen

import (
	"math/rand/v2"
)

// Keys derives lane keys from a seeded base key. The zero value is
// usable but keys every lane off base zero; construct through New for
// seeded runs.
type Keys struct {
	base uint64
	mask uint64
}

// New builds a derivation for a bijection with the given usable key
// width. The base key is drawn from a PCG stream seeded by seed, so the
// whole key schedule is reproducible from the run seed alone.
func New(seed uint64, keyBits int) Keys {
	rng := rand.New(rand.NewPCG(seed, 0))
	return Keys{
		base: rng.Uint64(),
		mask: widthMask(keyBits),
	}
}

// Key maps a lane index to its bijection key by offsetting the base key
// with the lane index, wrapped to the key width. Distinct lanes within
// the key space always receive distinct keys; callers are responsible
// for rejecting lane counts that exceed the key space before any lane
// runs.
func (k Keys) Key(lane uint64) uint64 {
	return (k.base + lane) & k.mask
}

func widthMask(bits int) uint64 {
	if bits <= 0 {
		return 0
	}
	if bits >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << bits) - 1
}
