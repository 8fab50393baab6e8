// Package chacha adapts the ChaCha20 keystream into the engine's
// bijection contract: the 64-bit stream counter is carried in the
// cipher nonce, so every counter value selects an independent 64-byte
// keystream block. Heavier per block than philox or threefry, but the
// mixing is a vetted cipher rather than a statistical permutation.
package chacha

import (
	"encoding/binary"

	"golang.org/x/crypto/chacha20"

	"github.com/mkeeler/counter-rand/bijection"
)

// splitmix64 constants, used to widen the 64-bit engine key into the
// 256-bit cipher key.
const (
	splitmixIncrement = 0x9E3779B97F4A7C15
	splitmixMul1      = 0xBF58476D1CE4E5B9
	splitmixMul2      = 0x94D049BB133111EB
)

// ChaCha is a ChaCha20-backed bijection: 64-bit counters, 64-bit keys,
// sixteen 32-bit words per block.
type ChaCha struct{}

// New returns the ChaCha20 bijection. The cipher's round count is fixed
// by the underlying implementation, so there is nothing to configure.
func New() *ChaCha {
	return &ChaCha{}
}

func (c *ChaCha) Name() string { return "chacha20" }

func (c *ChaCha) KeyBits() int { return 64 }

func (c *ChaCha) BlockWords() int { return 16 }

// Block derives the cipher key from the engine key, places the counter
// in the nonce, and reads one keystream block.
func (c *ChaCha) Block(key, counter uint64, out *[bijection.MaxBlockWords]uint32) {
	var cipherKey [chacha20.KeySize]byte
	expandKey(key, &cipherKey)

	var nonce [chacha20.NonceSize]byte
	binary.LittleEndian.PutUint64(nonce[:8], counter)

	cipher, err := chacha20.NewUnauthenticatedCipher(cipherKey[:], nonce[:])
	if err != nil {
		// key and nonce sizes are fixed correct above
		panic("chacha: " + err.Error())
	}

	var block [64]byte
	cipher.XORKeyStream(block[:], block[:])

	for i := 0; i < 16; i++ {
		out[i] = binary.LittleEndian.Uint32(block[i*4:])
	}
}

// expandKey widens key into 32 bytes by running the splitmix64 output
// function over four consecutive states.
func expandKey(key uint64, out *[chacha20.KeySize]byte) {
	s := key
	for i := 0; i < 4; i++ {
		s += splitmixIncrement
		binary.LittleEndian.PutUint64(out[i*8:], splitmix(s))
	}
}

func splitmix(z uint64) uint64 {
	z = (z ^ (z >> 30)) * splitmixMul1
	z = (z ^ (z >> 27)) * splitmixMul2
	return z ^ (z >> 31)
}
