package bijection_test

import (
	"testing"

	"github.com/mkeeler/counter-rand/bijection"
	"github.com/stretchr/testify/require"
)

// blockStamp is a transparent bijection for exercising State: word i of
// counter c is key + c*words + i, so every word names exactly which
// block and position it came from.
type blockStamp struct {
	words int
}

func (b *blockStamp) Name() string    { return "stamp" }
func (b *blockStamp) KeyBits() int    { return 64 }
func (b *blockStamp) BlockWords() int { return b.words }

func (b *blockStamp) Block(key, counter uint64, out *[bijection.MaxBlockWords]uint32) {
	for i := 0; i < b.words; i++ {
		out[i] = uint32(key) + uint32(counter)*uint32(b.words) + uint32(i)
	}
}

func TestState_Uint32_BlockBuffering(t *testing.T) {
	b := &blockStamp{words: 4}
	st := bijection.MakeState(b, 0, 10)

	// Nothing consumed yet: the starting counter is still unused.
	require.EqualValues(t, 10, st.NextUnusedCounter())

	// The first word triggers the first block; the counter advances as
	// soon as the block is generated, not when its words run out.
	require.EqualValues(t, 40, st.Uint32())
	require.EqualValues(t, 11, st.NextUnusedCounter())

	require.EqualValues(t, 41, st.Uint32())
	require.EqualValues(t, 42, st.Uint32())
	require.EqualValues(t, 43, st.Uint32())
	require.EqualValues(t, 11, st.NextUnusedCounter())

	// Fifth word rolls into the next block.
	require.EqualValues(t, 44, st.Uint32())
	require.EqualValues(t, 12, st.NextUnusedCounter())
}

func TestState_Uint32_KeyReachesBijection(t *testing.T) {
	b := &blockStamp{words: 2}

	st1 := bijection.MakeState(b, 0, 0)
	st2 := bijection.MakeState(b, 1000, 0)

	require.EqualValues(t, 0, st1.Uint32())
	require.EqualValues(t, 1000, st2.Uint32())
}

func TestState_Uint64_LowWordFirst(t *testing.T) {
	b := &blockStamp{words: 4}
	st := bijection.MakeState(b, 0, 0)

	// Words 0 and 1 combine with the earlier word in the low half.
	require.Equal(t, uint64(1)<<32|uint64(0), st.Uint64())
	require.Equal(t, uint64(3)<<32|uint64(2), st.Uint64())
}

func TestState_Uint64_SpansBlocks(t *testing.T) {
	// One word per block forces every 64-bit draw across a block
	// boundary.
	b := &blockStamp{words: 1}
	st := bijection.MakeState(b, 0, 0)

	require.Equal(t, uint64(1)<<32|uint64(0), st.Uint64())
	require.EqualValues(t, 2, st.NextUnusedCounter())
}

func TestState_ResumeDiscardsPartialBlock(t *testing.T) {
	b := &blockStamp{words: 4}

	st1 := bijection.MakeState(b, 0, 0)
	require.EqualValues(t, 0, st1.Uint32())
	require.EqualValues(t, 1, st1.Uint32())

	// Two words of block 0 remain buffered, but the counter to resume
	// from is 1: a fresh state starts at block 1 and never revisits
	// the leftovers.
	st2 := bijection.MakeState(b, 0, st1.NextUnusedCounter())
	require.EqualValues(t, 4, st2.Uint32())
}

func TestState_SameInputsSameStream(t *testing.T) {
	b := &blockStamp{words: 3}

	st1 := bijection.MakeState(b, 7, 21)
	st2 := bijection.MakeState(b, 7, 21)

	for i := 0; i < 20; i++ {
		require.Equal(t, st1.Uint32(), st2.Uint32())
	}
	require.Equal(t, st1.NextUnusedCounter(), st2.NextUnusedCounter())
}
