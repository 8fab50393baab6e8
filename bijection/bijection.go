// Package bijection defines the keyed counter permutation at the heart
// of a counter-based random number generator. A Bijection maps a
// (key, counter) pair to a fixed-size block of raw words; every block
// is a pure function of its inputs, which is what makes whole streams
// addressable and reproducible.
package bijection

// MaxBlockWords is the largest block any implementation may produce,
// sized for a 64-byte cipher block. State buffers are this wide.
const MaxBlockWords = 16

// Bijection is a keyed permutation over counter values. Implementations
// must be stateless: Block may be called concurrently from any number
// of lanes.
type Bijection interface {
	// Name identifies the permutation in configs and logs.
	Name() string

	// KeyBits is the usable width of the key carried in a uint64.
	// Lane counts must fit within this width so that per-lane keys
	// remain distinct; callers validate that before dispatch.
	KeyBits() int

	// BlockWords is the number of 32-bit words produced per counter
	// value. At most MaxBlockWords.
	BlockWords() int

	// Block applies the permutation to one counter value, writing
	// BlockWords words into out. It must not retain out.
	Block(key, counter uint64, out *[MaxBlockWords]uint32)
}

// State carries one lane's stream position through a single generation
// call. It buffers one block of raw words and hands them out a word at
// a time, refilling from the bijection as needed.
//
// The counter field is maintained eagerly: generating a block consumes
// the current counter value and advances it immediately, so the state's
// counter always names the next counter value that has not been fed
// through the permutation. NextUnusedCounter is therefore the exact
// value a caller must persist to resume the stream, and the only one
// callers should store. Words still buffered when a call ends belong to
// an already-consumed counter and are discarded on resume.
type State struct {
	bij     Bijection
	key     uint64
	counter uint64

	buf    [MaxBlockWords]uint32
	words  int // words per block, cached from the bijection
	cursor int // next unread word in buf; == words when empty
}

// MakeState builds the ephemeral state for one generation call,
// positioned at counter with an empty buffer. The first word drawn
// triggers the first block.
func MakeState(b Bijection, key, counter uint64) State {
	words := b.BlockWords()
	return State{
		bij:     b,
		key:     key,
		counter: counter,
		words:   words,
		cursor:  words,
	}
}

// Uint32 returns the next raw word of the stream, generating a new
// block (and advancing the counter) when the buffer is exhausted.
func (st *State) Uint32() uint32 {
	if st.cursor == st.words {
		st.bij.Block(st.key, st.counter, &st.buf)
		st.counter++ // wraps; the stream is periodic in the counter
		st.cursor = 0
	}
	w := st.buf[st.cursor]
	st.cursor++
	return w
}

// Uint64 returns the next two raw words combined low word first.
func (st *State) Uint64() uint64 {
	lo := st.Uint32()
	hi := st.Uint32()
	return uint64(hi)<<32 | uint64(lo)
}

// NextUnusedCounter reports the counter value the next generation call
// must resume from. Persist this value and nothing else.
func (st *State) NextUnusedCounter() uint64 {
	return st.counter
}
