// Package counters provides per-lane counter storage. A lane's counter
// is its position in the pseudorandom stream: it is loaded once before
// a generation call and stored once after, and carrying it forward is
// what makes consecutive calls continue the stream without repetition.
package counters

import "fmt"

// Store is lane-indexed counter storage. Each lane owns its slot
// exclusively, so implementations need no synchronization between
// lanes; callers must keep lane indexes within the configured range.
type Store interface {
	// Load returns the lane's persisted counter.
	Load(lane uint64) uint64

	// Store persists the lane's counter for the next generation call.
	Store(lane uint64, counter uint64)
}

// Memory is the in-memory Store used for live runs: a flat slice with
// one slot per lane, all starting at zero.
type Memory struct {
	counters []uint64
}

// NewMemory allocates counter storage for the given number of lanes.
func NewMemory(lanes int) *Memory {
	return &Memory{counters: make([]uint64, lanes)}
}

func (m *Memory) Load(lane uint64) uint64 {
	return m.counters[lane]
}

func (m *Memory) Store(lane uint64, counter uint64) {
	m.counters[lane] = counter
}

// Lanes reports the number of lanes the store was sized for.
func (m *Memory) Lanes() int {
	return len(m.counters)
}

// Snapshot copies out all lane counters, in lane order. Used to
// checkpoint a run's final positions into durable storage.
func (m *Memory) Snapshot() []uint64 {
	out := make([]uint64, len(m.counters))
	copy(out, m.counters)
	return out
}

// Restore replaces all lane counters from a snapshot taken with the
// same lane count. A length mismatch means the snapshot belongs to a
// differently shaped run and is rejected.
func (m *Memory) Restore(snapshot []uint64) error {
	if len(snapshot) != len(m.counters) {
		return fmt.Errorf("counters: snapshot has %d lanes, store has %d", len(snapshot), len(m.counters))
	}
	copy(m.counters, snapshot)
	return nil
}
