// Package randbuf provides the output buffer generated values land in.
// The buffer is a host-owned flat slice; an explicit Layout maps a
// (lane, offset) pair to a flat index, so the generation loop stays
// free of any knowledge about how the host arranged its storage.
package randbuf

import "github.com/mkeeler/counter-rand/sampler"

// Layout resolves a lane and a within-batch offset to a flat element
// index.
type Layout func(lane uint64, offset int) int

// LaneMajor keeps each lane's batch contiguous: lane 0's values first,
// then lane 1's, and so on.
func LaneMajor(batch int) Layout {
	return func(lane uint64, offset int) int {
		return int(lane)*batch + offset
	}
}

// BatchMajor interleaves lanes: all lanes' offset-0 values first, then
// all offset-1 values. This is the layout the engine's ancestors used
// for coalesced device stores.
func BatchMajor(lanes int) Layout {
	return func(lane uint64, offset int) int {
		return offset*lanes + int(lane)
	}
}

// Matrix is a lanes x batch output buffer over a flat slice. Lanes own
// disjoint regions under any Layout, so concurrent writers never need
// synchronization here.
type Matrix[E sampler.Element] struct {
	data   []E
	layout Layout
	lanes  int
	batch  int
}

// NewMatrix allocates a buffer for lanes x batch values under the given
// layout.
func NewMatrix[E sampler.Element](lanes, batch int, layout Layout) *Matrix[E] {
	return &Matrix[E]{
		data:   make([]E, lanes*batch),
		layout: layout,
		lanes:  lanes,
		batch:  batch,
	}
}

// Lanes returns the number of lanes the buffer was sized for.
func (m *Matrix[E]) Lanes() int {
	return m.lanes
}

// Batch returns the per-lane batch size the buffer was sized for.
func (m *Matrix[E]) Batch() int {
	return m.batch
}

// Store writes one value at the lane's given within-batch offset.
func (m *Matrix[E]) Store(offset int, lane uint64, v E) {
	m.data[m.layout(lane, offset)] = v
}

// At reads the value at the lane's given within-batch offset.
func (m *Matrix[E]) At(offset int, lane uint64) E {
	return m.data[m.layout(lane, offset)]
}

// Data exposes the flat backing slice in layout order, for sinks that
// dump the whole buffer.
func (m *Matrix[E]) Data() []E {
	return m.data
}
