// Package engine implements the per-lane generation protocol of the
// counter-based RNG: derive the lane's key, combine it with the lane's
// persisted counter, drive the sampler until the batch is full, and
// persist the advanced counter so the next call continues the stream.
//
// Everything that can be invalid is rejected in New, before any lane
// runs. FillLane itself has no error path, takes no context, and never
// blocks: one call generates one lane's batch to completion.
package engine

import (
	"fmt"

	"github.com/mkeeler/counter-rand/bijection"
	"github.com/mkeeler/counter-rand/counters"
	"github.com/mkeeler/counter-rand/keygen"
	"github.com/mkeeler/counter-rand/randbuf"
	"github.com/mkeeler/counter-rand/sampler"
)

// Config wires the engine's capabilities together. All fields are
// required except that Lanes may be zero (every lane index is then
// skipped) and Batch may be zero (calls only round-trip the counter).
type Config[E sampler.Element] struct {
	// Lanes is the number of independent streams. FillLane treats any
	// lane index at or beyond Lanes as a no-op, which is what lets an
	// oversized virtual grid run on a smaller physical one.
	Lanes uint64

	// Batch is the number of values generated per lane per call.
	Batch int

	// Bijection is the keyed counter permutation shared by all lanes.
	Bijection bijection.Bijection

	// Sampler converts raw words into output values.
	Sampler sampler.Sampler[E]

	// Keys derives each lane's bijection key.
	Keys keygen.Keys

	// Counters holds each lane's persisted stream position.
	Counters counters.Store

	// Randoms receives the generated values.
	Randoms *randbuf.Matrix[E]
}

// Generator produces batches of pseudorandom values, one independent
// stream per lane. A Generator is safe for concurrent FillLane calls on
// distinct lanes; lanes never share counter slots or output regions.
type Generator[E sampler.Element] struct {
	lanes   uint64
	batch   int
	rpc     int
	bij     bijection.Bijection
	smp     sampler.Sampler[E]
	keys    keygen.Keys
	ctrs    counters.Store
	randoms *randbuf.Matrix[E]
}

// New validates the configuration and builds a Generator. Validation
// failures here are the only failures the engine ever reports: batch
// must be non-negative, the sampler must yield at least one value per
// call, and the lane count must fit the bijection's key space so that
// per-lane keys stay distinct.
func New[E sampler.Element](conf Config[E]) (*Generator[E], error) {
	if conf.Bijection == nil {
		return nil, fmt.Errorf("engine: a bijection is required")
	}
	if conf.Sampler == nil {
		return nil, fmt.Errorf("engine: a sampler is required")
	}
	if conf.Counters == nil {
		return nil, fmt.Errorf("engine: a counter store is required")
	}
	if conf.Randoms == nil {
		return nil, fmt.Errorf("engine: an output buffer is required")
	}
	if conf.Batch < 0 {
		return nil, fmt.Errorf("engine: batch cannot be negative, got %d", conf.Batch)
	}

	rpc := conf.Sampler.RandomsPerCall()
	if rpc < 1 {
		return nil, fmt.Errorf("engine: sampler yields %d randoms per call, need at least 1", rpc)
	}

	if bits := conf.Bijection.KeyBits(); bits < 64 && conf.Lanes > uint64(1)<<bits {
		return nil, fmt.Errorf("engine: %d lanes exceed the %d-bit key space of %s",
			conf.Lanes, bits, conf.Bijection.Name())
	}

	return &Generator[E]{
		lanes:   conf.Lanes,
		batch:   conf.Batch,
		rpc:     rpc,
		bij:     conf.Bijection,
		smp:     conf.Sampler,
		keys:    conf.Keys,
		ctrs:    conf.Counters,
		randoms: conf.Randoms,
	}, nil
}

// Lanes reports the configured lane count.
func (g *Generator[E]) Lanes() uint64 { return g.lanes }

// Batch reports the configured values per lane per call.
func (g *Generator[E]) Batch() int { return g.batch }

// FillLane generates exactly the configured batch of values for one
// lane and persists the lane's advanced counter. Out-of-range lanes
// return immediately without touching counter or output storage.
//
// The final sampler call may produce more values than the batch still
// needs; the surplus is generated and discarded, and the persisted
// counter accounts for it. Resuming therefore continues after the last
// block the sampler consumed, not after the last value emitted.
func (g *Generator[E]) FillLane(lane uint64) {
	if lane >= g.lanes {
		return
	}

	st := bijection.MakeState(g.bij, g.keys.Key(lane), g.ctrs.Load(lane))
	res := make([]E, g.rpc)

	full := g.batch / g.rpc
	for i := 0; i < full; i++ {
		g.smp.Sample(&st, res)
		for j := 0; j < g.rpc; j++ {
			g.randoms.Store(i*g.rpc+j, lane, res[j])
		}
	}

	if rem := g.batch % g.rpc; rem > 0 {
		g.smp.Sample(&st, res)
		for j := 0; j < rem; j++ {
			g.randoms.Store(full*g.rpc+j, lane, res[j])
		}
	}

	g.ctrs.Store(lane, st.NextUnusedCounter())
}
