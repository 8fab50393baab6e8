// Package gen runs configured generation workloads: it assembles the
// bijection, sampler, key derivation, counter storage and output buffer
// described by a Config, deals the lanes out to a pool of workers, and
// writes each completed pass to a sink.
package gen

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/mkeeler/counter-rand/bijection"
	"github.com/mkeeler/counter-rand/bijection/chacha"
	"github.com/mkeeler/counter-rand/bijection/philox"
	"github.com/mkeeler/counter-rand/bijection/threefry"
	"github.com/mkeeler/counter-rand/counters"
	"github.com/mkeeler/counter-rand/engine"
	"github.com/mkeeler/counter-rand/gen/config"
	"github.com/mkeeler/counter-rand/keygen"
	"github.com/mkeeler/counter-rand/randbuf"
	"github.com/mkeeler/counter-rand/sampler"
	"github.com/mkeeler/counter-rand/sampler/normal"
	"github.com/mkeeler/counter-rand/sampler/uniform"
	"golang.org/x/sync/errgroup"
)

// Runner drives one configured generation workload.
type Runner interface {
	// Run fills every lane's batch once per configured pass and writes
	// each completed pass to the output sink. Lane counters advance
	// across passes so the streams continue rather than repeat.
	Run(ctx context.Context) error

	// Counters exposes the in-memory lane counters, for restoring a
	// persisted snapshot before Run and checkpointing after it.
	Counters() *counters.Memory
}

// NewRunner builds the concrete generation pipeline for the configured
// target. The output element width is decided here, once, from the
// configuration; everything downstream is typed on it. Normalizing is
// idempotent, so configs straight from ReadConfig and hand-built ones
// are both accepted.
func NewRunner(conf Config, rc config.RunnerConfig, out io.Writer, format Format) (Runner, error) {
	if err := conf.Normalize(); err != nil {
		return nil, err
	}

	switch conf.Target {
	case TargetUniform:
		if conf.Uniform.Bits == 32 {
			smp, err := uniform.NewUint32(uint32(conf.Uniform.Low), uint32(conf.Uniform.High))
			if err != nil {
				return nil, err
			}
			return newRunner(conf, rc, out, format, smp)
		}
		smp, err := uniform.NewUint64(conf.Uniform.Low, conf.Uniform.High)
		if err != nil {
			return nil, err
		}
		return newRunner(conf, rc, out, format, smp)
	case TargetUniformFloat:
		if conf.UniformFloat.Bits == 32 {
			smp, err := uniform.NewFloat32(float32(conf.UniformFloat.Low), float32(conf.UniformFloat.High))
			if err != nil {
				return nil, err
			}
			return newRunner(conf, rc, out, format, smp)
		}
		smp, err := uniform.NewFloat64(conf.UniformFloat.Low, conf.UniformFloat.High)
		if err != nil {
			return nil, err
		}
		return newRunner(conf, rc, out, format, smp)
	case TargetNormal:
		smp, err := normal.NewBoxMuller(conf.Normal.Mean, conf.Normal.Sigma)
		if err != nil {
			return nil, err
		}
		return newRunner(conf, rc, out, format, smp)
	default:
		return nil, fmt.Errorf("unknown target: %#v", conf.Target)
	}
}

func buildBijection(conf Config) (bijection.Bijection, error) {
	switch conf.Bijection {
	case BijectionPhilox:
		return philox.New(philox.WithRounds(conf.Rounds))
	case BijectionThreefry:
		return threefry.New(threefry.WithRounds(conf.Rounds))
	case BijectionChaCha:
		return chacha.New(), nil
	default:
		return nil, fmt.Errorf("unknown bijection %q", conf.Bijection)
	}
}

type runner[E sampler.Element] struct {
	config.RunnerConfig
	conf Config

	eng     *engine.Generator[E]
	ctrs    *counters.Memory
	randoms *randbuf.Matrix[E]
	limiter *wrappedLimiter

	out          io.Writer
	format       Format
	distribution string
}

func newRunner[E sampler.Element](conf Config, rc config.RunnerConfig, out io.Writer, format Format, smp sampler.Sampler[E]) (*runner[E], error) {
	if rc.Logger == nil {
		rc.Logger = hclog.NewNullLogger()
	}

	bij, err := buildBijection(conf)
	if err != nil {
		return nil, err
	}

	// Check the lane count against the key space before sizing any
	// storage for it; the engine re-checks, but by then the buffers
	// for an impossible run would already be allocated.
	if bits := bij.KeyBits(); bits < 64 && conf.Lanes > uint64(1)<<bits {
		return nil, fmt.Errorf("%d lanes exceed the %d-bit key space of %s", conf.Lanes, bits, bij.Name())
	}

	var layout randbuf.Layout
	switch conf.Layout {
	case LayoutBatchMajor:
		layout = randbuf.BatchMajor(int(conf.Lanes))
	default:
		layout = randbuf.LaneMajor(conf.Batch)
	}

	ctrs := counters.NewMemory(int(conf.Lanes))
	randoms := randbuf.NewMatrix[E](int(conf.Lanes), conf.Batch, layout)

	eng, err := engine.New(engine.Config[E]{
		Lanes:     conf.Lanes,
		Batch:     conf.Batch,
		Bijection: bij,
		Sampler:   smp,
		Keys:      keygen.New(rc.Seed, bij.KeyBits()),
		Counters:  ctrs,
		Randoms:   randoms,
	})
	if err != nil {
		return nil, err
	}

	r := &runner[E]{
		RunnerConfig: rc,
		conf:         conf,
		eng:          eng,
		ctrs:         ctrs,
		randoms:      randoms,
		out:          out,
		format:       format,
		distribution: conf.Target.String(),
	}

	if conf.LaneRate > 0 {
		r.limiter = newWrappedLimiter(conf.LaneRate, int(conf.LaneRate*10))
	}

	return r, nil
}

func (r *runner[E]) Counters() *counters.Memory {
	return r.ctrs
}

func (r *runner[E]) Run(ctx context.Context) error {
	logger := r.Logger.Named("gen")

	if r.MetricsServer != nil {
		r.MetricsServer.SetConfiguredLanes(r.conf.Lanes)
	}

	for pass := 0; pass < r.conf.Passes; pass++ {
		logger.Debug("starting pass", "pass", pass, "lanes", r.conf.Lanes, "batch", r.conf.Batch)

		if err := r.fill(ctx); err != nil {
			return err
		}

		if err := r.flush(); err != nil {
			return fmt.Errorf("error writing output for pass %d: %w", pass, err)
		}

		logger.Info("pass complete", "pass", pass, "values", uint64(r.conf.Batch)*r.conf.Lanes)
	}

	return nil
}

// fill dispatches every lane to the worker pool once. Lane wave*W+slot
// belongs to worker slot, so the lane-to-key assignment, and with it
// every generated stream, is identical for any worker count; only the
// wall-clock interleaving changes.
func (r *runner[E]) fill(ctx context.Context) error {
	workers := uint64(r.conf.Workers)
	waves := (r.conf.Lanes + workers - 1) / workers

	grp, grpCtx := errgroup.WithContext(ctx)
	for slot := uint64(0); slot < workers; slot++ {
		grp.Go(func() error {
			for wave := uint64(0); wave < waves; wave++ {
				if err := grpCtx.Err(); err != nil {
					return err
				}

				if r.limiter != nil {
					if err := r.limiter.Wait(grpCtx); err != nil {
						return err
					}
				}

				lane := wave*workers + slot
				if lane >= r.conf.Lanes {
					// Only the final wave is ragged, so this worker is
					// done rather than merely skipping ahead.
					break
				}

				start := time.Now()
				r.eng.FillLane(lane)

				if r.MetricsServer != nil {
					r.MetricsServer.ObserveLaneFill(time.Since(start), r.distribution)
					r.MetricsServer.AddValues(r.conf.Batch, r.distribution)
				}
			}
			return nil
		})
	}

	return grp.Wait()
}

func (r *runner[E]) flush() error {
	if r.out == nil {
		return nil
	}

	switch r.format {
	case FormatCSV:
		return writeCSV(r.out, r.randoms)
	default:
		return writeBinary(r.out, r.randoms)
	}
}
