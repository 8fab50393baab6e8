package gen

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"runtime"

	"github.com/mkeeler/counter-rand/bijection/philox"
	"github.com/mkeeler/counter-rand/bijection/threefry"
	"golang.org/x/time/rate"
)

const (
	defaultUniformBits      = 64
	defaultUniformFloatBits = 64
	defaultNormalSigma      = 1.0
)

const (
	BijectionPhilox   = "philox"
	BijectionThreefry = "threefry"
	BijectionChaCha   = "chacha"
)

const (
	LayoutLaneMajor  = "lane-major"
	LayoutBatchMajor = "batch-major"
)

type Target int

const (
	TargetUniform Target = iota
	TargetUniformFloat
	TargetNormal
)

func (t Target) GoString() string { return t.String() }

func (t Target) String() string {
	switch t {
	case TargetUniform:
		return "uniform"
	case TargetUniformFloat:
		return "uniform-float"
	case TargetNormal:
		return "normal"
	default:
		return ""
	}
}

type Config struct {
	// Lanes is the number of independent value streams to generate
	Lanes uint64
	// Batch is the number of values each lane produces per pass
	Batch int
	// Passes is the number of whole-buffer fills to perform. Lane
	// counters carry over between passes so the streams continue
	// rather than repeat.
	Passes int
	// Workers is the number of goroutines filling lanes. Lanes are
	// dealt out to workers round robin so any worker count yields
	// the same streams.
	Workers int
	// LaneRate is the number of lane fills per second across all
	// workers. Zero leaves the runner unthrottled.
	LaneRate rate.Limit

	// Bijection selects the keyed permutation backing every lane
	Bijection string
	// Rounds overrides the bijection's round count where the
	// bijection is tunable
	Rounds int
	// Layout is the memory order of the output buffer
	Layout string

	Uniform      *UniformConfig
	UniformFloat *UniformFloatConfig
	Normal       *NormalConfig
	Target       Target
}

func (c *Config) Normalize() error {
	configured := 0
	for _, set := range []bool{c.Uniform != nil, c.UniformFloat != nil, c.Normal != nil} {
		if set {
			configured++
		}
	}
	if configured > 1 {
		return errors.New("error validating configuration, cannot configure more than one of Uniform, UniformFloat and Normal, must choose exactly one")
	}
	if configured == 0 {
		return errors.New("error validating configuration, must configure one of Uniform, UniformFloat or Normal")
	}

	if c.Uniform != nil {
		if err := c.Uniform.Normalize(); err != nil {
			return fmt.Errorf("error validating Uniform configuration: %w", err)
		}
		c.Target = TargetUniform
	}

	if c.UniformFloat != nil {
		if err := c.UniformFloat.Normalize(); err != nil {
			return fmt.Errorf("error validating UniformFloat configuration: %w", err)
		}
		c.Target = TargetUniformFloat
	}

	if c.Normal != nil {
		if err := c.Normal.Normalize(); err != nil {
			return fmt.Errorf("error validating Normal configuration: %w", err)
		}
		c.Target = TargetNormal
	}

	if c.Lanes < 1 {
		return fmt.Errorf("invalid Lanes configuration: %d", c.Lanes)
	}

	if c.Batch < 0 {
		return fmt.Errorf("invalid Batch configuration: %d", c.Batch)
	}

	if c.Passes < 1 {
		c.Passes = 1
	}

	if c.Workers < 1 {
		c.Workers = runtime.GOMAXPROCS(0)
	}

	if c.LaneRate < 0 {
		return fmt.Errorf("invalid LaneRate configuration: %v", c.LaneRate)
	}

	if c.Rounds < 0 {
		return fmt.Errorf("invalid Rounds configuration: %d", c.Rounds)
	}

	switch c.Bijection {
	case "":
		c.Bijection = BijectionPhilox
	case BijectionPhilox, BijectionThreefry, BijectionChaCha:
	default:
		return fmt.Errorf("unknown bijection %q", c.Bijection)
	}

	// Resolve the round count so that the stream name is canonical:
	// an explicit Rounds equal to the default and an omitted Rounds
	// must identify the same streams.
	switch c.Bijection {
	case BijectionPhilox:
		if c.Rounds == 0 {
			c.Rounds = philox.DefaultRounds
		}
	case BijectionThreefry:
		if c.Rounds == 0 {
			c.Rounds = threefry.DefaultRounds
		}
	case BijectionChaCha:
		if c.Rounds != 0 {
			return errors.New("error validating configuration, the chacha bijection has a fixed round count, Rounds must be left unset")
		}
	}

	switch c.Layout {
	case "":
		c.Layout = LayoutLaneMajor
	case LayoutLaneMajor, LayoutBatchMajor:
	default:
		return fmt.Errorf("unknown layout %q", c.Layout)
	}

	if c.Batch > 0 && c.Lanes > uint64(math.MaxInt)/uint64(c.Batch) {
		return errors.New("error validating configuration, Lanes times Batch overflows the output buffer")
	}

	return nil
}

// StreamName identifies the family of counter streams this
// configuration produces. Persisted counter snapshots are stored
// under this name so that a snapshot taken with one shape cannot be
// restored into a run with a different one.
func (c *Config) StreamName(seed uint64) string {
	if c.Bijection == BijectionChaCha {
		return fmt.Sprintf("%s/%s/seed-%d/lanes-%d", c.Target, c.Bijection, seed, c.Lanes)
	}
	return fmt.Sprintf("%s/%s-%d/seed-%d/lanes-%d", c.Target, c.Bijection, c.Rounds, seed, c.Lanes)
}

func ReadConfig(path string) (Config, error) {
	var conf Config
	fp, err := os.Open(path)
	if err != nil {
		return conf, fmt.Errorf("error opening config: %w", err)
	}

	dec := json.NewDecoder(fp)

	if err := dec.Decode(&conf); err != nil {
		return conf, fmt.Errorf("error decoding config: %w", err)
	}

	if err := conf.Normalize(); err != nil {
		return conf, fmt.Errorf("error normalizing config: %w", err)
	}

	return conf, nil
}

// UniformConfig requests uniformly distributed integers in [Low, High).
type UniformConfig struct {
	// Bits is the output word width, either 32 or 64
	Bits int
	// Low is the inclusive lower bound of the range
	Low uint64
	// High is the exclusive upper bound of the range
	High uint64
}

func (c *UniformConfig) Normalize() error {
	if c.Bits == 0 {
		c.Bits = defaultUniformBits
	}

	if c.Bits != 32 && c.Bits != 64 {
		return fmt.Errorf("invalid Bits configuration: %d", c.Bits)
	}

	if c.High <= c.Low {
		return fmt.Errorf("invalid range configuration: High (%d) must be greater than Low (%d)", c.High, c.Low)
	}

	if c.Bits == 32 && c.High > math.MaxUint32 {
		return fmt.Errorf("invalid range configuration: High (%d) does not fit in 32 bits", c.High)
	}

	return nil
}

// UniformFloatConfig requests uniformly distributed floating point
// values in [Low, High).
type UniformFloatConfig struct {
	// Bits is the output word width, either 32 or 64
	Bits int
	// Low is the inclusive lower bound of the range
	Low float64
	// High is the exclusive upper bound of the range
	High float64
}

func (c *UniformFloatConfig) Normalize() error {
	if c.Bits == 0 {
		c.Bits = defaultUniformFloatBits
	}

	if c.Bits != 32 && c.Bits != 64 {
		return fmt.Errorf("invalid Bits configuration: %d", c.Bits)
	}

	// An entirely empty range means the unit interval.
	if c.Low == 0 && c.High == 0 {
		c.High = 1
	}

	if math.IsNaN(c.Low) || math.IsInf(c.Low, 0) || math.IsNaN(c.High) || math.IsInf(c.High, 0) {
		return fmt.Errorf("invalid range configuration: bounds must be finite, got [%v, %v)", c.Low, c.High)
	}

	if c.High <= c.Low {
		return fmt.Errorf("invalid range configuration: High (%v) must be greater than Low (%v)", c.High, c.Low)
	}

	return nil
}

// NormalConfig requests normally distributed float64 values.
type NormalConfig struct {
	// Mean is the center of the distribution
	Mean float64
	// Sigma is the standard deviation. Zero selects the standard
	// normal deviation of 1.
	Sigma float64
}

func (c *NormalConfig) Normalize() error {
	if c.Sigma == 0 {
		c.Sigma = defaultNormalSigma
	}

	if math.IsNaN(c.Mean) || math.IsInf(c.Mean, 0) || math.IsNaN(c.Sigma) || math.IsInf(c.Sigma, 0) {
		return fmt.Errorf("invalid distribution configuration: Mean (%v) and Sigma (%v) must be finite", c.Mean, c.Sigma)
	}

	if c.Sigma < 0 {
		return fmt.Errorf("invalid Sigma configuration: %v", c.Sigma)
	}

	return nil
}
