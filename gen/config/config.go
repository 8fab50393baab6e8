package config

import (
	"github.com/hashicorp/go-hclog"
	"github.com/mkeeler/counter-rand/metrics"
)

type RunnerConfig struct {
	// Seed is a 64 bit integer value used to derive the keys
	// for every lane of a runner's bijection
	Seed uint64

	// MetricsServer is the metrics server that a runner may
	// use for emitting metrics
	MetricsServer *metrics.MetricsServer

	// Logger is a logger.
	Logger hclog.Logger
}

func (rc RunnerConfig) WithSeed(seed uint64) RunnerConfig {
	// because the receiver is not a pointer value we can just
	// override and return.
	rc.Seed = seed
	return rc
}

func (rc RunnerConfig) WithLogger(logger hclog.Logger) RunnerConfig {
	// because the receiver is not a pointer value we can just
	// override and return.
	rc.Logger = logger
	return rc
}
