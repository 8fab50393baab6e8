package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/mkeeler/counter-rand/counters/sqlitestate"
	"github.com/mkeeler/counter-rand/gen"
	"github.com/mkeeler/counter-rand/gen/config"
	"github.com/mkeeler/counter-rand/metrics"
)

// envDefaults are the environment-variable defaults for the generate
// command's flags. Flags always win over the environment.
type envDefaults struct {
	ConfigPath  string `env:"COUNTER_RAND_CONFIG"`
	Seed        uint64 `env:"COUNTER_RAND_SEED"`
	OutPath     string `env:"COUNTER_RAND_OUT"`
	Format      string `env:"COUNTER_RAND_FORMAT" envDefault:"binary"`
	StatePath   string `env:"COUNTER_RAND_STATE"`
	MetricsPort int    `env:"COUNTER_RAND_METRICS_PORT"`
	ReportAddr  string `env:"COUNTER_RAND_REPORT_ADDR"`
	LogLevel    string `env:"COUNTER_RAND_LOG_LEVEL" envDefault:"info"`
}

type generateCommand struct {
	ui          cli.Ui
	configPath  string
	seed        uint64
	outPath     string
	format      string
	statePath   string
	quiet       bool
	timeout     time.Duration
	workers     int
	metricsPort int
	reportAddr  string
	levelString string

	flags *flag.FlagSet
	help  string
}

func newGenerateCommand(ui cli.Ui) cli.Command {
	c := &generateCommand{
		ui: ui,
	}

	var defaults envDefaults
	if err := env.Parse(&defaults); err != nil {
		ui.Warn(fmt.Sprintf("Ignoring invalid COUNTER_RAND_* environment defaults: %v", err))
		defaults = envDefaults{Format: "binary", LogLevel: hclog.Info.String()}
	}

	levelChoices := strings.Join([]string{
		hclog.Off.String(),
		hclog.Trace.String(),
		hclog.Debug.String(),
		hclog.Info.String(),
		hclog.Warn.String(),
		hclog.Error.String(),
	}, ", ")

	flags := flag.NewFlagSet("", flag.ContinueOnError)

	flags.StringVar(&c.configPath, "config", defaults.ConfigPath, "Path to the configuration describing what to generate")
	flags.Uint64Var(&c.seed, "seed", defaults.Seed, "Value to derive every lane key from instead of the current time. The same seed, configuration and counters reproduce the same output exactly")
	flags.StringVar(&c.outPath, "out", defaults.OutPath, "Path to write generated values to. Defaults to stdout")
	flags.StringVar(&c.format, "format", defaults.Format, "Output format. Must be one of [binary, csv]")
	flags.StringVar(&c.statePath, "state", defaults.StatePath, "Path to a SQLite file holding lane counters. Counters are restored before the run and checkpointed after it succeeds, so successive runs continue the streams (default: fresh counters)")
	flags.BoolVar(&c.quiet, "quiet", false, "Whether to suppress log output below warning level")
	flags.DurationVar(&c.timeout, "timeout", 0, "How long to allow the generation to run before interrupting it (default: no limit)")
	flags.IntVar(&c.workers, "workers", 0, "Number of worker goroutines filling lanes. Output is identical for any worker count (default: the configuration's value)")
	flags.IntVar(&c.metricsPort, "metrics-port", defaults.MetricsPort, "listening port for metrics path /metrics (default: disabled)")
	flags.StringVar(&c.reportAddr, "report-addr", defaults.ReportAddr, "address to retrieve performance measurement (default: disabled)")
	flags.StringVar(&c.levelString, "log-level", defaults.LogLevel, fmt.Sprintf("Log level. Must be one of [%s]", levelChoices))

	c.flags = flags
	c.help = genUsage(`Usage: counter-rand generate [OPTIONS]

	Generate reproducible pseudorandom values.

	This command reads a configuration describing the lanes, batch size and
	distribution to generate, fills the output buffer using counter-based
	random number generation, and writes the result to the output path.`, c.flags)

	return c
}

func (c *generateCommand) Run(args []string) int {
	if err := c.flags.Parse(args); err != nil {
		c.ui.Error(fmt.Sprintf("Failed to parse command line arguments: %v", err))
		return 1
	}

	level := hclog.LevelFromString(c.levelString)
	if level == hclog.NoLevel {
		c.ui.Error(fmt.Sprintf("Invalid log level choice: %s", c.levelString))
		return 1
	}
	if c.quiet && level < hclog.Warn {
		level = hclog.Warn
	}

	if c.configPath == "" {
		c.ui.Error("Must supply a configuration")
		return 1
	}

	conf, err := gen.ReadConfig(c.configPath)
	if err != nil {
		c.ui.Error(fmt.Sprintf("Error reading config: %v", err))
		return 1
	}
	if c.workers > 0 {
		conf.Workers = c.workers
	}

	format, err := gen.ParseFormat(c.format)
	if err != nil {
		c.ui.Error(fmt.Sprintf("Error reading output format: %v", err))
		return 1
	}

	if c.seed == 0 {
		c.seed = uint64(time.Now().UnixNano())
	}

	// wait for signal
	signalCh := make(chan os.Signal, 10)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM, syscall.SIGPIPE)

	var ctx context.Context
	var cancel context.CancelFunc
	if c.timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), c.timeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	defer cancel()

	logger := hclog.New(&hclog.LoggerOptions{
		Name:            "counter-rand",
		Level:           level,
		Output:          uiLogWriter(c.ui),
		IncludeLocation: false,
	})

	ctx = hclog.WithContext(ctx, logger)

	var metricsServer *metrics.MetricsServer
	if c.metricsPort != 0 {
		listenAddr := "0.0.0.0:%d"
		metricsAddr := fmt.Sprintf(listenAddr, c.metricsPort)
		metricsServer = metrics.NewMetricsServer(metrics.ServerConfig{
			Addr: metricsAddr,
		})
		go func() {
			logger.Info("Starting Metric Server", "address", metricsServer.Addr)
			if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
				logger.Error("error starting metric server", "error", err)
			}
		}()
	}

	go func() {
		shutdownMetricsServer := func() {
			if metricsServer != nil {
				metricsServer.Shutdown(ctx)
			}
		}
		for {
			var sig os.Signal
			select {
			case s := <-signalCh:
				sig = s
			case <-ctx.Done():
				shutdownMetricsServer()
				return
			}

			switch sig {
			case syscall.SIGPIPE:
				continue
			default:
				logger.Info("Shutting down")
				shutdownMetricsServer()
				cancel()
				return
			}
		}
	}()

	out := io.Writer(os.Stdout)
	if c.outPath != "" && c.outPath != "-" {
		fp, err := os.Create(c.outPath)
		if err != nil {
			c.ui.Error(fmt.Sprintf("Error creating output file: %v", err))
			return 1
		}
		defer fp.Close()
		out = fp
	}

	runner, err := gen.NewRunner(conf, config.RunnerConfig{
		Seed:          c.seed,
		MetricsServer: metricsServer,
		Logger:        logger,
	}, out, format)
	if err != nil {
		c.ui.Error(fmt.Sprintf("Error building generator: %v", err))
		return 1
	}

	stream := conf.StreamName(c.seed)

	var stateDB *sqlitestate.DB
	stateLogger := logger.Named("state")
	if c.statePath != "" {
		stateDB, err = sqlitestate.Open(c.statePath)
		if err != nil {
			c.ui.Error(fmt.Sprintf("Error opening state database: %v", err))
			return 1
		}
		defer stateDB.Close()

		snapshot, err := stateDB.Load(ctx, stream, int(conf.Lanes))
		if err != nil {
			c.ui.Error(fmt.Sprintf("Error loading lane counters: %v", err))
			return 1
		}
		if err := runner.Counters().Restore(snapshot); err != nil {
			c.ui.Error(fmt.Sprintf("Error restoring lane counters: %v", err))
			return 1
		}
		stateLogger.Info("Restored lane counters", "path", c.statePath, "stream", stream)
	}

	start := time.Now()
	logger.Info("Generation started", "target", conf.Target.String(), "bijection", conf.Bijection, "lanes", conf.Lanes, "batch", conf.Batch, "passes", conf.Passes, "seed", c.seed)

	if err := runner.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			c.ui.Error("Generation interrupted before completing; output and counters were not finalized")
		} else {
			c.ui.Error(fmt.Sprintf("Error generating values: %v", err))
		}
		return 1
	}

	// Checkpoint only after a fully successful run so a failed or
	// interrupted one can be retried from the previous counters.
	if stateDB != nil {
		saveCtx, saveCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer saveCancel()
		if err := stateDB.Save(saveCtx, stream, runner.Counters().Snapshot()); err != nil {
			c.ui.Error(fmt.Sprintf("Error checkpointing lane counters: %v", err))
			return 1
		}
		stateLogger.Info("Checkpointed lane counters", "path", c.statePath, "stream", stream)
	}

	logger.Info("Generation completed", "duration", time.Since(start).Round(time.Millisecond).String())

	if metricsServer != nil && c.reportAddr != "" {
		if err := metrics.GenReport(c.reportAddr, time.Since(start)); err != nil {
			logger.Error("error generating performance report", "error", err)
		}
	}
	return 0
}

func (c *generateCommand) Synopsis() string {
	return "Generate reproducible pseudorandom values"
}

func (c *generateCommand) Help() string {
	return c.help
}

func uiLogWriter(ui cli.Ui) io.Writer {
	return hclog.NewLeveledWriter(
		uiWriter(ui.Output),
		map[hclog.Level]io.Writer{
			hclog.Info:  uiWriter(ui.Info),
			hclog.Error: uiWriter(ui.Error),
			hclog.Warn:  uiWriter(ui.Warn),
		},
	)
}

type uiWriter func(string)

func (write uiWriter) Write(p []byte) (n int, err error) {
	// trim the newline as the cli.Ui will add it on for us.
	write(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
