package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/alexandreLamarre/padlock/pkg/bench"
	"github.com/alexandreLamarre/padlock/pkg/config/v1alpha1"
	"github.com/alexandreLamarre/padlock/pkg/instrumentation"
	"github.com/alexandreLamarre/padlock/pkg/lock/broker"
	"github.com/alexandreLamarre/padlock/pkg/logger"
	"github.com/alexandreLamarre/padlock/pkg/report"
	"github.com/alexandreLamarre/padlock/pkg/util"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.opentelemetry.io/otel/trace"
)

type benchFlags struct {
	backend          string
	workers          int
	operations       int
	duration         time.Duration
	hold             time.Duration
	holdMin          time.Duration
	holdMax          time.Duration
	holdDistribution string
	timeout          time.Duration
	deadline         time.Duration
	retries          int
	rate             float64
	runs             int
	seed             uint64
	reentrant        bool
	fairness         string
	output           string
	format           string
	metricsAddr      string
	traceFile        string
	logLevel         string
}

// apply overrides config with the flags explicitly set on the command line.
func (f *benchFlags) apply(flags *pflag.FlagSet, config *v1alpha1.BenchmarkConfig) {
	set := func(name string, fn func()) {
		if flags.Changed(name) {
			fn()
		}
	}
	set("backend", func() { config.Backend = f.backend })
	set("workers", func() { config.Workers = f.workers })
	set("operations", func() { config.Operations = f.operations })
	set("duration", func() { config.Duration = v1alpha1.NewDuration(f.duration) })
	set("hold", func() { config.Hold.Mean = v1alpha1.NewDuration(f.hold) })
	set("hold-min", func() { config.Hold.Min = v1alpha1.NewDuration(f.holdMin) })
	set("hold-max", func() { config.Hold.Max = v1alpha1.NewDuration(f.holdMax) })
	set("hold-distribution", func() { config.Hold.Distribution = f.holdDistribution })
	set("timeout", func() { config.AcquireTimeout = v1alpha1.NewDuration(f.timeout) })
	set("deadline", func() { config.Deadline = v1alpha1.NewDuration(f.deadline) })
	set("retries", func() { config.Retries = f.retries })
	set("rate", func() { config.RateLimit = f.rate })
	set("runs", func() { config.Runs = f.runs })
	set("seed", func() { config.Seed = f.seed })
	set("reentrant", func() { config.Reentrant = f.reentrant })
	set("fairness", func() { config.Fairness = f.fairness })
	set("output", func() { config.Report.Path = f.output })
	set("format", func() { config.Report.Format = f.format })
	set("metrics-addr", func() { config.Metrics.Addr = f.metricsAddr })
	set("log-level", func() { config.Log.Level = f.logLevel })
}

func BuildBenchCmd() *cobra.Command {
	f := &benchFlags{}
	cmd := &cobra.Command{
		Use:   "bench [config|workers]",
		Short: "Run the lock benchmark and emit a performance report",
		Long: `Run the lock benchmark and emit a performance report.

The optional argument is either a worker count or the path to a JSON or TOML
benchmark config. Flags override the values read from the config.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := v1alpha1.Resolve(lo.FirstOr(args, ""))
			if err != nil {
				return err
			}
			f.apply(cmd.Flags(), config)
			if err := config.Validate(); err != nil {
				return err
			}
			lg := logger.New(
				logger.WithLogLevel(logger.ParseLevel(config.Log.Level)),
				logger.WithWriter(cmd.ErrOrStderr()),
			)
			return runBenchmark(cmd.Context(), lg, config, f.traceFile)
		},
	}
	defaults := v1alpha1.Default()
	cmd.Flags().StringVarP(&f.backend, "backend", "b", defaults.Backend, fmt.Sprintf("lock backend to benchmark, one of %s", strings.Join(broker.Backends(), ", ")))
	cmd.Flags().IntVarP(&f.workers, "workers", "w", defaults.Workers, "number of concurrent workers")
	cmd.Flags().IntVarP(&f.operations, "operations", "n", defaults.Operations, "operations per worker")
	cmd.Flags().DurationVar(&f.duration, "duration", 0, "run for a fixed duration instead of a fixed number of operations")
	cmd.Flags().DurationVar(&f.hold, "hold", 0, "hold time, or mean hold time for exponential holds")
	cmd.Flags().DurationVar(&f.holdMin, "hold-min", 0, "lower bound of uniform holds")
	cmd.Flags().DurationVar(&f.holdMax, "hold-max", 0, "upper bound of uniform holds")
	cmd.Flags().StringVar(&f.holdDistribution, "hold-distribution", defaults.Hold.Distribution, "one of constant, uniform, exponential")
	cmd.Flags().DurationVarP(&f.timeout, "timeout", "t", defaults.AcquireTimeout.Duration, "timeout of a single acquire attempt, 0 to wait until the deadline")
	cmd.Flags().DurationVar(&f.deadline, "deadline", defaults.Deadline.Duration, "deadline of a whole run")
	cmd.Flags().IntVar(&f.retries, "retries", 0, "retries of timed out acquire attempts")
	cmd.Flags().Float64Var(&f.rate, "rate", 0, "operations per second across workers, 0 for unlimited")
	cmd.Flags().IntVar(&f.runs, "runs", defaults.Runs, "number of runs")
	cmd.Flags().Uint64Var(&f.seed, "seed", 0, "seed of the hold time samplers")
	cmd.Flags().BoolVar(&f.reentrant, "reentrant", false, "make the lock reentrant")
	cmd.Flags().StringVar(&f.fairness, "fairness", defaults.Fairness, "one of fifo, barging")
	cmd.Flags().StringVarP(&f.output, "output", "o", defaults.Report.Path, "report file, - for standard output")
	cmd.Flags().StringVarP(&f.format, "format", "f", defaults.Report.Format, "one of text, table")
	cmd.Flags().StringVar(&f.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address during the benchmark")
	cmd.Flags().StringVar(&f.traceFile, "trace-file", "", "write acquire spans to this file")
	cmd.Flags().StringVar(&f.logLevel, "log-level", defaults.Log.Level, "one of debug, info, warn, error")
	return cmd
}

func runBenchmark(ctx context.Context, lg *slog.Logger, config *v1alpha1.BenchmarkConfig, traceFile string) error {
	ctx, ca := context.WithCancel(ctx)
	defer ca()

	var tracer trace.Tracer
	if traceFile != "" {
		f, err := os.Create(traceFile)
		if err != nil {
			return err
		}
		defer f.Close()
		tp := util.Must(instrumentation.NewTracerProvider(f))
		defer tp.Shutdown(context.Background())
		tracer = tp.Tracer(instrumentation.TracerName)
	}

	lm, err := broker.NewLockManager(ctx, config.Backend, lg, tracer)
	if err != nil {
		return err
	}

	metricsServer, err := instrumentation.NewMetricsServer(config.Metrics.Addr, lg)
	if err != nil {
		return err
	}
	bench.RegisterMeterProvider(metricsServer.Provider())
	defer metricsServer.Shutdown(context.Background())
	metricsServer.SetLockManager(lm)
	metricsErrC := lo.Async(func() error {
		return metricsServer.ListenAndServe(ctx)
	})

	h, err := bench.NewHarness(lm, config, bench.WithLogger(lg))
	if err != nil {
		return err
	}

	reports := make([]report.AggregateReport, 0, config.Runs)
	var runErr error
	for i := range config.Runs {
		res, err := h.Run(ctx)
		if res != nil {
			reports = append(reports, report.Aggregate(res))
		}
		if err != nil {
			runErr = fmt.Errorf("run %d/%d aborted: %w", i+1, config.Runs, err)
			break
		}
		if res.Partial {
			lg.With("run", i+1).Warn("run hit its deadline, report is partial")
		}
	}

	if len(reports) > 0 {
		if err := report.NewEmitter(config.Report.Format).WriteFile(config.Report.Path, reports...); err != nil {
			return errors.Join(runErr, err)
		}
	}
	ca()
	if err := <-metricsErrC; err != nil {
		lg.With(logger.Err(err)).Warn("metrics server exited")
	}
	return runErr
}
