package v1alpha1

import (
	"time"

	"github.com/alexandreLamarre/padlock/pkg/constants"
	"github.com/alexandreLamarre/padlock/pkg/lock"
)

const (
	HoldConstant    = "constant"
	HoldUniform     = "uniform"
	HoldExponential = "exponential"
)

// MaxHold bounds every hold duration of a benchmark.
const MaxHold = time.Hour

const (
	FormatText  = "text"
	FormatTable = "table"
)

type BenchmarkConfig struct {
	// Name of the registered lock backend to benchmark
	Backend string `json:"backend,omitempty" toml:"backend"`
	// Key of the lock shared by all workers
	Key       string `json:"key,omitempty" toml:"key"`
	Reentrant bool   `json:"reentrant,omitempty" toml:"reentrant"`
	// Either "fifo" or "barging"
	Fairness string `json:"fairness,omitempty" toml:"fairness"`

	// Number of concurrent workers
	Workers int `json:"workers,omitempty" toml:"workers"`
	// Operations per worker. Ignored when Duration is set.
	Operations int `json:"operations,omitempty" toml:"operations"`
	// Wall clock duration each run lasts, instead of a fixed operation count
	Duration Duration `json:"duration,omitempty" toml:"duration"`
	Hold     HoldSpec `json:"hold,omitempty" toml:"hold"`

	// Bound on a single acquire attempt. Zero waits until the run deadline.
	AcquireTimeout Duration `json:"acquireTimeout,omitempty" toml:"acquireTimeout"`
	// Bound on a whole run, after which partial results are reported
	Deadline      Duration `json:"deadline,omitempty" toml:"deadline"`
	Retries       int      `json:"retries,omitempty" toml:"retries"`
	RetryInterval Duration `json:"retryInterval,omitempty" toml:"retryInterval"`
	// Total operations per second across workers, 0 means unlimited
	RateLimit float64 `json:"rateLimit,omitempty" toml:"rateLimit"`

	// Number of repeated runs
	Runs int    `json:"runs,omitempty" toml:"runs"`
	Seed uint64 `json:"seed,omitempty" toml:"seed"`

	Report  ReportSpec  `json:"report,omitempty" toml:"report"`
	Metrics MetricsSpec `json:"metrics,omitempty" toml:"metrics"`
	Log     LogSpec     `json:"log,omitempty" toml:"log"`
}

type HoldSpec struct {
	// One of constant, uniform, exponential
	Distribution string `json:"distribution,omitempty" toml:"distribution"`
	// Hold time for constant, mean for exponential
	Mean Duration `json:"mean,omitempty" toml:"mean"`
	// Bounds for uniform
	Min Duration `json:"min,omitempty" toml:"min"`
	Max Duration `json:"max,omitempty" toml:"max"`
}

type ReportSpec struct {
	// Output file, "-" for standard output
	Path string `json:"path,omitempty" toml:"path"`
	// Either "text" or "table"
	Format string `json:"format,omitempty" toml:"format"`
}

type MetricsSpec struct {
	// Address of the prometheus scrape endpoint, disabled when empty
	Addr string `json:"addr,omitempty" toml:"addr"`
}

type LogSpec struct {
	Level string `json:"level,omitempty" toml:"level"`
}

func Default() *BenchmarkConfig {
	return &BenchmarkConfig{
		Backend:    constants.PadlockLockManager,
		Key:        constants.DefaultBenchmarkKey,
		Fairness:   string(lock.FairnessFIFO),
		Workers:    8,
		Operations: 1000,
		Hold: HoldSpec{
			Distribution: HoldConstant,
		},
		AcquireTimeout: NewDuration(time.Second),
		Deadline:       NewDuration(time.Minute),
		RetryInterval:  NewDuration(10 * time.Millisecond),
		Runs:           1,
		Report: ReportSpec{
			Path:   constants.StdoutReportPath,
			Format: FormatText,
		},
		Log: LogSpec{
			Level: "info",
		},
	}
}
