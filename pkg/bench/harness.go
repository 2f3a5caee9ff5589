package bench

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/alexandreLamarre/padlock/pkg/config/v1alpha1"
	"github.com/alexandreLamarre/padlock/pkg/lock"
	"github.com/alexandreLamarre/padlock/pkg/logger"
	"github.com/benbjohnson/clock"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
	api "go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Harness drives concurrent workers against a single lock and records what each of them observed.
type Harness struct {
	lm     lock.LockManager
	config *v1alpha1.BenchmarkConfig

	lg    *slog.Logger
	clock clock.Clock
}

type HarnessOption func(*Harness)

func WithClock(clk clock.Clock) HarnessOption {
	return func(h *Harness) {
		h.clock = clk
	}
}

func WithLogger(lg *slog.Logger) HarnessOption {
	return func(h *Harness) {
		h.lg = lg
	}
}

func NewHarness(lm lock.LockManager, config *v1alpha1.BenchmarkConfig, opts ...HarnessOption) (*Harness, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	h := &Harness{
		lm:     lm,
		config: config,
		lg:     logger.NewNop(),
		clock:  clock.New(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Run executes one benchmark run. Operations that time out are recorded as failures and do not
// stop the run. Hitting the run deadline returns partial results without an error.
// Any other error aborts the run and is returned alongside the partial results.
func (h *Harness) Run(ctx context.Context) (*Results, error) {
	fairness := lock.Fairness(h.config.Fairness)
	lk := h.lm.NewLock(
		h.config.Key,
		lock.WithReentrant(h.config.Reentrant),
		lock.WithFairness(fairness),
	)
	lg := h.lg.With("backend", h.config.Backend, "workers", h.config.Workers)

	runCtx := ctx
	if h.config.Deadline.Duration > 0 {
		ctxT, ca := h.clock.WithTimeout(ctx, h.config.Deadline.Duration)
		defer ca()
		runCtx = ctxT
	}

	var limiter *rate.Limiter
	if h.config.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(h.config.RateLimit), 1)
	}
	var stopAt time.Time
	if h.config.Duration.Duration > 0 {
		stopAt = h.clock.Now().Add(h.config.Duration.Duration)
	}

	results := make([]BenchmarkResult, h.config.Workers)
	inCritical := &atomic.Int32{}
	attrs := api.WithAttributes(attribute.String("backend", h.config.Backend))

	samplers := make([]HoldSampler, h.config.Workers)
	for i := range samplers {
		sampler, err := NewHoldSampler(h.config.Hold, h.config.Seed, uint64(i))
		if err != nil {
			return nil, err
		}
		samplers[i] = sampler
	}

	eg, egCtx := errgroup.WithContext(runCtx)
	lg.Debug("starting benchmark run")
	start := h.clock.Now()
	for i := range results {
		results[i] = BenchmarkResult{
			Worker: i,
			Owner:  lock.NewOwner(),
		}
		w := &worker{
			lk:         lk,
			config:     h.config,
			clock:      h.clock,
			lg:         lg.With("worker", i),
			limiter:    limiter,
			sampler:    samplers[i],
			inCritical: inCritical,
			stopAt:     stopAt,
			attrs:      attrs,
			result:     &results[i],
		}
		eg.Go(func() error {
			return w.run(egCtx)
		})
	}
	runErr := eg.Wait()
	elapsed := h.clock.Since(start)

	settings := lock.SettingsOf(lk, lock.LockOptions{
		Fairness:  fairness,
		Reentrant: h.config.Reentrant,
	})
	stopped := lo.SomeBy(results, func(r BenchmarkResult) bool {
		return r.Stopped
	})
	res := &Results{
		Backend:   h.config.Backend,
		Fairness:  settings.Fairness,
		Reentrant: settings.Reentrant,
		Workers:   results,
		Elapsed:   elapsed,
		Partial:   runErr != nil || runCtx.Err() != nil || stopped,
	}
	res.collectFailures()
	if runErr != nil {
		lg.With(logger.Err(runErr)).Error("benchmark run aborted")
		return res, runErr
	}
	if res.Partial {
		lg.With("elapsed", elapsed).Warn("benchmark run stopped early, reporting partial results")
	}
	return res, nil
}
