package bench

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/alexandreLamarre/padlock/pkg/config/v1alpha1"
	"github.com/alexandreLamarre/padlock/pkg/lock"
	"github.com/alexandreLamarre/padlock/pkg/logger"
	"github.com/benbjohnson/clock"
	backoffv2 "github.com/lestrrat-go/backoff/v2"
	api "go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"
)

type worker struct {
	lk     lock.Lock
	config *v1alpha1.BenchmarkConfig
	clock  clock.Clock
	lg     *slog.Logger

	limiter    *rate.Limiter
	sampler    HoldSampler
	inCritical *atomic.Int32
	// zero unless the run is bounded by wall clock duration
	stopAt time.Time
	attrs  api.MeasurementOption

	result *BenchmarkResult
}

func (w *worker) next(op int) bool {
	if !w.stopAt.IsZero() {
		return w.clock.Now().Before(w.stopAt)
	}
	return op < w.config.Operations
}

func (w *worker) run(ctx context.Context) error {
	for op := 0; w.next(op); op++ {
		if ctx.Err() != nil {
			w.result.Stopped = true
			return nil
		}
		if w.limiter != nil {
			// fails early when the next token is due after the run deadline
			if err := w.limiter.Wait(ctx); err != nil {
				w.lg.With(logger.Err(err)).Debug("rate limiter stopped worker")
				w.result.Stopped = true
				return nil
			}
		}
		rec, err := w.operation(ctx, op)
		w.result.record(rec)
		w.observe(ctx, rec)
		if err != nil {
			return fmt.Errorf("worker %d op %d: %w", w.result.Worker, op, err)
		}
	}
	return nil
}

func (w *worker) observe(ctx context.Context, rec OpRecord) {
	if rec.Contended {
		ContendedCount.Add(ctx, 1, w.attrs)
	}
	if rec.Failed() {
		FailedCount.Add(ctx, 1, w.attrs)
		return
	}
	AcquireCount.Add(ctx, 1, w.attrs)
	AcquireLatency.Record(ctx, float64(rec.Latency.Nanoseconds()), w.attrs)
	HoldTime.Record(ctx, float64(rec.Hold.Nanoseconds()), w.attrs)
}

// operation runs one acquire, hold, release cycle. A non-nil error aborts the run, recoverable
// acquisition failures are only reported through the record.
func (w *worker) operation(ctx context.Context, op int) (OpRecord, error) {
	owner := w.result.Owner
	rec := OpRecord{Index: op, Attempts: 1}
	start := w.clock.Now()

	acquired, err := w.lk.TryAcquire(owner)
	if err != nil {
		rec.Err = err
		return rec, err
	}
	if !acquired {
		rec.Contended = true
		attempts, err := w.acquire(ctx, owner)
		rec.Attempts = attempts
		if err != nil {
			rec.Latency = w.clock.Since(start)
			rec.Err = err
			if lock.IsRecoverable(err) {
				w.lg.With("op", op).Debug(err.Error())
				return rec, nil
			}
			return rec, err
		}
	}
	rec.Latency = w.clock.Since(start)

	if n := w.inCritical.Add(1); n != 1 {
		w.inCritical.Add(-1)
		err := fmt.Errorf("%w : %d holders observed", ErrMutualExclusionViolated, n)
		rec.Err = err
		return rec, errors.Join(err, w.lk.Release(owner))
	}
	holdStart := w.clock.Now()
	w.hold(w.sampler.Next())
	rec.Hold = w.clock.Since(holdStart)
	w.inCritical.Add(-1)

	if err := w.lk.Release(owner); err != nil {
		rec.Err = err
		return rec, err
	}
	return rec, nil
}

// acquire blocks on the lock, retrying timed out attempts when configured to.
func (w *worker) acquire(ctx context.Context, owner lock.Owner) (attempts int, err error) {
	try := func() error {
		attempts++
		opCtx := ctx
		if w.config.AcquireTimeout.Duration > 0 {
			ctxT, ca := context.WithTimeout(ctx, w.config.AcquireTimeout.Duration)
			defer ca()
			opCtx = ctxT
		}
		return w.lk.Acquire(opCtx, owner)
	}
	if w.config.Retries == 0 {
		return attempts, try()
	}

	retrier := backoffv2.Constant(
		backoffv2.WithMaxRetries(w.config.Retries),
		backoffv2.WithInterval(w.config.RetryInterval.Duration),
		backoffv2.WithJitterFactor(0.1),
	)
	b := retrier.Start(ctx)
	for backoffv2.Continue(b) {
		err = try()
		if err == nil || !errors.Is(err, lock.ErrTimedOut) || ctx.Err() != nil {
			return attempts, err
		}
	}
	if err == nil {
		err = lock.AcquireError(w.lk.Key(), ctx.Err())
	}
	return attempts, err
}

// hold simulates work inside the critical section. The lock is always released afterwards,
// so the hold is not interrupted by cancellation.
func (w *worker) hold(d time.Duration) {
	if d <= 0 {
		return
	}
	w.clock.Sleep(d)
}
