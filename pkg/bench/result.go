package bench

import (
	"errors"
	"fmt"
	"time"

	"github.com/alexandreLamarre/padlock/pkg/lock"
)

// ErrMutualExclusionViolated is returned when two workers are observed inside the critical section at once.
var ErrMutualExclusionViolated = errors.New("mutual exclusion violated")

// OpRecord is the measurement of a single acquire / hold / release cycle.
type OpRecord struct {
	Index int
	// Latency is the time from the first acquire attempt until the lock was held, or until giving up
	Latency time.Duration
	Hold    time.Duration
	// Contended is set when the lock could not be taken without waiting
	Contended bool
	Attempts  int
	Err       error
}

func (o OpRecord) Failed() bool {
	return o.Err != nil
}

// BenchmarkResult holds everything a single worker recorded during a run.
type BenchmarkResult struct {
	Worker  int
	Owner   lock.Owner
	Records []OpRecord

	Completed int
	Failed    int
	Contended int
	// Stopped is set when the worker gave up before running all of its operations
	Stopped bool
}

func (r *BenchmarkResult) record(op OpRecord) {
	r.Records = append(r.Records, op)
	if op.Contended {
		r.Contended++
	}
	if op.Failed() {
		r.Failed++
		return
	}
	r.Completed++
}

type Failure struct {
	Worker int
	Op     int
	Err    error
}

func (f Failure) String() string {
	return fmt.Sprintf("worker=%d op=%d err=%s", f.Worker, f.Op, f.Err.Error())
}

// Results is the outcome of one benchmark run.
type Results struct {
	Backend   string
	Fairness  lock.Fairness
	Reentrant bool

	Workers []BenchmarkResult
	Elapsed time.Duration
	// Partial is set when the run stopped before every worker finished its operations
	Partial  bool
	Failures []Failure
}

func (r *Results) Operations() (total, completed, failed, contended int) {
	for _, w := range r.Workers {
		total += len(w.Records)
		completed += w.Completed
		failed += w.Failed
		contended += w.Contended
	}
	return
}

func (r *Results) collectFailures() {
	r.Failures = []Failure{}
	for _, w := range r.Workers {
		for _, op := range w.Records {
			if op.Failed() {
				r.Failures = append(r.Failures, Failure{
					Worker: w.Worker,
					Op:     op.Index,
					Err:    op.Err,
				})
			}
		}
	}
}
