package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	DefaultAcquireTimeout = time.Duration(0)
	DefaultFairness       = FairnessFIFO
)

// Owner identifies the execution unit holding or requesting a lock.
// Go does not expose a stable goroutine identity, so callers carry one explicitly.
type Owner string

// NoOwner is the zero Owner, held by an unlocked lock.
const NoOwner Owner = ""

func NewOwner() Owner {
	return Owner(uuid.New().String())
}

func (o Owner) String() string {
	if o == NoOwner {
		return "<none>"
	}
	return string(o)
}

// Lock is an in-process mutual exclusion primitive with explicit ownership.
//
// Atomicity A : No two owners can hold the same lock at the same time.
// Atomicity B : A release handing the lock to a queued waiter is atomic with respect to new acquirers
// when the lock is fair.
type Lock interface {
	// Acquire blocks until owner holds the lock or the context is done.
	// A done context yields ErrTimedOut (deadline) or ErrCancelled, and the request is withdrawn.
	Acquire(ctx context.Context, owner Owner) error
	// TryAcquire acquires the lock only if it is immediately available, and reports whether it succeeded.
	// It never blocks and never queues.
	TryAcquire(owner Owner) (acquired bool, err error)
	// Release releases one hold of owner on the lock.
	Release(owner Owner) error
	// Key is the name the lock was created under.
	Key() string
}

type LockManager interface {
	// Instantiates a new Lock instance for the given key, with the given options.
	//
	// Defaults to lock.DefaultLockOptions if no options are provided.
	NewLock(key string, opts ...LockOption) Lock
	// Health returns the list of unhealthy conditions, if any.
	Health(ctx context.Context) (conditions []string, err error)
}

type Fairness string

const (
	// FairnessFIFO grants the lock to waiters strictly in arrival order.
	FairnessFIFO Fairness = "fifo"
	// FairnessBarging lets a newly arriving acquirer take a free lock ahead of woken waiters.
	FairnessBarging Fairness = "barging"
)

func (f Fairness) Valid() bool {
	return f == FairnessFIFO || f == FairnessBarging
}

type LockOptions struct {
	Reentrant      bool
	Fairness       Fairness
	AcquireTimeout time.Duration
	Tracer         trace.Tracer
}

func DefaultLockOptions() *LockOptions {
	return &LockOptions{
		Fairness:       DefaultFairness,
		AcquireTimeout: DefaultAcquireTimeout,
	}
}

func (o *LockOptions) Apply(opts ...LockOption) {
	for _, op := range opts {
		op(o)
	}
}

// Settings returns a copy of the options the lock runs with, after any backend overrides.
func (o *LockOptions) Settings() LockOptions {
	return *o
}

// SettingsReporter is implemented by locks that expose the options they actually run with.
type SettingsReporter interface {
	Settings() LockOptions
}

// SettingsOf returns the effective options of lk, or fallback if lk does not report them.
func SettingsOf(lk Lock, fallback LockOptions) LockOptions {
	if r, ok := lk.(SettingsReporter); ok {
		return r.Settings()
	}
	return fallback
}

func (o *LockOptions) TracingEnabled() bool {
	return o.Tracer != nil
}

func (o *LockOptions) RecordError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

type LockOption func(o *LockOptions)

func WithReentrant(reentrant bool) LockOption {
	return func(o *LockOptions) {
		o.Reentrant = reentrant
	}
}

func WithFairness(fairness Fairness) LockOption {
	return func(o *LockOptions) {
		o.Fairness = fairness
	}
}

// WithAcquireTimeout bounds every blocking Acquire, on top of the caller's context.
// Zero disables the bound.
func WithAcquireTimeout(timeout time.Duration) LockOption {
	return func(o *LockOptions) {
		o.AcquireTimeout = timeout
	}
}

func WithTracer(tracer trace.Tracer) LockOption {
	return func(o *LockOptions) {
		o.Tracer = tracer
	}
}
