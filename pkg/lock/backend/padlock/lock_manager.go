package padlock

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/alexandreLamarre/padlock/pkg/constants"
	"github.com/alexandreLamarre/padlock/pkg/lock"
	"github.com/alexandreLamarre/padlock/pkg/lock/broker"
	"github.com/benbjohnson/clock"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel/trace"
)

func init() {
	broker.RegisterLockBroker(
		constants.PadlockLockManager,
		func(ctx context.Context, l broker.LockBroker) (lock.LockManager, error) {
			return NewLockManager(l.Tracer, l.Lg), nil
		},
	)
}

// LockManager hands out one Padlock per key.
type LockManager struct {
	tracer trace.Tracer
	clock  clock.Clock

	starvationThreshold time.Duration
	defaults            []lock.LockOption

	lg *slog.Logger

	mu    sync.Mutex
	locks map[string]*Padlock
}

var _ lock.LockManager = (*LockManager)(nil)

type LockManagerOption func(*LockManager)

func WithClock(clk clock.Clock) LockManagerOption {
	return func(lm *LockManager) {
		lm.clock = clk
	}
}

func WithStarvationThreshold(threshold time.Duration) LockManagerOption {
	return func(lm *LockManager) {
		lm.starvationThreshold = threshold
	}
}

// WithDefaultLockOptions applies opts to every lock before the options passed to NewLock.
func WithDefaultLockOptions(opts ...lock.LockOption) LockManagerOption {
	return func(lm *LockManager) {
		lm.defaults = append(lm.defaults, opts...)
	}
}

func NewLockManager(
	tracer trace.Tracer,
	lg *slog.Logger,
	opts ...LockManagerOption,
) *LockManager {
	lm := &LockManager{
		tracer:              tracer,
		clock:               clock.New(),
		starvationThreshold: constants.DefaultStarvationThreshold,
		lg:                  lg,
		locks:               map[string]*Padlock{},
	}
	for _, opt := range opts {
		opt(lm)
	}
	return lm
}

// NewLock returns the padlock registered under key, creating it on first use.
// Options only apply to the call that creates the lock.
func (lm *LockManager) NewLock(key string, opts ...lock.LockOption) lock.Lock {
	return lm.Padlock(key, opts...)
}

func (lm *LockManager) Padlock(key string, opts ...lock.LockOption) *Padlock {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	if p, ok := lm.locks[key]; ok {
		return p
	}
	options := lock.DefaultLockOptions()
	if lm.tracer != nil {
		options.Tracer = lm.tracer
	}
	options.Apply(lm.defaults...)
	options.Apply(opts...)
	p := NewPadlock(key, lm.lg, lm.clock, options)
	lm.locks[key] = p
	return p
}

func (lm *LockManager) Health(_ context.Context) (conditions []string, err error) {
	lm.mu.Lock()
	locks := lo.Values(lm.locks)
	lm.mu.Unlock()

	conditions = []string{}
	for _, p := range locks {
		waited, ok := p.headWait()
		if ok && waited > lm.starvationThreshold {
			conditions = append(conditions, fmt.Sprintf("%s : head waiter queued for %s", p.Key(), waited))
		}
	}
	slices.Sort(conditions)
	return conditions, nil
}
