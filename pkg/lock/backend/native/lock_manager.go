package native

import (
	"context"
	"log/slog"
	"sync"

	"github.com/alexandreLamarre/padlock/pkg/constants"
	"github.com/alexandreLamarre/padlock/pkg/lock"
	"github.com/alexandreLamarre/padlock/pkg/lock/broker"
	"go.opentelemetry.io/otel/trace"
)

func init() {
	broker.RegisterLockBroker(
		constants.NativeLockManager,
		func(ctx context.Context, l broker.LockBroker) (lock.LockManager, error) {
			return NewLockManager(l.Tracer, l.Lg), nil
		},
	)
}

type LockManager struct {
	tracer trace.Tracer
	lg     *slog.Logger

	mu    sync.Mutex
	locks map[string]*Lock
}

var _ lock.LockManager = (*LockManager)(nil)

func NewLockManager(tracer trace.Tracer, lg *slog.Logger) *LockManager {
	return &LockManager{
		tracer: tracer,
		lg:     lg,
		locks:  map[string]*Lock{},
	}
}

func (lm *LockManager) NewLock(key string, opts ...lock.LockOption) lock.Lock {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	if l, ok := lm.locks[key]; ok {
		return l
	}
	options := lock.DefaultLockOptions()
	if lm.tracer != nil {
		options.Tracer = lm.tracer
	}
	options.Apply(opts...)
	l := NewLock(key, lm.lg, options)
	lm.locks[key] = l
	return l
}

// Health always reports healthy, native locks keep no queue to inspect.
func (lm *LockManager) Health(_ context.Context) ([]string, error) {
	return []string{}, nil
}
