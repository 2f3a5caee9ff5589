package native

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alexandreLamarre/padlock/pkg/lock"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Lock is a baseline lock backed by a buffered channel. Waiters race for the channel slot,
// so it offers no ordering between waiters and is never reentrant.
type Lock struct {
	key string
	lg  *slog.Logger

	sem chan struct{}

	mu      sync.Mutex
	owner   lock.Owner
	pending map[lock.Owner]struct{}

	*lock.LockOptions
}

var _ lock.Lock = (*Lock)(nil)

func NewLock(key string, lg *slog.Logger, options *lock.LockOptions) *Lock {
	if options == nil {
		options = lock.DefaultLockOptions()
	}
	lg = lg.With("key", key)
	if options.Reentrant {
		lg.Warn("native locks are not reentrant, ignoring option")
		options.Reentrant = false
	}
	// waiters race for the channel slot whatever was requested
	options.Fairness = lock.FairnessBarging
	return &Lock{
		key:         key,
		lg:          lg,
		sem:         make(chan struct{}, 1),
		pending:     map[lock.Owner]struct{}{},
		LockOptions: options,
	}
}

func (l *Lock) Key() string {
	return l.key
}

// check rejects self acquisition and duplicate waits, registering owner as pending otherwise.
func (l *Lock) check(owner lock.Owner) error {
	if owner == lock.NoOwner {
		return lock.ErrInvalidOwner
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.owner == owner {
		return fmt.Errorf("%w %s : %s", lock.ErrDeadlockDetected, l.key, owner)
	}
	if _, ok := l.pending[owner]; ok {
		return fmt.Errorf("%w %s : %s", lock.ErrReentrantWaitConflict, l.key, owner)
	}
	l.pending[owner] = struct{}{}
	return nil
}

func (l *Lock) take(owner lock.Owner) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.pending, owner)
	l.owner = owner
}

func (l *Lock) abandon(owner lock.Owner) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.pending, owner)
}

func (l *Lock) Acquire(ctx context.Context, owner lock.Owner) (err error) {
	if err := l.check(owner); err != nil {
		return err
	}
	if l.TracingEnabled() {
		ctxSpan, span := l.Tracer.Start(ctx, "Lock/native-acquire", trace.WithAttributes(
			attribute.KeyValue{
				Key:   "key",
				Value: attribute.StringValue(l.key),
			},
		))
		defer func() {
			l.RecordError(span, err)
			span.End()
		}()
		ctx = ctxSpan
	}
	if l.AcquireTimeout > 0 {
		ctxT, ca := context.WithTimeout(ctx, l.AcquireTimeout)
		defer ca()
		ctx = ctxT
	}
	select {
	case l.sem <- struct{}{}:
		l.take(owner)
		return nil
	case <-ctx.Done():
		l.abandon(owner)
		return lock.AcquireError(l.key, ctx.Err())
	}
}

func (l *Lock) TryAcquire(owner lock.Owner) (bool, error) {
	if err := l.check(owner); err != nil {
		return false, err
	}
	select {
	case l.sem <- struct{}{}:
		l.take(owner)
		return true, nil
	default:
		l.abandon(owner)
		return false, nil
	}
}

func (l *Lock) Release(owner lock.Owner) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if owner == lock.NoOwner || l.owner != owner {
		return fmt.Errorf("%w %s : %s (held by %s)", lock.ErrNotOwner, l.key, owner, l.owner)
	}
	l.owner = lock.NoOwner
	<-l.sem
	return nil
}
