package padlock

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alexandreLamarre/padlock/pkg/lock"
	"github.com/benbjohnson/clock"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Padlock is an in-memory lock with optional reentrancy and FIFO or barging fairness.
//
// Its owner, hold count and wait queue are guarded by an internal sync.Mutex which is only
// held for bookkeeping and never while blocking on callers.
type Padlock struct {
	key string
	lg  *slog.Logger

	clock clock.Clock

	mu        sync.Mutex
	owner     lock.Owner
	holdCount int
	queue     *waitQueue

	*lock.LockOptions
}

var _ lock.Lock = (*Padlock)(nil)

// State is a point in time snapshot of a Padlock.
type State struct {
	Owner     lock.Owner
	HoldCount int
	// Waiting lists queued owners in arrival order
	Waiting []lock.Owner
}

func (s State) Locked() bool {
	return s.Owner != lock.NoOwner
}

func NewPadlock(key string, lg *slog.Logger, clk clock.Clock, options *lock.LockOptions) *Padlock {
	if options == nil {
		options = lock.DefaultLockOptions()
	}
	if !options.Fairness.Valid() {
		options.Fairness = lock.DefaultFairness
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Padlock{
		key:         key,
		lg:          lg.With("key", key),
		clock:       clk,
		queue:       newWaitQueue(),
		LockOptions: options,
	}
}

// New returns an unnamed padlock configured with opts.
func New(lg *slog.Logger, opts ...lock.LockOption) *Padlock {
	options := lock.DefaultLockOptions()
	options.Apply(opts...)
	return NewPadlock("", lg, nil, options)
}

func (p *Padlock) Key() string {
	return p.key
}

func (p *Padlock) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return State{
		Owner:     p.owner,
		HoldCount: p.holdCount,
		Waiting:   p.queue.owners(),
	}
}

func (p *Padlock) Acquire(ctx context.Context, owner lock.Owner) (err error) {
	if owner == lock.NoOwner {
		return lock.ErrInvalidOwner
	}
	if p.TracingEnabled() {
		ctxSpan, span := p.Tracer.Start(ctx, "Lock/padlock-acquire", trace.WithAttributes(
			attribute.KeyValue{
				Key:   "key",
				Value: attribute.StringValue(p.key),
			},
		))
		defer func() {
			p.RecordError(span, err)
			span.End()
		}()
		ctx = ctxSpan
	}
	if p.AcquireTimeout > 0 {
		ctxT, ca := context.WithTimeout(ctx, p.AcquireTimeout)
		defer ca()
		ctx = ctxT
	}

	p.mu.Lock()
	acquired, err := p.acquireLocked(owner)
	if acquired || err != nil {
		p.mu.Unlock()
		return err
	}
	p.queue.track(owner)
	w := newWaiter(owner, p.clock.Now())
	p.queue.enqueue(w)
	p.mu.Unlock()

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.Bool("contended", true))
	return p.wait(ctx, w)
}

func (p *Padlock) TryAcquire(owner lock.Owner) (bool, error) {
	if owner == lock.NoOwner {
		return false, lock.ErrInvalidOwner
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.acquireLocked(owner)
}

// acquireLocked takes the lock for owner if it can do so without waiting.
// Must be called with p.mu held.
func (p *Padlock) acquireLocked(owner lock.Owner) (bool, error) {
	if p.owner == owner {
		if !p.Reentrant {
			p.lg.Debug("non-reentrant self acquire", "owner", owner)
			return false, fmt.Errorf("%w %s : %s", lock.ErrDeadlockDetected, p.key, owner)
		}
		p.holdCount++
		return true, nil
	}
	if p.queue.contains(owner) {
		p.lg.Debug("duplicate acquire while waiting", "owner", owner)
		return false, fmt.Errorf("%w %s : %s", lock.ErrReentrantWaitConflict, p.key, owner)
	}
	if p.owner != lock.NoOwner {
		return false, nil
	}
	// with FIFO fairness a free lock with queued waiters is mid hand-off and belongs to the head
	if p.Fairness == lock.FairnessFIFO && p.queue.len() > 0 {
		return false, nil
	}
	p.owner = owner
	p.holdCount = 1
	return true, nil
}

func (p *Padlock) wait(ctx context.Context, w *waiter) error {
	for {
		select {
		case <-w.ready:
			p.mu.Lock()
			if w.state == granted {
				p.queue.untrack(w.owner)
				p.mu.Unlock()
				return nil
			}
			if p.owner == lock.NoOwner {
				p.owner = w.owner
				p.holdCount = 1
				p.queue.untrack(w.owner)
				p.mu.Unlock()
				return nil
			}
			// lost to a barging acquirer, wait at the head of the queue keeping the original arrival time
			w = newWaiter(w.owner, w.enqueued)
			p.queue.enqueueFront(w)
			p.mu.Unlock()
		case <-ctx.Done():
			p.mu.Lock()
			switch w.state {
			case granted:
				// the release won the race, ownership was already transferred
				p.queue.untrack(w.owner)
				p.mu.Unlock()
				return nil
			case woken:
				p.wakeNextLocked()
			default:
				p.queue.remove(w)
			}
			p.queue.untrack(w.owner)
			p.mu.Unlock()
			return lock.AcquireError(p.key, ctx.Err())
		}
	}
}

// wakeNextLocked hands a free lock to the queue head. Must be called with p.mu held.
func (p *Padlock) wakeNextLocked() {
	if p.owner != lock.NoOwner {
		return
	}
	next, ok := p.queue.dequeue()
	if !ok {
		return
	}
	if p.Fairness == lock.FairnessBarging {
		next.signal(woken)
		return
	}
	p.owner = next.owner
	p.holdCount = 1
	next.signal(granted)
}

func (p *Padlock) Release(owner lock.Owner) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if owner == lock.NoOwner || p.owner != owner {
		return fmt.Errorf("%w %s : %s (held by %s)", lock.ErrNotOwner, p.key, owner, p.owner)
	}
	p.holdCount--
	if p.holdCount > 0 {
		return nil
	}
	p.owner = lock.NoOwner
	p.wakeNextLocked()
	return nil
}

// headWait reports how long the head of the queue has been waiting.
func (p *Padlock) headWait() (time.Duration, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	head, ok := p.queue.head()
	if !ok {
		return 0, false
	}
	return p.clock.Since(head.enqueued), true
}
