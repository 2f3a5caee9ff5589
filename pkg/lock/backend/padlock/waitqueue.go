package padlock

import (
	"time"

	"github.com/alexandreLamarre/padlock/pkg/lock"
	"github.com/gammazero/deque"
)

type waiterState int

const (
	waiting waiterState = iota
	// ownership was handed over by the releaser
	granted
	// the releaser woke the waiter, which must contend for the lock again
	woken
)

// a single blocked Acquire request
type waiter struct {
	owner    lock.Owner
	enqueued time.Time
	state    waiterState
	ready    chan struct{}
}

func newWaiter(owner lock.Owner, now time.Time) *waiter {
	return &waiter{
		owner:    owner,
		enqueued: now,
		state:    waiting,
		ready:    make(chan struct{}),
	}
}

// signal must be called at most once, with the padlock's internal mutex held.
func (w *waiter) signal(state waiterState) {
	w.state = state
	close(w.ready)
}

// waitQueue is the arrival-ordered set of blocked acquirers. It is not safe for concurrent use;
// the owning Padlock guards it with its internal mutex.
type waitQueue struct {
	q deque.Deque[*waiter]
	// owners with an Acquire in flight, including woken waiters outside of q
	pending map[lock.Owner]struct{}
}

func newWaitQueue() *waitQueue {
	return &waitQueue{
		pending: map[lock.Owner]struct{}{},
	}
}

func (wq *waitQueue) len() int {
	return wq.q.Len()
}

func (wq *waitQueue) contains(owner lock.Owner) bool {
	_, ok := wq.pending[owner]
	return ok
}

// track marks owner as having an Acquire in flight. Callers reject duplicates with contains first.
func (wq *waitQueue) track(owner lock.Owner) {
	wq.pending[owner] = struct{}{}
}

func (wq *waitQueue) untrack(owner lock.Owner) {
	delete(wq.pending, owner)
}

func (wq *waitQueue) enqueue(w *waiter) {
	wq.q.PushBack(w)
}

func (wq *waitQueue) enqueueFront(w *waiter) {
	wq.q.PushFront(w)
}

func (wq *waitQueue) head() (*waiter, bool) {
	if wq.q.Len() == 0 {
		return nil, false
	}
	return wq.q.Front(), true
}

func (wq *waitQueue) dequeue() (*waiter, bool) {
	if wq.q.Len() == 0 {
		return nil, false
	}
	return wq.q.PopFront(), true
}

// remove withdraws w wherever it sits, preserving the relative order of the remaining waiters.
func (wq *waitQueue) remove(w *waiter) bool {
	idx := wq.q.Index(func(other *waiter) bool {
		return other == w
	})
	if idx < 0 {
		return false
	}
	wq.q.Remove(idx)
	return true
}

func (wq *waitQueue) owners() []lock.Owner {
	ret := make([]lock.Owner, 0, wq.q.Len())
	for i := 0; i < wq.q.Len(); i++ {
		ret = append(ret, wq.q.At(i).owner)
	}
	return ret
}
