package conformance

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alexandreLamarre/padlock/pkg/lock"
	"github.com/alexandreLamarre/padlock/pkg/util/future"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func newKey() string {
	return "conformance-" + uuid.New().String()
}

// LockManagerTestSuite verifies the behaviour every lock backend shares, whatever its fairness.
func LockManagerTestSuite(lmF future.Future[lock.LockManager]) func() {
	return func() {
		var lm lock.LockManager
		var ctx context.Context

		BeforeAll(func() {
			ctxca, ca := context.WithCancel(context.Background())
			DeferCleanup(func() {
				ca()
			})
			ctx = ctxca
			lm = lmF.Get()
		})

		When("a single owner uses the lock", func() {
			It("should acquire and release an uncontended lock", func() {
				lk := lm.NewLock(newKey())
				a := lock.NewOwner()
				Expect(lk.Acquire(ctx, a)).To(Succeed())
				Expect(lk.Release(a)).To(Succeed())
				Expect(lk.Acquire(ctx, a)).To(Succeed())
				Expect(lk.Release(a)).To(Succeed())
			})

			It("should return the same lock for the same key", func() {
				key := newKey()
				a := lock.NewOwner()
				Expect(lm.NewLock(key).Acquire(ctx, a)).To(Succeed())
				acquired, err := lm.NewLock(key).TryAcquire(lock.NewOwner())
				Expect(err).NotTo(HaveOccurred())
				Expect(acquired).To(BeFalse())
				Expect(lm.NewLock(key).Release(a)).To(Succeed())
			})

			It("should reject the empty owner", func() {
				lk := lm.NewLock(newKey())
				Expect(lk.Acquire(ctx, lock.NoOwner)).To(MatchError(lock.ErrInvalidOwner))
				_, err := lk.TryAcquire(lock.NoOwner)
				Expect(err).To(MatchError(lock.ErrInvalidOwner))
				Expect(lk.Release(lock.NoOwner)).To(MatchError(lock.ErrNotOwner))
			})

			It("should detect a non-reentrant self acquire instead of hanging", func() {
				lk := lm.NewLock(newKey(), lock.WithReentrant(false))
				a := lock.NewOwner()
				Expect(lk.Acquire(ctx, a)).To(Succeed())
				Expect(lk.Acquire(ctx, a)).To(MatchError(lock.ErrDeadlockDetected))
				Expect(lk.Release(a)).To(Succeed())
			})
		})

		When("several owners use the lock", func() {
			It("should not let another owner try-acquire a held lock", func() {
				lk := lm.NewLock(newKey())
				a, b := lock.NewOwner(), lock.NewOwner()
				Expect(lk.Acquire(ctx, a)).To(Succeed())

				acquired, err := lk.TryAcquire(b)
				Expect(err).NotTo(HaveOccurred())
				Expect(acquired).To(BeFalse())

				Expect(lk.Release(a)).To(Succeed())
				acquired, err = lk.TryAcquire(b)
				Expect(err).NotTo(HaveOccurred())
				Expect(acquired).To(BeTrue())
				Expect(lk.Release(b)).To(Succeed())
			})

			It("should refuse releases from non-owners without changing the lock", func() {
				lk := lm.NewLock(newKey())
				a, b := lock.NewOwner(), lock.NewOwner()
				Expect(lk.Release(a)).To(MatchError(lock.ErrNotOwner))

				Expect(lk.Acquire(ctx, a)).To(Succeed())
				Expect(lk.Release(b)).To(MatchError(lock.ErrNotOwner))
				acquired, err := lk.TryAcquire(b)
				Expect(err).NotTo(HaveOccurred())
				Expect(acquired).To(BeFalse())
				Expect(lk.Release(a)).To(Succeed())
			})

			It("should time out a waiter and never grant it the lock afterwards", func() {
				lk := lm.NewLock(newKey())
				a, b, c := lock.NewOwner(), lock.NewOwner(), lock.NewOwner()
				Expect(lk.Acquire(ctx, a)).To(Succeed())

				ctxT, ca := context.WithTimeout(ctx, 50*time.Millisecond)
				defer ca()
				Expect(lk.Acquire(ctxT, b)).To(MatchError(lock.ErrTimedOut))

				Expect(lk.Release(a)).To(Succeed())
				Expect(lk.Release(b)).To(MatchError(lock.ErrNotOwner))
				acquired, err := lk.TryAcquire(c)
				Expect(err).NotTo(HaveOccurred())
				Expect(acquired).To(BeTrue())
				Expect(lk.Release(c)).To(Succeed())
			})

			It("should withdraw a cancelled waiter", func() {
				lk := lm.NewLock(newKey())
				a, b := lock.NewOwner(), lock.NewOwner()
				Expect(lk.Acquire(ctx, a)).To(Succeed())

				ctxca, ca := context.WithCancel(ctx)
				errC := make(chan error, 1)
				go func() {
					errC <- lk.Acquire(ctxca, b)
				}()
				ca()
				Eventually(errC).Should(Receive(MatchError(lock.ErrCancelled)))
				Expect(lk.Release(a)).To(Succeed())
				Expect(lk.Release(b)).To(MatchError(lock.ErrNotOwner))
			})

			It("should keep at most one owner in the critical section", func() {
				lk := lm.NewLock(newKey())
				var holders, maxHolders atomic.Int32
				var wg sync.WaitGroup
				for i := 0; i < 8; i++ {
					wg.Add(1)
					go func() {
						defer GinkgoRecover()
						defer wg.Done()
						owner := lock.NewOwner()
						for j := 0; j < 200; j++ {
							Expect(lk.Acquire(ctx, owner)).To(Succeed())
							n := holders.Add(1)
							for {
								cur := maxHolders.Load()
								if n <= cur || maxHolders.CompareAndSwap(cur, n) {
									break
								}
							}
							holders.Add(-1)
							Expect(lk.Release(owner)).To(Succeed())
						}
					}()
				}
				wg.Wait()
				Expect(maxHolders.Load()).To(BeEquivalentTo(1))
			})
		})

		When("checking the lock manager health", func() {
			It("should report no conditions when idle", func() {
				conditions, err := lm.Health(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(conditions).To(BeEmpty())
			})
		})
	}
}
