package padlock_test

import (
	"context"

	"github.com/alexandreLamarre/padlock/pkg/lock"
	"github.com/alexandreLamarre/padlock/pkg/logger"
	"github.com/alexandreLamarre/padlock/sdk/padlock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Padlock SDK", Label("unit"), func() {
	It("should embed a reentrant lock", func() {
		l := padlock.NewLock(logger.NewNop(), lock.WithReentrant(true))
		owner := lock.NewOwner()
		Expect(l.Acquire(context.Background(), owner)).To(Succeed())
		Expect(l.Acquire(context.Background(), owner)).To(Succeed())
		Expect(l.Release(owner)).To(Succeed())
		Expect(l.Release(owner)).To(Succeed())
		Expect(l.Release(owner)).To(MatchError(lock.ErrNotOwner))
	})

	It("should share locks by key", func() {
		lm := padlock.NewLockManager(logger.NewNop(), nil)
		Expect(lm.NewLock("a")).To(BeIdenticalTo(lm.NewLock("a")))
		Expect(lm.NewLock("a")).NotTo(BeIdenticalTo(lm.NewLock("b")))
	})
})
