package bench_test

import (
	"context"
	"time"

	"github.com/alexandreLamarre/padlock/pkg/bench"
	"github.com/alexandreLamarre/padlock/pkg/config/v1alpha1"
	"github.com/alexandreLamarre/padlock/pkg/constants"
	"github.com/alexandreLamarre/padlock/pkg/lock"
	"github.com/alexandreLamarre/padlock/pkg/lock/backend/native"
	"github.com/alexandreLamarre/padlock/pkg/lock/backend/padlock"
	"github.com/alexandreLamarre/padlock/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/gleak"
)

func newConfig(mutators ...func(*v1alpha1.BenchmarkConfig)) *v1alpha1.BenchmarkConfig {
	config := v1alpha1.Default()
	for _, m := range mutators {
		m(config)
	}
	return config
}

func runHarness(lm lock.LockManager, config *v1alpha1.BenchmarkConfig) (*bench.Results, error) {
	h, err := bench.NewHarness(lm, config, bench.WithLogger(logger.NewNop()))
	Expect(err).NotTo(HaveOccurred())
	return h.Run(context.Background())
}

var _ = Describe("Benchmark harness", Label("unit"), func() {
	It("should reject invalid configs", func() {
		_, err := bench.NewHarness(padlock.NewLockManager(nil, logger.NewNop()), newConfig(func(c *v1alpha1.BenchmarkConfig) {
			c.Workers = 0
		}))
		Expect(err).To(HaveOccurred())
	})

	DescribeTable("should record every operation with zero hold time",
		func(lm lock.LockManager, backend string, fairness, effective lock.Fairness) {
			res, err := runHarness(lm, newConfig(func(c *v1alpha1.BenchmarkConfig) {
				c.Backend = backend
				c.Fairness = string(fairness)
			}))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Partial).To(BeFalse())
			Expect(res.Backend).To(Equal(backend))
			Expect(res.Fairness).To(Equal(effective))
			Expect(res.Workers).To(HaveLen(8))

			total, completed, failed, _ := res.Operations()
			Expect(total).To(Equal(8000))
			Expect(completed).To(Equal(8000))
			Expect(failed).To(BeZero())
			Expect(res.Failures).To(BeEmpty())
			for _, w := range res.Workers {
				Expect(w.Records).To(HaveLen(1000))
				for _, rec := range w.Records {
					Expect(rec.Err).NotTo(MatchError(lock.ErrNotOwner))
				}
			}
		},
		Entry("fifo padlock", padlock.NewLockManager(nil, logger.NewNop()), constants.PadlockLockManager, lock.FairnessFIFO, lock.FairnessFIFO),
		Entry("barging padlock", padlock.NewLockManager(nil, logger.NewNop()), constants.PadlockLockManager, lock.FairnessBarging, lock.FairnessBarging),
		Entry("native", native.NewLockManager(nil, logger.NewNop()), constants.NativeLockManager, lock.FairnessFIFO, lock.FairnessBarging),
	)

	It("should record timed out acquisitions as failures without aborting", func() {
		res, err := runHarness(padlock.NewLockManager(nil, logger.NewNop()), newConfig(func(c *v1alpha1.BenchmarkConfig) {
			c.Workers = 2
			c.Operations = 3
			c.Hold.Mean = v1alpha1.NewDuration(50 * time.Millisecond)
			c.AcquireTimeout = v1alpha1.NewDuration(5 * time.Millisecond)
		}))
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Partial).To(BeFalse())

		total, completed, failed, contended := res.Operations()
		Expect(total).To(Equal(6))
		Expect(completed).To(BeNumerically(">", 0))
		Expect(failed).To(BeNumerically(">", 0))
		Expect(contended).To(BeNumerically(">=", failed))
		Expect(res.Failures).To(HaveLen(failed))
		for _, f := range res.Failures {
			Expect(f.Err).To(MatchError(lock.ErrTimedOut))
			Expect(f.String()).To(HavePrefix("worker="))
		}
	})

	It("should report partial results when the deadline expires", func() {
		res, err := runHarness(padlock.NewLockManager(nil, logger.NewNop()), newConfig(func(c *v1alpha1.BenchmarkConfig) {
			c.Workers = 2
			c.Hold.Mean = v1alpha1.NewDuration(10 * time.Millisecond)
			c.Deadline = v1alpha1.NewDuration(100 * time.Millisecond)
		}))
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Partial).To(BeTrue())
		total, completed, _, _ := res.Operations()
		Expect(total).To(BeNumerically("<", 2000))
		Expect(completed).To(BeNumerically(">", 0))
	})

	It("should report partial results when the rate limit cannot fit the remaining operations before the deadline", func() {
		res, err := runHarness(padlock.NewLockManager(nil, logger.NewNop()), newConfig(func(c *v1alpha1.BenchmarkConfig) {
			c.Workers = 1
			c.Operations = 100
			c.RateLimit = 20
			c.Deadline = v1alpha1.NewDuration(300 * time.Millisecond)
		}))
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Partial).To(BeTrue())
		Expect(res.Workers[0].Stopped).To(BeTrue())
		total, completed, failed, _ := res.Operations()
		Expect(total).To(BeNumerically("<", 100))
		Expect(completed).To(Equal(total))
		Expect(failed).To(BeZero())
	})

	It("should not report a rate limited run that finishes as partial", func() {
		res, err := runHarness(padlock.NewLockManager(nil, logger.NewNop()), newConfig(func(c *v1alpha1.BenchmarkConfig) {
			c.Workers = 2
			c.Operations = 3
			c.RateLimit = 100
		}))
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Partial).To(BeFalse())
		for _, w := range res.Workers {
			Expect(w.Stopped).To(BeFalse())
		}
	})

	It("should fail before starting any worker when a hold sampler cannot be built", func() {
		goods := gleak.Goroutines()
		config := newConfig()
		h, err := bench.NewHarness(padlock.NewLockManager(nil, logger.NewNop()), config, bench.WithLogger(logger.NewNop()))
		Expect(err).NotTo(HaveOccurred())
		config.Hold.Distribution = "normal"

		res, err := h.Run(context.Background())
		Expect(err).To(HaveOccurred())
		Expect(res).To(BeNil())
		Eventually(gleak.Goroutines).ShouldNot(gleak.HaveLeaked(goods))
	})

	It("should run for a fixed duration", func() {
		res, err := runHarness(padlock.NewLockManager(nil, logger.NewNop()), newConfig(func(c *v1alpha1.BenchmarkConfig) {
			c.Workers = 2
			c.Operations = 0
			c.Duration = v1alpha1.NewDuration(50 * time.Millisecond)
		}))
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Partial).To(BeFalse())
		Expect(res.Elapsed).To(BeNumerically(">=", 50*time.Millisecond))
		_, completed, failed, _ := res.Operations()
		Expect(completed).To(BeNumerically(">", 0))
		Expect(failed).To(BeZero())
	})

	It("should retry timed out acquisitions", func() {
		res, err := runHarness(padlock.NewLockManager(nil, logger.NewNop()), newConfig(func(c *v1alpha1.BenchmarkConfig) {
			c.Workers = 2
			c.Operations = 2
			c.Hold.Mean = v1alpha1.NewDuration(30 * time.Millisecond)
			c.AcquireTimeout = v1alpha1.NewDuration(5 * time.Millisecond)
			c.Retries = 100
			c.RetryInterval = v1alpha1.NewDuration(time.Millisecond)
		}))
		Expect(err).NotTo(HaveOccurred())
		_, completed, failed, _ := res.Operations()
		Expect(completed).To(Equal(4))
		Expect(failed).To(BeZero())

		maxAttempts := 0
		for _, w := range res.Workers {
			for _, rec := range w.Records {
				maxAttempts = max(maxAttempts, rec.Attempts)
			}
		}
		Expect(maxAttempts).To(BeNumerically(">", 1))
	})

	It("should throttle operations with a rate limit", func() {
		res, err := runHarness(padlock.NewLockManager(nil, logger.NewNop()), newConfig(func(c *v1alpha1.BenchmarkConfig) {
			c.Workers = 1
			c.Operations = 10
			c.RateLimit = 100
		}))
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Elapsed).To(BeNumerically(">=", 80*time.Millisecond))
	})

	It("should abort the run on non recoverable errors", func() {
		lk := &fakeLock{releaseErr: lock.ErrNotOwner}
		res, err := runHarness(&fakeLockManager{lk: lk}, newConfig(func(c *v1alpha1.BenchmarkConfig) {
			c.Workers = 1
		}))
		Expect(err).To(MatchError(lock.ErrNotOwner))
		Expect(res).NotTo(BeNil())
		Expect(res.Partial).To(BeTrue())
		Expect(res.Failures).To(HaveLen(1))
		total, _, _, _ := res.Operations()
		Expect(total).To(Equal(1))
		Expect(lk.released.Load()).To(BeEquivalentTo(1))
	})

	It("should detect broken mutual exclusion", func() {
		lk := &fakeLock{}
		res, err := runHarness(&fakeLockManager{lk: lk}, newConfig(func(c *v1alpha1.BenchmarkConfig) {
			c.Workers = 4
			c.Operations = 20
			c.Hold.Mean = v1alpha1.NewDuration(10 * time.Millisecond)
		}))
		Expect(err).To(MatchError(bench.ErrMutualExclusionViolated))
		Expect(res.Partial).To(BeTrue())
	})
})
