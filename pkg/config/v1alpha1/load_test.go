package v1alpha1_test

import (
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/alexandreLamarre/padlock/pkg/config/v1alpha1"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Benchmark config", Label("unit"), func() {
	It("should provide valid defaults", func() {
		config := v1alpha1.Default()
		Expect(config.Validate()).To(Succeed())
		Expect(config.Workers).To(Equal(8))
		Expect(config.Operations).To(Equal(1000))
		Expect(config.Report.Path).To(Equal("-"))
	})

	It("should decode JSON on top of the defaults", func() {
		config, err := v1alpha1.Decode([]byte(`{
			"workers": 4,
			"fairness": "barging",
			"hold": {"distribution": "uniform", "min": "1ms", "max": "5ms"},
			"acquireTimeout": "250ms"
		}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(config.Workers).To(Equal(4))
		Expect(config.Fairness).To(Equal("barging"))
		Expect(config.Hold.Min.Duration).To(Equal(time.Millisecond))
		Expect(config.Hold.Max.Duration).To(Equal(5 * time.Millisecond))
		Expect(config.AcquireTimeout.Duration).To(Equal(250 * time.Millisecond))
		Expect(config.Operations).To(Equal(1000))
		Expect(config.Validate()).To(Succeed())
	})

	It("should fall back to TOML", func() {
		config, err := v1alpha1.Decode([]byte(`
backend = "native"
workers = 2
deadline = "30s"

[report]
format = "table"
`))
		Expect(err).NotTo(HaveOccurred())
		Expect(config.Backend).To(Equal("native"))
		Expect(config.Workers).To(Equal(2))
		Expect(config.Deadline.Duration).To(Equal(30 * time.Second))
		Expect(config.Report.Format).To(Equal(v1alpha1.FormatTable))
		Expect(config.Report.Path).To(Equal("-"))
	})

	It("should report both decoding errors", func() {
		_, err := v1alpha1.Decode([]byte(`workers: [`))
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("JSON"))
		Expect(err.Error()).To(ContainSubstring("TOML"))
	})

	It("should reject malformed durations", func() {
		_, err := v1alpha1.Decode([]byte(`{"deadline": "soon"}`))
		Expect(err).To(HaveOccurred())
	})

	When("resolving a benchmark argument", func() {
		It("should use the defaults for an empty argument", func() {
			config, err := v1alpha1.Resolve("")
			Expect(err).NotTo(HaveOccurred())
			Expect(config).To(Equal(v1alpha1.Default()))
		})

		It("should treat integers as worker counts", func() {
			config, err := v1alpha1.Resolve("16")
			Expect(err).NotTo(HaveOccurred())
			Expect(config.Workers).To(Equal(16))

			_, err = v1alpha1.Resolve("0")
			Expect(err).To(HaveOccurred())
		})

		It("should load anything else from a file", func() {
			path := filepath.Join(GinkgoT().TempDir(), "bench.toml")
			Expect(os.WriteFile(path, []byte("workers = 3\nruns = 2\n"), 0o644)).To(Succeed())
			config, err := v1alpha1.Resolve(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(config.Workers).To(Equal(3))
			Expect(config.Runs).To(Equal(2))

			_, err = v1alpha1.Resolve(filepath.Join(GinkgoT().TempDir(), "missing.json"))
			Expect(err).To(MatchError(os.ErrNotExist))
		})
	})

	It("should collect every validation error", func() {
		config := v1alpha1.Default()
		config.Workers = 0
		config.Fairness = "random"
		config.Runs = 0
		config.Report.Format = "csv"
		config.Hold = v1alpha1.HoldSpec{
			Distribution: v1alpha1.HoldUniform,
			Min:          v1alpha1.NewDuration(time.Second),
			Max:          v1alpha1.NewDuration(time.Millisecond),
		}
		err := config.Validate()
		Expect(err).To(HaveOccurred())
		for _, msg := range []string{"workers", "fairness", "runs", "format", "uniform"} {
			Expect(err.Error()).To(ContainSubstring(msg))
		}
	})

	It("should bound hold durations", func() {
		config := v1alpha1.Default()
		config.Hold = v1alpha1.HoldSpec{
			Distribution: v1alpha1.HoldUniform,
			Max:          v1alpha1.NewDuration(time.Duration(math.MaxInt64)),
		}
		Expect(config.Validate()).To(MatchError(ContainSubstring("must not exceed")))

		config.Hold.Max = v1alpha1.NewDuration(v1alpha1.MaxHold)
		Expect(config.Validate()).To(Succeed())
	})

	It("should accept a duration bound run without an operation count", func() {
		config := v1alpha1.Default()
		config.Operations = 0
		Expect(config.Validate()).NotTo(Succeed())
		config.Duration = v1alpha1.NewDuration(time.Second)
		Expect(config.Validate()).To(Succeed())
	})
})
