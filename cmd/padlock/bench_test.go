package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/alexandreLamarre/padlock/pkg/constants"
	"github.com/alexandreLamarre/padlock/pkg/lock/broker"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func execute(args ...string) (string, error) {
	cmd := BuildRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

var _ = Describe("padlock CLI", Label("unit"), func() {
	It("should register the in-memory backends", func() {
		for _, name := range []string{constants.PadlockLockManager, constants.NativeLockManager} {
			b, ok := broker.GetLockBroker(name)
			Expect(ok).To(BeTrue())
			Expect(b).NotTo(BeNil())
		}
	})

	It("should print the version", func() {
		out, err := execute("version")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(HavePrefix("dev"))
	})

	It("should write a report for a worker count argument", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, "performance.txt")
		traces := filepath.Join(dir, "traces.json")
		_, err := execute("bench", "4", "--operations", "50", "--hold", "1ms", "--output", path, "--trace-file", traces, "--log-level", "error")
		Expect(err).NotTo(HaveOccurred())

		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		out := string(data)
		Expect(out).To(HavePrefix("backend: padlock\n"))
		Expect(out).To(ContainSubstring("workers: 4\n"))
		Expect(out).To(ContainSubstring("operations: 200\n"))
		Expect(out).To(ContainSubstring("failed: 0\n"))

		spans, err := os.ReadFile(traces)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(spans)).To(ContainSubstring("Lock/padlock-acquire"))
	})

	It("should let flags override a config file", func() {
		dir := GinkgoT().TempDir()
		config := filepath.Join(dir, "bench.toml")
		Expect(os.WriteFile(config, []byte(strings.Join([]string{
			`backend = "native"`,
			`workers = 2`,
			`operations = 10`,
			`runs = 2`,
		}, "\n")), 0o644)).To(Succeed())
		path := filepath.Join(dir, "performance.txt")

		_, err := execute("bench", config, "--workers", "3", "--output", path, "--log-level", "error")
		Expect(err).NotTo(HaveOccurred())
		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		out := string(data)
		Expect(out).To(HavePrefix("run: 1/2\nbackend: native\n"))
		Expect(out).To(ContainSubstring("workers: 3\noperations: 30\n"))
		Expect(out).To(ContainSubstring("summary:\nruns: 2\noperations_sum: 60\n"))
	})

	It("should reject unknown backends and invalid flags", func() {
		_, err := execute("bench", "--backend", "etcd", "--log-level", "error")
		Expect(err).To(MatchError(broker.ErrUnknownBroker))

		_, err = execute("bench", "--fairness", "random")
		Expect(err).To(HaveOccurred())
	})
})
