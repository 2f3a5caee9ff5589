package logger_test

import (
	"bytes"
	"errors"
	"log/slog"

	"github.com/alexandreLamarre/padlock/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Logger", Label("unit"), func() {
	var buf *bytes.Buffer
	BeforeEach(func() {
		buf = &bytes.Buffer{}
	})

	It("should filter records below the configured level", func() {
		lg := logger.New(logger.WithWriter(buf), logger.WithLogLevel(slog.LevelWarn))
		lg.Info("hidden")
		lg.Warn("shown")
		Expect(buf.String()).NotTo(ContainSubstring("hidden"))
		Expect(buf.String()).To(ContainSubstring("WARN  shown"))
	})

	It("should write attributes and groups as key value pairs", func() {
		lg := logger.New(logger.WithWriter(buf), logger.WithNoColor())
		lg.With("key", "bench").WithGroup("op").Info("acquired", "index", 3, logger.Err(errors.New("timed out")))
		Expect(buf.String()).To(HaveSuffix(`INFO  acquired key=bench op.index=3 op.err="timed out"` + "\n"))
	})

	It("should copy records to fanout writers", func() {
		copyBuf := &bytes.Buffer{}
		lg := logger.New(logger.WithWriter(buf), logger.WithFanout(copyBuf))
		lg.Error("run aborted", "workers", 8)
		Expect(buf.String()).To(ContainSubstring("run aborted"))
		Expect(copyBuf.String()).To(ContainSubstring(`level=ERROR msg="run aborted" workers=8`))
	})

	It("should drop every record when sampling at zero", func() {
		lg := logger.New(logger.WithWriter(buf), logger.WithSampling(0))
		for range 10 {
			lg.Info("sampled")
		}
		Expect(buf.Len()).To(BeZero())
	})

	It("should parse level names", func() {
		Expect(logger.ParseLevel("DEBUG")).To(Equal(slog.LevelDebug))
		Expect(logger.ParseLevel("warning")).To(Equal(slog.LevelWarn))
		Expect(logger.ParseLevel("error")).To(Equal(slog.LevelError))
		Expect(logger.ParseLevel("verbose")).To(Equal(logger.DefaultLogLevel))
	})
})
