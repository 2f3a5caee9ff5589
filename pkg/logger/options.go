package logger

import (
	"io"
	"log/slog"

	slogsampling "github.com/samber/slog-sampling"
)

type LoggerOptions struct {
	Level      slog.Level
	Writer     io.Writer
	AddSource  bool
	TimeFormat string
	// NoColor disables colored output even when the writer supports it
	NoColor bool
	// Fanout receives a plain text copy of every record
	Fanout   []io.Writer
	Sampling *slogsampling.UniformSamplingOption
}

type LoggerOption func(*LoggerOptions)

func (o *LoggerOptions) apply(opts ...LoggerOption) {
	for _, op := range opts {
		op(o)
	}
}

func WithLogLevel(level slog.Level) LoggerOption {
	return func(o *LoggerOptions) {
		o.Level = level
	}
}

func WithWriter(w io.Writer) LoggerOption {
	return func(o *LoggerOptions) {
		o.Writer = w
	}
}

func WithAddSource(addSource bool) LoggerOption {
	return func(o *LoggerOptions) {
		o.AddSource = addSource
	}
}

func WithTimeFormat(format string) LoggerOption {
	return func(o *LoggerOptions) {
		o.TimeFormat = format
	}
}

func WithNoColor() LoggerOption {
	return func(o *LoggerOptions) {
		o.NoColor = true
	}
}

func WithFanout(writers ...io.Writer) LoggerOption {
	return func(o *LoggerOptions) {
		o.Fanout = append(o.Fanout, writers...)
	}
}

// WithSampling keeps roughly rate (0, 1] of the records, useful when workers log per operation.
func WithSampling(rate float64) LoggerOption {
	return func(o *LoggerOptions) {
		o.Sampling = &slogsampling.UniformSamplingOption{
			Rate: rate,
		}
	}
}
