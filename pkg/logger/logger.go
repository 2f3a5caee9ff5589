package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

const (
	errKey = "err"
)

var (
	DefaultLogLevel   = slog.LevelInfo
	DefaultWriter     = io.Writer(os.Stderr)
	DefaultAddSource  = false
	DefaultTimeFormat = "2006 Jan 02 15:04:05"
)

type noAllocErr struct{ error }

func Err(e error) slog.Attr {
	if e != nil {
		e = noAllocErr{e}
	}
	return slog.Any(errKey, e)
}

func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func New(opts ...LoggerOption) *slog.Logger {
	options := &LoggerOptions{
		Level:      DefaultLogLevel,
		Writer:     DefaultWriter,
		AddSource:  DefaultAddSource,
		TimeFormat: DefaultTimeFormat,
	}
	options.apply(opts...)

	var handler slog.Handler = newColorHandler(options)
	if len(options.Fanout) > 0 {
		handlers := []slog.Handler{handler}
		for _, w := range options.Fanout {
			handlers = append(handlers, slog.NewTextHandler(w, &slog.HandlerOptions{
				Level:     options.Level,
				AddSource: options.AddSource,
			}))
		}
		handler = slogmulti.Fanout(handlers...)
	}
	if options.Sampling != nil {
		handler = slogmulti.Pipe(options.Sampling.NewMiddleware()).Handler(handler)
	}
	return slog.New(handler)
}

// ParseLevel maps a level name to a slog.Level, defaulting to DefaultLogLevel.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return DefaultLogLevel
	}
}
