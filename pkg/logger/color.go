package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/jwalton/go-supportscolor"
	"github.com/ttacon/chalk"
)

// colorHandler writes one human readable line per record, colorizing the level when the
// destination is a terminal that supports it.
type colorHandler struct {
	opts  *LoggerOptions
	color bool

	mu *sync.Mutex
	w  io.Writer

	// preformatted attributes from WithAttrs
	pre   string
	group string
}

var _ slog.Handler = (*colorHandler)(nil)

func newColorHandler(opts *LoggerOptions) *colorHandler {
	return &colorHandler{
		opts:  opts,
		color: !opts.NoColor && supportsColor(opts.Writer),
		mu:    &sync.Mutex{},
		w:     opts.Writer,
	}
}

func supportsColor(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return supportscolor.SupportsColor(f.Fd()).SupportsColor
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level
}

func (h *colorHandler) levelString(level slog.Level) string {
	str := fmt.Sprintf("%-5s", level.String())
	if !h.color {
		return str
	}
	switch {
	case level >= slog.LevelError:
		return chalk.Red.Color(str)
	case level >= slog.LevelWarn:
		return chalk.Yellow.Color(str)
	case level >= slog.LevelInfo:
		return chalk.Green.Color(str)
	default:
		return chalk.Magenta.Color(str)
	}
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	if !r.Time.IsZero() {
		ts := r.Time.Format(h.opts.TimeFormat)
		if h.color {
			ts = chalk.Dim.TextStyle(ts)
		}
		b.WriteString(ts)
		b.WriteByte(' ')
	}
	b.WriteString(h.levelString(r.Level))
	if h.opts.AddSource && r.PC != 0 {
		frames := runtime.CallersFrames([]uintptr{r.PC})
		f, _ := frames.Next()
		b.WriteByte(' ')
		b.WriteString(fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line))
	}
	b.WriteByte(' ')
	if h.color {
		b.WriteString(chalk.Bold.TextStyle(r.Message))
	} else {
		b.WriteString(r.Message)
	}
	b.WriteString(h.pre)
	r.Attrs(func(a slog.Attr) bool {
		appendAttr(&b, h.group, a)
		return true
	})
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func appendAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		groupPrefix := prefix
		if a.Key != "" {
			groupPrefix = prefix + a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			appendAttr(b, groupPrefix, ga)
		}
		return
	}
	val := a.Value.String()
	if strings.ContainsAny(val, " \t\n\"=") {
		val = strconv.Quote(val)
	}
	b.WriteByte(' ')
	b.WriteString(prefix)
	b.WriteString(a.Key)
	b.WriteByte('=')
	b.WriteString(val)
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var b strings.Builder
	b.WriteString(h.pre)
	for _, a := range attrs {
		appendAttr(&b, h.group, a)
	}
	h2 := *h
	h2.pre = b.String()
	return &h2
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.group = h.group + name + "."
	return &h2
}
