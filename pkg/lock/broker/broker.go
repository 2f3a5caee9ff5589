package broker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alexandreLamarre/padlock/pkg/lock"
	"github.com/alexandreLamarre/padlock/pkg/logger"
	"go.opentelemetry.io/otel/trace"
)

// LockBroker carries the shared dependencies handed to registered lock manager constructors.
type LockBroker struct {
	Lg     *slog.Logger
	Tracer trace.Tracer
}

func NewLockBroker(lg *slog.Logger, tracer trace.Tracer) LockBroker {
	return LockBroker{
		Lg:     lg,
		Tracer: tracer,
	}
}

// LockManager instantiates the lock manager registered under name.
func (l LockBroker) LockManager(ctx context.Context, name string) (lock.LockManager, error) {
	b, ok := GetLockBroker(name)
	if !ok {
		return nil, fmt.Errorf("%w '%s', known backends : %s", ErrUnknownBroker, name, strings.Join(Backends(), ", "))
	}
	lm, err := b(ctx, l)
	if err != nil {
		l.Lg.With("backend", name, logger.Err(err)).Error("failed to create lock manager")
		return nil, err
	}
	return lm, nil
}

func NewLockManager(ctx context.Context, name string, lg *slog.Logger, tracer trace.Tracer) (lock.LockManager, error) {
	return NewLockBroker(lg, tracer).LockManager(ctx, name)
}
