package padlock

import (
	"log/slog"

	"github.com/alexandreLamarre/padlock/pkg/lock"
	"github.com/alexandreLamarre/padlock/pkg/lock/backend/padlock"
	"go.opentelemetry.io/otel/trace"
)

// NewLock returns a standalone padlock. It is FIFO fair and non-reentrant unless opts say otherwise.
func NewLock(lg *slog.Logger, opts ...lock.LockOption) lock.Lock {
	return padlock.New(lg, opts...)
}

// NewLockManager returns a manager handing out one padlock per key.
func NewLockManager(lg *slog.Logger, tracer trace.Tracer) lock.LockManager {
	return padlock.NewLockManager(tracer, lg)
}
