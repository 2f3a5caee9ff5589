package future

import (
	"context"
	"sync"
)

// Future is a value that is set exactly once and can be awaited by any number of readers.
type Future[T any] interface {
	Set(T)
	Get() T
	GetContext(context.Context) (T, error)
	IsSet() bool
}

type future[T any] struct {
	once   sync.Once
	value  T
	isSetC chan struct{}
}

func New[T any]() Future[T] {
	return &future[T]{
		isSetC: make(chan struct{}),
	}
}

func Instant[T any](value T) Future[T] {
	f := New[T]()
	f.Set(value)
	return f
}

// Set stores value, later calls are ignored.
func (f *future[T]) Set(value T) {
	f.once.Do(func() {
		f.value = value
		close(f.isSetC)
	})
}

func (f *future[T]) Get() T {
	<-f.isSetC
	return f.value
}

func (f *future[T]) GetContext(ctx context.Context) (T, error) {
	select {
	case <-f.isSetC:
		return f.value, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (f *future[T]) IsSet() bool {
	select {
	case <-f.isSetC:
		return true
	default:
		return false
	}
}
