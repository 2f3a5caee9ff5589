package broker

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/alexandreLamarre/padlock/pkg/lock"
	"github.com/samber/lo"
)

var ErrUnknownBroker = errors.New("unknown lock backend")

// Constructor builds a lock manager from the shared broker dependencies.
type Constructor = func(context.Context, LockBroker) (lock.LockManager, error)

var (
	brokerMu    sync.RWMutex
	brokerCache = map[string]Constructor{}
)

// RegisterLockBroker makes a lock backend available under name. Backends call it from init,
// registering the same name twice or a nil constructor panics.
func RegisterLockBroker(name string, c Constructor) {
	if c == nil {
		panic(fmt.Sprintf("lock backend %s registered with a nil constructor", name))
	}
	brokerMu.Lock()
	defer brokerMu.Unlock()
	if _, ok := brokerCache[name]; ok {
		panic(fmt.Sprintf("lock backend %s registered twice", name))
	}
	brokerCache[name] = c
}

// GetLockBroker returns the constructor registered under name.
func GetLockBroker(name string) (c Constructor, ok bool) {
	brokerMu.RLock()
	defer brokerMu.RUnlock()
	c, ok = brokerCache[name]
	return
}

// Backends lists the registered backend names in sorted order.
func Backends() []string {
	brokerMu.RLock()
	keys := lo.Keys(brokerCache)
	brokerMu.RUnlock()
	slices.Sort(keys)
	return keys
}
