package instrumentation

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/alexandreLamarre/padlock/pkg/lock"
)

// healthChecker reports the conditions of the lock manager under benchmark.
type healthChecker struct {
	lm atomic.Pointer[lock.LockManager]
}

func (h *healthChecker) check(ctx context.Context) (int, string) {
	lm := h.lm.Load()
	if lm == nil {
		return http.StatusServiceUnavailable, "lock manager not initialized"
	}
	ctxca, ca := context.WithTimeout(ctx, 5*time.Second)
	defer ca()
	conditions, err := (*lm).Health(ctxca)
	if err != nil {
		return http.StatusInternalServerError, err.Error()
	}
	if len(conditions) == 0 {
		return http.StatusOK, "ok"
	}
	return http.StatusServiceUnavailable, fmt.Sprintf("health check failed : %s", strings.Join(conditions, ", "))
}

func (h *healthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	code, msg := h.check(r.Context())
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	fmt.Fprintln(w, msg)
}

// SetLockManager makes the health endpoint report the conditions of lm.
func (s *MetricsServer) SetLockManager(lm lock.LockManager) {
	s.health.lm.Store(&lm)
}

func (s *MetricsServer) HealthHandler() http.Handler {
	return s.health
}
