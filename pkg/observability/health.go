package observability

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/kevin07696/chit-service/pkg/encoding"
)

// CheckFunc probes one dependency
type CheckFunc func(ctx context.Context) error

// HealthStatus represents the health status of the service
type HealthStatus struct {
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
	Status    string            `json:"status"`
}

// HealthChecker runs the registered dependency checks
type HealthChecker struct {
	checks  map[string]CheckFunc
	timeout time.Duration
	mu      sync.RWMutex
}

// NewHealthChecker creates a HealthChecker with no checks
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		checks:  make(map[string]CheckFunc),
		timeout: 2 * time.Second,
	}
}

// AddCheck registers a named dependency check, e.g. the pgx pool's Ping
func (h *HealthChecker) AddCheck(name string, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// Check performs health checks and returns the status
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	h.mu.RLock()
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	h.mu.RUnlock()
	sort.Strings(names)

	checks := make(map[string]string, len(names))
	overallStatus := "healthy"
	for _, name := range names {
		h.mu.RLock()
		check := h.checks[name]
		h.mu.RUnlock()

		checkCtx, cancel := context.WithTimeout(ctx, h.timeout)
		err := check(checkCtx)
		cancel()

		if err != nil {
			checks[name] = "unhealthy: " + err.Error()
			overallStatus = "unhealthy"
		} else {
			checks[name] = "healthy"
		}
	}

	return HealthStatus{
		Status:    overallStatus,
		Timestamp: time.Now(),
		Checks:    checks,
	}
}

// HealthHandler returns an HTTP handler for health checks
func (h *HealthChecker) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := h.Check(r.Context())

		code := http.StatusOK
		if status.Status != "healthy" {
			code = http.StatusServiceUnavailable
		}
		_ = encoding.WriteJSON(w, code, status)
	}
}
