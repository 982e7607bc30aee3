// Package healthprobe serves the liveness and readiness endpoints. Liveness
// only proves the process is up; readiness gates traffic on an explicit flag
// plus registered dependency probes.
package healthprobe

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// HealthChecker tracks process uptime, the ready flag and the dependency
// probes the readiness endpoint consults. Probes must be safe for concurrent
// use and cheap enough to run on every /ready hit.
type HealthChecker struct {
	startTime time.Time
	ready     atomic.Bool

	mu     sync.RWMutex
	checks map[string]func() error
}

// New creates a health checker with no registered probes.
func New() *HealthChecker {
	return &HealthChecker{
		startTime: time.Now(),
		checks:    make(map[string]func() error),
	}
}

// SetReady flips the readiness flag.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// AddCheck registers a named dependency probe.
func (h *HealthChecker) AddCheck(name string, check func() error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// HealthResponse is the JSON body both endpoints write. Checks carries the
// failing probes by name; passing probes are omitted.
type HealthResponse struct {
	Status  string            `json:"status"`
	Uptime  string            `json:"uptime"`
	Message string            `json:"message,omitempty"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// Health returns the liveness handler: 200 whenever the process can answer.
func (h *HealthChecker) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{
			Status: "healthy",
			Uptime: time.Since(h.startTime).String(),
		})
	}
}

// Ready returns the readiness handler: 200 once the ready flag is set and
// every registered probe passes, 503 otherwise.
func (h *HealthChecker) Ready() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.ready.Load() {
			writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
				Status:  "not_ready",
				Message: "application is starting",
			})
			return
		}

		if failed := h.runChecks(); len(failed) > 0 {
			writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
				Status: "not_ready",
				Checks: failed,
			})
			return
		}

		writeJSON(w, http.StatusOK, HealthResponse{
			Status: "ready",
			Uptime: time.Since(h.startTime).String(),
		})
	}
}

// runChecks runs every registered probe and collects the failures by name.
func (h *HealthChecker) runChecks() map[string]string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var failed map[string]string
	for name, check := range h.checks {
		if err := check(); err != nil {
			if failed == nil {
				failed = make(map[string]string)
			}
			failed[name] = err.Error()
		}
	}
	return failed
}

func writeJSON(w http.ResponseWriter, status int, resp HealthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
