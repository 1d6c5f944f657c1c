package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// HealthChecker reports the health of one downstream dependency.
type HealthChecker interface {
	// Name identifies the dependency in health responses.
	Name() string
	// Check returns nil when the dependency is reachable and serving.
	Check(ctx context.Context) error
}

// CheckResult is one dependency's outcome in a health response.
type CheckResult struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Latency string `json:"latency"`
	Error   string `json:"error,omitempty"`
}

// HealthHandler serves liveness and readiness probes plus a detailed
// per-dependency status endpoint.
type HealthHandler struct {
	version  string
	startAt  time.Time
	checkers []HealthChecker
	timeout  time.Duration
}

// NewHealthHandler creates a health handler over the given dependency checkers.
func NewHealthHandler(version string, checkers ...HealthChecker) *HealthHandler {
	return &HealthHandler{
		version:  version,
		startAt:  time.Now(),
		checkers: checkers,
		timeout:  5 * time.Second,
	}
}

// Liveness reports that the process is up. It never touches dependencies, so
// orchestrators do not restart the process on a downstream outage.
// GET /healthz
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": h.version,
		"uptime":  time.Since(h.startAt).Round(time.Second).String(),
	})
}

// Readiness reports whether every dependency answers its health check. Any
// failure returns 503 so load balancers stop routing here.
// GET /readyz
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	results := h.checkAll(r.Context())

	for _, res := range results {
		if !res.Healthy {
			writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
				"status": "unavailable",
				"checks": results,
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ready"})
}

// Detailed reports per-dependency status and check latency.
// GET /healthz/detail
func (h *HealthHandler) Detailed(w http.ResponseWriter, r *http.Request) {
	results := h.checkAll(r.Context())

	status := http.StatusOK
	overall := "healthy"
	for _, res := range results {
		if !res.Healthy {
			status = http.StatusServiceUnavailable
			overall = "degraded"
			break
		}
	}

	writeJSON(w, status, map[string]interface{}{
		"status":  overall,
		"version": h.version,
		"uptime":  time.Since(h.startAt).Round(time.Second).String(),
		"checks":  results,
	})
}

// checkAll runs every checker concurrently under a shared timeout.
func (h *HealthHandler) checkAll(ctx context.Context) []CheckResult {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	results := make([]CheckResult, len(h.checkers))
	var wg sync.WaitGroup

	for i, checker := range h.checkers {
		wg.Add(1)
		go func(i int, c HealthChecker) {
			defer wg.Done()

			start := time.Now()
			err := c.Check(ctx)
			res := CheckResult{
				Name:    c.Name(),
				Healthy: err == nil,
				Latency: time.Since(start).Round(time.Millisecond).String(),
			}
			if err != nil {
				res.Error = err.Error()
			}
			results[i] = res
		}(i, checker)
	}

	wg.Wait()
	return results
}
