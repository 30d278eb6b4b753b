package handlers

import (
	"encoding/json"
	"net/http"
	"time"
)

// HealthStatus is the response body for the service health endpoints.
type HealthStatus struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Service   string `json:"service"`
	Version   string `json:"version"`
}

/*
HandleHealthCheck reports overall service health.

Example:

	GET /health

Response:
  - 200 OK: {"status": "healthy", ...}
*/
func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Service:   "listing-render-backend",
		Version:   "1.0.0",
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(status)
}

/*
HandleLivenessCheck reports whether the process is alive. It always succeeds
while the server is able to accept connections.

Example:

	GET /health/live
*/
func (h *Handler) HandleLivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":    "alive",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

/*
HandleReadinessCheck reports whether the service can do useful work: at least
one worker endpoint is registered and the artifact cache directory is
writable.

Example:

	GET /health/ready

Response:
  - 200 OK: Ready to dispatch.
  - 503 Service Unavailable: No workers registered or cache not writable.
*/
func (h *Handler) HandleReadinessCheck(w http.ResponseWriter, r *http.Request) {
	checks := map[string]bool{
		"workers_registered": len(h.Registry.All()) > 0,
		"cache_writable":     h.Cache.Writable(),
	}

	ready := true
	for _, ok := range checks {
		if !ok {
			ready = false
			break
		}
	}

	status := "ready"
	code := http.StatusOK
	if !ready {
		status = "not_ready"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    status,
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

/*
HandleWorkerHealth probes every registered worker and returns the aggregated
fleet report.

Example:

	GET /health/workers

Response:
  - 200 OK: {"total": 3, "healthy": 2, "memory_bytes": 1073741824, "workers": [...]}
*/
func (h *Handler) HandleWorkerHealth(w http.ResponseWriter, r *http.Request) {
	report := h.Health.CheckAll(r.Context())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(report)
}
