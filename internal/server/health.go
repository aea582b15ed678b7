package server

import (
	"net/http"
	"sync/atomic"
	"time"
)

// HealthChecker provides liveness and readiness handlers.
type HealthChecker struct {
	startTime time.Time
	ready     atomic.Bool
}

// NewHealthChecker creates a checker that is not ready until SetReady(true).
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{startTime: time.Now()}
}

// SetReady marks the server as able to serve screening requests.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// HealthResponse is the body of /health and /ready.
type HealthResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime,omitempty"`
	Message string `json:"message,omitempty"`
}

// Health always reports healthy while the process runs.
func (h *HealthChecker) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{
			Status: "healthy",
			Uptime: time.Since(h.startTime).Round(time.Second).String(),
		})
	}
}

// Ready returns 503 until the server is marked ready.
func (h *HealthChecker) Ready() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.ready.Load() {
			writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
				Status:  "not_ready",
				Message: "server is starting",
			})
			return
		}
		writeJSON(w, http.StatusOK, HealthResponse{
			Status: "ready",
			Uptime: time.Since(h.startTime).Round(time.Second).String(),
		})
	}
}
