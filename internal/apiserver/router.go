// Package apiserver exposes the optional ambient HTTP surface for a
// running aggregation process: liveness, readiness, and Prometheus
// metrics. There is no REST API over aggregation results here — the
// pipeline's output is the relational table it bulk-loads, not a
// queryable HTTP endpoint.
package apiserver

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Health reports the process's own liveness and, once a run has reached
// a point where it can serve real traffic, its readiness. A single
// long-running aggregator process flips ready once config has loaded
// and validated; object store/database reachability is not checked.
type Health struct {
	ready atomic.Bool
}

// SetReady marks the process ready or not ready for readyz.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// NewRouter builds the chi router for the ambient HTTP surface.
func NewRouter(h *Health) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if !h.ready.Load() {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
