package apiserver

import (
	"net/http"
	"time"
)

// NewServer creates the HTTP server for the ambient surface (healthz,
// readyz, metrics) at addr.
func NewServer(addr string, h *Health) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      NewRouter(h),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}
