// internal/server/server.go
//
// Operator HTTP endpoint:  Prometheus metrics and a liveness probe.
//
// Timeouts follow the usual hardening defaults:
//
//   • ReadTimeout   – abort slow-loris headers (10 s)
//   • WriteTimeout  – cap total response time (15 s)
//   • IdleTimeout   – close keep-alives on idle clients (60 s)
//
// Each request is logged at DEBUG so scrapes land in access.log without
// cluttering the console.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AdeptTravel/adept-bootstrap/internal/logger"
)

// Handler returns the router serving /metrics and /healthz.
func Handler(log *logger.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, req)
			log.Debug("http request", "method", req.Method, "path", req.URL.Path, "took", time.Since(start))
		})
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return r
}

// New constructs an *http.Server for Handler with sensible timeouts.
func New(addr string, log *logger.Logger) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      Handler(log),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
