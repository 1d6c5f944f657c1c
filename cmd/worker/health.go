package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/turtacn/CompliSense/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CompliSense/internal/infrastructure/monitoring/prometheus"
)

const readyCheckTimeout = 5 * time.Second

// newHealthServer builds the worker's only listener: liveness, readiness,
// and Prometheus metrics.  The worker has no API surface beyond this.
func newHealthServer(port int, collector prometheus.MetricsCollector, infra *workerInfrastructure, logger logging.Logger) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
		defer cancel()
		if err := infra.Ready(ctx, logger); err != nil {
			logger.Warn("Readiness check failed", logging.Err(err))
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
	})

	mux.Handle("/metrics", collector.Handler())

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
