package observability

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Readiness flips to false when the service starts draining
type Readiness struct {
	ready atomic.Bool
}

// SetReady marks the service ready or not
func (r *Readiness) SetReady(ready bool) {
	r.ready.Store(ready)
}

// Handler answers 200 when ready and 503 otherwise
func (r *Readiness) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if !r.ready.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	}
}

// NewMetricsMux routes /metrics, /health and /ready
func NewMetricsMux(healthChecker *HealthChecker, readiness *Readiness) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	if healthChecker != nil {
		mux.HandleFunc("GET /health", healthChecker.HealthHandler())
	}
	if readiness != nil {
		mux.HandleFunc("GET /ready", readiness.Handler())
	}
	return mux
}

// StartMetricsServer starts an HTTP server for Prometheus metrics and health checks
func StartMetricsServer(port string, healthChecker *HealthChecker, readiness *Readiness, logger *zap.Logger) *http.Server {
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      NewMetricsMux(healthChecker, readiness),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server error", zap.Error(err))
		}
	}()

	return server
}

// ShutdownMetricsServer gracefully shuts down the metrics server
func ShutdownMetricsServer(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}
