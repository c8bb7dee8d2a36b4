package shutdown

import (
	"context"
	"net/http"
	"sync"

	"go.uber.org/zap"
)

// InFlightTracker counts in-flight requests so shutdown can drain them
type InFlightTracker struct {
	mu       sync.RWMutex
	wg       sync.WaitGroup
	draining bool
	logger   *zap.Logger
	name     string
}

// NewInFlightTracker creates a tracker
func NewInFlightTracker(name string, logger *zap.Logger) *InFlightTracker {
	return &InFlightTracker{logger: logger, name: name}
}

// Add registers new work; false once draining has begun
func (t *InFlightTracker) Add() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.draining {
		return false
	}
	t.wg.Add(1)
	return true
}

// Draining reports whether Shutdown has begun
func (t *InFlightTracker) Draining() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.draining
}

// Done marks work complete
func (t *InFlightTracker) Done() {
	t.wg.Done()
}

// Middleware rejects requests with 503 while draining and tracks the rest
func (t *InFlightTracker) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !t.Add() {
			w.Header().Set("Connection", "close")
			http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
			return
		}
		defer t.Done()
		next.ServeHTTP(w, r)
	})
}

// Shutdown stops accepting work and waits for in-flight work or ctx
func (t *InFlightTracker) Shutdown(ctx context.Context) error {
	t.mu.Lock()
	t.draining = true
	t.mu.Unlock()

	t.logger.Info("Draining in-flight work", zap.String("tracker", t.name))

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		t.logger.Warn("Drain timed out", zap.String("tracker", t.name))
		return ctx.Err()
	}
}

// BackgroundWorker runs one long-lived function until Shutdown
type BackgroundWorker struct {
	name   string
	logger *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewBackgroundWorker creates a stopped worker
func NewBackgroundWorker(name string, logger *zap.Logger) *BackgroundWorker {
	ctx, cancel := context.WithCancel(context.Background())
	return &BackgroundWorker{
		name:   name,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Start runs work in a goroutine; work must return when ctx is cancelled
func (w *BackgroundWorker) Start(work func(ctx context.Context)) {
	go func() {
		defer close(w.done)
		w.logger.Info("Background worker started", zap.String("worker", w.name))
		work(w.ctx)
	}()
}

// Shutdown cancels the worker and waits for it or ctx
func (w *BackgroundWorker) Shutdown(ctx context.Context) error {
	w.cancel()
	select {
	case <-w.done:
		w.logger.Info("Background worker stopped", zap.String("worker", w.name))
		return nil
	case <-ctx.Done():
		w.logger.Warn("Background worker shutdown timeout", zap.String("worker", w.name))
		return ctx.Err()
	}
}
