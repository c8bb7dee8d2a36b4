package shutdown

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	shutdownDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "chit_shutdown_duration_seconds",
		Help:    "Total time taken to shut down",
		Buckets: []float64{0.5, 1, 5, 10, 20, 30},
	})

	componentShutdownDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chit_component_shutdown_duration_seconds",
		Help:    "Time taken to shut down each component",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 30},
	}, []string{"component"})

	shutdownErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chit_shutdown_errors_total",
		Help: "Shutdown errors by component",
	}, []string{"component"})
)

// Func stops one component
type Func func(context.Context) error

type component struct {
	name string
	fn   Func
}

// Manager stops registered components in reverse registration order:
// register the database first and the HTTP server last.
type Manager struct {
	logger     *zap.Logger
	timeout    time.Duration
	mu         sync.Mutex
	components []component
	once       sync.Once
	err        error
}

// NewManager creates a manager that gives all components timeout to stop
func NewManager(logger *zap.Logger, timeout time.Duration) *Manager {
	return &Manager{logger: logger, timeout: timeout}
}

// Register adds a component
func (m *Manager) Register(name string, fn Func) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.components = append(m.components, component{name: name, fn: fn})
	m.logger.Debug("Registered shutdown component",
		zap.String("component", name),
		zap.Int("order", len(m.components)),
	)
}

// RegisterCloser registers a component with a Close method
func (m *Manager) RegisterCloser(name string, closer interface{ Close() error }) {
	m.Register(name, func(context.Context) error { return closer.Close() })
}

// RegisterNoErr registers a shutdown function that cannot fail
func (m *Manager) RegisterNoErr(name string, fn func()) {
	m.Register(name, func(context.Context) error {
		fn()
		return nil
	})
}

// WaitForShutdown blocks until ctx ends or SIGINT/SIGTERM arrives, then shuts down
func (m *Manager) WaitForShutdown(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	m.logger.Info("Shutdown signal received", zap.Duration("timeout", m.timeout))
	return m.Shutdown()
}

// Shutdown stops every component once; later calls return the first result
func (m *Manager) Shutdown() error {
	m.once.Do(func() {
		start := time.Now()
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()

		m.err = m.shutdownComponents(ctx)
		shutdownDuration.Observe(time.Since(start).Seconds())

		if m.err != nil {
			m.logger.Error("Shutdown completed with errors",
				zap.Duration("elapsed", time.Since(start)),
				zap.Error(m.err),
			)
			return
		}
		m.logger.Info("Shutdown completed", zap.Duration("elapsed", time.Since(start)))
	})
	return m.err
}

func (m *Manager) shutdownComponents(ctx context.Context) error {
	m.mu.Lock()
	components := make([]component, len(m.components))
	copy(components, m.components)
	m.mu.Unlock()

	var errs []error
	for i := len(components) - 1; i >= 0; i-- {
		c := components[i]
		if ctx.Err() != nil {
			errs = append(errs, fmt.Errorf("%s: skipped: %w", c.name, ctx.Err()))
			shutdownErrors.WithLabelValues(c.name).Inc()
			continue
		}

		start := time.Now()
		err := c.fn(ctx)
		componentShutdownDuration.WithLabelValues(c.name).Observe(time.Since(start).Seconds())
		if err != nil {
			shutdownErrors.WithLabelValues(c.name).Inc()
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
			m.logger.Error("Component shutdown failed", zap.String("component", c.name), zap.Error(err))
			continue
		}
		m.logger.Info("Component shut down",
			zap.String("component", c.name),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
	return errors.Join(errs...)
}
