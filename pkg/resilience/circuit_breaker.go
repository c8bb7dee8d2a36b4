package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// CircuitState represents the current state of the circuit breaker
type CircuitState int

const (
	// StateClosed - requests flow normally
	StateClosed CircuitState = iota
	// StateOpen - requests fail immediately
	StateOpen
	// StateHalfOpen - a limited number of probe requests are allowed
	StateHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

var (
	// ErrCircuitOpen is returned when circuit breaker is open
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrTooManyRequests is returned when too many requests in half-open state
	ErrTooManyRequests = errors.New("too many requests in half-open state")
)

// CircuitBreakerConfig configures circuit breaker behavior
type CircuitBreakerConfig struct {
	Name string

	// MaxFailures is the number of consecutive failures before opening
	MaxFailures uint32
	// Timeout is how long the circuit stays open before probing
	Timeout time.Duration
	// MaxRequestsHalfOpen is max concurrent probes in half-open state
	MaxRequestsHalfOpen uint32

	// IsFailure decides which errors count against the circuit. Nil counts
	// every non-nil error. Client mistakes (4xx) should not trip it.
	IsFailure func(error) bool

	// OnStateChange is called with the lock held; keep it cheap
	OnStateChange func(name string, from, to CircuitState)
}

// DefaultCircuitBreakerConfig returns the gateway defaults
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:                name,
		MaxFailures:         5,
		Timeout:             30 * time.Second,
		MaxRequestsHalfOpen: 1,
	}
}

// CircuitBreaker implements the circuit breaker pattern
type CircuitBreaker struct {
	mu                  sync.Mutex
	state               CircuitState
	failures            uint32
	requestsHalfOpen    uint32
	lastStateChangeTime time.Time
	config              CircuitBreakerConfig
	now                 func() time.Time
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		state:               StateClosed,
		lastStateChangeTime: time.Now(),
		config:              config,
		now:                 time.Now,
	}
}

// Execute runs fn if the circuit allows it and records the outcome
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := cb.beforeCall(); err != nil {
		return err
	}

	err := fn(ctx)
	cb.afterCall(err)
	return err
}

func (cb *CircuitBreaker) beforeCall() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return nil

	case StateOpen:
		if cb.now().Sub(cb.lastStateChangeTime) < cb.config.Timeout {
			return ErrCircuitOpen
		}
		cb.setState(StateHalfOpen)
		cb.requestsHalfOpen++
		return nil

	case StateHalfOpen:
		if cb.requestsHalfOpen >= cb.config.MaxRequestsHalfOpen {
			return ErrTooManyRequests
		}
		cb.requestsHalfOpen++
		return nil
	}
	return ErrCircuitOpen
}

func (cb *CircuitBreaker) afterCall(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	failed := err != nil
	if failed && cb.config.IsFailure != nil {
		failed = cb.config.IsFailure(err)
	}

	if !failed {
		switch cb.state {
		case StateHalfOpen:
			cb.setState(StateClosed)
		case StateClosed:
			cb.failures = 0
		}
		return
	}

	cb.failures++
	switch cb.state {
	case StateClosed:
		if cb.failures >= cb.config.MaxFailures {
			cb.setState(StateOpen)
		}
	case StateHalfOpen:
		cb.setState(StateOpen)
	}
}

func (cb *CircuitBreaker) setState(next CircuitState) {
	if cb.state == next {
		return
	}

	prev := cb.state
	cb.state = next
	cb.lastStateChangeTime = cb.now()
	cb.requestsHalfOpen = 0
	if next != StateOpen {
		cb.failures = 0
	}

	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.config.Name, prev, next)
	}
}

// State returns the current circuit state
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Failures returns the consecutive failure count
func (cb *CircuitBreaker) Failures() uint32 {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// Reset closes the circuit
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.setState(StateClosed)
	cb.failures = 0
}
