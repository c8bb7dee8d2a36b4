package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func newTestBreaker(t *testing.T, cfg CircuitBreakerConfig) (*CircuitBreaker, *time.Time) {
	t.Helper()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(cfg)
	cb.now = func() time.Time { return now }
	cb.lastStateChangeTime = now
	return cb, &now
}

func fail(context.Context) error    { return errBoom }
func succeed(context.Context) error { return nil }

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	cb, _ := newTestBreaker(t, DefaultCircuitBreakerConfig("gateway"))
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		assert.ErrorIs(t, cb.Execute(ctx, fail), errBoom)
	}
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, uint32(4), cb.Failures())

	assert.ErrorIs(t, cb.Execute(ctx, fail), errBoom)
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(ctx, func(context.Context) error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb, _ := newTestBreaker(t, DefaultCircuitBreakerConfig("gateway"))
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_ = cb.Execute(ctx, fail)
	}
	require.NoError(t, cb.Execute(ctx, succeed))
	assert.Equal(t, uint32(0), cb.Failures())
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	var transitions []string
	cfg := DefaultCircuitBreakerConfig("gateway")
	cfg.MaxFailures = 1
	cfg.OnStateChange = func(name string, from, to CircuitState) {
		transitions = append(transitions, from.String()+"->"+to.String())
	}
	cb, now := newTestBreaker(t, cfg)
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	require.Equal(t, StateOpen, cb.State())

	*now = now.Add(31 * time.Second)
	require.NoError(t, cb.Execute(ctx, succeed))
	assert.Equal(t, StateClosed, cb.State())

	_ = cb.Execute(ctx, fail)
	*now = now.Add(31 * time.Second)
	_ = cb.Execute(ctx, fail)
	assert.Equal(t, StateOpen, cb.State())

	assert.Equal(t, []string{
		"closed->open", "open->half-open", "half-open->closed",
		"closed->open", "open->half-open", "half-open->open",
	}, transitions)
}

func TestCircuitBreaker_HalfOpenLimitsProbes(t *testing.T) {
	cfg := DefaultCircuitBreakerConfig("gateway")
	cfg.MaxFailures = 1
	cb, now := newTestBreaker(t, cfg)
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	*now = now.Add(time.Minute)

	release := make(chan struct{})
	done := make(chan error, 1)
	started := make(chan struct{})
	go func() {
		done <- cb.Execute(ctx, func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	assert.ErrorIs(t, cb.Execute(ctx, succeed), ErrTooManyRequests)
	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_IgnoresNonFailures(t *testing.T) {
	errClient := errors.New("bad request")
	cfg := DefaultCircuitBreakerConfig("gateway")
	cfg.MaxFailures = 1
	cfg.IsFailure = func(err error) bool { return !errors.Is(err, errClient) }
	cb, _ := newTestBreaker(t, cfg)

	err := cb.Execute(context.Background(), func(context.Context) error { return errClient })
	assert.ErrorIs(t, err, errClient)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cfg := DefaultCircuitBreakerConfig("gateway")
	cfg.MaxFailures = 1
	cb, _ := newTestBreaker(t, cfg)

	_ = cb.Execute(context.Background(), fail)
	require.Equal(t, StateOpen, cb.State())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())
	assert.NoError(t, cb.Execute(context.Background(), succeed))
}
