package shutdown

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestManager_ReverseOrder(t *testing.T) {
	m := NewManager(zap.NewNop(), time.Second)

	var (
		mu    sync.Mutex
		order []string
	)
	record := func(name string) Func {
		return func(context.Context) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		}
	}
	m.Register("database", record("database"))
	m.Register("cache", record("cache"))
	m.Register("http", record("http"))

	require.NoError(t, m.Shutdown())
	assert.Equal(t, []string{"http", "cache", "database"}, order)

	require.NoError(t, m.Shutdown())
	assert.Len(t, order, 3, "second shutdown is a no-op")
}

func TestManager_CollectsErrors(t *testing.T) {
	m := NewManager(zap.NewNop(), time.Second)
	boom := errors.New("boom")

	closed := false
	m.RegisterNoErr("ok", func() { closed = true })
	m.Register("broken", func(context.Context) error { return boom })

	err := m.Shutdown()
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "broken")
	assert.True(t, closed, "later components still run after a failure")
}

func TestManager_Timeout(t *testing.T) {
	m := NewManager(zap.NewNop(), 20*time.Millisecond)

	ran := false
	m.RegisterNoErr("after", func() { ran = true })
	m.Register("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	err := m.Shutdown()
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, ran)
}

func TestManager_WaitForShutdownOnContext(t *testing.T) {
	m := NewManager(zap.NewNop(), time.Second)
	stopped := false
	m.RegisterNoErr("c", func() { stopped = true })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, m.WaitForShutdown(ctx))
	assert.True(t, stopped)
}

func TestInFlightTracker_Middleware(t *testing.T) {
	tracker := NewInFlightTracker("http", zap.NewNop())

	release := make(chan struct{})
	entered := make(chan struct{})
	h := tracker.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		w.WriteHeader(http.StatusNoContent)
	}))

	first := httptest.NewRecorder()
	go h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
	<-entered

	drained := make(chan error, 1)
	go func() { drained <- tracker.Shutdown(context.Background()) }()

	require.Eventually(t, tracker.Draining, time.Second, time.Millisecond)

	rejected := httptest.NewRecorder()
	h.ServeHTTP(rejected, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rejected.Code)

	close(release)
	require.NoError(t, <-drained)
}

func TestInFlightTracker_ShutdownTimeout(t *testing.T) {
	tracker := NewInFlightTracker("jobs", zap.NewNop())
	require.True(t, tracker.Add())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, tracker.Shutdown(ctx), context.DeadlineExceeded)
	tracker.Done()
}

func TestBackgroundWorker(t *testing.T) {
	w := NewBackgroundWorker("monitor", zap.NewNop())
	stopped := make(chan struct{})
	w.Start(func(ctx context.Context) {
		<-ctx.Done()
		close(stopped)
	})

	require.NoError(t, w.Shutdown(context.Background()))
	select {
	case <-stopped:
	default:
		t.Fatal("worker did not observe cancellation")
	}
}
