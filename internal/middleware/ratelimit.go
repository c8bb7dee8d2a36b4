package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/kevin07696/chit-service/internal/handlers/response"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// clientLimiter tracks a rate limiter and its last access time
type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter limits requests per client IP and evicts idle clients
type RateLimiter struct {
	limiters        map[string]*clientLimiter
	stopCh          chan struct{}
	logger          *zap.Logger
	rate            rate.Limit
	burst           int
	maxSize         int
	cleanupInterval time.Duration
	mu              sync.Mutex
	stopOnce        sync.Once
}

// NewRateLimiter creates a limiter allowing requestsPerSecond with burst per client
func NewRateLimiter(requestsPerSecond float64, burst int, logger *zap.Logger) *RateLimiter {
	rl := &RateLimiter{
		limiters:        make(map[string]*clientLimiter),
		rate:            rate.Limit(requestsPerSecond),
		burst:           burst,
		maxSize:         10000,
		cleanupInterval: 5 * time.Minute,
		stopCh:          make(chan struct{}),
		logger:          logger,
	}

	go rl.cleanupLoop()

	return rl
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			rl.cleanup(time.Now())
		}
	}
}

// cleanup removes clients idle for longer than the cleanup interval
func (rl *RateLimiter) cleanup(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := now.Add(-rl.cleanupInterval)
	removed := 0
	for ip, cl := range rl.limiters {
		if cl.lastAccess.Before(cutoff) {
			delete(rl.limiters, ip)
			removed++
		}
	}

	if removed > 100 {
		rl.logger.Debug("Evicted idle rate limiters", zap.Int("removed", removed))
	}
}

// Shutdown stops the cleanup goroutine
func (rl *RateLimiter) Shutdown() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// Allow reports whether the client at ip may make another request now
func (rl *RateLimiter) Allow(ip string) bool {
	return rl.getLimiter(ip).Allow()
}

func (rl *RateLimiter) getLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if cl, exists := rl.limiters[ip]; exists {
		cl.lastAccess = now
		return cl.limiter
	}

	// Evict the least recently used client when full
	if len(rl.limiters) >= rl.maxSize {
		var oldestIP string
		var oldestTime time.Time
		for candidate, cl := range rl.limiters {
			if oldestIP == "" || cl.lastAccess.Before(oldestTime) {
				oldestIP = candidate
				oldestTime = cl.lastAccess
			}
		}
		delete(rl.limiters, oldestIP)
	}

	cl := &clientLimiter{
		limiter:    rate.NewLimiter(rl.rate, rl.burst),
		lastAccess: now,
	}
	rl.limiters[ip] = cl
	return cl.limiter
}

// Middleware answers 429 once a client exceeds its rate
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(ClientIP(r)) {
			w.Header().Set("Retry-After", "1")
			response.JSON(w, rl.logger, http.StatusTooManyRequests, response.ErrorBody{
				Code:        "RATE_LIMITED",
				Message:     "rate limit exceeded",
				Remediation: "slow down and retry shortly",
				Retryable:   true,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientIP returns the caller address, preferring proxy headers
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

