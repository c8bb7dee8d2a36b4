package resilience

import (
	"context"
	"time"
)

// TimeoutConfig defines the timeout hierarchy, outermost first:
//
//	HTTP Handler (30s)
//	  Service (25s)
//	    Gateway call (15s), single attempt (5s)
//
// Each layer must finish before its parent times out.
type TimeoutConfig struct {
	HTTPHandler time.Duration // Overall request timeout
	Service     time.Duration // Service operation timeout
	ExternalAPI time.Duration // Payment gateway call including retries
	SingleRetry time.Duration // One gateway attempt
}

// DefaultTimeoutConfig returns production timeout values
func DefaultTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		HTTPHandler: 30 * time.Second,
		Service:     25 * time.Second,
		ExternalAPI: 15 * time.Second,
		SingleRetry: 5 * time.Second,
	}
}

// TestTimeoutConfig returns shorter timeouts for testing
func TestTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		HTTPHandler: 5 * time.Second,
		Service:     4 * time.Second,
		ExternalAPI: 2 * time.Second,
		SingleRetry: 1 * time.Second,
	}
}

// HandlerContext creates a context with timeout for HTTP handlers
func (tc *TimeoutConfig) HandlerContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.HTTPHandler)
}

// ServiceContext creates a context with timeout for service layer operations
func (tc *TimeoutConfig) ServiceContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.Service)
}

// ExternalAPIContext creates a context for a gateway call
func (tc *TimeoutConfig) ExternalAPIContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.ExternalAPI)
}

// RetryAttemptContext creates a context for a single attempt
func (tc *TimeoutConfig) RetryAttemptContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.SingleRetry)
}
