package auth

import (
	"context"

	"github.com/kevin07696/chit-service/internal/domain"
)

// Context keys for authentication data
type contextKey string

const (
	sessionKey   contextKey = "session"
	RequestIDKey contextKey = "request_id"
)

// WithSession stores the verified session in ctx
func WithSession(ctx context.Context, session domain.Session) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}

// SessionFromContext returns the session stored by the auth middleware
func SessionFromContext(ctx context.Context) (domain.Session, bool) {
	session, ok := ctx.Value(sessionKey).(domain.Session)
	return session, ok
}

// RequestID returns the request id added by the middleware, if any
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}
