package middleware

import (
	"context"
	"net/http"

	"github.com/kevin07696/chit-service/internal/domain"
	"github.com/kevin07696/chit-service/internal/handlers/response"
	"go.uber.org/zap"
)

// AccessChecker decides whether a merchant may use the dashboard
type AccessChecker interface {
	RequireAccess(ctx context.Context, session domain.Session) error
}

// AccessGuard blocks merchants whose platform subscription lapsed past the
// grace period. It must run after SessionAuth.
type AccessGuard struct {
	checker AccessChecker
	logger  *zap.Logger
}

// NewAccessGuard creates the expiry access middleware
func NewAccessGuard(checker AccessChecker, logger *zap.Logger) *AccessGuard {
	return &AccessGuard{checker: checker, logger: logger}
}

// Middleware re-checks access on every request
func (ag *AccessGuard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := response.Session(w, r, ag.logger)
		if !ok {
			return
		}
		if err := ag.checker.RequireAccess(r.Context(), session); err != nil {
			response.Error(w, r, ag.logger, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}
