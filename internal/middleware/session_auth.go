package middleware

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/kevin07696/chit-service/internal/auth"
	"github.com/kevin07696/chit-service/internal/domain"
	"github.com/kevin07696/chit-service/internal/handlers/response"
	"go.uber.org/zap"
)

// TokenVerifier turns a bearer token into a merchant session
type TokenVerifier interface {
	Verify(token string) (domain.Session, error)
}

// SessionAuth authenticates dashboard requests with a bearer JWT and
// stores the resulting domain.Session in the request context
type SessionAuth struct {
	verifier TokenVerifier
	logger   *zap.Logger
}

// NewSessionAuth creates the session authentication middleware
func NewSessionAuth(verifier TokenVerifier, logger *zap.Logger) *SessionAuth {
	return &SessionAuth{verifier: verifier, logger: logger}
}

// Middleware rejects requests without a valid token
func (sa *SessionAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := auth.BearerToken(r.Header.Get("Authorization"))
		if !ok {
			response.Error(w, r, sa.logger, domain.ErrAuthMissing)
			return
		}

		session, err := sa.verifier.Verify(token)
		if err != nil {
			sa.logger.Warn("Rejected dashboard token",
				zap.String("path", r.URL.Path),
				zap.String("client_ip", ClientIP(r)),
				zap.Error(err),
			)
			response.Error(w, r, sa.logger, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), session)))
	})
}

// RequestID tags every request with an id taken from X-Request-ID or
// generated, and echoes it back
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = generateRequestID()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), auth.RequestIDKey, id)))
	})
}

func generateRequestID() string {
	return fmt.Sprintf("%d-%d", time.Now().UnixNano(), rand.Int63())
}
