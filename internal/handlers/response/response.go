package response

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/kevin07696/chit-service/internal/auth"
	"github.com/kevin07696/chit-service/internal/domain"
	"github.com/kevin07696/chit-service/pkg/encoding"
	"go.uber.org/zap"
)

// ErrorBody is the JSON body of every error response
type ErrorBody struct {
	Details     map[string]interface{} `json:"details,omitempty"`
	Code        string                 `json:"code"`
	Message     string                 `json:"message"`
	Remediation string                 `json:"remediation,omitempty"`
	Retryable   bool                   `json:"retryable"`
}

// StatusFor maps a domain error code to an HTTP status
func StatusFor(code domain.ErrorCode) int {
	switch code {
	case domain.ErrorCodeValidationFailed:
		return http.StatusBadRequest
	case domain.ErrorCodeAuthMissing, domain.ErrorCodeAuthInvalid:
		return http.StatusUnauthorized
	case domain.ErrorCodeAuthMerchantMismatch, domain.ErrorCodeKYCRequired, domain.ErrorCodeAccessBlocked:
		return http.StatusForbidden
	case domain.ErrorCodeMerchantNotFound,
		domain.ErrorCodePlanNotFound,
		domain.ErrorCodeSubscriptionNotFound,
		domain.ErrorCodePaymentNotFound,
		domain.ErrorCodeSettlementNotFound:
		return http.StatusNotFound
	case domain.ErrorCodeQuotaExceeded,
		domain.ErrorCodeDowngradeBlocked,
		domain.ErrorCodeAlreadyProcessed,
		domain.ErrorCodeSubscriptionClosed,
		domain.ErrorCodeSubscriptionWithdrawalPending,
		domain.ErrorCodePlanHasActiveSubscribers,
		domain.ErrorCodeAlreadyExists,
		domain.ErrorCodeConcurrentModification:
		return http.StatusConflict
	case domain.ErrorCodePaymentVerificationFailed:
		return http.StatusPaymentRequired
	case domain.ErrorCodeGatewayError:
		return http.StatusBadGateway
	case domain.ErrorCodeInternalError:
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

// JSON writes v with status
func JSON(w http.ResponseWriter, logger *zap.Logger, status int, v interface{}) {
	if err := encoding.WriteJSON(w, status, v); err != nil {
		logger.Error("Failed to write response", zap.Error(err))
	}
}

// Error writes err as a structured error body. Errors that are not domain
// errors are logged and reported as INTERNAL_ERROR without their text.
func Error(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	var domainErr *domain.DomainError
	if !errors.As(err, &domainErr) {
		logger.Error("Unhandled error",
			zap.String("path", r.URL.Path),
			zap.String("request_id", auth.RequestID(r.Context())),
			zap.Error(err),
		)
		JSON(w, logger, http.StatusInternalServerError, ErrorBody{
			Code:    string(domain.ErrorCodeInternalError),
			Message: "internal server error",
		})
		return
	}

	status := StatusFor(domainErr.Code)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.String("code", string(domainErr.Code)),
			zap.Error(err),
		)
	}

	body := ErrorBody{
		Code:        string(domainErr.Code),
		Message:     domainErr.Message,
		Remediation: domainErr.Remediation,
		Retryable:   domainErr.Retryable,
	}
	if len(domainErr.Details) > 0 {
		body.Details = domainErr.Details
	}
	JSON(w, logger, status, body)
}

// Session returns the session set by the auth middleware or writes 401
func Session(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (domain.Session, bool) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		Error(w, r, logger, domain.ErrAuthMissing)
		return domain.Session{}, false
	}
	return session, true
}

// PathID parses the named path value as a UUID or writes 400
func PathID(w http.ResponseWriter, r *http.Request, logger *zap.Logger, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		Error(w, r, logger, domain.NewValidationError(name, "must be a valid UUID"))
		return uuid.Nil, false
	}
	return id, true
}

// Decode reads the JSON request body into v or writes 400
func Decode(w http.ResponseWriter, r *http.Request, logger *zap.Logger, v interface{}) bool {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		Error(w, r, logger, domain.NewValidationError("content_type", "must be application/json"))
		return false
	}
	if err := encoding.DecodeJSON(r.Body, v); err != nil {
		Error(w, r, logger, domain.WrapError(domain.ErrorCodeValidationFailed, "malformed JSON body", err).
			WithRemediation("send a single JSON object with the documented fields"))
		return false
	}
	return true
}
