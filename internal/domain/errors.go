package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrorCode represents a machine-readable error code
type ErrorCode string

const (
	// Authentication & Authorization Errors (AUTH_*)
	ErrorCodeAuthMissing          ErrorCode = "AUTH_MISSING"
	ErrorCodeAuthInvalid          ErrorCode = "AUTH_INVALID"
	ErrorCodeAuthMerchantMismatch ErrorCode = "AUTH_MERCHANT_MISMATCH"
	ErrorCodeAccessBlocked        ErrorCode = "ACCESS_BLOCKED"

	// Merchant Errors
	ErrorCodeMerchantNotFound ErrorCode = "MERCHANT_NOT_FOUND"
	ErrorCodeKYCRequired      ErrorCode = "KYC_REQUIRED"
	ErrorCodeQuotaExceeded    ErrorCode = "QUOTA_EXCEEDED"
	ErrorCodeDowngradeBlocked ErrorCode = "DOWNGRADE_BLOCKED"

	// Chit Plan Errors
	ErrorCodePlanNotFound             ErrorCode = "PLAN_NOT_FOUND"
	ErrorCodePlanHasActiveSubscribers ErrorCode = "PLAN_HAS_ACTIVE_SUBSCRIBERS"

	// Subscription Errors
	ErrorCodeSubscriptionNotFound          ErrorCode = "SUBSCRIPTION_NOT_FOUND"
	ErrorCodeSubscriptionClosed            ErrorCode = "SUBSCRIPTION_CLOSED"
	ErrorCodeSubscriptionWithdrawalPending ErrorCode = "SUBSCRIPTION_WITHDRAWAL_PENDING"
	ErrorCodeSettlementNotFound            ErrorCode = "SETTLEMENT_NOT_FOUND"

	// Payment Errors
	ErrorCodePaymentNotFound           ErrorCode = "PAYMENT_NOT_FOUND"
	ErrorCodeAlreadyProcessed          ErrorCode = "ALREADY_PROCESSED"
	ErrorCodePaymentVerificationFailed ErrorCode = "PAYMENT_VERIFICATION_FAILED"

	// Validation Errors (VALIDATION_*)
	ErrorCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	// Persistence Errors
	ErrorCodeAlreadyExists          ErrorCode = "ALREADY_EXISTS"
	ErrorCodeConcurrentModification ErrorCode = "CONCURRENT_MODIFICATION"

	// Payment Gateway Errors (GATEWAY_*)
	ErrorCodeGatewayError ErrorCode = "GATEWAY_ERROR"

	// Internal Errors (INTERNAL_*)
	ErrorCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// DomainError represents a structured domain error with error code and context.
// Remediation tells the caller what to do next; Retryable marks errors where
// repeating the same request may succeed.
type DomainError struct {
	Err         error
	Details     map[string]interface{}
	Code        ErrorCode
	Message     string
	Remediation string
	Retryable   bool
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DomainError carrying the same code, so the
// exported sentinels below can be used with errors.Is.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithDetail adds a detail field to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithRemediation sets the remediating action shown to the caller
func (e *DomainError) WithRemediation(remediation string) *DomainError {
	e.Remediation = remediation
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(code ErrorCode, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with a domain error code
func WrapError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Err:     err,
	}
}

// IsDomainError checks if an error is a DomainError with the given code
func IsDomainError(err error, code ErrorCode) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error, returns empty string if not a DomainError
func GetErrorCode(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// IsNotFoundError checks if an error represents a "not found" condition
func IsNotFoundError(err error) bool {
	switch GetErrorCode(err) {
	case ErrorCodeMerchantNotFound,
		ErrorCodePlanNotFound,
		ErrorCodeSubscriptionNotFound,
		ErrorCodePaymentNotFound,
		ErrorCodeSettlementNotFound:
		return true
	}
	return false
}

// IsStaleViewError reports errors that mean the caller acted on an outdated
// copy of the record and should re-fetch instead of retrying.
func IsStaleViewError(err error) bool {
	switch GetErrorCode(err) {
	case ErrorCodeAlreadyProcessed, ErrorCodeSubscriptionClosed, ErrorCodeConcurrentModification:
		return true
	}
	return false
}

// IsRetryable reports whether repeating the same request may succeed
func IsRetryable(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Retryable
	}
	return false
}

// DetailInt returns an integer detail attached to a DomainError
func DetailInt(err error, key string) (int, bool) {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		return 0, false
	}
	v, ok := domainErr.Details[key].(int)
	return v, ok
}

// Sentinels for errors.Is comparisons. Never mutate these; use the
// constructors below to build errors that carry details.
var (
	ErrAuthMissing          = NewDomainError(ErrorCodeAuthMissing, "authentication required")
	ErrAuthInvalid          = NewDomainError(ErrorCodeAuthInvalid, "invalid authentication")
	ErrAuthMerchantMismatch = NewDomainError(ErrorCodeAuthMerchantMismatch, "resource belongs to another merchant")
	ErrAccessBlocked        = NewDomainError(ErrorCodeAccessBlocked, "merchant access blocked")

	ErrMerchantNotFound = NewDomainError(ErrorCodeMerchantNotFound, "merchant not found")
	ErrKYCRequired      = NewDomainError(ErrorCodeKYCRequired, "KYC verification required")
	ErrQuotaExceeded    = NewDomainError(ErrorCodeQuotaExceeded, "chit plan quota exceeded")
	ErrDowngradeBlocked = NewDomainError(ErrorCodeDowngradeBlocked, "tier downgrade blocked")

	ErrPlanNotFound             = NewDomainError(ErrorCodePlanNotFound, "chit plan not found")
	ErrPlanHasActiveSubscribers = NewDomainError(ErrorCodePlanHasActiveSubscribers, "chit plan has active subscribers")

	ErrSubscriptionNotFound          = NewDomainError(ErrorCodeSubscriptionNotFound, "subscription not found")
	ErrSubscriptionClosed            = NewDomainError(ErrorCodeSubscriptionClosed, "subscription is closed")
	ErrSubscriptionWithdrawalPending = NewDomainError(ErrorCodeSubscriptionWithdrawalPending, "subscription has a pending withdrawal request")
	ErrSettlementNotFound            = NewDomainError(ErrorCodeSettlementNotFound, "settlement not found")

	ErrPaymentNotFound           = NewDomainError(ErrorCodePaymentNotFound, "payment record not found")
	ErrAlreadyProcessed          = NewDomainError(ErrorCodeAlreadyProcessed, "payment already processed")
	ErrPaymentVerificationFailed = NewDomainError(ErrorCodePaymentVerificationFailed, "payment verification failed")

	ErrValidationFailed = NewDomainError(ErrorCodeValidationFailed, "validation failed")

	ErrAlreadyExists          = NewDomainError(ErrorCodeAlreadyExists, "record already exists")
	ErrConcurrentModification = NewDomainError(ErrorCodeConcurrentModification, "record was modified concurrently")

	ErrGatewayError  = NewDomainError(ErrorCodeGatewayError, "payment gateway error")
	ErrInternalError = NewDomainError(ErrorCodeInternalError, "internal server error")
)

// NewValidationError reports a malformed input field
func NewValidationError(field, message string) *DomainError {
	return NewDomainError(ErrorCodeValidationFailed, fmt.Sprintf("%s: %s", field, message)).
		WithDetail("field", field).
		WithRemediation("correct the " + field + " field and resubmit")
}

// NewKYCRequiredError reports that plan creation needs a verified merchant
func NewKYCRequiredError() *DomainError {
	return NewDomainError(ErrorCodeKYCRequired, "merchant KYC verification is incomplete").
		WithRemediation("complete KYC verification before creating chit plans")
}

// NewQuotaExceededError reports that the merchant already runs quota plans
func NewQuotaExceededError(tier Tier, quota, currentCount int) *DomainError {
	return NewDomainError(ErrorCodeQuotaExceeded,
		fmt.Sprintf("%s tier allows %d chit plans, merchant has %d", tier, quota, currentCount)).
		WithDetail("tier", string(tier)).
		WithDetail("quota", quota).
		WithDetail("current_count", currentCount).
		WithRemediation("delete an existing chit plan or upgrade to a higher tier")
}

// NewDowngradeBlockedError reports how many plans must go before a downgrade
func NewDowngradeBlockedError(target Tier, excessCount int) *DomainError {
	return NewDomainError(ErrorCodeDowngradeBlocked,
		fmt.Sprintf("cannot move to %s tier with %d chit plans over its quota", target, excessCount)).
		WithDetail("target_tier", string(target)).
		WithDetail("excess_count", excessCount).
		WithRemediation(fmt.Sprintf("delete %d chit plan(s) and retry the renewal", excessCount))
}

// NewAlreadyProcessedError reports a payment record already resolved
func NewAlreadyProcessedError(paymentID string, status PaymentStatus) *DomainError {
	return NewDomainError(ErrorCodeAlreadyProcessed,
		fmt.Sprintf("payment %s is already %s", paymentID, status)).
		WithDetail("payment_id", paymentID).
		WithDetail("status", string(status)).
		WithRemediation("refresh the payment list; the record was resolved elsewhere")
}

// NewSubscriptionClosedError reports a payment attempt against a terminal subscription
func NewSubscriptionClosedError(subscriptionID string, status SubscriptionStatus) *DomainError {
	return NewDomainError(ErrorCodeSubscriptionClosed,
		fmt.Sprintf("subscription %s is %s and accepts no further payments", subscriptionID, status)).
		WithDetail("subscription_id", subscriptionID).
		WithDetail("status", string(status)).
		WithRemediation("refresh the subscription; it is already closed")
}

// NewPaymentVerificationError reports a gateway verification failure.
// Nothing was written, so the request can be retried.
func NewPaymentVerificationError(reason string, err error) *DomainError {
	e := WrapError(ErrorCodePaymentVerificationFailed, "payment could not be verified: "+reason, err).
		WithRemediation("retry the payment confirmation or start a new checkout")
	e.Retryable = true
	return e
}

// NewAccessBlockedError reports a merchant past the expiry grace period
func NewAccessBlockedError(diffDays float64) *DomainError {
	return NewDomainError(ErrorCodeAccessBlocked,
		fmt.Sprintf("merchant subscription expired %.1f days ago", diffDays)).
		WithDetail("days_since_expiry", diffDays).
		WithRemediation("renew your subscription to restore dashboard access")
}

// NewPlanHasActiveSubscribersError reports a delete refused because of open subscriptions
func NewPlanHasActiveSubscribersError(count int) *DomainError {
	return NewDomainError(ErrorCodePlanHasActiveSubscribers,
		fmt.Sprintf("chit plan has %d open subscription(s)", count)).
		WithDetail("open_subscriptions", count).
		WithRemediation("settle or complete every subscription of the plan before deleting it")
}

// NewSettlementAmountMismatchError reports a settlement amount that differs from the ledger
func NewSettlementAmountMismatchError(expected, got decimal.Decimal) *DomainError {
	return NewValidationError("amount",
		fmt.Sprintf("settlement amount %s must equal total amount paid %s", got.StringFixed(2), expected.StringFixed(2))).
		WithDetail("expected", expected.StringFixed(2))
}

// OutcomeLabel returns "ok" for nil, the error code for domain errors and
// "error" otherwise. Used as a low-cardinality metrics label.
func OutcomeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if code := GetErrorCode(err); code != "" {
		return string(code)
	}
	return "error"
}
