package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainError_IsMatchesByCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"quota", NewQuotaExceededError(TierBasic, 3, 3), ErrQuotaExceeded},
		{"downgrade", NewDowngradeBlockedError(TierBasic, 2), ErrDowngradeBlocked},
		{"kyc", NewKYCRequiredError(), ErrKYCRequired},
		{"already processed", NewAlreadyProcessedError("p1", PaymentStatusCompleted), ErrAlreadyProcessed},
		{"closed", NewSubscriptionClosedError("s1", SubscriptionStatusSettled), ErrSubscriptionClosed},
		{"verification", NewPaymentVerificationError("bad signature", nil), ErrPaymentVerificationFailed},
		{"access", NewAccessBlockedError(3.5), ErrAccessBlocked},
		{"subscribers", NewPlanHasActiveSubscribersError(2), ErrPlanHasActiveSubscribers},
		{"validation", NewValidationError("amount", "must be positive"), ErrValidationFailed},
		{"settlement amount", NewSettlementAmountMismatchError(decimal.NewFromInt(10), decimal.NewFromInt(5)), ErrValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.sentinel)
			wrapped := fmt.Errorf("service layer: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.sentinel)
		})
	}
}

func TestDomainError_DifferentCodesDoNotMatch(t *testing.T) {
	err := NewQuotaExceededError(TierStandard, 6, 6)
	assert.False(t, errors.Is(err, ErrKYCRequired))
	assert.False(t, errors.Is(errors.New("plain"), ErrQuotaExceeded))
}

func TestDomainError_Details(t *testing.T) {
	err := NewQuotaExceededError(TierBasic, 3, 3)
	quota, ok := DetailInt(err, "quota")
	require.True(t, ok)
	assert.Equal(t, 3, quota)
	current, ok := DetailInt(err, "current_count")
	require.True(t, ok)
	assert.Equal(t, 3, current)

	downgrade := fmt.Errorf("renew: %w", NewDowngradeBlockedError(TierBasic, 4))
	excess, ok := DetailInt(downgrade, "excess_count")
	require.True(t, ok)
	assert.Equal(t, 4, excess)

	_, ok = DetailInt(errors.New("plain"), "excess_count")
	assert.False(t, ok)
}

func TestDomainError_ErrorString(t *testing.T) {
	err := WrapError(ErrorCodeGatewayError, "create order", errors.New("connection refused"))
	assert.Equal(t, "GATEWAY_ERROR: create order: connection refused", err.Error())
	assert.Equal(t, "PLAN_NOT_FOUND: chit plan not found", ErrPlanNotFound.Error())
}

func TestDomainError_Classification(t *testing.T) {
	assert.True(t, IsNotFoundError(ErrSubscriptionNotFound))
	assert.True(t, IsNotFoundError(fmt.Errorf("x: %w", ErrMerchantNotFound)))
	assert.False(t, IsNotFoundError(ErrQuotaExceeded))

	assert.True(t, IsStaleViewError(NewAlreadyProcessedError("p", PaymentStatusRejected)))
	assert.True(t, IsStaleViewError(ErrConcurrentModification))
	assert.False(t, IsStaleViewError(ErrValidationFailed))

	assert.True(t, IsRetryable(NewPaymentVerificationError("timeout", errors.New("deadline"))))
	assert.False(t, IsRetryable(ErrAlreadyProcessed))

	assert.Equal(t, ErrorCodeKYCRequired, GetErrorCode(NewKYCRequiredError()))
	assert.Equal(t, ErrorCode(""), GetErrorCode(errors.New("plain")))
}

func TestDomainError_Remediation(t *testing.T) {
	err := NewDowngradeBlockedError(TierStandard, 2)
	assert.Contains(t, err.Remediation, "delete 2 chit plan(s)")

	assert.NotEmpty(t, NewAccessBlockedError(2).Remediation)
	assert.Contains(t, NewAccessBlockedError(2).Remediation, "renew")
}
