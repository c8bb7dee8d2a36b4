package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestValidatePaymentAmount(t *testing.T) {
	tests := []struct {
		amount string
		valid  bool
	}{
		{"1000", true},
		{"454.55", true},
		{"0.01", true},
		{"0", false},
		{"-10", false},
		{"10.001", false},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			err := ValidatePaymentAmount(decimal.RequireFromString(tt.amount))
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrValidationFailed)
			}
		})
	}
}

func TestSumCompleted_IgnoresPendingAndRejected(t *testing.T) {
	subID := uuid.New()
	records := []*PaymentRecord{
		{SubscriptionID: subID, Amount: decimal.NewFromInt(1000), Status: PaymentStatusCompleted},
		{SubscriptionID: subID, Amount: decimal.NewFromInt(500), Status: PaymentStatusPending},
		{SubscriptionID: subID, Amount: decimal.NewFromInt(700), Status: PaymentStatusRejected},
		{SubscriptionID: subID, Amount: decimal.RequireFromString("454.55"), Status: PaymentStatusCompleted},
	}

	assert.Equal(t, "1454.55", SumCompleted(records).StringFixed(2))
	assert.True(t, SumCompleted(nil).IsZero())
}

func TestPaymentStatus(t *testing.T) {
	assert.False(t, PaymentStatusPending.IsResolved())
	assert.True(t, PaymentStatusCompleted.IsResolved())
	assert.True(t, PaymentStatusRejected.IsResolved())
	assert.False(t, PaymentStatus("refunded").Valid())
	assert.True(t, PaymentChannelOffline.Valid())
	assert.False(t, PaymentChannel("upi").Valid())
}
