package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentChannel identifies how an installment reached the merchant
type PaymentChannel string

const (
	PaymentChannelOnline  PaymentChannel = "online"  // Gateway-verified checkout
	PaymentChannelOffline PaymentChannel = "offline" // Merchant-attested (cash, bank transfer)
)

// Valid reports whether c is a known channel
func (c PaymentChannel) Valid() bool {
	switch c {
	case PaymentChannelOnline, PaymentChannelOffline:
		return true
	}
	return false
}

// PaymentStatus is the resolution state of a payment record
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusRejected  PaymentStatus = "rejected"
)

// Valid reports whether s is a known payment status
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusRejected:
		return true
	}
	return false
}

// IsResolved returns true once the record left pending
func (s PaymentStatus) IsResolved() bool {
	switch s {
	case PaymentStatusCompleted, PaymentStatusRejected:
		return true
	case PaymentStatusPending:
		return false
	}
	return false
}

// PaymentRecord is one installment payment against a subscription
type PaymentRecord struct {
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	ResolvedAt       *time.Time      `json:"resolved_at,omitempty"`
	Amount           decimal.Decimal `json:"amount"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
	ProofRef         *string         `json:"proof_ref,omitempty"`
	GatewayOrderID   *string         `json:"gateway_order_id,omitempty"`
	GatewayPaymentID *string         `json:"gateway_payment_id,omitempty"`
	Notes            string          `json:"notes"`
	RejectionReason  string          `json:"rejection_reason,omitempty"`
	Channel          PaymentChannel  `json:"channel"`
	Status           PaymentStatus   `json:"status"`
	ID               uuid.UUID       `json:"id"`
	SubscriptionID   uuid.UUID       `json:"subscription_id"`
	MerchantID       uuid.UUID       `json:"merchant_id"`
}

// IsPending returns true while the record awaits merchant approval
func (p *PaymentRecord) IsPending() bool {
	return p.Status == PaymentStatusPending
}

// CountsTowardLedger returns true for records included in totalAmountPaid
func (p *PaymentRecord) CountsTowardLedger() bool {
	return p.Status == PaymentStatusCompleted
}

// ValidatePaymentAmount checks an installment amount is positive with at most 2 decimals
func ValidatePaymentAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return NewValidationError("amount", "must be greater than zero")
	}
	if !amount.Equal(amount.Round(2)) {
		return NewValidationError("amount", "must have at most 2 decimal places")
	}
	return nil
}

// SumCompleted totals the completed records; this is the value
// totalAmountPaid must always equal.
func SumCompleted(records []*PaymentRecord) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		if r.CountsTowardLedger() {
			total = total.Add(r.Amount)
		}
	}
	return total
}

// Receipt is the stable shape handed to the receipt document generator
type Receipt struct {
	PaidAt           time.Time       `json:"paid_at"`
	Amount           decimal.Decimal `json:"amount"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
	MerchantName     string          `json:"merchant_name"`
	PlanName         string          `json:"plan_name"`
	UserID           string          `json:"user_id"`
	Notes            string          `json:"notes"`
	ProofRef         string          `json:"proof_ref,omitempty"`
	GatewayPaymentID string          `json:"gateway_payment_id,omitempty"`
	Channel          PaymentChannel  `json:"channel"`
	Status           PaymentStatus   `json:"status"`
	PaymentID        uuid.UUID       `json:"payment_id"`
	SubscriptionID   uuid.UUID       `json:"subscription_id"`
}
