package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BankDetails is where a withdrawing subscriber wants the payout sent
type BankDetails struct {
	AccountHolder string `json:"account_holder"`
	AccountNumber string `json:"account_number"`
	IFSC          string `json:"ifsc"`
	BankName      string `json:"bank_name"`
}

// Validate checks the fields a payout needs
func (b BankDetails) Validate() error {
	if strings.TrimSpace(b.AccountHolder) == "" {
		return NewValidationError("account_holder", "must not be empty")
	}
	if strings.TrimSpace(b.AccountNumber) == "" {
		return NewValidationError("account_number", "must not be empty")
	}
	if strings.TrimSpace(b.IFSC) == "" {
		return NewValidationError("ifsc", "must not be empty")
	}
	return nil
}

// WithdrawalRequest is a subscriber's request to exit a chit plan early
type WithdrawalRequest struct {
	CreatedAt      time.Time   `json:"created_at"`
	ResolvedAt     *time.Time  `json:"resolved_at,omitempty"`
	Bank           BankDetails `json:"bank"`
	Message        string      `json:"message"`
	ID             uuid.UUID   `json:"id"`
	SubscriptionID uuid.UUID   `json:"subscription_id"`
}

// IsOpen returns true until a settlement resolves the request
func (w *WithdrawalRequest) IsOpen() bool {
	return w.ResolvedAt == nil
}

// Settlement is the immutable record of a finalized subscription exit
type Settlement struct {
	SettledDate    time.Time       `json:"settled_date"`
	Amount         decimal.Decimal `json:"amount"`
	TransactionID  string          `json:"transaction_id"`
	Note           string          `json:"note"`
	ID             uuid.UUID       `json:"id"`
	SubscriptionID uuid.UUID       `json:"subscription_id"`
	MerchantID     uuid.UUID       `json:"merchant_id"`
}
