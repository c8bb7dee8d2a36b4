package ports

import (
	"context"

	"github.com/shopspring/decimal"
)

// OrderRequest asks the gateway to open a checkout order
type OrderRequest struct {
	Amount   decimal.Decimal
	Currency string
	Receipt  string // Merchant-side reference echoed back by the gateway
	Notes    map[string]string
}

// Order is a gateway checkout order
type Order struct {
	ID       string
	Amount   decimal.Decimal
	Currency string
	Receipt  string
	Status   string
	Notes    map[string]string
}

// VerifyRequest carries the checkout confirmation returned to the client
type VerifyRequest struct {
	OrderID   string
	PaymentID string
	Signature string
}

// VerificationResult gates ledger mutation: nothing is written unless Verified
type VerificationResult struct {
	Verified bool
	Reason   string
}

// PaymentGateway defines the external online payment gateway
type PaymentGateway interface {
	// CreateOrder opens an order for the given amount
	CreateOrder(ctx context.Context, req *OrderRequest) (*Order, error)

	// GetOrder fetches an order so its amount and notes can be matched
	// against the confirmation being recorded
	GetOrder(ctx context.Context, orderID string) (*Order, error)

	// Verify checks a checkout confirmation signature. A transport or
	// configuration failure returns an error; a bad signature returns
	// Verified=false.
	Verify(ctx context.Context, req *VerifyRequest) (*VerificationResult, error)
}
