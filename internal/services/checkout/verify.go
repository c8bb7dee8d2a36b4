// Package checkout confirms gateway checkouts for installment and renewal
// payments.
package checkout

import (
	"context"
	"strings"

	"github.com/kevin07696/chit-service/internal/domain"
	"github.com/kevin07696/chit-service/internal/domain/ports"
	"github.com/kevin07696/chit-service/pkg/observability"
)

// OrderCheck returns a non-empty reason when a verified order does not
// belong to the operation being recorded
type OrderCheck func(order *ports.Order) string

// Verify confirms a gateway checkout before any ledger mutation. The
// signature is checked first, then the order is fetched and matched by
// check. Every failure, a gateway outage included, is reported as a
// retryable domain.ErrPaymentVerificationFailed.
func Verify(ctx context.Context, gateway ports.PaymentGateway, purpose string, confirmation *ports.VerifyRequest, check OrderCheck) error {
	result, err := gateway.Verify(ctx, confirmation)
	if err != nil {
		observability.RecordVerificationFailure(purpose)
		return domain.NewPaymentVerificationError("gateway unavailable", err)
	}
	if !result.Verified {
		observability.RecordVerificationFailure(purpose)
		reason := result.Reason
		if reason == "" {
			reason = "signature mismatch"
		}
		return domain.NewPaymentVerificationError(reason, nil)
	}

	order, err := gateway.GetOrder(ctx, confirmation.OrderID)
	if err != nil {
		observability.RecordVerificationFailure(purpose)
		return domain.NewPaymentVerificationError("order lookup failed", err)
	}
	if check != nil {
		if reason := check(order); reason != "" {
			observability.RecordVerificationFailure(purpose)
			return domain.NewPaymentVerificationError(reason, nil)
		}
	}
	return nil
}

// ValidateConfirmation checks that a checkout confirmation is complete
func ValidateConfirmation(c *ports.VerifyRequest) error {
	if strings.TrimSpace(c.OrderID) == "" {
		return domain.NewValidationError("order_id", "must not be empty")
	}
	if strings.TrimSpace(c.PaymentID) == "" {
		return domain.NewValidationError("payment_id", "must not be empty")
	}
	if strings.TrimSpace(c.Signature) == "" {
		return domain.NewValidationError("signature", "must not be empty")
	}
	return nil
}
