package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/chit-service/internal/domain"
	"github.com/shopspring/decimal"
)

// PaymentRepository defines persistence for installment payment records
type PaymentRepository interface {
	// Create inserts a payment record; a reused gateway payment id returns
	// domain.ErrAlreadyProcessed
	Create(ctx context.Context, tx DBTX, payment *domain.PaymentRecord) error

	// GetByID returns the record or domain.ErrPaymentNotFound
	GetByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.PaymentRecord, error)

	// ResolvePending moves a pending record to status. It reports false when
	// the record was no longer pending and nothing was written.
	ResolvePending(ctx context.Context, tx DBTX, id uuid.UUID, status domain.PaymentStatus, reason string, resolvedAt time.Time) (bool, error)

	ListBySubscription(ctx context.Context, db DBTX, subscriptionID uuid.UUID) ([]*domain.PaymentRecord, error)

	// SumCompleted totals the completed records of a subscription
	SumCompleted(ctx context.Context, db DBTX, subscriptionID uuid.UUID) (decimal.Decimal, error)
}
