package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/chit-service/internal/domain"
)

// SettlementRepository defines persistence for subscription settlements
type SettlementRepository interface {
	// Create inserts the settlement; one per subscription
	Create(ctx context.Context, tx DBTX, settlement *domain.Settlement) error

	// GetBySubscription returns the settlement or domain.ErrSettlementNotFound
	GetBySubscription(ctx context.Context, db DBTX, subscriptionID uuid.UUID) (*domain.Settlement, error)
}

// WithdrawalRepository defines persistence for withdrawal requests
type WithdrawalRepository interface {
	Create(ctx context.Context, tx DBTX, req *domain.WithdrawalRequest) error

	// GetOpenBySubscription returns the unresolved request, or nil when there is none
	GetOpenBySubscription(ctx context.Context, db DBTX, subscriptionID uuid.UUID) (*domain.WithdrawalRequest, error)

	Resolve(ctx context.Context, tx DBTX, id uuid.UUID, resolvedAt time.Time) error
}
