package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/chit-service/internal/domain"
)

// MerchantRepository defines persistence for merchant accounts
type MerchantRepository interface {
	// Create inserts a merchant account (seeding and onboarding)
	Create(ctx context.Context, tx DBTX, merchant *domain.MerchantAccount) error

	// GetByID returns the merchant or domain.ErrMerchantNotFound
	GetByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.MerchantAccount, error)

	// GetByIDForUpdate locks the merchant row until the transaction ends.
	// Plan creation and renewal serialize on this lock.
	GetByIDForUpdate(ctx context.Context, tx DBTX, id uuid.UUID) (*domain.MerchantAccount, error)

	// UpdateSubscription writes tier, expiry and status in a single statement
	UpdateSubscription(ctx context.Context, tx DBTX, id uuid.UUID, tier domain.Tier, expiry time.Time, status domain.MerchantSubscriptionStatus) error
}

// RenewalRepository defines persistence for merchant tier renewals
type RenewalRepository interface {
	// Create inserts a renewal; a reused gateway payment id returns domain.ErrAlreadyProcessed
	Create(ctx context.Context, tx DBTX, renewal *domain.RenewalRecord) error

	// ListByMerchant returns renewals newest first
	ListByMerchant(ctx context.Context, db DBTX, merchantID uuid.UUID) ([]*domain.RenewalRecord, error)
}
