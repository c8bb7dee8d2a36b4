package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/kevin07696/chit-service/internal/domain"
)

// SubscriptionRepository defines persistence for subscriber enrollments
type SubscriptionRepository interface {
	// Create inserts a subscription; a second enrollment of the same user
	// into the same plan returns domain.ErrAlreadyExists
	Create(ctx context.Context, tx DBTX, sub *domain.Subscription) error

	// GetByID returns the subscription or domain.ErrSubscriptionNotFound
	GetByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Subscription, error)

	// GetByIDForUpdate locks the subscription row until the transaction ends
	GetByIDForUpdate(ctx context.Context, tx DBTX, id uuid.UUID) (*domain.Subscription, error)

	// Update writes status, paid total and closedAt when the stored version
	// still equals sub.Version, then increments sub.Version. A mismatch
	// returns domain.ErrConcurrentModification.
	Update(ctx context.Context, tx DBTX, sub *domain.Subscription) error

	ListByPlan(ctx context.Context, db DBTX, planID uuid.UUID) ([]*domain.Subscription, error)

	// CountOpenByPlan counts active and requested_withdrawal subscriptions
	CountOpenByPlan(ctx context.Context, db DBTX, planID uuid.UUID) (int, error)
}
