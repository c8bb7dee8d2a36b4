package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/kevin07696/chit-service/internal/domain"
)

// ChitPlanRepository defines persistence for chit plans
type ChitPlanRepository interface {
	Create(ctx context.Context, tx DBTX, plan *domain.ChitPlan) error
	Update(ctx context.Context, tx DBTX, plan *domain.ChitPlan) error
	Delete(ctx context.Context, tx DBTX, id uuid.UUID) error

	// GetByID returns the plan or domain.ErrPlanNotFound
	GetByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.ChitPlan, error)
	ListByMerchant(ctx context.Context, db DBTX, merchantID uuid.UUID) ([]*domain.ChitPlan, error)
	CountByMerchant(ctx context.Context, db DBTX, merchantID uuid.UUID) (int, error)
}
