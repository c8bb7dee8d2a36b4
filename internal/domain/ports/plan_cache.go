package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/kevin07696/chit-service/internal/domain"
)

// PlanCache is a read-through cache of each merchant's plan list
type PlanCache interface {
	// GetPlans reports found=false on a miss
	GetPlans(ctx context.Context, merchantID uuid.UUID) (plans []*domain.ChitPlan, found bool, err error)
	SetPlans(ctx context.Context, merchantID uuid.UUID, plans []*domain.ChitPlan) error
	Invalidate(ctx context.Context, merchantID uuid.UUID) error
}
