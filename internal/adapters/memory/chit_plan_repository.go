package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/kevin07696/chit-service/internal/domain"
	"github.com/kevin07696/chit-service/internal/domain/ports"
)

// ChitPlanRepository implements ports.ChitPlanRepository in memory.
// Deleted plans are kept as tombstones like the soft delete in postgres.
type ChitPlanRepository struct {
	store *Store
}

// NewChitPlanRepository creates a chit plan repository backed by store
func NewChitPlanRepository(store *Store) *ChitPlanRepository {
	return &ChitPlanRepository{store: store}
}

var _ ports.ChitPlanRepository = (*ChitPlanRepository)(nil)

// Create inserts a chit plan
func (r *ChitPlanRepository) Create(ctx context.Context, tx ports.DBTX, plan *domain.ChitPlan) error {
	return r.store.write(ctx, func(t *tables) error {
		if _, exists := t.plans[plan.ID]; exists {
			return domain.ErrAlreadyExists
		}
		t.plans[plan.ID] = planRow{plan: *plan}
		return nil
	})
}

// Update replaces the editable fields of a live plan
func (r *ChitPlanRepository) Update(ctx context.Context, tx ports.DBTX, plan *domain.ChitPlan) error {
	return r.store.write(ctx, func(t *tables) error {
		row, ok := t.plans[plan.ID]
		if !ok || row.deleted {
			return domain.ErrPlanNotFound
		}
		row.plan = *plan
		t.plans[plan.ID] = row
		return nil
	})
}

// Delete tombstones a plan
func (r *ChitPlanRepository) Delete(ctx context.Context, tx ports.DBTX, id uuid.UUID) error {
	return r.store.write(ctx, func(t *tables) error {
		row, ok := t.plans[id]
		if !ok || row.deleted {
			return domain.ErrPlanNotFound
		}
		row.deleted = true
		t.plans[id] = row
		return nil
	})
}

// GetByID retrieves a live plan
func (r *ChitPlanRepository) GetByID(ctx context.Context, db ports.DBTX, id uuid.UUID) (*domain.ChitPlan, error) {
	var (
		row planRow
		ok  bool
	)
	r.store.read(ctx, func(t *tables) { row, ok = t.plans[id] })
	if !ok || row.deleted {
		return nil, domain.ErrPlanNotFound
	}
	plan := row.plan
	return &plan, nil
}

// ListByMerchant lists a merchant's live plans oldest first
func (r *ChitPlanRepository) ListByMerchant(ctx context.Context, db ports.DBTX, merchantID uuid.UUID) ([]*domain.ChitPlan, error) {
	out := make([]*domain.ChitPlan, 0)
	r.store.read(ctx, func(t *tables) {
		for _, row := range t.plans {
			if row.plan.MerchantID == merchantID && !row.deleted {
				plan := row.plan
				out = append(out, &plan)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// CountByMerchant counts a merchant's live plans
func (r *ChitPlanRepository) CountByMerchant(ctx context.Context, db ports.DBTX, merchantID uuid.UUID) (int, error) {
	count := 0
	r.store.read(ctx, func(t *tables) {
		for _, row := range t.plans {
			if row.plan.MerchantID == merchantID && !row.deleted {
				count++
			}
		}
	})
	return count, nil
}
