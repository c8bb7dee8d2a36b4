package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/kevin07696/chit-service/internal/domain"
	"github.com/kevin07696/chit-service/internal/domain/ports"
)

// SubscriptionRepository implements ports.SubscriptionRepository in memory
type SubscriptionRepository struct {
	store *Store
}

// NewSubscriptionRepository creates a subscription repository backed by store
func NewSubscriptionRepository(store *Store) *SubscriptionRepository {
	return &SubscriptionRepository{store: store}
}

var _ ports.SubscriptionRepository = (*SubscriptionRepository)(nil)

// Create inserts a subscription, one per user and plan
func (r *SubscriptionRepository) Create(ctx context.Context, tx ports.DBTX, sub *domain.Subscription) error {
	return r.store.write(ctx, func(t *tables) error {
		for _, existing := range t.subs {
			if existing.PlanID == sub.PlanID && existing.UserID == sub.UserID {
				return domain.NewDomainError(domain.ErrorCodeAlreadyExists,
					"user "+sub.UserID+" is already enrolled in this chit plan")
			}
		}
		t.subs[sub.ID] = *sub
		return nil
	})
}

// GetByID retrieves a subscription
func (r *SubscriptionRepository) GetByID(ctx context.Context, db ports.DBTX, id uuid.UUID) (*domain.Subscription, error) {
	var (
		sub domain.Subscription
		ok  bool
	)
	r.store.read(ctx, func(t *tables) { sub, ok = t.subs[id] })
	if !ok {
		return nil, domain.ErrSubscriptionNotFound
	}
	return &sub, nil
}

// GetByIDForUpdate retrieves a subscription; write transactions are already serialized
func (r *SubscriptionRepository) GetByIDForUpdate(ctx context.Context, tx ports.DBTX, id uuid.UUID) (*domain.Subscription, error) {
	return r.GetByID(ctx, tx, id)
}

// Update stores sub when its version matches and bumps the version
func (r *SubscriptionRepository) Update(ctx context.Context, tx ports.DBTX, sub *domain.Subscription) error {
	return r.store.write(ctx, func(t *tables) error {
		stored, ok := t.subs[sub.ID]
		if !ok {
			return domain.ErrSubscriptionNotFound
		}
		if stored.Version != sub.Version {
			return domain.ErrConcurrentModification
		}
		next := *sub
		next.Version++
		t.subs[sub.ID] = next
		sub.Version = next.Version
		return nil
	})
}

// ListByPlan lists a plan's subscriptions in enrollment order
func (r *SubscriptionRepository) ListByPlan(ctx context.Context, db ports.DBTX, planID uuid.UUID) ([]*domain.Subscription, error) {
	out := make([]*domain.Subscription, 0)
	r.store.read(ctx, func(t *tables) {
		for _, sub := range t.subs {
			if sub.PlanID == planID {
				c := sub
				out = append(out, &c)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out, nil
}

// CountOpenByPlan counts non-terminal subscriptions of a plan
func (r *SubscriptionRepository) CountOpenByPlan(ctx context.Context, db ports.DBTX, planID uuid.UUID) (int, error) {
	count := 0
	r.store.read(ctx, func(t *tables) {
		for _, sub := range t.subs {
			if sub.PlanID == planID && sub.IsOpen() {
				count++
			}
		}
	})
	return count, nil
}
