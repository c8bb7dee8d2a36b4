package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/chit-service/internal/domain"
	"github.com/kevin07696/chit-service/internal/domain/ports"
)

// SettlementRepository implements ports.SettlementRepository in memory
type SettlementRepository struct {
	store *Store
}

// NewSettlementRepository creates a settlement repository backed by store
func NewSettlementRepository(store *Store) *SettlementRepository {
	return &SettlementRepository{store: store}
}

var _ ports.SettlementRepository = (*SettlementRepository)(nil)

// Create inserts the settlement of a subscription
func (r *SettlementRepository) Create(ctx context.Context, tx ports.DBTX, s *domain.Settlement) error {
	return r.store.write(ctx, func(t *tables) error {
		if _, exists := t.settlements[s.SubscriptionID]; exists {
			return domain.ErrAlreadyExists
		}
		t.settlements[s.SubscriptionID] = *s
		return nil
	})
}

// GetBySubscription retrieves the settlement of a subscription
func (r *SettlementRepository) GetBySubscription(ctx context.Context, db ports.DBTX, subscriptionID uuid.UUID) (*domain.Settlement, error) {
	var (
		s  domain.Settlement
		ok bool
	)
	r.store.read(ctx, func(t *tables) { s, ok = t.settlements[subscriptionID] })
	if !ok {
		return nil, domain.ErrSettlementNotFound
	}
	return &s, nil
}

// WithdrawalRepository implements ports.WithdrawalRepository in memory
type WithdrawalRepository struct {
	store *Store
}

// NewWithdrawalRepository creates a withdrawal repository backed by store
func NewWithdrawalRepository(store *Store) *WithdrawalRepository {
	return &WithdrawalRepository{store: store}
}

var _ ports.WithdrawalRepository = (*WithdrawalRepository)(nil)

// Create inserts a withdrawal request
func (r *WithdrawalRepository) Create(ctx context.Context, tx ports.DBTX, req *domain.WithdrawalRequest) error {
	return r.store.write(ctx, func(t *tables) error {
		t.withdrawals[req.ID] = *req
		return nil
	})
}

// GetOpenBySubscription returns the unresolved request of a subscription, or nil
func (r *WithdrawalRepository) GetOpenBySubscription(ctx context.Context, db ports.DBTX, subscriptionID uuid.UUID) (*domain.WithdrawalRequest, error) {
	var out *domain.WithdrawalRequest
	r.store.read(ctx, func(t *tables) {
		for _, w := range t.withdrawals {
			if w.SubscriptionID == subscriptionID && w.IsOpen() {
				c := w
				out = &c
				return
			}
		}
	})
	return out, nil
}

// Resolve marks a withdrawal request resolved
func (r *WithdrawalRepository) Resolve(ctx context.Context, tx ports.DBTX, id uuid.UUID, resolvedAt time.Time) error {
	return r.store.write(ctx, func(t *tables) error {
		w, ok := t.withdrawals[id]
		if !ok {
			return domain.NewDomainError(domain.ErrorCodeInternalError, "withdrawal request not found")
		}
		w.ResolvedAt = &resolvedAt
		t.withdrawals[id] = w
		return nil
	})
}
