package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/chit-service/internal/domain"
	"github.com/kevin07696/chit-service/internal/domain/ports"
)

// MerchantRepository implements ports.MerchantRepository in memory
type MerchantRepository struct {
	store *Store
}

// NewMerchantRepository creates a merchant repository backed by store
func NewMerchantRepository(store *Store) *MerchantRepository {
	return &MerchantRepository{store: store}
}

var _ ports.MerchantRepository = (*MerchantRepository)(nil)

// Create inserts a merchant account
func (r *MerchantRepository) Create(ctx context.Context, tx ports.DBTX, m *domain.MerchantAccount) error {
	return r.store.write(ctx, func(t *tables) error {
		if _, exists := t.merchants[m.ID]; exists {
			return domain.ErrAlreadyExists
		}
		t.merchants[m.ID] = *m
		return nil
	})
}

// GetByID retrieves a merchant by ID
func (r *MerchantRepository) GetByID(ctx context.Context, db ports.DBTX, id uuid.UUID) (*domain.MerchantAccount, error) {
	var (
		m  domain.MerchantAccount
		ok bool
	)
	r.store.read(ctx, func(t *tables) { m, ok = t.merchants[id] })
	if !ok {
		return nil, domain.ErrMerchantNotFound
	}
	return &m, nil
}

// GetByIDForUpdate retrieves a merchant; write transactions are already serialized
func (r *MerchantRepository) GetByIDForUpdate(ctx context.Context, tx ports.DBTX, id uuid.UUID) (*domain.MerchantAccount, error) {
	return r.GetByID(ctx, tx, id)
}

// UpdateSubscription writes tier, expiry and status together
func (r *MerchantRepository) UpdateSubscription(ctx context.Context, tx ports.DBTX, id uuid.UUID, tier domain.Tier, expiry time.Time, status domain.MerchantSubscriptionStatus) error {
	return r.store.write(ctx, func(t *tables) error {
		m, ok := t.merchants[id]
		if !ok {
			return domain.ErrMerchantNotFound
		}
		m.Tier = tier
		m.SubscriptionExpiryDate = expiry
		m.SubscriptionStatus = status
		m.UpdatedAt = time.Now().UTC()
		t.merchants[id] = m
		return nil
	})
}

// RenewalRepository implements ports.RenewalRepository in memory
type RenewalRepository struct {
	store *Store
}

// NewRenewalRepository creates a renewal repository backed by store
func NewRenewalRepository(store *Store) *RenewalRepository {
	return &RenewalRepository{store: store}
}

var _ ports.RenewalRepository = (*RenewalRepository)(nil)

// Create inserts a renewal record unless its gateway payment was already used
func (r *RenewalRepository) Create(ctx context.Context, tx ports.DBTX, renewal *domain.RenewalRecord) error {
	return r.store.write(ctx, func(t *tables) error {
		for _, existing := range t.renewals {
			if existing.GatewayPaymentID == renewal.GatewayPaymentID {
				return domain.NewDomainError(domain.ErrorCodeAlreadyProcessed,
					"gateway payment "+renewal.GatewayPaymentID+" already renewed a subscription")
			}
		}
		t.renewals[renewal.ID] = *renewal
		return nil
	})
}

// ListByMerchant returns a merchant's renewals newest first
func (r *RenewalRepository) ListByMerchant(ctx context.Context, db ports.DBTX, merchantID uuid.UUID) ([]*domain.RenewalRecord, error) {
	out := make([]*domain.RenewalRecord, 0)
	r.store.read(ctx, func(t *tables) {
		for _, rr := range t.renewals {
			if rr.MerchantID == merchantID {
				c := rr
				out = append(out, &c)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
