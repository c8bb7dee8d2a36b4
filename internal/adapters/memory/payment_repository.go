package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/chit-service/internal/domain"
	"github.com/kevin07696/chit-service/internal/domain/ports"
	"github.com/shopspring/decimal"
)

// PaymentRepository implements ports.PaymentRepository in memory
type PaymentRepository struct {
	store *Store
}

// NewPaymentRepository creates a payment repository backed by store
func NewPaymentRepository(store *Store) *PaymentRepository {
	return &PaymentRepository{store: store}
}

var _ ports.PaymentRepository = (*PaymentRepository)(nil)

// Create inserts a payment record; gateway payment ids are unique
func (r *PaymentRepository) Create(ctx context.Context, tx ports.DBTX, p *domain.PaymentRecord) error {
	return r.store.write(ctx, func(t *tables) error {
		if p.GatewayPaymentID != nil {
			for _, existing := range t.payments {
				if existing.GatewayPaymentID != nil && *existing.GatewayPaymentID == *p.GatewayPaymentID {
					return domain.NewAlreadyProcessedError(existing.ID.String(), existing.Status)
				}
			}
		}
		t.payments[p.ID] = *p
		return nil
	})
}

// GetByID retrieves a payment record
func (r *PaymentRepository) GetByID(ctx context.Context, db ports.DBTX, id uuid.UUID) (*domain.PaymentRecord, error) {
	var (
		p  domain.PaymentRecord
		ok bool
	)
	r.store.read(ctx, func(t *tables) { p, ok = t.payments[id] })
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}
	return &p, nil
}

// ResolvePending applies the pending -> status compare-and-set
func (r *PaymentRepository) ResolvePending(ctx context.Context, tx ports.DBTX, id uuid.UUID, status domain.PaymentStatus, reason string, resolvedAt time.Time) (bool, error) {
	resolved := false
	err := r.store.write(ctx, func(t *tables) error {
		p, ok := t.payments[id]
		if !ok {
			return domain.ErrPaymentNotFound
		}
		if p.Status != domain.PaymentStatusPending {
			return nil
		}
		p.Status = status
		p.RejectionReason = reason
		p.ResolvedAt = &resolvedAt
		p.UpdatedAt = resolvedAt
		t.payments[id] = p
		resolved = true
		return nil
	})
	return resolved, err
}

// ListBySubscription lists a subscription's payments oldest first
func (r *PaymentRepository) ListBySubscription(ctx context.Context, db ports.DBTX, subscriptionID uuid.UUID) ([]*domain.PaymentRecord, error) {
	out := make([]*domain.PaymentRecord, 0)
	r.store.read(ctx, func(t *tables) {
		for _, p := range t.payments {
			if p.SubscriptionID == subscriptionID {
				c := p
				out = append(out, &c)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// SumCompleted totals the completed payments of a subscription
func (r *PaymentRepository) SumCompleted(ctx context.Context, db ports.DBTX, subscriptionID uuid.UUID) (decimal.Decimal, error) {
	records, err := r.ListBySubscription(ctx, db, subscriptionID)
	if err != nil {
		return decimal.Zero, err
	}
	return domain.SumCompleted(records), nil
}
