package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kevin07696/chit-service/internal/domain"
	"github.com/kevin07696/chit-service/internal/domain/ports"
)

const subscriptionColumns = `id, plan_id, merchant_id, user_id, plan_name, total_amount,
	monthly_amount, duration_months, total_amount_paid, status, joined_at,
	created_at, updated_at, closed_at, version`

// SubscriptionRepository implements ports.SubscriptionRepository using PostgreSQL
type SubscriptionRepository struct {
	db *DB
}

// NewSubscriptionRepository creates a new PostgreSQL subscription repository
func NewSubscriptionRepository(db *DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

var _ ports.SubscriptionRepository = (*SubscriptionRepository)(nil)

// Create inserts a subscription; (plan_id, user_id) is unique
func (r *SubscriptionRepository) Create(ctx context.Context, tx ports.DBTX, sub *domain.Subscription) error {
	total, err := decimalToNumeric(sub.TotalAmount)
	if err != nil {
		return mapError(err, nil, "create subscription")
	}
	monthly, err := decimalToNumeric(sub.MonthlyAmount)
	if err != nil {
		return mapError(err, nil, "create subscription")
	}
	paid, err := decimalToNumeric(sub.TotalAmountPaid)
	if err != nil {
		return mapError(err, nil, "create subscription")
	}

	_, err = r.db.conn(tx).Exec(ctx, `
		INSERT INTO subscriptions (`+subscriptionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		sub.ID, sub.PlanID, sub.MerchantID, sub.UserID, sub.PlanName, total,
		monthly, sub.DurationMonths, paid, string(sub.Status), sub.JoinedAt,
		sub.CreatedAt, sub.UpdatedAt, timestamptzPtr(sub.ClosedAt), sub.Version,
	)
	if isUniqueViolation(err) {
		return domain.NewDomainError(domain.ErrorCodeAlreadyExists,
			"user "+sub.UserID+" is already enrolled in this chit plan")
	}
	return mapError(err, domain.ErrSubscriptionNotFound, "create subscription")
}

// GetByID retrieves a subscription by ID
func (r *SubscriptionRepository) GetByID(ctx context.Context, db ports.DBTX, id uuid.UUID) (*domain.Subscription, error) {
	row := r.db.conn(db).QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = $1`, id)
	sub, err := scanSubscription(row)
	if err != nil {
		return nil, mapError(err, domain.ErrSubscriptionNotFound, "get subscription")
	}
	return sub, nil
}

// GetByIDForUpdate retrieves a subscription and locks its row
func (r *SubscriptionRepository) GetByIDForUpdate(ctx context.Context, tx ports.DBTX, id uuid.UUID) (*domain.Subscription, error) {
	row := r.db.conn(tx).QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = $1 FOR UPDATE`, id)
	sub, err := scanSubscription(row)
	if err != nil {
		return nil, mapError(err, domain.ErrSubscriptionNotFound, "lock subscription")
	}
	return sub, nil
}

// Update writes the mutable ledger fields when the version still matches
func (r *SubscriptionRepository) Update(ctx context.Context, tx ports.DBTX, sub *domain.Subscription) error {
	paid, err := decimalToNumeric(sub.TotalAmountPaid)
	if err != nil {
		return mapError(err, nil, "update subscription")
	}

	var version int64
	err = r.db.conn(tx).QueryRow(ctx, `
		UPDATE subscriptions
		SET total_amount_paid = $2, status = $3, closed_at = $4, updated_at = $5, version = version + 1
		WHERE id = $1 AND version = $6
		RETURNING version`,
		sub.ID, paid, string(sub.Status), timestamptzPtr(sub.ClosedAt), sub.UpdatedAt, sub.Version,
	).Scan(&version)
	if err != nil {
		return mapError(err, domain.ErrConcurrentModification, "update subscription")
	}
	sub.Version = version
	return nil
}

// ListByPlan lists a plan's subscriptions in enrollment order
func (r *SubscriptionRepository) ListByPlan(ctx context.Context, db ports.DBTX, planID uuid.UUID) ([]*domain.Subscription, error) {
	rows, err := r.db.conn(db).Query(ctx, `
		SELECT `+subscriptionColumns+` FROM subscriptions
		WHERE plan_id = $1
		ORDER BY joined_at`, planID)
	if err != nil {
		return nil, mapError(err, nil, "list subscriptions")
	}
	defer rows.Close()

	out := make([]*domain.Subscription, 0)
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, mapError(err, nil, "scan subscription")
		}
		out = append(out, sub)
	}
	return out, mapError(rows.Err(), nil, "list subscriptions")
}

// CountOpenByPlan counts active and requested_withdrawal subscriptions
func (r *SubscriptionRepository) CountOpenByPlan(ctx context.Context, db ports.DBTX, planID uuid.UUID) (int, error) {
	var count int
	err := r.db.conn(db).QueryRow(ctx, `
		SELECT count(*) FROM subscriptions
		WHERE plan_id = $1 AND status IN ($2, $3)`,
		planID, string(domain.SubscriptionStatusActive), string(domain.SubscriptionStatusRequestedWithdrawal),
	).Scan(&count)
	if err != nil {
		return 0, mapError(err, nil, "count open subscriptions")
	}
	return count, nil
}

func scanSubscription(row pgx.Row) (*domain.Subscription, error) {
	var (
		sub                  domain.Subscription
		total, monthly, paid pgtype.Numeric
		status               string
		closedAt             pgtype.Timestamptz
	)
	if err := row.Scan(
		&sub.ID, &sub.PlanID, &sub.MerchantID, &sub.UserID, &sub.PlanName, &total,
		&monthly, &sub.DurationMonths, &paid, &status, &sub.JoinedAt,
		&sub.CreatedAt, &sub.UpdatedAt, &closedAt, &sub.Version,
	); err != nil {
		return nil, err
	}
	if err := toDecimals([]pgtype.Numeric{total, monthly, paid},
		&sub.TotalAmount, &sub.MonthlyAmount, &sub.TotalAmountPaid); err != nil {
		return nil, err
	}
	sub.Status = domain.SubscriptionStatus(status)
	sub.ClosedAt = optionalTime(closedAt)
	return &sub, nil
}
