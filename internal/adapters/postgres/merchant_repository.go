package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kevin07696/chit-service/internal/domain"
	"github.com/kevin07696/chit-service/internal/domain/ports"
)

const merchantColumns = `id, name, tier, kyc_verified, subscription_status,
	subscription_expiry_date, created_at, updated_at`

// MerchantRepository implements ports.MerchantRepository using PostgreSQL
type MerchantRepository struct {
	db *DB
}

// NewMerchantRepository creates a new PostgreSQL merchant repository
func NewMerchantRepository(db *DB) *MerchantRepository {
	return &MerchantRepository{db: db}
}

var _ ports.MerchantRepository = (*MerchantRepository)(nil)

// Create inserts a merchant account
func (r *MerchantRepository) Create(ctx context.Context, tx ports.DBTX, m *domain.MerchantAccount) error {
	_, err := r.db.conn(tx).Exec(ctx, `
		INSERT INTO merchants (`+merchantColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		m.ID, m.Name, string(m.Tier), m.KYCVerified, string(m.SubscriptionStatus),
		m.SubscriptionExpiryDate, m.CreatedAt, m.UpdatedAt,
	)
	return mapError(err, domain.ErrMerchantNotFound, "create merchant")
}

// GetByID retrieves a merchant by ID
func (r *MerchantRepository) GetByID(ctx context.Context, db ports.DBTX, id uuid.UUID) (*domain.MerchantAccount, error) {
	return r.get(ctx, db, `SELECT `+merchantColumns+` FROM merchants WHERE id = $1`, id)
}

// GetByIDForUpdate retrieves a merchant and locks its row
func (r *MerchantRepository) GetByIDForUpdate(ctx context.Context, tx ports.DBTX, id uuid.UUID) (*domain.MerchantAccount, error) {
	return r.get(ctx, tx, `SELECT `+merchantColumns+` FROM merchants WHERE id = $1 FOR UPDATE`, id)
}

func (r *MerchantRepository) get(ctx context.Context, q ports.DBTX, sql string, id uuid.UUID) (*domain.MerchantAccount, error) {
	var (
		m      domain.MerchantAccount
		tier   string
		status string
	)
	err := r.db.conn(q).QueryRow(ctx, sql, id).Scan(
		&m.ID, &m.Name, &tier, &m.KYCVerified, &status,
		&m.SubscriptionExpiryDate, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, mapError(err, domain.ErrMerchantNotFound, "get merchant")
	}
	m.Tier = domain.Tier(tier)
	m.SubscriptionStatus = domain.MerchantSubscriptionStatus(status)
	return &m, nil
}

// UpdateSubscription writes tier, expiry and status together
func (r *MerchantRepository) UpdateSubscription(ctx context.Context, tx ports.DBTX, id uuid.UUID, tier domain.Tier, expiry time.Time, status domain.MerchantSubscriptionStatus) error {
	tag, err := r.db.conn(tx).Exec(ctx, `
		UPDATE merchants
		SET tier = $2, subscription_expiry_date = $3, subscription_status = $4, updated_at = now()
		WHERE id = $1`,
		id, string(tier), expiry, string(status),
	)
	if err != nil {
		return mapError(err, domain.ErrMerchantNotFound, "update merchant subscription")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMerchantNotFound
	}
	return nil
}

// RenewalRepository implements ports.RenewalRepository using PostgreSQL
type RenewalRepository struct {
	db *DB
}

// NewRenewalRepository creates a new PostgreSQL renewal repository
func NewRenewalRepository(db *DB) *RenewalRepository {
	return &RenewalRepository{db: db}
}

var _ ports.RenewalRepository = (*RenewalRepository)(nil)

// Create inserts a renewal; the unique gateway payment id turns a replay into ALREADY_PROCESSED
func (r *RenewalRepository) Create(ctx context.Context, tx ports.DBTX, rr *domain.RenewalRecord) error {
	amount, err := decimalToNumeric(rr.Amount)
	if err != nil {
		return mapError(err, nil, "create renewal")
	}
	_, err = r.db.conn(tx).Exec(ctx, `
		INSERT INTO merchant_renewals (
			id, merchant_id, from_tier, to_tier, period, amount,
			gateway_order_id, gateway_payment_id, previous_expiry, new_expiry, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		rr.ID, rr.MerchantID, string(rr.FromTier), string(rr.ToTier), string(rr.Period), amount,
		nullText(rr.GatewayOrderID), rr.GatewayPaymentID, rr.PreviousExpiry, rr.NewExpiry, rr.CreatedAt,
	)
	if isUniqueViolation(err) {
		return domain.NewDomainError(domain.ErrorCodeAlreadyProcessed,
			"gateway payment "+rr.GatewayPaymentID+" was already applied to a renewal").
			WithDetail("gateway_payment_id", rr.GatewayPaymentID)
	}
	return mapError(err, domain.ErrMerchantNotFound, "create renewal")
}

// ListByMerchant lists renewals newest first
func (r *RenewalRepository) ListByMerchant(ctx context.Context, db ports.DBTX, merchantID uuid.UUID) ([]*domain.RenewalRecord, error) {
	rows, err := r.db.conn(db).Query(ctx, `
		SELECT id, merchant_id, from_tier, to_tier, period, amount,
			gateway_order_id, gateway_payment_id, previous_expiry, new_expiry, created_at
		FROM merchant_renewals
		WHERE merchant_id = $1
		ORDER BY created_at DESC`, merchantID)
	if err != nil {
		return nil, mapError(err, nil, "list renewals")
	}
	defer rows.Close()

	out := make([]*domain.RenewalRecord, 0)
	for rows.Next() {
		var (
			rr                    domain.RenewalRecord
			fromTier, toTier, prd string
			amount                pgtype.Numeric
			orderID               pgtype.Text
		)
		if err := rows.Scan(&rr.ID, &rr.MerchantID, &fromTier, &toTier, &prd, &amount,
			&orderID, &rr.GatewayPaymentID, &rr.PreviousExpiry, &rr.NewExpiry, &rr.CreatedAt); err != nil {
			return nil, mapError(err, nil, "scan renewal")
		}
		if rr.Amount, err = pgNumericToDecimal(amount); err != nil {
			return nil, mapError(err, nil, "scan renewal")
		}
		rr.FromTier = domain.Tier(fromTier)
		rr.ToTier = domain.Tier(toTier)
		rr.Period = domain.BillingPeriod(prd)
		rr.GatewayOrderID = orderID.String
		out = append(out, &rr)
	}
	return out, mapError(rows.Err(), nil, "list renewals")
}
