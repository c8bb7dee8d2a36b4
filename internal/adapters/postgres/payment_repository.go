package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kevin07696/chit-service/internal/domain"
	"github.com/kevin07696/chit-service/internal/domain/ports"
	"github.com/shopspring/decimal"
)

const paymentColumns = `id, subscription_id, merchant_id, amount, commission_amount, channel,
	status, proof_ref, gateway_order_id, gateway_payment_id, notes, rejection_reason,
	created_at, updated_at, resolved_at`

// PaymentRepository implements ports.PaymentRepository using PostgreSQL
type PaymentRepository struct {
	db *DB
}

// NewPaymentRepository creates a new PostgreSQL payment repository
func NewPaymentRepository(db *DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

var _ ports.PaymentRepository = (*PaymentRepository)(nil)

// Create inserts a payment record; gateway_payment_id is unique
func (r *PaymentRepository) Create(ctx context.Context, tx ports.DBTX, p *domain.PaymentRecord) error {
	amount, err := decimalToNumeric(p.Amount)
	if err != nil {
		return mapError(err, nil, "create payment")
	}
	commission, err := decimalToNumeric(p.CommissionAmount)
	if err != nil {
		return mapError(err, nil, "create payment")
	}

	_, err = r.db.conn(tx).Exec(ctx, `
		INSERT INTO payment_records (`+paymentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		p.ID, p.SubscriptionID, p.MerchantID, amount, commission, string(p.Channel),
		string(p.Status), textPtr(p.ProofRef), textPtr(p.GatewayOrderID), textPtr(p.GatewayPaymentID),
		p.Notes, nullText(p.RejectionReason), p.CreatedAt, p.UpdatedAt, timestamptzPtr(p.ResolvedAt),
	)
	if isUniqueViolation(err) && p.GatewayPaymentID != nil {
		return r.alreadyProcessed(ctx, *p.GatewayPaymentID)
	}
	return mapError(err, domain.ErrPaymentNotFound, "create payment")
}

// alreadyProcessed reports the record that already holds gatewayPaymentID.
// The lookup uses the pool because the failed insert aborted the transaction.
func (r *PaymentRepository) alreadyProcessed(ctx context.Context, gatewayPaymentID string) error {
	var (
		id     uuid.UUID
		status string
	)
	err := r.db.pool.QueryRow(ctx,
		`SELECT id, status FROM payment_records WHERE gateway_payment_id = $1`, gatewayPaymentID,
	).Scan(&id, &status)
	if err != nil {
		return domain.NewDomainError(domain.ErrorCodeAlreadyProcessed,
			"gateway payment "+gatewayPaymentID+" was already recorded").
			WithDetail("gateway_payment_id", gatewayPaymentID)
	}
	return domain.NewAlreadyProcessedError(id.String(), domain.PaymentStatus(status))
}

// GetByID retrieves a payment record by ID
func (r *PaymentRepository) GetByID(ctx context.Context, db ports.DBTX, id uuid.UUID) (*domain.PaymentRecord, error) {
	row := r.db.conn(db).QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payment_records WHERE id = $1`, id)
	p, err := scanPayment(row)
	if err != nil {
		return nil, mapError(err, domain.ErrPaymentNotFound, "get payment")
	}
	return p, nil
}

// ResolvePending moves a pending record to status with a conditional update
func (r *PaymentRepository) ResolvePending(ctx context.Context, tx ports.DBTX, id uuid.UUID, status domain.PaymentStatus, reason string, resolvedAt time.Time) (bool, error) {
	tag, err := r.db.conn(tx).Exec(ctx, `
		UPDATE payment_records
		SET status = $2, rejection_reason = $3, resolved_at = $4, updated_at = $4
		WHERE id = $1 AND status = $5`,
		id, string(status), nullText(reason), resolvedAt, string(domain.PaymentStatusPending),
	)
	if err != nil {
		return false, mapError(err, domain.ErrPaymentNotFound, "resolve payment")
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	// Distinguish a missing record from one resolved elsewhere
	if _, err := r.GetByID(ctx, tx, id); err != nil {
		return false, err
	}
	return false, nil
}

// ListBySubscription lists a subscription's payments oldest first
func (r *PaymentRepository) ListBySubscription(ctx context.Context, db ports.DBTX, subscriptionID uuid.UUID) ([]*domain.PaymentRecord, error) {
	rows, err := r.db.conn(db).Query(ctx, `
		SELECT `+paymentColumns+` FROM payment_records
		WHERE subscription_id = $1
		ORDER BY created_at`, subscriptionID)
	if err != nil {
		return nil, mapError(err, nil, "list payments")
	}
	defer rows.Close()

	out := make([]*domain.PaymentRecord, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, mapError(err, nil, "scan payment")
		}
		out = append(out, p)
	}
	return out, mapError(rows.Err(), nil, "list payments")
}

// SumCompleted totals the completed payments of a subscription
func (r *PaymentRepository) SumCompleted(ctx context.Context, db ports.DBTX, subscriptionID uuid.UUID) (decimal.Decimal, error) {
	var sum pgtype.Numeric
	err := r.db.conn(db).QueryRow(ctx, `
		SELECT COALESCE(sum(amount), 0) FROM payment_records
		WHERE subscription_id = $1 AND status = $2`,
		subscriptionID, string(domain.PaymentStatusCompleted),
	).Scan(&sum)
	if err != nil {
		return decimal.Zero, mapError(err, nil, "sum payments")
	}
	total, err := pgNumericToDecimal(sum)
	if err != nil {
		return decimal.Zero, mapError(err, nil, "sum payments")
	}
	return total, nil
}

func scanPayment(row pgx.Row) (*domain.PaymentRecord, error) {
	var (
		p                            domain.PaymentRecord
		amount, commission           pgtype.Numeric
		channel, status              string
		proofRef, orderID, paymentID pgtype.Text
		rejection                    pgtype.Text
		resolvedAt                   pgtype.Timestamptz
	)
	if err := row.Scan(
		&p.ID, &p.SubscriptionID, &p.MerchantID, &amount, &commission, &channel,
		&status, &proofRef, &orderID, &paymentID, &p.Notes, &rejection,
		&p.CreatedAt, &p.UpdatedAt, &resolvedAt,
	); err != nil {
		return nil, err
	}
	if err := toDecimals([]pgtype.Numeric{amount, commission}, &p.Amount, &p.CommissionAmount); err != nil {
		return nil, err
	}
	p.Channel = domain.PaymentChannel(channel)
	p.Status = domain.PaymentStatus(status)
	p.ProofRef = optionalText(proofRef)
	p.GatewayOrderID = optionalText(orderID)
	p.GatewayPaymentID = optionalText(paymentID)
	p.RejectionReason = rejection.String
	p.ResolvedAt = optionalTime(resolvedAt)
	return &p, nil
}
