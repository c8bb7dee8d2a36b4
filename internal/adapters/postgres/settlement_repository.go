package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kevin07696/chit-service/internal/domain"
	"github.com/kevin07696/chit-service/internal/domain/ports"
)

// SettlementRepository implements ports.SettlementRepository using PostgreSQL
type SettlementRepository struct {
	db *DB
}

// NewSettlementRepository creates a new PostgreSQL settlement repository
func NewSettlementRepository(db *DB) *SettlementRepository {
	return &SettlementRepository{db: db}
}

var _ ports.SettlementRepository = (*SettlementRepository)(nil)

// Create inserts a settlement; subscription_id is unique
func (r *SettlementRepository) Create(ctx context.Context, tx ports.DBTX, s *domain.Settlement) error {
	amount, err := decimalToNumeric(s.Amount)
	if err != nil {
		return mapError(err, nil, "create settlement")
	}
	_, err = r.db.conn(tx).Exec(ctx, `
		INSERT INTO settlements (id, subscription_id, merchant_id, amount, transaction_id, note, settled_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.ID, s.SubscriptionID, s.MerchantID, amount, s.TransactionID, s.Note, s.SettledDate,
	)
	if isUniqueViolation(err) {
		return domain.NewSubscriptionClosedError(s.SubscriptionID.String(), domain.SubscriptionStatusSettled)
	}
	return mapError(err, domain.ErrSettlementNotFound, "create settlement")
}

// GetBySubscription retrieves the settlement of a subscription
func (r *SettlementRepository) GetBySubscription(ctx context.Context, db ports.DBTX, subscriptionID uuid.UUID) (*domain.Settlement, error) {
	var (
		s      domain.Settlement
		amount pgtype.Numeric
	)
	err := r.db.conn(db).QueryRow(ctx, `
		SELECT id, subscription_id, merchant_id, amount, transaction_id, note, settled_date
		FROM settlements WHERE subscription_id = $1`, subscriptionID,
	).Scan(&s.ID, &s.SubscriptionID, &s.MerchantID, &amount, &s.TransactionID, &s.Note, &s.SettledDate)
	if err != nil {
		return nil, mapError(err, domain.ErrSettlementNotFound, "get settlement")
	}
	if s.Amount, err = pgNumericToDecimal(amount); err != nil {
		return nil, mapError(err, nil, "get settlement")
	}
	return &s, nil
}

// WithdrawalRepository implements ports.WithdrawalRepository using PostgreSQL
type WithdrawalRepository struct {
	db *DB
}

// NewWithdrawalRepository creates a new PostgreSQL withdrawal repository
func NewWithdrawalRepository(db *DB) *WithdrawalRepository {
	return &WithdrawalRepository{db: db}
}

var _ ports.WithdrawalRepository = (*WithdrawalRepository)(nil)

// Create inserts a withdrawal request; one open request per subscription
func (r *WithdrawalRepository) Create(ctx context.Context, tx ports.DBTX, w *domain.WithdrawalRequest) error {
	_, err := r.db.conn(tx).Exec(ctx, `
		INSERT INTO withdrawal_requests (
			id, subscription_id, account_holder, account_number, ifsc, bank_name,
			message, created_at, resolved_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		w.ID, w.SubscriptionID, w.Bank.AccountHolder, w.Bank.AccountNumber, w.Bank.IFSC, w.Bank.BankName,
		w.Message, w.CreatedAt, timestamptzPtr(w.ResolvedAt),
	)
	if isUniqueViolation(err) {
		return domain.ErrSubscriptionWithdrawalPending
	}
	return mapError(err, domain.ErrSubscriptionNotFound, "create withdrawal request")
}

// GetOpenBySubscription returns the unresolved request or nil
func (r *WithdrawalRepository) GetOpenBySubscription(ctx context.Context, db ports.DBTX, subscriptionID uuid.UUID) (*domain.WithdrawalRequest, error) {
	var (
		w          domain.WithdrawalRequest
		resolvedAt pgtype.Timestamptz
	)
	err := r.db.conn(db).QueryRow(ctx, `
		SELECT id, subscription_id, account_holder, account_number, ifsc, bank_name,
			message, created_at, resolved_at
		FROM withdrawal_requests
		WHERE subscription_id = $1 AND resolved_at IS NULL`, subscriptionID,
	).Scan(&w.ID, &w.SubscriptionID, &w.Bank.AccountHolder, &w.Bank.AccountNumber, &w.Bank.IFSC,
		&w.Bank.BankName, &w.Message, &w.CreatedAt, &resolvedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err, nil, "get withdrawal request")
	}
	w.ResolvedAt = optionalTime(resolvedAt)
	return &w, nil
}

// Resolve closes a withdrawal request
func (r *WithdrawalRepository) Resolve(ctx context.Context, tx ports.DBTX, id uuid.UUID, resolvedAt time.Time) error {
	tag, err := r.db.conn(tx).Exec(ctx, `
		UPDATE withdrawal_requests SET resolved_at = $2
		WHERE id = $1 AND resolved_at IS NULL`, id, resolvedAt)
	if err != nil {
		return mapError(err, nil, "resolve withdrawal request")
	}
	if tag.RowsAffected() == 0 {
		return domain.NewDomainError(domain.ErrorCodeConcurrentModification,
			"withdrawal request "+id.String()+" is already resolved")
	}
	return nil
}
