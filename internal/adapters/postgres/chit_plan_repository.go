package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kevin07696/chit-service/internal/domain"
	"github.com/kevin07696/chit-service/internal/domain/ports"
)

const planColumns = `id, merchant_id, plan_name, description, total_amount, monthly_amount,
	duration_months, return_type, created_at, updated_at`

// ChitPlanRepository implements ports.ChitPlanRepository using PostgreSQL.
// Deleted plans keep their row with deleted_at set so enrolled
// subscriptions still reference them.
type ChitPlanRepository struct {
	db *DB
}

// NewChitPlanRepository creates a new PostgreSQL chit plan repository
func NewChitPlanRepository(db *DB) *ChitPlanRepository {
	return &ChitPlanRepository{db: db}
}

var _ ports.ChitPlanRepository = (*ChitPlanRepository)(nil)

// Create inserts a chit plan
func (r *ChitPlanRepository) Create(ctx context.Context, tx ports.DBTX, plan *domain.ChitPlan) error {
	total, err := decimalToNumeric(plan.TotalAmount)
	if err != nil {
		return mapError(err, nil, "create chit plan")
	}
	monthly, err := decimalToNumeric(plan.MonthlyAmount)
	if err != nil {
		return mapError(err, nil, "create chit plan")
	}

	_, err = r.db.conn(tx).Exec(ctx, `
		INSERT INTO chit_plans (`+planColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		plan.ID, plan.MerchantID, plan.PlanName, plan.Description, total, monthly,
		plan.DurationMonths, string(plan.ReturnType), plan.CreatedAt, plan.UpdatedAt,
	)
	return mapError(err, domain.ErrPlanNotFound, "create chit plan")
}

// Update replaces the editable fields of a live plan
func (r *ChitPlanRepository) Update(ctx context.Context, tx ports.DBTX, plan *domain.ChitPlan) error {
	total, err := decimalToNumeric(plan.TotalAmount)
	if err != nil {
		return mapError(err, nil, "update chit plan")
	}
	monthly, err := decimalToNumeric(plan.MonthlyAmount)
	if err != nil {
		return mapError(err, nil, "update chit plan")
	}

	tag, err := r.db.conn(tx).Exec(ctx, `
		UPDATE chit_plans
		SET plan_name = $2, description = $3, total_amount = $4, monthly_amount = $5,
			duration_months = $6, return_type = $7, updated_at = $8
		WHERE id = $1 AND deleted_at IS NULL`,
		plan.ID, plan.PlanName, plan.Description, total, monthly,
		plan.DurationMonths, string(plan.ReturnType), plan.UpdatedAt,
	)
	if err != nil {
		return mapError(err, domain.ErrPlanNotFound, "update chit plan")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPlanNotFound
	}
	return nil
}

// Delete soft-deletes a plan
func (r *ChitPlanRepository) Delete(ctx context.Context, tx ports.DBTX, id uuid.UUID) error {
	tag, err := r.db.conn(tx).Exec(ctx, `
		UPDATE chit_plans SET deleted_at = now()
		WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return mapError(err, domain.ErrPlanNotFound, "delete chit plan")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPlanNotFound
	}
	return nil
}

// GetByID retrieves a live plan
func (r *ChitPlanRepository) GetByID(ctx context.Context, db ports.DBTX, id uuid.UUID) (*domain.ChitPlan, error) {
	row := r.db.conn(db).QueryRow(ctx, `
		SELECT `+planColumns+` FROM chit_plans
		WHERE id = $1 AND deleted_at IS NULL`, id)
	plan, err := scanPlan(row)
	if err != nil {
		return nil, mapError(err, domain.ErrPlanNotFound, "get chit plan")
	}
	return plan, nil
}

// ListByMerchant lists a merchant's live plans oldest first
func (r *ChitPlanRepository) ListByMerchant(ctx context.Context, db ports.DBTX, merchantID uuid.UUID) ([]*domain.ChitPlan, error) {
	rows, err := r.db.conn(db).Query(ctx, `
		SELECT `+planColumns+` FROM chit_plans
		WHERE merchant_id = $1 AND deleted_at IS NULL
		ORDER BY created_at`, merchantID)
	if err != nil {
		return nil, mapError(err, nil, "list chit plans")
	}
	defer rows.Close()

	out := make([]*domain.ChitPlan, 0)
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, mapError(err, nil, "scan chit plan")
		}
		out = append(out, plan)
	}
	return out, mapError(rows.Err(), nil, "list chit plans")
}

// CountByMerchant counts a merchant's live plans
func (r *ChitPlanRepository) CountByMerchant(ctx context.Context, db ports.DBTX, merchantID uuid.UUID) (int, error) {
	var count int
	err := r.db.conn(db).QueryRow(ctx, `
		SELECT count(*) FROM chit_plans
		WHERE merchant_id = $1 AND deleted_at IS NULL`, merchantID).Scan(&count)
	if err != nil {
		return 0, mapError(err, nil, "count chit plans")
	}
	return count, nil
}

func scanPlan(row pgx.Row) (*domain.ChitPlan, error) {
	var (
		plan           domain.ChitPlan
		total, monthly pgtype.Numeric
		returnType     string
	)
	if err := row.Scan(
		&plan.ID, &plan.MerchantID, &plan.PlanName, &plan.Description, &total, &monthly,
		&plan.DurationMonths, &returnType, &plan.CreatedAt, &plan.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := toDecimals([]pgtype.Numeric{total, monthly}, &plan.TotalAmount, &plan.MonthlyAmount); err != nil {
		return nil, err
	}
	plan.ReturnType = domain.ReturnType(returnType)
	return &plan, nil
}
