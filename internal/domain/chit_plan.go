package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	MinPlanDurationMonths = 3
	MaxPlanDurationMonths = 60
)

// ReturnType is what the subscriber receives when the plan matures
type ReturnType string

const (
	ReturnTypeCash ReturnType = "Cash"
	ReturnTypeGold ReturnType = "Gold"
)

// Valid reports whether r is a known return type
func (r ReturnType) Valid() bool {
	switch r {
	case ReturnTypeCash, ReturnTypeGold:
		return true
	}
	return false
}

// ChitPlan is a fixed-duration, fixed-total savings scheme offered by a merchant
type ChitPlan struct {
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	MonthlyAmount  decimal.Decimal `json:"monthly_amount"`
	PlanName       string          `json:"plan_name"`
	Description    string          `json:"description"`
	ReturnType     ReturnType      `json:"return_type"`
	ID             uuid.UUID       `json:"id"`
	MerchantID     uuid.UUID       `json:"merchant_id"`
	DurationMonths int             `json:"duration_months"`
}

// PlanDraft carries the merchant-editable fields of a chit plan
type PlanDraft struct {
	TotalAmount    decimal.Decimal `json:"total_amount"`
	PlanName       string          `json:"plan_name"`
	Description    string          `json:"description"`
	ReturnType     ReturnType      `json:"return_type"`
	DurationMonths int             `json:"duration_months"`
}

// MonthlyInstallment returns totalAmount / durationMonths rounded to 2 decimals
func MonthlyInstallment(totalAmount decimal.Decimal, durationMonths int) decimal.Decimal {
	if durationMonths <= 0 {
		return decimal.Zero
	}
	return totalAmount.Div(decimal.NewFromInt(int64(durationMonths))).Round(2)
}

// Validate checks the draft and returns the first malformed field
func (d PlanDraft) Validate() error {
	if strings.TrimSpace(d.PlanName) == "" {
		return NewValidationError("plan_name", "must not be empty")
	}
	if !d.TotalAmount.IsPositive() {
		return NewValidationError("total_amount", "must be greater than zero")
	}
	if !d.TotalAmount.Equal(d.TotalAmount.Round(2)) {
		return NewValidationError("total_amount", "must have at most 2 decimal places")
	}
	if d.DurationMonths < MinPlanDurationMonths || d.DurationMonths > MaxPlanDurationMonths {
		return NewValidationError("duration_months", "must be between 3 and 60")
	}
	if !d.ReturnType.Valid() {
		return NewValidationError("return_type", "must be Cash or Gold")
	}
	return nil
}

// Apply copies the draft onto the plan and recomputes the monthly amount
func (p *ChitPlan) Apply(d PlanDraft) {
	p.PlanName = strings.TrimSpace(d.PlanName)
	p.Description = d.Description
	p.TotalAmount = d.TotalAmount
	p.DurationMonths = d.DurationMonths
	p.ReturnType = d.ReturnType
	p.MonthlyAmount = MonthlyInstallment(d.TotalAmount, d.DurationMonths)
}
