package fixtures

import (
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/chit-service/internal/domain"
	"github.com/shopspring/decimal"
)

// ChitPlanBuilder provides fluent API for building test chit plans.
type ChitPlanBuilder struct {
	plan *domain.ChitPlan
}

// NewChitPlan creates a 12 month, 12000 INR gold plan.
func NewChitPlan() *ChitPlanBuilder {
	now := time.Now().UTC()
	plan := &domain.ChitPlan{
		ID:         uuid.New(),
		MerchantID: uuid.New(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	plan.Apply(NewPlanDraft())
	return &ChitPlanBuilder{plan: plan}
}

func (b *ChitPlanBuilder) WithID(id uuid.UUID) *ChitPlanBuilder {
	b.plan.ID = id
	return b
}

func (b *ChitPlanBuilder) WithMerchantID(merchantID uuid.UUID) *ChitPlanBuilder {
	b.plan.MerchantID = merchantID
	return b
}

// WithTerms sets total and duration and recomputes the monthly installment.
func (b *ChitPlanBuilder) WithTerms(total decimal.Decimal, months int) *ChitPlanBuilder {
	b.plan.TotalAmount = total
	b.plan.DurationMonths = months
	b.plan.MonthlyAmount = domain.MonthlyInstallment(total, months)
	return b
}

func (b *ChitPlanBuilder) WithName(name string) *ChitPlanBuilder {
	b.plan.PlanName = name
	return b
}

func (b *ChitPlanBuilder) Build() *domain.ChitPlan {
	return b.plan
}

// NewPlanDraft returns a valid draft for a 12 month, 12000 INR gold plan.
func NewPlanDraft() domain.PlanDraft {
	return domain.PlanDraft{
		PlanName:       "Gold Saver 12",
		Description:    "Twelve monthly installments redeemable in gold",
		TotalAmount:    decimal.NewFromInt(12000),
		DurationMonths: 12,
		ReturnType:     domain.ReturnTypeGold,
	}
}
