package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SubscriptionStatus represents the lifecycle state of a subscriber's enrollment
type SubscriptionStatus string

const (
	SubscriptionStatusActive              SubscriptionStatus = "active"
	SubscriptionStatusRequestedWithdrawal SubscriptionStatus = "requested_withdrawal"
	SubscriptionStatusCompleted           SubscriptionStatus = "completed"
	SubscriptionStatusSettled             SubscriptionStatus = "settled"
)

// Valid reports whether s is a known subscription status
func (s SubscriptionStatus) Valid() bool {
	switch s {
	case SubscriptionStatusActive,
		SubscriptionStatusRequestedWithdrawal,
		SubscriptionStatusCompleted,
		SubscriptionStatusSettled:
		return true
	}
	return false
}

// IsTerminal returns true for states that accept no further transitions
func (s SubscriptionStatus) IsTerminal() bool {
	switch s {
	case SubscriptionStatusCompleted, SubscriptionStatusSettled:
		return true
	case SubscriptionStatusActive, SubscriptionStatusRequestedWithdrawal:
		return false
	}
	return false
}

// CanTransitionTo reports whether the state machine allows s -> next
func (s SubscriptionStatus) CanTransitionTo(next SubscriptionStatus) bool {
	switch s {
	case SubscriptionStatusActive:
		switch next {
		case SubscriptionStatusCompleted, SubscriptionStatusRequestedWithdrawal, SubscriptionStatusSettled:
			return true
		}
	case SubscriptionStatusRequestedWithdrawal:
		return next == SubscriptionStatusSettled
	case SubscriptionStatusCompleted, SubscriptionStatusSettled:
		return false
	}
	return false
}

// Subscription links one user to one chit plan. The plan terms are copied at
// enrollment so later plan edits never change a running subscription.
type Subscription struct {
	JoinedAt        time.Time          `json:"joined_at"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
	ClosedAt        *time.Time         `json:"closed_at,omitempty"`
	TotalAmount     decimal.Decimal    `json:"total_amount"`
	MonthlyAmount   decimal.Decimal    `json:"monthly_amount"`
	TotalAmountPaid decimal.Decimal    `json:"total_amount_paid"`
	PlanName        string             `json:"plan_name"`
	UserID          string             `json:"user_id"`
	Status          SubscriptionStatus `json:"status"`
	ID              uuid.UUID          `json:"id"`
	PlanID          uuid.UUID          `json:"plan_id"`
	MerchantID      uuid.UUID          `json:"merchant_id"`
	DurationMonths  int                `json:"duration_months"`
	Version         int64              `json:"version"`
}

// NewSubscription enrolls userID into plan as of joinedAt
func NewSubscription(plan *ChitPlan, userID string, joinedAt time.Time) *Subscription {
	return &Subscription{
		ID:              uuid.New(),
		PlanID:          plan.ID,
		MerchantID:      plan.MerchantID,
		UserID:          userID,
		PlanName:        plan.PlanName,
		TotalAmount:     plan.TotalAmount,
		MonthlyAmount:   plan.MonthlyAmount,
		DurationMonths:  plan.DurationMonths,
		TotalAmountPaid: decimal.Zero,
		Status:          SubscriptionStatusActive,
		JoinedAt:        joinedAt,
		CreatedAt:       joinedAt,
		UpdatedAt:       joinedAt,
	}
}

// IsOpen returns true while the subscription can still change state
func (s *Subscription) IsOpen() bool {
	return !s.Status.IsTerminal()
}

// CheckAcceptsNewPayment verifies a new installment may be recorded
func (s *Subscription) CheckAcceptsNewPayment() error {
	switch s.Status {
	case SubscriptionStatusActive:
		return nil
	case SubscriptionStatusRequestedWithdrawal:
		return NewDomainError(ErrorCodeSubscriptionWithdrawalPending,
			fmt.Sprintf("subscription %s has a pending withdrawal request", s.ID)).
			WithRemediation("settle the withdrawal request instead of recording new installments")
	case SubscriptionStatusCompleted, SubscriptionStatusSettled:
		return NewSubscriptionClosedError(s.ID.String(), s.Status)
	}
	return NewSubscriptionClosedError(s.ID.String(), s.Status)
}

// Credit adds a completed payment to the ledger and applies the
// active -> completed rule. Returns true when this credit completed the plan.
func (s *Subscription) Credit(amount decimal.Decimal, now time.Time) (bool, error) {
	switch s.Status {
	case SubscriptionStatusActive, SubscriptionStatusRequestedWithdrawal:
	case SubscriptionStatusCompleted, SubscriptionStatusSettled:
		return false, NewSubscriptionClosedError(s.ID.String(), s.Status)
	default:
		return false, NewSubscriptionClosedError(s.ID.String(), s.Status)
	}

	s.TotalAmountPaid = s.TotalAmountPaid.Add(amount)
	s.UpdatedAt = now

	if s.Status == SubscriptionStatusActive && s.TotalAmountPaid.GreaterThanOrEqual(s.TotalAmount) {
		if err := s.transition(SubscriptionStatusCompleted, now); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// RequestWithdrawal moves an active subscription into requested_withdrawal
func (s *Subscription) RequestWithdrawal(now time.Time) error {
	switch s.Status {
	case SubscriptionStatusActive:
		return s.transition(SubscriptionStatusRequestedWithdrawal, now)
	case SubscriptionStatusRequestedWithdrawal:
		return ErrSubscriptionWithdrawalPending
	case SubscriptionStatusCompleted, SubscriptionStatusSettled:
		return NewSubscriptionClosedError(s.ID.String(), s.Status)
	}
	return NewSubscriptionClosedError(s.ID.String(), s.Status)
}

// MarkSettled closes the subscription through a settlement
func (s *Subscription) MarkSettled(now time.Time) error {
	switch s.Status {
	case SubscriptionStatusActive, SubscriptionStatusRequestedWithdrawal:
		return s.transition(SubscriptionStatusSettled, now)
	case SubscriptionStatusCompleted, SubscriptionStatusSettled:
		return NewSubscriptionClosedError(s.ID.String(), s.Status)
	}
	return NewSubscriptionClosedError(s.ID.String(), s.Status)
}

// transition moves the subscription to next, refusing moves the state
// machine does not allow
func (s *Subscription) transition(next SubscriptionStatus, now time.Time) error {
	if !s.Status.CanTransitionTo(next) {
		if s.Status.IsTerminal() {
			return NewSubscriptionClosedError(s.ID.String(), s.Status)
		}
		return NewDomainError(ErrorCodeInternalError,
			fmt.Sprintf("subscription %s cannot move from %s to %s", s.ID, s.Status, next)).
			WithDetail("from", string(s.Status)).
			WithDetail("to", string(next))
	}
	s.Status = next
	s.UpdatedAt = now
	if next.IsTerminal() {
		closed := now
		s.ClosedAt = &closed
	}
	return nil
}

// LedgerSummary holds the fields derived from a subscription at a point in time
type LedgerSummary struct {
	ExpectedPaidToDate decimal.Decimal `json:"expected_paid_to_date"`
	PendingAmount      decimal.Decimal `json:"pending_amount"`
	MonthsElapsed      int             `json:"months_elapsed"`
	InstallmentsPaid   int             `json:"installments_paid"`
	MonthsDue          int             `json:"months_due"`
}

// Summarize derives installmentsPaid, pendingAmount and monthsDue as of now.
// A settled subscription owes nothing further.
func (s *Subscription) Summarize(now time.Time) LedgerSummary {
	elapsed := MonthsElapsed(s.JoinedAt, now)
	expected := ExpectedPaidToDate(elapsed, s.MonthlyAmount, s.TotalAmount)

	summary := LedgerSummary{
		MonthsElapsed:      elapsed,
		ExpectedPaidToDate: expected,
		InstallmentsPaid:   InstallmentsPaid(s.TotalAmountPaid, s.MonthlyAmount),
		PendingAmount:      decimal.Zero,
	}
	if s.Status == SubscriptionStatusSettled {
		return summary
	}

	summary.PendingAmount = PendingAmount(expected, s.TotalAmountPaid)
	summary.MonthsDue = MonthsDue(summary.PendingAmount, s.MonthlyAmount)
	return summary
}

// MonthsElapsed counts whole calendar months between joinedAt and now. A
// month counts once the same day-of-month and time has been reached.
func MonthsElapsed(joinedAt, now time.Time) int {
	j := joinedAt.UTC()
	n := now.UTC()
	if !n.After(j) {
		return 0
	}
	months := (n.Year()-j.Year())*12 + int(n.Month()) - int(j.Month())
	if j.AddDate(0, months, 0).After(n) {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

// ExpectedPaidToDate is monthsElapsed × monthlyAmount capped at totalAmount
func ExpectedPaidToDate(monthsElapsed int, monthlyAmount, totalAmount decimal.Decimal) decimal.Decimal {
	expected := monthlyAmount.Mul(decimal.NewFromInt(int64(monthsElapsed)))
	if expected.GreaterThan(totalAmount) {
		return totalAmount
	}
	return expected
}

// PendingAmount is max(0, expected − paid)
func PendingAmount(expected, paid decimal.Decimal) decimal.Decimal {
	pending := expected.Sub(paid)
	if pending.IsNegative() {
		return decimal.Zero
	}
	return pending
}

// InstallmentsPaid is floor(paid / monthlyAmount)
func InstallmentsPaid(paid, monthlyAmount decimal.Decimal) int {
	if !monthlyAmount.IsPositive() {
		return 0
	}
	return int(paid.Div(monthlyAmount).Floor().IntPart())
}

// MonthsDue is ceil(pending / monthlyAmount) when something is pending
func MonthsDue(pending, monthlyAmount decimal.Decimal) int {
	if !pending.IsPositive() || !monthlyAmount.IsPositive() {
		return 0
	}
	return int(pending.Div(monthlyAmount).Ceil().IntPart())
}
