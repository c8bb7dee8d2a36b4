package reconciliation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kevin07696/chit-service/internal/domain"
	"github.com/kevin07696/chit-service/internal/domain/ports"
	"github.com/kevin07696/chit-service/internal/services/checkout"
	"github.com/kevin07696/chit-service/pkg/observability"
	"github.com/kevin07696/chit-service/pkg/timeutil"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Config holds reconciliation settings
type Config struct {
	CommissionRate decimal.Decimal // Platform fee on online installments, e.g. 0.02
	Currency       string          // Gateway order currency (default: INR)
}

// OnlinePaymentRequest is a gateway checkout confirmation for one installment
type OnlinePaymentRequest struct {
	Amount         decimal.Decimal
	OrderID        string
	PaymentID      string
	Signature      string
	Notes          string
	SubscriptionID uuid.UUID
}

// OfflinePaymentRequest is a merchant-attested installment awaiting approval
type OfflinePaymentRequest struct {
	Amount         decimal.Decimal
	ProofRef       string // Opaque media store reference
	Notes          string
	SubscriptionID uuid.UUID
}

// Service reconciles installment payments into the subscription ledger.
// Online payments are credited only after gateway verification; offline
// payments are credited when a pending record is approved. Each credit
// is written in the same transaction as its payment record.
type Service struct {
	tx        ports.TransactionManager
	merchants ports.MerchantRepository
	subs      ports.SubscriptionRepository
	payments  ports.PaymentRepository
	gateway   ports.PaymentGateway
	config    Config
	clock     timeutil.Clock
	logger    *zap.Logger
}

// NewService creates a new payment reconciliation service
func NewService(
	tx ports.TransactionManager,
	merchants ports.MerchantRepository,
	subs ports.SubscriptionRepository,
	payments ports.PaymentRepository,
	gateway ports.PaymentGateway,
	config Config,
	clock timeutil.Clock,
	logger *zap.Logger,
) *Service {
	if config.Currency == "" {
		config.Currency = "INR"
	}
	return &Service{
		tx:        tx,
		merchants: merchants,
		subs:      subs,
		payments:  payments,
		gateway:   gateway,
		config:    config,
		clock:     clock,
		logger:    logger,
	}
}

// Commission returns the platform fee on an online installment
func (s *Service) Commission(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(s.config.CommissionRate).Round(2)
}

// RecordOnlinePayment verifies a checkout with the gateway and, only when
// verified, records a completed payment and credits the ledger
func (s *Service) RecordOnlinePayment(ctx context.Context, session domain.Session, req *OnlinePaymentRequest) (*domain.PaymentRecord, error) {
	if err := session.Validate(); err != nil {
		return nil, err
	}
	if err := domain.ValidatePaymentAmount(req.Amount); err != nil {
		return nil, err
	}
	confirmation := &ports.VerifyRequest{OrderID: req.OrderID, PaymentID: req.PaymentID, Signature: req.Signature}
	if err := checkout.ValidateConfirmation(confirmation); err != nil {
		return nil, err
	}

	// Ownership is checked before the gateway call so the gateway is never
	// queried on behalf of another merchant's subscriber
	sub, err := s.subs.GetByID(ctx, nil, req.SubscriptionID)
	if err != nil {
		return nil, err
	}
	if err := session.Owns(sub.MerchantID); err != nil {
		return nil, err
	}
	if err := sub.CheckAcceptsNewPayment(); err != nil {
		return nil, err
	}

	err = checkout.Verify(ctx, s.gateway, "installment", confirmation, func(order *ports.Order) string {
		if !order.Amount.Equal(req.Amount) {
			return "order amount does not match the installment amount"
		}
		if order.Notes["subscription_id"] != sub.ID.String() {
			return "order was opened for a different subscription"
		}
		return ""
	})
	if err != nil {
		s.logger.Warn("Installment verification failed",
			zap.String("subscription_id", req.SubscriptionID.String()),
			zap.String("order_id", req.OrderID),
			zap.Error(err),
		)
		return nil, err
	}

	now := s.clock.Now()
	record := &domain.PaymentRecord{
		ID:               uuid.New(),
		SubscriptionID:   req.SubscriptionID,
		MerchantID:       sub.MerchantID,
		Amount:           req.Amount,
		CommissionAmount: s.Commission(req.Amount),
		GatewayOrderID:   &req.OrderID,
		GatewayPaymentID: &req.PaymentID,
		Notes:            req.Notes,
		Channel:          domain.PaymentChannelOnline,
		Status:           domain.PaymentStatusCompleted,
		ResolvedAt:       &now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	var completed bool
	err = s.tx.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		sub, err := s.subs.GetByIDForUpdate(ctx, tx, req.SubscriptionID)
		if err != nil {
			return err
		}
		if err := sub.CheckAcceptsNewPayment(); err != nil {
			return err
		}
		if err := s.payments.Create(ctx, tx, record); err != nil {
			return err
		}
		completed, err = s.credit(ctx, tx, sub, record.Amount, now)
		return err
	})
	if err != nil {
		s.recordFailure("record_online", err)
		return nil, err
	}

	s.recorded(record, completed)
	return record, nil
}

// RecordOfflinePayment stores a merchant-attested payment as pending. The
// ledger is untouched until the record is approved.
func (s *Service) RecordOfflinePayment(ctx context.Context, session domain.Session, req *OfflinePaymentRequest) (*domain.PaymentRecord, error) {
	if err := session.Validate(); err != nil {
		return nil, err
	}
	if err := domain.ValidatePaymentAmount(req.Amount); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	record := &domain.PaymentRecord{
		ID:               uuid.New(),
		SubscriptionID:   req.SubscriptionID,
		Amount:           req.Amount,
		CommissionAmount: decimal.Zero,
		Notes:            req.Notes,
		Channel:          domain.PaymentChannelOffline,
		Status:           domain.PaymentStatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if ref := strings.TrimSpace(req.ProofRef); ref != "" {
		record.ProofRef = &ref
	}

	err := s.tx.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		sub, err := s.subs.GetByIDForUpdate(ctx, tx, req.SubscriptionID)
		if err != nil {
			return err
		}
		if err := session.Owns(sub.MerchantID); err != nil {
			return err
		}
		if err := sub.CheckAcceptsNewPayment(); err != nil {
			return err
		}
		record.MerchantID = sub.MerchantID
		return s.payments.Create(ctx, tx, record)
	})
	if err != nil {
		s.recordFailure("record_offline", err)
		return nil, err
	}

	observability.RecordInstallment(record.MerchantID.String(), string(record.Channel), string(record.Status), decimal.Zero, decimal.Zero)
	s.logger.Info("Offline payment recorded",
		zap.String("payment_id", record.ID.String()),
		zap.String("subscription_id", record.SubscriptionID.String()),
		zap.String("amount", record.Amount.StringFixed(2)),
	)
	return record, nil
}

// Approve completes a pending offline payment and credits the ledger. A
// record that is no longer pending returns domain.ErrAlreadyProcessed and
// nothing is written.
func (s *Service) Approve(ctx context.Context, session domain.Session, paymentID uuid.UUID) (*domain.PaymentRecord, error) {
	if err := session.Validate(); err != nil {
		return nil, err
	}

	var (
		record    *domain.PaymentRecord
		completed bool
	)
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		record, err = s.payments.GetByID(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		if err := session.Owns(record.MerchantID); err != nil {
			return err
		}
		if !record.IsPending() {
			return domain.NewAlreadyProcessedError(paymentID.String(), record.Status)
		}

		sub, err := s.subs.GetByIDForUpdate(ctx, tx, record.SubscriptionID)
		if err != nil {
			return err
		}
		if !sub.IsOpen() {
			return domain.NewSubscriptionClosedError(sub.ID.String(), sub.Status)
		}

		now := s.clock.Now()
		if err := s.resolve(ctx, tx, record, domain.PaymentStatusCompleted, "", now); err != nil {
			return err
		}
		completed, err = s.credit(ctx, tx, sub, record.Amount, now)
		return err
	})
	if err != nil {
		s.recordFailure("approve", err)
		return nil, err
	}

	s.recorded(record, completed)
	return record, nil
}

// Reject marks a pending offline payment rejected. The ledger is untouched.
func (s *Service) Reject(ctx context.Context, session domain.Session, paymentID uuid.UUID, reason string) (*domain.PaymentRecord, error) {
	if err := session.Validate(); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)

	var record *domain.PaymentRecord
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		record, err = s.payments.GetByID(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		if err := session.Owns(record.MerchantID); err != nil {
			return err
		}
		if !record.IsPending() {
			return domain.NewAlreadyProcessedError(paymentID.String(), record.Status)
		}
		return s.resolve(ctx, tx, record, domain.PaymentStatusRejected, reason, s.clock.Now())
	})
	if err != nil {
		s.recordFailure("reject", err)
		return nil, err
	}

	observability.RecordInstallment(record.MerchantID.String(), string(record.Channel), string(record.Status), decimal.Zero, decimal.Zero)
	s.logger.Info("Offline payment rejected",
		zap.String("payment_id", record.ID.String()),
		zap.String("reason", reason),
	)
	return record, nil
}

// ListPayments returns a subscription's payment records oldest first
func (s *Service) ListPayments(ctx context.Context, session domain.Session, subscriptionID uuid.UUID) ([]*domain.PaymentRecord, error) {
	if err := session.Validate(); err != nil {
		return nil, err
	}
	sub, err := s.subs.GetByID(ctx, nil, subscriptionID)
	if err != nil {
		return nil, err
	}
	if err := session.Owns(sub.MerchantID); err != nil {
		return nil, err
	}

	records, err := s.payments.ListBySubscription(ctx, nil, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return records, nil
}

// Receipt assembles the document generator input for a completed payment
func (s *Service) Receipt(ctx context.Context, session domain.Session, paymentID uuid.UUID) (*domain.Receipt, error) {
	if err := session.Validate(); err != nil {
		return nil, err
	}

	var receipt *domain.Receipt
	err := s.tx.WithReadOnlyTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		record, err := s.payments.GetByID(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		if err := session.Owns(record.MerchantID); err != nil {
			return err
		}
		if !record.CountsTowardLedger() {
			return domain.NewValidationError("payment_id", "receipts are only issued for completed payments")
		}

		sub, err := s.subs.GetByID(ctx, tx, record.SubscriptionID)
		if err != nil {
			return err
		}
		merchant, err := s.merchants.GetByID(ctx, tx, record.MerchantID)
		if err != nil {
			return err
		}

		receipt = &domain.Receipt{
			PaymentID:        record.ID,
			SubscriptionID:   sub.ID,
			MerchantName:     merchant.Name,
			PlanName:         sub.PlanName,
			UserID:           sub.UserID,
			Amount:           record.Amount,
			CommissionAmount: record.CommissionAmount,
			Channel:          record.Channel,
			Status:           record.Status,
			Notes:            record.Notes,
			PaidAt:           record.CreatedAt,
		}
		if record.ResolvedAt != nil {
			receipt.PaidAt = *record.ResolvedAt
		}
		if record.ProofRef != nil {
			receipt.ProofRef = *record.ProofRef
		}
		if record.GatewayPaymentID != nil {
			receipt.GatewayPaymentID = *record.GatewayPaymentID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// CreateInstallmentOrder opens a gateway order for an online installment
func (s *Service) CreateInstallmentOrder(ctx context.Context, session domain.Session, subscriptionID uuid.UUID, amount decimal.Decimal) (*ports.Order, error) {
	if err := session.Validate(); err != nil {
		return nil, err
	}
	if err := domain.ValidatePaymentAmount(amount); err != nil {
		return nil, err
	}

	sub, err := s.subs.GetByID(ctx, nil, subscriptionID)
	if err != nil {
		return nil, err
	}
	if err := session.Owns(sub.MerchantID); err != nil {
		return nil, err
	}
	if err := sub.CheckAcceptsNewPayment(); err != nil {
		return nil, err
	}

	order, err := s.gateway.CreateOrder(ctx, &ports.OrderRequest{
		Amount:   amount,
		Currency: s.config.Currency,
		Receipt:  sub.ID.String(),
		Notes: map[string]string{
			"purpose":         "installment",
			"subscription_id": sub.ID.String(),
			"merchant_id":     sub.MerchantID.String(),
		},
	})
	if err != nil {
		s.logger.Error("Installment order creation failed",
			zap.String("subscription_id", subscriptionID.String()),
			zap.Error(err),
		)
		e := domain.WrapError(domain.ErrorCodeGatewayError, "could not create installment order", err).
			WithRemediation("retry the checkout")
		e.Retryable = true
		return nil, e
	}
	return order, nil
}

// resolve applies the pending -> status compare-and-set and mirrors it onto record
func (s *Service) resolve(ctx context.Context, tx ports.DBTX, record *domain.PaymentRecord, status domain.PaymentStatus, reason string, now time.Time) error {
	ok, err := s.payments.ResolvePending(ctx, tx, record.ID, status, reason, now)
	if err != nil {
		return fmt.Errorf("resolve payment: %w", err)
	}
	if !ok {
		current, err := s.payments.GetByID(ctx, tx, record.ID)
		if err != nil {
			return err
		}
		return domain.NewAlreadyProcessedError(record.ID.String(), current.Status)
	}
	record.Status = status
	record.RejectionReason = reason
	record.ResolvedAt = &now
	record.UpdatedAt = now
	return nil
}

// credit adds amount to the locked subscription and writes it back under its version
func (s *Service) credit(ctx context.Context, tx ports.DBTX, sub *domain.Subscription, amount decimal.Decimal, now time.Time) (bool, error) {
	completed, err := sub.Credit(amount, now)
	if err != nil {
		return false, err
	}
	if err := s.subs.Update(ctx, tx, sub); err != nil {
		return false, err
	}
	return completed, nil
}

func (s *Service) recorded(record *domain.PaymentRecord, completed bool) {
	observability.RecordInstallment(record.MerchantID.String(), string(record.Channel), string(record.Status), record.Amount, record.CommissionAmount)
	if completed {
		observability.RecordSubscriptionTransition(string(domain.SubscriptionStatusCompleted))
	}

	s.logger.Info("Installment credited",
		zap.String("payment_id", record.ID.String()),
		zap.String("subscription_id", record.SubscriptionID.String()),
		zap.String("channel", string(record.Channel)),
		zap.String("amount", record.Amount.StringFixed(2)),
		zap.String("commission", record.CommissionAmount.StringFixed(2)),
		zap.Bool("subscription_completed", completed),
	)
}

func (s *Service) recordFailure(operation string, err error) {
	if domain.IsStaleViewError(err) {
		observability.RecordStaleMutation(operation, string(domain.GetErrorCode(err)))
	}
	s.logger.Warn("Payment mutation refused",
		zap.String("operation", operation),
		zap.String("code", string(domain.GetErrorCode(err))),
		zap.Error(err),
	)
}
