package settlement

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kevin07696/chit-service/internal/domain"
	"github.com/kevin07696/chit-service/internal/domain/ports"
	"github.com/kevin07696/chit-service/pkg/observability"
	"github.com/kevin07696/chit-service/pkg/timeutil"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SettleRequest finalizes a subscriber's exit from a chit plan
type SettleRequest struct {
	Amount         decimal.Decimal
	TransactionID  string // Merchant's payout reference (bank UTR, cheque no.)
	Note           string
	SubscriptionID uuid.UUID
}

// Service settles subscriptions that leave a plan before completion
type Service struct {
	tx          ports.TransactionManager
	subs        ports.SubscriptionRepository
	withdrawals ports.WithdrawalRepository
	settlements ports.SettlementRepository
	clock       timeutil.Clock
	logger      *zap.Logger
}

// NewService creates a new settlement service
func NewService(
	tx ports.TransactionManager,
	subs ports.SubscriptionRepository,
	withdrawals ports.WithdrawalRepository,
	settlements ports.SettlementRepository,
	clock timeutil.Clock,
	logger *zap.Logger,
) *Service {
	return &Service{
		tx:          tx,
		subs:        subs,
		withdrawals: withdrawals,
		settlements: settlements,
		clock:       clock,
		logger:      logger,
	}
}

// Settle pays out an active or withdrawing subscription. The amount must
// equal what the subscriber has paid in. The settlement row, the withdrawal
// resolution and the move to settled commit together.
func (s *Service) Settle(ctx context.Context, session domain.Session, req *SettleRequest) (*domain.Settlement, error) {
	if err := session.Validate(); err != nil {
		return nil, err
	}
	if req.Amount.IsNegative() {
		return nil, domain.NewValidationError("amount", "must not be negative")
	}
	transactionID := strings.TrimSpace(req.TransactionID)
	if transactionID == "" {
		return nil, domain.NewValidationError("transaction_id", "must not be empty")
	}

	var settlement *domain.Settlement
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		sub, err := s.subs.GetByIDForUpdate(ctx, tx, req.SubscriptionID)
		if err != nil {
			return err
		}
		if err := session.Owns(sub.MerchantID); err != nil {
			return err
		}
		if !sub.IsOpen() {
			return domain.NewSubscriptionClosedError(sub.ID.String(), sub.Status)
		}
		if !req.Amount.Equal(sub.TotalAmountPaid) {
			return domain.NewSettlementAmountMismatchError(sub.TotalAmountPaid, req.Amount)
		}

		now := s.clock.Now()
		settlement = &domain.Settlement{
			ID:             uuid.New(),
			SubscriptionID: sub.ID,
			MerchantID:     sub.MerchantID,
			Amount:         req.Amount,
			TransactionID:  transactionID,
			Note:           req.Note,
			SettledDate:    now,
		}
		if err := s.settlements.Create(ctx, tx, settlement); err != nil {
			if domain.IsDomainError(err, domain.ErrorCodeAlreadyExists) {
				return domain.NewSubscriptionClosedError(sub.ID.String(), domain.SubscriptionStatusSettled)
			}
			return err
		}

		open, err := s.withdrawals.GetOpenBySubscription(ctx, tx, sub.ID)
		if err != nil {
			return err
		}
		if open != nil {
			if err := s.withdrawals.Resolve(ctx, tx, open.ID, now); err != nil {
				return err
			}
		}

		if err := sub.MarkSettled(now); err != nil {
			return err
		}
		return s.subs.Update(ctx, tx, sub)
	})
	if err != nil {
		if domain.IsStaleViewError(err) {
			observability.RecordStaleMutation("settle", string(domain.GetErrorCode(err)))
		}
		s.logger.Warn("Settlement refused",
			zap.String("subscription_id", req.SubscriptionID.String()),
			zap.String("code", string(domain.GetErrorCode(err))),
			zap.Error(err),
		)
		return nil, err
	}

	observability.RecordSettlement(settlement.MerchantID.String(), settlement.Amount)
	observability.RecordSubscriptionTransition(string(domain.SubscriptionStatusSettled))
	s.logger.Info("Subscription settled",
		zap.String("subscription_id", settlement.SubscriptionID.String()),
		zap.String("settlement_id", settlement.ID.String()),
		zap.String("amount", settlement.Amount.StringFixed(2)),
		zap.String("transaction_id", settlement.TransactionID),
	)
	return settlement, nil
}

// GetSettlement returns the settlement of one of the session merchant's subscriptions
func (s *Service) GetSettlement(ctx context.Context, session domain.Session, subscriptionID uuid.UUID) (*domain.Settlement, error) {
	if err := session.Validate(); err != nil {
		return nil, err
	}
	settlement, err := s.settlements.GetBySubscription(ctx, nil, subscriptionID)
	if err != nil {
		return nil, err
	}
	if err := session.Owns(settlement.MerchantID); err != nil {
		return nil, err
	}
	return settlement, nil
}
