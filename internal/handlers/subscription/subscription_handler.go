package subscription

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/kevin07696/chit-service/internal/domain"
	"github.com/kevin07696/chit-service/internal/handlers/merchant"
	"github.com/kevin07696/chit-service/internal/handlers/response"
	"github.com/kevin07696/chit-service/internal/services/ports"
	"github.com/kevin07696/chit-service/internal/services/reconciliation"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Handler serves the subscriber ledger endpoints
type Handler struct {
	ledger      ports.LedgerService
	payments    ports.ReconciliationService
	settlements ports.SettlementService
	logger      *zap.Logger
}

// NewHandler creates a new subscription handler
func NewHandler(
	ledgerService ports.LedgerService,
	reconciliationService ports.ReconciliationService,
	settlementService ports.SettlementService,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		ledger:      ledgerService,
		payments:    reconciliationService,
		settlements: settlementService,
		logger:      logger,
	}
}

// WithdrawalRequest asks to leave a plan before completion
type WithdrawalRequest struct {
	Bank    domain.BankDetails `json:"bank"`
	Message string             `json:"message"`
}

// OnlinePaymentRequest confirms a gateway checkout for one installment
type OnlinePaymentRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	OrderID   string          `json:"order_id"`
	PaymentID string          `json:"payment_id"`
	Signature string          `json:"signature"`
	Notes     string          `json:"notes"`
}

// OfflinePaymentRequest records a cash or bank payment awaiting approval
type OfflinePaymentRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	ProofRef string          `json:"proof_ref"`
	Notes    string          `json:"notes"`
}

// InstallmentOrderRequest opens a checkout order for an installment
type InstallmentOrderRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// PaymentListResponse lists a subscription's payment records
type PaymentListResponse struct {
	Payments []*domain.PaymentRecord `json:"payments"`
}

// GetSubscription handles GET /api/v1/subscriptions/{id}
func (h *Handler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	session, subID, ok := h.sessionAndSubscription(w, r)
	if !ok {
		return
	}

	view, err := h.ledger.Get(r.Context(), session, subID)
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	response.JSON(w, h.logger, http.StatusOK, view)
}

// RequestWithdrawal handles POST /api/v1/subscriptions/{id}/withdrawal
func (h *Handler) RequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	session, subID, ok := h.sessionAndSubscription(w, r)
	if !ok {
		return
	}
	var req WithdrawalRequest
	if !response.Decode(w, r, h.logger, &req) {
		return
	}

	withdrawal, err := h.ledger.RequestWithdrawal(r.Context(), session, subID, req.Bank, req.Message)
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	response.JSON(w, h.logger, http.StatusCreated, withdrawal)
}

// ListPayments handles GET /api/v1/subscriptions/{id}/payments
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	session, subID, ok := h.sessionAndSubscription(w, r)
	if !ok {
		return
	}

	payments, err := h.payments.ListPayments(r.Context(), session, subID)
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	response.JSON(w, h.logger, http.StatusOK, PaymentListResponse{Payments: payments})
}

// RecordOnlinePayment handles POST /api/v1/subscriptions/{id}/payments/online
func (h *Handler) RecordOnlinePayment(w http.ResponseWriter, r *http.Request) {
	session, subID, ok := h.sessionAndSubscription(w, r)
	if !ok {
		return
	}
	var req OnlinePaymentRequest
	if !response.Decode(w, r, h.logger, &req) {
		return
	}

	record, err := h.payments.RecordOnlinePayment(r.Context(), session, &reconciliation.OnlinePaymentRequest{
		Amount:         req.Amount,
		OrderID:        req.OrderID,
		PaymentID:      req.PaymentID,
		Signature:      req.Signature,
		Notes:          req.Notes,
		SubscriptionID: subID,
	})
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	response.JSON(w, h.logger, http.StatusCreated, record)
}

// RecordOfflinePayment handles POST /api/v1/subscriptions/{id}/payments/offline
func (h *Handler) RecordOfflinePayment(w http.ResponseWriter, r *http.Request) {
	session, subID, ok := h.sessionAndSubscription(w, r)
	if !ok {
		return
	}
	var req OfflinePaymentRequest
	if !response.Decode(w, r, h.logger, &req) {
		return
	}

	record, err := h.payments.RecordOfflinePayment(r.Context(), session, &reconciliation.OfflinePaymentRequest{
		Amount:         req.Amount,
		ProofRef:       req.ProofRef,
		Notes:          req.Notes,
		SubscriptionID: subID,
	})
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	response.JSON(w, h.logger, http.StatusCreated, record)
}

// CreateOrder handles POST /api/v1/subscriptions/{id}/orders
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	session, subID, ok := h.sessionAndSubscription(w, r)
	if !ok {
		return
	}
	var req InstallmentOrderRequest
	if !response.Decode(w, r, h.logger, &req) {
		return
	}

	order, err := h.payments.CreateInstallmentOrder(r.Context(), session, subID, req.Amount)
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	response.JSON(w, h.logger, http.StatusCreated, merchant.NewOrderResponse(order))
}

// GetSettlement handles GET /api/v1/subscriptions/{id}/settlement
func (h *Handler) GetSettlement(w http.ResponseWriter, r *http.Request) {
	session, subID, ok := h.sessionAndSubscription(w, r)
	if !ok {
		return
	}

	record, err := h.settlements.GetSettlement(r.Context(), session, subID)
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	response.JSON(w, h.logger, http.StatusOK, record)
}

// Audit handles GET /api/v1/subscriptions/{id}/audit
func (h *Handler) Audit(w http.ResponseWriter, r *http.Request) {
	session, subID, ok := h.sessionAndSubscription(w, r)
	if !ok {
		return
	}

	audit, err := h.ledger.AuditTotals(r.Context(), session, subID)
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	response.JSON(w, h.logger, http.StatusOK, audit)
}

func (h *Handler) sessionAndSubscription(w http.ResponseWriter, r *http.Request) (domain.Session, uuid.UUID, bool) {
	session, ok := response.Session(w, r, h.logger)
	if !ok {
		return domain.Session{}, uuid.Nil, false
	}
	subID, ok := response.PathID(w, r, h.logger, "id")
	if !ok {
		return domain.Session{}, uuid.Nil, false
	}
	return session, subID, true
}
