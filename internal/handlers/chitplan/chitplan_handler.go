package chitplan

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/kevin07696/chit-service/internal/domain"
	"github.com/kevin07696/chit-service/internal/handlers/response"
	"github.com/kevin07696/chit-service/internal/services/ledger"
	"github.com/kevin07696/chit-service/internal/services/ports"
	"github.com/kevin07696/chit-service/internal/services/settlement"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Handler serves chit plan CRUD, enrollment and settlement endpoints
type Handler struct {
	plans       ports.ChitPlanService
	ledger      ports.LedgerService
	settlements ports.SettlementService
	logger      *zap.Logger
}

// NewHandler creates a new chit plan handler
func NewHandler(
	planService ports.ChitPlanService,
	ledgerService ports.LedgerService,
	settlementService ports.SettlementService,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		plans:       planService,
		ledger:      ledgerService,
		settlements: settlementService,
		logger:      logger,
	}
}

// PlanListResponse lists a merchant's live plans
type PlanListResponse struct {
	Plans []*domain.ChitPlan `json:"plans"`
}

// EnrollRequest subscribes a user to a plan
type EnrollRequest struct {
	UserID string `json:"user_id"`
}

// SubscriptionListResponse lists a plan's subscriptions with derived fields
type SubscriptionListResponse struct {
	Subscriptions []*ledger.SubscriptionView `json:"subscriptions"`
}

// SettleRequest closes one of the plan's subscriptions with a payout
type SettleRequest struct {
	Amount         decimal.Decimal `json:"amount"`
	TransactionID  string          `json:"transaction_id"`
	Note           string          `json:"note"`
	SubscriptionID uuid.UUID       `json:"subscription_id"`
}

// ListPlans handles GET /api/v1/chit-plans
func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	session, ok := response.Session(w, r, h.logger)
	if !ok {
		return
	}

	plans, err := h.plans.List(r.Context(), session)
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	response.JSON(w, h.logger, http.StatusOK, PlanListResponse{Plans: plans})
}

// CreatePlan handles POST /api/v1/chit-plans
func (h *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	session, ok := response.Session(w, r, h.logger)
	if !ok {
		return
	}
	var draft domain.PlanDraft
	if !response.Decode(w, r, h.logger, &draft) {
		return
	}

	plan, err := h.plans.Create(r.Context(), session, draft)
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	response.JSON(w, h.logger, http.StatusCreated, plan)
}

// GetPlan handles GET /api/v1/chit-plans/{id}
func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	session, planID, ok := h.sessionAndPlan(w, r)
	if !ok {
		return
	}

	plan, err := h.plans.Get(r.Context(), session, planID)
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	response.JSON(w, h.logger, http.StatusOK, plan)
}

// UpdatePlan handles PUT /api/v1/chit-plans/{id}
func (h *Handler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	session, planID, ok := h.sessionAndPlan(w, r)
	if !ok {
		return
	}
	var draft domain.PlanDraft
	if !response.Decode(w, r, h.logger, &draft) {
		return
	}

	plan, err := h.plans.Update(r.Context(), session, planID, draft)
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	response.JSON(w, h.logger, http.StatusOK, plan)
}

// DeletePlan handles DELETE /api/v1/chit-plans/{id}
func (h *Handler) DeletePlan(w http.ResponseWriter, r *http.Request) {
	session, planID, ok := h.sessionAndPlan(w, r)
	if !ok {
		return
	}

	if err := h.plans.Delete(r.Context(), session, planID); err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Enroll handles POST /api/v1/chit-plans/{id}/subscriptions
func (h *Handler) Enroll(w http.ResponseWriter, r *http.Request) {
	session, planID, ok := h.sessionAndPlan(w, r)
	if !ok {
		return
	}
	var req EnrollRequest
	if !response.Decode(w, r, h.logger, &req) {
		return
	}

	view, err := h.ledger.Enroll(r.Context(), session, planID, req.UserID)
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	response.JSON(w, h.logger, http.StatusCreated, view)
}

// ListSubscriptions handles GET /api/v1/chit-plans/{id}/subscriptions
func (h *Handler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	session, planID, ok := h.sessionAndPlan(w, r)
	if !ok {
		return
	}

	views, err := h.ledger.ListByPlan(r.Context(), session, planID)
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	response.JSON(w, h.logger, http.StatusOK, SubscriptionListResponse{Subscriptions: views})
}

// Settle handles POST /api/v1/chit-plans/{id}/settle
func (h *Handler) Settle(w http.ResponseWriter, r *http.Request) {
	session, planID, ok := h.sessionAndPlan(w, r)
	if !ok {
		return
	}
	var req SettleRequest
	if !response.Decode(w, r, h.logger, &req) {
		return
	}
	if req.SubscriptionID == uuid.Nil {
		response.Error(w, r, h.logger, domain.NewValidationError("subscription_id", "is required"))
		return
	}

	// The subscription must belong to the plan in the path
	view, err := h.ledger.Get(r.Context(), session, req.SubscriptionID)
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	if view.PlanID != planID {
		response.Error(w, r, h.logger, domain.ErrSubscriptionNotFound)
		return
	}

	record, err := h.settlements.Settle(r.Context(), session, &settlement.SettleRequest{
		Amount:         req.Amount,
		TransactionID:  req.TransactionID,
		Note:           req.Note,
		SubscriptionID: req.SubscriptionID,
	})
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	response.JSON(w, h.logger, http.StatusCreated, record)
}

func (h *Handler) sessionAndPlan(w http.ResponseWriter, r *http.Request) (domain.Session, uuid.UUID, bool) {
	session, ok := response.Session(w, r, h.logger)
	if !ok {
		return domain.Session{}, uuid.Nil, false
	}
	planID, ok := response.PathID(w, r, h.logger, "id")
	if !ok {
		return domain.Session{}, uuid.Nil, false
	}
	return session, planID, true
}
