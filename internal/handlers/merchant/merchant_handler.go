package merchant

import (
	"net/http"
	"time"

	"github.com/kevin07696/chit-service/internal/domain"
	domainports "github.com/kevin07696/chit-service/internal/domain/ports"
	"github.com/kevin07696/chit-service/internal/handlers/response"
	"github.com/kevin07696/chit-service/internal/services/expiry"
	"github.com/kevin07696/chit-service/internal/services/ports"
	"github.com/kevin07696/chit-service/internal/services/tier"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Handler serves the merchant account and tier renewal endpoints
type Handler struct {
	expiry ports.ExpiryService
	plans  ports.ChitPlanService
	policy *tier.Policy
	logger *zap.Logger
}

// NewHandler creates a new merchant handler
func NewHandler(expiryService ports.ExpiryService, planService ports.ChitPlanService, policy *tier.Policy, logger *zap.Logger) *Handler {
	return &Handler{
		expiry: expiryService,
		plans:  planService,
		policy: policy,
		logger: logger,
	}
}

// MerchantResponse is the merchant account with its entitlements
type MerchantResponse struct {
	*domain.MerchantAccount
	Access    *expiry.AccessDecision `json:"access"`
	Features  tier.Features          `json:"features"`
	Quota     int                    `json:"quota"`
	PlanCount int                    `json:"plan_count"`
}

// RenewalOrderRequest asks for a checkout order for a tier and period
type RenewalOrderRequest struct {
	TargetTier domain.Tier          `json:"target_tier"`
	Period     domain.BillingPeriod `json:"period"`
}

// RenewRequest confirms a paid renewal checkout
type RenewRequest struct {
	TargetTier domain.Tier          `json:"target_tier"`
	Period     domain.BillingPeriod `json:"period"`
	OrderID    string               `json:"order_id"`
	PaymentID  string               `json:"payment_id"`
	Signature  string               `json:"signature"`
}

// OrderResponse is a gateway checkout order handed to the client
type OrderResponse struct {
	Notes    map[string]string `json:"notes,omitempty"`
	ID       string            `json:"id"`
	Amount   decimal.Decimal   `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Status   string            `json:"status"`
}

// NewOrderResponse converts a gateway order for the API
func NewOrderResponse(order *domainports.Order) OrderResponse {
	return OrderResponse{
		ID:       order.ID,
		Amount:   order.Amount,
		Currency: order.Currency,
		Receipt:  order.Receipt,
		Status:   order.Status,
		Notes:    order.Notes,
	}
}

// RenewalListResponse lists past renewals, newest first
type RenewalListResponse struct {
	Renewals []*domain.RenewalRecord `json:"renewals"`
}

// GetMerchant handles GET /api/v1/merchants/{id}. It stays reachable for
// expired merchants so the dashboard can show the renewal screen.
func (h *Handler) GetMerchant(w http.ResponseWriter, r *http.Request) {
	session, ok := h.sessionFor(w, r)
	if !ok {
		return
	}

	merchant, err := h.expiry.Merchant(r.Context(), session)
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	access, err := h.expiry.CheckAccess(r.Context(), session)
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	plans, err := h.plans.List(r.Context(), session)
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	response.JSON(w, h.logger, http.StatusOK, MerchantResponse{
		MerchantAccount: merchant,
		Access:          access,
		Features:        h.policy.FeatureFlags(merchant.Tier),
		Quota:           h.policy.Quota(merchant.Tier),
		PlanCount:       len(plans),
	})
}

// CreateRenewalOrder handles POST /api/v1/merchants/{id}/renewal-orders
func (h *Handler) CreateRenewalOrder(w http.ResponseWriter, r *http.Request) {
	session, ok := h.sessionFor(w, r)
	if !ok {
		return
	}
	var req RenewalOrderRequest
	if !response.Decode(w, r, h.logger, &req) {
		return
	}

	order, err := h.expiry.CreateRenewalOrder(r.Context(), session, req.TargetTier, req.Period)
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	response.JSON(w, h.logger, http.StatusCreated, NewOrderResponse(order))
}

// Renew handles POST /api/v1/merchants/{id}/renewals
func (h *Handler) Renew(w http.ResponseWriter, r *http.Request) {
	session, ok := h.sessionFor(w, r)
	if !ok {
		return
	}
	var req RenewRequest
	if !response.Decode(w, r, h.logger, &req) {
		return
	}

	record, err := h.expiry.Renew(r.Context(), session, &expiry.RenewRequest{
		TargetTier: req.TargetTier,
		Period:     req.Period,
		OrderID:    req.OrderID,
		PaymentID:  req.PaymentID,
		Signature:  req.Signature,
	})
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	h.logger.Info("Merchant renewed",
		zap.String("merchant_id", session.MerchantID.String()),
		zap.String("tier", string(record.ToTier)),
		zap.Time("new_expiry", record.NewExpiry.Truncate(time.Second)),
	)
	response.JSON(w, h.logger, http.StatusCreated, record)
}

// ListRenewals handles GET /api/v1/merchants/{id}/renewals
func (h *Handler) ListRenewals(w http.ResponseWriter, r *http.Request) {
	session, ok := h.sessionFor(w, r)
	if !ok {
		return
	}

	renewals, err := h.expiry.RenewalHistory(r.Context(), session)
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	response.JSON(w, h.logger, http.StatusOK, RenewalListResponse{Renewals: renewals})
}

// sessionFor returns the session when the path merchant is the caller
func (h *Handler) sessionFor(w http.ResponseWriter, r *http.Request) (domain.Session, bool) {
	session, ok := response.Session(w, r, h.logger)
	if !ok {
		return domain.Session{}, false
	}
	merchantID, ok := response.PathID(w, r, h.logger, "id")
	if !ok {
		return domain.Session{}, false
	}
	if err := session.Owns(merchantID); err != nil {
		response.Error(w, r, h.logger, err)
		return domain.Session{}, false
	}
	return session, true
}
