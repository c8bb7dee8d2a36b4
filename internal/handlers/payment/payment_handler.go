package payment

import (
	"net/http"

	"github.com/kevin07696/chit-service/internal/handlers/response"
	"github.com/kevin07696/chit-service/internal/services/ports"
	"go.uber.org/zap"
)

// Handler serves offline payment review and receipts
type Handler struct {
	payments ports.ReconciliationService
	logger   *zap.Logger
}

// NewHandler creates a new payment handler
func NewHandler(reconciliationService ports.ReconciliationService, logger *zap.Logger) *Handler {
	return &Handler{payments: reconciliationService, logger: logger}
}

// RejectRequest carries the merchant's reason for rejecting a payment
type RejectRequest struct {
	Reason string `json:"reason"`
}

// Approve handles PUT /api/v1/payments/offline/{id}/approve
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	session, ok := response.Session(w, r, h.logger)
	if !ok {
		return
	}
	paymentID, ok := response.PathID(w, r, h.logger, "id")
	if !ok {
		return
	}

	record, err := h.payments.Approve(r.Context(), session, paymentID)
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	response.JSON(w, h.logger, http.StatusOK, record)
}

// Reject handles PUT /api/v1/payments/offline/{id}/reject. The body is optional.
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	session, ok := response.Session(w, r, h.logger)
	if !ok {
		return
	}
	paymentID, ok := response.PathID(w, r, h.logger, "id")
	if !ok {
		return
	}
	var req RejectRequest
	if r.ContentLength != 0 && !response.Decode(w, r, h.logger, &req) {
		return
	}

	record, err := h.payments.Reject(r.Context(), session, paymentID, req.Reason)
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	response.JSON(w, h.logger, http.StatusOK, record)
}

// Receipt handles GET /api/v1/payments/{id}/receipt
func (h *Handler) Receipt(w http.ResponseWriter, r *http.Request) {
	session, ok := response.Session(w, r, h.logger)
	if !ok {
		return
	}
	paymentID, ok := response.PathID(w, r, h.logger, "id")
	if !ok {
		return
	}

	receipt, err := h.payments.Receipt(r.Context(), session, paymentID)
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	response.JSON(w, h.logger, http.StatusOK, receipt)
}
