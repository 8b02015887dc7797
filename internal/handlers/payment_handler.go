package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/mindhaven/backend/internal/services"
)

type PaymentHandler struct {
	payments  *services.PaymentService
	validator *services.ValidationHelper
}

func NewPaymentHandler(payments *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		payments:  payments,
		validator: services.NewValidationHelper(),
	}
}

// InitiatePayment creates a pending payment order
// @Summary Initiate Payment
// @Description Create a pending payment order and return a checkout link and QR code
// @Tags Payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{amount=number,counselorId=string} true "Payment request"
// @Success 200 {object} services.PaymentOrder
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Router /payments/initiate [post]
func (h *PaymentHandler) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok || userID == "" {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req struct {
		Amount      decimal.Decimal `json:"amount"`
		CounselorID string          `json:"counselorId"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	order, err := h.payments.InitiatePayment(r.Context(), userID, req.CounselorID, req.Amount)
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
			return
		}
		services.SendErrorResponse(w, "Failed to initiate payment", http.StatusInternalServerError, nil)
		return
	}

	services.SendJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"order":   order,
	})
}

// GetOrder returns one of the caller's payment orders
// @Summary Get Payment Order
// @Description Get the status of a payment order owned by the caller
// @Tags Payments
// @Produce json
// @Security BearerAuth
// @Param orderId path string true "Order ID"
// @Success 200 {object} models.Transaction
// @Failure 401 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /payments/orders/{orderId} [get]
func (h *PaymentHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok || userID == "" {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	orderID := chi.URLParam(r, "orderId")
	order, err := h.payments.GetOrder(r.Context(), userID, orderID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrOrderNotFound):
			services.SendErrorResponse(w, "Order not found", http.StatusNotFound, nil)
		case errors.Is(err, services.ErrUnauthorized):
			services.SendErrorResponse(w, "Order not found", http.StatusNotFound, nil)
		default:
			services.SendErrorResponse(w, "Failed to fetch order", http.StatusInternalServerError, nil)
		}
		return
	}

	services.SendJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"order":   order,
	})
}
