package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/mindhaven/backend/internal/services"
)

type WebhookHandler struct {
	reconciler *services.ReconcilerService
}

func NewWebhookHandler(reconciler *services.ReconcilerService) *WebhookHandler {
	return &WebhookHandler{reconciler: reconciler}
}

// HandleCashfree receives payment-status notifications from the gateway.
// The gateway retries on any non-2xx response, so only final failures
// (bad payload, bad signature, unknown order) return 4xx; everything
// else returns 500 to request a redelivery.
// @Summary Cashfree Webhook
// @Description Receive a payment status notification from Cashfree
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param request body services.WebhookEvent true "Webhook event"
// @Success 200 {object} object{success=bool}
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 405 {object} services.ErrorResponse
// @Router /webhooks/cashfree [post]
func (h *WebhookHandler) HandleCashfree(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		services.SendErrorResponse(w, "Method not allowed", http.StatusMethodNotAllowed, nil)
		return
	}

	var ev services.WebhookEvent

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)

	if err := dec.Decode(&ev); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := h.reconciler.ProcessEvent(r.Context(), &ev); err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidInput):
			services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		case errors.Is(err, services.ErrUnauthorized):
			services.SendErrorResponse(w, "Invalid signature", http.StatusUnauthorized, nil)
		case errors.Is(err, services.ErrOrderNotFound):
			services.SendErrorResponse(w, "Unknown order", http.StatusNotFound, nil)
		default:
			logrus.WithError(err).WithField("order_id", ev.OrderID).Error("webhook processing failed")
			services.SendErrorResponse(w, "Processing failed, retry later", http.StatusInternalServerError, nil)
		}
		return
	}

	services.SendJSON(w, http.StatusOK, map[string]any{"success": true})
}
