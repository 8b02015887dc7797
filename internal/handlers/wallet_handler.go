package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/mindhaven/backend/internal/services"
)

type WalletHandler struct {
	ledger    *services.LedgerService
	validator *services.ValidationHelper
}

func NewWalletHandler(ledger *services.LedgerService) *WalletHandler {
	return &WalletHandler{
		ledger:    ledger,
		validator: services.NewValidationHelper(),
	}
}

// ProcessTransaction applies a credit or debit to the caller's wallet
// @Summary Process Wallet Transaction
// @Description Credit or debit the authenticated user's wallet
// @Tags Wallet
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{amount=number,transactionType=string,note=string} true "Transaction request"
// @Success 200 {object} object{success=bool,newBalance=number}
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 402 {object} services.ErrorResponse
// @Router /wallet/transactions [post]
func (h *WalletHandler) ProcessTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok || userID == "" {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req struct {
		Amount          decimal.Decimal `json:"amount"`
		TransactionType string          `json:"transactionType" validate:"required,oneof=credit debit"`
		Note            string          `json:"note"`
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

	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	newBalance, err := h.ledger.ApplyWalletTransaction(r.Context(), userID, req.Amount, req.TransactionType, req.Note, "")
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidInput):
			services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		case errors.Is(err, services.ErrInsufficientFunds):
			services.SendErrorResponse(w, "Insufficient funds", http.StatusPaymentRequired, nil)
		case errors.Is(err, services.ErrWalletNotFound):
			services.SendErrorResponse(w, "Wallet not found", http.StatusNotFound, nil)
		default:
			services.SendErrorResponse(w, "Transaction failed", http.StatusInternalServerError, nil)
		}
		return
	}

	services.SendJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"newBalance": newBalance,
	})
}

// GetBalance returns the caller's wallet balance
// @Summary Get Wallet Balance
// @Description Get the authenticated user's wallet balance
// @Tags Wallet
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{balance=number}
// @Failure 401 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /wallet/balance [get]
func (h *WalletHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok || userID == "" {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	balance, err := h.ledger.GetBalance(r.Context(), userID)
	if err != nil {
		if errors.Is(err, services.ErrWalletNotFound) {
			services.SendErrorResponse(w, "Wallet not found", http.StatusNotFound, nil)
			return
		}
		services.SendErrorResponse(w, "Failed to fetch balance", http.StatusInternalServerError, nil)
		return
	}

	services.SendJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"balance": balance,
	})
}

// GetEntries returns the caller's ledger history
// @Summary List Wallet Entries
// @Description List the authenticated user's ledger entries, newest first
// @Tags Wallet
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{entries=[]models.LedgerEntry}
// @Failure 401 {object} services.ErrorResponse
// @Router /wallet/entries [get]
func (h *WalletHandler) GetEntries(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok || userID == "" {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	entries, err := h.ledger.ListEntries(r.Context(), userID)
	if err != nil {
		if errors.Is(err, services.ErrWalletNotFound) {
			services.SendErrorResponse(w, "Wallet not found", http.StatusNotFound, nil)
			return
		}
		services.SendErrorResponse(w, "Failed to fetch entries", http.StatusInternalServerError, nil)
		return
	}

	services.SendJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"entries": entries,
	})
}
