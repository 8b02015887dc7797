package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mindhaven/backend/internal/services"
)

type CounselorHandler struct {
	ledger *services.LedgerService
}

func NewCounselorHandler(ledger *services.LedgerService) *CounselorHandler {
	return &CounselorHandler{ledger: ledger}
}

// CreateEarnings provisions the earnings record for a counselor
// @Summary Provision Counselor Earnings
// @Description Create a zeroed earnings record for a counselor; safe to repeat
// @Tags Counselors
// @Produce json
// @Security BearerAuth
// @Param counselorId path string true "Counselor ID"
// @Success 201 {object} object{success=bool}
// @Failure 400 {object} services.ErrorResponse
// @Router /counselors/{counselorId}/earnings [post]
func (h *CounselorHandler) CreateEarnings(w http.ResponseWriter, r *http.Request) {
	counselorID := chi.URLParam(r, "counselorId")
	if counselorID == "" {
		services.SendErrorResponse(w, "Counselor ID is required", http.StatusBadRequest, nil)
		return
	}

	if err := h.ledger.CreateCounselorEarnings(r.Context(), counselorID); err != nil {
		services.SendErrorResponse(w, "Failed to provision earnings", http.StatusInternalServerError, nil)
		return
	}

	services.SendJSON(w, http.StatusCreated, map[string]any{"success": true})
}

// GetEarnings returns a counselor's earnings totals
// @Summary Get Counselor Earnings
// @Description Get a counselor's total and pending earnings
// @Tags Counselors
// @Produce json
// @Security BearerAuth
// @Param counselorId path string true "Counselor ID"
// @Success 200 {object} object{totalEarnings=number,pendingAmount=number}
// @Failure 404 {object} services.ErrorResponse
// @Router /counselors/{counselorId}/earnings [get]
func (h *CounselorHandler) GetEarnings(w http.ResponseWriter, r *http.Request) {
	counselorID := chi.URLParam(r, "counselorId")
	if counselorID == "" {
		services.SendErrorResponse(w, "Counselor ID is required", http.StatusBadRequest, nil)
		return
	}

	earnings, err := h.ledger.GetEarnings(r.Context(), counselorID)
	if err != nil {
		if errors.Is(err, services.ErrCounselorNotFound) {
			services.SendErrorResponse(w, "Counselor not found", http.StatusNotFound, nil)
			return
		}
		services.SendErrorResponse(w, "Failed to fetch earnings", http.StatusInternalServerError, nil)
		return
	}

	services.SendJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"counselorId":   earnings.CounselorID,
		"totalEarnings": earnings.TotalEarnings,
		"pendingAmount": earnings.PendingAmount,
	})
}

// GetEarningEntries returns a counselor's per-payment earning records
// @Summary List Counselor Earning Entries
// @Description List a counselor's earning entries, newest first
// @Tags Counselors
// @Produce json
// @Security BearerAuth
// @Param counselorId path string true "Counselor ID"
// @Success 200 {object} object{entries=[]models.EarningEntry}
// @Failure 404 {object} services.ErrorResponse
// @Router /counselors/{counselorId}/earnings/entries [get]
func (h *CounselorHandler) GetEarningEntries(w http.ResponseWriter, r *http.Request) {
	counselorID := chi.URLParam(r, "counselorId")
	if counselorID == "" {
		services.SendErrorResponse(w, "Counselor ID is required", http.StatusBadRequest, nil)
		return
	}

	entries, err := h.ledger.ListEarningEntries(r.Context(), counselorID)
	if err != nil {
		if errors.Is(err, services.ErrCounselorNotFound) {
			services.SendErrorResponse(w, "Counselor not found", http.StatusNotFound, nil)
			return
		}
		services.SendErrorResponse(w, "Failed to fetch earning entries", http.StatusInternalServerError, nil)
		return
	}

	services.SendJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"entries": entries,
	})
}
