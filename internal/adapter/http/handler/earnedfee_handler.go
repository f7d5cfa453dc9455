package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lexhq/trustledger/internal/adapter/http/dto"
	"github.com/lexhq/trustledger/internal/domain"
	"github.com/lexhq/trustledger/internal/usecase"
)

// EarnedFeeHandler handles earned-fee recognition HTTP requests.
type EarnedFeeHandler struct {
	earnedFeeUC *usecase.EarnedFeeUseCase
}

// NewEarnedFeeHandler creates a new EarnedFeeHandler.
func NewEarnedFeeHandler(earnedFeeUC *usecase.EarnedFeeUseCase) *EarnedFeeHandler {
	return &EarnedFeeHandler{earnedFeeUC: earnedFeeUC}
}

// Recognize recognizes a fee as earned, debiting the client ledger.
// With a synchronous approver the debit posts immediately; otherwise it
// pends through the approval workflow.
func (h *EarnedFeeHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	ledgerID := chi.URLParam(r, "id")
	if ledgerID == "" {
		writeError(w, http.StatusBadRequest, "missing ledger ID", "")
		return
	}

	var req dto.RecognizeEarnedFeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	txn, event, err := h.earnedFeeUC.RecognizeEarnedFee(r.Context(), req.ToUseCaseInput(ledgerID))
	if err != nil {
		writeError(w, mapDomainError(err), "failed to recognize earned fee", err.Error())
		return
	}

	resp := map[string]any{
		"transaction": dto.TransactionFromDomain(txn),
	}
	if event != nil {
		resp["earned_fee"] = dto.EarnedFeeFromDomain(event)
	}

	writeJSON(w, http.StatusCreated, resp)
}

// ListByLedger retrieves a ledger's earned-fee events.
func (h *EarnedFeeHandler) ListByLedger(w http.ResponseWriter, r *http.Request) {
	ledgerID := chi.URLParam(r, "id")
	if ledgerID == "" {
		writeError(w, http.StatusBadRequest, "missing ledger ID", "")
		return
	}

	limit := parseIntQuery(r, "limit", domain.DefaultPageSize)
	offset := parseIntQuery(r, "offset", 0)

	events, err := h.earnedFeeUC.ListEarnedFees(r.Context(), ledgerID, limit, offset)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to list earned fees", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.EarnedFeesFromDomain(events))
}
