package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lexhq/trustledger/internal/adapter/http/dto"
	"github.com/lexhq/trustledger/internal/domain"
	"github.com/lexhq/trustledger/internal/usecase"
)

// LedgerHandler handles client trust ledger HTTP requests.
type LedgerHandler struct {
	accountUC *usecase.AccountUseCase
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(accountUC *usecase.AccountUseCase) *LedgerHandler {
	return &LedgerHandler{accountUC: accountUC}
}

// Create opens a client ledger on a trust account.
func (h *LedgerHandler) Create(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")
	if accountID == "" {
		writeError(w, http.StatusBadRequest, "missing account ID", "")
		return
	}

	var req dto.CreateLedgerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	ledger, err := h.accountUC.CreateLedger(r.Context(), req.ToUseCaseInput(accountID))
	if err != nil {
		writeError(w, mapDomainError(err), "failed to create ledger", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, dto.LedgerFromDomain(ledger))
}

// Get retrieves a ledger by ID.
func (h *LedgerHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing ledger ID", "")
		return
	}

	ledger, err := h.accountUC.GetLedger(r.Context(), id)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get ledger", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.LedgerFromDomain(ledger))
}

// ListByAccount retrieves an account's ledgers.
func (h *LedgerHandler) ListByAccount(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")
	if accountID == "" {
		writeError(w, http.StatusBadRequest, "missing account ID", "")
		return
	}

	limit := parseIntQuery(r, "limit", domain.DefaultPageSize)
	offset := parseIntQuery(r, "offset", 0)

	ledgers, err := h.accountUC.ListLedgers(r.Context(), accountID, limit, offset)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to list ledgers", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.LedgersFromDomain(ledgers))
}

// Freeze freezes a ledger. Frozen ledgers accept deposits but never
// disburse.
func (h *LedgerHandler) Freeze(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, h.accountUC.FreezeLedger)
}

// Unfreeze returns a frozen ledger to active.
func (h *LedgerHandler) Unfreeze(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, h.accountUC.UnfreezeLedger)
}

// Close closes a ledger. The balance must be zero.
func (h *LedgerHandler) Close(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, h.accountUC.CloseLedger)
}

func (h *LedgerHandler) setStatus(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id, reason string) (*domain.ClientTrustLedger, error)) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing ledger ID", "")
		return
	}

	var req dto.ReasonRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	ledger, err := fn(r.Context(), id, req.Reason)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to update ledger status", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.LedgerFromDomain(ledger))
}
