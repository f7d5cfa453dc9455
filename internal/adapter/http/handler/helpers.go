package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/lexhq/trustledger/internal/adapter/http/dto"
	"github.com/lexhq/trustledger/internal/domain"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.ErrorResponse{
		Error:   message,
		Message: details,
	})
}

// mapDomainError maps domain errors to HTTP status codes.
func mapDomainError(err error) int {
	switch {
	case errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, domain.ErrLedgerNotFound),
		errors.Is(err, domain.ErrTransactionNotFound),
		errors.Is(err, domain.ErrReconciliationNotFound):
		return http.StatusNotFound

	case errors.Is(err, domain.ErrDuplicateSubmission):
		return http.StatusConflict

	case errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrInsufficientFundsAtApproval),
		errors.Is(err, domain.ErrAccountNotActive),
		errors.Is(err, domain.ErrAccountNotEmpty),
		errors.Is(err, domain.ErrLedgerNotActive),
		errors.Is(err, domain.ErrLedgerNotEmpty),
		errors.Is(err, domain.ErrTransactionNotApprovable),
		errors.Is(err, domain.ErrTransactionNotVoidable),
		errors.Is(err, domain.ErrAlreadyVoided),
		errors.Is(err, domain.ErrReconciliationApproved):
		return http.StatusConflict

	case errors.Is(err, domain.ErrSelfApproval),
		errors.Is(err, domain.ErrMissingActor):
		return http.StatusForbidden

	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrSubCentAmount),
		errors.Is(err, domain.ErrAmountTooLarge),
		errors.Is(err, domain.ErrSameLedger),
		errors.Is(err, domain.ErrNoAllocations),
		errors.Is(err, domain.ErrAllocationMismatch),
		errors.Is(err, domain.ErrCrossAccountAllocation),
		errors.Is(err, domain.ErrNegativeAllocation),
		errors.Is(err, domain.ErrInvalidTransactionType),
		errors.Is(err, domain.ErrMissingPayorPayee),
		errors.Is(err, domain.ErrMissingDescription),
		errors.Is(err, domain.ErrMissingReason),
		errors.Is(err, domain.ErrInvalidName),
		errors.Is(err, domain.ErrInvalidCurrency):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return i
}
