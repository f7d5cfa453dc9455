package handler

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/lexhq/trustledger/internal/domain"
)

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrAccountNotFound, http.StatusNotFound},
		{domain.ErrLedgerNotFound, http.StatusNotFound},
		{domain.ErrTransactionNotFound, http.StatusNotFound},
		{domain.ErrDuplicateSubmission, http.StatusConflict},
		{domain.ErrInsufficientFunds, http.StatusConflict},
		{domain.ErrInsufficientFundsAtApproval, http.StatusConflict},
		{domain.ErrTransactionNotApprovable, http.StatusConflict},
		{domain.ErrAlreadyVoided, http.StatusConflict},
		{domain.ErrLedgerNotEmpty, http.StatusConflict},
		{domain.ErrSelfApproval, http.StatusForbidden},
		{domain.ErrMissingActor, http.StatusForbidden},
		{domain.ErrAllocationMismatch, http.StatusBadRequest},
		{domain.ErrSubCentAmount, http.StatusBadRequest},
		{domain.ErrMissingReason, http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", domain.ErrInsufficientFunds), http.StatusConflict},
		{fmt.Errorf("something else"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := mapDomainError(tt.err); got != tt.want {
			t.Errorf("mapDomainError(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func setChiURLParam(r *http.Request, key, value string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, &chi.Context{
		URLParams: chi.RouteParams{
			Keys:   []string{key},
			Values: []string{value},
		},
	}))
}
