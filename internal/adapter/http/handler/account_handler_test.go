package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lexhq/trustledger/internal/adapter/http/dto"
	"github.com/lexhq/trustledger/internal/domain"
	"github.com/lexhq/trustledger/internal/usecase"
	"github.com/lexhq/trustledger/internal/usecase/mocks"
)

func newAccountHandler() (*AccountHandler, *mocks.MockAccountRepository) {
	accountRepo := mocks.NewMockAccountRepository()
	uc := usecase.NewAccountUseCase(
		mocks.NewMockTransactionManager(),
		accountRepo,
		mocks.NewMockLedgerRepository(),
		mocks.NewMockAuditRepository(),
		mocks.NewMockIDGenerator("acc"),
		nil,
	)
	return NewAccountHandler(uc), accountRepo
}

func withActor(r *http.Request, id string) *http.Request {
	return r.WithContext(domain.WithActor(r.Context(), domain.Actor{ID: id}))
}

func TestAccountHandler_Create(t *testing.T) {
	h, _ := newAccountHandler()

	body, _ := json.Marshal(dto.CreateAccountRequest{
		Name:     "Main IOLTA",
		BankName: "First National",
		Currency: "USD",
	})
	req := withActor(httptest.NewRequest(http.MethodPost, "/accounts", bytes.NewReader(body)), "alice")
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.AccountResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Name != "Main IOLTA" || resp.Status != string(domain.AccountStatusActive) {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestAccountHandler_Create_InvalidJSON(t *testing.T) {
	h, _ := newAccountHandler()

	req := httptest.NewRequest(http.MethodPost, "/accounts", bytes.NewBufferString("{invalid"))
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAccountHandler_Create_UnsupportedCurrency(t *testing.T) {
	h, _ := newAccountHandler()

	body, _ := json.Marshal(dto.CreateAccountRequest{Name: "Main IOLTA", Currency: "JPY"})
	req := withActor(httptest.NewRequest(http.MethodPost, "/accounts", bytes.NewReader(body)), "alice")
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAccountHandler_Get_NotFound(t *testing.T) {
	h, _ := newAccountHandler()

	req := setChiURLParam(httptest.NewRequest(http.MethodGet, "/accounts/missing", nil), "id", "missing")
	rec := httptest.NewRecorder()

	h.Get(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestAccountHandler_Close_OpenLedgersConflict(t *testing.T) {
	accountRepo := mocks.NewMockAccountRepository()
	ledgerRepo := mocks.NewMockLedgerRepository()
	uc := usecase.NewAccountUseCase(
		mocks.NewMockTransactionManager(),
		accountRepo,
		ledgerRepo,
		mocks.NewMockAuditRepository(),
		mocks.NewMockIDGenerator("acc"),
		nil,
	)
	h := NewAccountHandler(uc)

	accountRepo.Create(context.Background(), &domain.TrustBankAccount{
		ID: "acc-1", Name: "Main IOLTA", Currency: "USD", Status: domain.AccountStatusActive,
	})
	ledgerRepo.Create(context.Background(), &domain.ClientTrustLedger{
		ID: "led-1", AccountID: "acc-1", Name: "Client", Status: domain.LedgerStatusActive,
	})

	req := withActor(httptest.NewRequest(http.MethodPost, "/accounts/acc-1/close", nil), "alice")
	req = setChiURLParam(req, "id", "acc-1")
	rec := httptest.NewRecorder()

	h.Close(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAccountHandler_List(t *testing.T) {
	h, accountRepo := newAccountHandler()
	accountRepo.Create(context.Background(), &domain.TrustBankAccount{ID: "acc-1", Name: "A", Status: domain.AccountStatusActive})
	accountRepo.Create(context.Background(), &domain.TrustBankAccount{ID: "acc-2", Name: "B", Status: domain.AccountStatusActive})

	req := httptest.NewRequest(http.MethodGet, "/accounts?limit=10", nil)
	rec := httptest.NewRecorder()

	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp []dto.AccountResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(resp))
	}
}
