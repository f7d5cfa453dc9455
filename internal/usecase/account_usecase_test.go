package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/mock/gomock"

	"github.com/lexhq/trustledger/internal/domain"
	"github.com/lexhq/trustledger/internal/usecase"
	"github.com/lexhq/trustledger/internal/usecase/mocks"
)

type accountFixture struct {
	accountRepo *mocks.MockAccountRepository
	ledgerRepo  *mocks.MockLedgerRepository
	auditRepo   *mocks.MockAuditRepository
	uc          *usecase.AccountUseCase
}

func newAccountFixture() *accountFixture {
	f := &accountFixture{
		accountRepo: mocks.NewMockAccountRepository(),
		ledgerRepo:  mocks.NewMockLedgerRepository(),
		auditRepo:   mocks.NewMockAuditRepository(),
	}
	f.uc = usecase.NewAccountUseCase(
		mocks.NewMockTransactionManager(),
		f.accountRepo,
		f.ledgerRepo,
		f.auditRepo,
		mocks.NewMockIDGenerator("acc"),
		nil,
	)
	return f
}

func TestAccountUseCase_CreateAccount(t *testing.T) {
	tests := []struct {
		name      string
		input     usecase.CreateAccountInput
		errorType error
	}{
		{
			name: "valid account",
			input: usecase.CreateAccountInput{
				Name:         "Main IOLTA",
				BankName:     "First National",
				Jurisdiction: "CA",
				Currency:     "USD",
			},
		},
		{
			name: "unsupported currency",
			input: usecase.CreateAccountInput{
				Name:     "Main IOLTA",
				Currency: "JPY",
			},
			errorType: domain.ErrInvalidCurrency,
		},
		{
			name: "empty name",
			input: usecase.CreateAccountInput{
				Name:     "   ",
				Currency: "USD",
			},
			errorType: domain.ErrInvalidName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAccountFixture()

			account, err := f.uc.CreateAccount(actorCtx("alice"), tt.input)

			if tt.errorType != nil {
				if !errors.Is(err, tt.errorType) {
					t.Fatalf("expected error %v, got %v", tt.errorType, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if account.Status != domain.AccountStatusActive {
				t.Errorf("expected active account, got %s", account.Status)
			}
			if !account.Balance.IsZero() {
				t.Errorf("new account must start at zero, got %s", account.Balance)
			}
			if len(f.auditRepo.Logs()) != 1 {
				t.Errorf("expected 1 audit entry, got %d", len(f.auditRepo.Logs()))
			}
		})
	}
}

func TestAccountUseCase_LedgerLifecycle(t *testing.T) {
	f := newAccountFixture()

	account, err := f.uc.CreateAccount(actorCtx("alice"), usecase.CreateAccountInput{
		Name: "Main IOLTA", Currency: "USD",
	})
	if err != nil {
		t.Fatalf("account create failed: %v", err)
	}

	ledger, err := f.uc.CreateLedger(actorCtx("alice"), usecase.CreateLedgerInput{
		AccountID: account.ID,
		Name:      "Smith v. Jones settlement",
		ClientRef: "CL-1001",
		MatterRef: "M-2026-014",
	})
	if err != nil {
		t.Fatalf("ledger create failed: %v", err)
	}
	if ledger.Status != domain.LedgerStatusActive {
		t.Errorf("expected active ledger, got %s", ledger.Status)
	}

	frozen, err := f.uc.FreezeLedger(actorCtx("alice"), ledger.ID, "court order")
	if err != nil {
		t.Fatalf("freeze failed: %v", err)
	}
	if frozen.Status != domain.LedgerStatusFrozen {
		t.Errorf("expected frozen, got %s", frozen.Status)
	}

	active, err := f.uc.UnfreezeLedger(actorCtx("alice"), ledger.ID, "order lifted")
	if err != nil {
		t.Fatalf("unfreeze failed: %v", err)
	}
	if active.Status != domain.LedgerStatusActive {
		t.Errorf("expected active, got %s", active.Status)
	}

	closed, err := f.uc.CloseLedger(actorCtx("alice"), ledger.ID, "matter concluded")
	if err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if closed.Status != domain.LedgerStatusClosed {
		t.Errorf("expected closed, got %s", closed.Status)
	}
}

func TestAccountUseCase_CloseLedgerRequiresZeroBalance(t *testing.T) {
	f := newAccountFixture()
	f.accountRepo.Create(context.Background(), &domain.TrustBankAccount{
		ID: "acc-1", Name: "Main IOLTA", Currency: "USD", Status: domain.AccountStatusActive,
	})
	f.ledgerRepo.Create(context.Background(), &domain.ClientTrustLedger{
		ID: "led-1", AccountID: "acc-1", Name: "Client",
		Balance: decimal.NewFromInt(50), Status: domain.LedgerStatusActive,
	})

	_, err := f.uc.CloseLedger(actorCtx("alice"), "led-1", "matter concluded")
	if !errors.Is(err, domain.ErrLedgerNotEmpty) {
		t.Fatalf("expected ledger-not-empty, got %v", err)
	}
}

func TestAccountUseCase_CreateLedgerOnClosedAccount(t *testing.T) {
	f := newAccountFixture()
	f.accountRepo.Create(context.Background(), &domain.TrustBankAccount{
		ID: "acc-1", Name: "Main IOLTA", Currency: "USD", Status: domain.AccountStatusClosed,
	})

	_, err := f.uc.CreateLedger(actorCtx("alice"), usecase.CreateLedgerInput{
		AccountID: "acc-1", Name: "Client",
	})
	if !errors.Is(err, domain.ErrAccountNotActive) {
		t.Fatalf("expected account-not-active, got %v", err)
	}
}

func TestAccountUseCase_CloseAccountRequiresClosedLedgers(t *testing.T) {
	f := newAccountFixture()
	f.accountRepo.Create(context.Background(), &domain.TrustBankAccount{
		ID: "acc-1", Name: "Main IOLTA", Currency: "USD", Status: domain.AccountStatusActive,
	})
	f.ledgerRepo.Create(context.Background(), &domain.ClientTrustLedger{
		ID: "led-1", AccountID: "acc-1", Name: "Client", Status: domain.LedgerStatusActive,
	})

	_, err := f.uc.CloseAccount(actorCtx("alice"), "acc-1")
	if !errors.Is(err, domain.ErrAccountNotEmpty) {
		t.Fatalf("expected account-not-empty, got %v", err)
	}

	if _, err := f.uc.CloseLedger(actorCtx("alice"), "led-1", "done"); err != nil {
		t.Fatalf("close ledger failed: %v", err)
	}
	account, err := f.uc.CloseAccount(actorCtx("alice"), "acc-1")
	if err != nil {
		t.Fatalf("close account failed: %v", err)
	}
	if account.Status != domain.AccountStatusClosed {
		t.Errorf("expected closed account, got %s", account.Status)
	}
}

func newCachedAccountFixture(t *testing.T, cache usecase.Cache) *accountFixture {
	t.Helper()
	f := &accountFixture{
		accountRepo: mocks.NewMockAccountRepository(),
		ledgerRepo:  mocks.NewMockLedgerRepository(),
		auditRepo:   mocks.NewMockAuditRepository(),
	}
	f.uc = usecase.NewAccountUseCase(
		mocks.NewMockTransactionManager(),
		f.accountRepo,
		f.ledgerRepo,
		f.auditRepo,
		mocks.NewMockIDGenerator("acc"),
		cache,
	)
	return f
}

func TestAccountUseCase_GetAccountServedFromCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockCache(ctrl)
	f := newCachedAccountFixture(t, cache)

	f.accountRepo.Create(context.Background(), &domain.TrustBankAccount{
		ID: "acc-1", Name: "Main IOLTA", Currency: "USD", Status: domain.AccountStatusActive,
	})

	// First lookup misses, reads the repository, and fills the cache.
	var cached []byte
	cache.EXPECT().Get(gomock.Any(), "account:acc-1").Return(nil, errors.New("redis: nil"))
	cache.EXPECT().Set(gomock.Any(), "account:acc-1", gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, value []byte, _ time.Duration) error {
			cached = value
			return nil
		})

	first, err := f.uc.GetAccount(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.ID != "acc-1" {
		t.Errorf("expected acc-1, got %s", first.ID)
	}

	// Second lookup is served entirely from the cached copy.
	f.accountRepo.GetByIDFunc = func(ctx context.Context, id string) (*domain.TrustBankAccount, error) {
		t.Error("cache hit must not fall through to the repository")
		return nil, domain.ErrAccountNotFound
	}
	cache.EXPECT().Get(gomock.Any(), "account:acc-1").
		DoAndReturn(func(context.Context, string) ([]byte, error) {
			return cached, nil
		})

	second, err := f.uc.GetAccount(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.ID != "acc-1" || second.Name != "Main IOLTA" || second.Status != domain.AccountStatusActive {
		t.Errorf("cached copy does not match the stored account: %+v", second)
	}
}

func TestAccountUseCase_CorruptCacheEntryFallsBack(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockCache(ctrl)
	f := newCachedAccountFixture(t, cache)

	f.ledgerRepo.Create(context.Background(), &domain.ClientTrustLedger{
		ID: "led-1", AccountID: "acc-1", Name: "Client", Status: domain.LedgerStatusActive,
	})

	cache.EXPECT().Get(gomock.Any(), "ledger:led-1").Return([]byte("{not json"), nil)
	cache.EXPECT().Set(gomock.Any(), "ledger:led-1", gomock.Any(), gomock.Any()).Return(nil)

	ledger, err := f.uc.GetLedger(context.Background(), "led-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ledger.ID != "led-1" {
		t.Errorf("expected led-1, got %s", ledger.ID)
	}
}

func TestAccountUseCase_LedgerStatusChangeEvictsCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockCache(ctrl)
	f := newCachedAccountFixture(t, cache)

	f.accountRepo.Create(context.Background(), &domain.TrustBankAccount{
		ID: "acc-1", Name: "Main IOLTA", Currency: "USD", Status: domain.AccountStatusActive,
	})
	f.ledgerRepo.Create(context.Background(), &domain.ClientTrustLedger{
		ID: "led-1", AccountID: "acc-1", Name: "Client", Status: domain.LedgerStatusActive,
	})

	cache.EXPECT().Delete(gomock.Any(), "ledger:led-1").Return(nil)

	if _, err := f.uc.FreezeLedger(actorCtx("alice"), "led-1", "court order"); err != nil {
		t.Fatalf("freeze failed: %v", err)
	}
}
