package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lexhq/trustledger/internal/domain"
)

// lookupCacheTTL bounds how stale a cached account or ledger lookup
// can get. Balance-mutating paths read under the account row lock and
// never through the cache.
const lookupCacheTTL = 30 * time.Second

// AccountUseCase handles administrative lifecycle operations on trust
// accounts and client ledgers. Accounts and ledgers are created
// explicitly and closed explicitly, never deleted.
type AccountUseCase struct {
	txManager   TransactionManager
	accountRepo AccountRepository
	ledgerRepo  LedgerRepository
	auditRepo   AuditRepository
	idGen       IDGenerator
	cache       Cache
}

// NewAccountUseCase creates a new AccountUseCase. A nil cache disables
// read-side caching.
func NewAccountUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	ledgerRepo LedgerRepository,
	auditRepo AuditRepository,
	idGen IDGenerator,
	cache Cache,
) *AccountUseCase {
	return &AccountUseCase{
		txManager:   txManager,
		accountRepo: accountRepo,
		ledgerRepo:  ledgerRepo,
		auditRepo:   auditRepo,
		idGen:       idGen,
		cache:       cache,
	}
}

func accountCacheKey(id string) string { return "account:" + id }

func ledgerCacheKey(id string) string { return "ledger:" + id }

// CreateAccountInput represents input for creating a trust account.
type CreateAccountInput struct {
	Name         string
	BankName     string
	Jurisdiction string
	Currency     string
}

// CreateAccount creates a new trust bank account with a zero balance.
func (uc *AccountUseCase) CreateAccount(ctx context.Context, input CreateAccountInput) (*domain.TrustBankAccount, error) {
	if err := domain.ValidateName(input.Name); err != nil {
		return nil, err
	}
	if err := domain.ValidateCurrency(input.Currency); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	account := &domain.TrustBankAccount{
		ID:           uc.idGen.Generate(),
		Name:         input.Name,
		BankName:     input.BankName,
		Jurisdiction: input.Jurisdiction,
		Currency:     input.Currency,
		Status:       domain.AccountStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := uc.accountRepo.Create(ctx, account); err != nil {
		return nil, err
	}

	audit := newAuditLog(ctx, uc.idGen, domain.AuditActionAccountCreate, domain.AggregateTypeAccount, account.ID, nil, account, "")
	if err := uc.auditRepo.Create(ctx, audit); err != nil {
		return nil, err
	}

	return account, nil
}

// GetAccount retrieves a trust account by ID, serving from the cache
// when it holds a fresh copy.
func (uc *AccountUseCase) GetAccount(ctx context.Context, id string) (*domain.TrustBankAccount, error) {
	if uc.cache != nil {
		if data, err := uc.cache.Get(ctx, accountCacheKey(id)); err == nil {
			var account domain.TrustBankAccount
			if err := json.Unmarshal(data, &account); err == nil {
				return &account, nil
			}
		}
	}

	account, err := uc.accountRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if uc.cache != nil {
		if data, err := json.Marshal(account); err == nil {
			_ = uc.cache.Set(ctx, accountCacheKey(id), data, lookupCacheTTL)
		}
	}

	return account, nil
}

// ListAccounts lists trust accounts with pagination.
func (uc *AccountUseCase) ListAccounts(ctx context.Context, limit, offset int) ([]*domain.TrustBankAccount, error) {
	limit, offset = domain.ValidatePagination(limit, offset)
	return uc.accountRepo.List(ctx, limit, offset)
}

// CloseAccount closes a trust account. Every ledger on it must already
// be closed so no client funds are stranded.
func (uc *AccountUseCase) CloseAccount(ctx context.Context, id string) (*domain.TrustBankAccount, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	account, err := uc.accountRepo.GetByIDForUpdate(txCtx, tx, id)
	if err != nil {
		return nil, err
	}

	ledgers, err := uc.ledgerRepo.ListByAccount(txCtx, account.ID, 10000, 0)
	if err != nil {
		return nil, err
	}
	for _, ledger := range ledgers {
		if ledger.Status != domain.LedgerStatusClosed {
			return nil, fmt.Errorf("%w: ledger %s is %s", domain.ErrAccountNotEmpty, ledger.ID, ledger.Status)
		}
	}

	now := time.Now().UTC()
	before := *account
	if err := uc.accountRepo.UpdateStatus(txCtx, tx, account.ID, domain.AccountStatusClosed, now); err != nil {
		return nil, err
	}
	account.Status = domain.AccountStatusClosed

	audit := newAuditLog(ctx, uc.idGen, domain.AuditActionAccountClose, domain.AggregateTypeAccount, account.ID, before, account, "")
	if err := uc.auditRepo.CreateTx(txCtx, tx, audit); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	if uc.cache != nil {
		_ = uc.cache.Delete(ctx, accountCacheKey(account.ID))
	}

	return account, nil
}

// CreateLedgerInput represents input for creating a client ledger.
type CreateLedgerInput struct {
	AccountID string
	Name      string
	ClientRef string
	MatterRef string
}

// CreateLedger opens a subsidiary ledger on a trust account.
func (uc *AccountUseCase) CreateLedger(ctx context.Context, input CreateLedgerInput) (*domain.ClientTrustLedger, error) {
	if err := domain.ValidateName(input.Name); err != nil {
		return nil, err
	}

	account, err := uc.accountRepo.GetByID(ctx, input.AccountID)
	if err != nil {
		return nil, err
	}
	if err := account.ValidatePosting(); err != nil {
		return nil, fmt.Errorf("%w: account %s is %s", err, account.ID, account.Status)
	}

	now := time.Now().UTC()
	ledger := &domain.ClientTrustLedger{
		ID:        uc.idGen.Generate(),
		AccountID: account.ID,
		Name:      input.Name,
		ClientRef: input.ClientRef,
		MatterRef: input.MatterRef,
		Status:    domain.LedgerStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := uc.ledgerRepo.Create(ctx, ledger); err != nil {
		return nil, err
	}

	audit := newAuditLog(ctx, uc.idGen, domain.AuditActionLedgerCreate, domain.AggregateTypeLedger, ledger.ID, nil, ledger, "")
	if err := uc.auditRepo.Create(ctx, audit); err != nil {
		return nil, err
	}

	return ledger, nil
}

// GetLedger retrieves a client ledger by ID, serving from the cache
// when it holds a fresh copy.
func (uc *AccountUseCase) GetLedger(ctx context.Context, id string) (*domain.ClientTrustLedger, error) {
	if uc.cache != nil {
		if data, err := uc.cache.Get(ctx, ledgerCacheKey(id)); err == nil {
			var ledger domain.ClientTrustLedger
			if err := json.Unmarshal(data, &ledger); err == nil {
				return &ledger, nil
			}
		}
	}

	ledger, err := uc.ledgerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if uc.cache != nil {
		if data, err := json.Marshal(ledger); err == nil {
			_ = uc.cache.Set(ctx, ledgerCacheKey(id), data, lookupCacheTTL)
		}
	}

	return ledger, nil
}

// ListLedgers lists the ledgers on a trust account.
func (uc *AccountUseCase) ListLedgers(ctx context.Context, accountID string, limit, offset int) ([]*domain.ClientTrustLedger, error) {
	limit, offset = domain.ValidatePagination(limit, offset)
	return uc.ledgerRepo.ListByAccount(ctx, accountID, limit, offset)
}

// FreezeLedger freezes a ledger: deposits still land, withdrawals stop.
func (uc *AccountUseCase) FreezeLedger(ctx context.Context, id, reason string) (*domain.ClientTrustLedger, error) {
	return uc.setLedgerStatus(ctx, id, domain.LedgerStatusFrozen, domain.AuditActionLedgerFreeze, reason)
}

// UnfreezeLedger returns a frozen ledger to active.
func (uc *AccountUseCase) UnfreezeLedger(ctx context.Context, id, reason string) (*domain.ClientTrustLedger, error) {
	return uc.setLedgerStatus(ctx, id, domain.LedgerStatusActive, domain.AuditActionLedgerUnfreeze, reason)
}

// CloseLedger closes a ledger. The balance must be zero.
func (uc *AccountUseCase) CloseLedger(ctx context.Context, id, reason string) (*domain.ClientTrustLedger, error) {
	ledger, err := uc.ledgerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ledger.CanClose(); err != nil {
		return nil, fmt.Errorf("%w: ledger %s holds %s", err, ledger.ID, ledger.Balance)
	}

	return uc.setLedgerStatus(ctx, id, domain.LedgerStatusClosed, domain.AuditActionLedgerClose, reason)
}

func (uc *AccountUseCase) setLedgerStatus(ctx context.Context, id string, status domain.LedgerStatus, action domain.AuditAction, reason string) (*domain.ClientTrustLedger, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	ledger, err := uc.ledgerRepo.GetByIDTx(txCtx, tx, id)
	if err != nil {
		return nil, err
	}

	// Status changes serialize against postings on the same account.
	if _, err := uc.accountRepo.GetByIDForUpdate(txCtx, tx, ledger.AccountID); err != nil {
		return nil, err
	}

	// Re-check the zero-balance closure rule under the lock.
	if status == domain.LedgerStatusClosed {
		ledger, err = uc.ledgerRepo.GetByIDTx(txCtx, tx, id)
		if err != nil {
			return nil, err
		}
		if err := ledger.CanClose(); err != nil {
			return nil, fmt.Errorf("%w: ledger %s holds %s", err, ledger.ID, ledger.Balance)
		}
	}

	now := time.Now().UTC()
	before := *ledger
	if err := uc.ledgerRepo.UpdateStatus(txCtx, tx, ledger.ID, status, now); err != nil {
		return nil, err
	}
	ledger.Status = status
	ledger.UpdatedAt = now

	audit := newAuditLog(ctx, uc.idGen, action, domain.AggregateTypeLedger, ledger.ID, before, ledger, reason)
	if err := uc.auditRepo.CreateTx(txCtx, tx, audit); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	if uc.cache != nil {
		_ = uc.cache.Delete(ctx, ledgerCacheKey(ledger.ID))
	}

	return ledger, nil
}
