package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lexhq/trustledger/internal/domain"
)

// AccountRepository defines data access for trust bank accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.TrustBankAccount) error
	GetByID(ctx context.Context, id string) (*domain.TrustBankAccount, error)
	// GetByIDForUpdate takes the account row lock. The locked account row
	// is the unit of mutual exclusion for every balance-mutating
	// operation on the account and its ledgers.
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.TrustBankAccount, error)
	UpdateBalance(ctx context.Context, tx Transaction, id string, balance decimal.Decimal, updatedAt time.Time) error
	UpdateStatus(ctx context.Context, tx Transaction, id string, status domain.AccountStatus, updatedAt time.Time) error
	List(ctx context.Context, limit, offset int) ([]*domain.TrustBankAccount, error)
}

// LedgerRepository defines data access for client trust ledgers.
type LedgerRepository interface {
	Create(ctx context.Context, ledger *domain.ClientTrustLedger) error
	GetByID(ctx context.Context, id string) (*domain.ClientTrustLedger, error)
	GetByIDTx(ctx context.Context, tx Transaction, id string) (*domain.ClientTrustLedger, error)
	GetByIDsTx(ctx context.Context, tx Transaction, ids []string) ([]*domain.ClientTrustLedger, error)
	UpdateBalance(ctx context.Context, tx Transaction, id string, balance decimal.Decimal, updatedAt time.Time) error
	UpdateStatus(ctx context.Context, tx Transaction, id string, status domain.LedgerStatus, updatedAt time.Time) error
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.ClientTrustLedger, error)
	// SumBalances sums the balances of all non-closed ledgers on an account.
	SumBalances(ctx context.Context, accountID string) (decimal.Decimal, error)
}

// TransactionRepository defines data access for trust transactions and
// their allocation lines.
type TransactionRepository interface {
	Create(ctx context.Context, tx Transaction, txn *domain.TrustTransaction) error
	GetByID(ctx context.Context, id string) (*domain.TrustTransaction, error)
	GetByIDTx(ctx context.Context, tx Transaction, id string) (*domain.TrustTransaction, error)
	GetByTransferGroup(ctx context.Context, tx Transaction, groupID string) ([]*domain.TrustTransaction, error)
	MarkApproved(ctx context.Context, tx Transaction, id, approvedBy string, balanceBefore, balanceAfter decimal.Decimal, postedAt time.Time) error
	MarkRejected(ctx context.Context, tx Transaction, id, rejectedBy, reason string, at time.Time) error
	MarkVoided(ctx context.Context, tx Transaction, id string, void domain.VoidInfo) error
	SetLineBalanceAfter(ctx context.Context, tx Transaction, lineID string, balanceAfter decimal.Decimal) error
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.TrustTransaction, error)
	ListByLedger(ctx context.Context, ledgerID string, limit, offset int) ([]*domain.TrustTransaction, error)
	// AccountBalanceAsOf sums posted allocation activity on the account up
	// to the cut time, from committed history only.
	AccountBalanceAsOf(ctx context.Context, accountID string, at time.Time) (decimal.Decimal, error)
	// LedgerSumAsOf is the same cut computed per ledger and summed.
	LedgerSumAsOf(ctx context.Context, accountID string, at time.Time) (decimal.Decimal, error)
}

// EarnedFeeRepository defines data access for earned-fee events.
type EarnedFeeRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.EarnedFeeEvent) error
	GetByTransaction(ctx context.Context, transactionID string) (*domain.EarnedFeeEvent, error)
	ListByLedger(ctx context.Context, ledgerID string, limit, offset int) ([]*domain.EarnedFeeEvent, error)
}

// ReconciliationRepository defines data access for reconciliation records.
type ReconciliationRepository interface {
	Create(ctx context.Context, record *domain.ReconciliationRecord) error
	GetByID(ctx context.Context, id string) (*domain.ReconciliationRecord, error)
	Approve(ctx context.Context, id, approvedBy string, at time.Time) error
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.ReconciliationRecord, error)
}

// AuditRepository defines data access for the append-only audit trail.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.TrustAuditLog) error
	CreateTx(ctx context.Context, tx Transaction, log *domain.TrustAuditLog) error
	List(ctx context.Context, filter domain.AuditFilter) ([]*domain.TrustAuditLog, error)
	GetByResourceID(ctx context.Context, resourceType, resourceID string) ([]*domain.TrustAuditLog, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	DeletePublished(ctx context.Context, before time.Time) error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Retrier reruns an operation after a transient database failure, such
// as a serialization failure or a deadlock between two account locks.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
}
