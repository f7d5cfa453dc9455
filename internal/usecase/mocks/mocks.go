package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lexhq/trustledger/internal/domain"
	"github.com/lexhq/trustledger/internal/usecase"
)

// MockAccountRepository is an in-memory AccountRepository.
type MockAccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]*domain.TrustBankAccount

	CreateFunc           func(ctx context.Context, account *domain.TrustBankAccount) error
	GetByIDFunc          func(ctx context.Context, id string) (*domain.TrustBankAccount, error)
	GetByIDForUpdateFunc func(ctx context.Context, tx usecase.Transaction, id string) (*domain.TrustBankAccount, error)
	UpdateBalanceFunc    func(ctx context.Context, tx usecase.Transaction, id string, balance decimal.Decimal, updatedAt time.Time) error
	UpdateStatusFunc     func(ctx context.Context, tx usecase.Transaction, id string, status domain.AccountStatus, updatedAt time.Time) error
	ListFunc             func(ctx context.Context, limit, offset int) ([]*domain.TrustBankAccount, error)
}

func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{
		accounts: make(map[string]*domain.TrustBankAccount),
	}
}

func (m *MockAccountRepository) Create(ctx context.Context, account *domain.TrustBankAccount) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, account)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.ID] = account
	return nil
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*domain.TrustBankAccount, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if acc, ok := m.accounts[id]; ok {
		return acc, nil
	}
	return nil, domain.ErrAccountNotFound
}

func (m *MockAccountRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.TrustBankAccount, error) {
	if m.GetByIDForUpdateFunc != nil {
		return m.GetByIDForUpdateFunc(ctx, tx, id)
	}
	return m.GetByID(ctx, id)
}

func (m *MockAccountRepository) UpdateBalance(ctx context.Context, tx usecase.Transaction, id string, balance decimal.Decimal, updatedAt time.Time) error {
	if m.UpdateBalanceFunc != nil {
		return m.UpdateBalanceFunc(ctx, tx, id, balance, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if acc, ok := m.accounts[id]; ok {
		acc.Balance = balance
		acc.Version++
		acc.UpdatedAt = updatedAt
	}
	return nil
}

func (m *MockAccountRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, id string, status domain.AccountStatus, updatedAt time.Time) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, tx, id, status, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if acc, ok := m.accounts[id]; ok {
		acc.Status = status
		acc.Version++
		acc.UpdatedAt = updatedAt
	}
	return nil
}

func (m *MockAccountRepository) List(ctx context.Context, limit, offset int) ([]*domain.TrustBankAccount, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var accounts []*domain.TrustBankAccount
	for _, acc := range m.accounts {
		accounts = append(accounts, acc)
	}
	return accounts, nil
}

// MockLedgerRepository is an in-memory LedgerRepository.
type MockLedgerRepository struct {
	mu      sync.RWMutex
	ledgers map[string]*domain.ClientTrustLedger

	CreateFunc        func(ctx context.Context, ledger *domain.ClientTrustLedger) error
	GetByIDFunc       func(ctx context.Context, id string) (*domain.ClientTrustLedger, error)
	UpdateBalanceFunc func(ctx context.Context, tx usecase.Transaction, id string, balance decimal.Decimal, updatedAt time.Time) error
	SumBalancesFunc   func(ctx context.Context, accountID string) (decimal.Decimal, error)
}

func NewMockLedgerRepository() *MockLedgerRepository {
	return &MockLedgerRepository{
		ledgers: make(map[string]*domain.ClientTrustLedger),
	}
}

func (m *MockLedgerRepository) Create(ctx context.Context, ledger *domain.ClientTrustLedger) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, ledger)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ledgers[ledger.ID] = ledger
	return nil
}

func (m *MockLedgerRepository) GetByID(ctx context.Context, id string) (*domain.ClientTrustLedger, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if l, ok := m.ledgers[id]; ok {
		return l, nil
	}
	return nil, domain.ErrLedgerNotFound
}

func (m *MockLedgerRepository) GetByIDTx(ctx context.Context, tx usecase.Transaction, id string) (*domain.ClientTrustLedger, error) {
	return m.GetByID(ctx, id)
}

func (m *MockLedgerRepository) GetByIDsTx(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.ClientTrustLedger, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ledgers []*domain.ClientTrustLedger
	for _, id := range ids {
		if l, ok := m.ledgers[id]; ok {
			ledgers = append(ledgers, l)
		}
	}
	return ledgers, nil
}

func (m *MockLedgerRepository) UpdateBalance(ctx context.Context, tx usecase.Transaction, id string, balance decimal.Decimal, updatedAt time.Time) error {
	if m.UpdateBalanceFunc != nil {
		return m.UpdateBalanceFunc(ctx, tx, id, balance, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.ledgers[id]; ok {
		l.Balance = balance
		l.Version++
		l.UpdatedAt = updatedAt
	}
	return nil
}

func (m *MockLedgerRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, id string, status domain.LedgerStatus, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.ledgers[id]; ok {
		l.Status = status
		l.Version++
		l.UpdatedAt = updatedAt
	}
	return nil
}

func (m *MockLedgerRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.ClientTrustLedger, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ledgers []*domain.ClientTrustLedger
	for _, l := range m.ledgers {
		if l.AccountID == accountID {
			ledgers = append(ledgers, l)
		}
	}
	return ledgers, nil
}

func (m *MockLedgerRepository) SumBalances(ctx context.Context, accountID string) (decimal.Decimal, error) {
	if m.SumBalancesFunc != nil {
		return m.SumBalancesFunc(ctx, accountID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	sum := decimal.Zero
	for _, l := range m.ledgers {
		if l.AccountID == accountID && l.Status != domain.LedgerStatusClosed {
			sum = sum.Add(l.Balance)
		}
	}
	return sum, nil
}

// MockTransactionRepository is an in-memory TransactionRepository.
type MockTransactionRepository struct {
	mu   sync.RWMutex
	txns map[string]*domain.TrustTransaction
	keys map[string]bool

	CreateFunc              func(ctx context.Context, tx usecase.Transaction, txn *domain.TrustTransaction) error
	GetByIDFunc             func(ctx context.Context, id string) (*domain.TrustTransaction, error)
	MarkApprovedFunc        func(ctx context.Context, tx usecase.Transaction, id, approvedBy string, balanceBefore, balanceAfter decimal.Decimal, postedAt time.Time) error
	AccountBalanceAsOfFunc  func(ctx context.Context, accountID string, at time.Time) (decimal.Decimal, error)
	LedgerSumAsOfFunc       func(ctx context.Context, accountID string, at time.Time) (decimal.Decimal, error)
	SetLineBalanceAfterFunc func(ctx context.Context, tx usecase.Transaction, lineID string, balanceAfter decimal.Decimal) error
}

func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{
		txns: make(map[string]*domain.TrustTransaction),
		keys: make(map[string]bool),
	}
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx usecase.Transaction, txn *domain.TrustTransaction) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, txn)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if txn.IdempotencyKey != nil {
		if m.keys[*txn.IdempotencyKey] {
			return domain.ErrDuplicateSubmission
		}
		m.keys[*txn.IdempotencyKey] = true
	}
	m.txns[txn.ID] = txn
	return nil
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id string) (*domain.TrustTransaction, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t, ok := m.txns[id]; ok {
		return t, nil
	}
	return nil, domain.ErrTransactionNotFound
}

func (m *MockTransactionRepository) GetByIDTx(ctx context.Context, tx usecase.Transaction, id string) (*domain.TrustTransaction, error) {
	return m.GetByID(ctx, id)
}

func (m *MockTransactionRepository) GetByTransferGroup(ctx context.Context, tx usecase.Transaction, groupID string) ([]*domain.TrustTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var txns []*domain.TrustTransaction
	for _, t := range m.txns {
		if t.TransferGroupID != nil && *t.TransferGroupID == groupID {
			txns = append(txns, t)
		}
	}
	return txns, nil
}

func (m *MockTransactionRepository) MarkApproved(ctx context.Context, tx usecase.Transaction, id, approvedBy string, balanceBefore, balanceAfter decimal.Decimal, postedAt time.Time) error {
	if m.MarkApprovedFunc != nil {
		return m.MarkApprovedFunc(ctx, tx, id, approvedBy, balanceBefore, balanceAfter, postedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.txns[id]
	if !ok {
		return domain.ErrTransactionNotFound
	}
	if t.Status != domain.TransactionStatusPending {
		return domain.ErrTransactionNotApprovable
	}
	t.Status = domain.TransactionStatusApproved
	t.ApprovedBy = &approvedBy
	t.AccountBalanceBefore = &balanceBefore
	t.AccountBalanceAfter = &balanceAfter
	t.PostedAt = &postedAt
	t.UpdatedAt = postedAt
	return nil
}

func (m *MockTransactionRepository) MarkRejected(ctx context.Context, tx usecase.Transaction, id, rejectedBy, reason string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.txns[id]
	if !ok {
		return domain.ErrTransactionNotFound
	}
	if t.Status != domain.TransactionStatusPending {
		return domain.ErrTransactionNotApprovable
	}
	t.Status = domain.TransactionStatusRejected
	t.RejectedBy = &rejectedBy
	t.RejectReason = reason
	t.UpdatedAt = at
	return nil
}

func (m *MockTransactionRepository) MarkVoided(ctx context.Context, tx usecase.Transaction, id string, void domain.VoidInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.txns[id]
	if !ok {
		return domain.ErrTransactionNotFound
	}
	if t.Status != domain.TransactionStatusApproved {
		return domain.ErrTransactionNotVoidable
	}
	t.Status = domain.TransactionStatusVoided
	t.Void = &void
	t.UpdatedAt = void.VoidedAt
	return nil
}

func (m *MockTransactionRepository) SetLineBalanceAfter(ctx context.Context, tx usecase.Transaction, lineID string, balanceAfter decimal.Decimal) error {
	if m.SetLineBalanceAfterFunc != nil {
		return m.SetLineBalanceAfterFunc(ctx, tx, lineID, balanceAfter)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.txns {
		for i := range t.Lines {
			if t.Lines[i].ID == lineID {
				b := balanceAfter
				t.Lines[i].LedgerBalanceAfter = &b
				return nil
			}
		}
	}
	return nil
}

func (m *MockTransactionRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.TrustTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var txns []*domain.TrustTransaction
	for _, t := range m.txns {
		if t.AccountID == accountID {
			txns = append(txns, t)
		}
	}
	return txns, nil
}

func (m *MockTransactionRepository) ListByLedger(ctx context.Context, ledgerID string, limit, offset int) ([]*domain.TrustTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var txns []*domain.TrustTransaction
	for _, t := range m.txns {
		for _, line := range t.Lines {
			if line.LedgerID == ledgerID {
				txns = append(txns, t)
				break
			}
		}
	}
	return txns, nil
}

func (m *MockTransactionRepository) AccountBalanceAsOf(ctx context.Context, accountID string, at time.Time) (decimal.Decimal, error) {
	if m.AccountBalanceAsOfFunc != nil {
		return m.AccountBalanceAsOfFunc(ctx, accountID, at)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	sum := decimal.Zero
	for _, t := range m.txns {
		if t.AccountID != accountID || t.PostedAt == nil || t.PostedAt.After(at) {
			continue
		}
		if t.Status != domain.TransactionStatusApproved && t.Status != domain.TransactionStatusVoided {
			continue
		}
		sum = sum.Add(t.Amount.Mul(decimal.NewFromInt(t.EffectiveDirection())))
	}
	return sum, nil
}

func (m *MockTransactionRepository) LedgerSumAsOf(ctx context.Context, accountID string, at time.Time) (decimal.Decimal, error) {
	if m.LedgerSumAsOfFunc != nil {
		return m.LedgerSumAsOfFunc(ctx, accountID, at)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	sum := decimal.Zero
	for _, t := range m.txns {
		if t.AccountID != accountID || t.PostedAt == nil || t.PostedAt.After(at) {
			continue
		}
		if t.Status != domain.TransactionStatusApproved && t.Status != domain.TransactionStatusVoided {
			continue
		}
		for _, line := range t.Lines {
			sum = sum.Add(line.Amount)
		}
	}
	return sum, nil
}

// MockEarnedFeeRepository is an in-memory EarnedFeeRepository.
type MockEarnedFeeRepository struct {
	mu     sync.RWMutex
	events map[string]*domain.EarnedFeeEvent

	CreateFunc func(ctx context.Context, tx usecase.Transaction, event *domain.EarnedFeeEvent) error
}

func NewMockEarnedFeeRepository() *MockEarnedFeeRepository {
	return &MockEarnedFeeRepository{
		events: make(map[string]*domain.EarnedFeeEvent),
	}
}

func (m *MockEarnedFeeRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.EarnedFeeEvent) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, event)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[event.ID] = event
	return nil
}

func (m *MockEarnedFeeRepository) GetByTransaction(ctx context.Context, transactionID string) (*domain.EarnedFeeEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.events {
		if e.TransactionID == transactionID {
			return e, nil
		}
	}
	return nil, domain.ErrTransactionNotFound
}

func (m *MockEarnedFeeRepository) ListByLedger(ctx context.Context, ledgerID string, limit, offset int) ([]*domain.EarnedFeeEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var events []*domain.EarnedFeeEvent
	for _, e := range m.events {
		if e.LedgerID == ledgerID {
			events = append(events, e)
		}
	}
	return events, nil
}

// MockReconciliationRepository is an in-memory ReconciliationRepository.
type MockReconciliationRepository struct {
	mu      sync.RWMutex
	records map[string]*domain.ReconciliationRecord

	CreateFunc func(ctx context.Context, record *domain.ReconciliationRecord) error
}

func NewMockReconciliationRepository() *MockReconciliationRepository {
	return &MockReconciliationRepository{
		records: make(map[string]*domain.ReconciliationRecord),
	}
}

func (m *MockReconciliationRepository) Create(ctx context.Context, record *domain.ReconciliationRecord) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, record)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.ID] = record
	return nil
}

func (m *MockReconciliationRepository) GetByID(ctx context.Context, id string) (*domain.ReconciliationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.records[id]; ok {
		return r, nil
	}
	return nil, domain.ErrReconciliationNotFound
}

func (m *MockReconciliationRepository) Approve(ctx context.Context, id, approvedBy string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return domain.ErrReconciliationNotFound
	}
	if r.ApprovedBy != nil {
		return domain.ErrReconciliationApproved
	}
	r.ApprovedBy = &approvedBy
	r.ApprovedAt = &at
	return nil
}

func (m *MockReconciliationRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.ReconciliationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var records []*domain.ReconciliationRecord
	for _, r := range m.records {
		if r.AccountID == accountID {
			records = append(records, r)
		}
	}
	return records, nil
}

// MockAuditRepository is an in-memory AuditRepository.
type MockAuditRepository struct {
	mu   sync.RWMutex
	logs []*domain.TrustAuditLog
}

func NewMockAuditRepository() *MockAuditRepository {
	return &MockAuditRepository{}
}

func (m *MockAuditRepository) Create(ctx context.Context, log *domain.TrustAuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, log)
	return nil
}

func (m *MockAuditRepository) CreateTx(ctx context.Context, tx usecase.Transaction, log *domain.TrustAuditLog) error {
	return m.Create(ctx, log)
}

func (m *MockAuditRepository) List(ctx context.Context, filter domain.AuditFilter) ([]*domain.TrustAuditLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var logs []*domain.TrustAuditLog
	for _, l := range m.logs {
		if filter.Action != "" && l.Action != filter.Action {
			continue
		}
		if filter.ResourceType != "" && l.ResourceType != filter.ResourceType {
			continue
		}
		if filter.ResourceID != "" && l.ResourceID != filter.ResourceID {
			continue
		}
		logs = append(logs, l)
	}
	return logs, nil
}

func (m *MockAuditRepository) GetByResourceID(ctx context.Context, resourceType, resourceID string) ([]*domain.TrustAuditLog, error) {
	return m.List(ctx, domain.AuditFilter{ResourceType: resourceType, ResourceID: resourceID})
}

// Logs returns a snapshot of recorded audit entries.
func (m *MockAuditRepository) Logs() []*domain.TrustAuditLog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*domain.TrustAuditLog(nil), m.logs...)
}

// MockOutboxRepository is an in-memory OutboxRepository.
type MockOutboxRepository struct {
	mu     sync.RWMutex
	events []*domain.OutboxEvent
}

func NewMockOutboxRepository() *MockOutboxRepository {
	return &MockOutboxRepository{}
}

func (m *MockOutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *MockOutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var events []*domain.OutboxEvent
	for _, e := range m.events {
		if !e.Published {
			events = append(events, e)
		}
	}
	return events, nil
}

func (m *MockOutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.ID == id {
			e.Published = true
			e.PublishedAt = &publishedAt
		}
	}
	return nil
}

func (m *MockOutboxRepository) DeletePublished(ctx context.Context, before time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []*domain.OutboxEvent
	for _, e := range m.events {
		if !e.Published || e.PublishedAt == nil || !e.PublishedAt.Before(before) {
			kept = append(kept, e)
		}
	}
	m.events = kept
	return nil
}

// Events returns a snapshot of recorded outbox events.
func (m *MockOutboxRepository) Events() []*domain.OutboxEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*domain.OutboxEvent(nil), m.events...)
}

// MockTransaction is a no-op database transaction.
type MockTransaction struct {
	Committed  bool
	RolledBack bool
}

func (t *MockTransaction) Commit(ctx context.Context) error {
	t.Committed = true
	return nil
}

func (t *MockTransaction) Rollback(ctx context.Context) error {
	if !t.Committed {
		t.RolledBack = true
	}
	return nil
}

// MockTransactionManager hands out MockTransactions.
type MockTransactionManager struct {
	mu           sync.Mutex
	Transactions []*MockTransaction

	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &MockTransaction{}
	m.Transactions = append(m.Transactions, tx)
	return tx, nil
}

// MockIDGenerator generates deterministic sequential IDs.
type MockIDGenerator struct {
	mu     sync.Mutex
	prefix string
	seq    int
}

func NewMockIDGenerator(prefix string) *MockIDGenerator {
	return &MockIDGenerator{prefix: prefix}
}

func (g *MockIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("%s-%04d", g.prefix, g.seq)
}
