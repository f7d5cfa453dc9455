package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lexhq/trustledger/internal/domain"
	"github.com/lexhq/trustledger/internal/infrastructure/metrics"
)

// PostingUseCase posts deposits, withdrawals, and transfers against a
// trust account. Deposits apply their balance effect immediately;
// withdrawals and transfers persist as pending and touch no balance
// until the approval workflow commits them.
type PostingUseCase struct {
	txManager   TransactionManager
	accountRepo AccountRepository
	ledgerRepo  LedgerRepository
	txRepo      TransactionRepository
	outboxRepo  OutboxRepository
	auditRepo   AuditRepository
	idGen       IDGenerator
	retrier     Retrier
	metrics     *metrics.Metrics
}

// NewPostingUseCase creates a new PostingUseCase.
func NewPostingUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	ledgerRepo LedgerRepository,
	txRepo TransactionRepository,
	outboxRepo OutboxRepository,
	auditRepo AuditRepository,
	idGen IDGenerator,
	retrier Retrier,
	metrics *metrics.Metrics,
) *PostingUseCase {
	return &PostingUseCase{
		txManager:   txManager,
		accountRepo: accountRepo,
		ledgerRepo:  ledgerRepo,
		txRepo:      txRepo,
		outboxRepo:  outboxRepo,
		auditRepo:   auditRepo,
		idGen:       idGen,
		retrier:     retrier,
		metrics:     metrics,
	}
}

// PostDepositInput represents a bank-level deposit split across client ledgers.
type PostDepositInput struct {
	AccountID      string
	Type           domain.TransactionType
	Amount         decimal.Decimal
	Payor          string
	Payee          string
	Description    string
	CheckRef       string
	IdempotencyKey string
	Allocations    []domain.AllocationRequest
}

// PostDeposit posts a deposit or interest credit. Money entering trust
// does not require a second approver, so the transaction is approved
// and balances apply atomically with the snapshots.
func (uc *PostingUseCase) PostDeposit(ctx context.Context, input PostDepositInput) (*domain.TrustTransaction, error) {
	start := time.Now()

	txType := input.Type
	if txType == "" {
		txType = domain.TransactionTypeDeposit
	}
	if txType.Direction() < 0 {
		return nil, domain.ErrInvalidTransactionType
	}

	var txn *domain.TrustTransaction
	err := withRetry(ctx, uc.retrier, func() error {
		var opErr error
		txn, opErr = uc.postDepositOnce(ctx, input, txType)
		return opErr
	})
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.DepositsPosted.Inc()
		uc.metrics.PostingDuration.Observe(time.Since(start).Seconds())
	}

	return txn, nil
}

// postDepositOnce runs one attempt of the deposit transaction.
func (uc *PostingUseCase) postDepositOnce(ctx context.Context, input PostDepositInput, txType domain.TransactionType) (*domain.TrustTransaction, error) {
	txn := uc.newTransaction(ctx, input.AccountID, txType, input.Amount, input.Payor, input.Payee, input.Description, input.CheckRef, input.IdempotencyKey)
	if err := txn.Validate(); err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	// The account row lock serializes every balance mutation on the
	// account and all its ledgers.
	account, err := uc.accountRepo.GetByIDForUpdate(txCtx, tx, input.AccountID)
	if err != nil {
		return nil, err
	}
	if err := account.ValidatePosting(); err != nil {
		return nil, fmt.Errorf("%w: account %s is %s", err, account.ID, account.Status)
	}

	ledgers, err := uc.ledgersForAllocations(txCtx, tx, input.Allocations)
	if err != nil {
		return nil, err
	}

	lines, err := domain.BuildAllocations(txType, input.Amount, input.Allocations, ledgers, account.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	balanceBefore := account.Balance
	balanceAfter := account.ApplyCredit(input.Amount)
	txn.Status = domain.TransactionStatusApproved
	txn.AccountBalanceBefore = &balanceBefore
	txn.AccountBalanceAfter = &balanceAfter
	txn.PostedAt = &now

	for i := range lines {
		ledger := ledgers[lines[i].LedgerID]
		if err := ledger.ValidateCredit(); err != nil {
			return nil, fmt.Errorf("%w: ledger %s is %s", err, ledger.ID, ledger.Status)
		}

		newBalance := ledger.ApplyCredit(lines[i].Amount)
		lines[i].ID = uc.idGen.Generate()
		lines[i].TransactionID = txn.ID
		lines[i].LedgerBalanceAfter = &newBalance
		lines[i].CreatedAt = now

		if err := uc.ledgerRepo.UpdateBalance(txCtx, tx, ledger.ID, newBalance, now); err != nil {
			return nil, err
		}
		ledger.Balance = newBalance
	}
	txn.Lines = lines

	if err := uc.txRepo.Create(txCtx, tx, txn); err != nil {
		return nil, err
	}

	if err := uc.accountRepo.UpdateBalance(txCtx, tx, account.ID, balanceAfter, now); err != nil {
		return nil, err
	}

	if err := uc.emitEvent(txCtx, tx, txn, domain.EventTypeDepositPosted, now); err != nil {
		return nil, err
	}

	audit := newAuditLog(ctx, uc.idGen, domain.AuditActionDepositPost, domain.AggregateTypeTransaction, txn.ID, nil, txn, "")
	if err := uc.auditRepo.CreateTx(txCtx, tx, audit); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	return txn, nil
}

// PostWithdrawalInput represents a single-ledger withdrawal request.
type PostWithdrawalInput struct {
	AccountID      string
	LedgerID       string
	Type           domain.TransactionType
	Amount         decimal.Decimal
	Payor          string
	Payee          string
	Description    string
	CheckRef       string
	IdempotencyKey string
}

// PostWithdrawal records a withdrawal request as a pending transaction.
// No balance moves here: a pending or rejected withdrawal must never
// have affected any balance. Sufficiency is prechecked so obviously
// unfundable requests fail fast, and rechecked at approval.
func (uc *PostingUseCase) PostWithdrawal(ctx context.Context, input PostWithdrawalInput) (*domain.TrustTransaction, error) {
	start := time.Now()

	txType := input.Type
	if txType == "" {
		txType = domain.TransactionTypeWithdrawal
	}
	if txType.Direction() > 0 {
		return nil, domain.ErrInvalidTransactionType
	}

	var txn *domain.TrustTransaction
	err := withRetry(ctx, uc.retrier, func() error {
		var opErr error
		txn, opErr = uc.postWithdrawalOnce(ctx, input, txType)
		return opErr
	})
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.WithdrawalsRequested.Inc()
		uc.metrics.PostingDuration.Observe(time.Since(start).Seconds())
	}

	return txn, nil
}

// postWithdrawalOnce runs one attempt of the withdrawal transaction.
func (uc *PostingUseCase) postWithdrawalOnce(ctx context.Context, input PostWithdrawalInput, txType domain.TransactionType) (*domain.TrustTransaction, error) {
	txn := uc.newTransaction(ctx, input.AccountID, txType, input.Amount, input.Payor, input.Payee, input.Description, input.CheckRef, input.IdempotencyKey)
	if err := txn.Validate(); err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	account, err := uc.accountRepo.GetByIDForUpdate(txCtx, tx, input.AccountID)
	if err != nil {
		return nil, err
	}
	if err := account.ValidatePosting(); err != nil {
		return nil, fmt.Errorf("%w: account %s is %s", err, account.ID, account.Status)
	}

	ledger, err := uc.ledgerRepo.GetByIDTx(txCtx, tx, input.LedgerID)
	if err != nil {
		return nil, err
	}
	if ledger.AccountID != account.ID {
		return nil, fmt.Errorf("%w: ledger %s belongs to account %s",
			domain.ErrCrossAccountAllocation, ledger.ID, ledger.AccountID)
	}
	if err := uc.validateDebit(ledger, input.Amount); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	txn.Lines = []domain.AllocationLine{{
		ID:            uc.idGen.Generate(),
		TransactionID: txn.ID,
		LedgerID:      ledger.ID,
		Amount:        input.Amount.Neg(),
		Description:   input.Description,
		CreatedAt:     now,
	}}

	if err := uc.txRepo.Create(txCtx, tx, txn); err != nil {
		return nil, err
	}

	if err := uc.emitEvent(txCtx, tx, txn, domain.EventTypeWithdrawalRequested, now); err != nil {
		return nil, err
	}

	audit := newAuditLog(ctx, uc.idGen, domain.AuditActionWithdrawalRequest, domain.AggregateTypeTransaction, txn.ID, nil, txn, "")
	if err := uc.auditRepo.CreateTx(txCtx, tx, audit); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	return txn, nil
}

// PostTransferInput represents a transfer between two ledgers on the
// same trust account.
type PostTransferInput struct {
	AccountID      string
	FromLedgerID   string
	ToLedgerID     string
	Amount         decimal.Decimal
	Payor          string
	Payee          string
	Description    string
	IdempotencyKey string
}

// PostTransfer records a transfer as a linked pair of pending
// transactions: a TransferOut debiting the source ledger and a
// TransferIn crediting the destination. The pair approves or rejects
// as a unit; until approval neither leg touches a balance.
func (uc *PostingUseCase) PostTransfer(ctx context.Context, input PostTransferInput) ([]*domain.TrustTransaction, error) {
	start := time.Now()

	if input.FromLedgerID == input.ToLedgerID {
		return nil, domain.ErrSameLedger
	}

	var legs []*domain.TrustTransaction
	err := withRetry(ctx, uc.retrier, func() error {
		var opErr error
		legs, opErr = uc.postTransferOnce(ctx, input)
		return opErr
	})
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.TransfersRequested.Inc()
		uc.metrics.PostingDuration.Observe(time.Since(start).Seconds())
	}

	return legs, nil
}

// postTransferOnce runs one attempt of the linked transfer pair.
func (uc *PostingUseCase) postTransferOnce(ctx context.Context, input PostTransferInput) ([]*domain.TrustTransaction, error) {
	outTxn := uc.newTransaction(ctx, input.AccountID, domain.TransactionTypeTransferOut, input.Amount, input.Payor, input.Payee, input.Description, "", input.IdempotencyKey)
	if err := outTxn.Validate(); err != nil {
		return nil, err
	}

	inTxn := uc.newTransaction(ctx, input.AccountID, domain.TransactionTypeTransferIn, input.Amount, input.Payor, input.Payee, input.Description, "", "")

	groupID := uc.idGen.Generate()
	outTxn.TransferGroupID = &groupID
	inTxn.TransferGroupID = &groupID

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	account, err := uc.accountRepo.GetByIDForUpdate(txCtx, tx, input.AccountID)
	if err != nil {
		return nil, err
	}
	if err := account.ValidatePosting(); err != nil {
		return nil, fmt.Errorf("%w: account %s is %s", err, account.ID, account.Status)
	}

	ledgers, err := uc.ledgerRepo.GetByIDsTx(txCtx, tx, []string{input.FromLedgerID, input.ToLedgerID})
	if err != nil {
		return nil, err
	}
	if len(ledgers) != 2 {
		return nil, domain.ErrLedgerNotFound
	}

	ledgerMap := make(map[string]*domain.ClientTrustLedger, len(ledgers))
	for _, l := range ledgers {
		if l.AccountID != account.ID {
			return nil, fmt.Errorf("%w: ledger %s belongs to account %s",
				domain.ErrCrossAccountAllocation, l.ID, l.AccountID)
		}
		ledgerMap[l.ID] = l
	}

	fromLedger := ledgerMap[input.FromLedgerID]
	toLedger := ledgerMap[input.ToLedgerID]

	if err := uc.validateDebit(fromLedger, input.Amount); err != nil {
		return nil, err
	}
	if err := toLedger.ValidateCredit(); err != nil {
		return nil, fmt.Errorf("%w: ledger %s is %s", err, toLedger.ID, toLedger.Status)
	}

	now := time.Now().UTC()
	outTxn.Lines = []domain.AllocationLine{{
		ID:            uc.idGen.Generate(),
		TransactionID: outTxn.ID,
		LedgerID:      fromLedger.ID,
		Amount:        input.Amount.Neg(),
		Description:   input.Description,
		CreatedAt:     now,
	}}
	inTxn.Lines = []domain.AllocationLine{{
		ID:            uc.idGen.Generate(),
		TransactionID: inTxn.ID,
		LedgerID:      toLedger.ID,
		Amount:        input.Amount,
		Description:   input.Description,
		CreatedAt:     now,
	}}

	if err := uc.txRepo.Create(txCtx, tx, outTxn); err != nil {
		return nil, err
	}
	if err := uc.txRepo.Create(txCtx, tx, inTxn); err != nil {
		return nil, err
	}

	if err := uc.emitEvent(txCtx, tx, outTxn, domain.EventTypeTransferRequested, now); err != nil {
		return nil, err
	}

	audit := newAuditLog(ctx, uc.idGen, domain.AuditActionTransferRequest, domain.AggregateTypeTransaction, outTxn.ID, nil, outTxn, "")
	if err := uc.auditRepo.CreateTx(txCtx, tx, audit); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	return []*domain.TrustTransaction{outTxn, inTxn}, nil
}

// GetTransaction retrieves a transaction with its allocation lines.
func (uc *PostingUseCase) GetTransaction(ctx context.Context, id string) (*domain.TrustTransaction, error) {
	return uc.txRepo.GetByID(ctx, id)
}

// ListByLedgerInput represents input for listing a ledger's transactions.
type ListByLedgerInput struct {
	LedgerID string
	Limit    int
	Offset   int
}

// ListTransactionsByLedger lists the transactions touching a ledger.
func (uc *PostingUseCase) ListTransactionsByLedger(ctx context.Context, input ListByLedgerInput) ([]*domain.TrustTransaction, error) {
	limit, offset := domain.ValidatePagination(input.Limit, input.Offset)
	return uc.txRepo.ListByLedger(ctx, input.LedgerID, limit, offset)
}

// ListTransactionsByAccount lists an account's transactions.
func (uc *PostingUseCase) ListTransactionsByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.TrustTransaction, error) {
	limit, offset = domain.ValidatePagination(limit, offset)
	return uc.txRepo.ListByAccount(ctx, accountID, limit, offset)
}

func (uc *PostingUseCase) newTransaction(ctx context.Context, accountID string, txType domain.TransactionType, amount decimal.Decimal, payor, payee, description, checkRef, idempotencyKey string) *domain.TrustTransaction {
	now := time.Now().UTC()

	createdBy := "system"
	if actor, ok := domain.ActorFromContext(ctx); ok {
		createdBy = actor.ID
	}

	txn := &domain.TrustTransaction{
		ID:          uc.idGen.Generate(),
		AccountID:   accountID,
		Type:        txType,
		Status:      domain.TransactionStatusPending,
		Amount:      amount,
		Payor:       payor,
		Payee:       payee,
		Description: description,
		CheckRef:    checkRef,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if idempotencyKey != "" {
		txn.IdempotencyKey = &idempotencyKey
	}

	return txn
}

func (uc *PostingUseCase) ledgersForAllocations(ctx context.Context, tx Transaction, allocations []domain.AllocationRequest) (map[string]*domain.ClientTrustLedger, error) {
	seen := make(map[string]bool, len(allocations))
	ids := make([]string, 0, len(allocations))
	for _, a := range allocations {
		if !seen[a.LedgerID] {
			seen[a.LedgerID] = true
			ids = append(ids, a.LedgerID)
		}
	}

	ledgers, err := uc.ledgerRepo.GetByIDsTx(ctx, tx, ids)
	if err != nil {
		return nil, err
	}

	m := make(map[string]*domain.ClientTrustLedger, len(ledgers))
	for _, l := range ledgers {
		m[l.ID] = l
	}

	return m, nil
}

func (uc *PostingUseCase) validateDebit(ledger *domain.ClientTrustLedger, amount decimal.Decimal) error {
	if err := ledger.ValidateDebit(amount); err != nil {
		if err == domain.ErrInsufficientFunds {
			return fmt.Errorf("%w: ledger %s holds %s, requested %s (short %s)",
				err, ledger.ID, ledger.Balance, amount, amount.Sub(ledger.Balance))
		}
		return fmt.Errorf("%w: ledger %s is %s", err, ledger.ID, ledger.Status)
	}
	return nil
}

func (uc *PostingUseCase) emitEvent(ctx context.Context, tx Transaction, txn *domain.TrustTransaction, eventType string, now time.Time) error {
	event := &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   txn.ID,
		AggregateType: domain.AggregateTypeTransaction,
		EventType:     eventType,
		Payload: map[string]any{
			"transaction_id": txn.ID,
			"account_id":     txn.AccountID,
			"type":           string(txn.Type),
			"status":         string(txn.Status),
			"amount":         txn.Amount.String(),
		},
		CreatedAt: now,
		Published: false,
	}

	return uc.outboxRepo.Create(ctx, tx, event)
}
