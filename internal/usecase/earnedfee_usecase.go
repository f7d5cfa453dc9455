package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lexhq/trustledger/internal/domain"
	"github.com/lexhq/trustledger/internal/infrastructure/metrics"
)

// EarnedFeeUseCase moves funds recognized as earned fees out of a
// client trust ledger toward the firm's operating side. This is the
// only sanctioned path by which trust funds become firm revenue; every
// recognition leaves an EarnedFeeEvent linked to the debit transaction.
type EarnedFeeUseCase struct {
	txManager     TransactionManager
	accountRepo   AccountRepository
	ledgerRepo    LedgerRepository
	txRepo        TransactionRepository
	earnedFeeRepo EarnedFeeRepository
	outboxRepo    OutboxRepository
	auditRepo     AuditRepository
	idGen         IDGenerator
	retrier       Retrier
	metrics       *metrics.Metrics
	dualControl   bool
}

// NewEarnedFeeUseCase creates a new EarnedFeeUseCase.
func NewEarnedFeeUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	ledgerRepo LedgerRepository,
	txRepo TransactionRepository,
	earnedFeeRepo EarnedFeeRepository,
	outboxRepo OutboxRepository,
	auditRepo AuditRepository,
	idGen IDGenerator,
	retrier Retrier,
	metrics *metrics.Metrics,
	dualControl bool,
) *EarnedFeeUseCase {
	return &EarnedFeeUseCase{
		txManager:     txManager,
		accountRepo:   accountRepo,
		ledgerRepo:    ledgerRepo,
		txRepo:        txRepo,
		earnedFeeRepo: earnedFeeRepo,
		outboxRepo:    outboxRepo,
		auditRepo:     auditRepo,
		idGen:         idGen,
		retrier:       retrier,
		metrics:       metrics,
		dualControl:   dualControl,
	}
}

// RecognizeEarnedFeeInput represents an earned-fee recognition request.
type RecognizeEarnedFeeInput struct {
	LedgerID       string
	Amount         decimal.Decimal
	InvoiceRef     string
	OperatingRef   string
	ApproverID     string
	IdempotencyKey string
}

// RecognizeEarnedFee debits the client ledger for a fee legally earned
// by the firm. With a synchronous approver (distinct from the caller
// under dual control) the debit posts immediately and the event is
// written alongside it; without one the debit pends through the normal
// approval workflow and the event is written at approval.
func (uc *EarnedFeeUseCase) RecognizeEarnedFee(ctx context.Context, input RecognizeEarnedFeeInput) (*domain.TrustTransaction, *domain.EarnedFeeEvent, error) {
	start := time.Now()

	actor, ok := domain.ActorFromContext(ctx)
	if !ok {
		return nil, nil, domain.ErrMissingActor
	}
	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, nil, err
	}
	if uc.dualControl && input.ApproverID != "" && input.ApproverID == actor.ID {
		return nil, nil, fmt.Errorf("%w: %s cannot approve their own fee recognition", domain.ErrSelfApproval, actor.ID)
	}

	var (
		txn      *domain.TrustTransaction
		feeEvent *domain.EarnedFeeEvent
	)
	err := withRetry(ctx, uc.retrier, func() error {
		var opErr error
		txn, feeEvent, opErr = uc.recognizeOnce(ctx, input, actor)
		return opErr
	})
	if err != nil {
		return nil, nil, err
	}

	if uc.metrics != nil {
		uc.metrics.EarnedFeesRecognized.Inc()
		uc.metrics.PostingDuration.Observe(time.Since(start).Seconds())
	}

	return txn, feeEvent, nil
}

// recognizeOnce runs one attempt of the fee-recognition transaction.
func (uc *EarnedFeeUseCase) recognizeOnce(ctx context.Context, input RecognizeEarnedFeeInput, actor domain.Actor) (*domain.TrustTransaction, *domain.EarnedFeeEvent, error) {
	ledger, err := uc.ledgerRepo.GetByID(ctx, input.LedgerID)
	if err != nil {
		return nil, nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	account, err := uc.accountRepo.GetByIDForUpdate(txCtx, tx, ledger.AccountID)
	if err != nil {
		return nil, nil, err
	}
	if err := account.ValidatePosting(); err != nil {
		return nil, nil, fmt.Errorf("%w: account %s is %s", err, account.ID, account.Status)
	}

	ledger, err = uc.ledgerRepo.GetByIDTx(txCtx, tx, input.LedgerID)
	if err != nil {
		return nil, nil, err
	}
	if err := ledger.ValidateDebit(input.Amount); err != nil {
		if errors.Is(err, domain.ErrInsufficientFunds) {
			return nil, nil, fmt.Errorf("%w: ledger %s holds %s, requested %s (short %s)",
				err, ledger.ID, ledger.Balance, input.Amount, input.Amount.Sub(ledger.Balance))
		}
		return nil, nil, fmt.Errorf("%w: ledger %s is %s", err, ledger.ID, ledger.Status)
	}

	now := time.Now().UTC()

	txn := &domain.TrustTransaction{
		ID:          uc.idGen.Generate(),
		AccountID:   account.ID,
		Type:        domain.TransactionTypeFeeEarned,
		Status:      domain.TransactionStatusPending,
		Amount:      input.Amount,
		Payor:       ledger.Name,
		Payee:       "firm operating account",
		Description: fmt.Sprintf("earned fee per invoice %s", input.InvoiceRef),
		CheckRef:    input.InvoiceRef,
		CreatedBy:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if input.IdempotencyKey != "" {
		txn.IdempotencyKey = &input.IdempotencyKey
	}
	txn.Lines = []domain.AllocationLine{{
		ID:            uc.idGen.Generate(),
		TransactionID: txn.ID,
		LedgerID:      ledger.ID,
		Amount:        input.Amount.Neg(),
		Description:   txn.Description,
		CreatedAt:     now,
	}}

	var feeEvent *domain.EarnedFeeEvent
	if input.ApproverID != "" {
		// Pre-approved: apply the debit now with full snapshots.
		balanceBefore := account.Balance
		balanceAfter := account.ApplyDebit(input.Amount)
		newLedgerBalance := ledger.ApplyDebit(input.Amount)

		txn.Status = domain.TransactionStatusApproved
		txn.ApprovedBy = &input.ApproverID
		txn.AccountBalanceBefore = &balanceBefore
		txn.AccountBalanceAfter = &balanceAfter
		txn.PostedAt = &now
		txn.Lines[0].LedgerBalanceAfter = &newLedgerBalance

		if err := uc.ledgerRepo.UpdateBalance(txCtx, tx, ledger.ID, newLedgerBalance, now); err != nil {
			return nil, nil, err
		}
		if err := uc.accountRepo.UpdateBalance(txCtx, tx, account.ID, balanceAfter, now); err != nil {
			return nil, nil, err
		}
	}

	if err := uc.txRepo.Create(txCtx, tx, txn); err != nil {
		return nil, nil, err
	}

	if input.ApproverID != "" {
		feeEvent = &domain.EarnedFeeEvent{
			ID:            uc.idGen.Generate(),
			LedgerID:      ledger.ID,
			TransactionID: txn.ID,
			Amount:        input.Amount,
			InvoiceRef:    input.InvoiceRef,
			OperatingRef:  input.OperatingRef,
			ApprovedBy:    input.ApproverID,
			CreatedAt:     now,
		}
		if err := uc.earnedFeeRepo.Create(txCtx, tx, feeEvent); err != nil {
			return nil, nil, err
		}
	}

	event := &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   txn.ID,
		AggregateType: domain.AggregateTypeTransaction,
		EventType:     domain.EventTypeEarnedFeeRecognized,
		Payload: map[string]any{
			"transaction_id": txn.ID,
			"ledger_id":      ledger.ID,
			"amount":         input.Amount.String(),
			"invoice_ref":    input.InvoiceRef,
			"status":         string(txn.Status),
		},
		CreatedAt: now,
		Published: false,
	}
	if err := uc.outboxRepo.Create(txCtx, tx, event); err != nil {
		return nil, nil, err
	}

	audit := newAuditLog(ctx, uc.idGen, domain.AuditActionEarnedFeeRecognize, domain.AggregateTypeTransaction, txn.ID, nil, txn, "")
	if err := uc.auditRepo.CreateTx(txCtx, tx, audit); err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, nil, err
	}

	return txn, feeEvent, nil
}

// ListEarnedFees lists the earned-fee events for a ledger.
func (uc *EarnedFeeUseCase) ListEarnedFees(ctx context.Context, ledgerID string, limit, offset int) ([]*domain.EarnedFeeEvent, error) {
	limit, offset = domain.ValidatePagination(limit, offset)
	return uc.earnedFeeRepo.ListByLedger(ctx, ledgerID, limit, offset)
}
