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

// ApprovalUseCase is the maker-checker state machine gating pending
// withdrawals and transfers. Balances apply at the Pending -> Approved
// transition and nowhere else; Pending -> Rejected is terminal with no
// balance effect.
type ApprovalUseCase struct {
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

// NewApprovalUseCase creates a new ApprovalUseCase.
func NewApprovalUseCase(
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
) *ApprovalUseCase {
	return &ApprovalUseCase{
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

// Approve transitions a pending transaction to approved and applies
// its balance effect. Sufficiency is re-validated here under the
// account lock: two withdrawals can both pend against the same funds,
// but only one can approve. Approving one leg of a transfer approves
// the whole group.
func (uc *ApprovalUseCase) Approve(ctx context.Context, transactionID string) (*domain.TrustTransaction, error) {
	start := time.Now()

	actor, ok := domain.ActorFromContext(ctx)
	if !ok {
		return nil, domain.ErrMissingActor
	}

	var txn *domain.TrustTransaction
	err := withRetry(ctx, uc.retrier, func() error {
		var opErr error
		txn, opErr = uc.approveOnce(ctx, transactionID, actor)
		return opErr
	})
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.TransactionsApproved.Inc()
		uc.metrics.ApprovalDuration.Observe(time.Since(start).Seconds())
	}

	return txn, nil
}

// approveOnce runs one attempt of the approval transaction.
func (uc *ApprovalUseCase) approveOnce(ctx context.Context, transactionID string, actor domain.Actor) (*domain.TrustTransaction, error) {
	peek, err := uc.txRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	account, err := uc.accountRepo.GetByIDForUpdate(txCtx, tx, peek.AccountID)
	if err != nil {
		return nil, err
	}

	// Re-read under the lock; the status may have moved since the peek.
	txn, err := uc.txRepo.GetByIDTx(txCtx, tx, transactionID)
	if err != nil {
		return nil, err
	}
	if err := txn.CanApprove(); err != nil {
		return nil, fmt.Errorf("%w: transaction %s is %s", err, txn.ID, txn.Status)
	}
	if uc.dualControl && actor.ID == txn.CreatedBy {
		return nil, fmt.Errorf("%w: %s created transaction %s", domain.ErrSelfApproval, actor.ID, txn.ID)
	}

	group := []*domain.TrustTransaction{txn}
	if txn.TransferGroupID != nil {
		group, err = uc.txRepo.GetByTransferGroup(txCtx, tx, *txn.TransferGroupID)
		if err != nil {
			return nil, err
		}
		for _, g := range group {
			if err := g.CanApprove(); err != nil {
				return nil, fmt.Errorf("%w: transaction %s is %s", err, g.ID, g.Status)
			}
		}
	}

	now := time.Now().UTC()
	for _, leg := range group {
		if err := uc.applyLeg(txCtx, tx, account, leg, actor.ID, now); err != nil {
			return nil, err
		}
	}

	if txn.Type == domain.TransactionTypeFeeEarned {
		if err := uc.recordEarnedFee(txCtx, tx, txn, actor.ID, now); err != nil {
			return nil, err
		}
	}

	event := &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   txn.ID,
		AggregateType: domain.AggregateTypeTransaction,
		EventType:     domain.EventTypeTransactionApproved,
		Payload: map[string]any{
			"transaction_id": txn.ID,
			"account_id":     txn.AccountID,
			"approved_by":    actor.ID,
			"amount":         txn.Amount.String(),
		},
		CreatedAt: now,
		Published: false,
	}
	if err := uc.outboxRepo.Create(txCtx, tx, event); err != nil {
		return nil, err
	}

	audit := newAuditLog(ctx, uc.idGen, domain.AuditActionTransactionApprove, domain.AggregateTypeTransaction, txn.ID, peek, txn, "")
	if err := uc.auditRepo.CreateTx(txCtx, tx, audit); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	return txn, nil
}

// Reject terminates a pending transaction. Nothing was ever applied,
// so nothing is unwound; the row and its audit trail remain.
func (uc *ApprovalUseCase) Reject(ctx context.Context, transactionID, reason string) (*domain.TrustTransaction, error) {
	actor, ok := domain.ActorFromContext(ctx)
	if !ok {
		return nil, domain.ErrMissingActor
	}

	var txn *domain.TrustTransaction
	err := withRetry(ctx, uc.retrier, func() error {
		var opErr error
		txn, opErr = uc.rejectOnce(ctx, transactionID, reason, actor)
		return opErr
	})
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.TransactionsRejected.Inc()
	}

	return txn, nil
}

// rejectOnce runs one attempt of the rejection transaction.
func (uc *ApprovalUseCase) rejectOnce(ctx context.Context, transactionID, reason string, actor domain.Actor) (*domain.TrustTransaction, error) {
	peek, err := uc.txRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	if _, err := uc.accountRepo.GetByIDForUpdate(txCtx, tx, peek.AccountID); err != nil {
		return nil, err
	}

	txn, err := uc.txRepo.GetByIDTx(txCtx, tx, transactionID)
	if err != nil {
		return nil, err
	}
	if err := txn.CanApprove(); err != nil {
		return nil, fmt.Errorf("%w: transaction %s is %s", err, txn.ID, txn.Status)
	}

	group := []*domain.TrustTransaction{txn}
	if txn.TransferGroupID != nil {
		group, err = uc.txRepo.GetByTransferGroup(txCtx, tx, *txn.TransferGroupID)
		if err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	for _, leg := range group {
		if err := uc.txRepo.MarkRejected(txCtx, tx, leg.ID, actor.ID, reason, now); err != nil {
			return nil, err
		}
		leg.Status = domain.TransactionStatusRejected
		leg.RejectedBy = &actor.ID
		leg.RejectReason = reason
	}

	event := &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   txn.ID,
		AggregateType: domain.AggregateTypeTransaction,
		EventType:     domain.EventTypeTransactionRejected,
		Payload: map[string]any{
			"transaction_id": txn.ID,
			"account_id":     txn.AccountID,
			"rejected_by":    actor.ID,
			"reason":         reason,
		},
		CreatedAt: now,
		Published: false,
	}
	if err := uc.outboxRepo.Create(txCtx, tx, event); err != nil {
		return nil, err
	}

	audit := newAuditLog(ctx, uc.idGen, domain.AuditActionTransactionReject, domain.AggregateTypeTransaction, txn.ID, peek, txn, reason)
	if err := uc.auditRepo.CreateTx(txCtx, tx, audit); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	return txn, nil
}

// applyLeg applies one transaction's allocation lines to its ledgers
// and the account, capturing the balance snapshots.
func (uc *ApprovalUseCase) applyLeg(ctx context.Context, tx Transaction, account *domain.TrustBankAccount, txn *domain.TrustTransaction, approvedBy string, now time.Time) error {
	for i := range txn.Lines {
		line := &txn.Lines[i]

		ledger, err := uc.ledgerRepo.GetByIDTx(ctx, tx, line.LedgerID)
		if err != nil {
			return err
		}

		if line.Amount.IsNegative() {
			debit := line.Amount.Neg()
			if err := ledger.ValidateDebit(debit); err != nil {
				if errors.Is(err, domain.ErrInsufficientFunds) {
					return fmt.Errorf("%w: ledger %s holds %s, requested %s (short %s)",
						domain.ErrInsufficientFundsAtApproval, ledger.ID, ledger.Balance, debit, debit.Sub(ledger.Balance))
				}
				return fmt.Errorf("%w: ledger %s is %s", err, ledger.ID, ledger.Status)
			}
		} else if err := ledger.ValidateCredit(); err != nil {
			return fmt.Errorf("%w: ledger %s is %s", err, ledger.ID, ledger.Status)
		}

		newBalance := ledger.Balance.Add(line.Amount)
		if err := uc.ledgerRepo.UpdateBalance(ctx, tx, ledger.ID, newBalance, now); err != nil {
			return err
		}
		if err := uc.txRepo.SetLineBalanceAfter(ctx, tx, line.ID, newBalance); err != nil {
			return err
		}
		line.LedgerBalanceAfter = &newBalance
	}

	delta := txn.Amount.Mul(decimal.NewFromInt(txn.Type.Direction()))
	balanceBefore := account.Balance
	balanceAfter := account.Balance.Add(delta)

	if err := uc.accountRepo.UpdateBalance(ctx, tx, account.ID, balanceAfter, now); err != nil {
		return err
	}
	account.Balance = balanceAfter

	if err := uc.txRepo.MarkApproved(ctx, tx, txn.ID, approvedBy, balanceBefore, balanceAfter, now); err != nil {
		return err
	}

	txn.Status = domain.TransactionStatusApproved
	txn.ApprovedBy = &approvedBy
	txn.AccountBalanceBefore = &balanceBefore
	txn.AccountBalanceAfter = &balanceAfter
	txn.PostedAt = &now

	return nil
}

// recordEarnedFee writes the EarnedFeeEvent for a fee debit that went
// through the deferred approval path. The operating-side reference is
// filled by the downstream operating posting.
func (uc *ApprovalUseCase) recordEarnedFee(ctx context.Context, tx Transaction, txn *domain.TrustTransaction, approvedBy string, now time.Time) error {
	if len(txn.Lines) == 0 {
		return nil
	}

	event := &domain.EarnedFeeEvent{
		ID:            uc.idGen.Generate(),
		LedgerID:      txn.Lines[0].LedgerID,
		TransactionID: txn.ID,
		Amount:        txn.Amount,
		InvoiceRef:    txn.CheckRef,
		ApprovedBy:    approvedBy,
		CreatedAt:     now,
	}

	return uc.earnedFeeRepo.Create(ctx, tx, event)
}
