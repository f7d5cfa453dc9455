package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lexhq/trustledger/internal/domain"
	"github.com/lexhq/trustledger/internal/infrastructure/metrics"
)

// VoidUseCase reverses approved transactions. History is never edited
// or deleted: a void posts a new reversing transaction with mirrored
// allocation lines and stamps the original with void metadata linking
// the two.
type VoidUseCase struct {
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

// NewVoidUseCase creates a new VoidUseCase.
func NewVoidUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	ledgerRepo LedgerRepository,
	txRepo TransactionRepository,
	outboxRepo OutboxRepository,
	auditRepo AuditRepository,
	idGen IDGenerator,
	retrier Retrier,
	metrics *metrics.Metrics,
) *VoidUseCase {
	return &VoidUseCase{
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

// Void reverses transactionID. The reversing entry is strictly
// corrective, so it posts immediately without a second approval. A
// transaction can be voided at most once.
func (uc *VoidUseCase) Void(ctx context.Context, transactionID, reason string) (*domain.TrustTransaction, error) {
	start := time.Now()

	actor, ok := domain.ActorFromContext(ctx)
	if !ok {
		return nil, domain.ErrMissingActor
	}
	if strings.TrimSpace(reason) == "" {
		return nil, domain.ErrMissingReason
	}

	var reversal *domain.TrustTransaction
	err := withRetry(ctx, uc.retrier, func() error {
		var opErr error
		reversal, opErr = uc.voidOnce(ctx, transactionID, reason, actor)
		return opErr
	})
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.TransactionsVoided.Inc()
		uc.metrics.PostingDuration.Observe(time.Since(start).Seconds())
	}

	return reversal, nil
}

// voidOnce runs one attempt of the void transaction.
func (uc *VoidUseCase) voidOnce(ctx context.Context, transactionID, reason string, actor domain.Actor) (*domain.TrustTransaction, error) {
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

	original, err := uc.txRepo.GetByIDTx(txCtx, tx, transactionID)
	if err != nil {
		return nil, err
	}
	if err := original.CanVoid(); err != nil {
		return nil, fmt.Errorf("%w: transaction %s", err, original.ID)
	}

	// Voiding one leg of a transfer voids the whole group: reversing
	// only the debit leg would leave the transfer half-undone.
	legs := []*domain.TrustTransaction{original}
	if original.TransferGroupID != nil {
		legs, err = uc.txRepo.GetByTransferGroup(txCtx, tx, *original.TransferGroupID)
		if err != nil {
			return nil, err
		}
		for _, leg := range legs {
			if err := leg.CanVoid(); err != nil {
				return nil, fmt.Errorf("%w: transaction %s", err, leg.ID)
			}
		}
	}

	now := time.Now().UTC()

	var reversal *domain.TrustTransaction
	for _, leg := range legs {
		rev, err := uc.reverseLeg(txCtx, tx, account, leg, actor.ID, reason, now)
		if err != nil {
			return nil, err
		}
		if leg.ID == original.ID {
			reversal = rev
		}
	}

	event := &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   original.ID,
		AggregateType: domain.AggregateTypeTransaction,
		EventType:     domain.EventTypeTransactionVoided,
		Payload: map[string]any{
			"transaction_id": original.ID,
			"reversal_tx_id": reversal.ID,
			"account_id":     original.AccountID,
			"voided_by":      actor.ID,
			"reason":         reason,
		},
		CreatedAt: now,
		Published: false,
	}
	if err := uc.outboxRepo.Create(txCtx, tx, event); err != nil {
		return nil, err
	}

	audit := newAuditLog(ctx, uc.idGen, domain.AuditActionTransactionVoid, domain.AggregateTypeTransaction, original.ID, peek, original, reason)
	if err := uc.auditRepo.CreateTx(txCtx, tx, audit); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	return reversal, nil
}

// reverseLeg posts the reversing transaction for one approved leg and
// stamps the original with its void metadata.
func (uc *VoidUseCase) reverseLeg(ctx context.Context, tx Transaction, account *domain.TrustBankAccount, original *domain.TrustTransaction, actorID, reason string, now time.Time) (*domain.TrustTransaction, error) {
	reversal := &domain.TrustTransaction{
		ID:           uc.idGen.Generate(),
		AccountID:    original.AccountID,
		Type:         original.Type,
		Status:       domain.TransactionStatusApproved,
		Amount:       original.Amount,
		Payor:        original.Payee,
		Payee:        original.Payor,
		Description:  fmt.Sprintf("reversal of %s: %s", original.ID, reason),
		OriginalTxID: &original.ID,
		CreatedBy:    actorID,
		ApprovedBy:   &actorID,
		CreatedAt:    now,
		UpdatedAt:    now,
		PostedAt:     &now,
	}

	mirrored := domain.MirrorAllocations(original.Lines)
	for i := range mirrored {
		line := &mirrored[i]
		line.ID = uc.idGen.Generate()
		line.TransactionID = reversal.ID
		line.CreatedAt = now

		ledger, err := uc.ledgerRepo.GetByIDTx(ctx, tx, line.LedgerID)
		if err != nil {
			return nil, err
		}
		if ledger.Status == domain.LedgerStatusClosed {
			return nil, fmt.Errorf("%w: ledger %s is closed", domain.ErrLedgerNotActive, ledger.ID)
		}

		newBalance := ledger.Balance.Add(line.Amount)
		// Voiding a deposit whose funds were since spent would overdraw
		// the client ledger; that correction needs a manual path.
		if newBalance.IsNegative() {
			return nil, fmt.Errorf("%w: voiding would leave ledger %s at %s",
				domain.ErrInsufficientFunds, ledger.ID, newBalance)
		}

		line.LedgerBalanceAfter = &newBalance
		if err := uc.ledgerRepo.UpdateBalance(ctx, tx, ledger.ID, newBalance, now); err != nil {
			return nil, err
		}
	}
	reversal.Lines = mirrored

	// The reversal's account effect is the opposite of the original's.
	delta := original.Amount.Mul(decimal.NewFromInt(original.Type.Direction())).Neg()
	balanceBefore := account.Balance
	balanceAfter := account.Balance.Add(delta)
	reversal.AccountBalanceBefore = &balanceBefore
	reversal.AccountBalanceAfter = &balanceAfter

	if err := uc.txRepo.Create(ctx, tx, reversal); err != nil {
		return nil, err
	}
	if err := uc.accountRepo.UpdateBalance(ctx, tx, account.ID, balanceAfter, now); err != nil {
		return nil, err
	}
	account.Balance = balanceAfter

	void := domain.VoidInfo{
		VoidedAt:     now,
		VoidedBy:     actorID,
		Reason:       reason,
		ReversalTxID: reversal.ID,
	}
	if err := uc.txRepo.MarkVoided(ctx, tx, original.ID, void); err != nil {
		return nil, err
	}
	original.Status = domain.TransactionStatusVoided
	original.Void = &void

	return reversal, nil
}
