package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lexhq/trustledger/internal/domain"
	"github.com/lexhq/trustledger/internal/infrastructure/metrics"
)

// ReconciliationUseCase performs the periodic three-way balance
// comparison: bank statement vs the trust account's own ledger vs the
// sum of its client ledgers. It reads committed history only and never
// blocks concurrent postings.
type ReconciliationUseCase struct {
	accountRepo AccountRepository
	ledgerRepo  LedgerRepository
	txRepo      TransactionRepository
	reconRepo   ReconciliationRepository
	auditRepo   AuditRepository
	idGen       IDGenerator
	metrics     *metrics.Metrics
	logger      *slog.Logger
	dualControl bool
}

// NewReconciliationUseCase creates a new ReconciliationUseCase.
func NewReconciliationUseCase(
	accountRepo AccountRepository,
	ledgerRepo LedgerRepository,
	txRepo TransactionRepository,
	reconRepo ReconciliationRepository,
	auditRepo AuditRepository,
	idGen IDGenerator,
	metrics *metrics.Metrics,
	logger *slog.Logger,
	dualControl bool,
) *ReconciliationUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReconciliationUseCase{
		accountRepo: accountRepo,
		ledgerRepo:  ledgerRepo,
		txRepo:      txRepo,
		reconRepo:   reconRepo,
		auditRepo:   auditRepo,
		idGen:       idGen,
		metrics:     metrics,
		logger:      logger,
		dualControl: dualControl,
	}
}

// ReconciliationItemInput is one outstanding check or deposit in transit.
type ReconciliationItemInput struct {
	Reference string
	Amount    decimal.Decimal
	ItemDate  time.Time
}

// ReconcileInput represents a reconciliation submission for one period.
type ReconcileInput struct {
	AccountID            string
	PeriodEnd            time.Time
	BankStatementBalance decimal.Decimal
	OutstandingChecks    []ReconciliationItemInput
	DepositsInTransit    []ReconciliationItemInput
	Notes                string
}

// Reconcile computes and persists the three-way comparison. A failing
// reconciliation is a reportable business fact, not an engine error:
// the record is persisted either way and the call succeeds. A nonzero
// structural gap (book vs client-ledger sum) can never be a timing
// artifact and is surfaced loudly.
func (uc *ReconciliationUseCase) Reconcile(ctx context.Context, input ReconcileInput) (*domain.ReconciliationRecord, error) {
	actor, ok := domain.ActorFromContext(ctx)
	if !ok {
		return nil, domain.ErrMissingActor
	}

	account, err := uc.accountRepo.GetByID(ctx, input.AccountID)
	if err != nil {
		return nil, err
	}

	// The account's own ledger balance as of the cut, from transaction
	// amounts; the client sum from allocation lines. Computing the two
	// from different rows is what lets a line/transaction divergence
	// show up as a structural gap.
	trustLedgerBalance, err := uc.txRepo.AccountBalanceAsOf(ctx, account.ID, input.PeriodEnd)
	if err != nil {
		return nil, err
	}
	clientLedgerSum, err := uc.txRepo.LedgerSumAsOf(ctx, account.ID, input.PeriodEnd)
	if err != nil {
		return nil, err
	}

	sumChecks := decimal.Zero
	sumDeposits := decimal.Zero
	now := time.Now().UTC()

	record := &domain.ReconciliationRecord{
		ID:                   uc.idGen.Generate(),
		AccountID:            account.ID,
		PeriodEnd:            input.PeriodEnd,
		BankStatementBalance: input.BankStatementBalance,
		TrustLedgerBalance:   trustLedgerBalance,
		ClientLedgerSum:      clientLedgerSum,
		Notes:                input.Notes,
		PreparedBy:           actor.ID,
		CreatedAt:            now,
	}

	for _, item := range input.OutstandingChecks {
		if err := domain.ValidateSubCent(item.Amount); err != nil {
			return nil, err
		}
		sumChecks = sumChecks.Add(item.Amount)
		record.Items = append(record.Items, domain.ReconciliationItem{
			ID:               uc.idGen.Generate(),
			ReconciliationID: record.ID,
			Kind:             domain.ItemKindOutstandingCheck,
			Reference:        item.Reference,
			Amount:           item.Amount,
			ItemDate:         item.ItemDate,
		})
	}
	for _, item := range input.DepositsInTransit {
		if err := domain.ValidateSubCent(item.Amount); err != nil {
			return nil, err
		}
		sumDeposits = sumDeposits.Add(item.Amount)
		record.Items = append(record.Items, domain.ReconciliationItem{
			ID:               uc.idGen.Generate(),
			ReconciliationID: record.ID,
			Kind:             domain.ItemKindDepositInTransit,
			Reference:        item.Reference,
			Amount:           item.Amount,
			ItemDate:         item.ItemDate,
		})
	}

	record.AdjustedBankBalance = trustLedgerBalance.Add(sumDeposits).Sub(sumChecks)
	record.DiscrepancyAmount = input.BankStatementBalance.Sub(record.AdjustedBankBalance)
	record.StructuralGap = trustLedgerBalance.Sub(clientLedgerSum)
	record.IsReconciled = record.DiscrepancyAmount.IsZero() && record.StructuralGap.IsZero()

	if !record.StructuralGap.IsZero() {
		// Not a timing difference: the ledger disagrees with itself.
		uc.logger.Error("structural gap between trust ledger and client ledger sum",
			"account_id", account.ID,
			"period_end", input.PeriodEnd.Format(time.DateOnly),
			"trust_ledger_balance", trustLedgerBalance.String(),
			"client_ledger_sum", clientLedgerSum.String(),
			"gap", record.StructuralGap.String(),
		)
		if uc.metrics != nil {
			uc.metrics.ReconciliationStructuralGaps.Inc()
		}
	}

	if err := uc.reconRepo.Create(ctx, record); err != nil {
		return nil, err
	}

	audit := newAuditLog(ctx, uc.idGen, domain.AuditActionReconciliationCreate, domain.AggregateTypeReconciliation, record.ID, nil, record, input.Notes)
	if err := uc.auditRepo.Create(ctx, audit); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.ReconciliationsRecorded.Inc()
	}

	return record, nil
}

// ApproveReconciliation signs off a prepared reconciliation record.
// Under dual control the approver must differ from the preparer.
func (uc *ReconciliationUseCase) ApproveReconciliation(ctx context.Context, recordID string) (*domain.ReconciliationRecord, error) {
	actor, ok := domain.ActorFromContext(ctx)
	if !ok {
		return nil, domain.ErrMissingActor
	}

	record, err := uc.reconRepo.GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if err := record.CanApprove(); err != nil {
		return nil, fmt.Errorf("%w: record %s", err, record.ID)
	}
	if uc.dualControl && actor.ID == record.PreparedBy {
		return nil, fmt.Errorf("%w: %s prepared record %s", domain.ErrSelfApproval, actor.ID, record.ID)
	}

	now := time.Now().UTC()
	if err := uc.reconRepo.Approve(ctx, record.ID, actor.ID, now); err != nil {
		return nil, err
	}
	record.ApprovedBy = &actor.ID
	record.ApprovedAt = &now

	audit := newAuditLog(ctx, uc.idGen, domain.AuditActionReconciliationApprove, domain.AggregateTypeReconciliation, record.ID, nil, record, "")
	if err := uc.auditRepo.Create(ctx, audit); err != nil {
		return nil, err
	}

	return record, nil
}

// ListReconciliations lists an account's reconciliation records.
func (uc *ReconciliationUseCase) ListReconciliations(ctx context.Context, accountID string, limit, offset int) ([]*domain.ReconciliationRecord, error) {
	limit, offset = domain.ValidatePagination(limit, offset)
	return uc.reconRepo.ListByAccount(ctx, accountID, limit, offset)
}

// CheckConsistency compares an account's stored balance against the
// live sum of its open client ledgers. Any difference is a structural
// bug, reported for the operator tooling.
func (uc *ReconciliationUseCase) CheckConsistency(ctx context.Context, accountID string) (accountBalance, ledgerSum decimal.Decimal, err error) {
	account, err := uc.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	ledgerSum, err = uc.ledgerRepo.SumBalances(ctx, accountID)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	return account.Balance, ledgerSum, nil
}
