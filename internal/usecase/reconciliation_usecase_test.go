package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lexhq/trustledger/internal/domain"
	"github.com/lexhq/trustledger/internal/usecase"
	"github.com/lexhq/trustledger/internal/usecase/mocks"
)

type reconFixture struct {
	*approvalFixture
	reconRepo *mocks.MockReconciliationRepository
	recon     *usecase.ReconciliationUseCase
}

func newReconFixture(t *testing.T) *reconFixture {
	t.Helper()
	af := newApprovalFixture(true)
	f := &reconFixture{
		approvalFixture: af,
		reconRepo:       mocks.NewMockReconciliationRepository(),
	}
	f.recon = usecase.NewReconciliationUseCase(
		af.accountRepo, af.ledgerRepo, af.txRepo, f.reconRepo, af.auditRepo,
		mocks.NewMockIDGenerator("rec"), nil, nil, true,
	)
	return f
}

func TestReconciliationUseCase_BalancedPeriod(t *testing.T) {
	f := newReconFixture(t)
	f.seedFundedLedger(t, "acc-1", "led-1", decimal.NewFromInt(1000))

	record, err := f.recon.Reconcile(actorCtx("alice"), usecase.ReconcileInput{
		AccountID:            "acc-1",
		PeriodEnd:            time.Now().UTC().Add(time.Hour),
		BankStatementBalance: decimal.NewFromInt(1000),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !record.IsReconciled {
		t.Errorf("expected reconciled record, discrepancy %s, gap %s",
			record.DiscrepancyAmount, record.StructuralGap)
	}
	if !record.TrustLedgerBalance.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("expected trust ledger balance 1000, got %s", record.TrustLedgerBalance)
	}
	if !record.ClientLedgerSum.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("expected client ledger sum 1000, got %s", record.ClientLedgerSum)
	}
	if record.PreparedBy != "alice" {
		t.Errorf("expected prepared_by alice, got %s", record.PreparedBy)
	}
}

func TestReconciliationUseCase_VoidedDepositLeavesNoResidue(t *testing.T) {
	f := newReconFixture(t)
	f.seedFundedLedger(t, "acc-1", "led-1", decimal.NewFromInt(1000))

	void := usecase.NewVoidUseCase(
		mocks.NewMockTransactionManager(), f.accountRepo, f.ledgerRepo, f.txRepo,
		f.outboxRepo, f.auditRepo, mocks.NewMockIDGenerator("rev"), nil, nil,
	)

	deposit, err := f.posting.PostDeposit(actorCtx("alice"), usecase.PostDepositInput{
		AccountID:   "acc-1",
		Amount:      decimal.NewFromInt(250),
		Payor:       "Client",
		Payee:       "Firm IOLTA",
		Description: "retainer",
		Allocations: []domain.AllocationRequest{{LedgerID: "led-1", Amount: decimal.NewFromInt(250)}},
	})
	if err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	if _, err := void.Void(actorCtx("carol"), deposit.ID, "deposit check bounced"); err != nil {
		t.Fatalf("void failed: %v", err)
	}

	// The original and its reversal both remain in history; recomputed
	// as-of balances must cancel them out, not double-count them.
	record, err := f.recon.Reconcile(actorCtx("alice"), usecase.ReconcileInput{
		AccountID:            "acc-1",
		PeriodEnd:            time.Now().UTC().Add(time.Hour),
		BankStatementBalance: decimal.NewFromInt(1000),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !record.IsReconciled {
		t.Errorf("expected reconciled record, discrepancy %s, gap %s",
			record.DiscrepancyAmount, record.StructuralGap)
	}
	if !record.TrustLedgerBalance.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("expected trust ledger balance 1000, got %s", record.TrustLedgerBalance)
	}
	if !record.ClientLedgerSum.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("expected client ledger sum 1000, got %s", record.ClientLedgerSum)
	}
	if !record.StructuralGap.IsZero() {
		t.Errorf("expected no structural gap, got %s", record.StructuralGap)
	}
}

func TestReconciliationUseCase_TimingDifferencesExplainTheGap(t *testing.T) {
	f := newReconFixture(t)
	f.seedFundedLedger(t, "acc-1", "led-1", decimal.NewFromInt(1000))

	// A 100 check was posted on the books but has not cleared the bank.
	record, err := f.recon.Reconcile(actorCtx("alice"), usecase.ReconcileInput{
		AccountID:            "acc-1",
		PeriodEnd:            time.Now().UTC().Add(time.Hour),
		BankStatementBalance: decimal.NewFromInt(900),
		OutstandingChecks: []usecase.ReconciliationItemInput{
			{Reference: "1042", Amount: decimal.NewFromInt(100), ItemDate: time.Now().UTC()},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !record.IsReconciled {
		t.Errorf("expected reconciled with timing item, discrepancy %s", record.DiscrepancyAmount)
	}
	if len(record.Items) != 1 || record.Items[0].Kind != domain.ItemKindOutstandingCheck {
		t.Error("expected one outstanding-check item on the record")
	}
}

func TestReconciliationUseCase_FailingPeriodStillPersists(t *testing.T) {
	f := newReconFixture(t)
	f.seedFundedLedger(t, "acc-1", "led-1", decimal.NewFromInt(1000))

	record, err := f.recon.Reconcile(actorCtx("alice"), usecase.ReconcileInput{
		AccountID:            "acc-1",
		PeriodEnd:            time.Now().UTC().Add(time.Hour),
		BankStatementBalance: decimal.NewFromInt(750),
	})
	if err != nil {
		t.Fatalf("a failing reconciliation is a business fact, not an error: %v", err)
	}
	if record.IsReconciled {
		t.Error("expected unreconciled record")
	}
	if !record.DiscrepancyAmount.Equal(decimal.NewFromInt(-250)) {
		t.Errorf("expected discrepancy -250, got %s", record.DiscrepancyAmount)
	}

	// The record made it to storage.
	if _, err := f.reconRepo.GetByID(context.Background(), record.ID); err != nil {
		t.Fatalf("record not persisted: %v", err)
	}
}

func TestReconciliationUseCase_StructuralGapSurfaced(t *testing.T) {
	f := newReconFixture(t)
	f.seedFundedLedger(t, "acc-1", "led-1", decimal.NewFromInt(1000))

	// Simulate an internal divergence between transaction rows and
	// allocation lines.
	f.txRepo.LedgerSumAsOfFunc = func(ctx context.Context, accountID string, at time.Time) (decimal.Decimal, error) {
		return decimal.NewFromInt(990), nil
	}

	record, err := f.recon.Reconcile(actorCtx("alice"), usecase.ReconcileInput{
		AccountID:            "acc-1",
		PeriodEnd:            time.Now().UTC().Add(time.Hour),
		BankStatementBalance: decimal.NewFromInt(1000),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.IsReconciled {
		t.Error("a structural gap can never reconcile")
	}
	if !record.StructuralGap.Equal(decimal.NewFromInt(10)) {
		t.Errorf("expected structural gap 10, got %s", record.StructuralGap)
	}
}

func TestReconciliationUseCase_SubCentItemRejected(t *testing.T) {
	f := newReconFixture(t)
	f.seedFundedLedger(t, "acc-1", "led-1", decimal.NewFromInt(1000))

	_, err := f.recon.Reconcile(actorCtx("alice"), usecase.ReconcileInput{
		AccountID:            "acc-1",
		PeriodEnd:            time.Now().UTC().Add(time.Hour),
		BankStatementBalance: decimal.NewFromInt(1000),
		DepositsInTransit: []usecase.ReconciliationItemInput{
			{Reference: "wire-7", Amount: decimal.RequireFromString("10.005")},
		},
	})
	if !errors.Is(err, domain.ErrSubCentAmount) {
		t.Fatalf("expected sub-cent rejection, got %v", err)
	}
}

func TestReconciliationUseCase_ApproveDualControl(t *testing.T) {
	f := newReconFixture(t)
	f.seedFundedLedger(t, "acc-1", "led-1", decimal.NewFromInt(1000))

	record, err := f.recon.Reconcile(actorCtx("alice"), usecase.ReconcileInput{
		AccountID:            "acc-1",
		PeriodEnd:            time.Now().UTC().Add(time.Hour),
		BankStatementBalance: decimal.NewFromInt(1000),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The preparer cannot sign off their own reconciliation.
	if _, err := f.recon.ApproveReconciliation(actorCtx("alice"), record.ID); !errors.Is(err, domain.ErrSelfApproval) {
		t.Fatalf("expected self-approval error, got %v", err)
	}

	approved, err := f.recon.ApproveReconciliation(actorCtx("bob"), record.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if approved.ApprovedBy == nil || *approved.ApprovedBy != "bob" {
		t.Error("expected approved_by bob")
	}

	// Approval is once.
	if _, err := f.recon.ApproveReconciliation(actorCtx("carol"), record.ID); !errors.Is(err, domain.ErrReconciliationApproved) {
		t.Fatalf("expected already-approved error, got %v", err)
	}
}

func TestReconciliationUseCase_CheckConsistency(t *testing.T) {
	f := newReconFixture(t)
	f.seedFundedLedger(t, "acc-1", "led-1", decimal.NewFromInt(1000))

	accountBalance, ledgerSum, err := f.recon.CheckConsistency(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !accountBalance.Equal(ledgerSum) {
		t.Errorf("expected consistent balances, got %s vs %s", accountBalance, ledgerSum)
	}
}
