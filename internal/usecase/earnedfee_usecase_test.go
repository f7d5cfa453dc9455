package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/lexhq/trustledger/internal/domain"
	"github.com/lexhq/trustledger/internal/usecase"
	"github.com/lexhq/trustledger/internal/usecase/mocks"
)

type earnedFeeFixture struct {
	*approvalFixture
	earnedFee *usecase.EarnedFeeUseCase
}

func newEarnedFeeFixture(t *testing.T) *earnedFeeFixture {
	t.Helper()
	af := newApprovalFixture(true)
	txMgr := mocks.NewMockTransactionManager()
	idGen := mocks.NewMockIDGenerator("fee")
	return &earnedFeeFixture{
		approvalFixture: af,
		earnedFee: usecase.NewEarnedFeeUseCase(
			txMgr, af.accountRepo, af.ledgerRepo, af.txRepo, af.earnedFeeRepo,
			af.outboxRepo, af.auditRepo, idGen, nil, nil, true,
		),
	}
}

func TestEarnedFeeUseCase_SynchronousRecognition(t *testing.T) {
	f := newEarnedFeeFixture(t)
	f.seedFundedLedger(t, "acc-1", "led-1", decimal.NewFromInt(1000))

	txn, feeEvent, err := f.earnedFee.RecognizeEarnedFee(actorCtx("alice"), usecase.RecognizeEarnedFeeInput{
		LedgerID:     "led-1",
		Amount:       decimal.NewFromInt(300),
		InvoiceRef:   "INV-2026-041",
		OperatingRef: "OP-DEP-88",
		ApproverID:   "bob",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if txn.Type != domain.TransactionTypeFeeEarned {
		t.Errorf("expected fee_earned, got %s", txn.Type)
	}
	if txn.Status != domain.TransactionStatusApproved {
		t.Errorf("expected approved, got %s", txn.Status)
	}
	if feeEvent == nil {
		t.Fatal("expected earned-fee event on the synchronous path")
	}
	if feeEvent.TransactionID != txn.ID {
		t.Error("event must link to the fee debit")
	}
	if feeEvent.InvoiceRef != "INV-2026-041" || feeEvent.OperatingRef != "OP-DEP-88" {
		t.Error("event must carry the invoice and operating references")
	}

	ledger, _ := f.ledgerRepo.GetByID(context.Background(), "led-1")
	if !ledger.Balance.Equal(decimal.NewFromInt(700)) {
		t.Errorf("expected ledger balance 700, got %s", ledger.Balance)
	}
	account, _ := f.accountRepo.GetByID(context.Background(), "acc-1")
	if !account.Balance.Equal(decimal.NewFromInt(700)) {
		t.Errorf("expected account balance 700, got %s", account.Balance)
	}
}

func TestEarnedFeeUseCase_SelfApprovalBlocked(t *testing.T) {
	f := newEarnedFeeFixture(t)
	f.seedFundedLedger(t, "acc-1", "led-1", decimal.NewFromInt(1000))

	_, _, err := f.earnedFee.RecognizeEarnedFee(actorCtx("alice"), usecase.RecognizeEarnedFeeInput{
		LedgerID:   "led-1",
		Amount:     decimal.NewFromInt(300),
		InvoiceRef: "INV-2026-041",
		ApproverID: "alice",
	})
	if !errors.Is(err, domain.ErrSelfApproval) {
		t.Fatalf("expected self-approval error, got %v", err)
	}
}

func TestEarnedFeeUseCase_DeferredRecognitionPendsThroughApproval(t *testing.T) {
	f := newEarnedFeeFixture(t)
	f.seedFundedLedger(t, "acc-1", "led-1", decimal.NewFromInt(1000))

	txn, feeEvent, err := f.earnedFee.RecognizeEarnedFee(actorCtx("alice"), usecase.RecognizeEarnedFeeInput{
		LedgerID:   "led-1",
		Amount:     decimal.NewFromInt(300),
		InvoiceRef: "INV-2026-042",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if txn.Status != domain.TransactionStatusPending {
		t.Errorf("expected pending, got %s", txn.Status)
	}
	if feeEvent != nil {
		t.Error("no earned-fee event until approval")
	}

	ledger, _ := f.ledgerRepo.GetByID(context.Background(), "led-1")
	if !ledger.Balance.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("balance moved before approval: %s", ledger.Balance)
	}

	// The normal maker-checker path applies it and writes the event.
	if _, err := f.approval.Approve(actorCtx("bob"), txn.ID); err != nil {
		t.Fatalf("approval failed: %v", err)
	}

	ledger, _ = f.ledgerRepo.GetByID(context.Background(), "led-1")
	if !ledger.Balance.Equal(decimal.NewFromInt(700)) {
		t.Errorf("expected ledger balance 700, got %s", ledger.Balance)
	}

	got, err := f.earnedFeeRepo.GetByTransaction(context.Background(), txn.ID)
	if err != nil {
		t.Fatalf("earned-fee event missing after approval: %v", err)
	}
	if got.ApprovedBy != "bob" {
		t.Errorf("expected approved_by bob, got %s", got.ApprovedBy)
	}
	if got.InvoiceRef != "INV-2026-042" {
		t.Errorf("expected invoice ref carried through, got %q", got.InvoiceRef)
	}
}

func TestEarnedFeeUseCase_InsufficientFunds(t *testing.T) {
	f := newEarnedFeeFixture(t)
	f.seedFundedLedger(t, "acc-1", "led-1", decimal.NewFromInt(100))

	_, _, err := f.earnedFee.RecognizeEarnedFee(actorCtx("alice"), usecase.RecognizeEarnedFeeInput{
		LedgerID:   "led-1",
		Amount:     decimal.NewFromInt(300),
		InvoiceRef: "INV-2026-043",
		ApproverID: "bob",
	})
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
}

func TestEarnedFeeUseCase_FrozenLedgerRefused(t *testing.T) {
	f := newEarnedFeeFixture(t)
	f.accountRepo.Create(context.Background(), &domain.TrustBankAccount{
		ID: "acc-1", Name: "Firm IOLTA", Currency: "USD", Status: domain.AccountStatusActive,
		Balance: decimal.NewFromInt(500),
	})
	f.ledgerRepo.Create(context.Background(), &domain.ClientTrustLedger{
		ID: "led-1", AccountID: "acc-1", Name: "Client", Status: domain.LedgerStatusFrozen,
		Balance: decimal.NewFromInt(500),
	})

	_, _, err := f.earnedFee.RecognizeEarnedFee(actorCtx("alice"), usecase.RecognizeEarnedFeeInput{
		LedgerID:   "led-1",
		Amount:     decimal.NewFromInt(100),
		InvoiceRef: "INV-2026-044",
		ApproverID: "bob",
	})
	if !errors.Is(err, domain.ErrLedgerNotActive) {
		t.Fatalf("expected ledger-not-active, got %v", err)
	}
}
