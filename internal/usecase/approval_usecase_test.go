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

type approvalFixture struct {
	accountRepo   *mocks.MockAccountRepository
	ledgerRepo    *mocks.MockLedgerRepository
	txRepo        *mocks.MockTransactionRepository
	earnedFeeRepo *mocks.MockEarnedFeeRepository
	outboxRepo    *mocks.MockOutboxRepository
	auditRepo     *mocks.MockAuditRepository

	posting  *usecase.PostingUseCase
	approval *usecase.ApprovalUseCase
}

func newApprovalFixture(dualControl bool) *approvalFixture {
	f := &approvalFixture{
		accountRepo:   mocks.NewMockAccountRepository(),
		ledgerRepo:    mocks.NewMockLedgerRepository(),
		txRepo:        mocks.NewMockTransactionRepository(),
		earnedFeeRepo: mocks.NewMockEarnedFeeRepository(),
		outboxRepo:    mocks.NewMockOutboxRepository(),
		auditRepo:     mocks.NewMockAuditRepository(),
	}
	txMgr := mocks.NewMockTransactionManager()
	idGen := mocks.NewMockIDGenerator("id")

	f.posting = usecase.NewPostingUseCase(txMgr, f.accountRepo, f.ledgerRepo, f.txRepo, f.outboxRepo, f.auditRepo, idGen, nil, nil)
	f.approval = usecase.NewApprovalUseCase(txMgr, f.accountRepo, f.ledgerRepo, f.txRepo, f.earnedFeeRepo, f.outboxRepo, f.auditRepo, idGen, nil, nil, dualControl)
	return f
}

func (f *approvalFixture) seedFundedLedger(t *testing.T, accountID, ledgerID string, amount decimal.Decimal) {
	t.Helper()
	f.accountRepo.Create(context.Background(), &domain.TrustBankAccount{
		ID: accountID, Name: "Firm IOLTA", Currency: "USD", Status: domain.AccountStatusActive,
	})
	f.ledgerRepo.Create(context.Background(), &domain.ClientTrustLedger{
		ID: ledgerID, AccountID: accountID, Name: "Client " + ledgerID, Status: domain.LedgerStatusActive,
	})
	_, err := f.posting.PostDeposit(actorCtx("funder"), usecase.PostDepositInput{
		AccountID:   accountID,
		Amount:      amount,
		Payor:       "Client",
		Payee:       "Firm IOLTA",
		Description: "retainer",
		Allocations: []domain.AllocationRequest{{LedgerID: ledgerID, Amount: amount}},
	})
	if err != nil {
		t.Fatalf("seed deposit failed: %v", err)
	}
}

func (f *approvalFixture) pendWithdrawal(t *testing.T, creator, accountID, ledgerID string, amount decimal.Decimal) *domain.TrustTransaction {
	t.Helper()
	txn, err := f.posting.PostWithdrawal(actorCtx(creator), usecase.PostWithdrawalInput{
		AccountID:   accountID,
		LedgerID:    ledgerID,
		Amount:      amount,
		Payor:       "Firm IOLTA",
		Payee:       "Client",
		Description: "disbursement",
	})
	if err != nil {
		t.Fatalf("pend withdrawal failed: %v", err)
	}
	return txn
}

func TestApprovalUseCase_ApproveWithdrawal(t *testing.T) {
	f := newApprovalFixture(true)
	f.seedFundedLedger(t, "acc-1", "led-1", decimal.NewFromInt(1000))
	pending := f.pendWithdrawal(t, "alice", "acc-1", "led-1", decimal.NewFromInt(400))

	approved, err := f.approval.Approve(actorCtx("bob"), pending.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if approved.Status != domain.TransactionStatusApproved {
		t.Errorf("expected approved, got %s", approved.Status)
	}
	if approved.ApprovedBy == nil || *approved.ApprovedBy != "bob" {
		t.Error("expected approved_by bob")
	}
	if approved.AccountBalanceBefore == nil || !approved.AccountBalanceBefore.Equal(decimal.NewFromInt(1000)) {
		t.Error("expected balance-before snapshot of 1000")
	}
	if approved.AccountBalanceAfter == nil || !approved.AccountBalanceAfter.Equal(decimal.NewFromInt(600)) {
		t.Error("expected balance-after snapshot of 600")
	}

	account, _ := f.accountRepo.GetByID(context.Background(), "acc-1")
	if !account.Balance.Equal(decimal.NewFromInt(600)) {
		t.Errorf("expected account balance 600, got %s", account.Balance)
	}
	ledger, _ := f.ledgerRepo.GetByID(context.Background(), "led-1")
	if !ledger.Balance.Equal(decimal.NewFromInt(600)) {
		t.Errorf("expected ledger balance 600, got %s", ledger.Balance)
	}
}

func TestApprovalUseCase_SelfApprovalBlocked(t *testing.T) {
	f := newApprovalFixture(true)
	f.seedFundedLedger(t, "acc-1", "led-1", decimal.NewFromInt(1000))
	pending := f.pendWithdrawal(t, "alice", "acc-1", "led-1", decimal.NewFromInt(400))

	_, err := f.approval.Approve(actorCtx("alice"), pending.ID)
	if !errors.Is(err, domain.ErrSelfApproval) {
		t.Fatalf("expected self-approval error, got %v", err)
	}

	// Nothing may have moved.
	account, _ := f.accountRepo.GetByID(context.Background(), "acc-1")
	if !account.Balance.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("balance moved on refused approval: %s", account.Balance)
	}
}

func TestApprovalUseCase_SelfApprovalAllowedWithoutDualControl(t *testing.T) {
	f := newApprovalFixture(false)
	f.seedFundedLedger(t, "acc-1", "led-1", decimal.NewFromInt(1000))
	pending := f.pendWithdrawal(t, "alice", "acc-1", "led-1", decimal.NewFromInt(400))

	approved, err := f.approval.Approve(actorCtx("alice"), pending.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if approved.Status != domain.TransactionStatusApproved {
		t.Errorf("expected approved, got %s", approved.Status)
	}
}

func TestApprovalUseCase_SufficiencyRecheckedAtApproval(t *testing.T) {
	f := newApprovalFixture(true)
	f.seedFundedLedger(t, "acc-1", "led-1", decimal.NewFromInt(1000))

	// Two withdrawals both pend against the same 1000.
	first := f.pendWithdrawal(t, "alice", "acc-1", "led-1", decimal.NewFromInt(800))
	second := f.pendWithdrawal(t, "alice", "acc-1", "led-1", decimal.NewFromInt(800))

	if _, err := f.approval.Approve(actorCtx("bob"), first.ID); err != nil {
		t.Fatalf("first approval failed: %v", err)
	}
	_, err := f.approval.Approve(actorCtx("bob"), second.ID)
	if !errors.Is(err, domain.ErrInsufficientFundsAtApproval) {
		t.Fatalf("expected insufficient funds at approval, got %v", err)
	}

	ledger, _ := f.ledgerRepo.GetByID(context.Background(), "led-1")
	if !ledger.Balance.Equal(decimal.NewFromInt(200)) {
		t.Errorf("expected ledger balance 200, got %s", ledger.Balance)
	}
}

func TestApprovalUseCase_ApproveIsTerminalPerTransaction(t *testing.T) {
	f := newApprovalFixture(true)
	f.seedFundedLedger(t, "acc-1", "led-1", decimal.NewFromInt(1000))
	pending := f.pendWithdrawal(t, "alice", "acc-1", "led-1", decimal.NewFromInt(100))

	if _, err := f.approval.Approve(actorCtx("bob"), pending.ID); err != nil {
		t.Fatalf("first approval failed: %v", err)
	}
	_, err := f.approval.Approve(actorCtx("carol"), pending.ID)
	if !errors.Is(err, domain.ErrTransactionNotApprovable) {
		t.Fatalf("expected not-approvable on second approval, got %v", err)
	}

	// The balance effect applied exactly once.
	account, _ := f.accountRepo.GetByID(context.Background(), "acc-1")
	if !account.Balance.Equal(decimal.NewFromInt(900)) {
		t.Errorf("expected account balance 900, got %s", account.Balance)
	}
}

func TestApprovalUseCase_ApproveTransferGroup(t *testing.T) {
	f := newApprovalFixture(true)
	f.seedFundedLedger(t, "acc-1", "led-1", decimal.NewFromInt(1000))
	f.ledgerRepo.Create(context.Background(), &domain.ClientTrustLedger{
		ID: "led-2", AccountID: "acc-1", Name: "Client led-2", Status: domain.LedgerStatusActive,
	})

	legs, err := f.posting.PostTransfer(actorCtx("alice"), usecase.PostTransferInput{
		AccountID:    "acc-1",
		FromLedgerID: "led-1",
		ToLedgerID:   "led-2",
		Amount:       decimal.NewFromInt(300),
		Payor:        "Client A",
		Payee:        "Client B",
		Description:  "reallocation",
	})
	if err != nil {
		t.Fatalf("transfer failed: %v", err)
	}

	// Approving either leg approves the pair.
	if _, err := f.approval.Approve(actorCtx("bob"), legs[0].ID); err != nil {
		t.Fatalf("approval failed: %v", err)
	}

	for _, leg := range legs {
		got, _ := f.txRepo.GetByID(context.Background(), leg.ID)
		if got.Status != domain.TransactionStatusApproved {
			t.Errorf("leg %s: expected approved, got %s", leg.ID, got.Status)
		}
	}

	from, _ := f.ledgerRepo.GetByID(context.Background(), "led-1")
	to, _ := f.ledgerRepo.GetByID(context.Background(), "led-2")
	if !from.Balance.Equal(decimal.NewFromInt(700)) || !to.Balance.Equal(decimal.NewFromInt(300)) {
		t.Errorf("expected 700/300 after transfer, got %s/%s", from.Balance, to.Balance)
	}

	// The two legs cancel at the account level.
	account, _ := f.accountRepo.GetByID(context.Background(), "acc-1")
	if !account.Balance.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("expected account balance unchanged at 1000, got %s", account.Balance)
	}
}

func TestApprovalUseCase_RejectIsTerminalWithNoBalanceEffect(t *testing.T) {
	f := newApprovalFixture(true)
	f.seedFundedLedger(t, "acc-1", "led-1", decimal.NewFromInt(1000))
	pending := f.pendWithdrawal(t, "alice", "acc-1", "led-1", decimal.NewFromInt(400))

	rejected, err := f.approval.Reject(actorCtx("bob"), pending.ID, "payee name does not match matter file")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rejected.Status != domain.TransactionStatusRejected {
		t.Errorf("expected rejected, got %s", rejected.Status)
	}
	if rejected.RejectReason == "" {
		t.Error("expected reject reason to be recorded")
	}

	account, _ := f.accountRepo.GetByID(context.Background(), "acc-1")
	if !account.Balance.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("balance moved on rejection: %s", account.Balance)
	}

	// Rejected is terminal: no approval afterward.
	_, err = f.approval.Approve(actorCtx("bob"), pending.ID)
	if !errors.Is(err, domain.ErrTransactionNotApprovable) {
		t.Fatalf("expected not-approvable after rejection, got %v", err)
	}
}

func TestApprovalUseCase_RejectOneLegRejectsGroup(t *testing.T) {
	f := newApprovalFixture(true)
	f.seedFundedLedger(t, "acc-1", "led-1", decimal.NewFromInt(1000))
	f.ledgerRepo.Create(context.Background(), &domain.ClientTrustLedger{
		ID: "led-2", AccountID: "acc-1", Name: "Client led-2", Status: domain.LedgerStatusActive,
	})

	legs, err := f.posting.PostTransfer(actorCtx("alice"), usecase.PostTransferInput{
		AccountID:    "acc-1",
		FromLedgerID: "led-1",
		ToLedgerID:   "led-2",
		Amount:       decimal.NewFromInt(300),
		Payor:        "Client A",
		Payee:        "Client B",
		Description:  "reallocation",
	})
	if err != nil {
		t.Fatalf("transfer failed: %v", err)
	}

	if _, err := f.approval.Reject(actorCtx("bob"), legs[1].ID, "wrong destination matter"); err != nil {
		t.Fatalf("rejection failed: %v", err)
	}
	for _, leg := range legs {
		got, _ := f.txRepo.GetByID(context.Background(), leg.ID)
		if got.Status != domain.TransactionStatusRejected {
			t.Errorf("leg %s: expected rejected, got %s", leg.ID, got.Status)
		}
	}
}

func TestApprovalUseCase_ApproveRequiresActor(t *testing.T) {
	f := newApprovalFixture(true)
	_, err := f.approval.Approve(context.Background(), "tx-1")
	if !errors.Is(err, domain.ErrMissingActor) {
		t.Fatalf("expected missing actor error, got %v", err)
	}
}
