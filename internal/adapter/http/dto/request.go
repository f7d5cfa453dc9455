package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/lexhq/trustledger/internal/domain"
	"github.com/lexhq/trustledger/internal/usecase"
)

// CreateAccountRequest represents a request to open a trust account.
type CreateAccountRequest struct {
	Name         string `json:"name"`
	BankName     string `json:"bank_name"`
	Jurisdiction string `json:"jurisdiction"`
	Currency     string `json:"currency"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateAccountRequest) ToUseCaseInput() usecase.CreateAccountInput {
	return usecase.CreateAccountInput{
		Name:         r.Name,
		BankName:     r.BankName,
		Jurisdiction: r.Jurisdiction,
		Currency:     r.Currency,
	}
}

// CreateLedgerRequest represents a request to open a client ledger.
type CreateLedgerRequest struct {
	Name      string `json:"name"`
	ClientRef string `json:"client_ref"`
	MatterRef string `json:"matter_ref"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateLedgerRequest) ToUseCaseInput(accountID string) usecase.CreateLedgerInput {
	return usecase.CreateLedgerInput{
		AccountID: accountID,
		Name:      r.Name,
		ClientRef: r.ClientRef,
		MatterRef: r.MatterRef,
	}
}

// AllocationItem is one slice of a deposit mapped to a client ledger.
type AllocationItem struct {
	LedgerID    string          `json:"ledger_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
}

// PostDepositRequest represents a deposit into the pooled account.
type PostDepositRequest struct {
	Type           string           `json:"type,omitempty"`
	Amount         decimal.Decimal  `json:"amount"`
	Payor          string           `json:"payor"`
	Payee          string           `json:"payee"`
	Description    string           `json:"description"`
	CheckRef       string           `json:"check_ref,omitempty"`
	IdempotencyKey string           `json:"idempotency_key,omitempty"`
	Allocations    []AllocationItem `json:"allocations"`
}

// ToUseCaseInput converts to use case input.
func (r *PostDepositRequest) ToUseCaseInput(accountID string) usecase.PostDepositInput {
	allocations := make([]domain.AllocationRequest, len(r.Allocations))
	for i, a := range r.Allocations {
		allocations[i] = domain.AllocationRequest{
			LedgerID:    a.LedgerID,
			Amount:      a.Amount,
			Description: a.Description,
		}
	}

	return usecase.PostDepositInput{
		AccountID:      accountID,
		Type:           domain.TransactionType(r.Type),
		Amount:         r.Amount,
		Payor:          r.Payor,
		Payee:          r.Payee,
		Description:    r.Description,
		CheckRef:       r.CheckRef,
		IdempotencyKey: r.IdempotencyKey,
		Allocations:    allocations,
	}
}

// PostWithdrawalRequest represents a disbursement request.
type PostWithdrawalRequest struct {
	LedgerID       string          `json:"ledger_id"`
	Type           string          `json:"type,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	Payor          string          `json:"payor"`
	Payee          string          `json:"payee"`
	Description    string          `json:"description"`
	CheckRef       string          `json:"check_ref,omitempty"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *PostWithdrawalRequest) ToUseCaseInput(accountID string) usecase.PostWithdrawalInput {
	return usecase.PostWithdrawalInput{
		AccountID:      accountID,
		LedgerID:       r.LedgerID,
		Type:           domain.TransactionType(r.Type),
		Amount:         r.Amount,
		Payor:          r.Payor,
		Payee:          r.Payee,
		Description:    r.Description,
		CheckRef:       r.CheckRef,
		IdempotencyKey: r.IdempotencyKey,
	}
}

// PostTransferRequest represents a ledger-to-ledger transfer.
type PostTransferRequest struct {
	FromLedgerID   string          `json:"from_ledger_id"`
	ToLedgerID     string          `json:"to_ledger_id"`
	Amount         decimal.Decimal `json:"amount"`
	Payor          string          `json:"payor"`
	Payee          string          `json:"payee"`
	Description    string          `json:"description"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *PostTransferRequest) ToUseCaseInput(accountID string) usecase.PostTransferInput {
	return usecase.PostTransferInput{
		AccountID:      accountID,
		FromLedgerID:   r.FromLedgerID,
		ToLedgerID:     r.ToLedgerID,
		Amount:         r.Amount,
		Payor:          r.Payor,
		Payee:          r.Payee,
		Description:    r.Description,
		IdempotencyKey: r.IdempotencyKey,
	}
}

// ReasonRequest carries the mandatory reason for reject, void, freeze
// and close operations.
type ReasonRequest struct {
	Reason string `json:"reason"`
}

// RecognizeEarnedFeeRequest represents a fee recognition.
type RecognizeEarnedFeeRequest struct {
	Amount         decimal.Decimal `json:"amount"`
	InvoiceRef     string          `json:"invoice_ref"`
	OperatingRef   string          `json:"operating_ref,omitempty"`
	ApproverID     string          `json:"approver_id,omitempty"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *RecognizeEarnedFeeRequest) ToUseCaseInput(ledgerID string) usecase.RecognizeEarnedFeeInput {
	return usecase.RecognizeEarnedFeeInput{
		LedgerID:       ledgerID,
		Amount:         r.Amount,
		InvoiceRef:     r.InvoiceRef,
		OperatingRef:   r.OperatingRef,
		ApproverID:     r.ApproverID,
		IdempotencyKey: r.IdempotencyKey,
	}
}

// ReconciliationItemRequest is one timing-difference item.
type ReconciliationItemRequest struct {
	Reference string          `json:"reference"`
	Amount    decimal.Decimal `json:"amount"`
	ItemDate  time.Time       `json:"item_date"`
}

// CreateReconciliationRequest represents a period-end reconciliation
// submission.
type CreateReconciliationRequest struct {
	PeriodEnd            time.Time                   `json:"period_end"`
	BankStatementBalance decimal.Decimal             `json:"bank_statement_balance"`
	OutstandingChecks    []ReconciliationItemRequest `json:"outstanding_checks,omitempty"`
	DepositsInTransit    []ReconciliationItemRequest `json:"deposits_in_transit,omitempty"`
	Notes                string                      `json:"notes,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateReconciliationRequest) ToUseCaseInput(accountID string) usecase.ReconcileInput {
	return usecase.ReconcileInput{
		AccountID:            accountID,
		PeriodEnd:            r.PeriodEnd,
		BankStatementBalance: r.BankStatementBalance,
		OutstandingChecks:    itemInputs(r.OutstandingChecks),
		DepositsInTransit:    itemInputs(r.DepositsInTransit),
		Notes:                r.Notes,
	}
}

func itemInputs(items []ReconciliationItemRequest) []usecase.ReconciliationItemInput {
	result := make([]usecase.ReconciliationItemInput, len(items))
	for i, item := range items {
		result[i] = usecase.ReconciliationItemInput{
			Reference: item.Reference,
			Amount:    item.Amount,
			ItemDate:  item.ItemDate,
		}
	}
	return result
}
