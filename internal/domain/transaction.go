package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies a trust transaction.
type TransactionType string

const (
	TransactionTypeDeposit        TransactionType = "deposit"
	TransactionTypeWithdrawal     TransactionType = "withdrawal"
	TransactionTypeTransferIn     TransactionType = "transfer_in"
	TransactionTypeTransferOut    TransactionType = "transfer_out"
	TransactionTypeRefundToClient TransactionType = "refund_to_client"
	TransactionTypeFeeEarned      TransactionType = "fee_earned"
	TransactionTypeInterest       TransactionType = "interest"
)

// Direction returns +1 for transaction types that credit the trust
// account and -1 for types that debit it.
func (t TransactionType) Direction() int64 {
	switch t {
	case TransactionTypeDeposit, TransactionTypeTransferIn, TransactionTypeInterest:
		return 1
	default:
		return -1
	}
}

// IsValid reports whether t is a known transaction type.
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeDeposit, TransactionTypeWithdrawal,
		TransactionTypeTransferIn, TransactionTypeTransferOut,
		TransactionTypeRefundToClient, TransactionTypeFeeEarned,
		TransactionTypeInterest:
		return true
	}
	return false
}

// TransactionStatus is the lifecycle status of a trust transaction.
type TransactionStatus string

const (
	TransactionStatusPending  TransactionStatus = "pending"
	TransactionStatusApproved TransactionStatus = "approved"
	TransactionStatusRejected TransactionStatus = "rejected"
	TransactionStatusVoided   TransactionStatus = "voided"
)

// VoidInfo records how an approved transaction was reversed. A nil
// VoidInfo means the transaction stands as posted; void metadata cannot
// exist without a void.
type VoidInfo struct {
	VoidedAt     time.Time
	VoidedBy     string
	Reason       string
	ReversalTxID string
}

// TrustTransaction is the ledger's unit of truth. Rows are append-only:
// once approved, nothing but void metadata ever changes, and nothing is
// ever deleted. Corrections happen through linked reversing entries.
type TrustTransaction struct {
	ID              string
	AccountID       string
	Type            TransactionType
	Status          TransactionStatus
	Amount          decimal.Decimal
	Payor           string
	Payee           string
	Description     string
	CheckRef        string
	IdempotencyKey  *string
	TransferGroupID *string
	// OriginalTxID links a reversing entry back to the transaction it cancels.
	OriginalTxID *string
	Void         *VoidInfo
	CreatedBy    string
	ApprovedBy   *string
	RejectedBy   *string
	RejectReason string
	// Account balance snapshots captured atomically when balances apply:
	// at posting for deposits, at approval for withdrawals and transfers.
	AccountBalanceBefore *decimal.Decimal
	AccountBalanceAfter  *decimal.Decimal
	PostedAt             *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time

	Lines []AllocationLine
}

// AllocationLine maps a slice of a bank-level transaction onto one
// client ledger. Amount is signed: positive credits the ledger,
// negative debits it.
type AllocationLine struct {
	ID                 string
	TransactionID      string
	LedgerID           string
	Amount             decimal.Decimal
	Description        string
	LedgerBalanceAfter *decimal.Decimal
	CreatedAt          time.Time
}

// EffectiveDirection is the sign of the transaction's account effect.
// A reversal keeps its original's type for reporting but moves money
// the opposite way, so its sign flips.
func (t *TrustTransaction) EffectiveDirection() int64 {
	if t.OriginalTxID != nil {
		return -t.Type.Direction()
	}
	return t.Type.Direction()
}

// CanApprove reports whether the transaction is awaiting approval.
func (t *TrustTransaction) CanApprove() error {
	if t.Status != TransactionStatusPending {
		return ErrTransactionNotApprovable
	}
	return nil
}

// CanVoid reports whether the transaction can be reversed.
func (t *TrustTransaction) CanVoid() error {
	switch t.Status {
	case TransactionStatusVoided:
		return ErrAlreadyVoided
	case TransactionStatusApproved:
		return nil
	default:
		return ErrTransactionNotVoidable
	}
}

// IsVoided reports whether the transaction has been reversed.
func (t *TrustTransaction) IsVoided() bool {
	return t.Void != nil
}

// Validate checks the transaction's own fields before posting.
func (t *TrustTransaction) Validate() error {
	if err := ValidateAmount(t.Amount); err != nil {
		return err
	}
	if !t.Type.IsValid() {
		return ErrInvalidTransactionType
	}
	return ValidateComplianceMetadata(t.Payor, t.Payee, t.Description)
}
