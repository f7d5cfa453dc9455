package domain

import "errors"

var (
	// Account errors
	ErrAccountNotFound  = errors.New("trust account not found")
	ErrAccountNotActive = errors.New("trust account is not active")
	ErrAccountNotEmpty  = errors.New("trust account has open ledgers")

	// Ledger errors
	ErrLedgerNotFound  = errors.New("client ledger not found")
	ErrLedgerNotActive = errors.New("client ledger is not active")
	ErrLedgerNotEmpty  = errors.New("client ledger balance must be zero")
	ErrSameLedger      = errors.New("cannot transfer to the same ledger")

	// Posting errors
	ErrInvalidAmount               = errors.New("amount must be positive")
	ErrSubCentAmount               = errors.New("amount carries sub-cent precision")
	ErrInsufficientFunds           = errors.New("insufficient funds")
	ErrInsufficientFundsAtApproval = errors.New("insufficient funds at approval")
	ErrDuplicateSubmission         = errors.New("duplicate submission for idempotency key")

	// Allocation errors
	ErrNoAllocations          = errors.New("at least one allocation line is required")
	ErrAllocationMismatch     = errors.New("allocation lines do not sum to transaction amount")
	ErrCrossAccountAllocation = errors.New("allocation references a ledger on a different trust account")
	ErrNegativeAllocation     = errors.New("deposit allocation lines must be positive")

	// Transaction errors
	ErrTransactionNotFound      = errors.New("trust transaction not found")
	ErrTransactionNotApprovable = errors.New("transaction is not pending approval")
	ErrTransactionNotVoidable   = errors.New("only approved transactions can be voided")
	ErrAlreadyVoided            = errors.New("transaction has already been voided")
	ErrSelfApproval             = errors.New("approver must differ from the transaction creator")

	// Reconciliation errors
	ErrReconciliationNotFound = errors.New("reconciliation record not found")
	ErrReconciliationApproved = errors.New("reconciliation record is already approved")
)
