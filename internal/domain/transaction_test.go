package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestTransactionTypeDirection(t *testing.T) {
	credits := []TransactionType{TransactionTypeDeposit, TransactionTypeTransferIn, TransactionTypeInterest}
	for _, tt := range credits {
		assert.Equal(t, int64(1), tt.Direction(), "type %s", tt)
	}

	debits := []TransactionType{
		TransactionTypeWithdrawal, TransactionTypeTransferOut,
		TransactionTypeRefundToClient, TransactionTypeFeeEarned,
	}
	for _, tt := range debits {
		assert.Equal(t, int64(-1), tt.Direction(), "type %s", tt)
	}
}

func TestTransactionEffectiveDirection(t *testing.T) {
	originalID := "tx-1"

	deposit := &TrustTransaction{Type: TransactionTypeDeposit}
	assert.Equal(t, int64(1), deposit.EffectiveDirection())

	depositReversal := &TrustTransaction{Type: TransactionTypeDeposit, OriginalTxID: &originalID}
	assert.Equal(t, int64(-1), depositReversal.EffectiveDirection())

	withdrawalReversal := &TrustTransaction{Type: TransactionTypeWithdrawal, OriginalTxID: &originalID}
	assert.Equal(t, int64(1), withdrawalReversal.EffectiveDirection())
}

func TestTransactionStateGuards(t *testing.T) {
	pending := &TrustTransaction{Status: TransactionStatusPending}
	assert.NoError(t, pending.CanApprove())
	assert.ErrorIs(t, pending.CanVoid(), ErrTransactionNotVoidable)

	approved := &TrustTransaction{Status: TransactionStatusApproved}
	assert.ErrorIs(t, approved.CanApprove(), ErrTransactionNotApprovable)
	assert.NoError(t, approved.CanVoid())

	rejected := &TrustTransaction{Status: TransactionStatusRejected}
	assert.ErrorIs(t, rejected.CanApprove(), ErrTransactionNotApprovable)
	assert.ErrorIs(t, rejected.CanVoid(), ErrTransactionNotVoidable)

	voided := &TrustTransaction{Status: TransactionStatusVoided, Void: &VoidInfo{}}
	assert.ErrorIs(t, voided.CanApprove(), ErrTransactionNotApprovable)
	assert.ErrorIs(t, voided.CanVoid(), ErrAlreadyVoided)
	assert.True(t, voided.IsVoided())
}

func TestTransactionValidate(t *testing.T) {
	valid := &TrustTransaction{
		Type:        TransactionTypeDeposit,
		Amount:      decimal.NewFromInt(100),
		Payor:       "Client A",
		Payee:       "Firm IOLTA",
		Description: "retainer",
	}
	assert.NoError(t, valid.Validate())

	badType := *valid
	badType.Type = "wire"
	assert.ErrorIs(t, badType.Validate(), ErrInvalidTransactionType)

	noPayee := *valid
	noPayee.Payee = ""
	assert.ErrorIs(t, noPayee.Validate(), ErrMissingPayorPayee)
}

func TestLedgerGuards(t *testing.T) {
	active := &ClientTrustLedger{Status: LedgerStatusActive, Balance: decimal.NewFromInt(100)}
	assert.NoError(t, active.ValidateCredit())
	assert.NoError(t, active.ValidateDebit(decimal.NewFromInt(100)))
	assert.ErrorIs(t, active.ValidateDebit(decimal.NewFromInt(101)), ErrInsufficientFunds)
	assert.ErrorIs(t, active.CanClose(), ErrLedgerNotEmpty)

	frozen := &ClientTrustLedger{Status: LedgerStatusFrozen, Balance: decimal.NewFromInt(100)}
	assert.NoError(t, frozen.ValidateCredit(), "frozen ledgers still accept deposits")
	assert.ErrorIs(t, frozen.ValidateDebit(decimal.NewFromInt(10)), ErrLedgerNotActive)

	closed := &ClientTrustLedger{Status: LedgerStatusClosed}
	assert.ErrorIs(t, closed.ValidateCredit(), ErrLedgerNotActive)
	assert.NoError(t, closed.CanClose())

	empty := &ClientTrustLedger{Status: LedgerStatusActive}
	assert.NoError(t, empty.CanClose())
}
