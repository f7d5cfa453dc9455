package domain

import "time"

// Event types
const (
	EventTypeDepositPosted          = "transaction.deposit_posted"
	EventTypeWithdrawalRequested    = "transaction.withdrawal_requested"
	EventTypeTransferRequested      = "transaction.transfer_requested"
	EventTypeTransactionApproved    = "transaction.approved"
	EventTypeTransactionRejected    = "transaction.rejected"
	EventTypeTransactionVoided      = "transaction.voided"
	EventTypeEarnedFeeRecognized    = "earned_fee.recognized"
	EventTypeReconciliationRecorded = "reconciliation.recorded"
)

// Aggregate types
const (
	AggregateTypeTransaction    = "transaction"
	AggregateTypeAccount        = "account"
	AggregateTypeLedger         = "ledger"
	AggregateTypeReconciliation = "reconciliation"
)

// OutboxEvent represents an event to be published to downstream
// consumers (billing, notifications) after commit.
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}
