package domain

import (
	"encoding/json"
	"time"
)

// TrustAuditLog is an append-only audit trail entry. Nothing in this
// service ever updates or deletes an audit row.
type TrustAuditLog struct {
	ID           string
	ActorID      string
	Action       string
	ResourceType string
	ResourceID   string
	IPAddress    string
	RequestID    string
	Reason       string
	BeforeState  JSON
	AfterState   JSON
	Status       string
	ErrorMessage string
	CreatedAt    time.Time
}

// JSON is a type alias for opaque state snapshots
type JSON map[string]any

// AuditAction represents different types of auditable actions
type AuditAction string

const (
	AuditActionAccountCreate AuditAction = "account.create"
	AuditActionAccountClose  AuditAction = "account.close"

	AuditActionLedgerCreate   AuditAction = "ledger.create"
	AuditActionLedgerFreeze   AuditAction = "ledger.freeze"
	AuditActionLedgerUnfreeze AuditAction = "ledger.unfreeze"
	AuditActionLedgerClose    AuditAction = "ledger.close"

	AuditActionDepositPost        AuditAction = "transaction.deposit"
	AuditActionWithdrawalRequest  AuditAction = "transaction.withdrawal_request"
	AuditActionTransferRequest    AuditAction = "transaction.transfer_request"
	AuditActionTransactionApprove AuditAction = "transaction.approve"
	AuditActionTransactionReject  AuditAction = "transaction.reject"
	AuditActionTransactionVoid    AuditAction = "transaction.void"

	AuditActionEarnedFeeRecognize AuditAction = "earned_fee.recognize"

	AuditActionReconciliationCreate  AuditAction = "reconciliation.create"
	AuditActionReconciliationApprove AuditAction = "reconciliation.approve"
)

// AuditStatus represents the status of an audited action
type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusFailure AuditStatus = "failure"
)

// MarshalState converts a domain object to JSON for audit logging
func MarshalState(v any) JSON {
	if v == nil {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return JSON{"error": "failed to marshal state"}
	}

	var result JSON
	if err := json.Unmarshal(data, &result); err != nil {
		return JSON{"error": "failed to unmarshal state"}
	}

	return result
}

// AuditFilter defines filters for querying audit logs
type AuditFilter struct {
	ActorID      string
	Action       string
	ResourceType string
	ResourceID   string
	StartDate    *time.Time
	EndDate      *time.Time
	Limit        int
	Offset       int
}
