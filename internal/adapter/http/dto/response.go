package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/lexhq/trustledger/internal/domain"
)

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// AccountResponse represents a trust account in API responses.
type AccountResponse struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	BankName     string          `json:"bank_name,omitempty"`
	Jurisdiction string          `json:"jurisdiction,omitempty"`
	Currency     string          `json:"currency"`
	Balance      decimal.Decimal `json:"balance"`
	Version      int64           `json:"version"`
	Status       string          `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// AccountFromDomain converts a domain account to a response.
func AccountFromDomain(a *domain.TrustBankAccount) *AccountResponse {
	return &AccountResponse{
		ID:           a.ID,
		Name:         a.Name,
		BankName:     a.BankName,
		Jurisdiction: a.Jurisdiction,
		Currency:     a.Currency,
		Balance:      a.Balance,
		Version:      a.Version,
		Status:       string(a.Status),
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

// AccountsFromDomain converts domain accounts to responses.
func AccountsFromDomain(accounts []*domain.TrustBankAccount) []*AccountResponse {
	result := make([]*AccountResponse, len(accounts))
	for i, a := range accounts {
		result[i] = AccountFromDomain(a)
	}
	return result
}

// LedgerResponse represents a client trust ledger in API responses.
type LedgerResponse struct {
	ID        string          `json:"id"`
	AccountID string          `json:"account_id"`
	Name      string          `json:"name"`
	ClientRef string          `json:"client_ref,omitempty"`
	MatterRef string          `json:"matter_ref,omitempty"`
	Balance   decimal.Decimal `json:"balance"`
	Version   int64           `json:"version"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// LedgerFromDomain converts a domain ledger to a response.
func LedgerFromDomain(l *domain.ClientTrustLedger) *LedgerResponse {
	return &LedgerResponse{
		ID:        l.ID,
		AccountID: l.AccountID,
		Name:      l.Name,
		ClientRef: l.ClientRef,
		MatterRef: l.MatterRef,
		Balance:   l.Balance,
		Version:   l.Version,
		Status:    string(l.Status),
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
}

// LedgersFromDomain converts domain ledgers to responses.
func LedgersFromDomain(ledgers []*domain.ClientTrustLedger) []*LedgerResponse {
	result := make([]*LedgerResponse, len(ledgers))
	for i, l := range ledgers {
		result[i] = LedgerFromDomain(l)
	}
	return result
}

// AllocationLineResponse represents one allocation line.
type AllocationLineResponse struct {
	ID                 string           `json:"id"`
	LedgerID           string           `json:"ledger_id"`
	Amount             decimal.Decimal  `json:"amount"`
	Description        string           `json:"description,omitempty"`
	LedgerBalanceAfter *decimal.Decimal `json:"ledger_balance_after,omitempty"`
}

// VoidInfoResponse represents void metadata on a reversed transaction.
type VoidInfoResponse struct {
	VoidedAt     time.Time `json:"voided_at"`
	VoidedBy     string    `json:"voided_by"`
	Reason       string    `json:"reason"`
	ReversalTxID string    `json:"reversal_tx_id"`
}

// TransactionResponse represents a trust transaction in API responses.
type TransactionResponse struct {
	ID                   string                   `json:"id"`
	AccountID            string                   `json:"account_id"`
	Type                 string                   `json:"type"`
	Status               string                   `json:"status"`
	Amount               decimal.Decimal          `json:"amount"`
	Payor                string                   `json:"payor"`
	Payee                string                   `json:"payee"`
	Description          string                   `json:"description"`
	CheckRef             string                   `json:"check_ref,omitempty"`
	TransferGroupID      *string                  `json:"transfer_group_id,omitempty"`
	OriginalTxID         *string                  `json:"original_tx_id,omitempty"`
	Void                 *VoidInfoResponse        `json:"void,omitempty"`
	CreatedBy            string                   `json:"created_by"`
	ApprovedBy           *string                  `json:"approved_by,omitempty"`
	RejectedBy           *string                  `json:"rejected_by,omitempty"`
	RejectReason         string                   `json:"reject_reason,omitempty"`
	AccountBalanceBefore *decimal.Decimal         `json:"account_balance_before,omitempty"`
	AccountBalanceAfter  *decimal.Decimal         `json:"account_balance_after,omitempty"`
	PostedAt             *time.Time               `json:"posted_at,omitempty"`
	CreatedAt            time.Time                `json:"created_at"`
	Lines                []AllocationLineResponse `json:"lines,omitempty"`
}

// TransactionFromDomain converts a domain transaction to a response.
func TransactionFromDomain(t *domain.TrustTransaction) *TransactionResponse {
	resp := &TransactionResponse{
		ID:                   t.ID,
		AccountID:            t.AccountID,
		Type:                 string(t.Type),
		Status:               string(t.Status),
		Amount:               t.Amount,
		Payor:                t.Payor,
		Payee:                t.Payee,
		Description:          t.Description,
		CheckRef:             t.CheckRef,
		TransferGroupID:      t.TransferGroupID,
		OriginalTxID:         t.OriginalTxID,
		CreatedBy:            t.CreatedBy,
		ApprovedBy:           t.ApprovedBy,
		RejectedBy:           t.RejectedBy,
		RejectReason:         t.RejectReason,
		AccountBalanceBefore: t.AccountBalanceBefore,
		AccountBalanceAfter:  t.AccountBalanceAfter,
		PostedAt:             t.PostedAt,
		CreatedAt:            t.CreatedAt,
	}

	if t.Void != nil {
		resp.Void = &VoidInfoResponse{
			VoidedAt:     t.Void.VoidedAt,
			VoidedBy:     t.Void.VoidedBy,
			Reason:       t.Void.Reason,
			ReversalTxID: t.Void.ReversalTxID,
		}
	}

	for _, line := range t.Lines {
		resp.Lines = append(resp.Lines, AllocationLineResponse{
			ID:                 line.ID,
			LedgerID:           line.LedgerID,
			Amount:             line.Amount,
			Description:        line.Description,
			LedgerBalanceAfter: line.LedgerBalanceAfter,
		})
	}

	return resp
}

// TransactionsFromDomain converts domain transactions to responses.
func TransactionsFromDomain(txns []*domain.TrustTransaction) []*TransactionResponse {
	result := make([]*TransactionResponse, len(txns))
	for i, t := range txns {
		result[i] = TransactionFromDomain(t)
	}
	return result
}

// EarnedFeeResponse represents an earned-fee event.
type EarnedFeeResponse struct {
	ID            string          `json:"id"`
	LedgerID      string          `json:"ledger_id"`
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	InvoiceRef    string          `json:"invoice_ref,omitempty"`
	OperatingRef  string          `json:"operating_ref,omitempty"`
	ApprovedBy    string          `json:"approved_by"`
	CreatedAt     time.Time       `json:"created_at"`
}

// EarnedFeeFromDomain converts a domain earned-fee event to a response.
func EarnedFeeFromDomain(e *domain.EarnedFeeEvent) *EarnedFeeResponse {
	return &EarnedFeeResponse{
		ID:            e.ID,
		LedgerID:      e.LedgerID,
		TransactionID: e.TransactionID,
		Amount:        e.Amount,
		InvoiceRef:    e.InvoiceRef,
		OperatingRef:  e.OperatingRef,
		ApprovedBy:    e.ApprovedBy,
		CreatedAt:     e.CreatedAt,
	}
}

// EarnedFeesFromDomain converts domain earned-fee events to responses.
func EarnedFeesFromDomain(events []*domain.EarnedFeeEvent) []*EarnedFeeResponse {
	result := make([]*EarnedFeeResponse, len(events))
	for i, e := range events {
		result[i] = EarnedFeeFromDomain(e)
	}
	return result
}

// ReconciliationItemResponse represents one timing-difference item.
type ReconciliationItemResponse struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	Reference string          `json:"reference,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	ItemDate  time.Time       `json:"item_date"`
}

// ReconciliationResponse represents a reconciliation record.
type ReconciliationResponse struct {
	ID                   string                       `json:"id"`
	AccountID            string                       `json:"account_id"`
	PeriodEnd            time.Time                    `json:"period_end"`
	BankStatementBalance decimal.Decimal              `json:"bank_statement_balance"`
	TrustLedgerBalance   decimal.Decimal              `json:"trust_ledger_balance"`
	ClientLedgerSum      decimal.Decimal              `json:"client_ledger_sum"`
	AdjustedBankBalance  decimal.Decimal              `json:"adjusted_bank_balance"`
	DiscrepancyAmount    decimal.Decimal              `json:"discrepancy_amount"`
	StructuralGap        decimal.Decimal              `json:"structural_gap"`
	IsReconciled         bool                         `json:"is_reconciled"`
	Notes                string                       `json:"notes,omitempty"`
	PreparedBy           string                       `json:"prepared_by"`
	ApprovedBy           *string                      `json:"approved_by,omitempty"`
	ApprovedAt           *time.Time                   `json:"approved_at,omitempty"`
	CreatedAt            time.Time                    `json:"created_at"`
	Items                []ReconciliationItemResponse `json:"items,omitempty"`
}

// ReconciliationFromDomain converts a domain record to a response.
func ReconciliationFromDomain(r *domain.ReconciliationRecord) *ReconciliationResponse {
	resp := &ReconciliationResponse{
		ID:                   r.ID,
		AccountID:            r.AccountID,
		PeriodEnd:            r.PeriodEnd,
		BankStatementBalance: r.BankStatementBalance,
		TrustLedgerBalance:   r.TrustLedgerBalance,
		ClientLedgerSum:      r.ClientLedgerSum,
		AdjustedBankBalance:  r.AdjustedBankBalance,
		DiscrepancyAmount:    r.DiscrepancyAmount,
		StructuralGap:        r.StructuralGap,
		IsReconciled:         r.IsReconciled,
		Notes:                r.Notes,
		PreparedBy:           r.PreparedBy,
		ApprovedBy:           r.ApprovedBy,
		ApprovedAt:           r.ApprovedAt,
		CreatedAt:            r.CreatedAt,
	}

	for _, item := range r.Items {
		resp.Items = append(resp.Items, ReconciliationItemResponse{
			ID:        item.ID,
			Kind:      string(item.Kind),
			Reference: item.Reference,
			Amount:    item.Amount,
			ItemDate:  item.ItemDate,
		})
	}

	return resp
}

// ReconciliationsFromDomain converts domain records to responses.
func ReconciliationsFromDomain(records []*domain.ReconciliationRecord) []*ReconciliationResponse {
	result := make([]*ReconciliationResponse, len(records))
	for i, r := range records {
		result[i] = ReconciliationFromDomain(r)
	}
	return result
}

// AuditLogResponse represents an audit trail entry.
type AuditLogResponse struct {
	ID           string         `json:"id"`
	ActorID      string         `json:"actor_id"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id"`
	IPAddress    string         `json:"ip_address,omitempty"`
	RequestID    string         `json:"request_id,omitempty"`
	Reason       string         `json:"reason,omitempty"`
	BeforeState  map[string]any `json:"before_state,omitempty"`
	AfterState   map[string]any `json:"after_state,omitempty"`
	Status       string         `json:"status"`
	ErrorMessage string         `json:"error_message,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// AuditLogFromDomain converts a domain audit log to a response.
func AuditLogFromDomain(l *domain.TrustAuditLog) *AuditLogResponse {
	return &AuditLogResponse{
		ID:           l.ID,
		ActorID:      l.ActorID,
		Action:       l.Action,
		ResourceType: l.ResourceType,
		ResourceID:   l.ResourceID,
		IPAddress:    l.IPAddress,
		RequestID:    l.RequestID,
		Reason:       l.Reason,
		BeforeState:  l.BeforeState,
		AfterState:   l.AfterState,
		Status:       l.Status,
		ErrorMessage: l.ErrorMessage,
		CreatedAt:    l.CreatedAt,
	}
}

// AuditLogsFromDomain converts domain audit logs to responses.
func AuditLogsFromDomain(logs []*domain.TrustAuditLog) []*AuditLogResponse {
	result := make([]*AuditLogResponse, len(logs))
	for i, l := range logs {
		result[i] = AuditLogFromDomain(l)
	}
	return result
}
