package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReconciliationItemKind classifies a timing-difference item attached
// to a reconciliation record.
type ReconciliationItemKind string

const (
	ItemKindOutstandingCheck ReconciliationItemKind = "outstanding_check"
	ItemKindDepositInTransit ReconciliationItemKind = "deposit_in_transit"
)

// ReconciliationItem is one outstanding check or deposit in transit
// explaining a timing difference between bank and book.
type ReconciliationItem struct {
	ID               string
	ReconciliationID string
	Kind             ReconciliationItemKind
	Reference        string
	Amount           decimal.Decimal
	ItemDate         time.Time
}

// ReconciliationRecord is the outcome of a three-way balance
// comparison for one trust account and period: bank statement vs the
// account's own ledger vs the sum of its client ledgers. The record is
// persisted whether or not it balances; failing to reconcile is a
// reportable business fact, not an engine error.
type ReconciliationRecord struct {
	ID                   string
	AccountID            string
	PeriodEnd            time.Time
	BankStatementBalance decimal.Decimal
	TrustLedgerBalance   decimal.Decimal
	ClientLedgerSum      decimal.Decimal
	AdjustedBankBalance  decimal.Decimal
	DiscrepancyAmount    decimal.Decimal
	// StructuralGap is trustLedgerBalance - clientLedgerSum. Any nonzero
	// value means the ledger itself is internally inconsistent, which no
	// timing adjustment can explain.
	StructuralGap decimal.Decimal
	IsReconciled  bool
	Notes         string
	PreparedBy    string
	ApprovedBy    *string
	ApprovedAt    *time.Time
	CreatedAt     time.Time

	Items []ReconciliationItem
}

// CanApprove reports whether the record can still be approved.
func (r *ReconciliationRecord) CanApprove() error {
	if r.ApprovedBy != nil {
		return ErrReconciliationApproved
	}
	return nil
}
