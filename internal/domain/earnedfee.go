package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EarnedFeeEvent records the one sanctioned path by which trust funds
// become firm revenue: a fee recognized as earned, debited from a
// client ledger toward the firm's operating account. Immutable once
// created.
type EarnedFeeEvent struct {
	ID            string
	LedgerID      string
	TransactionID string
	Amount        decimal.Decimal
	InvoiceRef    string
	OperatingRef  string
	ApprovedBy    string
	CreatedAt     time.Time
}
