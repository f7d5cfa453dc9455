package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerStatus is the lifecycle status of a client trust ledger.
type LedgerStatus string

const (
	LedgerStatusActive LedgerStatus = "active"
	LedgerStatusFrozen LedgerStatus = "frozen"
	LedgerStatusClosed LedgerStatus = "closed"
)

// ClientTrustLedger is a subsidiary ledger tracking one client's (and
// optionally one matter's) share of a pooled trust account. Its balance
// can never go negative.
type ClientTrustLedger struct {
	ID        string
	AccountID string
	ClientRef string
	MatterRef string
	Name      string
	Balance   decimal.Decimal
	Version   int64
	Status    LedgerStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidateCredit checks that the ledger can receive a deposit. A frozen
// ledger still accepts deposits; a closed one accepts nothing.
func (l *ClientTrustLedger) ValidateCredit() error {
	if l.Status == LedgerStatusClosed {
		return ErrLedgerNotActive
	}
	return nil
}

// ValidateDebit checks that the ledger can be debited by amount.
func (l *ClientTrustLedger) ValidateDebit(amount decimal.Decimal) error {
	if l.Status != LedgerStatusActive {
		return ErrLedgerNotActive
	}
	if l.Balance.LessThan(amount) {
		return ErrInsufficientFunds
	}
	return nil
}

// ApplyCredit returns the ledger balance after crediting amount.
func (l *ClientTrustLedger) ApplyCredit(amount decimal.Decimal) decimal.Decimal {
	return l.Balance.Add(amount)
}

// ApplyDebit returns the ledger balance after debiting amount.
func (l *ClientTrustLedger) ApplyDebit(amount decimal.Decimal) decimal.Decimal {
	return l.Balance.Sub(amount)
}

// CanClose reports whether the ledger may be closed. Closure requires a
// zero balance so no client funds are stranded.
func (l *ClientTrustLedger) CanClose() error {
	if l.Status == LedgerStatusClosed {
		return nil
	}
	if !l.Balance.IsZero() {
		return ErrLedgerNotEmpty
	}
	return nil
}
