package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountStatus is the lifecycle status of a trust bank account.
type AccountStatus string

const (
	AccountStatusActive   AccountStatus = "active"
	AccountStatusInactive AccountStatus = "inactive"
	AccountStatusClosed   AccountStatus = "closed"
)

// TrustBankAccount is a pooled IOLTA bank account holding funds for
// multiple clients. Its balance always equals the sum of the balances
// of its open client ledgers.
type TrustBankAccount struct {
	ID           string
	Name         string
	BankName     string
	Jurisdiction string
	Currency     string
	Balance      decimal.Decimal
	Version      int64
	Status       AccountStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ValidatePosting checks that the account can accept new transactions.
func (a *TrustBankAccount) ValidatePosting() error {
	if a.Status != AccountStatusActive {
		return ErrAccountNotActive
	}
	return nil
}

// ApplyCredit returns the account balance after crediting amount.
func (a *TrustBankAccount) ApplyCredit(amount decimal.Decimal) decimal.Decimal {
	return a.Balance.Add(amount)
}

// ApplyDebit returns the account balance after debiting amount.
func (a *TrustBankAccount) ApplyDebit(amount decimal.Decimal) decimal.Decimal {
	return a.Balance.Sub(amount)
}
