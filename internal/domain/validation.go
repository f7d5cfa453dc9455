package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Validation errors
var (
	ErrInvalidTransactionType = errors.New("invalid transaction type")
	ErrMissingPayorPayee      = errors.New("payor and payee are required")
	ErrMissingDescription     = errors.New("description is required")
	ErrInvalidName            = errors.New("invalid name")
	ErrInvalidCurrency        = errors.New("invalid currency code")
	ErrAmountTooLarge         = errors.New("amount exceeds maximum allowed")
	ErrMissingReason          = errors.New("reason is required")
	ErrMissingActor           = errors.New("actor identity is required")
)

const (
	MaxNameLength        = 255
	MaxDescriptionLength = 1024
	MaxTransactionAmount = "1000000000" // 1 billion
)

// Valid currency codes for trust accounts (ISO 4217, jurisdictions we operate in)
var validCurrencies = map[string]bool{
	"USD": true, "CAD": true, "GBP": true, "EUR": true, "AUD": true,
}

// ValidateAmount checks a transaction amount: strictly positive, no
// sub-cent precision, below the hard ceiling.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	if err := ValidateSubCent(amount); err != nil {
		return err
	}

	maxAmount, _ := decimal.NewFromString(MaxTransactionAmount)
	if amount.GreaterThan(maxAmount) {
		return fmt.Errorf("%w: maximum amount is %s", ErrAmountTooLarge, MaxTransactionAmount)
	}

	return nil
}

// ValidateSubCent rejects amounts that cannot be represented in whole
// cents. Splitting below the minor unit would break the exact
// allocation-sum invariant, so it is a hard error, not a rounding case.
func ValidateSubCent(amount decimal.Decimal) error {
	if !amount.Equal(amount.Truncate(2)) {
		return fmt.Errorf("%w: %s", ErrSubCentAmount, amount)
	}
	return nil
}

// ValidateComplianceMetadata checks the payor/payee/description fields
// bar regulators require on every trust transaction.
func ValidateComplianceMetadata(payor, payee, description string) error {
	if strings.TrimSpace(payor) == "" || strings.TrimSpace(payee) == "" {
		return ErrMissingPayorPayee
	}

	description = strings.TrimSpace(description)
	if description == "" {
		return ErrMissingDescription
	}
	if len(description) > MaxDescriptionLength {
		return fmt.Errorf("%w: description exceeds %d characters", ErrInvalidName, MaxDescriptionLength)
	}

	return nil
}

// ValidateName validates account and ledger display names.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)

	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	}

	if len(name) > MaxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, MaxNameLength)
	}

	return nil
}

// ValidateCurrency validates a currency code.
func ValidateCurrency(currency string) error {
	currency = strings.ToUpper(strings.TrimSpace(currency))

	if !validCurrencies[currency] {
		return fmt.Errorf("%w: %s is not a supported currency", ErrInvalidCurrency, currency)
	}

	return nil
}

const (
	// DefaultPageSize is the page size when a list request names none.
	DefaultPageSize = 50

	// MaxPageSize caps the page size of any list request.
	MaxPageSize = 1000
)

// ValidatePagination validates and limits pagination parameters.
func ValidatePagination(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset
}
