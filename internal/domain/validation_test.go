package domain

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestValidateAmount(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		want   error
	}{
		{"positive whole dollars", "100", nil},
		{"whole cents", "100.25", nil},
		{"zero", "0", ErrInvalidAmount},
		{"negative", "-5", ErrInvalidAmount},
		{"sub-cent precision", "100.005", ErrSubCentAmount},
		{"trailing zero cents ok", "100.250", nil},
		{"over the ceiling", "1000000001", ErrAmountTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAmount(decimal.RequireFromString(tt.amount))
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestValidateComplianceMetadata(t *testing.T) {
	assert.NoError(t, ValidateComplianceMetadata("Client A", "Firm IOLTA", "retainer"))
	assert.ErrorIs(t, ValidateComplianceMetadata("", "Firm IOLTA", "retainer"), ErrMissingPayorPayee)
	assert.ErrorIs(t, ValidateComplianceMetadata("Client A", "  ", "retainer"), ErrMissingPayorPayee)
	assert.ErrorIs(t, ValidateComplianceMetadata("Client A", "Firm IOLTA", ""), ErrMissingDescription)
	assert.Error(t, ValidateComplianceMetadata("Client A", "Firm IOLTA", strings.Repeat("x", MaxDescriptionLength+1)))
}

func TestValidateCurrency(t *testing.T) {
	assert.NoError(t, ValidateCurrency("USD"))
	assert.NoError(t, ValidateCurrency(" usd "))
	assert.ErrorIs(t, ValidateCurrency("JPY"), ErrInvalidCurrency)
	assert.ErrorIs(t, ValidateCurrency(""), ErrInvalidCurrency)
}

func TestValidatePagination(t *testing.T) {
	limit, offset := ValidatePagination(0, -5)
	assert.Equal(t, DefaultPageSize, limit)
	assert.Equal(t, 0, offset)

	limit, offset = ValidatePagination(5000, 10)
	assert.Equal(t, MaxPageSize, limit)
	assert.Equal(t, 10, offset)

	limit, offset = ValidatePagination(25, 100)
	assert.Equal(t, 25, limit)
	assert.Equal(t, 100, offset)
}
