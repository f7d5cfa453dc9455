package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AllocationRequest is one proposed (ledger, amount) slice of a
// bank-level transaction, before validation.
type AllocationRequest struct {
	LedgerID    string
	Amount      decimal.Decimal
	Description string
}

// BuildAllocations validates a proposed allocation against the
// transaction it funds and returns ordered allocation lines with no
// balance-after value yet; the posting engine fills those in when the
// balances actually move.
//
// The signed sum of the lines must equal direction(txType) * amount
// exactly. Currency arithmetic is fixed-point; any mismatch is a hard
// validation error, never rounded away.
func BuildAllocations(
	txType TransactionType,
	amount decimal.Decimal,
	requests []AllocationRequest,
	ledgers map[string]*ClientTrustLedger,
	accountID string,
) ([]AllocationLine, error) {
	if len(requests) == 0 {
		return nil, ErrNoAllocations
	}

	want := amount.Mul(decimal.NewFromInt(txType.Direction()))

	sum := decimal.Zero
	lines := make([]AllocationLine, 0, len(requests))
	for _, req := range requests {
		ledger, ok := ledgers[req.LedgerID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrLedgerNotFound, req.LedgerID)
		}
		if ledger.AccountID != accountID {
			return nil, fmt.Errorf("%w: ledger %s belongs to account %s",
				ErrCrossAccountAllocation, ledger.ID, ledger.AccountID)
		}
		if err := ValidateSubCent(req.Amount); err != nil {
			return nil, err
		}
		if txType.Direction() > 0 && req.Amount.LessThanOrEqual(decimal.Zero) {
			return nil, fmt.Errorf("%w: ledger %s amount %s",
				ErrNegativeAllocation, ledger.ID, req.Amount)
		}

		sum = sum.Add(req.Amount)
		lines = append(lines, AllocationLine{
			LedgerID:    req.LedgerID,
			Amount:      req.Amount,
			Description: req.Description,
		})
	}

	if !sum.Equal(want) {
		return nil, fmt.Errorf("%w: lines sum to %s, transaction amount is %s",
			ErrAllocationMismatch, sum, want)
	}

	return lines, nil
}

// MirrorAllocations returns opposite-signed copies of lines, used when
// building the reversing entry for a void.
func MirrorAllocations(lines []AllocationLine) []AllocationLine {
	mirrored := make([]AllocationLine, 0, len(lines))
	for _, line := range lines {
		mirrored = append(mirrored, AllocationLine{
			LedgerID:    line.LedgerID,
			Amount:      line.Amount.Neg(),
			Description: line.Description,
		})
	}
	return mirrored
}
