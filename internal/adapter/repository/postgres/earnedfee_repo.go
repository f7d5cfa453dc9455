package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lexhq/trustledger/internal/domain"
	"github.com/lexhq/trustledger/internal/usecase"
)

// EarnedFeeRepository implements usecase.EarnedFeeRepository.
type EarnedFeeRepository struct {
	pool *pgxpool.Pool
}

// NewEarnedFeeRepository creates a new EarnedFeeRepository.
func NewEarnedFeeRepository(pool *pgxpool.Pool) *EarnedFeeRepository {
	return &EarnedFeeRepository{pool: pool}
}

const earnedFeeColumns = `
	id, ledger_id, transaction_id, amount, invoice_ref,
	operating_ref, approved_by, created_at`

// Create inserts an earned-fee event inside tx, in the same commit as
// the fee transaction it records.
func (r *EarnedFeeRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.EarnedFeeEvent) error {
	pt, err := pgxFrom(tx)
	if err != nil {
		return err
	}

	_, err = pt.Exec(ctx, `
		INSERT INTO earned_fee_events (
			id, ledger_id, transaction_id, amount, invoice_ref,
			operating_ref, approved_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		event.ID,
		event.LedgerID,
		event.TransactionID,
		decimalArg(event.Amount),
		event.InvoiceRef,
		event.OperatingRef,
		event.ApprovedBy,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert earned fee event: %w", err)
	}

	return nil
}

// GetByTransaction fetches the earned-fee event tied to a transaction.
func (r *EarnedFeeRepository) GetByTransaction(ctx context.Context, transactionID string) (*domain.EarnedFeeEvent, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT`+earnedFeeColumns+` FROM earned_fee_events WHERE transaction_id = $1`,
		transactionID)
	return scanEarnedFee(row)
}

// ListByLedger returns a ledger's earned-fee events, newest first.
func (r *EarnedFeeRepository) ListByLedger(ctx context.Context, ledgerID string, limit, offset int) ([]*domain.EarnedFeeEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+earnedFeeColumns+`
		FROM earned_fee_events
		WHERE ledger_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, ledgerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list earned fee events: %w", err)
	}
	defer rows.Close()

	var events []*domain.EarnedFeeEvent
	for rows.Next() {
		event, err := scanEarnedFee(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	return events, rows.Err()
}

func scanEarnedFee(row pgx.Row) (*domain.EarnedFeeEvent, error) {
	var (
		event  domain.EarnedFeeEvent
		amount pgtype.Numeric
	)

	err := row.Scan(
		&event.ID,
		&event.LedgerID,
		&event.TransactionID,
		&amount,
		&event.InvoiceRef,
		&event.OperatingRef,
		&event.ApprovedBy,
		&event.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan earned fee event: %w", err)
	}

	if event.Amount, err = toDecimal(amount); err != nil {
		return nil, fmt.Errorf("earned fee amount: %w", err)
	}

	return &event, nil
}
