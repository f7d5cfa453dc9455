package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/lexhq/trustledger/internal/domain"
)

// ReconciliationRepository implements usecase.ReconciliationRepository.
type ReconciliationRepository struct {
	pool *pgxpool.Pool
}

// NewReconciliationRepository creates a new ReconciliationRepository.
func NewReconciliationRepository(pool *pgxpool.Pool) *ReconciliationRepository {
	return &ReconciliationRepository{pool: pool}
}

const reconciliationColumns = `
	id, account_id, period_end, bank_statement_balance,
	trust_ledger_balance, client_ledger_sum, adjusted_bank_balance,
	discrepancy_amount, structural_gap, is_reconciled, notes,
	prepared_by, approved_by, approved_at, created_at`

// Create inserts a reconciliation record and its items in one
// transaction. Records are written whether or not they balance.
func (r *ReconciliationRepository) Create(ctx context.Context, record *domain.ReconciliationRecord) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO reconciliation_records (
			id, account_id, period_end, bank_statement_balance,
			trust_ledger_balance, client_ledger_sum, adjusted_bank_balance,
			discrepancy_amount, structural_gap, is_reconciled, notes,
			prepared_by, approved_by, approved_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`,
		record.ID,
		record.AccountID,
		record.PeriodEnd,
		decimalArg(record.BankStatementBalance),
		decimalArg(record.TrustLedgerBalance),
		decimalArg(record.ClientLedgerSum),
		decimalArg(record.AdjustedBankBalance),
		decimalArg(record.DiscrepancyAmount),
		decimalArg(record.StructuralGap),
		record.IsReconciled,
		record.Notes,
		record.PreparedBy,
		record.ApprovedBy,
		record.ApprovedAt,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert reconciliation record: %w", err)
	}

	for i := range record.Items {
		item := &record.Items[i]
		_, err = tx.Exec(ctx, `
			INSERT INTO reconciliation_items (
				id, reconciliation_id, kind, reference, amount, item_date
			) VALUES ($1, $2, $3, $4, $5, $6)
		`,
			item.ID,
			item.ReconciliationID,
			item.Kind,
			item.Reference,
			decimalArg(item.Amount),
			item.ItemDate,
		)
		if err != nil {
			return fmt.Errorf("insert reconciliation item: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// GetByID fetches a reconciliation record with its items.
func (r *ReconciliationRepository) GetByID(ctx context.Context, id string) (*domain.ReconciliationRecord, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT`+reconciliationColumns+` FROM reconciliation_records WHERE id = $1`, id)

	record, err := scanReconciliation(row)
	if err != nil {
		return nil, err
	}

	if record.Items, err = r.loadItems(ctx, id); err != nil {
		return nil, err
	}

	return record, nil
}

// Approve stamps the reviewing partner on an unapproved record.
func (r *ReconciliationRepository) Approve(ctx context.Context, id, approvedBy string, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE reconciliation_records
		SET approved_by = $2, approved_at = $3
		WHERE id = $1 AND approved_by IS NULL
	`, id, approvedBy, at)
	if err != nil {
		return fmt.Errorf("approve reconciliation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrReconciliationApproved
	}

	return nil
}

// ListByAccount returns an account's reconciliation records, most
// recent period first. Items are not loaded for listings.
func (r *ReconciliationRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.ReconciliationRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+reconciliationColumns+`
		FROM reconciliation_records
		WHERE account_id = $1
		ORDER BY period_end DESC
		LIMIT $2 OFFSET $3
	`, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list reconciliations: %w", err)
	}
	defer rows.Close()

	var records []*domain.ReconciliationRecord
	for rows.Next() {
		record, err := scanReconciliation(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

func (r *ReconciliationRepository) loadItems(ctx context.Context, recordID string) ([]domain.ReconciliationItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, reconciliation_id, kind, reference, amount, item_date
		FROM reconciliation_items
		WHERE reconciliation_id = $1
		ORDER BY item_date, id
	`, recordID)
	if err != nil {
		return nil, fmt.Errorf("load reconciliation items: %w", err)
	}
	defer rows.Close()

	var items []domain.ReconciliationItem
	for rows.Next() {
		var (
			item   domain.ReconciliationItem
			amount pgtype.Numeric
		)

		err := rows.Scan(
			&item.ID,
			&item.ReconciliationID,
			&item.Kind,
			&item.Reference,
			&amount,
			&item.ItemDate,
		)
		if err != nil {
			return nil, fmt.Errorf("scan reconciliation item: %w", err)
		}

		if item.Amount, err = toDecimal(amount); err != nil {
			return nil, fmt.Errorf("item amount: %w", err)
		}

		items = append(items, item)
	}

	return items, rows.Err()
}

func scanReconciliation(row pgx.Row) (*domain.ReconciliationRecord, error) {
	var (
		record      domain.ReconciliationRecord
		bank        pgtype.Numeric
		trust       pgtype.Numeric
		clients     pgtype.Numeric
		adjusted    pgtype.Numeric
		discrepancy pgtype.Numeric
		structural  pgtype.Numeric
	)

	err := row.Scan(
		&record.ID,
		&record.AccountID,
		&record.PeriodEnd,
		&bank,
		&trust,
		&clients,
		&adjusted,
		&discrepancy,
		&structural,
		&record.IsReconciled,
		&record.Notes,
		&record.PreparedBy,
		&record.ApprovedBy,
		&record.ApprovedAt,
		&record.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrReconciliationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan reconciliation: %w", err)
	}

	for _, conv := range []struct {
		src pgtype.Numeric
		dst *decimal.Decimal
	}{
		{bank, &record.BankStatementBalance},
		{trust, &record.TrustLedgerBalance},
		{clients, &record.ClientLedgerSum},
		{adjusted, &record.AdjustedBankBalance},
		{discrepancy, &record.DiscrepancyAmount},
		{structural, &record.StructuralGap},
	} {
		if *conv.dst, err = toDecimal(conv.src); err != nil {
			return nil, fmt.Errorf("reconciliation amount: %w", err)
		}
	}

	return &record, nil
}
