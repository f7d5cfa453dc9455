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
	"github.com/lexhq/trustledger/internal/usecase"
)

// LedgerRepository implements usecase.LedgerRepository.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

const ledgerColumns = `
	id, account_id, name, client_ref, matter_ref,
	balance, version, status, created_at, updated_at`

// Create inserts a new client trust ledger.
func (r *LedgerRepository) Create(ctx context.Context, ledger *domain.ClientTrustLedger) error {
	query := `
		INSERT INTO client_ledgers (
			id, account_id, name, client_ref, matter_ref,
			balance, version, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.pool.Exec(ctx, query,
		ledger.ID,
		ledger.AccountID,
		ledger.Name,
		ledger.ClientRef,
		ledger.MatterRef,
		decimalArg(ledger.Balance),
		ledger.Version,
		ledger.Status,
		ledger.CreatedAt,
		ledger.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ledger: %w", err)
	}

	return nil
}

// GetByID fetches a ledger by ID.
func (r *LedgerRepository) GetByID(ctx context.Context, id string) (*domain.ClientTrustLedger, error) {
	row := r.pool.QueryRow(ctx, `SELECT`+ledgerColumns+` FROM client_ledgers WHERE id = $1`, id)
	return scanLedger(row)
}

// GetByIDTx fetches a ledger inside tx. No per-ledger lock is taken;
// the enclosing account row lock already serializes writers.
func (r *LedgerRepository) GetByIDTx(ctx context.Context, tx usecase.Transaction, id string) (*domain.ClientTrustLedger, error) {
	pt, err := pgxFrom(tx)
	if err != nil {
		return nil, err
	}

	row := pt.QueryRow(ctx, `SELECT`+ledgerColumns+` FROM client_ledgers WHERE id = $1`, id)
	return scanLedger(row)
}

// GetByIDsTx fetches several ledgers inside tx in one round trip.
func (r *LedgerRepository) GetByIDsTx(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.ClientTrustLedger, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	pt, err := pgxFrom(tx)
	if err != nil {
		return nil, err
	}

	rows, err := pt.Query(ctx, `SELECT`+ledgerColumns+` FROM client_ledgers WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("get ledgers: %w", err)
	}
	defer rows.Close()

	var ledgers []*domain.ClientTrustLedger
	for rows.Next() {
		ledger, err := scanLedger(rows)
		if err != nil {
			return nil, err
		}
		ledgers = append(ledgers, ledger)
	}

	return ledgers, rows.Err()
}

// UpdateBalance writes the ledger's new balance inside tx.
func (r *LedgerRepository) UpdateBalance(ctx context.Context, tx usecase.Transaction, id string, balance decimal.Decimal, updatedAt time.Time) error {
	pt, err := pgxFrom(tx)
	if err != nil {
		return err
	}

	tag, err := pt.Exec(ctx, `
		UPDATE client_ledgers
		SET balance = $2, version = version + 1, updated_at = $3
		WHERE id = $1
	`, id, decimalArg(balance), updatedAt)
	if err != nil {
		return fmt.Errorf("update ledger balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLedgerNotFound
	}

	return nil
}

// UpdateStatus writes the ledger's new status inside tx.
func (r *LedgerRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, id string, status domain.LedgerStatus, updatedAt time.Time) error {
	pt, err := pgxFrom(tx)
	if err != nil {
		return err
	}

	tag, err := pt.Exec(ctx, `
		UPDATE client_ledgers
		SET status = $2, version = version + 1, updated_at = $3
		WHERE id = $1
	`, id, status, updatedAt)
	if err != nil {
		return fmt.Errorf("update ledger status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLedgerNotFound
	}

	return nil
}

// ListByAccount returns an account's ledgers, newest first.
func (r *LedgerRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.ClientTrustLedger, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+ledgerColumns+`
		FROM client_ledgers
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list ledgers: %w", err)
	}
	defer rows.Close()

	var ledgers []*domain.ClientTrustLedger
	for rows.Next() {
		ledger, err := scanLedger(rows)
		if err != nil {
			return nil, err
		}
		ledgers = append(ledgers, ledger)
	}

	return ledgers, rows.Err()
}

// SumBalances sums the balances of all non-closed ledgers on an
// account. The result must equal the account's own balance; any
// difference is an internal consistency failure.
func (r *LedgerRepository) SumBalances(ctx context.Context, accountID string) (decimal.Decimal, error) {
	var sum pgtype.Numeric

	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(balance), 0)
		FROM client_ledgers
		WHERE account_id = $1 AND status <> 'closed'
	`, accountID).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum ledger balances: %w", err)
	}

	return toDecimal(sum)
}

func scanLedger(row pgx.Row) (*domain.ClientTrustLedger, error) {
	var (
		ledger  domain.ClientTrustLedger
		balance pgtype.Numeric
	)

	err := row.Scan(
		&ledger.ID,
		&ledger.AccountID,
		&ledger.Name,
		&ledger.ClientRef,
		&ledger.MatterRef,
		&balance,
		&ledger.Version,
		&ledger.Status,
		&ledger.CreatedAt,
		&ledger.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrLedgerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan ledger: %w", err)
	}

	if ledger.Balance, err = toDecimal(balance); err != nil {
		return nil, fmt.Errorf("ledger balance: %w", err)
	}

	return &ledger, nil
}
