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

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

const accountColumns = `
	id, name, bank_name, jurisdiction, currency,
	balance, version, status, created_at, updated_at`

// Create inserts a new trust bank account.
func (r *AccountRepository) Create(ctx context.Context, account *domain.TrustBankAccount) error {
	query := `
		INSERT INTO trust_accounts (
			id, name, bank_name, jurisdiction, currency,
			balance, version, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.pool.Exec(ctx, query,
		account.ID,
		account.Name,
		account.BankName,
		account.Jurisdiction,
		account.Currency,
		decimalArg(account.Balance),
		account.Version,
		account.Status,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}

	return nil
}

// GetByID fetches an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.TrustBankAccount, error) {
	row := r.pool.QueryRow(ctx, `SELECT`+accountColumns+` FROM trust_accounts WHERE id = $1`, id)
	return scanAccount(row)
}

// GetByIDForUpdate fetches an account inside tx, taking the row lock.
// Every balance-mutating operation on the account or its ledgers goes
// through this lock, so concurrent postings serialize here.
func (r *AccountRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.TrustBankAccount, error) {
	pt, err := pgxFrom(tx)
	if err != nil {
		return nil, err
	}

	row := pt.QueryRow(ctx, `SELECT`+accountColumns+` FROM trust_accounts WHERE id = $1 FOR UPDATE`, id)
	return scanAccount(row)
}

// UpdateBalance writes the account's new balance inside tx.
func (r *AccountRepository) UpdateBalance(ctx context.Context, tx usecase.Transaction, id string, balance decimal.Decimal, updatedAt time.Time) error {
	pt, err := pgxFrom(tx)
	if err != nil {
		return err
	}

	tag, err := pt.Exec(ctx, `
		UPDATE trust_accounts
		SET balance = $2, version = version + 1, updated_at = $3
		WHERE id = $1
	`, id, decimalArg(balance), updatedAt)
	if err != nil {
		return fmt.Errorf("update account balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}

	return nil
}

// UpdateStatus writes the account's new status inside tx.
func (r *AccountRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, id string, status domain.AccountStatus, updatedAt time.Time) error {
	pt, err := pgxFrom(tx)
	if err != nil {
		return err
	}

	tag, err := pt.Exec(ctx, `
		UPDATE trust_accounts
		SET status = $2, version = version + 1, updated_at = $3
		WHERE id = $1
	`, id, status, updatedAt)
	if err != nil {
		return fmt.Errorf("update account status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}

	return nil
}

// List returns accounts ordered by creation time, newest first.
func (r *AccountRepository) List(ctx context.Context, limit, offset int) ([]*domain.TrustBankAccount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+accountColumns+`
		FROM trust_accounts
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*domain.TrustBankAccount
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}

	return accounts, rows.Err()
}

func scanAccount(row pgx.Row) (*domain.TrustBankAccount, error) {
	var (
		account domain.TrustBankAccount
		balance pgtype.Numeric
	)

	err := row.Scan(
		&account.ID,
		&account.Name,
		&account.BankName,
		&account.Jurisdiction,
		&account.Currency,
		&balance,
		&account.Version,
		&account.Status,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan account: %w", err)
	}

	if account.Balance, err = toDecimal(balance); err != nil {
		return nil, fmt.Errorf("account balance: %w", err)
	}

	return &account, nil
}
