package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/lexhq/trustledger/internal/domain"
	"github.com/lexhq/trustledger/internal/usecase"
)

// querier is the subset of pgx shared by pools and transactions.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TransactionRepository implements usecase.TransactionRepository.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

const transactionColumns = `
	id, account_id, type, status, amount, payor, payee, description,
	check_ref, idempotency_key, transfer_group_id, original_tx_id,
	voided_at, voided_by, void_reason, reversal_tx_id,
	created_by, approved_by, rejected_by, reject_reason,
	account_balance_before, account_balance_after,
	posted_at, created_at, updated_at`

// Create inserts a transaction and its allocation lines inside tx.
// A duplicate idempotency key surfaces as ErrDuplicateSubmission.
func (r *TransactionRepository) Create(ctx context.Context, tx usecase.Transaction, txn *domain.TrustTransaction) error {
	pt, err := pgxFrom(tx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO trust_transactions (
			id, account_id, type, status, amount, payor, payee, description,
			check_ref, idempotency_key, transfer_group_id, original_tx_id,
			created_by, approved_by, reject_reason,
			account_balance_before, account_balance_after,
			posted_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20
		)
	`

	_, err = pt.Exec(ctx, query,
		txn.ID,
		txn.AccountID,
		txn.Type,
		txn.Status,
		decimalArg(txn.Amount),
		txn.Payor,
		txn.Payee,
		txn.Description,
		txn.CheckRef,
		txn.IdempotencyKey,
		txn.TransferGroupID,
		txn.OriginalTxID,
		txn.CreatedBy,
		txn.ApprovedBy,
		txn.RejectReason,
		decimalPtrArg(txn.AccountBalanceBefore),
		decimalPtrArg(txn.AccountBalanceAfter),
		txn.PostedAt,
		txn.CreatedAt,
		txn.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "idx_trust_transactions_idempotency") {
			return domain.ErrDuplicateSubmission
		}
		return fmt.Errorf("insert transaction: %w", err)
	}

	for i := range txn.Lines {
		line := &txn.Lines[i]
		_, err = pt.Exec(ctx, `
			INSERT INTO trust_allocation_lines (
				id, transaction_id, ledger_id, amount, description,
				ledger_balance_after, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7)
		`,
			line.ID,
			line.TransactionID,
			line.LedgerID,
			decimalArg(line.Amount),
			line.Description,
			decimalPtrArg(line.LedgerBalanceAfter),
			line.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert allocation line: %w", err)
		}
	}

	return nil
}

// GetByID fetches a transaction and its lines by ID.
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*domain.TrustTransaction, error) {
	return r.getByID(ctx, r.pool, id)
}

// GetByIDTx fetches a transaction and its lines inside tx.
func (r *TransactionRepository) GetByIDTx(ctx context.Context, tx usecase.Transaction, id string) (*domain.TrustTransaction, error) {
	pt, err := pgxFrom(tx)
	if err != nil {
		return nil, err
	}
	return r.getByID(ctx, pt, id)
}

func (r *TransactionRepository) getByID(ctx context.Context, q querier, id string) (*domain.TrustTransaction, error) {
	row := q.QueryRow(ctx, `SELECT`+transactionColumns+` FROM trust_transactions WHERE id = $1`, id)

	txn, err := scanTransaction(row)
	if err != nil {
		return nil, err
	}

	if err := r.loadLines(ctx, q, []*domain.TrustTransaction{txn}); err != nil {
		return nil, err
	}

	return txn, nil
}

// GetByTransferGroup fetches all legs of a transfer group inside tx.
func (r *TransactionRepository) GetByTransferGroup(ctx context.Context, tx usecase.Transaction, groupID string) ([]*domain.TrustTransaction, error) {
	pt, err := pgxFrom(tx)
	if err != nil {
		return nil, err
	}

	rows, err := pt.Query(ctx, `
		SELECT`+transactionColumns+`
		FROM trust_transactions
		WHERE transfer_group_id = $1
		ORDER BY created_at, id
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("get transfer group: %w", err)
	}
	defer rows.Close()

	txns, err := collectTransactions(rows)
	if err != nil {
		return nil, err
	}

	if err := r.loadLines(ctx, pt, txns); err != nil {
		return nil, err
	}

	return txns, nil
}

// MarkApproved flips a pending transaction to approved and stamps the
// account balance snapshots taken under the account lock.
func (r *TransactionRepository) MarkApproved(ctx context.Context, tx usecase.Transaction, id, approvedBy string, balanceBefore, balanceAfter decimal.Decimal, postedAt time.Time) error {
	pt, err := pgxFrom(tx)
	if err != nil {
		return err
	}

	tag, err := pt.Exec(ctx, `
		UPDATE trust_transactions
		SET status = 'approved', approved_by = $2,
		    account_balance_before = $3, account_balance_after = $4,
		    posted_at = $5, updated_at = $5
		WHERE id = $1 AND status = 'pending'
	`, id, approvedBy, decimalArg(balanceBefore), decimalArg(balanceAfter), postedAt)
	if err != nil {
		return fmt.Errorf("mark approved: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTransactionNotApprovable
	}

	return nil
}

// MarkRejected flips a pending transaction to rejected. Rejection is
// terminal and never touches balances.
func (r *TransactionRepository) MarkRejected(ctx context.Context, tx usecase.Transaction, id, rejectedBy, reason string, at time.Time) error {
	pt, err := pgxFrom(tx)
	if err != nil {
		return err
	}

	tag, err := pt.Exec(ctx, `
		UPDATE trust_transactions
		SET status = 'rejected', rejected_by = $2, reject_reason = $3, updated_at = $4
		WHERE id = $1 AND status = 'pending'
	`, id, rejectedBy, reason, at)
	if err != nil {
		return fmt.Errorf("mark rejected: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTransactionNotApprovable
	}

	return nil
}

// MarkVoided stamps void metadata on an approved transaction. The row
// itself is otherwise untouched; the financial reversal lives in the
// linked reversing transaction.
func (r *TransactionRepository) MarkVoided(ctx context.Context, tx usecase.Transaction, id string, void domain.VoidInfo) error {
	pt, err := pgxFrom(tx)
	if err != nil {
		return err
	}

	tag, err := pt.Exec(ctx, `
		UPDATE trust_transactions
		SET status = 'voided', voided_at = $2, voided_by = $3,
		    void_reason = $4, reversal_tx_id = $5, updated_at = $2
		WHERE id = $1 AND status = 'approved'
	`, id, void.VoidedAt, void.VoidedBy, void.Reason, void.ReversalTxID)
	if err != nil {
		return fmt.Errorf("mark voided: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTransactionNotVoidable
	}

	return nil
}

// SetLineBalanceAfter stamps the ledger balance snapshot on an
// allocation line at the moment its balance effect applied.
func (r *TransactionRepository) SetLineBalanceAfter(ctx context.Context, tx usecase.Transaction, lineID string, balanceAfter decimal.Decimal) error {
	pt, err := pgxFrom(tx)
	if err != nil {
		return err
	}

	_, err = pt.Exec(ctx, `
		UPDATE trust_allocation_lines
		SET ledger_balance_after = $2
		WHERE id = $1
	`, lineID, decimalArg(balanceAfter))
	if err != nil {
		return fmt.Errorf("set line balance: %w", err)
	}

	return nil
}

// ListByAccount returns an account's transactions, newest first.
func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.TrustTransaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+transactionColumns+`
		FROM trust_transactions
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list transactions by account: %w", err)
	}
	defer rows.Close()

	txns, err := collectTransactions(rows)
	if err != nil {
		return nil, err
	}

	if err := r.loadLines(ctx, r.pool, txns); err != nil {
		return nil, err
	}

	return txns, nil
}

// ListByLedger returns transactions touching a ledger, newest first.
func (r *TransactionRepository) ListByLedger(ctx context.Context, ledgerID string, limit, offset int) ([]*domain.TrustTransaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+transactionColumns+`
		FROM trust_transactions
		WHERE id IN (
			SELECT transaction_id FROM trust_allocation_lines WHERE ledger_id = $1
		)
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, ledgerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list transactions by ledger: %w", err)
	}
	defer rows.Close()

	txns, err := collectTransactions(rows)
	if err != nil {
		return nil, err
	}

	if err := r.loadLines(ctx, r.pool, txns); err != nil {
		return nil, err
	}

	return txns, nil
}

// AccountBalanceAsOf recomputes the account balance at a cut time from
// transaction history alone. Voided rows stay in the sum; their
// approved reversals cancel them, so a cut taken between posting and
// void reports the balance as it actually stood. A reversal keeps its
// original's type, so its sign flips.
func (r *TransactionRepository) AccountBalanceAsOf(ctx context.Context, accountID string, at time.Time) (decimal.Decimal, error) {
	var sum pgtype.Numeric

	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(
			(CASE WHEN type IN ('deposit', 'transfer_in', 'interest')
			      THEN amount ELSE -amount END)
			* (CASE WHEN original_tx_id IS NULL THEN 1 ELSE -1 END)
		), 0)
		FROM trust_transactions
		WHERE account_id = $1
		  AND status IN ('approved', 'voided')
		  AND posted_at IS NOT NULL
		  AND posted_at <= $2
	`, accountID, at).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("account balance as of: %w", err)
	}

	return toDecimal(sum)
}

// LedgerSumAsOf recomputes the sum of client ledger balances at a cut
// time from allocation lines. The sum comes from different rows than
// AccountBalanceAsOf on purpose: if lines and transactions ever
// diverge, the two cuts diverge too.
func (r *TransactionRepository) LedgerSumAsOf(ctx context.Context, accountID string, at time.Time) (decimal.Decimal, error) {
	var sum pgtype.Numeric

	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(l.amount), 0)
		FROM trust_allocation_lines l
		JOIN trust_transactions t ON t.id = l.transaction_id
		WHERE t.account_id = $1
		  AND t.status IN ('approved', 'voided')
		  AND t.posted_at IS NOT NULL
		  AND t.posted_at <= $2
	`, accountID, at).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("ledger sum as of: %w", err)
	}

	return toDecimal(sum)
}

func (r *TransactionRepository) loadLines(ctx context.Context, q querier, txns []*domain.TrustTransaction) error {
	if len(txns) == 0 {
		return nil
	}

	ids := make([]string, len(txns))
	byID := make(map[string]*domain.TrustTransaction, len(txns))
	for i, txn := range txns {
		ids[i] = txn.ID
		byID[txn.ID] = txn
	}

	rows, err := q.Query(ctx, `
		SELECT id, transaction_id, ledger_id, amount, description,
		       ledger_balance_after, created_at
		FROM trust_allocation_lines
		WHERE transaction_id = ANY($1)
		ORDER BY created_at, id
	`, ids)
	if err != nil {
		return fmt.Errorf("load allocation lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			line         domain.AllocationLine
			amount       pgtype.Numeric
			balanceAfter pgtype.Numeric
		)

		err := rows.Scan(
			&line.ID,
			&line.TransactionID,
			&line.LedgerID,
			&amount,
			&line.Description,
			&balanceAfter,
			&line.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("scan allocation line: %w", err)
		}

		if line.Amount, err = toDecimal(amount); err != nil {
			return fmt.Errorf("line amount: %w", err)
		}
		if line.LedgerBalanceAfter, err = toDecimalPtr(balanceAfter); err != nil {
			return fmt.Errorf("line balance after: %w", err)
		}

		if txn, ok := byID[line.TransactionID]; ok {
			txn.Lines = append(txn.Lines, line)
		}
	}

	return rows.Err()
}

func collectTransactions(rows pgx.Rows) ([]*domain.TrustTransaction, error) {
	var txns []*domain.TrustTransaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}
	return txns, rows.Err()
}

func scanTransaction(row pgx.Row) (*domain.TrustTransaction, error) {
	var (
		txn           domain.TrustTransaction
		amount        pgtype.Numeric
		balanceBefore pgtype.Numeric
		balanceAfter  pgtype.Numeric
		voidedAt      *time.Time
		voidedBy      *string
		voidReason    *string
		reversalTxID  *string
	)

	err := row.Scan(
		&txn.ID,
		&txn.AccountID,
		&txn.Type,
		&txn.Status,
		&amount,
		&txn.Payor,
		&txn.Payee,
		&txn.Description,
		&txn.CheckRef,
		&txn.IdempotencyKey,
		&txn.TransferGroupID,
		&txn.OriginalTxID,
		&voidedAt,
		&voidedBy,
		&voidReason,
		&reversalTxID,
		&txn.CreatedBy,
		&txn.ApprovedBy,
		&txn.RejectedBy,
		&txn.RejectReason,
		&balanceBefore,
		&balanceAfter,
		&txn.PostedAt,
		&txn.CreatedAt,
		&txn.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan transaction: %w", err)
	}

	if txn.Amount, err = toDecimal(amount); err != nil {
		return nil, fmt.Errorf("transaction amount: %w", err)
	}
	if txn.AccountBalanceBefore, err = toDecimalPtr(balanceBefore); err != nil {
		return nil, fmt.Errorf("balance before: %w", err)
	}
	if txn.AccountBalanceAfter, err = toDecimalPtr(balanceAfter); err != nil {
		return nil, fmt.Errorf("balance after: %w", err)
	}

	if voidedAt != nil {
		txn.Void = &domain.VoidInfo{
			VoidedAt: *voidedAt,
		}
		if voidedBy != nil {
			txn.Void.VoidedBy = *voidedBy
		}
		if voidReason != nil {
			txn.Void.Reason = *voidReason
		}
		if reversalTxID != nil {
			txn.Void.ReversalTxID = *reversalTxID
		}
	}

	return &txn, nil
}
