package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dafibh/fortuna/ledger-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const transactionColumns = `t.id, t.account_id, t.category_id, t.amount, t.description, t.execution_date, t.created_at, t.updated_at, ` +
	accountColumns + `, ` + categoryColumns

const transactionJoins = ` JOIN accounts a ON a.id = t.account_id JOIN categories c ON c.id = t.category_id`

// TransactionRepository implements domain.TransactionRepository using PostgreSQL
type TransactionRepository struct {
	db DBTX
}

// NewTransactionRepository creates a new TransactionRepository
func NewTransactionRepository(db DBTX) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var (
		t           domain.Transaction
		a           domain.Account
		c           domain.Category
		amount      pgtype.Numeric
		balance     pgtype.Numeric
		accountType string
		catType     string
	)
	err := row.Scan(
		&t.ID, &t.AccountID, &t.CategoryID, &amount, &t.Description, &t.ExecutionDate, &t.CreatedAt, &t.UpdatedAt,
		&a.ID, &a.UserID, &a.Name, &accountType, &balance, &a.Currency, &a.CreatedAt, &a.UpdatedAt,
		&c.ID, &c.Name, &catType, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Amount = pgNumericToDecimal(amount)
	t.ExecutionDate = t.ExecutionDate.UTC()
	a.Type = domain.AccountType(accountType)
	a.Balance = pgNumericToDecimal(balance)
	c.Type = domain.CategoryType(catType)
	t.Account = &a
	t.Category = &c
	return &t, nil
}

// Create inserts a transaction and returns it with account and category attached
func (r *TransactionRepository) Create(ctx context.Context, transaction *domain.Transaction) (*domain.Transaction, error) {
	amount, err := decimalToPgNumeric(transaction.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}
	row := r.db.QueryRow(ctx, `
		WITH t AS (
			INSERT INTO transactions (account_id, category_id, amount, description, execution_date)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING *
		)
		SELECT `+transactionColumns+` FROM t`+transactionJoins,
		transaction.AccountID, transaction.CategoryID, amount, transaction.Description, transaction.ExecutionDate.UTC())
	created, err := scanTransaction(row)
	if err != nil {
		return nil, mapRefError(err, transaction.AccountID, transaction.CategoryID)
	}
	return created, nil
}

// GetByID retrieves a transaction whose account belongs to userID
func (r *TransactionRepository) GetByID(ctx context.Context, userID int32, id int32) (*domain.Transaction, error) {
	return r.getByID(ctx, userID, id, "")
}

// LockByID retrieves the transaction and locks its row. Under READ COMMITTED
// a unit blocked here sees the row as committed by the unit it waited for.
func (r *TransactionRepository) LockByID(ctx context.Context, userID int32, id int32) (*domain.Transaction, error) {
	return r.getByID(ctx, userID, id, " FOR UPDATE OF t")
}

func (r *TransactionRepository) getByID(ctx context.Context, userID int32, id int32, lock string) (*domain.Transaction, error) {
	t, err := scanTransaction(r.db.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions t`+transactionJoins+` WHERE t.id = $1 AND a.user_id = $2`+lock,
		id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", domain.ErrTransactionNotFound, id)
		}
		return nil, err
	}
	return t, nil
}

// ListByUser returns the user's transactions, newest execution date first
func (r *TransactionRepository) ListByUser(ctx context.Context, userID int32, filters domain.TransactionFilters) ([]*domain.Transaction, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+transactionColumns+` FROM transactions t`+transactionJoins+`
		WHERE a.user_id = $1 AND ($2::int IS NULL OR t.account_id = $2)
		ORDER BY t.execution_date DESC, t.id DESC`,
		userID, filters.AccountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

// Update writes every mutable field of the transaction
func (r *TransactionRepository) Update(ctx context.Context, transaction *domain.Transaction) (*domain.Transaction, error) {
	amount, err := decimalToPgNumeric(transaction.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}
	row := r.db.QueryRow(ctx, `
		WITH t AS (
			UPDATE transactions
			SET account_id = $2, category_id = $3, amount = $4, description = $5, execution_date = $6, updated_at = now()
			WHERE id = $1
			RETURNING *
		)
		SELECT `+transactionColumns+` FROM t`+transactionJoins,
		transaction.ID, transaction.AccountID, transaction.CategoryID, amount, transaction.Description,
		transaction.ExecutionDate.UTC())
	updated, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", domain.ErrTransactionNotFound, transaction.ID)
		}
		return nil, mapRefError(err, transaction.AccountID, transaction.CategoryID)
	}
	return updated, nil
}

func (r *TransactionRepository) Delete(ctx context.Context, id int32) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: id %d", domain.ErrTransactionNotFound, id)
	}
	return nil
}

// SumByCategory totals the user's transactions in a category over [from, to)
func (r *TransactionRepository) SumByCategory(ctx context.Context, userID int32, categoryID int32, from, to time.Time) (decimal.Decimal, error) {
	var total pgtype.Numeric
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(t.amount), 0)
		FROM transactions t JOIN accounts a ON a.id = t.account_id
		WHERE a.user_id = $1 AND t.category_id = $2
		  AND t.execution_date >= $3 AND t.execution_date < $4`,
		userID, categoryID, from.UTC(), to.UTC()).Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}
	return pgNumericToDecimal(total), nil
}
