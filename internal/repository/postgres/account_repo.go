package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/dafibh/fortuna/ledger-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const accountColumns = `a.id, a.user_id, a.name, a.type, a.balance, a.currency, a.created_at, a.updated_at`

// AccountRepository implements domain.AccountRepository using PostgreSQL
type AccountRepository struct {
	db DBTX
}

// NewAccountRepository creates a new AccountRepository
func NewAccountRepository(db DBTX) *AccountRepository {
	return &AccountRepository{db: db}
}

func scanAccount(row rowScanner) (*domain.Account, error) {
	var (
		a       domain.Account
		kind    string
		balance pgtype.Numeric
	)
	if err := row.Scan(&a.ID, &a.UserID, &a.Name, &kind, &balance, &a.Currency, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.Type = domain.AccountType(kind)
	a.Balance = pgNumericToDecimal(balance)
	return &a, nil
}

// Create creates a new account
func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	balance, err := decimalToPgNumeric(account.Balance)
	if err != nil {
		return nil, fmt.Errorf("invalid balance: %w", err)
	}
	row := r.db.QueryRow(ctx, `
		INSERT INTO accounts AS a (user_id, name, type, balance, currency)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+accountColumns,
		account.UserID, account.Name, string(account.Type), balance, account.Currency)
	return scanAccount(row)
}

// GetByID returns ErrAccountForbidden when the account exists under another user
func (r *AccountRepository) GetByID(ctx context.Context, userID int32, id int32) (*domain.Account, error) {
	account, err := scanAccount(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts a WHERE a.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", domain.ErrAccountNotFound, id)
		}
		return nil, err
	}
	if account.UserID != userID {
		return nil, fmt.Errorf("%w: id %d", domain.ErrAccountForbidden, id)
	}
	return account, nil
}

// ListByUser retrieves all accounts owned by a user
func (r *AccountRepository) ListByUser(ctx context.Context, userID int32) ([]*domain.Account, error) {
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts a WHERE a.user_id = $1 ORDER BY a.id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

// LockByIDs locks the rows FOR UPDATE in ascending id order
func (r *AccountRepository) LockByIDs(ctx context.Context, ids ...int32) (map[int32]*domain.Account, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+accountColumns+` FROM accounts a WHERE a.id = ANY($1) ORDER BY a.id FOR UPDATE`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[int32]*domain.Account, len(ids))
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		result[a.ID] = a
	}
	return result, rows.Err()
}

// Update updates an account's name, type and currency
func (r *AccountRepository) Update(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE accounts AS a SET name = $3, type = $4, currency = $5, updated_at = now()
		WHERE a.id = $1 AND a.user_id = $2
		RETURNING `+accountColumns,
		account.ID, account.UserID, account.Name, string(account.Type), account.Currency)
	updated, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", domain.ErrAccountNotFound, account.ID)
		}
		return nil, err
	}
	return updated, nil
}

// AdjustBalance adds delta to the balance and returns the result
func (r *AccountRepository) AdjustBalance(ctx context.Context, id int32, delta decimal.Decimal) (decimal.Decimal, error) {
	d, err := decimalToPgNumeric(delta)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid delta: %w", err)
	}
	var balance pgtype.Numeric
	err = r.db.QueryRow(ctx,
		`UPDATE accounts SET balance = balance + $2, updated_at = now() WHERE id = $1 RETURNING balance`,
		id, d).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, fmt.Errorf("%w: id %d", domain.ErrAccountNotFound, id)
		}
		return decimal.Zero, err
	}
	return pgNumericToDecimal(balance), nil
}

// HasReferences reports whether transactions or recurring items use the account
func (r *AccountRepository) HasReferences(ctx context.Context, id int32) (bool, error) {
	var found bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM transactions WHERE account_id = $1)
		    OR EXISTS (SELECT 1 FROM recurring_transactions WHERE account_id = $1)`, id).Scan(&found)
	return found, err
}

// Delete removes an account
func (r *AccountRepository) Delete(ctx context.Context, userID int32, id int32) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM accounts WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		if _, ok := isForeignKeyViolation(err); ok {
			return fmt.Errorf("%w: id %d", domain.ErrAccountInUse, id)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: id %d", domain.ErrAccountNotFound, id)
	}
	return nil
}
