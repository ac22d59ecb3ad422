// Package postgres implements the ledger store on PostgreSQL with pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dafibh/fortuna/ledger-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var (
	_ domain.Store = (*Store)(nil)
	_ domain.Tx    = (*Tx)(nil)
)

// Connect opens a pool. A positive statementTimeout is applied to every session.
func Connect(ctx context.Context, databaseURL string, statementTimeout time.Duration) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if statementTimeout > 0 {
		cfg.ConnConfig.RuntimeParams["statement_timeout"] = strconv.FormatInt(statementTimeout.Milliseconds(), 10)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Store implements domain.Store
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Accounts() domain.AccountRepository           { return &AccountRepository{db: s.pool} }
func (s *Store) Categories() domain.CategoryRepository        { return &CategoryRepository{db: s.pool} }
func (s *Store) Transactions() domain.TransactionRepository   { return &TransactionRepository{db: s.pool} }
func (s *Store) Budgets() domain.BudgetRepository             { return &BudgetRepository{db: s.pool} }
func (s *Store) Recurring() domain.RecurringRepository        { return &RecurringRepository{db: s.pool} }
func (s *Store) Notifications() domain.NotificationRepository { return &NotificationRepository{db: s.pool} }
func (s *Store) Loans() domain.LoanRepository                 { return &LoanRepository{db: s.pool} }

// WithinTx runs fn in a read-committed transaction. Row locks taken by the
// repositories serialize writers on the same account.
func (s *Store) WithinTx(ctx context.Context, fn func(tx domain.Tx) error) error {
	pgxTx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	return runTx(ctx, pgxTx, fn)
}

func runTx(ctx context.Context, pgxTx pgx.Tx, fn func(tx domain.Tx) error) error {
	if err := fn(&Tx{tx: pgxTx}); err != nil {
		if rbErr := pgxTx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	if err := pgxTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Tx implements domain.Tx over a pgx transaction
type Tx struct {
	tx pgx.Tx
}

func (t *Tx) Accounts() domain.AccountRepository           { return &AccountRepository{db: t.tx} }
func (t *Tx) Categories() domain.CategoryRepository        { return &CategoryRepository{db: t.tx} }
func (t *Tx) Transactions() domain.TransactionRepository   { return &TransactionRepository{db: t.tx} }
func (t *Tx) Budgets() domain.BudgetRepository             { return &BudgetRepository{db: t.tx} }
func (t *Tx) Recurring() domain.RecurringRepository        { return &RecurringRepository{db: t.tx} }
func (t *Tx) Notifications() domain.NotificationRepository { return &NotificationRepository{db: t.tx} }
func (t *Tx) Loans() domain.LoanRepository                 { return &LoanRepository{db: t.tx} }

// Savepoint runs fn in a nested pgx transaction, which pgx maps to SAVEPOINT.
func (t *Tx) Savepoint(ctx context.Context, fn func(tx domain.Tx) error) error {
	sp, err := t.tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("create savepoint: %w", err)
	}
	return runTx(ctx, sp, fn)
}

type rowScanner interface {
	Scan(dest ...any) error
}

const (
	pgForeignKeyViolation = "23503"
)

func isForeignKeyViolation(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
		return pgErr, true
	}
	return nil, false
}

// mapRefError turns an insert/update FK failure into the matching not-found error
func mapRefError(err error, accountID, categoryID int32) error {
	pgErr, ok := isForeignKeyViolation(err)
	if !ok {
		return err
	}
	switch pgErr.ConstraintName {
	case "transactions_category_id_fkey", "recurring_transactions_category_id_fkey", "budgets_category_id_fkey":
		return fmt.Errorf("%w: id %d", domain.ErrCategoryNotFound, categoryID)
	default:
		return fmt.Errorf("%w: id %d", domain.ErrAccountNotFound, accountID)
	}
}

func decimalToPgNumeric(d decimal.Decimal) (pgtype.Numeric, error) {
	var num pgtype.Numeric
	if err := num.Scan(d.String()); err != nil {
		return pgtype.Numeric{}, err
	}
	return num, nil
}

func pgNumericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}

func optionalNumeric(d *decimal.Decimal) (pgtype.Numeric, error) {
	if d == nil {
		return pgtype.Numeric{}, nil
	}
	return decimalToPgNumeric(*d)
}

func pgNumericToOptional(n pgtype.Numeric) *decimal.Decimal {
	if !n.Valid {
		return nil
	}
	d := pgNumericToDecimal(n)
	return &d
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
