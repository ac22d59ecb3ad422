package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dafibh/fortuna/ledger-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const recurringColumns = `r.id, r.account_id, r.category_id, r.amount, r.description, r.frequency, r.next_date, r.end_date, r.created_at, r.updated_at, ` +
	accountColumns + `, ` + categoryColumns

const recurringJoins = ` JOIN accounts a ON a.id = r.account_id JOIN categories c ON c.id = r.category_id`

const dueCondition = `r.next_date <= $1 AND (r.end_date IS NULL OR r.end_date >= $1)`

// RecurringRepository implements domain.RecurringRepository using PostgreSQL
type RecurringRepository struct {
	db DBTX
}

// NewRecurringRepository creates a new RecurringRepository
func NewRecurringRepository(db DBTX) *RecurringRepository {
	return &RecurringRepository{db: db}
}

func scanRecurring(row rowScanner) (*domain.RecurringTransaction, error) {
	var (
		rt          domain.RecurringTransaction
		a           domain.Account
		c           domain.Category
		amount      pgtype.Numeric
		balance     pgtype.Numeric
		frequency   string
		accountType string
		catType     string
	)
	err := row.Scan(
		&rt.ID, &rt.AccountID, &rt.CategoryID, &amount, &rt.Description, &frequency, &rt.NextDate, &rt.EndDate, &rt.CreatedAt, &rt.UpdatedAt,
		&a.ID, &a.UserID, &a.Name, &accountType, &balance, &a.Currency, &a.CreatedAt, &a.UpdatedAt,
		&c.ID, &c.Name, &catType, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rt.Amount = pgNumericToDecimal(amount)
	rt.Frequency = domain.Frequency(frequency)
	rt.NextDate = rt.NextDate.UTC()
	rt.EndDate = utcPtr(rt.EndDate)
	a.Type = domain.AccountType(accountType)
	a.Balance = pgNumericToDecimal(balance)
	c.Type = domain.CategoryType(catType)
	rt.Account = &a
	rt.Category = &c
	return &rt, nil
}

func (r *RecurringRepository) Create(ctx context.Context, rt *domain.RecurringTransaction) (*domain.RecurringTransaction, error) {
	amount, err := decimalToPgNumeric(rt.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}
	created, err := scanRecurring(r.db.QueryRow(ctx, `
		WITH r AS (
			INSERT INTO recurring_transactions (account_id, category_id, amount, description, frequency, next_date, end_date)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING *
		)
		SELECT `+recurringColumns+` FROM r`+recurringJoins,
		rt.AccountID, rt.CategoryID, amount, rt.Description, string(rt.Frequency), rt.NextDate.UTC(), utcPtr(rt.EndDate)))
	if err != nil {
		return nil, mapRefError(err, rt.AccountID, rt.CategoryID)
	}
	return created, nil
}

func (r *RecurringRepository) GetByID(ctx context.Context, userID int32, id int32) (*domain.RecurringTransaction, error) {
	return r.getByID(ctx, userID, id, "")
}

// LockByID retrieves the item and locks its row, waiting for a poster unit
// that holds it so next_date is read after that unit commits
func (r *RecurringRepository) LockByID(ctx context.Context, userID int32, id int32) (*domain.RecurringTransaction, error) {
	return r.getByID(ctx, userID, id, " FOR UPDATE OF r")
}

func (r *RecurringRepository) getByID(ctx context.Context, userID int32, id int32, lock string) (*domain.RecurringTransaction, error) {
	rt, err := scanRecurring(r.db.QueryRow(ctx,
		`SELECT `+recurringColumns+` FROM recurring_transactions r`+recurringJoins+` WHERE r.id = $1 AND a.user_id = $2`+lock,
		id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", domain.ErrRecurringNotFound, id)
		}
		return nil, err
	}
	return rt, nil
}

func (r *RecurringRepository) ListByUser(ctx context.Context, userID int32) ([]*domain.RecurringTransaction, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+recurringColumns+` FROM recurring_transactions r`+recurringJoins+` WHERE a.user_id = $1 ORDER BY r.next_date, r.id`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.RecurringTransaction
	for rows.Next() {
		rt, err := scanRecurring(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rt)
	}
	return result, rows.Err()
}

func (r *RecurringRepository) Update(ctx context.Context, rt *domain.RecurringTransaction) (*domain.RecurringTransaction, error) {
	amount, err := decimalToPgNumeric(rt.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}
	updated, err := scanRecurring(r.db.QueryRow(ctx, `
		WITH r AS (
			UPDATE recurring_transactions
			SET account_id = $2, category_id = $3, amount = $4, description = $5, frequency = $6,
			    next_date = $7, end_date = $8, updated_at = now()
			WHERE id = $1
			RETURNING *
		)
		SELECT `+recurringColumns+` FROM r`+recurringJoins,
		rt.ID, rt.AccountID, rt.CategoryID, amount, rt.Description, string(rt.Frequency), rt.NextDate.UTC(), utcPtr(rt.EndDate)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", domain.ErrRecurringNotFound, rt.ID)
		}
		return nil, mapRefError(err, rt.AccountID, rt.CategoryID)
	}
	return updated, nil
}

func (r *RecurringRepository) Delete(ctx context.Context, id int32) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM recurring_transactions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: id %d", domain.ErrRecurringNotFound, id)
	}
	return nil
}

// ListDue returns ids of due items, oldest next date first. limit <= 0 means all.
func (r *RecurringRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]int32, error) {
	var rowLimit any
	if limit > 0 {
		rowLimit = limit
	}
	rows, err := r.db.Query(ctx, `
		SELECT r.id FROM recurring_transactions r
		WHERE `+dueCondition+`
		ORDER BY r.next_date, r.id
		LIMIT $2`, now.UTC(), rowLimit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int32])
}

// LockDue locks the item row if it is still due. Rows already advanced or
// held by another runner yield nil without error.
func (r *RecurringRepository) LockDue(ctx context.Context, id int32, now time.Time) (*domain.RecurringTransaction, error) {
	rt, err := scanRecurring(r.db.QueryRow(ctx, `
		SELECT `+recurringColumns+` FROM recurring_transactions r`+recurringJoins+`
		WHERE `+dueCondition+` AND r.id = $2
		FOR UPDATE OF r SKIP LOCKED`, now.UTC(), id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return rt, nil
}

func (r *RecurringRepository) SetNextDate(ctx context.Context, id int32, next time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE recurring_transactions SET next_date = $2, updated_at = now() WHERE id = $1`, id, next.UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: id %d", domain.ErrRecurringNotFound, id)
	}
	return nil
}
