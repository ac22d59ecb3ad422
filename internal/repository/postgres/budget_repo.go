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

const budgetColumns = `b.id, b.user_id, b.category_id, b.amount, b.start_date, b.end_date, b.created_at, b.updated_at, ` + categoryColumns

const budgetJoins = ` JOIN categories c ON c.id = b.category_id`

// BudgetRepository implements domain.BudgetRepository using PostgreSQL
type BudgetRepository struct {
	db DBTX
}

// NewBudgetRepository creates a new BudgetRepository
func NewBudgetRepository(db DBTX) *BudgetRepository {
	return &BudgetRepository{db: db}
}

func scanBudget(row rowScanner) (*domain.Budget, error) {
	var (
		b       domain.Budget
		c       domain.Category
		amount  pgtype.Numeric
		start   pgtype.Date
		end     pgtype.Date
		catType string
	)
	err := row.Scan(
		&b.ID, &b.UserID, &b.CategoryID, &amount, &start, &end, &b.CreatedAt, &b.UpdatedAt,
		&c.ID, &c.Name, &catType, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.Amount = pgNumericToDecimal(amount)
	b.StartDate = domain.TruncateDay(start.Time)
	b.EndDate = domain.TruncateDay(end.Time)
	c.Type = domain.CategoryType(catType)
	b.Category = &c
	return &b, nil
}

func pgDate(t time.Time) pgtype.Date {
	return pgtype.Date{Time: domain.TruncateDay(t), Valid: true}
}

func (r *BudgetRepository) Create(ctx context.Context, budget *domain.Budget) (*domain.Budget, error) {
	amount, err := decimalToPgNumeric(budget.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}
	created, err := scanBudget(r.db.QueryRow(ctx, `
		WITH b AS (
			INSERT INTO budgets (user_id, category_id, amount, start_date, end_date)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING *
		)
		SELECT `+budgetColumns+` FROM b`+budgetJoins,
		budget.UserID, budget.CategoryID, amount, pgDate(budget.StartDate), pgDate(budget.EndDate)))
	if err != nil {
		return nil, mapRefError(err, 0, budget.CategoryID)
	}
	return created, nil
}

func (r *BudgetRepository) GetByID(ctx context.Context, userID int32, id int32) (*domain.Budget, error) {
	b, err := scanBudget(r.db.QueryRow(ctx,
		`SELECT `+budgetColumns+` FROM budgets b`+budgetJoins+` WHERE b.id = $1 AND b.user_id = $2`, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", domain.ErrBudgetNotFound, id)
		}
		return nil, err
	}
	return b, nil
}

func (r *BudgetRepository) ListByUser(ctx context.Context, userID int32) ([]*domain.Budget, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+budgetColumns+` FROM budgets b`+budgetJoins+` WHERE b.user_id = $1 ORDER BY b.start_date DESC, b.id DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, b)
	}
	return result, rows.Err()
}

func (r *BudgetRepository) Update(ctx context.Context, budget *domain.Budget) (*domain.Budget, error) {
	amount, err := decimalToPgNumeric(budget.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}
	updated, err := scanBudget(r.db.QueryRow(ctx, `
		WITH b AS (
			UPDATE budgets SET category_id = $3, amount = $4, start_date = $5, end_date = $6, updated_at = now()
			WHERE id = $1 AND user_id = $2
			RETURNING *
		)
		SELECT `+budgetColumns+` FROM b`+budgetJoins,
		budget.ID, budget.UserID, budget.CategoryID, amount, pgDate(budget.StartDate), pgDate(budget.EndDate)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", domain.ErrBudgetNotFound, budget.ID)
		}
		return nil, mapRefError(err, 0, budget.CategoryID)
	}
	return updated, nil
}

func (r *BudgetRepository) Delete(ctx context.Context, userID int32, id int32) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM budgets WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: id %d", domain.ErrBudgetNotFound, id)
	}
	return nil
}

// FindActive returns the newest budget whose window contains at, or nil
func (r *BudgetRepository) FindActive(ctx context.Context, userID int32, categoryID int32, at time.Time) (*domain.Budget, error) {
	b, err := scanBudget(r.db.QueryRow(ctx, `
		SELECT `+budgetColumns+` FROM budgets b`+budgetJoins+`
		WHERE b.user_id = $1 AND b.category_id = $2
		  AND b.start_date <= $3 AND b.end_date >= $3
		ORDER BY b.created_at DESC, b.id DESC
		LIMIT 1`,
		userID, categoryID, pgDate(at)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return b, nil
}
