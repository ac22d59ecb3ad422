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

const loanColumns = `id, user_id, lender, principal, interest_rate, start_date, end_date, status, reminded_at, created_at, updated_at`

// LoanRepository implements domain.LoanRepository using PostgreSQL
type LoanRepository struct {
	db DBTX
}

// NewLoanRepository creates a new LoanRepository
func NewLoanRepository(db DBTX) *LoanRepository {
	return &LoanRepository{db: db}
}

func scanLoan(row rowScanner) (*domain.Loan, error) {
	var (
		l            domain.Loan
		principal    pgtype.Numeric
		interestRate pgtype.Numeric
		start        pgtype.Date
		end          pgtype.Date
		status       string
	)
	err := row.Scan(&l.ID, &l.UserID, &l.Lender, &principal, &interestRate, &start, &end, &status,
		&l.RemindedAt, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	l.Principal = pgNumericToDecimal(principal)
	l.InterestRate = pgNumericToOptional(interestRate)
	l.StartDate = pgDateToOptional(start)
	l.EndDate = pgDateToOptional(end)
	l.Status = domain.LoanStatus(status)
	return &l, nil
}

func optionalDate(t *time.Time) pgtype.Date {
	if t == nil {
		return pgtype.Date{}
	}
	return pgDate(*t)
}

func pgDateToOptional(d pgtype.Date) *time.Time {
	if !d.Valid {
		return nil
	}
	t := domain.TruncateDay(d.Time)
	return &t
}

type loanParams struct {
	principal    pgtype.Numeric
	interestRate pgtype.Numeric
}

func newLoanParams(loan *domain.Loan) (loanParams, error) {
	principal, err := decimalToPgNumeric(loan.Principal)
	if err != nil {
		return loanParams{}, fmt.Errorf("invalid principal: %w", err)
	}
	rate, err := optionalNumeric(loan.InterestRate)
	if err != nil {
		return loanParams{}, fmt.Errorf("invalid interest rate: %w", err)
	}
	return loanParams{principal: principal, interestRate: rate}, nil
}

func (r *LoanRepository) Create(ctx context.Context, loan *domain.Loan) (*domain.Loan, error) {
	p, err := newLoanParams(loan)
	if err != nil {
		return nil, err
	}
	status := loan.Status
	if status == "" {
		status = domain.LoanStatusActive
	}
	return scanLoan(r.db.QueryRow(ctx, `
		INSERT INTO loans (user_id, lender, principal, interest_rate, start_date, end_date, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+loanColumns,
		loan.UserID, loan.Lender, p.principal, p.interestRate, optionalDate(loan.StartDate), optionalDate(loan.EndDate), string(status)))
}

func (r *LoanRepository) GetByID(ctx context.Context, userID int32, id int32) (*domain.Loan, error) {
	l, err := scanLoan(r.db.QueryRow(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", domain.ErrLoanNotFound, id)
		}
		return nil, err
	}
	return l, nil
}

func (r *LoanRepository) ListByUser(ctx context.Context, userID int32, status *domain.LoanStatus) ([]*domain.Loan, error) {
	var filter *string
	if status != nil {
		s := string(*status)
		filter = &s
	}
	rows, err := r.db.Query(ctx, `
		SELECT `+loanColumns+` FROM loans
		WHERE user_id = $1 AND ($2::text IS NULL OR status = $2)
		ORDER BY id DESC`, userID, filter)
	if err != nil {
		return nil, err
	}
	return collectLoans(rows)
}

func collectLoans(rows pgx.Rows) ([]*domain.Loan, error) {
	defer rows.Close()
	var result []*domain.Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, l)
	}
	return result, rows.Err()
}

func (r *LoanRepository) Update(ctx context.Context, loan *domain.Loan) (*domain.Loan, error) {
	p, err := newLoanParams(loan)
	if err != nil {
		return nil, err
	}
	l, err := scanLoan(r.db.QueryRow(ctx, `
		UPDATE loans
		SET lender = $3, principal = $4, interest_rate = $5, start_date = $6, end_date = $7,
		    status = $8, reminded_at = $9, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING `+loanColumns,
		loan.ID, loan.UserID, loan.Lender, p.principal, p.interestRate,
		optionalDate(loan.StartDate), optionalDate(loan.EndDate), string(loan.Status), utcPtr(loan.RemindedAt)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", domain.ErrLoanNotFound, loan.ID)
		}
		return nil, err
	}
	return l, nil
}

func (r *LoanRepository) Delete(ctx context.Context, userID int32, id int32) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM loans WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: id %d", domain.ErrLoanNotFound, id)
	}
	return nil
}

// ListDueForReminder returns active, unreminded loans ending on or before before
func (r *LoanRepository) ListDueForReminder(ctx context.Context, before time.Time) ([]*domain.Loan, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+loanColumns+` FROM loans
		WHERE status = 'ACTIVE' AND reminded_at IS NULL AND end_date IS NOT NULL AND end_date <= $1
		ORDER BY end_date, id`, pgDate(before))
	if err != nil {
		return nil, err
	}
	return collectLoans(rows)
}

// MarkReminded sets reminded_at only if it is still unset. A concurrent
// claimant blocks on the row lock and then matches no row.
func (r *LoanRepository) MarkReminded(ctx context.Context, id int32, at time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE loans SET reminded_at = $2, updated_at = now() WHERE id = $1 AND reminded_at IS NULL`, id, at.UTC())
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
