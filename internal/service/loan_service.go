package service

import (
	"context"
	"strings"
	"time"

	"github.com/dafibh/fortuna/ledger-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// LoanService handles loan CRUD
type LoanService struct {
	store domain.Store
}

// NewLoanService creates a new LoanService
func NewLoanService(store domain.Store) *LoanService {
	return &LoanService{store: store}
}

// CreateLoanInput holds the input for creating a loan
type CreateLoanInput struct {
	Lender       *string
	Principal    decimal.Decimal
	InterestRate *decimal.Decimal
	StartDate    *time.Time
	EndDate      *time.Time
	Status       domain.LoanStatus
}

// CreateLoan creates a loan, ACTIVE unless a status is given
func (s *LoanService) CreateLoan(ctx context.Context, userID int32, input CreateLoanInput) (*domain.Loan, error) {
	if err := domain.ValidateAmount(input.Principal); err != nil {
		return nil, err
	}
	if input.InterestRate != nil {
		if err := domain.ValidateInterestRate(*input.InterestRate); err != nil {
			return nil, err
		}
	}
	status := input.Status
	if status == "" {
		status = domain.LoanStatusActive
	}
	if !status.Valid() {
		return nil, domain.ErrInvalidLoanStatus
	}
	lender, err := normalizeLender(input.Lender)
	if err != nil {
		return nil, err
	}

	loan := &domain.Loan{
		UserID:       userID,
		Lender:       lender,
		Principal:    input.Principal,
		InterestRate: input.InterestRate,
		StartDate:    truncateOptional(input.StartDate),
		EndDate:      truncateOptional(input.EndDate),
		Status:       status,
	}
	if loan.StartDate != nil && loan.EndDate != nil && loan.EndDate.Before(*loan.StartDate) {
		return nil, domain.ErrInvalidDateRange
	}
	return s.store.Loans().Create(ctx, loan)
}

// ListLoans lists the user's loans, optionally of one status
func (s *LoanService) ListLoans(ctx context.Context, userID int32, status *domain.LoanStatus) ([]*domain.Loan, error) {
	if status != nil && !status.Valid() {
		return nil, domain.ErrInvalidLoanStatus
	}
	return s.store.Loans().ListByUser(ctx, userID, status)
}

// GetLoan retrieves a loan owned by the user
func (s *LoanService) GetLoan(ctx context.Context, userID int32, id int32) (*domain.Loan, error) {
	return s.store.Loans().GetByID(ctx, userID, id)
}

// UpdateLoan applies the patch. Moving the end date re-arms the due reminder.
func (s *LoanService) UpdateLoan(ctx context.Context, userID int32, id int32, patch domain.LoanPatch) (*domain.Loan, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	lender, err := normalizeLender(patch.Lender)
	if err != nil {
		return nil, err
	}
	patch.Lender = lender
	patch.StartDate = truncateOptional(patch.StartDate)
	patch.EndDate = truncateOptional(patch.EndDate)

	var updated *domain.Loan
	err = s.store.WithinTx(ctx, func(tx domain.Tx) error {
		loan, err := tx.Loans().GetByID(ctx, userID, id)
		if err != nil {
			return err
		}
		if err := patch.Apply(loan); err != nil {
			return err
		}
		updated, err = tx.Loans().Update(ctx, loan)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteLoan removes a loan
func (s *LoanService) DeleteLoan(ctx context.Context, userID int32, id int32) error {
	return s.store.Loans().Delete(ctx, userID, id)
}

func normalizeLender(lender *string) (*string, error) {
	if lender == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*lender)
	if len(trimmed) > domain.MaxNameLength {
		return nil, domain.ErrNameTooLong
	}
	return &trimmed, nil
}

func truncateOptional(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := domain.TruncateDay(*t)
	return &d
}
