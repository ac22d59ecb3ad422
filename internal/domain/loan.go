package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type LoanStatus string

const (
	LoanStatusActive    LoanStatus = "ACTIVE"
	LoanStatusPaidOff   LoanStatus = "PAID_OFF"
	LoanStatusDefaulted LoanStatus = "DEFAULTED"
)

// Valid reports whether s is a known loan status
func (s LoanStatus) Valid() bool {
	return s == LoanStatusActive || s == LoanStatusPaidOff || s == LoanStatusDefaulted
}

type Loan struct {
	ID           int32            `json:"id"`
	UserID       int32            `json:"userId"`
	Lender       *string          `json:"lender,omitempty"`
	Principal    decimal.Decimal  `json:"principal"`
	InterestRate *decimal.Decimal `json:"interestRate,omitempty"`
	StartDate    *time.Time       `json:"startDate,omitempty"`
	EndDate      *time.Time       `json:"endDate,omitempty"`
	Status       LoanStatus       `json:"status"`
	RemindedAt   *time.Time       `json:"remindedAt,omitempty"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}

// LoanPatch lists the loan fields an update may change
type LoanPatch struct {
	Lender       *string
	Principal    *decimal.Decimal
	InterestRate *decimal.Decimal
	StartDate    *time.Time
	EndDate      *time.Time
	Status       *LoanStatus
}

// Validate checks the patch before it is merged
func (p *LoanPatch) Validate() error {
	if p.Lender == nil && p.Principal == nil && p.InterestRate == nil &&
		p.StartDate == nil && p.EndDate == nil && p.Status == nil {
		return ErrEmptyPatch
	}
	if p.Principal != nil {
		if err := ValidateAmount(*p.Principal); err != nil {
			return err
		}
	}
	if p.InterestRate != nil {
		if err := ValidateInterestRate(*p.InterestRate); err != nil {
			return err
		}
	}
	if p.Status != nil && !p.Status.Valid() {
		return ErrInvalidLoanStatus
	}
	return nil
}

// Apply merges the patch into l. Moving the end date re-arms the reminder.
func (p LoanPatch) Apply(l *Loan) error {
	if p.Lender != nil {
		l.Lender = p.Lender
	}
	if p.Principal != nil {
		l.Principal = *p.Principal
	}
	if p.InterestRate != nil {
		l.InterestRate = p.InterestRate
	}
	if p.StartDate != nil {
		l.StartDate = p.StartDate
	}
	if p.EndDate != nil {
		l.EndDate = p.EndDate
		l.RemindedAt = nil
	}
	if p.Status != nil {
		l.Status = *p.Status
	}
	if l.StartDate != nil && l.EndDate != nil && l.EndDate.Before(*l.StartDate) {
		return ErrInvalidDateRange
	}
	return nil
}

type LoanRepository interface {
	Create(ctx context.Context, loan *Loan) (*Loan, error)
	GetByID(ctx context.Context, userID int32, id int32) (*Loan, error)
	ListByUser(ctx context.Context, userID int32, status *LoanStatus) ([]*Loan, error)
	Update(ctx context.Context, loan *Loan) (*Loan, error)
	Delete(ctx context.Context, userID int32, id int32) error
	// ListDueForReminder returns ACTIVE, not yet reminded loans whose end
	// date is before the given instant
	ListDueForReminder(ctx context.Context, before time.Time) ([]*Loan, error)
	// MarkReminded claims the loan's single reminder. It reports false when
	// another unit already claimed it.
	MarkReminded(ctx context.Context, id int32, at time.Time) (bool, error)
}
