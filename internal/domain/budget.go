package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Budget caps spend in one category over an inclusive day window
type Budget struct {
	ID         int32           `json:"id"`
	UserID     int32           `json:"userId"`
	CategoryID int32           `json:"categoryId"`
	Amount     decimal.Decimal `json:"amount"`
	StartDate  time.Time       `json:"startDate"`
	EndDate    time.Time       `json:"endDate"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
	Category   *Category       `json:"category,omitempty"`
}

// WindowStart is midnight UTC of StartDate
func (b *Budget) WindowStart() time.Time {
	return TruncateDay(b.StartDate)
}

// WindowEnd is the exclusive upper bound: midnight UTC after EndDate
func (b *Budget) WindowEnd() time.Time {
	return TruncateDay(b.EndDate).AddDate(0, 0, 1)
}

// Contains reports whether t falls inside the budget window
func (b *Budget) Contains(t time.Time) bool {
	return !t.Before(b.WindowStart()) && t.Before(b.WindowEnd())
}

// WarningThreshold is the share of a budget that triggers a warning
var WarningThreshold = decimal.NewFromFloat(0.8)

// BudgetPatch lists the budget fields an update may change
type BudgetPatch struct {
	CategoryID *int32
	Amount     *decimal.Decimal
	StartDate  *time.Time
	EndDate    *time.Time
}

// Validate checks the patch in isolation; the merged window is checked by Apply
func (p *BudgetPatch) Validate() error {
	if p.CategoryID == nil && p.Amount == nil && p.StartDate == nil && p.EndDate == nil {
		return ErrEmptyPatch
	}
	if p.CategoryID != nil && *p.CategoryID <= 0 {
		return ErrInvalidID
	}
	if p.Amount != nil {
		if err := ValidateAmount(*p.Amount); err != nil {
			return err
		}
	}
	return nil
}

// Apply merges the patch into b and re-checks the window
func (p BudgetPatch) Apply(b *Budget) error {
	if p.CategoryID != nil {
		b.CategoryID = *p.CategoryID
	}
	if p.Amount != nil {
		b.Amount = *p.Amount
	}
	if p.StartDate != nil {
		b.StartDate = TruncateDay(*p.StartDate)
	}
	if p.EndDate != nil {
		b.EndDate = TruncateDay(*p.EndDate)
	}
	if b.EndDate.Before(b.StartDate) {
		return ErrInvalidDateRange
	}
	return nil
}

// TruncateDay returns midnight UTC of t's UTC calendar day
func TruncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

type BudgetRepository interface {
	Create(ctx context.Context, budget *Budget) (*Budget, error)
	GetByID(ctx context.Context, userID int32, id int32) (*Budget, error)
	ListByUser(ctx context.Context, userID int32) ([]*Budget, error)
	Update(ctx context.Context, budget *Budget) (*Budget, error)
	Delete(ctx context.Context, userID int32, id int32) error
	// FindActive returns the budget for (userID, categoryID) whose window
	// contains at. When several match, the most recently created wins.
	FindActive(ctx context.Context, userID int32, categoryID int32, at time.Time) (*Budget, error)
}
