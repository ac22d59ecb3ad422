package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Frequency string

const (
	FrequencyDaily   Frequency = "DAILY"
	FrequencyWeekly  Frequency = "WEEKLY"
	FrequencyMonthly Frequency = "MONTHLY"
	FrequencyYearly  Frequency = "YEARLY"
)

// Valid reports whether f is a known frequency
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
		return true
	}
	return false
}

// Next returns t advanced by one step of f. Unknown frequencies step one
// month. Month and year steps use time.AddDate, which normalizes overflow:
// Jan 31 + 1 month is Mar 3 (Mar 2 in leap years).
func (f Frequency) Next(t time.Time) time.Time {
	switch f {
	case FrequencyDaily:
		return t.AddDate(0, 0, 1)
	case FrequencyWeekly:
		return t.AddDate(0, 0, 7)
	case FrequencyYearly:
		return t.AddDate(1, 0, 0)
	default:
		return t.AddDate(0, 1, 0)
	}
}

type RecurringTransaction struct {
	ID          int32           `json:"id"`
	AccountID   int32           `json:"accountId"`
	CategoryID  int32           `json:"categoryId"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
	Frequency   Frequency       `json:"frequency"`
	NextDate    time.Time       `json:"nextDate"`
	EndDate     *time.Time      `json:"endDate,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	Account     *Account        `json:"account,omitempty"`
	Category    *Category       `json:"category,omitempty"`
}

// IsDue reports whether the schedule should post at now
func (r *RecurringTransaction) IsDue(now time.Time) bool {
	if r.NextDate.After(now) {
		return false
	}
	return r.EndDate == nil || !r.EndDate.Before(now)
}

// RecurringPatch lists the fields an update may change. ClearEndDate
// removes the end date; it wins over EndDate.
type RecurringPatch struct {
	AccountID    *int32
	CategoryID   *int32
	Amount       *decimal.Decimal
	Description  *string
	Frequency    *Frequency
	NextDate     *time.Time
	EndDate      *time.Time
	ClearEndDate bool
}

// Validate checks the patch before it is merged
func (p *RecurringPatch) Validate() error {
	if p.AccountID == nil && p.CategoryID == nil && p.Amount == nil && p.Description == nil &&
		p.Frequency == nil && p.NextDate == nil && p.EndDate == nil && !p.ClearEndDate {
		return ErrEmptyPatch
	}
	if p.AccountID != nil && *p.AccountID <= 0 {
		return ErrInvalidID
	}
	if p.CategoryID != nil && *p.CategoryID <= 0 {
		return ErrInvalidID
	}
	if p.Amount != nil {
		if err := ValidateAmount(*p.Amount); err != nil {
			return err
		}
	}
	if p.Frequency != nil && !p.Frequency.Valid() {
		return ErrInvalidFrequency
	}
	if p.Description != nil {
		d, err := ValidateDescription(*p.Description)
		if err != nil {
			return err
		}
		p.Description = &d
	}
	return nil
}

// Apply merges the patch into r and re-checks the schedule bounds
func (p RecurringPatch) Apply(r *RecurringTransaction) error {
	if p.AccountID != nil {
		r.AccountID = *p.AccountID
	}
	if p.CategoryID != nil {
		r.CategoryID = *p.CategoryID
	}
	if p.Amount != nil {
		r.Amount = *p.Amount
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.Frequency != nil {
		r.Frequency = *p.Frequency
	}
	if p.NextDate != nil {
		r.NextDate = p.NextDate.UTC()
	}
	if p.EndDate != nil {
		end := p.EndDate.UTC()
		r.EndDate = &end
	}
	if p.ClearEndDate {
		r.EndDate = nil
	}
	if r.EndDate != nil && r.EndDate.Before(r.NextDate) {
		return ErrInvalidDateRange
	}
	return nil
}

type RecurringRepository interface {
	Create(ctx context.Context, rt *RecurringTransaction) (*RecurringTransaction, error)
	GetByID(ctx context.Context, userID int32, id int32) (*RecurringTransaction, error)
	// LockByID is GetByID under a row write lock held until the unit ends
	LockByID(ctx context.Context, userID int32, id int32) (*RecurringTransaction, error)
	ListByUser(ctx context.Context, userID int32) ([]*RecurringTransaction, error)
	Update(ctx context.Context, rt *RecurringTransaction) (*RecurringTransaction, error)
	Delete(ctx context.Context, id int32) error
	// ListDue returns ids of schedules due at now, oldest next date first
	ListDue(ctx context.Context, now time.Time, limit int) ([]int32, error)
	// LockDue re-reads one schedule under a write lock and returns it only if
	// it is still due at now and not locked by a concurrent unit
	LockDue(ctx context.Context, id int32, now time.Time) (*RecurringTransaction, error)
	SetNextDate(ctx context.Context, id int32, next time.Time) error
}
