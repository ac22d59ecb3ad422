package domain

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Transaction struct {
	ID            int32           `json:"id"`
	AccountID     int32           `json:"accountId"`
	CategoryID    int32           `json:"categoryId"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description,omitempty"`
	ExecutionDate time.Time       `json:"executionDate"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	Account       *Account        `json:"account,omitempty"`
	Category      *Category       `json:"category,omitempty"`
}

// TransactionPatch lists the fields an update may change. Nil means keep.
type TransactionPatch struct {
	AccountID     *int32
	CategoryID    *int32
	Amount        *decimal.Decimal
	Description   *string
	ExecutionDate *time.Time
}

// Validate checks the patch before it is merged
func (p *TransactionPatch) Validate() error {
	if p.AccountID == nil && p.CategoryID == nil && p.Amount == nil && p.Description == nil && p.ExecutionDate == nil {
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
	if p.Description != nil {
		d, err := ValidateDescription(*p.Description)
		if err != nil {
			return err
		}
		p.Description = &d
	}
	if p.ExecutionDate != nil && p.ExecutionDate.IsZero() {
		return ErrDateRequired
	}
	return nil
}

// Apply merges the set fields into a copy of t
func (p TransactionPatch) Apply(t Transaction) Transaction {
	if p.AccountID != nil {
		t.AccountID = *p.AccountID
	}
	if p.CategoryID != nil {
		t.CategoryID = *p.CategoryID
	}
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.ExecutionDate != nil {
		t.ExecutionDate = p.ExecutionDate.UTC()
	}
	return t
}

// ValidateDescription trims and length-checks free text
func ValidateDescription(d string) (string, error) {
	d = strings.TrimSpace(d)
	if len(d) > MaxDescriptionLength {
		return "", ErrDescriptionTooLong
	}
	return d, nil
}

type TransactionFilters struct {
	AccountID *int32
}

type TransactionRepository interface {
	Create(ctx context.Context, transaction *Transaction) (*Transaction, error)
	// GetByID returns the transaction only if its account belongs to userID
	GetByID(ctx context.Context, userID int32, id int32) (*Transaction, error)
	// LockByID is GetByID under a row write lock held until the unit ends.
	// Mutations read the row they reverse through it.
	LockByID(ctx context.Context, userID int32, id int32) (*Transaction, error)
	ListByUser(ctx context.Context, userID int32, filters TransactionFilters) ([]*Transaction, error)
	Update(ctx context.Context, transaction *Transaction) (*Transaction, error)
	Delete(ctx context.Context, id int32) error
	// SumByCategory totals amounts in categoryID across all of userID's
	// accounts with from <= execution date < to
	SumByCategory(ctx context.Context, userID int32, categoryID int32, from, to time.Time) (decimal.Decimal, error)
}
