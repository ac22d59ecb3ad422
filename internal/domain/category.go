package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type CategoryType string

const (
	CategoryTypeIncome  CategoryType = "INCOME"
	CategoryTypeExpense CategoryType = "EXPENSE"
)

// Valid reports whether t is INCOME or EXPENSE
func (t CategoryType) Valid() bool {
	return t == CategoryTypeIncome || t == CategoryTypeExpense
}

// Delta returns the signed balance change a posting of amount causes.
// Anything that is not INCOME debits.
func (t CategoryType) Delta(amount decimal.Decimal) decimal.Decimal {
	if t == CategoryTypeIncome {
		return amount
	}
	return amount.Neg()
}

// Category is global to all users
type Category struct {
	ID        int32        `json:"id"`
	Name      string       `json:"name"`
	Type      CategoryType `json:"type"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

type CategoryRepository interface {
	Create(ctx context.Context, category *Category) (*Category, error)
	GetByID(ctx context.Context, id int32) (*Category, error)
	List(ctx context.Context, categoryType *CategoryType) ([]*Category, error)
	Rename(ctx context.Context, id int32, name string) (*Category, error)
}
