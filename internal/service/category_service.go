package service

import (
	"context"

	"github.com/dafibh/fortuna/ledger-backend/internal/domain"
)

// CategoryService manages the global category list
type CategoryService struct {
	store domain.Store
}

// NewCategoryService creates a new CategoryService
func NewCategoryService(store domain.Store) *CategoryService {
	return &CategoryService{store: store}
}

// CreateCategory creates a category. Its type cannot change afterwards.
func (s *CategoryService) CreateCategory(ctx context.Context, name string, categoryType domain.CategoryType) (*domain.Category, error) {
	name, err := domain.ValidateName(name)
	if err != nil {
		return nil, err
	}
	if !categoryType.Valid() {
		return nil, domain.ErrInvalidCategoryType
	}
	return s.store.Categories().Create(ctx, &domain.Category{Name: name, Type: categoryType})
}

// ListCategories lists categories, optionally of one type
func (s *CategoryService) ListCategories(ctx context.Context, categoryType *domain.CategoryType) ([]*domain.Category, error) {
	if categoryType != nil && !categoryType.Valid() {
		return nil, domain.ErrInvalidCategoryType
	}
	return s.store.Categories().List(ctx, categoryType)
}

// GetCategory retrieves a category by ID
func (s *CategoryService) GetCategory(ctx context.Context, id int32) (*domain.Category, error) {
	return s.store.Categories().GetByID(ctx, id)
}

// RenameCategory changes a category's name
func (s *CategoryService) RenameCategory(ctx context.Context, id int32, name string) (*domain.Category, error) {
	name, err := domain.ValidateName(name)
	if err != nil {
		return nil, err
	}
	return s.store.Categories().Rename(ctx, id, name)
}

// DefaultCategories is the starter set the initial migration also inserts
var DefaultCategories = []domain.Category{
	{Name: "Salary", Type: domain.CategoryTypeIncome},
	{Name: "Bonus", Type: domain.CategoryTypeIncome},
	{Name: "Investment Income", Type: domain.CategoryTypeIncome},
	{Name: "Other Income", Type: domain.CategoryTypeIncome},
	{Name: "Food", Type: domain.CategoryTypeExpense},
	{Name: "Transport", Type: domain.CategoryTypeExpense},
	{Name: "Housing", Type: domain.CategoryTypeExpense},
	{Name: "Utilities", Type: domain.CategoryTypeExpense},
	{Name: "Shopping", Type: domain.CategoryTypeExpense},
	{Name: "Health", Type: domain.CategoryTypeExpense},
	{Name: "Education", Type: domain.CategoryTypeExpense},
	{Name: "Entertainment", Type: domain.CategoryTypeExpense},
	{Name: "Loan Payment", Type: domain.CategoryTypeExpense},
	{Name: "Other Expense", Type: domain.CategoryTypeExpense},
}

// SeedDefaults creates every default category whose name and type pair is
// missing and returns how many were created
func (s *CategoryService) SeedDefaults(ctx context.Context) (int, error) {
	created := 0
	err := s.store.WithinTx(ctx, func(tx domain.Tx) error {
		existing, err := tx.Categories().List(ctx, nil)
		if err != nil {
			return err
		}
		type key struct {
			name string
			typ  domain.CategoryType
		}
		have := make(map[key]bool, len(existing))
		for _, c := range existing {
			have[key{c.Name, c.Type}] = true
		}
		for _, c := range DefaultCategories {
			if have[key{c.Name, c.Type}] {
				continue
			}
			if _, err := tx.Categories().Create(ctx, &domain.Category{Name: c.Name, Type: c.Type}); err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}
