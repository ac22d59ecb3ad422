package service

import (
	"context"
	"time"

	"github.com/dafibh/fortuna/ledger-backend/internal/domain"
	"github.com/dafibh/fortuna/ledger-backend/internal/util"
	"github.com/shopspring/decimal"
)

// BudgetService handles budget CRUD
type BudgetService struct {
	store domain.Store
	clock domain.Clock
}

// NewBudgetService creates a new BudgetService
func NewBudgetService(store domain.Store, clock domain.Clock) *BudgetService {
	return &BudgetService{store: store, clock: clock}
}

// CreateBudgetInput holds the input for creating a budget
type CreateBudgetInput struct {
	CategoryID int32
	Amount     decimal.Decimal
	StartDate  *time.Time
	EndDate    *time.Time
}

// CreateBudget creates a budget. Omitted dates default to the current calendar month.
func (s *BudgetService) CreateBudget(ctx context.Context, userID int32, input CreateBudgetInput) (*domain.Budget, error) {
	if input.CategoryID <= 0 {
		return nil, domain.ErrInvalidID
	}
	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}

	start, end := util.MonthWindow(s.clock.Now())
	if input.StartDate != nil {
		start = domain.TruncateDay(*input.StartDate)
		if input.EndDate == nil {
			_, end = util.MonthWindow(start)
		}
	}
	if input.EndDate != nil {
		end = domain.TruncateDay(*input.EndDate)
	}
	if end.Before(start) {
		return nil, domain.ErrInvalidDateRange
	}

	if _, err := s.store.Categories().GetByID(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	return s.store.Budgets().Create(ctx, &domain.Budget{
		UserID:     userID,
		CategoryID: input.CategoryID,
		Amount:     input.Amount,
		StartDate:  start,
		EndDate:    end,
	})
}

// ListBudgets lists the user's budgets, latest window first
func (s *BudgetService) ListBudgets(ctx context.Context, userID int32) ([]*domain.Budget, error) {
	return s.store.Budgets().ListByUser(ctx, userID)
}

// GetBudget retrieves a budget owned by the user
func (s *BudgetService) GetBudget(ctx context.Context, userID int32, id int32) (*domain.Budget, error) {
	return s.store.Budgets().GetByID(ctx, userID, id)
}

// UpdateBudget applies the patch and re-checks the window
func (s *BudgetService) UpdateBudget(ctx context.Context, userID int32, id int32, patch domain.BudgetPatch) (*domain.Budget, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	var updated *domain.Budget
	err := s.store.WithinTx(ctx, func(tx domain.Tx) error {
		budget, err := tx.Budgets().GetByID(ctx, userID, id)
		if err != nil {
			return err
		}
		if patch.CategoryID != nil && *patch.CategoryID != budget.CategoryID {
			if _, err := tx.Categories().GetByID(ctx, *patch.CategoryID); err != nil {
				return err
			}
		}
		if err := patch.Apply(budget); err != nil {
			return err
		}
		updated, err = tx.Budgets().Update(ctx, budget)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteBudget removes a budget
func (s *BudgetService) DeleteBudget(ctx context.Context, userID int32, id int32) error {
	return s.store.Budgets().Delete(ctx, userID, id)
}
