package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dafibh/fortuna/ledger-backend/internal/domain"
	"github.com/dafibh/fortuna/ledger-backend/internal/testutil"
	"github.com/shopspring/decimal"
)

func TestCreateBudget_DefaultsToCurrentMonth(t *testing.T) {
	ledger := testutil.NewLedger(testNow)
	budgetService := NewBudgetService(ledger.Store, ledger.Clock)
	food := ledger.Category(t, "Food", domain.CategoryTypeExpense)

	budget, err := budgetService.CreateBudget(context.Background(), 1, CreateBudgetInput{
		CategoryID: food.ID,
		Amount:     decimal.NewFromInt(200_000),
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !budget.StartDate.Equal(marchStart) || !budget.EndDate.Equal(marchEnd) {
		t.Errorf("Expected March window, got %v - %v", budget.StartDate, budget.EndDate)
	}
}

func TestCreateBudget_StartOnlyUsesThatMonth(t *testing.T) {
	ledger := testutil.NewLedger(testNow)
	budgetService := NewBudgetService(ledger.Store, ledger.Clock)
	food := ledger.Category(t, "Food", domain.CategoryTypeExpense)

	start := time.Date(2025, 2, 10, 15, 0, 0, 0, time.UTC)
	budget, err := budgetService.CreateBudget(context.Background(), 1, CreateBudgetInput{
		CategoryID: food.ID,
		Amount:     decimal.NewFromInt(1),
		StartDate:  &start,
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !budget.StartDate.Equal(time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Expected start 2025-02-10, got %v", budget.StartDate)
	}
	if !budget.EndDate.Equal(time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Expected end 2025-02-28, got %v", budget.EndDate)
	}
}

func TestCreateBudget_Validation(t *testing.T) {
	ledger := testutil.NewLedger(testNow)
	budgetService := NewBudgetService(ledger.Store, ledger.Clock)
	food := ledger.Category(t, "Food", domain.CategoryTypeExpense)
	ctx := context.Background()

	if _, err := budgetService.CreateBudget(ctx, 1, CreateBudgetInput{CategoryID: food.ID}); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Errorf("Expected ErrInvalidAmount, got %v", err)
	}
	if _, err := budgetService.CreateBudget(ctx, 1, CreateBudgetInput{CategoryID: 999, Amount: decimal.NewFromInt(1)}); !errors.Is(err, domain.ErrCategoryNotFound) {
		t.Errorf("Expected ErrCategoryNotFound, got %v", err)
	}
	end := marchStart.AddDate(0, 0, -1)
	if _, err := budgetService.CreateBudget(ctx, 1, CreateBudgetInput{CategoryID: food.ID, Amount: decimal.NewFromInt(1), StartDate: &marchStart, EndDate: &end}); !errors.Is(err, domain.ErrInvalidDateRange) {
		t.Errorf("Expected ErrInvalidDateRange, got %v", err)
	}
}

func TestUpdateBudget_OwnershipAndWindow(t *testing.T) {
	ledger := testutil.NewLedger(testNow)
	budgetService := NewBudgetService(ledger.Store, ledger.Clock)
	food := ledger.Category(t, "Food", domain.CategoryTypeExpense)
	budget := ledger.Budget(t, 1, food.ID, 100, marchStart, marchEnd)
	ctx := context.Background()

	amount := decimal.NewFromInt(300)
	updated, err := budgetService.UpdateBudget(ctx, 1, budget.ID, domain.BudgetPatch{Amount: &amount})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !updated.Amount.Equal(amount) {
		t.Errorf("Expected amount 300, got %s", updated.Amount.String())
	}

	if _, err := budgetService.UpdateBudget(ctx, 2, budget.ID, domain.BudgetPatch{Amount: &amount}); !errors.Is(err, domain.ErrBudgetNotFound) {
		t.Errorf("Expected ErrBudgetNotFound, got %v", err)
	}

	early := marchStart.AddDate(0, -1, 0)
	if _, err := budgetService.UpdateBudget(ctx, 1, budget.ID, domain.BudgetPatch{EndDate: &early}); !errors.Is(err, domain.ErrInvalidDateRange) {
		t.Errorf("Expected ErrInvalidDateRange, got %v", err)
	}

	if err := budgetService.DeleteBudget(ctx, 1, budget.ID); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, err := budgetService.GetBudget(ctx, 1, budget.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}
