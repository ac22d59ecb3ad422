package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dafibh/fortuna/ledger-backend/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var (
	marchStart = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	marchEnd   = time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
)

func TestBudgetMonitor_WarningNotExceeded(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()
	userID := int32(1)
	account := f.ledger.Account(t, userID, "Wallet", 1_000_000)
	f.ledger.Budget(t, userID, f.food.ID, 200_000, marchStart, marchEnd)

	if _, err := f.engine.CreateTransaction(ctx, userID, CreateTransactionInput{AccountID: account.ID, CategoryID: f.food.ID, Amount: vnd(150_000)}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if n := len(f.ledger.Notifications(t, userID)); n != 0 {
		t.Fatalf("Expected no notification at 75%%, got %d", n)
	}

	if _, err := f.engine.CreateTransaction(ctx, userID, CreateTransactionInput{AccountID: account.ID, CategoryID: f.food.ID, Amount: vnd(30_000)}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	notes := f.ledger.Notifications(t, userID)
	if len(notes) != 1 {
		t.Fatalf("Expected 1 notification, got %d", len(notes))
	}
	if notes[0].Title != domain.TitleBudgetWarning {
		t.Errorf("Expected title %q, got %q", domain.TitleBudgetWarning, notes[0].Title)
	}
	if !strings.Contains(notes[0].Message, "Food") {
		t.Errorf("Expected message to name the category, got %q", notes[0].Message)
	}

	types := f.publisher.Types(userID)
	if len(types) != 3 || types[2] != "notification.created" {
		t.Errorf("Expected the warning to be published after the second posting, got %v", types)
	}
}

func TestBudgetMonitor_Exceeded(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()
	userID := int32(1)
	account := f.ledger.Account(t, userID, "Wallet", 1_000_000)
	f.ledger.Budget(t, userID, f.food.ID, 200_000, marchStart, marchEnd)

	if _, err := f.engine.CreateTransaction(ctx, userID, CreateTransactionInput{AccountID: account.ID, CategoryID: f.food.ID, Amount: vnd(200_000)}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	notes := f.ledger.Notifications(t, userID)
	if len(notes) != 1 || notes[0].Title != domain.TitleBudgetExceeded {
		t.Fatalf("Expected one exceeded notification, got %+v", notes)
	}
}

func TestBudgetMonitor_SpendAcrossAccounts(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()
	userID := int32(1)
	cash := f.ledger.Account(t, userID, "Cash", 1_000_000)
	bank := f.ledger.Account(t, userID, "Bank", 1_000_000)
	stranger := f.ledger.Account(t, 2, "Stranger", 1_000_000)
	f.ledger.Budget(t, userID, f.food.ID, 200_000, marchStart, marchEnd)

	if _, err := f.engine.CreateTransaction(ctx, 2, CreateTransactionInput{AccountID: stranger.ID, CategoryID: f.food.ID, Amount: vnd(500_000)}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, err := f.engine.CreateTransaction(ctx, userID, CreateTransactionInput{AccountID: cash.ID, CategoryID: f.food.ID, Amount: vnd(100_000)}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if n := len(f.ledger.Notifications(t, userID)); n != 0 {
		t.Fatalf("Expected another user's spend to be ignored, got %d notifications", n)
	}

	if _, err := f.engine.CreateTransaction(ctx, userID, CreateTransactionInput{AccountID: bank.ID, CategoryID: f.food.ID, Amount: vnd(70_000)}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	notes := f.ledger.Notifications(t, userID)
	if len(notes) != 1 || notes[0].Title != domain.TitleBudgetWarning {
		t.Fatalf("Expected one warning from combined spend, got %+v", notes)
	}
	if n := len(f.ledger.Notifications(t, 2)); n != 0 {
		t.Errorf("Expected no notification for the user without a budget, got %d", n)
	}
}

func TestBudgetMonitor_IgnoresSpendOutsideWindow(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()
	userID := int32(1)
	account := f.ledger.Account(t, userID, "Wallet", 1_000_000)
	f.ledger.Budget(t, userID, f.food.ID, 200_000, marchStart, marchEnd)

	february := time.Date(2025, 2, 28, 23, 59, 0, 0, time.UTC)
	if _, err := f.engine.CreateTransaction(ctx, userID, CreateTransactionInput{
		AccountID: account.ID, CategoryID: f.food.ID, Amount: vnd(190_000), ExecutionDate: &february,
	}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	lastDay := time.Date(2025, 3, 31, 23, 59, 0, 0, time.UTC)
	if _, err := f.engine.CreateTransaction(ctx, userID, CreateTransactionInput{
		AccountID: account.ID, CategoryID: f.food.ID, Amount: vnd(10_000), ExecutionDate: &lastDay,
	}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if n := len(f.ledger.Notifications(t, userID)); n != 0 {
		t.Errorf("Expected no notification, got %d", n)
	}
}

func TestBudgetMonitor_NoActiveBudget(t *testing.T) {
	f := setupEngine(t)
	monitor := NewBudgetMonitor(f.ledger.Clock, zerolog.Nop(), "")
	f.ledger.Budget(t, 1, f.food.ID, 10, marchStart.AddDate(0, -1, 0), marchStart.AddDate(0, 0, -1))

	n, err := monitor.Evaluate(context.Background(), f.ledger.Store, 1, f.food.ID)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if n != nil {
		t.Errorf("Expected no notification, got %+v", n)
	}
}

func TestBudgetLevel(t *testing.T) {
	limit := decimal.NewFromInt(200_000)
	tests := []struct {
		spent string
		want  string
	}{
		{"0", ""},
		{"159999.99", ""},
		{"160000", BudgetLevelWarning},
		{"199999.99", BudgetLevelWarning},
		{"200000", BudgetLevelExceeded},
		{"250000", BudgetLevelExceeded},
	}
	for _, tt := range tests {
		if got := budgetLevel(decimal.RequireFromString(tt.spent), limit); got != tt.want {
			t.Errorf("budgetLevel(%s) = %q, want %q", tt.spent, got, tt.want)
		}
	}
}
