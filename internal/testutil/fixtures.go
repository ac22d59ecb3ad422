package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/dafibh/fortuna/ledger-backend/internal/domain"
	"github.com/dafibh/fortuna/ledger-backend/internal/repository/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// Ledger seeds a memory store for tests
type Ledger struct {
	Store *memory.Store
	Clock *FixedClock
}

// NewLedger creates an empty memory ledger whose timestamps follow a fixed clock
func NewLedger(now time.Time) *Ledger {
	clock := NewFixedClock(now)
	store := memory.NewStore()
	store.SetTimeSource(clock.Now)
	return &Ledger{Store: store, Clock: clock}
}

// Account creates a VND cash account with the given balance
func (l *Ledger) Account(t testing.TB, userID int32, name string, balance int64) *domain.Account {
	t.Helper()
	a, err := l.Store.Accounts().Create(context.Background(), &domain.Account{
		UserID:   userID,
		Name:     name,
		Type:     domain.AccountTypeCash,
		Balance:  decimal.NewFromInt(balance),
		Currency: domain.DefaultCurrency,
	})
	require.NoError(t, err)
	return a
}

// Category creates a category
func (l *Ledger) Category(t testing.TB, name string, categoryType domain.CategoryType) *domain.Category {
	t.Helper()
	c, err := l.Store.Categories().Create(context.Background(), &domain.Category{Name: name, Type: categoryType})
	require.NoError(t, err)
	return c
}

// Budget creates a budget over [start, end]
func (l *Ledger) Budget(t testing.TB, userID, categoryID int32, amount int64, start, end time.Time) *domain.Budget {
	t.Helper()
	b, err := l.Store.Budgets().Create(context.Background(), &domain.Budget{
		UserID:     userID,
		CategoryID: categoryID,
		Amount:     decimal.NewFromInt(amount),
		StartDate:  domain.TruncateDay(start),
		EndDate:    domain.TruncateDay(end),
	})
	require.NoError(t, err)
	return b
}

// Recurring creates a recurring transaction due at next
func (l *Ledger) Recurring(t testing.TB, accountID, categoryID int32, amount int64, frequency domain.Frequency, next time.Time) *domain.RecurringTransaction {
	t.Helper()
	rt, err := l.Store.Recurring().Create(context.Background(), &domain.RecurringTransaction{
		AccountID:   accountID,
		CategoryID:  categoryID,
		Amount:      decimal.NewFromInt(amount),
		Description: "Subscription",
		Frequency:   frequency,
		NextDate:    next,
	})
	require.NoError(t, err)
	return rt
}

// Balance returns the stored balance of an account
func (l *Ledger) Balance(t testing.TB, accountID int32) decimal.Decimal {
	t.Helper()
	accounts, err := l.Store.Accounts().LockByIDs(context.Background(), accountID)
	require.NoError(t, err)
	a, ok := accounts[accountID]
	require.True(t, ok, "account %d not found", accountID)
	return a.Balance
}

// Notifications lists every notification of the user, newest first
func (l *Ledger) Notifications(t testing.TB, userID int32) []*domain.Notification {
	t.Helper()
	n, err := l.Store.Notifications().ListByUser(context.Background(), userID, false)
	require.NoError(t, err)
	return n
}

// Transactions lists every transaction of the user
func (l *Ledger) Transactions(t testing.TB, userID int32) []*domain.Transaction {
	t.Helper()
	txs, err := l.Store.Transactions().ListByUser(context.Background(), userID, domain.TransactionFilters{})
	require.NoError(t, err)
	return txs
}
