package service

import (
	"context"
	"fmt"

	"github.com/dafibh/fortuna/ledger-backend/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Budget notification levels
const (
	BudgetLevelWarning  = "warning"
	BudgetLevelExceeded = "exceeded"
)

// BudgetMonitor emits threshold notifications after postings
type BudgetMonitor struct {
	clock    domain.Clock
	logger   zerolog.Logger
	metrics  LedgerMetrics
	currency string
}

// NewBudgetMonitor creates a new BudgetMonitor. Amounts in its messages are
// rendered in currency.
func NewBudgetMonitor(clock domain.Clock, logger zerolog.Logger, currency string) *BudgetMonitor {
	if currency == "" {
		currency = domain.DefaultCurrency
	}
	return &BudgetMonitor{
		clock:    clock,
		logger:   logger.With().Str("component", "budget_monitor").Logger(),
		metrics:  nopMetrics{},
		currency: currency,
	}
}

// SetMetrics sets the metrics sink
func (m *BudgetMonitor) SetMetrics(metrics LedgerMetrics) {
	m.metrics = metrics
}

// Evaluate checks the budget of (userID, categoryID) active now and records
// at most one notification: exceeded at 100% of the cap, warning from 80%.
func (m *BudgetMonitor) Evaluate(ctx context.Context, repos domain.Repositories, userID, categoryID int32) (*domain.Notification, error) {
	now := m.clock.Now()

	budget, err := repos.Budgets().FindActive(ctx, userID, categoryID, now)
	if err != nil {
		return nil, fmt.Errorf("find active budget: %w", err)
	}
	if budget == nil {
		return nil, nil
	}

	spent, err := repos.Transactions().SumByCategory(ctx, userID, categoryID, budget.WindowStart(), budget.WindowEnd())
	if err != nil {
		return nil, fmt.Errorf("sum category spend: %w", err)
	}

	level := budgetLevel(spent, budget.Amount)
	if level == "" {
		return nil, nil
	}

	n := &domain.Notification{
		UserID:   userID,
		NotifyAt: now,
	}
	name := categoryName(budget)
	switch level {
	case BudgetLevelExceeded:
		n.Title = domain.TitleBudgetExceeded
		n.Message = fmt.Sprintf("You have spent %s, reaching or exceeding your %s budget for %s.",
			formatMoney(spent, m.currency), formatMoney(budget.Amount, m.currency), name)
	default:
		n.Title = domain.TitleBudgetWarning
		n.Message = fmt.Sprintf("You have used over 80%% of your budget for %s (%s / %s).",
			name, formatMoney(spent, m.currency), formatMoney(budget.Amount, m.currency))
	}

	created, err := repos.Notifications().Create(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("create budget notification: %w", err)
	}
	m.metrics.BudgetNotified(level)
	m.logger.Debug().
		Int32("user_id", userID).
		Int32("budget_id", budget.ID).
		Str("level", level).
		Str("spent", spent.String()).
		Str("cap", budget.Amount.String()).
		Msg("Budget threshold reached")
	return created, nil
}

// evaluateIsolated runs Evaluate under a savepoint of tx. Failures roll back
// only the savepoint and are logged; the caller's posting is unaffected.
func (m *BudgetMonitor) evaluateIsolated(ctx context.Context, tx domain.Tx, userID, categoryID int32) *domain.Notification {
	var created *domain.Notification
	err := tx.Savepoint(ctx, func(sp domain.Tx) error {
		n, err := m.Evaluate(ctx, sp, userID, categoryID)
		created = n
		return err
	})
	if err != nil {
		m.metrics.MonitorFailed()
		m.logger.Error().
			Err(err).
			Int32("user_id", userID).
			Int32("category_id", categoryID).
			Msg("Budget evaluation failed")
		return nil
	}
	return created
}

func budgetLevel(spent, limit decimal.Decimal) string {
	switch {
	case spent.GreaterThanOrEqual(limit):
		return BudgetLevelExceeded
	case spent.GreaterThanOrEqual(limit.Mul(domain.WarningThreshold)):
		return BudgetLevelWarning
	}
	return ""
}

func categoryName(b *domain.Budget) string {
	if b.Category != nil && b.Category.Name != "" {
		return b.Category.Name
	}
	return fmt.Sprintf("category %d", b.CategoryID)
}
