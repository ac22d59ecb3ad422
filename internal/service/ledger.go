package service

import (
	"context"
	"errors"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/dafibh/fortuna/ledger-backend/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Operation labels used in logs and metrics
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// LedgerMetrics receives counters from the ledger core. *metrics.Collector implements it.
type LedgerMetrics interface {
	Posted(operation string)
	BalanceRejected(operation string)
	CategoryTypeDefaulted()
	BudgetNotified(level string)
	MonitorFailed()
	RecurringItem(outcome string)
	RecurringRun(elapsed time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) Posted(string)              {}
func (nopMetrics) BalanceRejected(string)     {}
func (nopMetrics) CategoryTypeDefaulted()     {}
func (nopMetrics) BudgetNotified(string)      {}
func (nopMetrics) MonitorFailed()             {}
func (nopMetrics) RecurringItem(string)       {}
func (nopMetrics) RecurringRun(time.Duration) {}

// categoryTypeOf resolves the sign-determining type of a category. A missing
// category or an unknown stored type counts as EXPENSE.
func categoryTypeOf(ctx context.Context, repos domain.Repositories, categoryID int32, logger zerolog.Logger, m LedgerMetrics) (domain.CategoryType, error) {
	category, err := repos.Categories().GetByID(ctx, categoryID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return "", err
		}
		logger.Warn().Int32("category_id", categoryID).Msg("Category not found, treating as EXPENSE")
		m.CategoryTypeDefaulted()
		return domain.CategoryTypeExpense, nil
	}
	if !category.Type.Valid() {
		logger.Warn().
			Int32("category_id", categoryID).
			Str("category_type", string(category.Type)).
			Msg("Unknown category type, treating as EXPENSE")
		m.CategoryTypeDefaulted()
		return domain.CategoryTypeExpense, nil
	}
	return category.Type, nil
}

// formatMoney renders an amount in the currency's display style, e.g. "180.000 ₫".
// Unknown codes fall back to the plain decimal followed by the code.
func formatMoney(amount decimal.Decimal, code string) string {
	cur := money.GetCurrency(code)
	if cur == nil {
		return amount.String() + " " + code
	}
	minor := amount.Shift(int32(cur.Fraction)).Round(0)
	return money.New(minor.IntPart(), cur.Code).Display()
}
