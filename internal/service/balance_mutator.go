package service

import (
	"context"
	"fmt"

	"github.com/dafibh/fortuna/ledger-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// BalanceMutator is the only path through which account balances change.
// It runs inside the caller's unit and never commits on its own.
type BalanceMutator struct{}

// NewBalanceMutator creates a new BalanceMutator
func NewBalanceMutator() *BalanceMutator {
	return &BalanceMutator{}
}

// Adjust adds delta to the account balance unconditionally and returns the
// new balance. Callers decide beforehand whether the result is acceptable.
func (m *BalanceMutator) Adjust(ctx context.Context, tx domain.Tx, accountID int32, delta decimal.Decimal) (decimal.Decimal, error) {
	return tx.Accounts().AdjustBalance(ctx, accountID, delta)
}

// Project returns the balance the account would have after delta, or a
// *domain.BalanceError of the given kind if it would be negative. A balance
// too large for the money columns is a validation error.
func (m *BalanceMutator) Project(account *domain.Account, delta, amount decimal.Decimal, kind error) (decimal.Decimal, error) {
	projected := account.Balance.Add(delta)
	if !domain.FitsAmount(projected) {
		return projected, fmt.Errorf("%w: account %d", domain.ErrBalanceTooLarge, account.ID)
	}
	if projected.IsNegative() {
		return projected, &domain.BalanceError{
			Err:         kind,
			AccountID:   account.ID,
			AccountName: account.Name,
			Currency:    account.Currency,
			Balance:     account.Balance,
			Amount:      amount,
		}
	}
	return projected, nil
}

// Verify rejects a balance returned by Adjust that ended up negative
func (m *BalanceMutator) Verify(account *domain.Account, balance, amount decimal.Decimal, kind error) error {
	if balance.IsNegative() {
		return &domain.BalanceError{
			Err:         kind,
			AccountID:   account.ID,
			AccountName: account.Name,
			Currency:    account.Currency,
			Balance:     account.Balance,
			Amount:      amount,
		}
	}
	return nil
}
