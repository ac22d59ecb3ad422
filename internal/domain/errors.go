package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Error kinds. Every domain error wraps exactly one of these.
var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNegativeBalance   = errors.New("balance would become negative")
	ErrValidation        = errors.New("validation failed")
	ErrConflict          = errors.New("conflict")
)

// Domain errors
var (
	ErrAccountNotFound      = fmt.Errorf("account %w", ErrNotFound)
	ErrCategoryNotFound     = fmt.Errorf("category %w", ErrNotFound)
	ErrTransactionNotFound  = fmt.Errorf("transaction %w", ErrNotFound)
	ErrBudgetNotFound       = fmt.Errorf("budget %w", ErrNotFound)
	ErrRecurringNotFound    = fmt.Errorf("recurring transaction %w", ErrNotFound)
	ErrNotificationNotFound = fmt.Errorf("notification %w", ErrNotFound)
	ErrLoanNotFound         = fmt.Errorf("loan %w", ErrNotFound)

	ErrAccountForbidden = fmt.Errorf("account access %w", ErrForbidden)
	ErrAccountInUse     = fmt.Errorf("account still referenced: %w", ErrConflict)

	ErrInvalidAmount       = fmt.Errorf("%w: amount must be positive", ErrValidation)
	ErrInvalidBalance      = fmt.Errorf("%w: balance must not be negative", ErrValidation)
	ErrAmountPrecision     = fmt.Errorf("%w: amount has more than 4 decimal places", ErrValidation)
	ErrAmountTooLarge      = fmt.Errorf("%w: amount exceeds 16 integer digits", ErrValidation)
	ErrBalanceTooLarge     = fmt.Errorf("%w: resulting balance exceeds 16 integer digits", ErrValidation)
	ErrNameRequired        = fmt.Errorf("%w: name is required", ErrValidation)
	ErrNameTooLong         = fmt.Errorf("%w: name exceeds maximum length", ErrValidation)
	ErrDescriptionTooLong  = fmt.Errorf("%w: description exceeds maximum length", ErrValidation)
	ErrInvalidAccountType  = fmt.Errorf("%w: invalid account type", ErrValidation)
	ErrInvalidCategoryType = fmt.Errorf("%w: invalid category type", ErrValidation)
	ErrInvalidCurrency     = fmt.Errorf("%w: currency must be a 3-letter code", ErrValidation)
	ErrInvalidFrequency    = fmt.Errorf("%w: invalid frequency", ErrValidation)
	ErrInvalidDateRange    = fmt.Errorf("%w: end date is before start date", ErrValidation)
	ErrDateRequired        = fmt.Errorf("%w: date is required", ErrValidation)
	ErrInvalidID           = fmt.Errorf("%w: id must be positive", ErrValidation)
	ErrEmptyPatch          = fmt.Errorf("%w: no fields to update", ErrValidation)
	ErrInvalidLoanStatus   = fmt.Errorf("%w: invalid loan status", ErrValidation)
	ErrInvalidInterestRate = fmt.Errorf("%w: interest rate must be between 0 and 999.9999", ErrValidation)
	ErrTitleRequired       = fmt.Errorf("%w: title is required", ErrValidation)
)

// Validation constants
const (
	MaxNameLength        = 255
	MaxDescriptionLength = 1000
)

// BalanceError reports an operation that would drive an account balance
// below zero. Err is ErrInsufficientFunds or ErrNegativeBalance.
type BalanceError struct {
	Err         error
	AccountID   int32
	AccountName string
	Currency    string
	Balance     decimal.Decimal
	Amount      decimal.Decimal
}

func (e *BalanceError) Error() string {
	return fmt.Sprintf("%s: account %d (%q) balance %s %s, amount %s %s",
		e.Err.Error(), e.AccountID, e.AccountName,
		e.Balance.String(), e.Currency, e.Amount.String(), e.Currency)
}

func (e *BalanceError) Unwrap() error { return e.Err }
