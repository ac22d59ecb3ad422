package domain

import "github.com/shopspring/decimal"

// Storage limits of the NUMERIC(20,4) money columns and the NUMERIC(7,4)
// interest rate column. Values outside them would be rounded or overflow.
const (
	AmountScale = 4
	rateScale   = 4
)

var (
	maxAmount = decimal.New(1, 16)
	maxRate   = decimal.New(1, 3)
)

// FitsAmount reports whether d is stored without rounding or overflow
func FitsAmount(d decimal.Decimal) bool {
	return fits(d, AmountScale, maxAmount)
}

func fits(d decimal.Decimal, scale int32, limit decimal.Decimal) bool {
	return d.Equal(d.Round(scale)) && d.Abs().LessThan(limit)
}

func checkStorable(d decimal.Decimal) error {
	if !d.Equal(d.Round(AmountScale)) {
		return ErrAmountPrecision
	}
	if !d.Abs().LessThan(maxAmount) {
		return ErrAmountTooLarge
	}
	return nil
}

// ValidateAmount accepts a positive amount that fits the money columns
func ValidateAmount(d decimal.Decimal) error {
	if !d.IsPositive() {
		return ErrInvalidAmount
	}
	return checkStorable(d)
}

// ValidateBalance accepts a non-negative balance that fits the money columns
func ValidateBalance(d decimal.Decimal) error {
	if d.IsNegative() {
		return ErrInvalidBalance
	}
	return checkStorable(d)
}

// ValidateInterestRate accepts a non-negative rate below 1000 with at most
// four decimal places
func ValidateInterestRate(d decimal.Decimal) error {
	if d.IsNegative() || !fits(d, rateScale, maxRate) {
		return ErrInvalidInterestRate
	}
	return nil
}
