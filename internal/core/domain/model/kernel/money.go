package kernel

import (
	"errors"
	"fmt"

	"cafe/internal/pkg/errs"

	"github.com/shopspring/decimal"
)

// ErrMoneyIsNegative is returned when an amount below zero is supplied.
var ErrMoneyIsNegative = errors.New("money amount must not be negative")

// Money is a non-negative monetary amount in the merchant's currency (rupees).
// It wraps decimal.Decimal so tax percentages are computed without binary
// floating point error; rounding happens only when Round is called.
//
// Example:
//
//	price, _ := kernel.MoneyFromString("50")
//	line := price.Mul(2)                               // 100
//	tax := line.Percent(decimal.RequireFromString("2.5")) // 2.5
type Money struct {
	amount decimal.Decimal
}

// Zero is the zero amount.
func Zero() Money {
	return Money{amount: decimal.Zero}
}

// NewMoney creates Money from a decimal. Negative amounts are rejected.
func NewMoney(amount decimal.Decimal) (Money, error) {
	if amount.IsNegative() {
		return Money{}, errs.NewValueIsInvalidErrorWithCause("amount", ErrMoneyIsNegative)
	}
	return Money{amount: amount}, nil
}

// MoneyFromString parses a decimal string such as "49.50".
func MoneyFromString(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, errs.NewValueIsInvalidErrorWithCause("amount", fmt.Errorf("%q is not a number: %w", s, err))
	}
	return NewMoney(d)
}

// MoneyFromMinor creates Money from an integer count of paise.
func MoneyFromMinor(paise int64) (Money, error) {
	return NewMoney(decimal.New(paise, -2))
}

// MustMoney is MoneyFromString that panics on error. Intended for constants and tests.
func MustMoney(s string) Money {
	m, err := MoneyFromString(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Decimal returns the underlying amount.
func (m Money) Decimal() decimal.Decimal {
	return m.amount
}

// Add returns m + other.
func (m Money) Add(other Money) Money {
	return Money{amount: m.amount.Add(other.amount)}
}

// Mul returns m × qty. qty must be non-negative.
func (m Money) Mul(qty int) Money {
	return Money{amount: m.amount.Mul(decimal.NewFromInt(int64(qty)))}
}

// Percent returns pct percent of m, unrounded.
func (m Money) Percent(pct decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(pct).Div(decimal.NewFromInt(100))}
}

// Round rounds half away from zero to the given number of decimal places.
func (m Money) Round(places int32) Money {
	return Money{amount: m.amount.Round(places)}
}

// StringFixed formats the amount with exactly places decimals.
func (m Money) StringFixed(places int32) string {
	return m.amount.StringFixed(places)
}

// IsEqual compares amounts numerically ("4.5" equals "4.50").
func (m Money) IsEqual(other Money) bool {
	return m.amount.Equal(other.amount)
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// String returns the amount with two decimals.
func (m Money) String() string {
	return m.amount.StringFixed(2)
}
