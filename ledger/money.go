/*
money.go - Fixed-point money in minor currency units

PURPOSE:
  All balances and amounts in the system are integer counts of minor
  units (tiyn/cents). Arithmetic never touches floating point. Human
  decimal input ("2500", "99.90", "10,50") is converted exactly once,
  at the boundary, through shopspring/decimal.

ROUNDING RULES:
  - ParseMoney rounds half UP (away from zero) to the nearest minor unit.
  - MulRate (cashback accrual, redemption cap) rounds to nearest minor
    unit, ties away from zero.

BOUNDS:
  Amounts are limited to 2^53 minor units. Anything beyond is rejected
  with ErrAmountOutOfRange before it can reach the ledger.

SEE ALSO:
  - engine.go: Where MulRate is used for accrual and redemption caps
  - errors.go: ErrInvalidAmount, ErrAmountOutOfRange
*/
package ledger

import (
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Integer minor units
// =============================================================================

// Money is an amount in minor currency units (tiyn). A balance is never
// negative; purchase and redemption amounts are strictly positive.
type Money int64

// MaxMoney is the largest representable amount: 2^53 minor units.
const MaxMoney Money = 1 << 53

var minorFactor = decimal.NewFromInt(100)

// ParseMoney converts human decimal input to minor units.
// Accepts "2500", "99.90", "10,50" (comma as decimal separator).
// Rounds half up to the nearest minor unit.
func ParseMoney(text string) (Money, error) {
	s := strings.TrimSpace(strings.ReplaceAll(text, ",", "."))
	if s == "" {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	minor := d.Mul(minorFactor).Round(0)
	if minor.Abs().GreaterThan(decimal.NewFromInt(int64(MaxMoney))) {
		return 0, ErrAmountOutOfRange
	}
	return Money(minor.IntPart()), nil
}

// ParsePositiveMoney is ParseMoney restricted to strictly positive amounts.
// Used for purchase and redemption inputs.
func ParsePositiveMoney(text string) (Money, error) {
	m, err := ParseMoney(text)
	if err != nil {
		return 0, err
	}
	if m <= 0 {
		return 0, ErrInvalidAmount
	}
	return m, nil
}

// String renders the amount in major units with exactly two decimals:
// 123456 -> "1234.56".
func (m Money) String() string {
	return decimal.New(int64(m), -2).StringFixed(2)
}

// MulRate multiplies by a rational rate and rounds to the nearest minor
// unit, ties away from zero. Used for cashback accrual and the
// redemption cap.
func (m Money) MulRate(rate decimal.Decimal) Money {
	return Money(decimal.NewFromInt(int64(m)).Mul(rate).Round(0).IntPart())
}

// InRange reports whether the amount is within representable bounds.
func (m Money) InRange() bool {
	return m >= -MaxMoney && m <= MaxMoney
}
