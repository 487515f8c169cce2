package ledger_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homequeen/cashback-ledger/ledger"
)

// =============================================================================
// PARSING TESTS
// =============================================================================

func TestParseMoney_WholeAndFractional(t *testing.T) {
	cases := []struct {
		in   string
		want ledger.Money
	}{
		{"2500", 250000},
		{"99.90", 9990},
		{"10,50", 1050}, // comma as decimal separator
		{"0.01", 1},
		{" 100 ", 10000},
		{"0", 0},
	}
	for _, tc := range cases {
		got, err := ledger.ParseMoney(tc.in)
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestParseMoney_RoundsHalfUp(t *testing.T) {
	// Sub-minor-unit input rounds half away from zero.
	got, err := ledger.ParseMoney("0.005")
	require.NoError(t, err)
	assert.Equal(t, ledger.Money(1), got)

	got, err = ledger.ParseMoney("10.004")
	require.NoError(t, err)
	assert.Equal(t, ledger.Money(1000), got)

	got, err = ledger.ParseMoney("10.005")
	require.NoError(t, err)
	assert.Equal(t, ledger.Money(1001), got)
}

func TestParseMoney_RejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "   ", "abc", "12.3.4", "10 00", "--5"} {
		_, err := ledger.ParseMoney(in)
		assert.ErrorIs(t, err, ledger.ErrInvalidAmount, "input %q", in)
	}
}

func TestParseMoney_RejectsOutOfRange(t *testing.T) {
	// 2^53 minor units is the ceiling; anything past it is rejected.
	_, err := ledger.ParseMoney("999999999999999999")
	assert.ErrorIs(t, err, ledger.ErrAmountOutOfRange)
}

func TestParsePositiveMoney_RejectsZeroAndNegative(t *testing.T) {
	for _, in := range []string{"0", "-5", "-0.01"} {
		_, err := ledger.ParsePositiveMoney(in)
		assert.ErrorIs(t, err, ledger.ErrInvalidAmount, "input %q", in)
	}

	got, err := ledger.ParsePositiveMoney("1")
	require.NoError(t, err)
	assert.Equal(t, ledger.Money(100), got)
}

// =============================================================================
// ARITHMETIC AND RENDERING
// =============================================================================

func TestMoney_String(t *testing.T) {
	assert.Equal(t, "1234.56", ledger.Money(123456).String())
	assert.Equal(t, "0.00", ledger.Money(0).String())
	assert.Equal(t, "0.05", ledger.Money(5).String())
	assert.Equal(t, "-10.00", ledger.Money(-1000).String())
}

func TestMoney_MulRate_TiesAwayFromZero(t *testing.T) {
	rate := decimal.NewFromFloat(0.03)

	// 3% of 10000.00 is exactly 300.00
	assert.Equal(t, ledger.Money(30000), ledger.Money(1000000).MulRate(rate))

	// 3% of 0.50 (50 minor units) = 1.5 minor units, rounds to 2
	assert.Equal(t, ledger.Money(2), ledger.Money(50).MulRate(rate))

	// 3% of 0.16 (16 minor units) = 0.48 minor units, rounds to 0
	assert.Equal(t, ledger.Money(0), ledger.Money(16).MulRate(rate))

	// 50% cap of an odd purchase: 50% of 0.03 = 1.5, rounds to 2
	half := decimal.NewFromFloat(0.5)
	assert.Equal(t, ledger.Money(2), ledger.Money(3).MulRate(half))
}
