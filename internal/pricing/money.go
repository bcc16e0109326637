package pricing

import "github.com/shopspring/decimal"

// Money represents a monetary value stored in minor units.
type Money = int64

// MinorUnitsPerMajor is the number of minor units (kobo) in one naira.
const MinorUnitsPerMajor = 100

// Line bounds. Lines beyond them are rejected like negative input, which keeps every sum the
// engine computes far from int64 overflow.
const (
	MaxUnitPrice Money = 10_000_000_000 * MinorUnitsPerMajor
	MaxQuantity  int   = 100_000
	MaxSubtotal  Money = 1 << 60
)

// LineTotal returns price × quantity, or false when the line is out of bounds.
func LineTotal(price Money, quantity int) (Money, bool) {
	if price < 0 || price > MaxUnitPrice || quantity <= 0 || quantity > MaxQuantity {
		return 0, false
	}
	return price * Money(quantity), true
}

// Major converts a whole-unit amount into minor units.
func Major(amount int64) Money {
	return Money(amount * MinorUnitsPerMajor)
}

// FromMajorDecimal converts a major-unit decimal amount into minor units,
// rounding half away from zero to the nearest minor unit.
func FromMajorDecimal(amount decimal.Decimal) Money {
	return amount.Mul(decimal.NewFromInt(MinorUnitsPerMajor)).Round(0).IntPart()
}

// ToMajorDecimal converts minor units back to a major-unit decimal for display layers.
func ToMajorDecimal(amount Money) decimal.Decimal {
	return decimal.New(amount, -2)
}

// mulRate multiplies an amount by a fractional rate and rounds once to the minor unit.
func mulRate(amount Money, rate decimal.Decimal) Money {
	if amount <= 0 || !rate.IsPositive() {
		return 0
	}
	return decimal.NewFromInt(amount).Mul(rate).Round(0).IntPart()
}
