package components

import (
	"math"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Currency is the display currency for every amount.
const Currency = money.USD

// Money formats a decimal amount as "$1,234.56".
func Money(v decimal.Decimal) string {
	cur := money.New(0, Currency).Currency()
	minor := v.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, Currency).Display()
}

// MoneyFloat formats a float amount; NaN and Inf render as "n/a".
func MoneyFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return Money(decimal.NewFromFloat(v))
}

// SignedMoney prefixes gains with "+".
func SignedMoney(v decimal.Decimal) string {
	if v.IsPositive() {
		return "+" + Money(v)
	}
	return Money(v)
}

// Percent formats with two decimals, e.g. "12.34%".
func Percent(v decimal.Decimal) string {
	return v.StringFixed(2) + "%"
}

// SignedPercent prefixes gains with "+".
func SignedPercent(v decimal.Decimal) string {
	if v.IsPositive() {
		return "+" + Percent(v)
	}
	return Percent(v)
}

// Shares trims trailing zeros from a share count.
func Shares(v decimal.Decimal) string {
	s := v.StringFixed(6)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// Tone returns the CSS class for a gain or a loss.
func Tone(v decimal.Decimal) string {
	if v.IsNegative() {
		return "loss"
	}
	return "gain"
}
