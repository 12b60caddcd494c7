package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// QuantizeDown returns the greatest multiple of step not exceeding v.
// Always floors, never rounds up: a quantity must not exceed what is held
// and a price must stay on tick granularity.
func QuantizeDown(v, step decimal.Decimal) decimal.Decimal {
	if step.Sign() <= 0 {
		return v
	}
	return v.Sub(v.Mod(step))
}

// FractionalDigits counts the significant fractional digits of a step value,
// e.g. 2 for 0.01 and 0 for integer steps. The step is formatted to 12
// decimal places and trailing zeros are stripped, so the result is stable
// regardless of how the decimal was constructed.
func FractionalDigits(step decimal.Decimal) int {
	s := strings.TrimRight(step.StringFixed(12), "0")
	dot := strings.IndexByte(s, '.')
	if dot < 0 {
		return 0
	}
	return len(s) - dot - 1
}
