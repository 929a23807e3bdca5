// Package money provides the monetary rounding rule shared by every
// accumulator mutation.
package money

import "github.com/shopspring/decimal"

// Round2 rounds to exactly two fractional digits, half away from zero.
// Totals built from thousands of additions go through this after every
// mutation so they never drift from their per-land breakdowns.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Sum2 adds the given amounts and rounds the result.
func Sum2(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return Round2(total)
}
