package ledger

import "github.com/shopspring/decimal"

// PercentOf computes percent% of amount in minor units, rounding half up.
// Escrow totals are derived from this, so funding and release use the same
// rounding everywhere.
func PercentOf(amount int64, percent int) int64 {
	return decimal.NewFromInt(amount).
		Mul(decimal.NewFromInt(int64(percent))).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
}
