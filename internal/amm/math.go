package amm

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Precision is the number of fractional digits kept by division and square root.
const Precision int32 = 28

var (
	zero = decimal.Zero
	one  = decimal.NewFromInt(1)
)

// quo divides a by b keeping Precision fractional digits, truncated toward zero.
// b must be non-zero.
func quo(a, b decimal.Decimal) decimal.Decimal {
	q, _ := a.QuoRem(b, Precision)
	return q
}

// sqrt returns floor(sqrt(x)) at Precision fractional digits. x must be non-negative.
func sqrt(x decimal.Decimal) decimal.Decimal {
	if x.Sign() <= 0 {
		return zero
	}
	// floor(sqrt(floor(y))) == floor(sqrt(y)), so the scaled integer part is enough.
	scaled := x.Shift(2 * Precision).BigInt()
	root := new(big.Int).Sqrt(scaled)
	return decimal.NewFromBigInt(root, -Precision)
}

// minDec returns the smaller of a and b.
func minDec(a, b decimal.Decimal) decimal.Decimal {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

// quoAt divides a by b keeping places fractional digits, truncated toward zero.
func quoAt(a, b decimal.Decimal, places int32) decimal.Decimal {
	q, _ := a.QuoRem(b, places)
	return q
}

// mintPrecision is the number of fractional digits kept on shares minted into
// a funded pool. Each extra integer digit of reserve per share amplifies the
// share truncation by ten on withdrawal, so it costs one more digit.
func mintPrecision(reserveA, reserveB, totalShares decimal.Decimal) int32 {
	perShare := quoAt(decimal.Max(reserveA, reserveB), totalShares, 0)
	return Precision + int32(len(perShare.BigInt().String())) + 1
}

// payout is reserve*shares/totalShares rounded to Precision digits. It falls
// back to truncation when rounding would drain the reserve while shares remain.
func payout(reserve, shares, totalShares decimal.Decimal) decimal.Decimal {
	num := reserve.Mul(shares)
	if out := num.DivRound(totalShares, Precision); out.LessThan(reserve) {
		return out
	}
	return quo(num, totalShares)
}
