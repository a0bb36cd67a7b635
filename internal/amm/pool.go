package amm

import (
	"github.com/shopspring/decimal"
)

// DefaultFeeRate is the swap fee applied to new pools (0.3%).
var DefaultFeeRate = decimal.RequireFromString("0.003")

// Pool holds the reserves of a canonically ordered token pair and the total
// supply of its liquidity-provider shares. It is only mutated through AMM.
type Pool struct {
	TokenA      string
	TokenB      string
	ReserveA    decimal.Decimal
	ReserveB    decimal.Decimal
	TotalShares decimal.Decimal
	FeeRate     decimal.Decimal
}

func newPool(id PoolID, feeRate decimal.Decimal) *Pool {
	return &Pool{
		TokenA:      id.TokenA,
		TokenB:      id.TokenB,
		ReserveA:    zero,
		ReserveB:    zero,
		TotalShares: zero,
		FeeRate:     feeRate,
	}
}

// ID returns the pool's canonical id.
func (p Pool) ID() PoolID {
	return PoolID{TokenA: p.TokenA, TokenB: p.TokenB}
}

// K returns the constant product reserveA * reserveB.
func (p Pool) K() decimal.Decimal {
	return p.ReserveA.Mul(p.ReserveB)
}

// Price returns the price of token in units of the other token. ok is false
// when token is not in the pool or its reserve is zero.
func (p Pool) Price(token string) (price decimal.Decimal, ok bool) {
	switch {
	case token == p.TokenA && p.ReserveA.Sign() > 0:
		return quo(p.ReserveB, p.ReserveA), true
	case token == p.TokenB && p.ReserveB.Sign() > 0:
		return quo(p.ReserveA, p.ReserveB), true
	default:
		return zero, false
	}
}

// Quote returns the amount of tokenB matching amountA at the current reserve
// ratio, or zero when reserveA is zero.
func (p Pool) Quote(amountA decimal.Decimal) decimal.Decimal {
	if p.ReserveA.IsZero() {
		return zero
	}
	return quo(amountA.Mul(p.ReserveB), p.ReserveA)
}

// IsEmpty reports whether the pool holds no liquidity.
func (p Pool) IsEmpty() bool {
	return p.TotalShares.IsZero()
}

func (p Pool) reserves(tokenIn string) (reserveIn, reserveOut decimal.Decimal) {
	if tokenIn == p.TokenA {
		return p.ReserveA, p.ReserveB
	}
	return p.ReserveB, p.ReserveA
}

func (p *Pool) clone() *Pool {
	cp := *p
	return &cp
}

// swapQuote holds the outcome of pricing a trade against fixed reserves.
type swapQuote struct {
	AmountOut   decimal.Decimal
	PriceImpact decimal.Decimal
}

// quoteSwap applies the constant product formula with the fee taken from the
// input before the invariant. The post-trade price uses the gross input.
func quoteSwap(amountIn, reserveIn, reserveOut, feeRate decimal.Decimal) swapQuote {
	amountInNet := amountIn.Mul(one.Sub(feeRate))
	amountOut := quo(amountInNet.Mul(reserveOut), reserveIn.Add(amountInNet))

	priceBefore := quo(reserveOut, reserveIn)
	if priceBefore.IsZero() {
		// reserveOut/reserveIn is below the division precision
		return swapQuote{AmountOut: amountOut, PriceImpact: one}
	}
	priceAfter := quo(reserveOut.Sub(amountOut), reserveIn.Add(amountIn))
	impact := quo(priceAfter.Sub(priceBefore).Abs(), priceBefore)

	return swapQuote{AmountOut: amountOut, PriceImpact: impact}
}
