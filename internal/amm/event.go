package amm

import "github.com/shopspring/decimal"

// EventKind names the operation an Event reports.
type EventKind string

const (
	EventPoolCreated      EventKind = "create_pool"
	EventLiquidityAdded   EventKind = "add_liquidity"
	EventLiquidityRemoved EventKind = "remove_liquidity"
	EventSwap             EventKind = "swap"
)

// Event describes one AMM operation. Committed operations carry the pool
// state after the commit; rejected ones carry Err and the caller's inputs.
//
// Amounts follow the canonical pool order: AmountA/AmountB are the deposited
// or withdrawn quantities of TokenA/TokenB.
type Event struct {
	Kind     EventKind
	Pool     PoolID
	Provider string

	AmountA decimal.Decimal
	AmountB decimal.Decimal
	Shares  decimal.Decimal

	TokenIn           string
	TokenOut          string
	AmountIn          decimal.Decimal
	AmountOut         decimal.Decimal
	PriceImpact       decimal.Decimal
	SlippageTolerance decimal.Decimal

	ReserveA    decimal.Decimal
	ReserveB    decimal.Decimal
	TotalShares decimal.Decimal
	FeeRate     decimal.Decimal

	Err error
}

// Committed reports whether the operation changed registry state.
func (e Event) Committed() bool {
	return e.Err == nil
}

// Observer receives AMM events. Observe is called while the pool lock is
// held and must not call back into the AMM.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) { f(e) }
