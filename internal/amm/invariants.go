package amm

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// checkPool verifies the per-pool invariants: non-negative quantities, an
// empty pool iff it has no shares, and positions summing to total shares.
func checkPool(pool *Pool, positions map[string]decimal.Decimal) error {
	id := pool.ID()
	if pool.ReserveA.Sign() < 0 || pool.ReserveB.Sign() < 0 || pool.TotalShares.Sign() < 0 {
		return fmt.Errorf("pool %s: negative reserve or shares", id)
	}

	reservesEmpty := pool.ReserveA.IsZero() && pool.ReserveB.IsZero()
	reservesFunded := pool.ReserveA.Sign() > 0 && pool.ReserveB.Sign() > 0
	switch {
	case pool.TotalShares.IsZero() && !reservesEmpty:
		return fmt.Errorf("pool %s: reserves %s/%s without shares", id, pool.ReserveA, pool.ReserveB)
	case pool.TotalShares.Sign() > 0 && !reservesFunded:
		return fmt.Errorf("pool %s: %s shares against reserves %s/%s", id, pool.TotalShares, pool.ReserveA, pool.ReserveB)
	}

	sum := zero
	for _, shares := range positions {
		sum = sum.Add(shares)
	}
	if !sum.Equal(pool.TotalShares) {
		return fmt.Errorf("pool %s: positions sum to %s, total shares %s", id, sum, pool.TotalShares)
	}
	return nil
}

// CheckInvariants verifies every pool and returns the first violation.
func (a *AMM) CheckInvariants() error {
	for _, id := range a.Pools() {
		if err := a.checkPoolID(id); err != nil {
			return err
		}
	}
	return nil
}

func (a *AMM) checkPoolID(id PoolID) error {
	pool, positions, unlock, ok := a.acquire(id)
	if !ok {
		return nil
	}
	defer unlock()
	return checkPool(pool, positions)
}
