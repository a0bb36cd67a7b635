package amm

import "github.com/shopspring/decimal"

// PoolInfo is a read-only view of a pool. PriceA and PriceB are zero when
// the corresponding reserve is empty.
type PoolInfo struct {
	ID          PoolID
	ReserveA    decimal.Decimal
	ReserveB    decimal.Decimal
	TotalShares decimal.Decimal
	K           decimal.Decimal
	PriceA      decimal.Decimal
	PriceB      decimal.Decimal
	FeeRate     decimal.Decimal
	Providers   int
}

// PoolInfo describes the pool of an unordered token pair.
func (a *AMM) PoolInfo(tokenX, tokenY string) (PoolInfo, error) {
	id := NewPoolID(tokenX, tokenY)

	pool, positions, unlock, ok := a.acquire(id)
	if !ok {
		return PoolInfo{}, ErrPoolNotFound.Wrapf("pool %s", id)
	}
	defer unlock()

	priceA, _ := pool.Price(pool.TokenA)
	priceB, _ := pool.Price(pool.TokenB)
	return PoolInfo{
		ID:          id,
		ReserveA:    pool.ReserveA,
		ReserveB:    pool.ReserveB,
		TotalShares: pool.TotalShares,
		K:           pool.K(),
		PriceA:      priceA,
		PriceB:      priceB,
		FeeRate:     pool.FeeRate,
		Providers:   len(positions),
	}, nil
}
