package amm

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConcurrentSwapsAreSerializedPerPool(t *testing.T) {
	a, _ := newSeededAMM(t)
	_, err := a.CreatePool("BTC", "USDC")
	require.NoError(t, err)
	_, err = a.AddLiquidity("bob", "BTC", "USDC", d("2"), d("80000"))
	require.NoError(t, err)

	const workers = 16
	const swapsPerWorker = 50

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			tokenIn, tokenOut := "ETH", "USDC"
			amount := d("0.001")
			if w%2 == 1 {
				tokenIn, tokenOut = "USDC", "BTC"
				amount = d("5")
			}
			for i := 0; i < swapsPerWorker; i++ {
				if _, _, err := a.Swap(tokenIn, tokenOut, amount, d("1")); err != nil {
					t.Errorf("swap %s->%s: %v", tokenIn, tokenOut, err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	// every ETH swap must be reflected in the reserves
	eth, err := a.Pool("ETH", "USDC")
	require.NoError(t, err)
	requireDecEqual(t, d("10").Add(d("0.001").Mul(d("400"))), eth.ReserveA)

	btc, err := a.Pool("BTC", "USDC")
	require.NoError(t, err)
	requireDecEqual(t, d("80000").Add(d("5").Mul(d("400"))), btc.ReserveB)

	require.NoError(t, a.CheckInvariants())
}

func TestConcurrentLiquidityConservesShares(t *testing.T) {
	a, _ := newSeededAMM(t)

	providers := []string{"p0", "p1", "p2", "p3", "p4", "p5", "p6", "p7"}
	var wg sync.WaitGroup
	for _, p := range providers {
		wg.Add(1)
		go func(provider string) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				shares, err := a.AddLiquidity(provider, "USDC", "ETH", d("200"), d("0.1"))
				if err != nil {
					t.Errorf("add: %v", err)
					return
				}
				if i%2 == 0 {
					if _, _, err := a.RemoveLiquidity(provider, "ETH", "USDC", shares); err != nil {
						t.Errorf("remove: %v", err)
						return
					}
				}
			}
		}(p)
	}
	wg.Wait()

	require.NoError(t, a.CheckInvariants())
	snap := a.Snapshot()
	require.Len(t, snap.Pools, 1)
	require.Len(t, snap.Pools[0].Positions, len(providers)+1)
}

func TestQueriesOnUnknownPairsCreateNoLocks(t *testing.T) {
	a, _ := newSeededAMM(t)
	a.mu.RLock()
	before := len(a.locks)
	a.mu.RUnlock()

	for i := 0; i < 100; i++ {
		tokenX, tokenY := "ETH", fmt.Sprintf("T%d", i)
		_, err := a.Pool(tokenX, tokenY)
		require.ErrorIs(t, err, ErrPoolNotFound)
		_, err = a.PoolInfo(tokenX, tokenY)
		require.ErrorIs(t, err, ErrPoolNotFound)
		_, _, err = a.GetAmountOut(tokenX, tokenY, d("1"))
		require.ErrorIs(t, err, ErrPoolNotFound)
		require.True(t, a.CalculatePriceImpact(tokenX, tokenY, d("1")).IsZero())
		require.True(t, a.Shares("alice", tokenX, tokenY).IsZero())
		_, _, err = a.Swap(tokenX, tokenY, d("1"), DefaultSlippageTolerance)
		require.ErrorIs(t, err, ErrPoolNotFound)
		_, err = a.AddLiquidity("alice", tokenX, tokenY, d("1"), d("1"))
		require.ErrorIs(t, err, ErrPoolNotFound)
		_, _, err = a.RemoveLiquidity("alice", tokenX, tokenY, d("1"))
		require.ErrorIs(t, err, ErrPoolNotFound)
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	require.Equal(t, before, len(a.locks))
}
