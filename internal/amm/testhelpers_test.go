package amm

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func requireDecEqual(t testing.TB, want, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	require.Truef(t, want.Equal(got), "want %s, got %s %v", want, got, msgAndArgs)
}

// newSeededAMM returns a registry with a 10 ETH / 20000 USDC pool funded by alice.
func newSeededAMM(t testing.TB, opts ...Option) (*AMM, decimal.Decimal) {
	t.Helper()
	a, err := New(opts...)
	require.NoError(t, err)
	_, err = a.CreatePool("ETH", "USDC")
	require.NoError(t, err)
	shares, err := a.AddLiquidity("alice", "ETH", "USDC", d("10"), d("20000"))
	require.NoError(t, err)
	return a, shares
}
