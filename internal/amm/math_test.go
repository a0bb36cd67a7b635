package amm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSqrtExactSquares(t *testing.T) {
	requireDecEqual(t, d("0"), sqrt(d("0")))
	requireDecEqual(t, d("1"), sqrt(d("1")))
	requireDecEqual(t, d("12"), sqrt(d("144")))
	requireDecEqual(t, d("0.5"), sqrt(d("0.25")))
	requireDecEqual(t, d("20000"), sqrt(d("400000000")))
}

func TestSqrtTruncates(t *testing.T) {
	root := sqrt(d("200000"))
	require.Equal(t, "447.21", root.StringFixed(2))
	require.LessOrEqual(t, int(-root.Exponent()), int(Precision))

	// root is the largest value at Precision digits whose square stays below x
	require.True(t, root.Mul(root).LessThanOrEqual(d("200000")))
	next := root.Add(d("1").Shift(-Precision))
	require.True(t, next.Mul(next).GreaterThan(d("200000")))
}

func TestQuoTruncatesTowardZero(t *testing.T) {
	requireDecEqual(t, d("0.3333333333333333333333333333"), quo(d("1"), d("3")))
	requireDecEqual(t, d("0.6666666666666666666666666666"), quo(d("2"), d("3")))
	requireDecEqual(t, d("2000"), quo(d("20000"), d("10")))
}
