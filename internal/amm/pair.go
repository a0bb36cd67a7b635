package amm

// PoolID identifies a pool by its canonically ordered token pair.
type PoolID struct {
	TokenA string
	TokenB string
}

// NewPoolID returns the canonical id for an unordered token pair.
func NewPoolID(tokenX, tokenY string) PoolID {
	a, b, _ := Canonicalize(tokenX, tokenY)
	return PoolID{TokenA: a, TokenB: b}
}

// String renders the id as "tokenA-tokenB".
func (id PoolID) String() string {
	return id.TokenA + "-" + id.TokenB
}

// Canonicalize orders a token pair lexicographically. swapped reports whether
// the caller's order was reversed, so amount arguments can be reordered to match.
func Canonicalize(tokenX, tokenY string) (low, high string, swapped bool) {
	if tokenX > tokenY {
		return tokenY, tokenX, true
	}
	return tokenX, tokenY, false
}

func orderAmounts[T any](x, y T, swapped bool) (T, T) {
	if swapped {
		return y, x
	}
	return x, y
}
