package model

// PoolRecord is the stored form of a pool and its liquidity positions.
type PoolRecord struct {
	TokenA      string           `json:"token_a"`
	TokenB      string           `json:"token_b"`
	ReserveA    string           `json:"reserve_a"`
	ReserveB    string           `json:"reserve_b"`
	TotalShares string           `json:"total_shares"`
	FeeRate     string           `json:"fee_rate"`
	Positions   []PositionRecord `json:"positions"`
}

// PositionRecord is a provider's share balance in a pool.
type PositionRecord struct {
	Provider string `json:"provider"`
	Shares   string `json:"shares"`
}
