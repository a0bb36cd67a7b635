package model

import (
	"encoding/json"
)

// Operation names used in the journal.
const (
	OpCreatePool      = "create_pool"
	OpAddLiquidity    = "add_liquidity"
	OpRemoveLiquidity = "remove_liquidity"
	OpSwap            = "swap"
)

// OperationRecord is one committed AMM operation in the journal. Quantities
// are decimal strings; amounts A/B follow the pool's canonical token order.
// Reserve and share fields hold the pool state after the operation.
type OperationRecord struct {
	Seq               uint64 `json:"seq"`
	Op                string `json:"op"`
	TokenA            string `json:"token_a"`
	TokenB            string `json:"token_b"`
	Provider          string `json:"provider,omitempty"`
	AmountA           string `json:"amount_a,omitempty"`
	AmountB           string `json:"amount_b,omitempty"`
	Shares            string `json:"shares,omitempty"`
	TokenIn           string `json:"token_in,omitempty"`
	TokenOut          string `json:"token_out,omitempty"`
	AmountIn          string `json:"amount_in,omitempty"`
	AmountOut         string `json:"amount_out,omitempty"`
	PriceImpact       string `json:"price_impact,omitempty"`
	SlippageTolerance string `json:"slippage_tolerance,omitempty"`
	FeeRate           string `json:"fee_rate"`
	ReserveA          string `json:"reserve_a"`
	ReserveB          string `json:"reserve_b"`
	TotalShares       string `json:"total_shares"`
	RecordedAt        string `json:"recorded_at"`
}

// MarshalJSON ensures OperationRecord is encoded with stable field names.
func (r OperationRecord) MarshalJSON() ([]byte, error) {
	type Alias OperationRecord
	return json.Marshal(Alias(r))
}

// UnmarshalJSON decodes an OperationRecord from JSON.
func (r *OperationRecord) UnmarshalJSON(data []byte) error {
	type Alias OperationRecord
	var a Alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*r = OperationRecord(a)
	return nil
}
