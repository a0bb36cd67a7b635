package journal

import (
	"fmt"

	"github.com/shopspring/decimal"

	"ammledger/internal/amm"
	"ammledger/internal/model"
)

func decString(d decimal.Decimal) string {
	return d.String()
}

func parseDec(field, value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse %s %q: %w", field, value, err)
	}
	return d, nil
}

// RecordFromEvent converts a committed event into a journal record.
func RecordFromEvent(seq uint64, e amm.Event, recordedAt string) model.OperationRecord {
	rec := model.OperationRecord{
		Seq:         seq,
		Op:          string(e.Kind),
		TokenA:      e.Pool.TokenA,
		TokenB:      e.Pool.TokenB,
		Provider:    e.Provider,
		TokenIn:     e.TokenIn,
		TokenOut:    e.TokenOut,
		FeeRate:     decString(e.FeeRate),
		ReserveA:    decString(e.ReserveA),
		ReserveB:    decString(e.ReserveB),
		TotalShares: decString(e.TotalShares),
		RecordedAt:  recordedAt,
	}
	switch e.Kind {
	case amm.EventLiquidityAdded, amm.EventLiquidityRemoved:
		rec.AmountA = decString(e.AmountA)
		rec.AmountB = decString(e.AmountB)
		rec.Shares = decString(e.Shares)
	case amm.EventSwap:
		rec.AmountIn = decString(e.AmountIn)
		rec.AmountOut = decString(e.AmountOut)
		rec.PriceImpact = decString(e.PriceImpact)
		rec.SlippageTolerance = decString(e.SlippageTolerance)
	}
	return rec
}

// SnapshotToRecord converts registry state as of seq into its stored form.
func SnapshotToRecord(seq uint64, snap amm.Snapshot) model.SnapshotRecord {
	rec := model.SnapshotRecord{Seq: seq, Pools: make([]model.PoolRecord, 0, len(snap.Pools))}
	for _, state := range snap.Pools {
		p := state.Pool
		pr := model.PoolRecord{
			TokenA:      p.TokenA,
			TokenB:      p.TokenB,
			ReserveA:    decString(p.ReserveA),
			ReserveB:    decString(p.ReserveB),
			TotalShares: decString(p.TotalShares),
			FeeRate:     decString(p.FeeRate),
			Positions:   make([]model.PositionRecord, 0, len(state.Positions)),
		}
		for _, pos := range state.Positions {
			pr.Positions = append(pr.Positions, model.PositionRecord{Provider: pos.Provider, Shares: decString(pos.Shares)})
		}
		rec.Pools = append(rec.Pools, pr)
	}
	return rec
}

// SnapshotFromRecord parses a stored snapshot. Consistency is checked by
// amm.Restore.
func SnapshotFromRecord(rec model.SnapshotRecord) (amm.Snapshot, error) {
	snap := amm.Snapshot{Pools: make([]amm.PoolState, 0, len(rec.Pools))}
	for _, pr := range rec.Pools {
		var (
			state amm.PoolState
			err   error
		)
		state.Pool.TokenA = pr.TokenA
		state.Pool.TokenB = pr.TokenB
		if state.Pool.ReserveA, err = parseDec("reserve_a", pr.ReserveA); err != nil {
			return amm.Snapshot{}, err
		}
		if state.Pool.ReserveB, err = parseDec("reserve_b", pr.ReserveB); err != nil {
			return amm.Snapshot{}, err
		}
		if state.Pool.TotalShares, err = parseDec("total_shares", pr.TotalShares); err != nil {
			return amm.Snapshot{}, err
		}
		if state.Pool.FeeRate, err = parseDec("fee_rate", pr.FeeRate); err != nil {
			return amm.Snapshot{}, err
		}
		for _, pos := range pr.Positions {
			shares, err := parseDec("shares", pos.Shares)
			if err != nil {
				return amm.Snapshot{}, err
			}
			state.Positions = append(state.Positions, amm.Position{Provider: pos.Provider, Shares: shares})
		}
		snap.Pools = append(snap.Pools, state)
	}
	return snap, nil
}
