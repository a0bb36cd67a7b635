package amm

import (
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

// Position is one provider's share balance in a pool.
type Position struct {
	Provider string
	Shares   decimal.Decimal
}

// PoolState is a pool together with its liquidity positions.
type PoolState struct {
	Pool      Pool
	Positions []Position
}

// Snapshot is a deep copy of registry state. Pools are sorted by id and
// positions by provider, so equal registries produce equal snapshots.
type Snapshot struct {
	Pools []PoolState
}

// Snapshot copies the state of every pool. Each pool is read under its lock;
// all pool locks are held together, so the copy is consistent across pools.
// Pools created while the snapshot is taken may be omitted.
func (a *AMM) Snapshot() Snapshot {
	ids := a.Pools()
	locks := make([]*sync.Mutex, 0, len(ids))
	for _, id := range ids {
		l := a.lockFor(id)
		l.Lock()
		locks = append(locks, l)
	}
	defer func() {
		for i := len(locks) - 1; i >= 0; i-- {
			locks[i].Unlock()
		}
	}()

	snap := Snapshot{Pools: make([]PoolState, 0, len(ids))}
	for _, id := range ids {
		pool, positions, ok := a.lookup(id)
		if !ok {
			continue
		}
		state := PoolState{Pool: *pool.clone(), Positions: make([]Position, 0, len(positions))}
		for provider, shares := range positions {
			state.Positions = append(state.Positions, Position{Provider: provider, Shares: shares})
		}
		sort.Slice(state.Positions, func(i, j int) bool {
			return state.Positions[i].Provider < state.Positions[j].Provider
		})
		snap.Pools = append(snap.Pools, state)
	}
	return snap
}

// Restore builds a registry from a snapshot. The snapshot must satisfy the
// pool invariants or ErrInvalidSnapshot is returned.
func Restore(snap Snapshot, opts ...Option) (*AMM, error) {
	a, err := New(opts...)
	if err != nil {
		return nil, err
	}

	for _, state := range snap.Pools {
		p := state.Pool
		id := NewPoolID(p.TokenA, p.TokenB)
		if id.TokenA != p.TokenA || p.TokenA == p.TokenB {
			return nil, ErrInvalidSnapshot.Wrapf("pool %s-%s is not canonically ordered", p.TokenA, p.TokenB)
		}
		if _, ok := a.pools[id]; ok {
			return nil, ErrInvalidSnapshot.Wrapf("duplicate pool %s", id)
		}
		if err := validateFeeRate(p.FeeRate); err != nil {
			return nil, ErrInvalidSnapshot.Wrapf("pool %s: %v", id, err)
		}

		positions := make(map[string]decimal.Decimal, len(state.Positions))
		for _, pos := range state.Positions {
			if pos.Shares.Sign() <= 0 {
				return nil, ErrInvalidSnapshot.Wrapf("pool %s: provider %s holds %s shares", id, pos.Provider, pos.Shares)
			}
			if _, dup := positions[pos.Provider]; dup {
				return nil, ErrInvalidSnapshot.Wrapf("pool %s: duplicate provider %s", id, pos.Provider)
			}
			positions[pos.Provider] = pos.Shares
		}

		pool := p.clone()
		if err := checkPool(pool, positions); err != nil {
			return nil, ErrInvalidSnapshot.Wrap(err.Error())
		}
		a.pools[id] = pool
		a.positions[id] = positions
	}
	return a, nil
}
