// Package amm implements a constant-product automated market maker: a registry
// of two-token liquidity pools with proportional LP shares, fee-adjusted swaps
// and a price-impact slippage guard. All quantities are exact decimals.
package amm

import (
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultSlippageTolerance is the conventional maximum price impact for Swap (1%).
var DefaultSlippageTolerance = decimal.RequireFromString("0.01")

// AMM is the pool registry. Mutations of one pool are serialized by a
// per-pool lock; operations on different pools run concurrently.
type AMM struct {
	mu        sync.RWMutex
	pools     map[PoolID]*Pool
	positions map[PoolID]map[string]decimal.Decimal
	locks     map[PoolID]*sync.Mutex

	feeRate   decimal.Decimal
	logger    *zap.Logger
	observers []Observer
}

// Option configures an AMM.
type Option func(*AMM) error

// WithFeeRate sets the fee rate of pools created afterwards.
func WithFeeRate(rate decimal.Decimal) Option {
	return func(a *AMM) error {
		if err := validateFeeRate(rate); err != nil {
			return err
		}
		a.feeRate = rate
		return nil
	}
}

// WithLogger sets the logger. A nil logger disables logging.
func WithLogger(logger *zap.Logger) Option {
	return func(a *AMM) error {
		if logger == nil {
			logger = zap.NewNop()
		}
		a.logger = logger
		return nil
	}
}

// WithObserver registers an observer for operation events.
func WithObserver(o Observer) Option {
	return func(a *AMM) error {
		if o != nil {
			a.observers = append(a.observers, o)
		}
		return nil
	}
}

// New builds an empty registry.
func New(opts ...Option) (*AMM, error) {
	a := &AMM{
		pools:     make(map[PoolID]*Pool),
		positions: make(map[PoolID]map[string]decimal.Decimal),
		locks:     make(map[PoolID]*sync.Mutex),
		feeRate:   DefaultFeeRate,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func validateFeeRate(rate decimal.Decimal) error {
	if rate.Sign() < 0 || rate.Cmp(one) >= 0 {
		return ErrInvalidFeeRate.Wrapf("fee rate %s outside [0, 1)", rate)
	}
	return nil
}

// lockFor returns the lock of a pool id, creating it on first use. Locks are
// never removed.
func (a *AMM) lockFor(id PoolID) *sync.Mutex {
	a.mu.RLock()
	l, ok := a.locks[id]
	a.mu.RUnlock()
	if ok {
		return l
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if l, ok = a.locks[id]; !ok {
		l = &sync.Mutex{}
		a.locks[id] = l
	}
	return l
}

// lookup returns the pool and its positions. Callers hold the pool lock.
func (a *AMM) lookup(id PoolID) (*Pool, map[string]decimal.Decimal, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	pool, ok := a.pools[id]
	if !ok {
		return nil, nil, false
	}
	return pool, a.positions[id], true
}

// acquire locks an existing pool and returns it with its positions. ok is
// false, and no lock is taken or created, when the pool does not exist.
func (a *AMM) acquire(id PoolID) (*Pool, map[string]decimal.Decimal, func(), bool) {
	a.mu.RLock()
	_, exists := a.pools[id]
	a.mu.RUnlock()
	if !exists {
		return nil, nil, nil, false
	}

	lock := a.lockFor(id)
	lock.Lock()
	pool, positions, _ := a.lookup(id)
	return pool, positions, lock.Unlock, true
}

func (a *AMM) emit(e Event) {
	for _, o := range a.observers {
		o.Observe(e)
	}
}

func (a *AMM) reject(e Event, err error) error {
	e.Err = err
	a.logger.Debug("operation rejected",
		zap.String("op", string(e.Kind)),
		zap.String("pool", e.Pool.String()),
		zap.Error(err),
	)
	a.emit(e)
	return err
}

func withPoolState(e Event, pool *Pool) Event {
	e.ReserveA = pool.ReserveA
	e.ReserveB = pool.ReserveB
	e.TotalShares = pool.TotalShares
	e.FeeRate = pool.FeeRate
	return e
}

// CreatePool registers an empty pool for an unordered token pair, charging
// the registry's fee rate.
func (a *AMM) CreatePool(tokenX, tokenY string) (PoolID, error) {
	return a.createPool(tokenX, tokenY, a.feeRate)
}

// CreatePoolWithFee is CreatePool with an explicit fee rate for the pool.
func (a *AMM) CreatePoolWithFee(tokenX, tokenY string, feeRate decimal.Decimal) (PoolID, error) {
	if err := validateFeeRate(feeRate); err != nil {
		return PoolID{}, a.reject(Event{Kind: EventPoolCreated, Pool: NewPoolID(tokenX, tokenY), FeeRate: feeRate}, err)
	}
	return a.createPool(tokenX, tokenY, feeRate)
}

func (a *AMM) createPool(tokenX, tokenY string, feeRate decimal.Decimal) (PoolID, error) {
	id := NewPoolID(tokenX, tokenY)
	ev := Event{Kind: EventPoolCreated, Pool: id, FeeRate: feeRate}
	if tokenX == tokenY {
		return PoolID{}, a.reject(ev, ErrIdenticalTokens.Wrapf("%s/%s", tokenX, tokenY))
	}

	lock := a.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	a.mu.Lock()
	if _, ok := a.pools[id]; ok {
		a.mu.Unlock()
		return PoolID{}, a.reject(ev, ErrPoolAlreadyExists.Wrapf("pool %s", id))
	}
	pool := newPool(id, feeRate)
	a.pools[id] = pool
	a.positions[id] = make(map[string]decimal.Decimal)
	a.mu.Unlock()

	a.logger.Info("pool created", zap.String("pool", id.String()), zap.String("fee_rate", pool.FeeRate.String()))
	a.emit(withPoolState(ev, pool))
	return id, nil
}

// AddLiquidity deposits both tokens in full and credits the provider with
// shares. The first deposit mints sqrt(amountA*amountB); later deposits mint
// the smaller of the two proportional share amounts, the excess of the other
// token stays in the pool. Later shares carry enough digits that a
// proportional deposit withdraws back exactly.
func (a *AMM) AddLiquidity(provider, tokenX, tokenY string, amountX, amountY decimal.Decimal) (decimal.Decimal, error) {
	low, high, swapped := Canonicalize(tokenX, tokenY)
	id := PoolID{TokenA: low, TokenB: high}
	amountA, amountB := orderAmounts(amountX, amountY, swapped)
	ev := Event{Kind: EventLiquidityAdded, Pool: id, Provider: provider, AmountA: amountA, AmountB: amountB}

	pool, positions, unlock, ok := a.acquire(id)
	if !ok {
		return zero, a.reject(ev, ErrPoolNotFound.Wrapf("pool %s", id))
	}
	defer unlock()
	if amountA.Sign() <= 0 || amountB.Sign() <= 0 {
		return zero, a.reject(ev, ErrInvalidAmount.Wrapf("amounts must be positive: %s, %s", amountA, amountB))
	}

	var shares decimal.Decimal
	if pool.TotalShares.IsZero() {
		shares = sqrt(amountA.Mul(amountB))
	} else {
		places := mintPrecision(pool.ReserveA, pool.ReserveB, pool.TotalShares)
		shares = minDec(
			quoAt(amountA.Mul(pool.TotalShares), pool.ReserveA, places),
			quoAt(amountB.Mul(pool.TotalShares), pool.ReserveB, places),
		)
	}
	if shares.Sign() <= 0 {
		return zero, a.reject(ev, ErrInvalidAmount.Wrapf("deposit of %s, %s mints no shares", amountA, amountB))
	}

	pool.ReserveA = pool.ReserveA.Add(amountA)
	pool.ReserveB = pool.ReserveB.Add(amountB)
	pool.TotalShares = pool.TotalShares.Add(shares)
	positions[provider] = positions[provider].Add(shares)

	a.logger.Info("liquidity added",
		zap.String("pool", id.String()),
		zap.String("provider", provider),
		zap.String("amount_a", amountA.String()),
		zap.String("amount_b", amountB.String()),
		zap.String("shares", shares.String()),
	)
	ev.Shares = shares
	a.emit(withPoolState(ev, pool))
	return shares, nil
}

// RemoveLiquidity burns shares of the provider and returns the proportional
// reserves, in canonical order (amount of TokenA, amount of TokenB).
func (a *AMM) RemoveLiquidity(provider, tokenX, tokenY string, shares decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	id := NewPoolID(tokenX, tokenY)
	ev := Event{Kind: EventLiquidityRemoved, Pool: id, Provider: provider, Shares: shares}

	pool, positions, unlock, ok := a.acquire(id)
	if !ok {
		return zero, zero, a.reject(ev, ErrPoolNotFound.Wrapf("pool %s", id))
	}
	defer unlock()
	if shares.Sign() <= 0 {
		return zero, zero, a.reject(ev, ErrInvalidAmount.Wrapf("shares must be positive: %s", shares))
	}
	held, ok := positions[provider]
	if !ok {
		return zero, zero, a.reject(ev, ErrNoPosition.Wrapf("provider %s in pool %s", provider, id))
	}
	if shares.Cmp(held) > 0 {
		return zero, zero, a.reject(ev, ErrInsufficientShares.Wrapf("%s > %s", shares, held))
	}

	var amountA, amountB decimal.Decimal
	if shares.Equal(pool.TotalShares) {
		amountA, amountB = pool.ReserveA, pool.ReserveB
	} else {
		amountA = payout(pool.ReserveA, shares, pool.TotalShares)
		amountB = payout(pool.ReserveB, shares, pool.TotalShares)
	}

	pool.ReserveA = pool.ReserveA.Sub(amountA)
	pool.ReserveB = pool.ReserveB.Sub(amountB)
	pool.TotalShares = pool.TotalShares.Sub(shares)
	if remaining := held.Sub(shares); remaining.IsZero() {
		delete(positions, provider)
	} else {
		positions[provider] = remaining
	}

	a.logger.Info("liquidity removed",
		zap.String("pool", id.String()),
		zap.String("provider", provider),
		zap.String("shares", shares.String()),
		zap.String("amount_a", amountA.String()),
		zap.String("amount_b", amountB.String()),
	)
	ev.AmountA, ev.AmountB = amountA, amountB
	a.emit(withPoolState(ev, pool))
	return amountA, amountB, nil
}

// Swap trades amountIn of tokenIn for tokenOut. The trade is priced first and
// rejected with ErrSlippageExceeded, leaving reserves untouched, when its price
// impact exceeds slippageTolerance. Callers without a preference pass
// DefaultSlippageTolerance.
func (a *AMM) Swap(tokenIn, tokenOut string, amountIn, slippageTolerance decimal.Decimal) (amountOut, priceImpact decimal.Decimal, err error) {
	id := NewPoolID(tokenIn, tokenOut)
	ev := Event{
		Kind:              EventSwap,
		Pool:              id,
		TokenIn:           tokenIn,
		TokenOut:          tokenOut,
		AmountIn:          amountIn,
		SlippageTolerance: slippageTolerance,
	}
	if amountIn.Sign() <= 0 {
		return zero, zero, a.reject(ev, ErrInvalidAmount.Wrapf("input amount must be positive: %s", amountIn))
	}
	if slippageTolerance.Sign() < 0 {
		return zero, zero, a.reject(ev, ErrInvalidAmount.Wrapf("slippage tolerance must not be negative: %s", slippageTolerance))
	}

	pool, _, unlock, ok := a.acquire(id)
	if !ok {
		return zero, zero, a.reject(ev, ErrPoolNotFound.Wrapf("no pool for %s/%s", tokenIn, tokenOut))
	}
	defer unlock()
	reserveIn, reserveOut := pool.reserves(tokenIn)
	if reserveIn.IsZero() || reserveOut.IsZero() {
		return zero, zero, a.reject(ev, ErrEmptyPool.Wrapf("pool %s", id))
	}

	q := quoteSwap(amountIn, reserveIn, reserveOut, pool.FeeRate)
	ev.AmountOut, ev.PriceImpact = q.AmountOut, q.PriceImpact
	if q.PriceImpact.Cmp(slippageTolerance) > 0 {
		return zero, zero, a.reject(ev, ErrSlippageExceeded.Wrapf("impact %s > tolerance %s", q.PriceImpact, slippageTolerance))
	}

	if tokenIn == pool.TokenA {
		pool.ReserveA = pool.ReserveA.Add(amountIn)
		pool.ReserveB = pool.ReserveB.Sub(q.AmountOut)
	} else {
		pool.ReserveB = pool.ReserveB.Add(amountIn)
		pool.ReserveA = pool.ReserveA.Sub(q.AmountOut)
	}

	a.logger.Info("swap",
		zap.String("pool", id.String()),
		zap.String("token_in", tokenIn),
		zap.String("amount_in", amountIn.String()),
		zap.String("token_out", tokenOut),
		zap.String("amount_out", q.AmountOut.String()),
		zap.String("price_impact", q.PriceImpact.String()),
	)
	a.emit(withPoolState(ev, pool))
	return q.AmountOut, q.PriceImpact, nil
}

// CalculatePriceImpact prices a hypothetical swap without executing it. It
// returns 0 when no pool exists for the pair and 1 when either reserve is zero.
func (a *AMM) CalculatePriceImpact(tokenIn, tokenOut string, amountIn decimal.Decimal) decimal.Decimal {
	id := NewPoolID(tokenIn, tokenOut)

	pool, _, unlock, ok := a.acquire(id)
	if !ok {
		return zero
	}
	defer unlock()
	reserveIn, reserveOut := pool.reserves(tokenIn)
	if reserveIn.IsZero() || reserveOut.IsZero() {
		return one
	}
	if amountIn.Sign() <= 0 {
		return zero
	}
	return quoteSwap(amountIn, reserveIn, reserveOut, pool.FeeRate).PriceImpact
}

// GetAmountOut returns the output and price impact Swap would produce,
// without the slippage check and without mutating the pool.
func (a *AMM) GetAmountOut(tokenIn, tokenOut string, amountIn decimal.Decimal) (amountOut, priceImpact decimal.Decimal, err error) {
	if amountIn.Sign() <= 0 {
		return zero, zero, ErrInvalidAmount.Wrapf("input amount must be positive: %s", amountIn)
	}
	id := NewPoolID(tokenIn, tokenOut)

	pool, _, unlock, ok := a.acquire(id)
	if !ok {
		return zero, zero, ErrPoolNotFound.Wrapf("no pool for %s/%s", tokenIn, tokenOut)
	}
	defer unlock()
	reserveIn, reserveOut := pool.reserves(tokenIn)
	if reserveIn.IsZero() || reserveOut.IsZero() {
		return zero, zero, ErrEmptyPool.Wrapf("pool %s", id)
	}
	q := quoteSwap(amountIn, reserveIn, reserveOut, pool.FeeRate)
	return q.AmountOut, q.PriceImpact, nil
}

// Pool returns a copy of the pool for an unordered token pair.
func (a *AMM) Pool(tokenX, tokenY string) (Pool, error) {
	id := NewPoolID(tokenX, tokenY)

	pool, _, unlock, ok := a.acquire(id)
	if !ok {
		return Pool{}, ErrPoolNotFound.Wrapf("pool %s", id)
	}
	defer unlock()
	return *pool.clone(), nil
}

// Shares returns the provider's share balance in a pool. A provider without a
// position, or a pair without a pool, holds zero.
func (a *AMM) Shares(provider, tokenX, tokenY string) decimal.Decimal {
	id := NewPoolID(tokenX, tokenY)

	_, positions, unlock, ok := a.acquire(id)
	if !ok {
		return zero
	}
	defer unlock()
	return positions[provider]
}

// Pools lists the registered pool ids in canonical order.
func (a *AMM) Pools() []PoolID {
	a.mu.RLock()
	ids := make([]PoolID, 0, len(a.pools))
	for id := range a.pools {
		ids = append(ids, id)
	}
	a.mu.RUnlock()

	sortPoolIDs(ids)
	return ids
}

func sortPoolIDs(ids []PoolID) {
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].TokenA != ids[j].TokenA {
			return ids[i].TokenA < ids[j].TokenA
		}
		return ids[i].TokenB < ids[j].TokenB
	})
}
