package journal

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"ammledger/internal/amm"
	"ammledger/internal/model"
	"ammledger/internal/storage"
)

// ErrDivergence reports a journal record whose recomputed result differs
// from the recorded one.
var ErrDivergence = errors.New("journal divergence")

// ReplayConfig holds runtime settings for a Replayer.
type ReplayConfig struct {
	JournalPath       string
	CheckpointPath    string
	CheckpointEnabled bool
	// SaveEvery saves the snapshot and checkpoint after this many applied
	// records. Zero saves only at the end.
	SaveEvery int
}

// Replayer rebuilds registry state from a snapshot and a journal.
type Replayer struct {
	cfg        ReplayConfig
	snapshots  storage.SnapshotStore
	logger     *zap.Logger
	checkpoint *CheckpointStore
}

// ReplayResult is the outcome of a replay.
type ReplayResult struct {
	AMM     *amm.AMM
	FromSeq uint64
	LastSeq uint64
	Applied int
}

// NewReplayer builds a Replayer. snapshots may be nil, in which case every
// replay starts from an empty registry and only the checkpoint is saved.
func NewReplayer(cfg ReplayConfig, snapshots storage.SnapshotStore, logger *zap.Logger) *Replayer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Replayer{
		cfg:        cfg,
		snapshots:  snapshots,
		logger:     logger,
		checkpoint: NewCheckpointStore(cfg.CheckpointPath, cfg.CheckpointEnabled),
	}
}

// Run restores the stored snapshot, applies every journal record after its
// sequence, and saves the resulting state. opts configure the rebuilt
// registry, typically with loggers and observers.
func (r *Replayer) Run(ctx context.Context, opts ...amm.Option) (ReplayResult, error) {
	if r.cfg.JournalPath == "" {
		return ReplayResult{}, fmt.Errorf("journal path is required")
	}

	registry, from, err := r.restore(ctx, opts)
	if err != nil {
		return ReplayResult{}, err
	}

	cp, ok, err := r.checkpoint.Load()
	if err != nil {
		return ReplayResult{}, err
	}
	if ok && r.snapshots != nil && cp.LastAppliedSeq > from {
		return ReplayResult{}, fmt.Errorf("checkpoint at seq %d is ahead of snapshot at seq %d", cp.LastAppliedSeq, from)
	}
	if from > 0 {
		r.logger.Info("resume from snapshot", zap.Uint64("last_applied", from))
	}

	res := ReplayResult{AMM: registry, FromSeq: from, LastSeq: from}
	sinceSave := 0
	err = storage.ReadJsonl(r.cfg.JournalPath, func(rec model.OperationRecord) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if rec.Seq <= res.LastSeq {
			return nil
		}
		if rec.Seq != res.LastSeq+1 {
			return fmt.Errorf("journal gap: expected seq %d, got %d", res.LastSeq+1, rec.Seq)
		}
		if err := Apply(registry, rec); err != nil {
			return fmt.Errorf("apply seq %d: %w", rec.Seq, err)
		}
		res.LastSeq = rec.Seq
		res.Applied++

		sinceSave++
		if r.cfg.SaveEvery > 0 && sinceSave >= r.cfg.SaveEvery {
			sinceSave = 0
			return r.save(ctx, registry, res.LastSeq)
		}
		return nil
	})
	if err != nil {
		return res, err
	}

	if res.Applied == 0 {
		r.logger.Info("nothing to replay", zap.Uint64("last_applied", res.LastSeq))
		return res, nil
	}
	if err := r.save(ctx, registry, res.LastSeq); err != nil {
		return res, err
	}
	r.logger.Info("replay complete",
		zap.Int("applied", res.Applied),
		zap.Uint64("from_seq", res.FromSeq),
		zap.Uint64("last_seq", res.LastSeq),
	)
	return res, nil
}

func (r *Replayer) restore(ctx context.Context, opts []amm.Option) (*amm.AMM, uint64, error) {
	if r.snapshots == nil {
		registry, err := amm.New(opts...)
		return registry, 0, err
	}
	rec, ok, err := r.snapshots.LoadSnapshot(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("load snapshot: %w", err)
	}
	if !ok {
		registry, err := amm.New(opts...)
		return registry, 0, err
	}
	snap, err := SnapshotFromRecord(rec)
	if err != nil {
		return nil, 0, fmt.Errorf("decode snapshot: %w", err)
	}
	registry, err := amm.Restore(snap, opts...)
	if err != nil {
		return nil, 0, fmt.Errorf("restore snapshot: %w", err)
	}
	return registry, rec.Seq, nil
}

// save writes the snapshot before the checkpoint, so a checkpoint never
// runs ahead of the state it describes.
func (r *Replayer) save(ctx context.Context, registry *amm.AMM, seq uint64) error {
	if r.snapshots != nil {
		if err := r.snapshots.SaveSnapshot(ctx, SnapshotToRecord(seq, registry.Snapshot())); err != nil {
			return fmt.Errorf("save snapshot: %w", err)
		}
	}
	if err := r.checkpoint.Save(seq); err != nil {
		return err
	}
	r.logger.Debug("replay state saved", zap.Uint64("last_applied", seq))
	return nil
}

// Apply executes one journal record against registry and checks that the
// recomputed results and resulting pool state match the record.
func Apply(registry *amm.AMM, rec model.OperationRecord) error {
	switch rec.Op {
	case model.OpCreatePool:
		fee, err := parseDec("fee_rate", rec.FeeRate)
		if err != nil {
			return err
		}
		if _, err := registry.CreatePoolWithFee(rec.TokenA, rec.TokenB, fee); err != nil {
			return err
		}
	case model.OpAddLiquidity:
		amountA, err := parseDec("amount_a", rec.AmountA)
		if err != nil {
			return err
		}
		amountB, err := parseDec("amount_b", rec.AmountB)
		if err != nil {
			return err
		}
		shares, err := registry.AddLiquidity(rec.Provider, rec.TokenA, rec.TokenB, amountA, amountB)
		if err != nil {
			return err
		}
		if err := expect("shares", rec.Shares, shares); err != nil {
			return err
		}
	case model.OpRemoveLiquidity:
		shares, err := parseDec("shares", rec.Shares)
		if err != nil {
			return err
		}
		amountA, amountB, err := registry.RemoveLiquidity(rec.Provider, rec.TokenA, rec.TokenB, shares)
		if err != nil {
			return err
		}
		if err := expect("amount_a", rec.AmountA, amountA); err != nil {
			return err
		}
		if err := expect("amount_b", rec.AmountB, amountB); err != nil {
			return err
		}
	case model.OpSwap:
		amountIn, err := parseDec("amount_in", rec.AmountIn)
		if err != nil {
			return err
		}
		tolerance, err := parseDec("slippage_tolerance", rec.SlippageTolerance)
		if err != nil {
			return err
		}
		amountOut, impact, err := registry.Swap(rec.TokenIn, rec.TokenOut, amountIn, tolerance)
		if err != nil {
			return err
		}
		if err := expect("amount_out", rec.AmountOut, amountOut); err != nil {
			return err
		}
		if err := expect("price_impact", rec.PriceImpact, impact); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown op %q", rec.Op)
	}
	return expectPool(registry, rec)
}

func expectPool(registry *amm.AMM, rec model.OperationRecord) error {
	pool, err := registry.Pool(rec.TokenA, rec.TokenB)
	if err != nil {
		return err
	}
	if err := expect("reserve_a", rec.ReserveA, pool.ReserveA); err != nil {
		return err
	}
	if err := expect("reserve_b", rec.ReserveB, pool.ReserveB); err != nil {
		return err
	}
	if err := expect("total_shares", rec.TotalShares, pool.TotalShares); err != nil {
		return err
	}
	return expect("fee_rate", rec.FeeRate, pool.FeeRate)
}

func expect(field, recorded string, got decimal.Decimal) error {
	want, err := parseDec(field, recorded)
	if err != nil {
		return err
	}
	if !want.Equal(got) {
		return fmt.Errorf("%w: %s recorded %s, recomputed %s", ErrDivergence, field, want, got)
	}
	return nil
}
