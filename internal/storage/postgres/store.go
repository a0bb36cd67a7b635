package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"ammledger/internal/model"
)

// SnapshotName is the replay_state row that tracks the registry snapshot.
const SnapshotName = "registry"

const schema = `
CREATE TABLE IF NOT EXISTS amm_pools (
	token_a      TEXT NOT NULL,
	token_b      TEXT NOT NULL,
	reserve_a    NUMERIC NOT NULL,
	reserve_b    NUMERIC NOT NULL,
	total_shares NUMERIC NOT NULL,
	fee_rate     NUMERIC NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (token_a, token_b)
);
CREATE TABLE IF NOT EXISTS amm_positions (
	token_a  TEXT NOT NULL,
	token_b  TEXT NOT NULL,
	provider TEXT NOT NULL,
	shares   NUMERIC NOT NULL,
	PRIMARY KEY (token_a, token_b, provider)
);
CREATE TABLE IF NOT EXISTS replay_state (
	name       TEXT PRIMARY KEY,
	last_seq   BIGINT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Store provides Postgres persistence for registry snapshots.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the snapshot tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// SaveSnapshot replaces the stored registry with snap in one transaction.
func (s *Store) SaveSnapshot(ctx context.Context, snap model.SnapshotRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM amm_positions`); err != nil {
		return fmt.Errorf("clear positions: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM amm_pools`); err != nil {
		return fmt.Errorf("clear pools: %w", err)
	}

	batch := &pgx.Batch{}
	queued := 0
	for _, pool := range snap.Pools {
		batch.Queue(`
			INSERT INTO amm_pools (
				token_a, token_b, reserve_a, reserve_b, total_shares, fee_rate, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, now())
			ON CONFLICT (token_a, token_b)
			DO UPDATE SET
				reserve_a = EXCLUDED.reserve_a,
				reserve_b = EXCLUDED.reserve_b,
				total_shares = EXCLUDED.total_shares,
				fee_rate = EXCLUDED.fee_rate,
				updated_at = now()
		`,
			pool.TokenA,
			pool.TokenB,
			pool.ReserveA,
			pool.ReserveB,
			pool.TotalShares,
			pool.FeeRate,
		)
		queued++
		for _, pos := range pool.Positions {
			batch.Queue(`
				INSERT INTO amm_positions (token_a, token_b, provider, shares)
				VALUES ($1, $2, $3, $4)
			`, pool.TokenA, pool.TokenB, pos.Provider, pos.Shares)
			queued++
		}
	}

	br := tx.SendBatch(ctx, batch)
	for i := 0; i < queued; i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return err
		}
	}
	if err := br.Close(); err != nil {
		return err
	}
	if err := saveState(ctx, tx, SnapshotName, snap.Seq); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return tx.Commit(ctx)
}

// LoadSnapshot reads the stored registry. ok is false when nothing was saved.
func (s *Store) LoadSnapshot(ctx context.Context) (model.SnapshotRecord, bool, error) {
	seq, ok, err := s.LoadState(ctx, SnapshotName)
	if err != nil || !ok {
		return model.SnapshotRecord{}, false, err
	}
	snap := model.SnapshotRecord{Seq: seq}

	rows, err := s.pool.Query(ctx, `
		SELECT token_a, token_b, reserve_a::text, reserve_b::text, total_shares::text, fee_rate::text
		FROM amm_pools ORDER BY token_a, token_b
	`)
	if err != nil {
		return model.SnapshotRecord{}, false, err
	}
	index := make(map[[2]string]int)
	for rows.Next() {
		var p model.PoolRecord
		if err := rows.Scan(&p.TokenA, &p.TokenB, &p.ReserveA, &p.ReserveB, &p.TotalShares, &p.FeeRate); err != nil {
			rows.Close()
			return model.SnapshotRecord{}, false, err
		}
		index[[2]string{p.TokenA, p.TokenB}] = len(snap.Pools)
		snap.Pools = append(snap.Pools, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return model.SnapshotRecord{}, false, err
	}

	rows, err = s.pool.Query(ctx, `
		SELECT token_a, token_b, provider, shares::text
		FROM amm_positions ORDER BY token_a, token_b, provider
	`)
	if err != nil {
		return model.SnapshotRecord{}, false, err
	}
	defer rows.Close()
	for rows.Next() {
		var tokenA, tokenB string
		var pos model.PositionRecord
		if err := rows.Scan(&tokenA, &tokenB, &pos.Provider, &pos.Shares); err != nil {
			return model.SnapshotRecord{}, false, err
		}
		i, found := index[[2]string{tokenA, tokenB}]
		if !found {
			return model.SnapshotRecord{}, false, fmt.Errorf("position for unknown pool %s-%s", tokenA, tokenB)
		}
		snap.Pools[i].Positions = append(snap.Pools[i].Positions, pos)
	}
	if err := rows.Err(); err != nil {
		return model.SnapshotRecord{}, false, err
	}
	return snap, true, nil
}

// LoadState returns last_seq for a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var seq int64
	row := s.pool.QueryRow(ctx, `SELECT last_seq FROM replay_state WHERE name=$1`, name)
	if err := row.Scan(&seq); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(seq), true, nil
}

// execer is satisfied by both the pool and a transaction.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// saveState upserts last_seq for a name.
func saveState(ctx context.Context, q execer, name string, seq uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := q.Exec(ctx, `
		INSERT INTO replay_state (name, last_seq, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_seq = EXCLUDED.last_seq, updated_at = now()
	`, name, int64(seq))
	return err
}
