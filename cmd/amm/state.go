package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"ammledger/internal/amm"
	"ammledger/internal/config"
	"ammledger/internal/journal"
	"ammledger/internal/model"
	"ammledger/internal/storage"
	"ammledger/internal/storage/postgres"
)

// openSnapshots returns the configured snapshot stores. Postgres is the
// primary when a DSN is set and the file is mirrored from it. The returned
// store is nil when neither is configured.
func openSnapshots(ctx context.Context, cfg config.StateConfig, logger *zap.Logger) (storage.SnapshotStore, func(), error) {
	var file storage.SnapshotStore
	if cfg.Snapshot != "" {
		file = &storage.FileSnapshotStore{Path: cfg.Snapshot}
	}
	if cfg.PGDSN == "" {
		return file, func() {}, nil
	}

	store, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("ensure schema: %w", err)
	}
	logger.Debug("snapshot store", zap.String("pg_dsn", redactDSN(cfg.PGDSN)), zap.String("snapshot", cfg.Snapshot))

	mirror := &storage.MirrorSnapshotStore{Primary: store}
	if file != nil {
		mirror.Replicas = append(mirror.Replicas, file)
	}
	return mirror, store.Close, nil
}

// readOnlySnapshots loads snapshots but never saves them.
type readOnlySnapshots struct {
	storage.SnapshotStore
}

func (readOnlySnapshots) SaveSnapshot(context.Context, model.SnapshotRecord) error {
	return nil
}

// loadRegistry rebuilds the current registry for the query commands without
// writing any state. A missing journal means the snapshot is current.
func loadRegistry(ctx context.Context, cfg config.StateConfig, logger *zap.Logger) (*amm.AMM, error) {
	snapshots, closeStore, err := openSnapshots(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	defer closeStore()
	if snapshots != nil {
		snapshots = readOnlySnapshots{snapshots}
	}

	if cfg.Journal != "" {
		if _, err := os.Stat(cfg.Journal); err == nil {
			res, err := journal.NewReplayer(journal.ReplayConfig{JournalPath: cfg.Journal}, snapshots, logger).
				Run(ctx, amm.WithLogger(logger))
			if err != nil {
				return nil, err
			}
			return res.AMM, nil
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat journal: %w", err)
		}
	}

	if snapshots == nil {
		return amm.New(amm.WithLogger(logger))
	}
	rec, ok, err := snapshots.LoadSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	if !ok {
		return amm.New(amm.WithLogger(logger))
	}
	snap, err := journal.SnapshotFromRecord(rec)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return amm.Restore(snap, amm.WithLogger(logger))
}
