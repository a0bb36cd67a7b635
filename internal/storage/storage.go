package storage

import (
	"context"

	"ammledger/internal/model"
)

// Storage defines a sink for journal records.
type Storage interface {
	PutOperationBatch(records []model.OperationRecord) error
}

// SnapshotStore persists registry snapshots.
type SnapshotStore interface {
	LoadSnapshot(ctx context.Context) (model.SnapshotRecord, bool, error)
	SaveSnapshot(ctx context.Context, snap model.SnapshotRecord) error
}
