package storage

import (
	"context"
	"fmt"

	"ammledger/internal/model"
)

// MirrorSnapshotStore loads from Primary and saves to Primary and every
// replica, in order.
type MirrorSnapshotStore struct {
	Primary  SnapshotStore
	Replicas []SnapshotStore
}

func (m *MirrorSnapshotStore) LoadSnapshot(ctx context.Context) (model.SnapshotRecord, bool, error) {
	return m.Primary.LoadSnapshot(ctx)
}

func (m *MirrorSnapshotStore) SaveSnapshot(ctx context.Context, snap model.SnapshotRecord) error {
	if err := m.Primary.SaveSnapshot(ctx, snap); err != nil {
		return err
	}
	for i, replica := range m.Replicas {
		if err := replica.SaveSnapshot(ctx, snap); err != nil {
			return fmt.Errorf("save replica %d: %w", i, err)
		}
	}
	return nil
}
