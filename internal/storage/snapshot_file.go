package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"ammledger/internal/model"
)

// FileSnapshotStore stores the registry snapshot in a local JSON file.
type FileSnapshotStore struct {
	Path string
}

func (s *FileSnapshotStore) LoadSnapshot(ctx context.Context) (model.SnapshotRecord, bool, error) {
	if s == nil || s.Path == "" {
		return model.SnapshotRecord{}, false, nil
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.SnapshotRecord{}, false, nil
		}
		return model.SnapshotRecord{}, false, fmt.Errorf("read snapshot: %w", err)
	}

	var rec model.SnapshotRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return model.SnapshotRecord{}, false, fmt.Errorf("parse snapshot: %w", err)
	}
	return rec, true, nil
}

func (s *FileSnapshotStore) SaveSnapshot(ctx context.Context, snap model.SnapshotRecord) error {
	if s == nil || s.Path == "" {
		return nil
	}
	if snap.UpdatedAt == "" {
		snap.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := WriteFileAtomic(s.Path, data); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}
