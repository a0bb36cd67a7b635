package model

// SnapshotRecord is registry state as of journal sequence Seq.
type SnapshotRecord struct {
	Seq       uint64       `json:"seq"`
	Pools     []PoolRecord `json:"pools"`
	UpdatedAt string       `json:"updated_at"`
}
