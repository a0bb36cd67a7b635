package journal

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"ammledger/internal/amm"
	"ammledger/internal/model"
	"ammledger/internal/storage"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newJournaled(t *testing.T, path string, batchSize int) (*amm.AMM, *Recorder) {
	t.Helper()
	rec := NewRecorder(RecorderConfig{BatchSize: batchSize}, storage.NewJsonlStorage(path), nil)
	t.Cleanup(func() { rec.Close(context.Background()) })
	registry, err := amm.New(amm.WithObserver(rec))
	if err != nil {
		t.Fatalf("new amm: %v", err)
	}
	return registry, rec
}

// runScenario runs a short trading session and flushes the journal.
func runScenario(t *testing.T, registry *amm.AMM, rec *Recorder) {
	t.Helper()
	if _, err := registry.CreatePool("USDC", "ETH"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := registry.AddLiquidity("alice", "ETH", "USDC", d("10"), d("20000")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := registry.AddLiquidity("bob", "USDC", "ETH", d("2000"), d("1")); err != nil {
		t.Fatalf("add bob: %v", err)
	}
	if _, _, err := registry.Swap("ETH", "USDC", d("0.05"), amm.DefaultSlippageTolerance); err != nil {
		t.Fatalf("swap: %v", err)
	}
	// Rejected operations are not journaled.
	if _, _, err := registry.Swap("ETH", "USDC", d("5"), amm.DefaultSlippageTolerance); err == nil {
		t.Fatalf("expected slippage rejection")
	}
	shares := registry.Shares("bob", "ETH", "USDC")
	if _, _, err := registry.RemoveLiquidity("bob", "ETH", "USDC", shares.Div(d("2"))); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := rec.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
}

func readAll(t *testing.T, path string) []model.OperationRecord {
	t.Helper()
	var records []model.OperationRecord
	if err := storage.ReadJsonl(path, func(r model.OperationRecord) error {
		records = append(records, r)
		return nil
	}); err != nil {
		t.Fatalf("read journal: %v", err)
	}
	return records
}

func TestRecorderJournalsCommittedOperations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	registry, rec := newJournaled(t, path, 2)
	runScenario(t, registry, rec)

	records := readAll(t, path)
	ops := make([]string, 0, len(records))
	for i, r := range records {
		if r.Seq != uint64(i+1) {
			t.Fatalf("record %d has seq %d", i, r.Seq)
		}
		ops = append(ops, r.Op)
	}
	want := []string{model.OpCreatePool, model.OpAddLiquidity, model.OpAddLiquidity, model.OpSwap, model.OpRemoveLiquidity}
	if !reflect.DeepEqual(ops, want) {
		t.Fatalf("ops mismatch: %v != %v", ops, want)
	}
	if rec.Seq() != 5 {
		t.Fatalf("expected seq 5, got %d", rec.Seq())
	}

	bob := records[2]
	if bob.TokenA != "ETH" || bob.AmountA != "1" || bob.AmountB != "2000" {
		t.Fatalf("amounts not canonical: %+v", bob)
	}
	if records[0].FeeRate != "0.003" {
		t.Fatalf("fee rate not recorded: %+v", records[0])
	}
}

func TestReplayRebuildsState(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "journal.jsonl")

	original, rec := newJournaled(t, path, 1)
	runScenario(t, original, rec)

	snaps := &storage.FileSnapshotStore{Path: filepath.Join(dir, "snapshot.json")}
	replayer := NewReplayer(ReplayConfig{
		JournalPath:       path,
		CheckpointPath:    filepath.Join(dir, "checkpoint.json"),
		CheckpointEnabled: true,
	}, snaps, nil)

	res, err := replayer.Run(context.Background())
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if res.Applied != 5 || res.LastSeq != 5 || res.FromSeq != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}

	want := SnapshotToRecord(5, original.Snapshot())
	got := SnapshotToRecord(5, res.AMM.Snapshot())
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("replayed state mismatch: %+v != %+v", got, want)
	}

	stored, ok, err := snaps.LoadSnapshot(context.Background())
	if err != nil || !ok {
		t.Fatalf("load snapshot: ok=%v err=%v", ok, err)
	}
	stored.UpdatedAt = ""
	if !reflect.DeepEqual(stored, want) {
		t.Fatalf("stored snapshot mismatch: %+v != %+v", stored, want)
	}

	cp, ok, err := NewCheckpointStore(filepath.Join(dir, "checkpoint.json"), true).Load()
	if err != nil || !ok || cp.LastAppliedSeq != 5 {
		t.Fatalf("checkpoint: %+v ok=%v err=%v", cp, ok, err)
	}
}

func TestReplayResumesAfterSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "journal.jsonl")
	snaps := &storage.FileSnapshotStore{Path: filepath.Join(dir, "snapshot.json")}
	cfg := ReplayConfig{
		JournalPath:       path,
		CheckpointPath:    filepath.Join(dir, "checkpoint.json"),
		CheckpointEnabled: true,
		SaveEvery:         2,
	}

	live, rec := newJournaled(t, path, 3)
	runScenario(t, live, rec)

	if _, err := NewReplayer(cfg, snaps, nil).Run(context.Background()); err != nil {
		t.Fatalf("first replay: %v", err)
	}

	if _, _, err := live.Swap("USDC", "ETH", d("20"), amm.DefaultSlippageTolerance); err != nil {
		t.Fatalf("swap: %v", err)
	}
	if err := rec.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}

	res, err := NewReplayer(cfg, snaps, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("second replay: %v", err)
	}
	if res.FromSeq != 5 || res.Applied != 1 || res.LastSeq != 6 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if !reflect.DeepEqual(SnapshotToRecord(6, res.AMM.Snapshot()), SnapshotToRecord(6, live.Snapshot())) {
		t.Fatalf("resumed state mismatch")
	}

	res, err = NewReplayer(cfg, snaps, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("third replay: %v", err)
	}
	if res.Applied != 0 || res.LastSeq != 6 {
		t.Fatalf("expected no-op replay, got %+v", res)
	}
}

func TestReplayRejectsCheckpointAheadOfSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "journal.jsonl")
	registry, rec := newJournaled(t, path, 1)
	runScenario(t, registry, rec)

	cpPath := filepath.Join(dir, "checkpoint.json")
	if err := NewCheckpointStore(cpPath, true).Save(3); err != nil {
		t.Fatalf("save checkpoint: %v", err)
	}

	snaps := &storage.FileSnapshotStore{Path: filepath.Join(dir, "snapshot.json")}
	_, err := NewReplayer(ReplayConfig{JournalPath: path, CheckpointPath: cpPath, CheckpointEnabled: true}, snaps, nil).
		Run(context.Background())
	if err == nil {
		t.Fatalf("expected checkpoint error")
	}
}

func TestReplayDetectsGap(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "journal.jsonl")
	sink := storage.NewJsonlStorage(path)
	if err := sink.PutOperationBatch([]model.OperationRecord{
		{Seq: 1, Op: model.OpCreatePool, TokenA: "ETH", TokenB: "USDC", FeeRate: "0.003", ReserveA: "0", ReserveB: "0", TotalShares: "0"},
		{Seq: 3, Op: model.OpCreatePool, TokenA: "BTC", TokenB: "ETH", FeeRate: "0.003", ReserveA: "0", ReserveB: "0", TotalShares: "0"},
	}); err != nil {
		t.Fatalf("put: %v", err)
	}

	if _, err := NewReplayer(ReplayConfig{JournalPath: path}, nil, nil).Run(context.Background()); err == nil {
		t.Fatalf("expected gap error")
	}
}

func TestApplyDetectsDivergence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	live, rec := newJournaled(t, path, 1)
	runScenario(t, live, rec)
	records := readAll(t, path)

	registry, err := amm.New()
	if err != nil {
		t.Fatalf("new amm: %v", err)
	}
	for _, r := range records[:3] {
		if err := Apply(registry, r); err != nil {
			t.Fatalf("apply seq %d: %v", r.Seq, err)
		}
	}

	swap := records[3]
	swap.AmountOut = "1"
	err = Apply(registry, swap)
	if !errors.Is(err, ErrDivergence) {
		t.Fatalf("expected divergence, got %v", err)
	}
}

func TestApplyUnknownOp(t *testing.T) {
	registry, err := amm.New()
	if err != nil {
		t.Fatalf("new amm: %v", err)
	}
	if err := Apply(registry, model.OperationRecord{Seq: 1, Op: "mint"}); err == nil {
		t.Fatalf("expected error for unknown op")
	}
}

type failingSink struct {
	failures int
	calls    int
	records  []model.OperationRecord
}

func (s *failingSink) PutOperationBatch(records []model.OperationRecord) error {
	s.calls++
	if s.calls <= s.failures {
		return errors.New("disk full")
	}
	s.records = append(s.records, records...)
	return nil
}

func TestRecorderRetriesWrites(t *testing.T) {
	sink := &failingSink{failures: 2}
	rec := NewRecorder(RecorderConfig{BatchSize: 10, MaxRetries: 2, RetryBackoff: 1}, sink, nil)
	defer rec.Close(context.Background())
	registry, err := amm.New(amm.WithObserver(rec))
	if err != nil {
		t.Fatalf("new amm: %v", err)
	}
	if _, err := registry.CreatePool("ETH", "USDC"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := rec.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if sink.calls != 3 || len(sink.records) != 1 {
		t.Fatalf("unexpected sink state: calls=%d records=%d", sink.calls, len(sink.records))
	}
}

func TestRecorderReportsWriteFailure(t *testing.T) {
	sink := &failingSink{failures: 100}
	rec := NewRecorder(RecorderConfig{BatchSize: 10}, sink, nil)
	defer rec.Close(context.Background())
	registry, err := amm.New(amm.WithObserver(rec))
	if err != nil {
		t.Fatalf("new amm: %v", err)
	}
	if _, err := registry.CreatePool("ETH", "USDC"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := rec.Flush(context.Background()); err == nil {
		t.Fatalf("expected write error")
	}
}

// blockingSink holds every write until release is closed.
type blockingSink struct {
	release chan struct{}
	records []model.OperationRecord
}

func (s *blockingSink) PutOperationBatch(records []model.OperationRecord) error {
	<-s.release
	s.records = append(s.records, records...)
	return nil
}

func TestRecorderDoesNotBlockOperationsOnStorage(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	rec := NewRecorder(RecorderConfig{BatchSize: 1}, sink, nil)
	registry, err := amm.New(amm.WithObserver(rec))
	if err != nil {
		t.Fatalf("new amm: %v", err)
	}

	finished := make(chan error, 1)
	go func() {
		if _, err := registry.CreatePool("ETH", "USDC"); err != nil {
			finished <- err
			return
		}
		_, err := registry.AddLiquidity("alice", "ETH", "USDC", d("10"), d("20000"))
		finished <- err
	}()
	select {
	case err := <-finished:
		if err != nil {
			t.Fatalf("operations: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("operations blocked on a stalled journal write")
	}

	close(sink.release)
	if err := rec.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if len(sink.records) != 2 || sink.records[0].Seq != 1 || sink.records[1].Seq != 2 {
		t.Fatalf("unexpected records: %+v", sink.records)
	}
}

func TestNormalizeToken(t *testing.T) {
	const lower = "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
	const checksummed = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"

	got, err := NormalizeToken("  " + lower + " ")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if got != checksummed {
		t.Fatalf("expected %s, got %s", checksummed, got)
	}

	if got, err := NormalizeToken("USDC"); err != nil || got != "USDC" {
		t.Fatalf("symbol changed: %q %v", got, err)
	}
	if _, err := NormalizeToken("0x1234"); err == nil {
		t.Fatalf("expected error for short address")
	}
	if _, err := NormalizeToken(" "); err == nil {
		t.Fatalf("expected error for empty token")
	}
}

func TestCheckpointStoreDisabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	store := NewCheckpointStore(path, false)
	if err := store.Save(9); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("disabled store wrote a file")
	}
	if _, ok, err := store.Load(); ok || err != nil {
		t.Fatalf("disabled load: ok=%v err=%v", ok, err)
	}
}
