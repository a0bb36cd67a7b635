package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"ammledger/internal/amm"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		t.Fatalf("%s: %v\n%s", strings.Join(args, " "), err, out.String())
	}
	return out.String()
}

func TestDemoSessionTranscript(t *testing.T) {
	registry, err := amm.New()
	if err != nil {
		t.Fatalf("new amm: %v", err)
	}
	var out bytes.Buffer
	if err := demoSession(&out, registry, decimal.RequireFromString("0.1")); err != nil {
		t.Fatalf("demo: %v", err)
	}

	for _, want := range []string{
		"Alice added 10 ETH + 20,000 USDC -> 447.21 LP tokens",
		"Bob added 2 BTC + 80,000 USDC -> 400.00 LP tokens",
		"ETH Price: $2000",
		"BTC Price: $40000",
		"Swapped 0.5 ETH -> 949.66 USDC (impact: 9.28%)",
		"Swapped 1000 USDC -> 0.5222 ETH (impact: 9.71%)",
		"DEMONSTRATION COMPLETE",
	} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("transcript missing %q:\n%s", want, out.String())
		}
	}
	if err := registry.CheckInvariants(); err != nil {
		t.Fatalf("invariants: %v", err)
	}
}

func TestDemoSessionDefaultToleranceRejectsLargeSwap(t *testing.T) {
	registry, err := amm.New()
	if err != nil {
		t.Fatalf("new amm: %v", err)
	}
	var out bytes.Buffer
	if err := demoSession(&out, registry, amm.DefaultSlippageTolerance); err == nil {
		t.Fatalf("expected slippage error at the default tolerance")
	}
}

func TestDemoReplayInfoQuote(t *testing.T) {
	dir := t.TempDir()
	journalPath := filepath.Join(dir, "journal.jsonl")
	snapshotPath := filepath.Join(dir, "snapshot.json")
	checkpointPath := filepath.Join(dir, "checkpoint.json")
	metricsPath := filepath.Join(dir, "amm.prom")

	execute(t, "demo", "--journal", journalPath, "--batch-size", "3")

	out := execute(t, "replay",
		"--journal", journalPath,
		"--snapshot", snapshotPath,
		"--checkpoint", checkpointPath,
		"--metrics-file", metricsPath,
		"--log-level", "error",
	)
	if !strings.Contains(out, "applied 7 operations, last seq 7, 2 pools") {
		t.Fatalf("unexpected replay output: %s", out)
	}

	out = execute(t, "info", "--token-a", "USDC", "--token-b", "ETH", "--journal", journalPath, "--snapshot", snapshotPath)
	var info infoOutput
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("decode info: %v\n%s", err, out)
	}
	if info.Pool != "ETH-USDC" || info.Providers != 1 || info.FeeRate != "0.003" {
		t.Fatalf("unexpected info: %+v", info)
	}

	out = execute(t, "info", "--journal", journalPath, "--snapshot", snapshotPath)
	var pools []infoOutput
	if err := json.Unmarshal([]byte(out), &pools); err != nil {
		t.Fatalf("decode pools: %v\n%s", err, out)
	}
	if len(pools) != 2 || pools[0].Pool != "BTC-USDC" {
		t.Fatalf("unexpected pools: %+v", pools)
	}

	out = execute(t, "quote", "--token-in", "BTC", "--token-out", "USDC", "--amount", "0.001", "--snapshot", snapshotPath, "--journal", "")
	var quote quoteOutput
	if err := json.Unmarshal([]byte(out), &quote); err != nil {
		t.Fatalf("decode quote: %v\n%s", err, out)
	}
	if !quote.WithinTolerance || quote.AmountOut == "" || quote.AmountOut == "0" {
		t.Fatalf("unexpected quote: %+v", quote)
	}
}

func TestDemoRefusesExistingJournal(t *testing.T) {
	journalPath := filepath.Join(t.TempDir(), "journal.jsonl")
	execute(t, "demo", "--journal", journalPath)

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"demo", "--journal", journalPath})
	if err := root.Execute(); err == nil {
		t.Fatalf("expected error for existing journal")
	}
}
