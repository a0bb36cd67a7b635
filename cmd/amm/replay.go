package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ammledger/internal/amm"
	"ammledger/internal/config"
	"ammledger/internal/journal"
	"ammledger/internal/metrics"
)

func runReplay(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadReplay(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Journal == "" {
		return fmt.Errorf("journal path is required")
	}
	if cfg.BatchSize < 0 {
		return fmt.Errorf("batch size must not be negative")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	snapshots, closeStore, err := openSnapshots(ctx, cfg.StateConfig, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	opts := []amm.Option{amm.WithLogger(logger)}
	var m *metrics.Metrics
	if cfg.MetricsFile != "" {
		m = metrics.New()
		opts = append(opts, amm.WithObserver(m))
	}

	logger.Info("replay start",
		zap.String("journal", cfg.Journal),
		zap.String("snapshot", cfg.Snapshot),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.String("checkpoint", cfg.Checkpoint),
		zap.Int("batch_size", cfg.BatchSize),
	)

	replayer := journal.NewReplayer(journal.ReplayConfig{
		JournalPath:       cfg.Journal,
		CheckpointPath:    cfg.Checkpoint,
		CheckpointEnabled: cfg.CheckpointEnabled,
		SaveEvery:         cfg.BatchSize,
	}, snapshots, logger)

	res, err := replayer.Run(ctx, opts...)
	if err != nil {
		return err
	}
	if err := res.AMM.CheckInvariants(); err != nil {
		return fmt.Errorf("replayed state: %w", err)
	}

	if m != nil {
		m.Seed(res.AMM.Snapshot())
		if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "applied %d operations, last seq %d, %d pools\n",
		res.Applied, res.LastSeq, len(res.AMM.Pools()))
	return nil
}
