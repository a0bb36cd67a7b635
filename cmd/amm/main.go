package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "amm",
		Short:        "Constant-product AMM ledger",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	demoCmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the demonstration session and print its transcript",
		RunE:  runDemo,
	}

	demoCmd.Flags().String("fee-rate", "0.003", "fee rate charged on swap input")
	demoCmd.Flags().String("slippage", "0.1", "maximum price impact per demo swap")
	demoCmd.Flags().String("journal", "", "optional JSONL path to journal the session to")
	demoCmd.Flags().Int("batch-size", 100, "journal records per write")
	demoCmd.Flags().String("metrics-file", "", "optional Prometheus textfile output")
	demoCmd.Flags().String("log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(demoCmd)

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Rebuild registry state from a snapshot and a journal",
		RunE:  runReplay,
	}

	replayCmd.Flags().String("journal", "./data/journal.jsonl", "input journal JSONL")
	replayCmd.Flags().String("snapshot", "./data/snapshot.json", "snapshot file path, empty to disable")
	replayCmd.Flags().String("pg-dsn", "", "Postgres DSN for snapshot persistence")
	replayCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	replayCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	replayCmd.Flags().Int("batch-size", 1000, "records applied between snapshot saves")
	replayCmd.Flags().String("metrics-file", "", "optional Prometheus textfile output")
	replayCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(replayCmd)

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a hypothetical swap without executing it",
		RunE:  runQuote,
	}

	quoteCmd.Flags().String("token-in", "", "token sold")
	quoteCmd.Flags().String("token-out", "", "token bought")
	quoteCmd.Flags().String("amount", "", "input amount")
	quoteCmd.Flags().String("slippage", "0.01", "slippage tolerance the quote is checked against")
	addStateFlags(quoteCmd)

	root.AddCommand(quoteCmd)

	infoCmd := &cobra.Command{
		Use:   "info",
		Short: "Print pool information as JSON",
		RunE:  runInfo,
	}

	infoCmd.Flags().String("token-a", "", "first token of the pair")
	infoCmd.Flags().String("token-b", "", "second token of the pair")
	addStateFlags(infoCmd)

	root.AddCommand(infoCmd)

	return root
}

func addStateFlags(cmd *cobra.Command) {
	cmd.Flags().String("journal", "./data/journal.jsonl", "journal JSONL applied after the snapshot")
	cmd.Flags().String("snapshot", "./data/snapshot.json", "snapshot file path")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN to load the snapshot from")
	cmd.Flags().String("log-level", "warn", "log level (debug, info, warn, error)")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
