package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ammledger/internal/amm"
	"ammledger/internal/config"
	"ammledger/internal/journal"
	"ammledger/internal/metrics"
	"ammledger/internal/storage"
)

var hundred = decimal.NewFromInt(100)

func runDemo(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadDemo(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	opts := []amm.Option{amm.WithLogger(logger), amm.WithFeeRate(cfg.FeeRate)}

	var recorder *journal.Recorder
	if cfg.Journal != "" {
		if info, err := os.Stat(cfg.Journal); err == nil && info.Size() > 0 {
			return fmt.Errorf("journal %s already exists", cfg.Journal)
		}
		recorder = journal.NewRecorder(journal.RecorderConfig{BatchSize: cfg.BatchSize}, storage.NewJsonlStorage(cfg.Journal), logger)
		opts = append(opts, amm.WithObserver(recorder))
	}

	var m *metrics.Metrics
	if cfg.MetricsFile != "" {
		m = metrics.New()
		opts = append(opts, amm.WithObserver(m))
	}

	registry, err := amm.New(opts...)
	if err != nil {
		return err
	}

	if err := demoSession(cmd.OutOrStdout(), registry, cfg.Slippage); err != nil {
		return err
	}

	if recorder != nil {
		if err := recorder.Close(cmd.Context()); err != nil {
			return err
		}
		logger.Info("demo journaled", zap.String("journal", cfg.Journal), zap.Uint64("last_seq", recorder.Seq()))
	}
	if m != nil {
		if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}

func percent(d decimal.Decimal) string {
	return d.Mul(hundred).StringFixed(2) + "%"
}

// demoSession creates two pools, trades against one and withdraws half of a
// position, printing each step.
func demoSession(w io.Writer, registry *amm.AMM, slippage decimal.Decimal) error {
	rule := strings.Repeat("=", 60)
	fmt.Fprintf(w, "\n%s\n AMM DEMONSTRATION\n%s\n", rule, rule)

	fmt.Fprintln(w, "\n[1] Creating Pools...")
	if _, err := registry.CreatePool("ETH", "USDC"); err != nil {
		return err
	}
	if _, err := registry.CreatePool("BTC", "USDC"); err != nil {
		return err
	}
	fmt.Fprintln(w, "    Created ETH-USDC pool")
	fmt.Fprintln(w, "    Created BTC-USDC pool")

	fmt.Fprintln(w, "\n[2] Adding Liquidity...")
	aliceShares, err := registry.AddLiquidity("alice", "ETH", "USDC", decimal.NewFromInt(10), decimal.NewFromInt(20000))
	if err != nil {
		return err
	}
	bobShares, err := registry.AddLiquidity("bob", "BTC", "USDC", decimal.NewFromInt(2), decimal.NewFromInt(80000))
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "    Alice added 10 ETH + 20,000 USDC -> %s LP tokens\n", aliceShares.StringFixed(2))
	fmt.Fprintf(w, "    Bob added 2 BTC + 80,000 USDC -> %s LP tokens\n", bobShares.StringFixed(2))

	fmt.Fprintln(w, "\n[3] Pool Information:")
	ethPool, err := registry.PoolInfo("ETH", "USDC")
	if err != nil {
		return err
	}
	btcPool, err := registry.PoolInfo("BTC", "USDC")
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "    ETH-USDC: %s ETH / %s USDC\n", ethPool.ReserveA, ethPool.ReserveB)
	fmt.Fprintf(w, "    ETH Price: $%s\n", ethPool.PriceA)
	fmt.Fprintf(w, "    BTC-USDC: %s BTC / %s USDC\n", btcPool.ReserveA, btcPool.ReserveB)
	fmt.Fprintf(w, "    BTC Price: $%s\n", btcPool.PriceA)

	fmt.Fprintln(w, "\n[4] Price Impact Analysis:")
	impact1 := registry.CalculatePriceImpact("ETH", "USDC", decimal.NewFromInt(1))
	impact5 := registry.CalculatePriceImpact("ETH", "USDC", decimal.NewFromInt(5))
	fmt.Fprintf(w, "    Swapping 1 ETH: %s impact\n", percent(impact1))
	fmt.Fprintf(w, "    Swapping 5 ETH: %s impact\n", percent(impact5))

	fmt.Fprintln(w, "\n[5] Performing Swaps...")
	usdcOut, impact, err := registry.Swap("ETH", "USDC", decimal.RequireFromString("0.5"), slippage)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "    Swapped 0.5 ETH -> %s USDC (impact: %s)\n", usdcOut.StringFixed(2), percent(impact))
	ethOut, impact, err := registry.Swap("USDC", "ETH", decimal.NewFromInt(1000), slippage)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "    Swapped 1000 USDC -> %s ETH (impact: %s)\n", ethOut.StringFixed(4), percent(impact))

	fmt.Fprintln(w, "\n[6] Updated Pool State:")
	ethPool, err = registry.PoolInfo("ETH", "USDC")
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "    ETH-USDC: %s ETH / %s USDC\n", ethPool.ReserveA, ethPool.ReserveB)
	fmt.Fprintf(w, "    New ETH Price: $%s\n", ethPool.PriceA)
	fmt.Fprintf(w, "    Constant K: %s\n", ethPool.K)

	fmt.Fprintln(w, "\n[7] Removing Liquidity...")
	amountETH, amountUSDC, err := registry.RemoveLiquidity("alice", "ETH", "USDC", aliceShares.Div(decimal.NewFromInt(2)))
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "    Alice removed 50%% -> received %s ETH + %s USDC\n", amountETH.StringFixed(4), amountUSDC.StringFixed(2))

	fmt.Fprintf(w, "\n%s\n DEMONSTRATION COMPLETE\n%s\n\n", rule, rule)
	return nil
}
