package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"ammledger/internal/amm"
	"ammledger/internal/config"
	"ammledger/internal/journal"
)

type quoteOutput struct {
	TokenIn           string `json:"token_in"`
	TokenOut          string `json:"token_out"`
	AmountIn          string `json:"amount_in"`
	AmountOut         string `json:"amount_out"`
	PriceImpact       string `json:"price_impact"`
	SlippageTolerance string `json:"slippage_tolerance"`
	WithinTolerance   bool   `json:"within_tolerance"`
}

type infoOutput struct {
	Pool        string `json:"pool"`
	TokenA      string `json:"token_a"`
	TokenB      string `json:"token_b"`
	ReserveA    string `json:"reserve_a"`
	ReserveB    string `json:"reserve_b"`
	TotalShares string `json:"total_shares"`
	K           string `json:"k"`
	PriceA      string `json:"price_a"`
	PriceB      string `json:"price_b"`
	FeeRate     string `json:"fee_rate"`
	Providers   int    `json:"providers"`
}

func runQuote(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadQuote(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	tokenIn, err := journal.NormalizeToken(cfg.TokenIn)
	if err != nil {
		return fmt.Errorf("token-in: %w", err)
	}
	tokenOut, err := journal.NormalizeToken(cfg.TokenOut)
	if err != nil {
		return fmt.Errorf("token-out: %w", err)
	}

	registry, err := loadRegistry(cmd.Context(), cfg.StateConfig, logger)
	if err != nil {
		return err
	}

	amountOut, impact, err := registry.GetAmountOut(tokenIn, tokenOut, cfg.Amount)
	if err != nil {
		return err
	}
	return writeJSON(cmd, quoteOutput{
		TokenIn:           tokenIn,
		TokenOut:          tokenOut,
		AmountIn:          cfg.Amount.String(),
		AmountOut:         amountOut.String(),
		PriceImpact:       impact.String(),
		SlippageTolerance: cfg.Slippage.String(),
		WithinTolerance:   impact.Cmp(cfg.Slippage) <= 0,
	})
}

func runInfo(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadInfo(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	registry, err := loadRegistry(cmd.Context(), cfg.StateConfig, logger)
	if err != nil {
		return err
	}

	if cfg.TokenA == "" && cfg.TokenB == "" {
		out := make([]infoOutput, 0)
		for _, id := range registry.Pools() {
			info, err := registry.PoolInfo(id.TokenA, id.TokenB)
			if err != nil {
				return err
			}
			out = append(out, newInfoOutput(info))
		}
		return writeJSON(cmd, out)
	}

	tokenA, err := journal.NormalizeToken(cfg.TokenA)
	if err != nil {
		return fmt.Errorf("token-a: %w", err)
	}
	tokenB, err := journal.NormalizeToken(cfg.TokenB)
	if err != nil {
		return fmt.Errorf("token-b: %w", err)
	}
	info, err := registry.PoolInfo(tokenA, tokenB)
	if err != nil {
		return err
	}
	return writeJSON(cmd, newInfoOutput(info))
}

func newInfoOutput(info amm.PoolInfo) infoOutput {
	return infoOutput{
		Pool:        info.ID.String(),
		TokenA:      info.ID.TokenA,
		TokenB:      info.ID.TokenB,
		ReserveA:    info.ReserveA.String(),
		ReserveB:    info.ReserveB.String(),
		TotalShares: info.TotalShares.String(),
		K:           info.K.String(),
		PriceA:      info.PriceA.String(),
		PriceB:      info.PriceB.String(),
		FeeRate:     info.FeeRate.String(),
		Providers:   info.Providers,
	}
}

func writeJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
