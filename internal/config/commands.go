package config

import (
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
)

// DemoConfig holds configuration for the demo command.
type DemoConfig struct {
	LogLevel    string
	FeeRate     decimal.Decimal
	Slippage    decimal.Decimal
	Journal     string
	BatchSize   int
	MetricsFile string
}

// LoadDemo merges config file, environment variables, and flags into DemoConfig.
func LoadDemo(cfgFile string, flags *pflag.FlagSet) (DemoConfig, error) {
	v, err := load(cfgFile, flags, map[string]interface{}{
		"log-level":  "warn",
		"fee-rate":   "0.003",
		"slippage":   "0.1",
		"batch-size": 100,
	})
	if err != nil {
		return DemoConfig{}, err
	}

	cfg := DemoConfig{
		LogLevel:    v.GetString("log-level"),
		Journal:     v.GetString("journal"),
		BatchSize:   v.GetInt("batch-size"),
		MetricsFile: v.GetString("metrics-file"),
	}
	if cfg.FeeRate, err = getDecimal(v, "fee-rate"); err != nil {
		return DemoConfig{}, err
	}
	if cfg.Slippage, err = getDecimal(v, "slippage"); err != nil {
		return DemoConfig{}, err
	}
	return cfg, nil
}

// ReplayConfig holds configuration for the replay command.
type ReplayConfig struct {
	StateConfig
	LogLevel          string
	Checkpoint        string
	CheckpointEnabled bool
	BatchSize         int
	MetricsFile       string
}

// LoadReplay merges config file, environment variables, and flags into ReplayConfig.
func LoadReplay(cfgFile string, flags *pflag.FlagSet) (ReplayConfig, error) {
	v, err := load(cfgFile, flags, map[string]interface{}{
		"journal":            "./data/journal.jsonl",
		"snapshot":           "./data/snapshot.json",
		"checkpoint":         "./data/checkpoint.json",
		"checkpoint-enabled": true,
		"batch-size":         1000,
	})
	if err != nil {
		return ReplayConfig{}, err
	}

	return ReplayConfig{
		StateConfig:       stateConfig(v),
		LogLevel:          v.GetString("log-level"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		BatchSize:         v.GetInt("batch-size"),
		MetricsFile:       v.GetString("metrics-file"),
	}, nil
}

// QuoteConfig holds configuration for the quote command.
type QuoteConfig struct {
	StateConfig
	LogLevel string
	TokenIn  string
	TokenOut string
	Amount   decimal.Decimal
	Slippage decimal.Decimal
}

// LoadQuote merges config file, environment variables, and flags into QuoteConfig.
func LoadQuote(cfgFile string, flags *pflag.FlagSet) (QuoteConfig, error) {
	v, err := load(cfgFile, flags, map[string]interface{}{
		"log-level": "warn",
		"journal":   "./data/journal.jsonl",
		"snapshot":  "./data/snapshot.json",
		"slippage":  "0.01",
	})
	if err != nil {
		return QuoteConfig{}, err
	}

	cfg := QuoteConfig{
		StateConfig: stateConfig(v),
		LogLevel:    v.GetString("log-level"),
		TokenIn:     v.GetString("token-in"),
		TokenOut:    v.GetString("token-out"),
	}
	if cfg.Amount, err = getDecimal(v, "amount"); err != nil {
		return QuoteConfig{}, err
	}
	if cfg.Slippage, err = getDecimal(v, "slippage"); err != nil {
		return QuoteConfig{}, err
	}
	return cfg, nil
}

// InfoConfig holds configuration for the info command.
type InfoConfig struct {
	StateConfig
	LogLevel string
	TokenA   string
	TokenB   string
}

// LoadInfo merges config file, environment variables, and flags into InfoConfig.
func LoadInfo(cfgFile string, flags *pflag.FlagSet) (InfoConfig, error) {
	v, err := load(cfgFile, flags, map[string]interface{}{
		"log-level": "warn",
		"journal":   "./data/journal.jsonl",
		"snapshot":  "./data/snapshot.json",
	})
	if err != nil {
		return InfoConfig{}, err
	}

	return InfoConfig{
		StateConfig: stateConfig(v),
		LogLevel:    v.GetString("log-level"),
		TokenA:      v.GetString("token-a"),
		TokenB:      v.GetString("token-b"),
	}, nil
}
