package amm

import (
	"cosmossdk.io/errors"
)

// Codespace is the error codespace for AMM errors.
const Codespace = "amm"

// AMM sentinel errors
var (
	ErrPoolAlreadyExists  = errors.Register(Codespace, 2, "pool already exists")
	ErrPoolNotFound       = errors.Register(Codespace, 3, "pool not found")
	ErrInvalidAmount      = errors.Register(Codespace, 4, "invalid amount")
	ErrEmptyPool          = errors.Register(Codespace, 5, "pool has no liquidity")
	ErrInsufficientShares = errors.Register(Codespace, 6, "insufficient liquidity shares")
	ErrNoPosition         = errors.Register(Codespace, 7, "no liquidity position")
	ErrSlippageExceeded   = errors.Register(Codespace, 8, "price impact exceeds slippage tolerance")
	ErrIdenticalTokens    = errors.Register(Codespace, 9, "pool tokens must differ")
	ErrInvalidFeeRate     = errors.Register(Codespace, 10, "invalid fee rate")
	ErrInvalidSnapshot    = errors.Register(Codespace, 11, "invalid snapshot")
)
