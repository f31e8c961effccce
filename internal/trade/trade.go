// Package trade defines the trade-execution and token-safety
// collaborators. The pipeline treats an unimplemented operation as a
// normal failure category, never a crash: implementations report
// ErrNotSupported and callers carry on.
package trade

import (
	"context"
	"errors"

	"solana-pool-sniper/internal/wallet"
)

// ErrNotSupported reports an operation the executor does not implement
// yet. Callers must treat it as a routine failure, not a fault.
var ErrNotSupported = errors.New("not supported")

// Quote describes a prospective swap route.
type Quote struct {
	InputMint   string
	OutputMint  string
	InAmount    uint64
	OutAmount   uint64
	PriceImpact float64
	Route       []string
}

// Executor executes token purchases for a wallet. Snipe returns the
// transaction signature of the executed swap, or a structured failure.
type Executor interface {
	Snipe(ctx context.Context, w *wallet.Wallet, tokenAddress string, amountSOL float64) (string, error)
}

// SafetyAnalyzer scores a token before trading.
type SafetyAnalyzer interface {
	// Analyze reports whether the token passes safety checks.
	Analyze(ctx context.Context, tokenAddress string) (bool, error)
}
