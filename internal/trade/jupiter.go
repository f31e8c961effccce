package trade

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"solana-pool-sniper/internal/solana"
	"solana-pool-sniper/internal/wallet"
)

// JupiterExecutor routes swaps through the Jupiter aggregator. Quote
// and swap assembly are not wired up yet, so every snipe reports
// ErrNotSupported; the surrounding pipeline handles that as a normal
// trade failure.
type JupiterExecutor struct {
	rpc        solana.RPCClient
	httpClient *http.Client
	maxSOL     float64
}

// NewJupiterExecutor creates an executor capped at maxSOL per trade.
func NewJupiterExecutor(rpc solana.RPCClient, maxSOL float64) *JupiterExecutor {
	return &JupiterExecutor{
		rpc:        rpc,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		maxSOL:     maxSOL,
	}
}

// Snipe attempts to buy tokenAddress with amountSOL from w.
func (e *JupiterExecutor) Snipe(ctx context.Context, w *wallet.Wallet, tokenAddress string, amountSOL float64) (string, error) {
	if amountSOL <= 0 {
		return "", fmt.Errorf("invalid amount %f", amountSOL)
	}
	if e.maxSOL > 0 && amountSOL > e.maxSOL {
		return "", fmt.Errorf("amount %f exceeds per-trade cap %f", amountSOL, e.maxSOL)
	}

	log.Printf("[trade] snipe requested: wallet=%s token=%s amount=%f SOL", w.Address, tokenAddress, amountSOL)
	return "", fmt.Errorf("jupiter swap: %w", ErrNotSupported)
}

// BasicAnalyzer is a placeholder safety analyzer.
type BasicAnalyzer struct{}

// Analyze reports ErrNotSupported until on-chain checks are wired in.
func (BasicAnalyzer) Analyze(ctx context.Context, tokenAddress string) (bool, error) {
	return false, fmt.Errorf("token safety analysis: %w", ErrNotSupported)
}
