package wallet

import (
	"context"
	"fmt"

	"solana-pool-sniper/internal/solana"
)

// LamportsPerSOL is the lamport denomination of one SOL.
const LamportsPerSOL = 1_000_000_000

// Manager pairs the loaded wallets with an RPC client for balance
// lookups.
type Manager struct {
	rpc     solana.RPCClient
	wallets []*Wallet
}

// NewManager creates a wallet manager.
func NewManager(rpc solana.RPCClient, wallets []*Wallet) *Manager {
	return &Manager{rpc: rpc, wallets: wallets}
}

// Wallets returns the managed wallets.
func (m *Manager) Wallets() []*Wallet {
	return m.wallets
}

// Balance returns the SOL balance of the wallet at index.
func (m *Manager) Balance(ctx context.Context, index int) (float64, error) {
	if index < 0 || index >= len(m.wallets) {
		return 0, fmt.Errorf("invalid wallet index %d", index)
	}

	lamports, err := m.rpc.GetBalance(ctx, m.wallets[index].Address)
	if err != nil {
		return 0, fmt.Errorf("get balance for %s: %w", m.wallets[index].Address, err)
	}
	return float64(lamports) / LamportsPerSOL, nil
}
