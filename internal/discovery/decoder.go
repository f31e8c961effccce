// Package discovery decodes pool-creation events out of confirmed
// transactions mentioning the target DEX program.
package discovery

import (
	"fmt"
	"strings"
	"time"

	"solana-pool-sniper/internal/domain"
	"solana-pool-sniper/internal/solana"
)

// Known DEX program IDs.
const (
	// RaydiumLiquidityPoolV4 is the Raydium Liquidity Pool V4 program ID.
	RaydiumLiquidityPoolV4 = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
)

// PoolInitMarker appears in the log lines of a transaction that runs the
// pool-initialization instruction.
const PoolInitMarker = "initialize2"

// Positional account layout of the Raydium initialize2 instruction.
// The instruction references 10+ accounts; these indices are a fixed
// contract of the program's instruction encoding.
const (
	poolAddressIndex = 4
	tokenAIndex      = 8
	tokenBIndex      = 9

	// minPoolInitAccounts is the smallest account list that can be a
	// pool initialization. Shorter lists are other program instructions.
	minPoolInitAccounts = 10
)

// DecodeError reports a transaction whose outer shape was unreadable.
// Shape mismatches on individual instructions are not errors; they are
// skipped silently.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode transaction: %s", e.Reason)
}

// Decoder extracts PoolCreated events from parsed transactions.
// Decode is pure: no I/O, deterministic for a fixed input and clock.
type Decoder struct {
	programID string
	now       func() time.Time
}

// NewDecoder creates a decoder for the given DEX program ID.
// An empty programID selects Raydium Liquidity Pool V4.
func NewDecoder(programID string) *Decoder {
	if programID == "" {
		programID = RaydiumLiquidityPoolV4
	}
	return &Decoder{programID: programID, now: time.Now}
}

// ProgramID returns the DEX program this decoder matches.
func (d *Decoder) ProgramID() string {
	return d.programID
}

// ContainsInitMarker reports whether any log line carries the
// pool-initialization marker.
func (d *Decoder) ContainsInitMarker(logs []string) bool {
	for _, line := range logs {
		if strings.Contains(line, PoolInitMarker) {
			return true
		}
	}
	return false
}

// Decode extracts zero or more PoolCreated events from a fetched
// transaction. A transaction in a non-parsed encoding yields no events
// and no error; only an unreadable transaction is a DecodeError.
// Instructions of other programs, and program instructions referencing
// too few accounts to be a pool initialization, are skipped.
func (d *Decoder) Decode(tx *solana.Transaction) ([]domain.PoolCreated, error) {
	if tx == nil {
		return nil, &DecodeError{Reason: "nil transaction"}
	}

	if tx.Message == nil {
		// Node returned a non-parsed encoding; expected, not a fault.
		return nil, nil
	}

	var events []domain.PoolCreated
	for _, inst := range tx.Message.Instructions {
		if inst.ProgramID != d.programID {
			continue
		}
		if len(inst.Accounts) < minPoolInitAccounts {
			// Not a pool initialization call.
			continue
		}

		events = append(events, domain.PoolCreated{
			PoolAddress: inst.Accounts[poolAddressIndex],
			TokenA:      inst.Accounts[tokenAIndex],
			TokenB:      inst.Accounts[tokenBIndex],
			Liquidity:   0,
			Volume24h:   0,
			Timestamp:   d.now().Unix(),
			TxSignature: tx.Signature,
		})
	}

	return events, nil
}
