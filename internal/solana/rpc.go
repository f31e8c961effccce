package solana

import "context"

// RPCClient defines the Solana JSON-RPC HTTP surface used by the pipeline.
type RPCClient interface {
	// GetTransaction retrieves a confirmed transaction by signature,
	// requesting the fully-parsed (jsonParsed) instruction encoding.
	// Returns nil without error when the transaction is not found.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)

	// GetBalance retrieves the lamport balance of an account.
	GetBalance(ctx context.Context, pubkey string) (uint64, error)
}

// Transaction is a confirmed transaction fetched with jsonParsed encoding.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime int64 // Unix timestamp (seconds), 0 when unavailable
	Message   *ParsedMessage
}

// ParsedMessage is the parsed form of a transaction message.
// Nil on a Transaction means the node returned a non-parsed encoding.
type ParsedMessage struct {
	AccountKeys  []string
	Instructions []ParsedInstruction
}

// ParsedInstruction is one top-level instruction with its resolved
// account addresses. Program-owned instructions the node cannot fully
// interpret arrive in this partially-decoded shape: program id plus the
// ordered account list.
type ParsedInstruction struct {
	ProgramID string
	Accounts  []string
}
