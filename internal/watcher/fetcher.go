package watcher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"solana-pool-sniper/internal/observability"
	"solana-pool-sniper/internal/solana"
)

const (
	fetchMaxAttempts = 3
	fetchBaseDelay   = 100 * time.Millisecond
)

// ErrNotFound reports a signature the node does not know about.
var ErrNotFound = errors.New("transaction not found")

// Fetcher retrieves confirmed transactions by signature.
type Fetcher interface {
	FetchTransaction(ctx context.Context, signature string) (*solana.Transaction, error)
}

// RetryingFetcher wraps an RPC client with a bounded per-signature
// retry budget: up to 3 attempts, the n-th preceded by a 100ms·2ⁿ⁻¹
// delay. Every signature gets a fresh budget; exhaustion is a
// definitive error the caller can skip on, never a crash.
type RetryingFetcher struct {
	rpc         solana.RPCClient
	maxAttempts int
	baseDelay   time.Duration
	metrics     *observability.Metrics
}

// NewRetryingFetcher creates a fetcher with the default retry budget.
func NewRetryingFetcher(rpc solana.RPCClient, metrics *observability.Metrics) *RetryingFetcher {
	return &RetryingFetcher{
		rpc:         rpc,
		maxAttempts: fetchMaxAttempts,
		baseDelay:   fetchBaseDelay,
		metrics:     metrics,
	}
}

// FetchTransaction fetches one transaction, retrying transient
// failures. A transaction the node has not indexed yet counts as a
// transient failure: freshly detected signatures routinely lag the
// getTransaction index by a few hundred milliseconds.
func (f *RetryingFetcher) FetchTransaction(ctx context.Context, signature string) (*solana.Transaction, error) {
	var lastErr error

	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		delay := f.baseDelay << (attempt - 1)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		tx, err := f.rpc.GetTransaction(ctx, signature)
		if err == nil && tx != nil {
			return tx, nil
		}
		if err == nil {
			err = ErrNotFound
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if f.metrics != nil {
			f.metrics.FetchRetries.Inc()
		}
		log.Printf("[fetch] attempt %d/%d for %s failed: %v", attempt, f.maxAttempts, signature, err)
	}

	if f.metrics != nil {
		f.metrics.FetchFailures.Inc()
	}
	return nil, fmt.Errorf("fetch %s after %d attempts: %w", signature, f.maxAttempts, lastErr)
}
