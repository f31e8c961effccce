package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-pool-sniper/internal/bus"
	"solana-pool-sniper/internal/domain"
	"solana-pool-sniper/internal/trade"
	"solana-pool-sniper/internal/wallet"
)

type notifyCall struct {
	txSignature, poolAddress, tokenA, tokenB string
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []notifyCall
	err   error
}

func (n *fakeNotifier) NotifyPoolCreated(ctx context.Context, txSignature, poolAddress, tokenA, tokenB string) error {
	n.mu.Lock()
	n.calls = append(n.calls, notifyCall{txSignature, poolAddress, tokenA, tokenB})
	n.mu.Unlock()
	return n.err
}

func (n *fakeNotifier) callCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

type snipeCall struct {
	wallet string
	token  string
	amount float64
}

type fakeExecutor struct {
	mu    sync.Mutex
	calls []snipeCall
	err   error
}

func (e *fakeExecutor) Snipe(ctx context.Context, w *wallet.Wallet, tokenAddress string, amountSOL float64) (string, error) {
	e.mu.Lock()
	e.calls = append(e.calls, snipeCall{w.Name, tokenAddress, amountSOL})
	e.mu.Unlock()
	if e.err != nil {
		return "", e.err
	}
	return "txsig", nil
}

func (e *fakeExecutor) snapshot() []snipeCall {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]snipeCall(nil), e.calls...)
}

func testWallets(n int) []*wallet.Wallet {
	wallets := make([]*wallet.Wallet, n)
	for i := range wallets {
		wallets[i] = &wallet.Wallet{
			Name:    fmt.Sprintf("wallet%d", i+1),
			Address: fmt.Sprintf("Addr%d", i+1),
		}
	}
	return wallets
}

// runPipeline publishes the events, closes the producer and runs the
// orchestrator to completion.
func runPipeline(t *testing.T, o *Orchestrator, p *bus.Producer, events ...domain.Event) {
	t.Helper()
	for _, ev := range events {
		require.NoError(t, p.Publish(context.Background(), ev))
	}
	p.Close()

	done := make(chan error, 1)
	go func() { done <- o.Run(context.Background()) }()

	select {
	case err := <-done:
		require.NoError(t, err, "Run must return nil on a closed bus")
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after bus close")
	}
}

func TestDispatch_PoolCreatedNotifies(t *testing.T) {
	b := bus.New(10)
	notifier := &fakeNotifier{}
	o, err := New(Options{Bus: b, Notifier: notifier})
	require.NoError(t, err)

	p := b.Register("test")
	runPipeline(t, o, p, domain.PoolCreated{
		PoolAddress: "Pool111",
		TokenA:      "TokA",
		TokenB:      "TokB",
		TxSignature: "sig111",
	})

	require.Equal(t, 1, notifier.callCount())
	call := notifier.calls[0]
	assert.Equal(t, "sig111", call.txSignature)
	assert.Equal(t, "Pool111", call.poolAddress)
	assert.Equal(t, "TokA", call.tokenA)
	assert.Equal(t, "TokB", call.tokenB)

	stats := o.Stats()
	assert.Equal(t, uint64(1), stats.EventsProcessed)
	assert.Equal(t, uint64(1), stats.PoolsDetected)
	assert.False(t, stats.LastDetection.IsZero())
}

func TestDispatch_NotifierFailureDoesNotStop(t *testing.T) {
	b := bus.New(10)
	notifier := &fakeNotifier{err: errors.New("telegram down")}
	o, err := New(Options{Bus: b, Notifier: notifier})
	require.NoError(t, err)

	p := b.Register("test")
	runPipeline(t, o, p,
		domain.PoolCreated{PoolAddress: "Pool1"},
		domain.PoolCreated{PoolAddress: "Pool2"},
	)

	assert.Equal(t, 2, notifier.callCount(), "delivery failure must not suppress later events")
	assert.Equal(t, uint64(2), o.Stats().PoolsDetected)
}

func TestDispatch_AutoSnipeAllWallets(t *testing.T) {
	b := bus.New(10)
	executor := &fakeExecutor{}
	o, err := New(Options{
		Bus:         b,
		Notifier:    &fakeNotifier{},
		Executor:    executor,
		Wallets:     testWallets(2),
		AutoSnipe:   true,
		SnipeAmount: 0.05,
	})
	require.NoError(t, err)

	p := b.Register("test")
	runPipeline(t, o, p, domain.PoolCreated{
		PoolAddress: "Pool111",
		TokenA:      "So11111111111111111111111111111111111111112",
		TokenB:      "NewToken111",
	})

	calls := executor.snapshot()
	require.Len(t, calls, 2)
	for _, c := range calls {
		assert.Equal(t, "NewToken111", c.token, "the non-SOL side is the snipe target")
		assert.Equal(t, 0.05, c.amount)
	}
	assert.Equal(t, "wallet1", calls[0].wallet)
	assert.Equal(t, "wallet2", calls[1].wallet)

	stats := o.Stats()
	assert.Equal(t, uint64(2), stats.TradesAttempted)
	assert.Equal(t, uint64(0), stats.TradesFailed)
}

func TestDispatch_WalletFailureIsolated(t *testing.T) {
	b := bus.New(10)
	executor := &fakeExecutor{err: errors.New("swap rejected")}
	o, err := New(Options{
		Bus:         b,
		Notifier:    &fakeNotifier{},
		Executor:    executor,
		Wallets:     testWallets(2),
		AutoSnipe:   true,
		SnipeAmount: 0.05,
	})
	require.NoError(t, err)

	p := b.Register("test")
	runPipeline(t, o, p,
		domain.PoolCreated{PoolAddress: "Pool1", TokenA: "TokA", TokenB: "TokB"},
		domain.PoolCreated{PoolAddress: "Pool2", TokenA: "TokA", TokenB: "TokB"},
	)

	// Both wallets attempted for both pools despite every snipe failing.
	assert.Len(t, executor.snapshot(), 4)
	stats := o.Stats()
	assert.Equal(t, uint64(4), stats.TradesAttempted)
	assert.Equal(t, uint64(4), stats.TradesFailed)
	assert.Equal(t, uint64(2), stats.PoolsDetected)
}

func TestDispatch_NotSupportedIsNormalFailure(t *testing.T) {
	b := bus.New(10)
	executor := &fakeExecutor{err: fmt.Errorf("jupiter swap: %w", trade.ErrNotSupported)}
	o, err := New(Options{
		Bus:         b,
		Notifier:    &fakeNotifier{},
		Executor:    executor,
		Wallets:     testWallets(1),
		AutoSnipe:   true,
		SnipeAmount: 0.05,
	})
	require.NoError(t, err)

	p := b.Register("test")
	runPipeline(t, o, p, domain.PoolCreated{PoolAddress: "Pool1", TokenA: "TokA", TokenB: "TokB"})

	stats := o.Stats()
	assert.Equal(t, uint64(1), stats.TradesAttempted)
	assert.Equal(t, uint64(1), stats.TradesFailed)
}

func TestDispatch_InformationalEvents(t *testing.T) {
	b := bus.New(10)
	notifier := &fakeNotifier{}
	executor := &fakeExecutor{}
	o, err := New(Options{
		Bus:       b,
		Notifier:  notifier,
		Executor:  executor,
		Wallets:   testWallets(1),
		AutoSnipe: true,
	})
	require.NoError(t, err)

	p := b.Register("test")
	runPipeline(t, o, p,
		domain.TokenListed{TokenAddress: "Tok1", Symbol: "NEW"},
		domain.PriceChanged{TokenAddress: "Tok1", Price: 0.5},
		domain.FeedError{Message: "upstream hiccup"},
	)

	assert.Equal(t, 0, notifier.callCount(), "informational events must not notify")
	assert.Empty(t, executor.snapshot(), "informational events must not trade")
	assert.Equal(t, uint64(3), o.Stats().EventsProcessed)
}

func TestRun_ContextCancellation(t *testing.T) {
	b := bus.New(10)
	o, err := New(Options{Bus: b, Notifier: &fakeNotifier{}})
	require.NoError(t, err)

	// Keep a producer attached so the bus stays open.
	p := b.Register("held")
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not honor cancellation")
	}
}

func TestNew_SecondConsumerRejected(t *testing.T) {
	b := bus.New(10)
	_, err := New(Options{Bus: b})
	require.NoError(t, err)

	_, err = New(Options{Bus: b})
	assert.Error(t, err)
}

func TestTargetToken(t *testing.T) {
	assert.Equal(t, "Tok", targetToken(domain.PoolCreated{TokenA: wsolMint, TokenB: "Tok"}))
	assert.Equal(t, "Tok", targetToken(domain.PoolCreated{TokenA: "Tok", TokenB: wsolMint}))
	assert.Equal(t, "A", targetToken(domain.PoolCreated{TokenA: "A", TokenB: "B"}))
	assert.Equal(t, "B", targetToken(domain.PoolCreated{TokenB: "B"}))
	assert.Equal(t, "", targetToken(domain.PoolCreated{}))
}
