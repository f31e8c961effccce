// Package orchestrator consumes the event bus and dispatches each
// event to its side effects: notifications, optional auto-trading,
// informational logging.
package orchestrator

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"solana-pool-sniper/internal/bus"
	"solana-pool-sniper/internal/domain"
	"solana-pool-sniper/internal/notify"
	"solana-pool-sniper/internal/observability"
	"solana-pool-sniper/internal/trade"
	"solana-pool-sniper/internal/wallet"
)

// wsolMint is the wrapped-SOL mint. Auto-snipe buys the other side of
// a SOL-paired pool.
const wsolMint = "So11111111111111111111111111111111111111112"

// Stats is a snapshot of orchestrator counters.
type Stats struct {
	EventsProcessed uint64
	PoolsDetected   uint64
	TradesAttempted uint64
	TradesFailed    uint64
	LastDetection   time.Time
}

// Orchestrator drains the bus and runs the dispatch table. Failures of
// one side effect never stop the loop or suppress the remaining side
// effects for the same event.
type Orchestrator struct {
	events   <-chan domain.Event
	notifier notify.Notifier
	executor trade.Executor
	wallets  []*wallet.Wallet
	metrics  *observability.Metrics

	autoSnipe   bool
	snipeAmount float64

	mu    sync.Mutex
	stats Stats
}

// Options for creating an Orchestrator.
type Options struct {
	Bus      *bus.Bus
	Notifier notify.Notifier
	Executor trade.Executor
	Wallets  []*wallet.Wallet
	Metrics  *observability.Metrics

	// AutoSnipe enables trade attempts on every detected pool.
	AutoSnipe bool
	// SnipeAmount is the SOL spent per wallet per snipe.
	SnipeAmount float64
}

// New creates an Orchestrator. It claims the bus's consumer side, so
// construct it before any competing consumer.
func New(opts Options) (*Orchestrator, error) {
	events := opts.Bus.Events()
	if events == nil {
		return nil, errors.New("bus already has a consumer")
	}
	return &Orchestrator{
		events:      events,
		notifier:    opts.Notifier,
		executor:    opts.Executor,
		wallets:     opts.Wallets,
		metrics:     opts.Metrics,
		autoSnipe:   opts.AutoSnipe,
		snipeAmount: opts.SnipeAmount,
	}, nil
}

// Stats returns a snapshot of the counters.
func (o *Orchestrator) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stats
}

// Run processes events until the bus closes or the context ends.
// A closed bus is a normal shutdown: Run returns nil.
func (o *Orchestrator) Run(ctx context.Context) error {
	log.Printf("[orchestrator] started (auto_snipe=%t, wallets=%d)", o.autoSnipe, len(o.wallets))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-o.events:
			if !ok {
				log.Printf("[orchestrator] event stream closed, stopping")
				return nil
			}
			o.dispatch(ctx, ev)
		}
	}
}

// dispatch routes one event by kind.
func (o *Orchestrator) dispatch(ctx context.Context, ev domain.Event) {
	o.mu.Lock()
	o.stats.EventsProcessed++
	o.mu.Unlock()

	if o.metrics != nil {
		o.metrics.EventsDispatched.WithLabelValues(string(ev.Kind())).Inc()
	}

	switch e := ev.(type) {
	case domain.PoolCreated:
		o.handlePoolCreated(ctx, e)
	case domain.TokenListed:
		log.Printf("[orchestrator] token listed: %s (%s) liquidity=%f",
			e.Symbol, e.TokenAddress, e.InitialLiquidity)
	case domain.PriceChanged:
		log.Printf("[orchestrator] price update: %s price=%f change=%f%% volume=%f",
			e.TokenAddress, e.Price, e.PriceChange24h, e.Volume24h)
	case domain.FeedError:
		log.Printf("[orchestrator] WARN: feed error: %s", e.Message)
	default:
		log.Printf("[orchestrator] WARN: unhandled event kind %q", ev.Kind())
	}
}

func (o *Orchestrator) handlePoolCreated(ctx context.Context, ev domain.PoolCreated) {
	o.mu.Lock()
	o.stats.PoolsDetected++
	o.stats.LastDetection = time.Now()
	o.mu.Unlock()

	log.Printf("[orchestrator] new pool detected: %s (tokenA=%s tokenB=%s tx=%s)",
		ev.PoolAddress, ev.TokenA, ev.TokenB, ev.TxSignature)

	if o.notifier != nil {
		if err := o.notifier.NotifyPoolCreated(ctx, ev.TxSignature, ev.PoolAddress, ev.TokenA, ev.TokenB); err != nil {
			if o.metrics != nil {
				o.metrics.NotifyFailures.Inc()
			}
			log.Printf("[orchestrator] WARN: notification failed: %v", err)
		}
	}

	if o.autoSnipe {
		o.snipe(ctx, ev)
	}
}

// snipe attempts a buy from every wallet. One wallet's failure never
// blocks the others.
func (o *Orchestrator) snipe(ctx context.Context, ev domain.PoolCreated) {
	target := targetToken(ev)
	if target == "" {
		log.Printf("[orchestrator] WARN: pool %s has no snipeable token", ev.PoolAddress)
		return
	}

	for _, w := range o.wallets {
		o.mu.Lock()
		o.stats.TradesAttempted++
		o.mu.Unlock()

		sig, err := o.executor.Snipe(ctx, w, target, o.snipeAmount)
		if err != nil {
			o.mu.Lock()
			o.stats.TradesFailed++
			o.mu.Unlock()
			if o.metrics != nil {
				o.metrics.TradeFailures.Inc()
			}
			if errors.Is(err, trade.ErrNotSupported) {
				log.Printf("[orchestrator] snipe skipped for wallet %s: %v", w.Name, err)
			} else {
				log.Printf("[orchestrator] WARN: snipe failed for wallet %s: %v", w.Name, err)
			}
			continue
		}
		log.Printf("[orchestrator] snipe succeeded for wallet %s: tx=%s", w.Name, sig)
	}
}

// targetToken picks the non-SOL side of the pool. If neither side is
// wrapped SOL, the first token is assumed to be the new listing.
func targetToken(ev domain.PoolCreated) string {
	switch {
	case ev.TokenA == wsolMint:
		return ev.TokenB
	case ev.TokenB == wsolMint:
		return ev.TokenA
	case ev.TokenA != "":
		return ev.TokenA
	default:
		return ev.TokenB
	}
}
