// Package watcher drives the chain-log side of the pipeline: it holds
// a logsSubscribe subscription on the DEX program and turns candidate
// transactions into pool-creation events on the bus.
package watcher

import (
	"context"
	"errors"
	"log"
	"sync/atomic"
	"time"

	"github.com/mr-tron/base58"

	"solana-pool-sniper/internal/bus"
	"solana-pool-sniper/internal/discovery"
	"solana-pool-sniper/internal/domain"
	"solana-pool-sniper/internal/observability"
	"solana-pool-sniper/internal/solana"
)

// DefaultBackoff is the fixed delay between subscribe cycles after a
// subscription is lost. Backoff here is deliberately not exponential;
// the exponential policy lives inside the transaction fetcher.
const DefaultBackoff = 5 * time.Second

// signatureLen is the byte length of a decoded transaction signature.
const signatureLen = 64

// Watcher subscribes to program-mentions log notifications and runs
// fetch + decode on every candidate signature. It cycles
// Disconnected → Subscribing → Streaming → Backoff for the life of its
// context; no failure inside one cycle escapes the loop.
type Watcher struct {
	dialer   solana.WSDialer
	fetcher  Fetcher
	decoder  *discovery.Decoder
	producer *bus.Producer
	backoff  time.Duration
	metrics  *observability.Metrics

	state atomic.Int32
}

// Options configures a Watcher.
type Options struct {
	Dialer   solana.WSDialer
	Fetcher  Fetcher
	Decoder  *discovery.Decoder
	Producer *bus.Producer
	// Backoff between subscribe cycles; DefaultBackoff when zero.
	Backoff time.Duration
	Metrics *observability.Metrics
}

// New creates a Watcher.
func New(opts Options) *Watcher {
	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = DefaultBackoff
	}
	return &Watcher{
		dialer:   opts.Dialer,
		fetcher:  opts.Fetcher,
		decoder:  opts.Decoder,
		producer: opts.Producer,
		backoff:  backoff,
		metrics:  opts.Metrics,
	}
}

// State returns the watcher's current connection state.
func (w *Watcher) State() domain.ConnectionState {
	return domain.ConnectionState(w.state.Load())
}

func (w *Watcher) setState(s domain.ConnectionState) {
	w.state.Store(int32(s))
}

// Run drives the subscribe/stream cycle until the context ends.
// The producer handle is closed on exit so the bus can drain.
func (w *Watcher) Run(ctx context.Context) {
	defer w.producer.Close()
	defer w.setState(domain.StateDisconnected)

	program := w.decoder.ProgramID()
	first := true

	for {
		if ctx.Err() != nil {
			return
		}
		if !first {
			if w.metrics != nil {
				w.metrics.WatcherReconnects.Inc()
			}
		}
		first = false

		w.setState(domain.StateSubscribing)
		session, err := w.dialer.Dial(ctx)
		if err != nil {
			log.Printf("[watcher] failed to connect: %v, retrying in %v", err, w.backoff)
			if !w.sleep(ctx) {
				return
			}
			continue
		}

		logsCh, err := session.SubscribeLogs(ctx, solana.LogsFilter{
			Mentions: []string{program},
		})
		if err != nil {
			session.Close()
			log.Printf("[watcher] failed to subscribe: %v, retrying in %v", err, w.backoff)
			if !w.sleep(ctx) {
				return
			}
			continue
		}

		log.Printf("[watcher] subscribed to program: %s", program)
		w.setState(domain.StateStreaming)
		w.stream(ctx, logsCh)
		session.Close()

		if ctx.Err() != nil {
			return
		}

		log.Printf("[watcher] subscription ended, reconnecting in %v", w.backoff)
		w.setState(domain.StateBackoff)
		if !w.sleep(ctx) {
			return
		}
	}
}

// sleep waits one backoff period; false means the context ended.
func (w *Watcher) sleep(ctx context.Context) bool {
	select {
	case <-time.After(w.backoff):
		return true
	case <-ctx.Done():
		return false
	}
}

// stream consumes one subscription until its channel closes.
func (w *Watcher) stream(ctx context.Context, logsCh <-chan solana.LogNotification) {
	for {
		select {
		case <-ctx.Done():
			return
		case notif, ok := <-logsCh:
			if !ok {
				return
			}
			w.processNotification(ctx, notif)
		}
	}
}

// processNotification runs the marker gate, fetch and decode for one
// log notification. Every failure path skips the notification; none
// stops the stream.
func (w *Watcher) processNotification(ctx context.Context, notif solana.LogNotification) {
	// Failed transactions cannot have initialized a pool.
	if notif.Err != nil {
		return
	}

	if !w.decoder.ContainsInitMarker(notif.Logs) {
		// Routine program activity; not worth more than a debug line.
		log.Printf("[watcher] no pool init in tx %s (%d log lines)", notif.Signature, len(notif.Logs))
		return
	}

	log.Printf("[watcher] detected potential new pool: %s", notif.Signature)

	if err := validateSignature(notif.Signature); err != nil {
		log.Printf("[watcher] bad signature %q: %v", notif.Signature, err)
		return
	}

	tx, err := w.fetcher.FetchTransaction(ctx, notif.Signature)
	if err != nil {
		// Budget exhausted; skip this candidate and keep streaming.
		log.Printf("[watcher] skipping %s: %v", notif.Signature, err)
		return
	}

	events, err := w.decoder.Decode(tx)
	if err != nil {
		if w.metrics != nil {
			w.metrics.DecodeErrors.Inc()
		}
		log.Printf("[watcher] failed to decode %s: %v", notif.Signature, err)
		return
	}

	for _, ev := range events {
		log.Printf("[watcher] new pool %s: %s <-> %s", ev.PoolAddress, ev.TokenA, ev.TokenB)
		if w.metrics != nil {
			w.metrics.PoolsDetected.Inc()
			w.metrics.EventsPublished.WithLabelValues(w.producer.Name()).Inc()
		}
		if err := w.producer.Publish(ctx, ev); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			log.Printf("[watcher] failed to publish pool event: %v", err)
		}
	}
}

// validateSignature checks that a signature is base58 of the right
// length before spending RPC calls on it.
func validateSignature(sig string) error {
	raw, err := base58.Decode(sig)
	if err != nil {
		return err
	}
	if len(raw) != signatureLen {
		return errors.New("wrong signature length")
	}
	return nil
}
