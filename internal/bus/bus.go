// Package bus provides the bounded fan-in queue between event
// producers (chain watcher, feed monitors) and the single consumer.
package bus

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"solana-pool-sniper/internal/domain"
)

// DefaultCapacity is the bus queue depth when none is configured.
const DefaultCapacity = 1000

// Bus is a bounded multi-producer, single-consumer event queue.
// Ordering is FIFO per producer; interleaving across producers is
// unspecified. When the queue is full, publishers block rather than
// drop. The queue closes once every registered producer has detached,
// which is the consumer's shutdown signal.
type Bus struct {
	ch chan domain.Event

	mu        sync.Mutex
	producers int
	closed    bool

	claimed atomic.Bool
}

// New creates a bus with the given capacity (DefaultCapacity if <= 0).
func New(capacity int) *Bus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Bus{
		ch: make(chan domain.Event, capacity),
	}
}

// Events returns the single receive handle. The bus hands ownership of
// the channel to exactly one consumer; subsequent calls return nil.
func (b *Bus) Events() <-chan domain.Event {
	if b.claimed.Swap(true) {
		return nil
	}
	return b.ch
}

// Register attaches a named producer. Every producer must be
// registered before the pipeline starts and must call Close when its
// task exits; the bus closes after the last one detaches.
func (b *Bus) Register(name string) *Producer {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		// Late registration after shutdown; the producer exists but
		// every publish will fail.
		return &Producer{bus: b, name: name, done: true}
	}
	b.producers++
	return &Producer{bus: b, name: name}
}

func (b *Bus) detach() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.producers--
	if b.producers == 0 && !b.closed {
		b.closed = true
		close(b.ch)
	}
}

// Producer is one attached publisher. It is owned by a single task and
// is not safe for concurrent use.
type Producer struct {
	bus  *Bus
	name string
	done bool
}

// Name identifies the producer in logs.
func (p *Producer) Name() string {
	return p.name
}

// Publish enqueues one event, blocking while the queue is full.
// It fails only when the context ends or the producer is closed;
// events are never silently dropped.
func (p *Producer) Publish(ctx context.Context, ev domain.Event) error {
	if p.done {
		return fmt.Errorf("producer %s closed", p.name)
	}
	select {
	case p.bus.ch <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close detaches the producer. Safe to call once per producer; the bus
// closes its queue after the last detach.
func (p *Producer) Close() {
	if p.done {
		return
	}
	p.done = true
	p.bus.detach()
}
