package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"solana-pool-sniper/internal/bus"
	"solana-pool-sniper/internal/observability"
)

// Manager owns one Monitor per configured feed endpoint and fans all
// of them into a shared bus.
type Manager struct {
	bus      *bus.Bus
	metrics  *observability.Metrics
	monitors []*Monitor
}

// NewManager creates a manager publishing to the given bus.
func NewManager(b *bus.Bus, metrics *observability.Metrics) *Manager {
	return &Manager{bus: b, metrics: metrics}
}

// AddMonitor registers a monitor for one endpoint. Must be called
// before Run; each monitor gets its own bus producer so per-source
// FIFO holds.
func (m *Manager) AddMonitor(url string, topics []string, reconnectDelay time.Duration) {
	name := fmt.Sprintf("feed-%d", len(m.monitors))
	producer := m.bus.Register(name)
	m.monitors = append(m.monitors, NewMonitor(url, topics, reconnectDelay, producer, m.metrics))
}

// Monitors returns the registered monitors.
func (m *Manager) Monitors() []*Monitor {
	return m.monitors
}

// Run starts every monitor and blocks until all have exited.
func (m *Manager) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, mon := range m.monitors {
		wg.Add(1)
		go func(mon *Monitor) {
			defer wg.Done()
			mon.Run(ctx)
		}(mon)
	}
	wg.Wait()
}
