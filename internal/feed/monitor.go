// Package feed normalizes push-based external data streams into
// pipeline events. One Monitor owns one endpoint and keeps it alive
// for the life of the process.
package feed

import (
	"context"
	"encoding/json"
	"log"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"solana-pool-sniper/internal/domain"
	"solana-pool-sniper/internal/observability"
)

// DefaultReconnectDelay applies when a monitor is configured without one.
const DefaultReconnectDelay = 5 * time.Second

// DefaultTopics is the subscription set sent in the handshake.
var DefaultTopics = []string{"poolUpdates", "tokenListings", "priceUpdates"}

// Publisher is the bus-facing side of a monitor.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, ev domain.Event) error
}

// Monitor maintains one feed connection: subscribe handshake, frame
// parsing, typed event emission, reconnect on any transport failure.
// Malformed input is dropped with a warning; it never ends the
// connection or the monitor.
type Monitor struct {
	url            string
	topics         []string
	reconnectDelay time.Duration
	producer       Publisher
	metrics        *observability.Metrics

	handshakeTimeout time.Duration
	writeTimeout     time.Duration

	state atomic.Int32
}

// NewMonitor creates a monitor for one feed endpoint.
func NewMonitor(url string, topics []string, reconnectDelay time.Duration, producer Publisher, metrics *observability.Metrics) *Monitor {
	if len(topics) == 0 {
		topics = DefaultTopics
	}
	if reconnectDelay <= 0 {
		reconnectDelay = DefaultReconnectDelay
	}
	return &Monitor{
		url:              url,
		topics:           topics,
		reconnectDelay:   reconnectDelay,
		producer:         producer,
		metrics:          metrics,
		handshakeTimeout: 10 * time.Second,
		writeTimeout:     10 * time.Second,
	}
}

// URL returns the monitored endpoint.
func (m *Monitor) URL() string {
	return m.url
}

// State returns the monitor's current connection state.
func (m *Monitor) State() domain.ConnectionState {
	return domain.ConnectionState(m.state.Load())
}

func (m *Monitor) setState(s domain.ConnectionState) {
	m.state.Store(int32(s))
}

// Run drives the connect/subscribe/read cycle until the context ends.
// The producer handle is closed on exit.
func (m *Monitor) Run(ctx context.Context) {
	defer func() {
		if c, ok := m.producer.(interface{ Close() }); ok {
			c.Close()
		}
	}()
	defer m.setState(domain.StateDisconnected)

	log.Printf("[feed] starting monitoring for: %s", m.url)

	first := true
	for {
		if ctx.Err() != nil {
			return
		}
		if !first && m.metrics != nil {
			m.metrics.FeedReconnects.WithLabelValues(m.url).Inc()
		}
		first = false

		m.setState(domain.StateSubscribing)
		dialer := websocket.Dialer{HandshakeTimeout: m.handshakeTimeout}
		conn, _, err := dialer.DialContext(ctx, m.url, nil)
		if err != nil {
			log.Printf("[feed] failed to connect to %s: %v", m.url, err)
			if !m.sleep(ctx) {
				return
			}
			continue
		}

		if err := m.subscribe(conn); err != nil {
			// Handshake failure never enters Streaming.
			log.Printf("[feed] failed to send subscription to %s: %v", m.url, err)
			conn.Close()
			if !m.sleep(ctx) {
				return
			}
			continue
		}

		log.Printf("[feed] connected to %s", m.url)
		m.setState(domain.StateStreaming)
		m.readFrames(ctx, conn)
		conn.Close()

		if ctx.Err() != nil {
			return
		}

		m.setState(domain.StateBackoff)
		if !m.sleep(ctx) {
			return
		}
	}
}

// sleep waits one reconnect delay; false means the context ended.
func (m *Monitor) sleep(ctx context.Context) bool {
	select {
	case <-time.After(m.reconnectDelay):
		return true
	case <-ctx.Done():
		return false
	}
}

// subscribeRequest is the outbound handshake frame.
type subscribeRequest struct {
	JSONRPC string   `json:"jsonrpc"`
	ID      int      `json:"id"`
	Method  string   `json:"method"`
	Params  []string `json:"params"`
}

// subscribe sends the topic handshake; it must complete before any
// inbound frame is consumed.
func (m *Monitor) subscribe(conn *websocket.Conn) error {
	conn.SetWriteDeadline(time.Now().Add(m.writeTimeout))
	return conn.WriteJSON(subscribeRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "subscribe",
		Params:  m.topics,
	})
}

// readFrames consumes inbound frames until the connection ends.
func (m *Monitor) readFrames(ctx context.Context, conn *websocket.Conn) {
	// Unblock the read when the context ends.
	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()
	defer close(stop)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("[feed] connection to %s ended: %v", m.url, err)
			m.publish(ctx, domain.FeedError{Message: err.Error()})
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		m.handleFrame(ctx, data)
	}
}

// feedFrame is an inbound notification frame.
type feedFrame struct {
	Params *feedParams `json:"params"`
}

type feedParams struct {
	Method string          `json:"method"`
	Result json.RawMessage `json:"result"`
}

// handleFrame parses one text frame and emits the matching event.
// Anything unparsable is warned and dropped.
func (m *Monitor) handleFrame(ctx context.Context, data []byte) {
	var frame feedFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		m.warnMalformed("frame", err)
		return
	}
	if frame.Params == nil || frame.Params.Method == "" {
		m.warnMalformed("frame", nil)
		return
	}

	switch frame.Params.Method {
	case "poolUpdate":
		var ev domain.PoolCreated
		if err := json.Unmarshal(frame.Params.Result, &ev); err != nil {
			m.warnMalformed("poolUpdate payload", err)
			return
		}
		m.publish(ctx, ev)
	case "tokenListing":
		var ev domain.TokenListed
		if err := json.Unmarshal(frame.Params.Result, &ev); err != nil {
			m.warnMalformed("tokenListing payload", err)
			return
		}
		m.publish(ctx, ev)
	case "priceUpdate":
		var ev domain.PriceChanged
		if err := json.Unmarshal(frame.Params.Result, &ev); err != nil {
			m.warnMalformed("priceUpdate payload", err)
			return
		}
		m.publish(ctx, ev)
	default:
		log.Printf("[feed] WARN: unknown method %q from %s", frame.Params.Method, m.url)
	}
}

func (m *Monitor) warnMalformed(what string, err error) {
	if m.metrics != nil {
		m.metrics.MalformedFrames.WithLabelValues(m.url).Inc()
	}
	if err != nil {
		log.Printf("[feed] WARN: malformed %s from %s: %v", what, m.url, err)
	} else {
		log.Printf("[feed] WARN: malformed %s from %s", what, m.url)
	}
}

func (m *Monitor) publish(ctx context.Context, ev domain.Event) {
	if m.metrics != nil {
		m.metrics.EventsPublished.WithLabelValues(m.producer.Name()).Inc()
	}
	if err := m.producer.Publish(ctx, ev); err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Printf("[feed] failed to publish %s event: %v", ev.Kind(), err)
	}
}
