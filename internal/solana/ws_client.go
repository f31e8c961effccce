package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// WSConfig configures WebSocket session behavior.
type WSConfig struct {
	// HandshakeTimeout bounds the initial dial.
	HandshakeTimeout time.Duration
	// SubscribeTimeout bounds the wait for a subscription confirmation.
	SubscribeTimeout time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		HandshakeTimeout: 10 * time.Second,
		SubscribeTimeout: 30 * time.Second,
		PingInterval:     30 * time.Second,
		ReadTimeout:      60 * time.Second,
		WriteTimeout:     10 * time.Second,
	}
}

// Dialer implements WSDialer for a fixed endpoint.
type Dialer struct {
	endpoint string
	config   WSConfig
}

// NewDialer creates a dialer for the given WebSocket endpoint.
func NewDialer(endpoint string, config *WSConfig) *Dialer {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}
	return &Dialer{endpoint: endpoint, config: cfg}
}

// Dial opens a new session to the endpoint.
func (d *Dialer) Dial(ctx context.Context) (LogSession, error) {
	return NewSession(ctx, d.endpoint, &d.config)
}

// Session implements LogSession over one gorilla/websocket connection.
// A session does not reconnect: when the underlying read fails, every
// subscription channel is closed and the session is dead.
type Session struct {
	endpoint string
	config   WSConfig

	conn      *websocket.Conn
	connMu    sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64

	// subs maps subscription ID to channel
	subs   map[int64]chan LogNotification
	subsMu sync.RWMutex

	// pendingSubs maps request ID to channel waiting for subscription ID
	pendingSubs   map[uint64]chan int64
	pendingSubsMu sync.Mutex

	// done signals shutdown
	done chan struct{}
	wg   sync.WaitGroup
}

// NewSession dials the endpoint and starts the reader.
func NewSession(ctx context.Context, endpoint string, config *WSConfig) (*Session, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: cfg.HandshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	s := &Session{
		endpoint:    endpoint,
		config:      cfg,
		conn:        conn,
		subs:        make(map[int64]chan LogNotification),
		pendingSubs: make(map[uint64]chan int64),
		done:        make(chan struct{}),
	}

	s.wg.Add(1)
	go s.readLoop()

	s.wg.Add(1)
	go s.pingLoop()

	return s, nil
}

// SubscribeLogs subscribes to program logs matching the filter.
func (s *Session) SubscribeLogs(ctx context.Context, filter LogsFilter) (<-chan LogNotification, error) {
	if s.closed.Load() {
		return nil, fmt.Errorf("session closed")
	}

	reqID := s.requestID.Add(1)

	mentionsFilter := make(map[string]interface{})
	if len(filter.Mentions) > 0 {
		mentionsFilter["mentions"] = filter.Mentions
	} else {
		mentionsFilter["all"] = nil
	}

	req := wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  "logsSubscribe",
		Params: []interface{}{
			mentionsFilter,
			map[string]string{"commitment": "confirmed"},
		},
	}

	confirmCh := make(chan int64, 1)
	s.pendingSubsMu.Lock()
	s.pendingSubs[reqID] = confirmCh
	s.pendingSubsMu.Unlock()

	s.connMu.Lock()
	s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	err := s.conn.WriteJSON(req)
	s.connMu.Unlock()

	if err != nil {
		s.pendingSubsMu.Lock()
		delete(s.pendingSubs, reqID)
		s.pendingSubsMu.Unlock()
		return nil, fmt.Errorf("write subscribe: %w", err)
	}

	// Wait for subscription confirmation
	var subID int64
	var ok bool
	select {
	case subID, ok = <-confirmCh:
		if !ok {
			return nil, fmt.Errorf("session closed")
		}
	case <-time.After(s.config.SubscribeTimeout):
		s.pendingSubsMu.Lock()
		delete(s.pendingSubs, reqID)
		s.pendingSubsMu.Unlock()
		return nil, fmt.Errorf("subscription timeout after %v", s.config.SubscribeTimeout)
	case <-s.done:
		return nil, fmt.Errorf("session closed")
	case <-ctx.Done():
		s.pendingSubsMu.Lock()
		delete(s.pendingSubs, reqID)
		s.pendingSubsMu.Unlock()
		return nil, ctx.Err()
	}

	// Large buffer absorbs bursts; sends block rather than drop.
	ch := make(chan LogNotification, 10000)
	s.subsMu.Lock()
	if s.closed.Load() {
		// The read loop already swept the subscription map; registering
		// now would leave a channel nobody ever closes.
		s.subsMu.Unlock()
		return nil, fmt.Errorf("session closed")
	}
	s.subs[subID] = ch
	s.subsMu.Unlock()

	return ch, nil
}

// Close closes the connection and all subscription channels.
func (s *Session) Close() error {
	if s.closed.Swap(true) {
		return nil // Already closed
	}

	close(s.done)

	s.connMu.Lock()
	s.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	s.conn.Close()
	s.connMu.Unlock()

	// The read loop closes the subscription channels on its way out;
	// waiting for it guarantees they are closed when Close returns.
	s.wg.Wait()
	return nil
}

// fail marks the session dead after a transport error, waking every
// subscriber via channel close. The caller decides whether to redial.
func (s *Session) fail() {
	if s.closed.Swap(true) {
		return
	}
	close(s.done)

	s.connMu.Lock()
	s.conn.Close()
	s.connMu.Unlock()
}

// closeChannels is called from the read loop only. The loop is the sole
// sender on subscription channels, so closing them anywhere else would
// race a send against the close.
func (s *Session) closeChannels() {
	s.subsMu.Lock()
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
	s.subsMu.Unlock()

	s.pendingSubsMu.Lock()
	for id, ch := range s.pendingSubs {
		close(ch)
		delete(s.pendingSubs, id)
	}
	s.pendingSubsMu.Unlock()
}

// readLoop reads messages and dispatches to subscribers until the
// connection ends. It owns the subscription channels and closes them
// on exit.
func (s *Session) readLoop() {
	defer s.wg.Done()
	defer s.closeChannels()

	for {
		s.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))

		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if !s.closed.Load() {
				log.Printf("[ws] read error, session ending: %v", err)
				s.fail()
			}
			return
		}

		s.handleMessage(message)
	}
}

// handleMessage processes incoming WebSocket message.
func (s *Session) handleMessage(message []byte) {
	// Try to parse as subscription response first
	var resp wsSubscribeResponse
	if err := json.Unmarshal(message, &resp); err == nil && resp.Result > 0 {
		s.handleSubscribeResponse(&resp)
		return
	}

	// Try to parse as notification
	var notif wsNotification
	if err := json.Unmarshal(message, &notif); err == nil && notif.Method == "logsNotification" {
		s.handleLogsNotification(&notif)
		return
	}

	// Check for error response
	var errResp struct {
		JSONRPC string `json:"jsonrpc"`
		ID      uint64 `json:"id"`
		Error   *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(message, &errResp); err == nil && errResp.Error != nil {
		// Subscription will time out; nothing else to do here.
		log.Printf("[ws] error response: code=%d msg=%s", errResp.Error.Code, errResp.Error.Message)
	}
}

// handleSubscribeResponse handles subscription confirmation.
func (s *Session) handleSubscribeResponse(resp *wsSubscribeResponse) {
	s.pendingSubsMu.Lock()
	ch, ok := s.pendingSubs[resp.ID]
	if ok {
		delete(s.pendingSubs, resp.ID)
	}
	s.pendingSubsMu.Unlock()

	if ok {
		select {
		case ch <- resp.Result:
		default:
		}
	}
}

// handleLogsNotification dispatches log notification to subscriber.
func (s *Session) handleLogsNotification(notif *wsNotification) {
	if notif.Params == nil {
		return
	}

	subID := notif.Params.Subscription
	value := notif.Params.Result.Value

	logNotif := LogNotification{
		Signature: value.Signature,
		Logs:      value.Logs,
		Err:       value.Err,
	}

	if notif.Params.Result.Context != nil {
		logNotif.Slot = notif.Params.Result.Context.Slot
	}

	s.subsMu.RLock()
	ch, ok := s.subs[subID]
	s.subsMu.RUnlock()

	if ok {
		// Block until we can send - never drop events
		select {
		case ch <- logNotif:
		case <-s.done:
			return
		}
	}
}

// pingLoop sends periodic ping frames to keep connection alive.
func (s *Session) pingLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.connMu.Lock()
			s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				// Connection might be dead, reader will notice
			}
			s.connMu.Unlock()
		}
	}
}

// WebSocket message types

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type wsSubscribeResponse struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Result  int64  `json:"result"` // subscription ID
}

type wsNotification struct {
	JSONRPC string                `json:"jsonrpc"`
	Method  string                `json:"method"`
	Params  *wsNotificationParams `json:"params"`
}

type wsNotificationParams struct {
	Subscription int64                `json:"subscription"`
	Result       wsNotificationResult `json:"result"`
}

type wsNotificationResult struct {
	Context *wsContext  `json:"context"`
	Value   wsLogsValue `json:"value"`
}

type wsContext struct {
	Slot int64 `json:"slot"`
}

type wsLogsValue struct {
	Signature string      `json:"signature"`
	Logs      []string    `json:"logs"`
	Err       interface{} `json:"err"`
}
