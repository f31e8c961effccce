package solana

import "context"

// WSDialer opens WebSocket sessions to the chain node. The watcher
// dials a fresh session per subscribe cycle; reconnect policy lives
// with the watcher, not the transport.
type WSDialer interface {
	Dial(ctx context.Context) (LogSession, error)
}

// LogSession is a single live connection capable of log subscriptions.
// Subscription channels close when the session ends; a closed channel
// is the caller's signal to dial again.
type LogSession interface {
	// SubscribeLogs subscribes to program logs matching the filter.
	SubscribeLogs(ctx context.Context, filter LogsFilter) (<-chan LogNotification, error)

	// Close closes the connection and all subscription channels.
	Close() error
}

// LogsFilter defines subscription filter for logs.
type LogsFilter struct {
	// Mentions filters logs that mention any of these program IDs.
	Mentions []string
}

// LogNotification represents a logs subscription message.
type LogNotification struct {
	Signature string
	Slot      int64
	Logs      []string
	Err       interface{}
}
