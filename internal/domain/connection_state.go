package domain

// ConnectionState tracks where a watcher or feed monitor is in its
// subscribe/stream cycle. Each instance owns its state exclusively;
// it is exposed read-only for logging and tests.
type ConnectionState int32

const (
	StateDisconnected ConnectionState = iota
	StateSubscribing
	StateStreaming
	StateBackoff
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateSubscribing:
		return "subscribing"
	case StateStreaming:
		return "streaming"
	case StateBackoff:
		return "backoff"
	default:
		return "unknown"
	}
}
