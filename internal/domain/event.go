package domain

// Kind identifies the variant of a pipeline Event.
type Kind string

const (
	KindPoolCreated  Kind = "pool_created"
	KindTokenListed  Kind = "token_listed"
	KindPriceChanged Kind = "price_changed"
	KindFeedError    Kind = "feed_error"
)

// Event is one message flowing from a producer (chain watcher or feed
// monitor) through the bus to the orchestrator. Events are immutable
// values: produced once, consumed once, never modified after construction.
type Event interface {
	Kind() Kind
}

// PoolCreated signals a newly initialized liquidity pool.
// Liquidity and Volume24h are zero when the event comes from on-chain
// decoding; enrichment is a downstream concern.
type PoolCreated struct {
	PoolAddress string  `json:"pool_address"`
	TokenA      string  `json:"token_a"`
	TokenB      string  `json:"token_b"`
	Liquidity   float64 `json:"liquidity"`
	Volume24h   float64 `json:"volume_24h"`
	Timestamp   int64   `json:"timestamp"`

	// TxSignature references the pool-initialization transaction.
	// Set by the chain watcher; feed payloads do not carry it.
	TxSignature string `json:"-"`
}

// TokenListed signals a token listing announced by an external feed.
type TokenListed struct {
	TokenAddress     string  `json:"token_address"`
	Symbol           string  `json:"symbol"`
	Name             string  `json:"name"`
	InitialLiquidity float64 `json:"initial_liquidity"`
	Timestamp        int64   `json:"timestamp"`
}

// PriceChanged signals a price update for a tracked token.
type PriceChanged struct {
	TokenAddress   string  `json:"token_address"`
	Price          float64 `json:"price"`
	PriceChange24h float64 `json:"price_change_24h"`
	Volume24h      float64 `json:"volume_24h"`
	Timestamp      int64   `json:"timestamp"`
}

// FeedError reports a feed-side fault to the consumer. It carries no
// retry obligation; the producing monitor already handles its own
// reconnects.
type FeedError struct {
	Message string `json:"message"`
}

func (PoolCreated) Kind() Kind  { return KindPoolCreated }
func (TokenListed) Kind() Kind  { return KindTokenListed }
func (PriceChanged) Kind() Kind { return KindPriceChanged }
func (FeedError) Kind() Kind    { return KindFeedError }
