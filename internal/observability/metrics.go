// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the pipeline.
type Metrics struct {
	// Detection metrics
	EventsPublished *prometheus.CounterVec
	PoolsDetected   prometheus.Counter
	DecodeErrors    prometheus.Counter

	// Fetch metrics
	FetchRetries  prometheus.Counter
	FetchFailures prometheus.Counter

	// Connection metrics
	WatcherReconnects prometheus.Counter
	FeedReconnects    *prometheus.CounterVec
	MalformedFrames   *prometheus.CounterVec

	// Dispatch metrics
	EventsDispatched *prometheus.CounterVec
	NotifyFailures   prometheus.Counter
	TradeFailures    prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "pool_sniper"
	}

	return &Metrics{
		EventsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "events_published_total",
			Help:      "Events published to the bus, by producer",
		}, []string{"producer"}),
		PoolsDetected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watcher",
			Name:      "pools_detected_total",
			Help:      "Pool-creation events decoded from chain logs",
		}),
		DecodeErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watcher",
			Name:      "decode_errors_total",
			Help:      "Transactions whose outer shape was unreadable",
		}),
		FetchRetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watcher",
			Name:      "fetch_retries_total",
			Help:      "Failed getTransaction attempts that were retried",
		}),
		FetchFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watcher",
			Name:      "fetch_failures_total",
			Help:      "Signatures skipped after exhausting the retry budget",
		}),
		WatcherReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watcher",
			Name:      "reconnects_total",
			Help:      "Log-subscription cycles restarted after loss",
		}),
		FeedReconnects: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "reconnects_total",
			Help:      "Feed connections re-established, by endpoint",
		}, []string{"endpoint"}),
		MalformedFrames: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "malformed_frames_total",
			Help:      "Feed frames dropped as unparsable, by endpoint",
		}, []string{"endpoint"}),
		EventsDispatched: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "events_dispatched_total",
			Help:      "Events consumed from the bus, by kind",
		}, []string{"kind"}),
		NotifyFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "notify_failures_total",
			Help:      "Notification deliveries that failed",
		}),
		TradeFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "trade_failures_total",
			Help:      "Trade attempts that failed, including not-supported",
		}),
	}
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
