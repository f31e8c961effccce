// Command sniper runs the pool-detection pipeline: a chain-log watcher
// and optional feed monitors publishing onto one bus, drained by the
// orchestrator.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"solana-pool-sniper/internal/bus"
	"solana-pool-sniper/internal/config"
	"solana-pool-sniper/internal/discovery"
	"solana-pool-sniper/internal/feed"
	"solana-pool-sniper/internal/notify"
	"solana-pool-sniper/internal/observability"
	"solana-pool-sniper/internal/orchestrator"
	"solana-pool-sniper/internal/solana"
	"solana-pool-sniper/internal/trade"
	"solana-pool-sniper/internal/wallet"
	"solana-pool-sniper/internal/watcher"
)

func main() {
	envPath := flag.String("env", ".env", "Path to .env file (missing file is fine)")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (overrides METRICS_ADDR)")
	logNotify := flag.Bool("log-notify", false, "Log alerts instead of sending them to Telegram")
	flag.Parse()

	logger := log.New(os.Stdout, "[sniper] ", log.LstdFlags)

	cfg, err := config.Load(*envPath)
	if err != nil {
		logger.Fatalf("Configuration error: %v", err)
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}

	metrics := observability.NewMetrics("")

	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", cfg.MetricsAddr)
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	rpc := solana.NewHTTPClient(cfg.RPCURL)

	wallets, err := wallet.LoadAll(cfg.WalletPaths)
	if err != nil {
		logger.Fatalf("Wallet error: %v", err)
	}
	logger.Printf("Loaded %d wallet(s)", len(wallets))
	if cfg.AutoSnipe && len(wallets) == 0 {
		logger.Fatal("AUTO_SNIPE requires at least one wallet (set WALLETS)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	checkBalances(ctx, logger, rpc, wallets, cfg.MinSOLBalance)

	eventBus := bus.New(cfg.BusCapacity)
	decoder := discovery.NewDecoder(cfg.DexProgramID)

	chainWatcher := watcher.New(watcher.Options{
		Dialer:   solana.NewDialer(cfg.WSURL, nil),
		Fetcher:  watcher.NewRetryingFetcher(rpc, metrics),
		Decoder:  decoder,
		Producer: eventBus.Register("chain-watcher"),
		Backoff:  cfg.ReconnectDelay,
		Metrics:  metrics,
	})

	feeds := feed.NewManager(eventBus, metrics)
	for _, url := range cfg.FeedURLs {
		feeds.AddMonitor(url, nil, cfg.ReconnectDelay)
	}

	var notifier notify.Notifier = notify.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID)
	if *logNotify {
		notifier = notify.NewLogNotifier(logger.Printf)
	}

	dispatcher, err := orchestrator.New(orchestrator.Options{
		Bus:         eventBus,
		Notifier:    notifier,
		Executor:    trade.NewJupiterExecutor(rpc, cfg.MaxSOLPerTrade),
		Wallets:     wallets,
		Metrics:     metrics,
		AutoSnipe:   cfg.AutoSnipe,
		SnipeAmount: cfg.MaxSOLPerTrade,
	})
	if err != nil {
		logger.Fatalf("Orchestrator error: %v", err)
	}

	// Handle shutdown signals with graceful timeout.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	var producers sync.WaitGroup
	producers.Add(1)
	go func() {
		defer producers.Done()
		chainWatcher.Run(ctx)
	}()
	producers.Add(1)
	go func() {
		defer producers.Done()
		feeds.Run(ctx)
	}()

	logger.Printf("Watching program %s on %s (%d feed(s))",
		decoder.ProgramID(), cfg.WSURL, len(cfg.FeedURLs))

	// The orchestrator exits when every producer has closed its bus
	// handle, so waiting on it covers the whole pipeline.
	err = dispatcher.Run(ctx)
	producers.Wait()

	done <- err

	if err != nil && err != context.Canceled {
		logger.Fatalf("Error: %v", err)
	}

	stats := dispatcher.Stats()
	logger.Printf("Shutdown complete: %d events, %d pools, %d trades attempted (%d failed)",
		stats.EventsProcessed, stats.PoolsDetected, stats.TradesAttempted, stats.TradesFailed)
}

// checkBalances logs each wallet's SOL balance; balances below min get
// a warning. Failures here are not fatal, the RPC node may simply be
// slow at startup.
func checkBalances(ctx context.Context, logger *log.Logger, rpc solana.RPCClient, wallets []*wallet.Wallet, min float64) {
	manager := wallet.NewManager(rpc, wallets)
	for i, w := range wallets {
		balance, err := manager.Balance(ctx, i)
		if err != nil {
			logger.Printf("WARN: balance check for %s failed: %v", w.Name, err)
			continue
		}
		if balance < min {
			logger.Printf("WARN: wallet %s balance %.4f SOL below minimum %.4f", w.Name, balance, min)
			continue
		}
		logger.Printf("Wallet %s: %.4f SOL", w.Name, balance)
	}
}
