// Package config loads runtime configuration from the environment,
// with an optional .env file for local runs.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the fully resolved runtime configuration.
type Config struct {
	// RPCURL is the Solana JSON-RPC HTTP endpoint. Required.
	RPCURL string
	// WSURL is the Solana WebSocket endpoint. Derived from RPCURL when
	// unset.
	WSURL string
	// DexProgramID is the AMM program whose pool initializations are
	// watched. Empty selects the built-in Raydium V4 default.
	DexProgramID string

	// FeedURLs are auxiliary market-data WebSocket endpoints.
	FeedURLs []string
	// ReconnectDelay applies to feed and chain-watcher reconnects.
	ReconnectDelay time.Duration

	// WalletPaths are keypair files to load at startup.
	WalletPaths []string
	// MinSOLBalance is the balance floor logged as a warning per wallet.
	MinSOLBalance float64
	// MaxSOLPerTrade caps the SOL spent on one snipe.
	MaxSOLPerTrade float64
	// AutoSnipe enables trading on detected pools.
	AutoSnipe bool

	// TelegramBotToken and TelegramChatID address the alert channel.
	// Required.
	TelegramBotToken string
	TelegramChatID   string

	// MetricsAddr is the Prometheus listen address. Empty disables the
	// metrics server.
	MetricsAddr string
	// BusCapacity bounds the event bus.
	BusCapacity int
}

// Load reads configuration from the environment. A .env file at
// envPath is merged in first when it exists; real environment
// variables win. Missing required values fail here, once, at startup.
func Load(envPath string) (*Config, error) {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("load %s: %w", envPath, err)
		}
	}

	cfg := &Config{
		RPCURL:           os.Getenv("RPC_URL"),
		WSURL:            os.Getenv("WS_URL"),
		DexProgramID:     os.Getenv("DEX_PROGRAM_ID"),
		FeedURLs:         getList("FEED_URLS"),
		WalletPaths:      getList("WALLETS"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:   os.Getenv("TELEGRAM_CHAT_ID"),
		MetricsAddr:      getEnv("METRICS_ADDR", ":9090"),
	}

	// A malformed value is a configuration fault surfaced here, at
	// startup, never silently replaced by a default.
	var err error
	if cfg.ReconnectDelay, err = getDurationMS("WEBSOCKET_RECONNECT_DELAY_MS", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.MinSOLBalance, err = getFloat("MIN_SOL_BALANCE", 0.1); err != nil {
		return nil, err
	}
	if cfg.MaxSOLPerTrade, err = getFloat("MAX_SOL_PER_TRADE", 0.1); err != nil {
		return nil, err
	}
	if cfg.AutoSnipe, err = getBool("AUTO_SNIPE", false); err != nil {
		return nil, err
	}
	if cfg.BusCapacity, err = getInt("BUS_CAPACITY", 1000); err != nil {
		return nil, err
	}

	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("RPC_URL is required")
	}
	if cfg.TelegramBotToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if cfg.TelegramChatID == "" {
		return nil, fmt.Errorf("TELEGRAM_CHAT_ID is required")
	}
	if cfg.WSURL == "" {
		cfg.WSURL = deriveWSURL(cfg.RPCURL)
	}
	if cfg.BusCapacity <= 0 {
		return nil, fmt.Errorf("BUS_CAPACITY must be positive, got %d", cfg.BusCapacity)
	}

	return cfg, nil
}

// deriveWSURL rewrites an HTTP RPC endpoint to its WebSocket
// counterpart.
func deriveWSURL(rpcURL string) string {
	switch {
	case strings.HasPrefix(rpcURL, "https://"):
		return "wss://" + strings.TrimPrefix(rpcURL, "https://")
	case strings.HasPrefix(rpcURL, "http://"):
		return "ws://" + strings.TrimPrefix(rpcURL, "http://")
	default:
		return rpcURL
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q", key, v)
	}
	return b, nil
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, v)
	}
	return n, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid number %q", key, v)
	}
	return f, nil
}

func getDurationMS(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	ms, err := strconv.Atoi(v)
	if err != nil || ms <= 0 {
		return 0, fmt.Errorf("%s: invalid millisecond delay %q", key, v)
	}
	return time.Duration(ms) * time.Millisecond, nil
}
