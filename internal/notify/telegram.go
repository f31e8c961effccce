// Package notify delivers pool-detection alerts to operators.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const telegramAPIBase = "https://api.telegram.org"

// Notifier delivers a pool-created alert.
type Notifier interface {
	NotifyPoolCreated(ctx context.Context, txSignature, poolAddress, tokenA, tokenB string) error
}

// TelegramNotifier posts alerts to a Telegram chat via the bot API.
type TelegramNotifier struct {
	token      string
	chatID     string
	apiBase    string
	httpClient *http.Client
}

// TelegramOption customizes a TelegramNotifier.
type TelegramOption func(*TelegramNotifier)

// WithAPIBase overrides the Telegram API base URL. Used by tests.
func WithAPIBase(base string) TelegramOption {
	return func(n *TelegramNotifier) { n.apiBase = base }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) TelegramOption {
	return func(n *TelegramNotifier) { n.httpClient = c }
}

// NewTelegramNotifier creates a notifier for the given bot and chat.
func NewTelegramNotifier(token, chatID string, opts ...TelegramOption) *TelegramNotifier {
	n := &TelegramNotifier{
		token:      token,
		chatID:     chatID,
		apiBase:    telegramAPIBase,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// NotifyPoolCreated sends a formatted alert with explorer links for the
// transaction and every address involved.
func (n *TelegramNotifier) NotifyPoolCreated(ctx context.Context, txSignature, poolAddress, tokenA, tokenB string) error {
	text := fmt.Sprintf(
		"*New liquidity pool detected*\n\n"+
			"Pool: [%s](%s)\n"+
			"Token A: [%s](%s)\n"+
			"Token B: [%s](%s)\n"+
			"Tx: [%s](%s)",
		escapeMarkdown(shorten(poolAddress)), addressURL(poolAddress),
		escapeMarkdown(shorten(tokenA)), addressURL(tokenA),
		escapeMarkdown(shorten(tokenB)), addressURL(tokenB),
		escapeMarkdown(shorten(txSignature)), txURL(txSignature),
	)
	return n.send(ctx, text)
}

func (n *TelegramNotifier) send(ctx context.Context, text string) error {
	body, err := json.Marshal(sendMessageRequest{
		ChatID:                n.chatID,
		Text:                  text,
		ParseMode:             "MarkdownV2",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var result sendMessageResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return fmt.Errorf("parse response (status %d): %w", resp.StatusCode, err)
	}
	if !result.OK {
		return fmt.Errorf("telegram API error (status %d): %s", resp.StatusCode, result.Description)
	}
	return nil
}

func txURL(signature string) string {
	return "https://explorer.solana.com/tx/" + signature
}

func addressURL(address string) string {
	return "https://explorer.solana.com/address/" + address
}

// shorten abbreviates a base58 address for display.
func shorten(s string) string {
	if len(s) <= 16 {
		return s
	}
	return s[:8] + "..." + s[len(s)-8:]
}

// markdownV2Specials are the characters Telegram requires escaped in
// MarkdownV2 text.
const markdownV2Specials = "_*[]()~`>#+-=|{}.!"

func escapeMarkdown(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if strings.ContainsRune(markdownV2Specials, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// LogNotifier writes alerts to the process log instead of delivering
// them. Used for local runs and tests.
type LogNotifier struct {
	logf func(format string, args ...interface{})
}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier(logf func(format string, args ...interface{})) *LogNotifier {
	return &LogNotifier{logf: logf}
}

func (n *LogNotifier) NotifyPoolCreated(ctx context.Context, txSignature, poolAddress, tokenA, tokenB string) error {
	n.logf("[notify] new pool %s (tokenA=%s tokenB=%s tx=%s)", poolAddress, tokenA, tokenB, txSignature)
	return nil
}
