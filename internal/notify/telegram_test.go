package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNotifyPoolCreated(t *testing.T) {
	var captured sendMessageRequest
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		json.NewEncoder(w).Encode(sendMessageResponse{OK: true})
	}))
	defer srv.Close()

	n := NewTelegramNotifier("123:abc", "-100555", WithAPIBase(srv.URL))
	err := n.NotifyPoolCreated(context.Background(), "sig111", "Pool111", "TokenA111", "TokenB111")
	if err != nil {
		t.Fatalf("NotifyPoolCreated failed: %v", err)
	}

	if path != "/bot123:abc/sendMessage" {
		t.Errorf("Unexpected API path: %s", path)
	}
	if captured.ChatID != "-100555" {
		t.Errorf("Unexpected chat ID: %s", captured.ChatID)
	}
	if captured.ParseMode != "MarkdownV2" {
		t.Errorf("Unexpected parse mode: %s", captured.ParseMode)
	}
	if !strings.Contains(captured.Text, "https://explorer.solana.com/tx/sig111") {
		t.Error("Message must link the transaction")
	}
	if !strings.Contains(captured.Text, "https://explorer.solana.com/address/Pool111") {
		t.Error("Message must link the pool address")
	}
	if !strings.Contains(captured.Text, "https://explorer.solana.com/address/TokenA111") ||
		!strings.Contains(captured.Text, "https://explorer.solana.com/address/TokenB111") {
		t.Error("Message must link both tokens")
	}
}

func TestNotifyPoolCreated_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(sendMessageResponse{OK: false, Description: "chat not found"})
	}))
	defer srv.Close()

	n := NewTelegramNotifier("123:abc", "bad", WithAPIBase(srv.URL))
	err := n.NotifyPoolCreated(context.Background(), "sig", "pool", "a", "b")
	if err == nil {
		t.Fatal("Expected error for API failure")
	}
	if !strings.Contains(err.Error(), "chat not found") {
		t.Errorf("Error should carry the API description, got: %v", err)
	}
}

func TestNotifyPoolCreated_ServerUnreachable(t *testing.T) {
	n := NewTelegramNotifier("123:abc", "-1", WithAPIBase("http://127.0.0.1:1"))
	if err := n.NotifyPoolCreated(context.Background(), "sig", "pool", "a", "b"); err == nil {
		t.Error("Expected error when the API is unreachable")
	}
}

func TestEscapeMarkdown(t *testing.T) {
	cases := map[string]string{
		"plain":       "plain",
		"a.b":         `a\.b`,
		"a_b*c[d]":    `a\_b\*c\[d\]`,
		"Pool...addr": `Pool\.\.\.addr`,
	}
	for in, want := range cases {
		if got := escapeMarkdown(in); got != want {
			t.Errorf("escapeMarkdown(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestShorten(t *testing.T) {
	if got := shorten("short"); got != "short" {
		t.Errorf("Short strings must pass through, got %s", got)
	}
	long := "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
	got := shorten(long)
	if !strings.HasPrefix(got, "675kPX9M") || !strings.HasSuffix(got, "FSUt1Mp8") {
		t.Errorf("Unexpected abbreviation: %s", got)
	}
	if !strings.Contains(got, "...") {
		t.Errorf("Expected ellipsis in %s", got)
	}
}

func TestLogNotifier(t *testing.T) {
	var lines []string
	n := NewLogNotifier(func(format string, args ...interface{}) {
		lines = append(lines, format)
	})
	if err := n.NotifyPoolCreated(context.Background(), "sig", "pool", "a", "b"); err != nil {
		t.Fatalf("LogNotifier failed: %v", err)
	}
	if len(lines) != 1 {
		t.Errorf("Expected 1 log line, got %d", len(lines))
	}
}
