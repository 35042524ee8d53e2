package notifications

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
)

func TestSend_NoWebhook(t *testing.T) {
	s := NewSender("", "TestApp", zerolog.Nop())
	if s.Enabled() {
		t.Fatal("should not be enabled with empty URL")
	}
	s.Send("hello from test")
}

func TestSend_SlackFormat(t *testing.T) {
	var received map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &received)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewSender(srv.URL, "TestApp", zerolog.Nop())
	if !s.Enabled() {
		t.Fatal("should be enabled")
	}

	s.Send("BUY 10 AAPL @ $150.00 (total $1500.00)")

	if received["username"] != "TestApp" {
		t.Fatalf("username: got %s", received["username"])
	}
	if !strings.Contains(received["text"], "[TestApp] BUY 10 AAPL") {
		t.Fatalf("text: got %q", received["text"])
	}
}

func TestSend_DiscordFormat(t *testing.T) {
	var received map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &received)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	// URL containing "discord" triggers Discord format
	s := NewSender(srv.URL+"/discord/webhook", "Desk", zerolog.Nop())
	s.Send("SELL 4 AAPL (6 remaining)")

	if received["content"] == "" {
		t.Fatal("content should not be empty for Discord")
	}
	if received["username"] != "Desk" {
		t.Fatalf("username: got %s", received["username"])
	}
	if _, hasText := received["text"]; hasText {
		t.Fatal("Discord payload should not have 'text' field")
	}
}

func TestSend_ClientErrorNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	NewSender(srv.URL, "", zerolog.Nop()).Send("alert")
	if n := hits.Load(); n != 1 {
		t.Fatalf("expected a single delivery attempt, got %d", n)
	}
}

func TestDefaultAppName(t *testing.T) {
	s := NewSender("", "", zerolog.Nop())
	if s.appName != DefaultAppName {
		t.Fatalf("expected default app name, got %s", s.appName)
	}
}
