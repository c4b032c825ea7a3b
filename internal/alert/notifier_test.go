package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mjhoover1/Intelligent-Investing/internal/config"
)

func TestTelegramNotifier_SendsMessage(t *testing.T) {
	var gotPath string
	var gotPayload map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer server.Close()

	n := NewTelegramNotifier(config.AlertConfig{
		TelegramToken:    "123:abc",
		TelegramChatID:   "42",
		TelegramBaseURL:  server.URL,
		NotifyMaxRetries: 0,
		NotifyRetryDelay: time.Millisecond,
	})

	if err := n.Notify(context.Background(), emitterTrigger()); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	if gotPath != "/bot123:abc/sendMessage" {
		t.Errorf("path = %q", gotPath)
	}
	if gotPayload["chat_id"] != "42" {
		t.Errorf("chat_id = %q", gotPayload["chat_id"])
	}
	if !strings.Contains(gotPayload["text"], "AAPL") {
		t.Errorf("text missing symbol: %q", gotPayload["text"])
	}
	if !strings.Contains(gotPayload["text"], "$80.00") {
		t.Errorf("text missing price: %q", gotPayload["text"])
	}
}

func TestTelegramNotifier_RetriesUntilSuccess(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer server.Close()

	n := NewTelegramNotifier(config.AlertConfig{
		TelegramToken:    "123:abc",
		TelegramChatID:   "42",
		TelegramBaseURL:  server.URL,
		NotifyMaxRetries: 3,
		NotifyRetryDelay: time.Millisecond,
	})

	if err := n.Notify(context.Background(), emitterTrigger()); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
}

func TestTelegramNotifier_ExhaustsRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	n := NewTelegramNotifier(config.AlertConfig{
		TelegramToken:    "123:abc",
		TelegramChatID:   "42",
		TelegramBaseURL:  server.URL,
		NotifyMaxRetries: 2,
		NotifyRetryDelay: time.Millisecond,
	})

	if err := n.Notify(context.Background(), emitterTrigger()); err == nil {
		t.Error("Notify() should fail after exhausting retries")
	}
}

func TestMultiNotifier_SucceedsIfAnyDelivers(t *testing.T) {
	failing := &stubNotifier{name: "telegram", err: fmt.Errorf("unreachable")}
	working := &stubNotifier{name: "console"}
	m := NewMultiNotifier(failing, working)

	if err := m.Notify(context.Background(), emitterTrigger()); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	if working.Calls() != 1 || failing.Calls() != 1 {
		t.Error("every channel should be attempted")
	}
}

func TestMultiNotifier_FailsWhenAllFail(t *testing.T) {
	m := NewMultiNotifier(
		&stubNotifier{name: "telegram", err: fmt.Errorf("unreachable")},
		&stubNotifier{name: "console", err: fmt.Errorf("closed")},
	)
	if err := m.Notify(context.Background(), emitterTrigger()); err == nil {
		t.Error("Notify() should fail when every channel fails")
	}
}

func TestMultiNotifier_Empty(t *testing.T) {
	if err := NewMultiNotifier().Notify(context.Background(), emitterTrigger()); err == nil {
		t.Error("Notify() with no channels should fail")
	}
}
