// Package alert is the outbound boundary for triggered rules: it
// persists alerts, optionally enriches them with generated context,
// and delivers them to the configured notification channels.
package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mjhoover1/Intelligent-Investing/internal/config"
	"github.com/mjhoover1/Intelligent-Investing/internal/models"
	"github.com/mjhoover1/Intelligent-Investing/pkg/logger"
)

// Notifier delivers a triggered alert to one channel
type Notifier interface {
	Name() string
	Notify(ctx context.Context, trigger *models.TriggerResult) error
}

// ConsoleNotifier writes alerts to the structured log. Always available;
// the default channel in development.
type ConsoleNotifier struct{}

func (ConsoleNotifier) Name() string { return "console" }

func (ConsoleNotifier) Notify(ctx context.Context, trigger *models.TriggerResult) error {
	logger.Info("ALERT",
		logger.String("symbol", trigger.Symbol),
		logger.String("rule", trigger.RuleName),
		logger.String("kind", string(trigger.Kind)),
		logger.Float64("price", trigger.Price),
		logger.Float64("observed", trigger.ObservedValue),
		logger.Float64("threshold", trigger.Threshold),
		logger.String("context", trigger.ContextText),
	)
	return nil
}

// TelegramNotifier sends alerts via the Telegram Bot API
type TelegramNotifier struct {
	client     *http.Client
	token      string
	chatID     string
	baseURL    string
	maxRetries int
	retryDelay time.Duration
}

// NewTelegramNotifier creates a notifier from configuration
func NewTelegramNotifier(cfg config.AlertConfig) *TelegramNotifier {
	baseURL := cfg.TelegramBaseURL
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	return &TelegramNotifier{
		client:     &http.Client{Timeout: 30 * time.Second},
		token:      cfg.TelegramToken,
		chatID:     cfg.TelegramChatID,
		baseURL:    strings.TrimRight(baseURL, "/"),
		maxRetries: cfg.NotifyMaxRetries,
		retryDelay: cfg.NotifyRetryDelay,
	}
}

func (t *TelegramNotifier) Name() string { return "telegram" }

// Notify sends the alert with exponential backoff on transient failures
func (t *TelegramNotifier) Notify(ctx context.Context, trigger *models.TriggerResult) error {
	text := formatTelegramMessage(trigger)

	var lastErr error
	for attempt := 0; attempt <= t.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := t.retryDelay * time.Duration(1<<uint(attempt-1))
			logger.Warn("telegram send failed, retrying",
				logger.Int("attempt", attempt),
				logger.Duration("backoff", backoff),
				logger.ErrorField(lastErr),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
		if err := t.send(ctx, text); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("telegram send exhausted %d attempts: %w", t.maxRetries+1, lastErr)
}

func (t *TelegramNotifier) send(ctx context.Context, text string) error {
	payload, err := json.Marshal(map[string]string{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "HTML",
	})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("telegram API error: status %d, body: %s", resp.StatusCode, string(body))
	}
	return nil
}

func formatTelegramMessage(trigger *models.TriggerResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🔔 <b>%s</b>\n\n", trigger.RuleName)
	fmt.Fprintf(&sb, "Symbol: <b>%s</b>\n", trigger.Symbol)
	fmt.Fprintf(&sb, "Price: $%.2f\n", trigger.Price)
	fmt.Fprintf(&sb, "Triggered: %s\n", trigger.TriggeredAt.UTC().Format(time.RFC3339))
	if trigger.ContextText != "" {
		fmt.Fprintf(&sb, "\n%s", trigger.ContextText)
	}
	return sb.String()
}

// MultiNotifier fans an alert out to several channels. Delivery counts
// as successful when at least one channel accepted the alert.
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier combines notifiers into one
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	return &MultiNotifier{notifiers: notifiers}
}

func (m *MultiNotifier) Name() string { return "multi" }

// Notify delivers to every channel and fails only when all of them fail
func (m *MultiNotifier) Notify(ctx context.Context, trigger *models.TriggerResult) error {
	if len(m.notifiers) == 0 {
		return fmt.Errorf("no notifiers configured")
	}

	var lastErr error
	delivered := 0
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, trigger); err != nil {
			lastErr = err
			logger.NotificationsTotal.WithLabelValues(n.Name(), "error").Inc()
			logger.Error("notification channel failed",
				logger.String("channel", n.Name()),
				logger.String("symbol", trigger.Symbol),
				logger.ErrorField(err),
			)
			continue
		}
		delivered++
		logger.NotificationsTotal.WithLabelValues(n.Name(), "success").Inc()
	}
	if delivered == 0 {
		return fmt.Errorf("all notification channels failed: %w", lastErr)
	}
	return nil
}
