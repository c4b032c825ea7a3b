// Package ai generates a short explanatory paragraph for triggered
// alerts. Generation is best-effort: callers fall back to the rule's
// own reason text when the generator fails or is disabled.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mjhoover1/Intelligent-Investing/internal/config"
	"github.com/mjhoover1/Intelligent-Investing/internal/models"
)

// Generator produces human-readable context for a triggered alert
type Generator interface {
	Summarize(ctx context.Context, trigger *models.TriggerResult) (string, error)
}

// NoopGenerator is used when AI context generation is disabled. It
// always reports an error so callers take the fallback path.
type NoopGenerator struct{}

func (NoopGenerator) Summarize(ctx context.Context, trigger *models.TriggerResult) (string, error) {
	return "", fmt.Errorf("context generation disabled")
}

// OpenAIGenerator calls the OpenAI chat completions API
type OpenAIGenerator struct {
	client      *http.Client
	apiKey      string
	baseURL     string
	model       string
	maxTokens   int
	temperature float64
}

// NewOpenAIGenerator creates a generator from configuration
func NewOpenAIGenerator(cfg config.AIConfig) *OpenAIGenerator {
	return &OpenAIGenerator{
		client:      &http.Client{Timeout: cfg.Timeout},
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Summarize generates context for a triggered alert
func (g *OpenAIGenerator) Summarize(ctx context.Context, trigger *models.TriggerResult) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model:       g.model,
		Messages:    []chatMessage{{Role: "user", Content: buildPrompt(trigger)}},
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("completion API error: %s", parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("completion API returned status %d", resp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("completion response has no choices")
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("completion response is empty")
	}
	return content, nil
}

func buildPrompt(trigger *models.TriggerResult) string {
	var sb strings.Builder
	sb.WriteString("You are a neutral financial explainer. This is NOT financial advice.\n\n")
	sb.WriteString("Given the following alert data, explain what happened and what factors might be relevant, in under 120 words.\n\n")
	sb.WriteString("Data:\n")
	fmt.Fprintf(&sb, "- Symbol: %s\n", trigger.Symbol)
	fmt.Fprintf(&sb, "- Alert: %s\n", trigger.RuleName)
	fmt.Fprintf(&sb, "- Rule Type: %s\n", trigger.Kind)
	fmt.Fprintf(&sb, "- Threshold: %g\n", trigger.Threshold)
	fmt.Fprintf(&sb, "- Current Price: $%.2f\n", trigger.Price)
	fmt.Fprintf(&sb, "- Observed Value: %.2f\n", trigger.ObservedValue)
	fmt.Fprintf(&sb, "- Alert Message: %s\n", trigger.ContextText)
	sb.WriteString("\nProvide factual context only. Mention:\n")
	sb.WriteString("1. What triggered the alert\n")
	sb.WriteString("2. The significance of the price movement\n")
	sb.WriteString("3. Any general factors that might be relevant (market conditions, sector trends)\n\n")
	sb.WriteString(`Do NOT tell the user what to do. End with: "This is not financial advice."`)
	return sb.String()
}
