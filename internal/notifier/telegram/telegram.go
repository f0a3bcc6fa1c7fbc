package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/newthinker/crossover/internal/core"
	"github.com/newthinker/crossover/internal/notifier"
)

const defaultAPIBase = "https://api.telegram.org"

// Telegram implements the Notifier interface for Telegram Bot API
type Telegram struct {
	botToken string
	chatID   string
	apiBase  string
	client   *http.Client
}

// New creates a new Telegram notifier
func New(botToken, chatID string) (*Telegram, error) {
	if botToken == "" {
		return nil, fmt.Errorf("telegram: bot_token is required")
	}
	if chatID == "" {
		return nil, fmt.Errorf("telegram: chat_id is required")
	}
	return &Telegram{
		botToken: botToken,
		chatID:   chatID,
		apiBase:  defaultAPIBase,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

func (t *Telegram) Name() string {
	return "telegram"
}

func (t *Telegram) Send(ctx context.Context, trade notifier.Trade) error {
	return t.sendMessage(ctx, formatTrade(trade))
}

func formatTrade(trade notifier.Trade) string {
	var sb strings.Builder
	signal := trade.Signal

	// Action emoji
	actionEmoji := "📈"
	if signal.Action == core.ActionSell {
		actionEmoji = "📉"
	}

	status := trade.Status
	if trade.DryRun {
		status = "DRY RUN"
	}
	sb.WriteString(fmt.Sprintf("%s *%s* %s %d - %s\n", actionEmoji, signal.Symbol, signal.Action, trade.Quantity, status))
	sb.WriteString(fmt.Sprintf("📊 Short MA %s / Long MA %s\n", signal.ShortMA.StringFixed(2), signal.LongMA.StringFixed(2)))
	sb.WriteString(fmt.Sprintf("💰 Price: $%s\n", signal.Price.StringFixed(2)))

	if !trade.FillPrice.IsZero() {
		sb.WriteString(fmt.Sprintf("✅ Filled: $%s\n", trade.FillPrice.StringFixed(2)))
	}
	if trade.OrderID != "" {
		sb.WriteString(fmt.Sprintf("🧾 Order: %s\n", trade.OrderID))
	}
	if trade.Message != "" {
		sb.WriteString(fmt.Sprintf("💡 %s\n", trade.Message))
	}

	sb.WriteString(fmt.Sprintf("⏰ Time: %s", signal.GeneratedAt.Format("2006-01-02 15:04:05")))

	return sb.String()
}

func (t *Telegram) sendMessage(ctx context.Context, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.botToken)

	payload := map[string]any{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var result map[string]any
		json.NewDecoder(resp.Body).Decode(&result)
		return fmt.Errorf("telegram: API error (status %d): %v", resp.StatusCode, result)
	}

	return nil
}
