// Package webhook implements an HTTP webhook notifier
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/newthinker/crossover/internal/notifier"
)

// Webhook implements the Notifier interface for HTTP webhooks
type Webhook struct {
	url     string
	headers map[string]string
	client  *http.Client
}

// New creates a new Webhook notifier
func New(url string, headers map[string]string) (*Webhook, error) {
	if url == "" {
		return nil, fmt.Errorf("webhook: url is required")
	}
	return &Webhook{
		url:     url,
		headers: headers,
		client:  &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (w *Webhook) Name() string { return "webhook" }

type payload struct {
	Type        string `json:"type"`
	Symbol      string `json:"symbol"`
	Action      string `json:"action"`
	Price       string `json:"price"`
	ShortMA     string `json:"short_ma"`
	LongMA      string `json:"long_ma"`
	Reason      string `json:"reason"`
	Strategy    string `json:"strategy"`
	OrderID     string `json:"order_id,omitempty"`
	Status      string `json:"status,omitempty"`
	Quantity    int64  `json:"quantity"`
	FillPrice   string `json:"fill_price,omitempty"`
	DryRun      bool   `json:"dry_run"`
	Message     string `json:"message,omitempty"`
	GeneratedAt string `json:"generated_at"`
}

func (w *Webhook) Send(ctx context.Context, trade notifier.Trade) error {
	sig := trade.Signal
	p := payload{
		Type:        "trade",
		Symbol:      sig.Symbol,
		Action:      string(sig.Action),
		Price:       sig.Price.String(),
		ShortMA:     sig.ShortMA.String(),
		LongMA:      sig.LongMA.String(),
		Reason:      sig.Reason,
		Strategy:    sig.Strategy,
		OrderID:     trade.OrderID,
		Status:      trade.Status,
		Quantity:    trade.Quantity,
		DryRun:      trade.DryRun,
		Message:     trade.Message,
		GeneratedAt: sig.GeneratedAt.Format(time.RFC3339),
	}
	if !trade.FillPrice.IsZero() {
		p.FillPrice = trade.FillPrice.String()
	}
	return w.post(ctx, p)
}

func (w *Webhook) post(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("webhook: failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: server returned %d", resp.StatusCode)
	}

	return nil
}
