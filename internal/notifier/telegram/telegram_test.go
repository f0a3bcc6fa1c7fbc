package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/crossover/internal/core"
	"github.com/newthinker/crossover/internal/notifier"
)

func TestTelegram_ImplementsNotifier(t *testing.T) {
	var _ notifier.Notifier = (*Telegram)(nil)
}

func TestTelegram_New(t *testing.T) {
	tg, err := New("token", "chat")
	require.NoError(t, err)
	assert.Equal(t, "telegram", tg.Name())

	_, err = New("", "chat")
	assert.Error(t, err)
	_, err = New("token", "")
	assert.Error(t, err)
}

func TestFormatTrade(t *testing.T) {
	trade := notifier.Trade{
		Signal: core.Signal{
			Symbol:      "AAPL",
			Action:      core.ActionSell,
			Price:       decimal.NewFromFloat(148.5),
			ShortMA:     decimal.NewFromInt(147),
			LongMA:      decimal.NewFromInt(149),
			GeneratedAt: time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC),
		},
		Quantity: 1,
		DryRun:   true,
		Message:  "dry run: SELL 1 AAPL @ market",
	}

	msg := formatTrade(trade)
	assert.Contains(t, msg, "📉 *AAPL* sell 1 - DRY RUN")
	assert.Contains(t, msg, "Short MA 147.00 / Long MA 149.00")
	assert.Contains(t, msg, "$148.50")
	assert.NotContains(t, msg, "Order:")
	assert.Contains(t, msg, "2024-03-01 15:00:00")
}

func TestTelegram_Send(t *testing.T) {
	var path string
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	tg, err := New("secret", "42")
	require.NoError(t, err)
	tg.apiBase = server.URL

	trade := notifier.Trade{
		Signal:  core.Signal{Symbol: "AAPL", Action: core.ActionBuy},
		OrderID: "o-7",
		Status:  "FILLED",
	}
	require.NoError(t, tg.Send(context.Background(), trade))

	assert.Equal(t, "/botsecret/sendMessage", path)
	assert.Equal(t, "42", received["chat_id"])
	assert.Equal(t, "Markdown", received["parse_mode"])
	assert.Contains(t, received["text"], "Order: o-7")
}

func TestTelegram_Send_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"ok":false,"description":"Unauthorized"}`))
	}))
	defer server.Close()

	tg, err := New("bad", "42")
	require.NoError(t, err)
	tg.apiBase = server.URL

	err = tg.Send(context.Background(), notifier.Trade{Signal: core.Signal{Symbol: "AAPL", Action: core.ActionBuy}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}
