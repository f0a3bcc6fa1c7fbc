// Package alpaca adapts the Alpaca trading API to broker.Broker.
package alpaca

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/newthinker/crossover/internal/broker"
)

// PaperURL is the Alpaca paper trading endpoint.
const PaperURL = "https://paper-api.alpaca.markets"

// Config holds Alpaca credentials.
type Config struct {
	APIKey    string
	APISecret string
	BaseURL   string
}

// tradingClient is the subset of the Alpaca client used here
type tradingClient interface {
	GetAccount() (*alpaca.Account, error)
	GetPositions() ([]alpaca.Position, error)
	PlaceOrder(req alpaca.PlaceOrderRequest) (*alpaca.Order, error)
}

// Broker implements broker.Broker over the Alpaca REST API.
type Broker struct {
	mu        sync.RWMutex
	client    tradingClient
	connected bool
	logger    *zap.Logger
}

// New creates an Alpaca broker. An empty BaseURL selects paper trading.
func New(cfg Config, logger ...*zap.Logger) *Broker {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = PaperURL
	}
	client := alpaca.NewClient(alpaca.ClientOpts{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
		BaseURL:   baseURL,
	})
	return newWithClient(client, logger...)
}

func newWithClient(client tradingClient, logger ...*zap.Logger) *Broker {
	l := zap.NewNop()
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	}
	return &Broker{client: client, logger: l}
}

func (b *Broker) Name() string {
	return "alpaca"
}

// Connect verifies the credentials by reading the account.
func (b *Broker) Connect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.connected {
		return broker.ErrAlreadyConnected
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	acct, err := b.client.GetAccount()
	if err != nil {
		return fmt.Errorf("alpaca: verifying account: %w", err)
	}

	b.connected = true
	b.logger.Info("connected to alpaca",
		zap.String("status", acct.Status),
		zap.String("equity", acct.Equity.StringFixed(2)),
	)
	return nil
}

func (b *Broker) Disconnect() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.connected {
		return broker.ErrNotConnected
	}
	b.connected = false
	return nil
}

func (b *Broker) IsConnected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.connected
}

// PlaceOrder submits a market order.
func (b *Broker) PlaceOrder(ctx context.Context, req broker.OrderRequest) (*broker.Order, error) {
	if !b.IsConnected() {
		return nil, broker.ErrNotConnected
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	qty := decimal.NewFromInt(req.Quantity)
	order, err := b.client.PlaceOrder(alpaca.PlaceOrderRequest{
		Symbol:        strings.ToUpper(req.Symbol),
		Qty:           &qty,
		Side:          toSide(req.Side),
		Type:          alpaca.Market,
		TimeInForce:   toTimeInForce(req.TimeInForce),
		ClientOrderID: req.ClientOrderID,
	})
	if err != nil {
		return nil, err
	}

	return fromOrder(order, req), nil
}

// GetPositions returns all open positions.
func (b *Broker) GetPositions(ctx context.Context) ([]broker.Position, error) {
	if !b.IsConnected() {
		return nil, broker.ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	positions, err := b.client.GetPositions()
	if err != nil {
		return nil, err
	}

	out := make([]broker.Position, 0, len(positions))
	for _, p := range positions {
		pos := broker.Position{
			Symbol:      p.Symbol,
			Quantity:    wholeQuantity(p.Qty),
			AverageCost: p.AvgEntryPrice,
			MarketValue: p.CostBasis,
		}
		if p.MarketValue != nil {
			pos.MarketValue = *p.MarketValue
		}
		if p.UnrealizedPL != nil {
			pos.UnrealizedPL = *p.UnrealizedPL
		}
		out = append(out, pos)
	}
	return out, nil
}

// wholeQuantity truncates a share count, keeping any non-zero fractional
// holding at one share so it still reads as open.
func wholeQuantity(qty decimal.Decimal) int64 {
	n := qty.IntPart()
	if n == 0 && !qty.IsZero() {
		return int64(qty.Sign())
	}
	return n
}

// GetBalance returns the account cash and buying power.
func (b *Broker) GetBalance(ctx context.Context) (*broker.Balance, error) {
	if !b.IsConnected() {
		return nil, broker.ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	acct, err := b.client.GetAccount()
	if err != nil {
		return nil, err
	}

	return &broker.Balance{
		Currency:    acct.Currency,
		Cash:        acct.Cash,
		BuyingPower: acct.BuyingPower,
		TotalValue:  acct.Equity,
		UpdatedAt:   time.Now(),
	}, nil
}

func toSide(side broker.OrderSide) alpaca.Side {
	if side == broker.OrderSideSell {
		return alpaca.Sell
	}
	return alpaca.Buy
}

func toTimeInForce(tif broker.TimeInForce) alpaca.TimeInForce {
	if tif == broker.TimeInForceDay {
		return alpaca.Day
	}
	return alpaca.GTC
}

func fromOrder(o *alpaca.Order, req broker.OrderRequest) *broker.Order {
	order := &broker.Order{
		OrderID:        o.ID,
		ClientOrderID:  o.ClientOrderID,
		Symbol:         o.Symbol,
		Side:           req.Side,
		Type:           broker.OrderTypeMarket,
		Quantity:       req.Quantity,
		Status:         toStatus(string(o.Status)),
		FilledQuantity: o.FilledQty.IntPart(),
		CreatedAt:      o.CreatedAt,
		FilledAt:       o.FilledAt,
	}
	if order.Symbol == "" {
		order.Symbol = req.Symbol
	}
	if o.FilledAvgPrice != nil {
		order.AverageFillPrice = *o.FilledAvgPrice
	}
	return order
}

// toStatus maps Alpaca order states onto the broker lifecycle
func toStatus(status string) broker.OrderStatus {
	switch status {
	case "filled":
		return broker.OrderStatusFilled
	case "partially_filled":
		return broker.OrderStatusPartial
	case "canceled", "expired", "done_for_day", "replaced":
		return broker.OrderStatusCancelled
	case "rejected", "suspended":
		return broker.OrderStatusRejected
	default:
		return broker.OrderStatusPending
	}
}
