// Package paper provides an in-memory broker that fills market orders
// immediately at the last observed price.
package paper

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/newthinker/crossover/internal/broker"
)

// Broker implements broker.Broker against a simulated account.
type Broker struct {
	mu sync.RWMutex

	connected bool

	orders  []broker.Order
	orderID int64
	prices  map[string]decimal.Decimal

	shouldFail     bool
	failMessage    string
	rejectReason   string
	positionsError error

	positions map[string]*broker.Position
	balance   *broker.Balance
}

// New creates a paper broker holding cash.
func New(cash decimal.Decimal) *Broker {
	return &Broker{
		prices:    make(map[string]decimal.Decimal),
		positions: make(map[string]*broker.Position),
		balance: &broker.Balance{
			Currency:    "USD",
			Cash:        cash,
			BuyingPower: cash,
			TotalValue:  cash,
			UpdatedAt:   time.Now(),
		},
	}
}

// Name returns the broker identifier.
func (b *Broker) Name() string {
	return "paper"
}

// Connect establishes connection to the paper broker.
func (b *Broker) Connect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.connected {
		return broker.ErrAlreadyConnected
	}
	b.connected = true
	return nil
}

// Disconnect closes connection to the paper broker.
func (b *Broker) Disconnect() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.connected {
		return broker.ErrNotConnected
	}
	b.connected = false
	return nil
}

// IsConnected returns the connection status.
func (b *Broker) IsConnected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.connected
}

// ObservePrice records the price used for the next fill in symbol.
func (b *Broker) ObservePrice(symbol string, price decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := strings.ToUpper(symbol)
	b.prices[key] = price
	if pos, ok := b.positions[key]; ok {
		b.mark(pos, price)
		b.recalculateTotalValue()
	}
}

// PlaceOrder fills a market order at the last observed price.
func (b *Broker) PlaceOrder(ctx context.Context, req broker.OrderRequest) (*broker.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.connected {
		return nil, broker.ErrNotConnected
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if b.shouldFail {
		return nil, fmt.Errorf("paper broker: %s", b.failMessage)
	}

	b.orderID++
	now := time.Now()
	order := broker.Order{
		OrderID:       fmt.Sprintf("PAPER-%d", b.orderID),
		ClientOrderID: req.ClientOrderID,
		Symbol:        req.Symbol,
		Side:          req.Side,
		Type:          req.Type,
		Quantity:      req.Quantity,
		CreatedAt:     now,
	}

	price, ok := b.prices[strings.ToUpper(req.Symbol)]
	switch {
	case b.rejectReason != "":
		order.Status = broker.OrderStatusRejected
		order.RejectionReason = b.rejectReason
		b.rejectReason = ""
	case !ok:
		order.Status = broker.OrderStatusRejected
		order.RejectionReason = fmt.Sprintf("no price for %s", req.Symbol)
	default:
		order.Status = broker.OrderStatusFilled
		order.FilledQuantity = req.Quantity
		order.AverageFillPrice = price
		order.FilledAt = &now
		b.fill(order, price)
	}

	b.orders = append(b.orders, order)
	orderCopy := order
	return &orderCopy, nil
}

func (b *Broker) fill(order broker.Order, price decimal.Decimal) {
	key := strings.ToUpper(order.Symbol)
	pos, exists := b.positions[key]
	if !exists {
		pos = &broker.Position{Symbol: order.Symbol}
		b.positions[key] = pos
	}

	qty := decimal.NewFromInt(order.FilledQuantity)
	value := qty.Mul(price)

	if order.Side == broker.OrderSideBuy {
		totalCost := decimal.NewFromInt(pos.Quantity).Mul(pos.AverageCost).Add(value)
		pos.Quantity += order.FilledQuantity
		if pos.Quantity > 0 {
			pos.AverageCost = totalCost.Div(decimal.NewFromInt(pos.Quantity))
		}
		b.balance.Cash = b.balance.Cash.Sub(value)
	} else {
		pos.Quantity -= order.FilledQuantity
		b.balance.Cash = b.balance.Cash.Add(value)
	}
	b.balance.BuyingPower = b.balance.Cash
	b.balance.UpdatedAt = time.Now()

	if pos.Quantity == 0 {
		delete(b.positions, key)
	} else {
		b.mark(pos, price)
	}
	b.recalculateTotalValue()
}

func (b *Broker) mark(pos *broker.Position, price decimal.Decimal) {
	qty := decimal.NewFromInt(pos.Quantity)
	pos.MarketValue = qty.Mul(price)
	pos.UnrealizedPL = pos.MarketValue.Sub(qty.Mul(pos.AverageCost))
}

func (b *Broker) recalculateTotalValue() {
	total := b.balance.Cash
	for _, pos := range b.positions {
		total = total.Add(pos.MarketValue)
	}
	b.balance.TotalValue = total
}

// GetPositions returns all open positions.
func (b *Broker) GetPositions(ctx context.Context) ([]broker.Position, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.connected {
		return nil, broker.ErrNotConnected
	}
	if b.positionsError != nil {
		return nil, b.positionsError
	}

	positions := make([]broker.Position, 0, len(b.positions))
	for _, pos := range b.positions {
		positions = append(positions, *pos)
	}
	return positions, nil
}

// GetBalance returns the current account balance.
func (b *Broker) GetBalance(ctx context.Context) (*broker.Balance, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.connected {
		return nil, broker.ErrNotConnected
	}

	balanceCopy := *b.balance
	return &balanceCopy, nil
}

// Orders returns every order placed so far, oldest first.
func (b *Broker) Orders() []broker.Order {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]broker.Order, len(b.orders))
	copy(out, b.orders)
	return out
}

// SetShouldFail configures PlaceOrder to return an error.
func (b *Broker) SetShouldFail(shouldFail bool, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.shouldFail = shouldFail
	b.failMessage = message
}

// RejectNext makes the next order come back with status REJECTED.
func (b *Broker) RejectNext(reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rejectReason = reason
}

// SetPositionsError makes GetPositions fail with err until cleared with nil.
func (b *Broker) SetPositionsError(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.positionsError = err
}

// SetPosition seeds a position directly.
func (b *Broker) SetPosition(symbol string, quantity int64, averageCost decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := strings.ToUpper(symbol)
	if quantity == 0 {
		delete(b.positions, key)
		return
	}
	pos := &broker.Position{Symbol: symbol, Quantity: quantity, AverageCost: averageCost}
	b.positions[key] = pos
	if price, ok := b.prices[key]; ok {
		b.mark(pos, price)
	}
	b.recalculateTotalValue()
}
