// Package broker provides types and interfaces for broker integrations.
package broker

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Broker-specific errors.
var (
	// ErrNotConnected indicates the broker is not connected.
	ErrNotConnected = errors.New("broker: not connected")
	// ErrAlreadyConnected indicates the broker is already connected.
	ErrAlreadyConnected = errors.New("broker: already connected")
	// ErrPositionNotFound indicates no position is held in the symbol.
	ErrPositionNotFound = errors.New("broker: position not found")
	// ErrInvalidSymbol indicates an invalid or empty symbol.
	ErrInvalidSymbol = errors.New("broker: invalid symbol")
	// ErrInvalidQuantity indicates an invalid quantity.
	ErrInvalidQuantity = errors.New("broker: invalid quantity")
	// ErrInvalidSide indicates an order side other than BUY or SELL.
	ErrInvalidSide = errors.New("broker: invalid order side")
	// ErrInvalidTimeInForce indicates an unsupported time in force.
	ErrInvalidTimeInForce = errors.New("broker: invalid time in force")
)

// OrderSide represents the direction of an order.
type OrderSide string

const (
	// OrderSideBuy represents a buy order.
	OrderSideBuy OrderSide = "BUY"
	// OrderSideSell represents a sell order.
	OrderSideSell OrderSide = "SELL"
)

// OrderType represents the type of order execution. Only market orders are placed.
type OrderType string

const (
	// OrderTypeMarket executes at current market price.
	OrderTypeMarket OrderType = "MARKET"
)

// TimeInForce controls how long an order stays working.
type TimeInForce string

const (
	TimeInForceGTC TimeInForce = "gtc"
	TimeInForceDay TimeInForce = "day"
)

// ParseTimeInForce accepts "gtc" or "day" in any case.
func ParseTimeInForce(s string) (TimeInForce, error) {
	switch TimeInForce(strings.ToLower(s)) {
	case TimeInForceGTC:
		return TimeInForceGTC, nil
	case TimeInForceDay:
		return TimeInForceDay, nil
	}
	return "", ErrInvalidTimeInForce
}

// OrderStatus represents the lifecycle status of an order.
type OrderStatus string

const (
	// OrderStatusPending indicates order is accepted but not yet filled.
	OrderStatusPending OrderStatus = "PENDING"
	// OrderStatusFilled indicates order has been completely filled.
	OrderStatusFilled OrderStatus = "FILLED"
	// OrderStatusPartial indicates order has been partially filled.
	OrderStatusPartial OrderStatus = "PARTIAL"
	// OrderStatusCancelled indicates order was cancelled.
	OrderStatusCancelled OrderStatus = "CANCELLED"
	// OrderStatusRejected indicates order was rejected by broker.
	OrderStatusRejected OrderStatus = "REJECTED"
)

// OrderRequest represents a request to place a new order.
type OrderRequest struct {
	Symbol        string      `json:"symbol"`
	Side          OrderSide   `json:"side"`
	Type          OrderType   `json:"type"`
	Quantity      int64       `json:"quantity"`
	TimeInForce   TimeInForce `json:"time_in_force,omitempty"`
	ClientOrderID string      `json:"client_order_id,omitempty"`
}

// Validate checks if the order request has valid required fields.
func (r OrderRequest) Validate() error {
	if r.Symbol == "" {
		return ErrInvalidSymbol
	}
	if r.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if r.Side != OrderSideBuy && r.Side != OrderSideSell {
		return ErrInvalidSide
	}
	if r.TimeInForce != "" {
		if _, err := ParseTimeInForce(string(r.TimeInForce)); err != nil {
			return err
		}
	}
	return nil
}

// Order represents an order in the broker system.
type Order struct {
	// OrderID is the broker-assigned unique identifier.
	OrderID       string      `json:"order_id"`
	ClientOrderID string      `json:"client_order_id,omitempty"`
	Symbol        string      `json:"symbol"`
	Side          OrderSide   `json:"side"`
	Type          OrderType   `json:"type"`
	Quantity      int64       `json:"quantity"`
	Status        OrderStatus `json:"status"`
	// FilledQuantity is the number of shares filled.
	FilledQuantity   int64           `json:"filled_quantity"`
	AverageFillPrice decimal.Decimal `json:"average_fill_price"`
	CreatedAt        time.Time       `json:"created_at"`
	// FilledAt is when the order was completely filled (nil if not filled).
	FilledAt        *time.Time `json:"filled_at,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
}

// IsFilled returns true if the order is completely filled.
func (o Order) IsFilled() bool {
	return o.Status == OrderStatusFilled
}

// IsOpen returns true if the order is still active.
func (o Order) IsOpen() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusPartial
}

// IsTerminal returns true if the order is in a final state.
func (o Order) IsTerminal() bool {
	return o.Status == OrderStatusFilled ||
		o.Status == OrderStatusCancelled ||
		o.Status == OrderStatusRejected
}

// Position represents a holding in a security.
type Position struct {
	Symbol string `json:"symbol"`
	// Quantity is the number of shares held (negative for short).
	Quantity     int64           `json:"quantity"`
	AverageCost  decimal.Decimal `json:"average_cost"`
	MarketValue  decimal.Decimal `json:"market_value"`
	UnrealizedPL decimal.Decimal `json:"unrealized_pl"`
}

// IsLong returns true if this is a long position.
func (p Position) IsLong() bool {
	return p.Quantity > 0
}

// Balance represents account balance information.
type Balance struct {
	Currency    string          `json:"currency"`
	Cash        decimal.Decimal `json:"cash"`
	BuyingPower decimal.Decimal `json:"buying_power"`
	// TotalValue is the total account value including positions.
	TotalValue decimal.Decimal `json:"total_value"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Broker defines the interface for broker integrations.
type Broker interface {
	// Name returns the broker identifier (e.g., "alpaca", "mock").
	Name() string

	// Connection management
	Connect(ctx context.Context) error
	Disconnect() error
	IsConnected() bool

	PlaceOrder(ctx context.Context, request OrderRequest) (*Order, error)
	GetPositions(ctx context.Context) ([]Position, error)
	GetBalance(ctx context.Context) (*Balance, error)
}
