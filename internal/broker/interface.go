package broker

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
)

// FindPosition returns the position held in symbol, or ErrPositionNotFound when flat.
func FindPosition(ctx context.Context, b Broker, symbol string) (*Position, error) {
	positions, err := b.GetPositions(ctx)
	if err != nil {
		return nil, err
	}
	for i := range positions {
		if strings.EqualFold(positions[i].Symbol, symbol) && positions[i].Quantity != 0 {
			return &positions[i], nil
		}
	}
	return nil, ErrPositionNotFound
}

// HoldsPosition reports whether a long position is open in symbol.
func HoldsPosition(ctx context.Context, b Broker, symbol string) (bool, error) {
	pos, err := FindPosition(ctx, b, symbol)
	if err == ErrPositionNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return pos.IsLong(), nil
}

// PriceObserver is implemented by simulated brokers that fill market orders
// at the last price they were shown.
type PriceObserver interface {
	ObservePrice(symbol string, price decimal.Decimal)
}
