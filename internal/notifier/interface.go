// Package notifier delivers trade notifications from the live loop.
package notifier

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/newthinker/crossover/internal/broker"
	"github.com/newthinker/crossover/internal/core"
)

// Trade is an order the live loop placed, or tried to place.
type Trade struct {
	Signal    core.Signal
	OrderID   string
	Status    string
	Quantity  int64
	FillPrice decimal.Decimal
	DryRun    bool
	Message   string
}

// Notifier defines the interface for trade notification
type Notifier interface {
	// Name returns the unique identifier for this notifier
	Name() string

	// Send delivers a single trade notification
	Send(ctx context.Context, trade Trade) error
}

// TradeFromExecution describes the outcome of executing signal.
func TradeFromExecution(signal core.Signal, exec *broker.ExecuteResult, execErr error) Trade {
	t := Trade{Signal: signal}
	if exec != nil {
		t.Quantity = exec.Request.Quantity
		t.Message = exec.Message
		t.DryRun = exec.DryRun
		if exec.Order != nil {
			t.OrderID = exec.Order.OrderID
			t.Status = string(exec.Order.Status)
			t.FillPrice = exec.Order.AverageFillPrice
		}
	}
	if execErr != nil {
		t.Status = string(broker.OrderStatusRejected)
		t.Message = execErr.Error()
	}
	return t
}
