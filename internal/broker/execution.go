package broker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/newthinker/crossover/internal/core"
)

// ExecutionConfig holds configuration for the executor.
type ExecutionConfig struct {
	// Quantity is the number of shares per order.
	Quantity    int64
	TimeInForce TimeInForce
	// DryRun logs orders instead of placing them.
	DryRun bool
}

// DefaultExecutionConfig returns a sensible default configuration.
func DefaultExecutionConfig() ExecutionConfig {
	return ExecutionConfig{
		Quantity:    1,
		TimeInForce: TimeInForceGTC,
	}
}

// ExecuteResult represents the outcome of an execution attempt.
type ExecuteResult struct {
	// Submitted indicates an order reached the broker.
	Submitted bool
	Request   OrderRequest
	// Order is the placed order (nil unless submitted).
	Order *Order
	// DryRun marks an order that passed every check but was only logged.
	DryRun  bool
	Message string
}

// Executor turns buy and sell signals into market orders.
type Executor struct {
	config ExecutionConfig
	broker Broker
	risk   *RiskChecker
	logger *zap.Logger
}

// NewExecutor creates a new Executor with the given dependencies.
func NewExecutor(config ExecutionConfig, broker Broker, risk *RiskChecker, logger ...*zap.Logger) *Executor {
	l := zap.NewNop()
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	}
	if config.TimeInForce == "" {
		config.TimeInForce = TimeInForceGTC
	}
	return &Executor{
		config: config,
		broker: broker,
		risk:   risk,
		logger: l,
	}
}

// Execute places the order implied by signal.
// Hold signals and guard refusals return a result without error. A broker
// refusal, a cancelled order or a non-positive quantity is reported as
// ErrOrderRejected; a failed account lookup as ErrPositionUnavailable.
func (e *Executor) Execute(ctx context.Context, signal core.Signal) (*ExecuteResult, error) {
	var side OrderSide
	switch signal.Action {
	case core.ActionBuy:
		side = OrderSideBuy
	case core.ActionSell:
		side = OrderSideSell
	default:
		return &ExecuteResult{
			Message: fmt.Sprintf("signal action %s does not require execution", signal.Action),
		}, nil
	}

	request := OrderRequest{
		Symbol:        signal.Symbol,
		Side:          side,
		Type:          OrderTypeMarket,
		Quantity:      e.config.Quantity,
		TimeInForce:   e.config.TimeInForce,
		ClientOrderID: "crossover-" + uuid.NewString(),
	}
	if err := request.Validate(); err != nil {
		return nil, core.WrapError(core.ErrOrderRejected, err)
	}

	if e.risk != nil {
		check, err := e.risk.Check(ctx, request, signal.Price)
		if err != nil {
			return nil, err
		}
		if !check.Allowed {
			e.logger.Warn("order blocked by risk check",
				zap.String("symbol", request.Symbol),
				zap.String("side", string(side)),
				zap.String("reason", check.Reason),
			)
			return &ExecuteResult{
				Request: request,
				Message: fmt.Sprintf("risk check failed: %s", check.Reason),
			}, nil
		}
	}

	if e.config.DryRun {
		e.logger.Info("dry run: order not placed",
			zap.String("symbol", request.Symbol),
			zap.String("side", string(side)),
			zap.Int64("quantity", request.Quantity),
			zap.String("client_order_id", request.ClientOrderID),
		)
		return &ExecuteResult{
			Request: request,
			DryRun:  true,
			Message: fmt.Sprintf("dry run: %s %d %s @ market", side, request.Quantity, request.Symbol),
		}, nil
	}

	order, err := e.broker.PlaceOrder(ctx, request)
	if err != nil {
		e.logger.Error("place order failed",
			zap.String("symbol", request.Symbol),
			zap.String("side", string(side)),
			zap.Error(err),
		)
		return nil, core.WrapError(core.ErrOrderRejected, err)
	}

	result := &ExecuteResult{
		Submitted: true,
		Request:   request,
		Order:     order,
		Message:   fmt.Sprintf("order placed: %s %d %s @ market", side, request.Quantity, request.Symbol),
	}

	// a cancelled or rejected order never reaches the position
	if order.IsTerminal() && !order.IsFilled() {
		reason := order.RejectionReason
		if reason == "" {
			reason = fmt.Sprintf("order %s by broker", strings.ToLower(string(order.Status)))
		}
		return result, core.WrapError(core.ErrOrderRejected, errors.New(reason))
	}

	e.logger.Info("order placed",
		zap.String("order_id", order.OrderID),
		zap.String("client_order_id", order.ClientOrderID),
		zap.String("symbol", order.Symbol),
		zap.String("side", string(order.Side)),
		zap.Int64("quantity", order.Quantity),
		zap.String("status", string(order.Status)),
		zap.Bool("open", order.IsOpen()),
	)

	return result, nil
}
