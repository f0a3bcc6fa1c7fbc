package broker_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/crossover/internal/broker"
	"github.com/newthinker/crossover/internal/broker/paper"
	"github.com/newthinker/crossover/internal/core"
)

func newTestExecutor(t *testing.T, cfg broker.ExecutionConfig) (*broker.Executor, *paper.Broker) {
	t.Helper()
	b := newPaper(t, 100000)
	b.ObservePrice("AAPL", decimal.NewFromInt(150))
	checker := broker.NewRiskChecker(broker.DefaultRiskConfig(), b)
	return broker.NewExecutor(cfg, b, checker), b
}

func signal(action core.Action) core.Signal {
	return core.Signal{
		Symbol: "AAPL",
		Action: action,
		Price:  decimal.NewFromInt(150),
	}
}

func TestDefaultExecutionConfig(t *testing.T) {
	config := broker.DefaultExecutionConfig()

	assert.Equal(t, int64(1), config.Quantity)
	assert.Equal(t, broker.TimeInForceGTC, config.TimeInForce)
	assert.False(t, config.DryRun)
}

func TestExecutor_BuyPlacesMarketOrder(t *testing.T) {
	executor, b := newTestExecutor(t, broker.ExecutionConfig{Quantity: 3, TimeInForce: broker.TimeInForceDay})

	result, err := executor.Execute(context.Background(), signal(core.ActionBuy))
	require.NoError(t, err)
	require.True(t, result.Submitted)
	require.NotNil(t, result.Order)

	assert.Equal(t, broker.OrderSideBuy, result.Request.Side)
	assert.Equal(t, broker.OrderTypeMarket, result.Request.Type)
	assert.Equal(t, int64(3), result.Request.Quantity)
	assert.Equal(t, broker.TimeInForceDay, result.Request.TimeInForce)
	assert.True(t, strings.HasPrefix(result.Request.ClientOrderID, "crossover-"))
	assert.Equal(t, result.Request.ClientOrderID, result.Order.ClientOrderID)

	holding, err := broker.HoldsPosition(context.Background(), b, "AAPL")
	require.NoError(t, err)
	assert.True(t, holding)
}

func TestExecutor_HoldAction_NoExecution(t *testing.T) {
	executor, b := newTestExecutor(t, broker.DefaultExecutionConfig())

	result, err := executor.Execute(context.Background(), signal(core.ActionHold))
	require.NoError(t, err)
	assert.False(t, result.Submitted)
	assert.Contains(t, result.Message, "does not require execution")
	assert.Empty(t, b.Orders())
}

func TestExecutor_SecondBuyBlocked(t *testing.T) {
	executor, b := newTestExecutor(t, broker.DefaultExecutionConfig())
	ctx := context.Background()

	_, err := executor.Execute(ctx, signal(core.ActionBuy))
	require.NoError(t, err)

	result, err := executor.Execute(ctx, signal(core.ActionBuy))
	require.NoError(t, err)
	assert.False(t, result.Submitted)
	assert.Contains(t, result.Message, "already holding")
	assert.Len(t, b.Orders(), 1)
}

func TestExecutor_SellWhenFlatBlocked(t *testing.T) {
	executor, b := newTestExecutor(t, broker.DefaultExecutionConfig())

	result, err := executor.Execute(context.Background(), signal(core.ActionSell))
	require.NoError(t, err)
	assert.False(t, result.Submitted)
	assert.Empty(t, b.Orders())
}

func TestExecutor_SellClosesPosition(t *testing.T) {
	executor, b := newTestExecutor(t, broker.DefaultExecutionConfig())
	b.SetPosition("AAPL", 1, decimal.NewFromInt(140))

	result, err := executor.Execute(context.Background(), signal(core.ActionSell))
	require.NoError(t, err)
	assert.True(t, result.Submitted)
	assert.Equal(t, broker.OrderSideSell, result.Order.Side)

	holding, err := broker.HoldsPosition(context.Background(), b, "AAPL")
	require.NoError(t, err)
	assert.False(t, holding)
}

func TestExecutor_DryRun(t *testing.T) {
	executor, b := newTestExecutor(t, broker.ExecutionConfig{Quantity: 1, DryRun: true})

	result, err := executor.Execute(context.Background(), signal(core.ActionBuy))
	require.NoError(t, err)
	assert.False(t, result.Submitted)
	assert.True(t, result.DryRun)
	assert.Contains(t, result.Message, "dry run")
	assert.Equal(t, int64(1), result.Request.Quantity)
	assert.Empty(t, b.Orders())
}

func TestExecutor_BrokerErrorIsOrderRejected(t *testing.T) {
	executor, b := newTestExecutor(t, broker.DefaultExecutionConfig())
	b.SetShouldFail(true, "insufficient funds")

	result, err := executor.Execute(context.Background(), signal(core.ActionBuy))
	assert.Nil(t, result)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrOrderRejected))
	assert.ErrorContains(t, err, "insufficient funds")
}

func TestExecutor_RejectedStatusIsOrderRejected(t *testing.T) {
	executor, b := newTestExecutor(t, broker.DefaultExecutionConfig())
	b.RejectNext("symbol halted")

	result, err := executor.Execute(context.Background(), signal(core.ActionBuy))
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrOrderRejected))
	assert.ErrorContains(t, err, "symbol halted")
	require.NotNil(t, result)
	assert.Equal(t, broker.OrderStatusRejected, result.Order.Status)
}

// cancellingBroker accepts orders and reports them cancelled.
type cancellingBroker struct {
	*paper.Broker
}

func (c cancellingBroker) PlaceOrder(ctx context.Context, req broker.OrderRequest) (*broker.Order, error) {
	return &broker.Order{
		OrderID:       "cancelled-1",
		ClientOrderID: req.ClientOrderID,
		Symbol:        req.Symbol,
		Side:          req.Side,
		Quantity:      req.Quantity,
		Status:        broker.OrderStatusCancelled,
	}, nil
}

func TestExecutor_CancelledStatusIsOrderRejected(t *testing.T) {
	executor := broker.NewExecutor(broker.DefaultExecutionConfig(), cancellingBroker{newPaper(t, 100000)}, nil)

	result, err := executor.Execute(context.Background(), signal(core.ActionBuy))
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrOrderRejected))
	assert.ErrorContains(t, err, "order cancelled by broker")
	require.NotNil(t, result)
	assert.True(t, result.Submitted)
}

func TestExecutor_NonPositiveQuantityRejected(t *testing.T) {
	for _, qty := range []int64{0, -2} {
		executor, b := newTestExecutor(t, broker.ExecutionConfig{Quantity: qty, TimeInForce: broker.TimeInForceDay})

		result, err := executor.Execute(context.Background(), signal(core.ActionBuy))
		assert.Nil(t, result)
		assert.True(t, errors.Is(err, core.ErrOrderRejected), "quantity %d", qty)
		assert.True(t, errors.Is(err, broker.ErrInvalidQuantity), "quantity %d", qty)
		assert.Empty(t, b.Orders())
	}
}

func TestExecutor_PositionLookupFailure(t *testing.T) {
	executor, b := newTestExecutor(t, broker.DefaultExecutionConfig())
	b.SetPositionsError(errors.New("503"))

	_, err := executor.Execute(context.Background(), signal(core.ActionBuy))
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrPositionUnavailable))
	assert.Empty(t, b.Orders())
}

func TestExecutor_EmptySymbolRejected(t *testing.T) {
	executor, _ := newTestExecutor(t, broker.DefaultExecutionConfig())
	s := signal(core.ActionBuy)
	s.Symbol = ""

	_, err := executor.Execute(context.Background(), s)
	assert.True(t, errors.Is(err, core.ErrOrderRejected))
	assert.True(t, errors.Is(err, broker.ErrInvalidSymbol))
}
