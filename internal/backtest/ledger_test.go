package backtest

import (
	"testing"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/newthinker/crossover/internal/core"
	"github.com/newthinker/crossover/internal/indicator"
	"github.com/newthinker/crossover/internal/strategy/ma_crossover"
)

func completePair(short, long float64) indicator.Pair {
	return indicator.Pair{
		Short: optional.Some(decimal.NewFromFloat(short)),
		Long:  optional.Some(decimal.NewFromFloat(long)),
	}
}

func TestLedger_FirstBarNeverTrades(t *testing.T) {
	ledger := NewLedger(ma_crossover.New(2, 5), decimal.NewFromInt(100))
	bars := makeSeries("AAPL", 50)

	action, state := ledger.Apply(bars[0], completePair(12, 10))

	assert.Equal(t, core.ActionHold, action)
	assert.Equal(t, 0, state.Position)
	assert.True(t, state.Cash.Equal(decimal.NewFromInt(100)))
	assert.True(t, state.TotalEquity.Equal(decimal.NewFromInt(100)))
}

func TestLedger_BuyThenSell(t *testing.T) {
	ledger := NewLedger(ma_crossover.New(2, 5), decimal.NewFromInt(100))
	bars := makeSeries("AAPL", 10, 20, 25, 5)

	ledger.Apply(bars[0], indicator.Pair{})

	action, state := ledger.Apply(bars[1], completePair(12, 10))
	assert.Equal(t, core.ActionBuy, action)
	assert.Equal(t, 1, state.Position)
	assert.Equal(t, "80", state.Cash.String())
	assert.Equal(t, "20", state.HoldingsValue.String())
	assert.Equal(t, "100", state.TotalEquity.String())

	// still above: already holding, no second buy
	action, state = ledger.Apply(bars[2], completePair(13, 10))
	assert.Equal(t, core.ActionHold, action)
	assert.Equal(t, 1, state.Position)
	assert.Equal(t, "80", state.Cash.String())
	assert.Equal(t, "105", state.TotalEquity.String())

	action, state = ledger.Apply(bars[3], completePair(9, 10))
	assert.Equal(t, core.ActionSell, action)
	assert.Equal(t, 0, state.Position)
	assert.Equal(t, "85", state.Cash.String())
	assert.True(t, state.HoldingsValue.IsZero())
	assert.Equal(t, "85", state.TotalEquity.String())
}

func TestLedger_IncompletePairRemarksOnly(t *testing.T) {
	ledger := NewLedger(ma_crossover.New(2, 5), decimal.NewFromInt(100))
	bars := makeSeries("AAPL", 10, 20, 30)

	ledger.Apply(bars[0], indicator.Pair{})
	ledger.Apply(bars[1], completePair(12, 10))

	partial := indicator.Pair{Short: optional.Some(decimal.NewFromInt(1))}
	action, state := ledger.Apply(bars[2], partial)

	assert.Equal(t, core.ActionHold, action)
	assert.Equal(t, 1, state.Position)
	assert.Equal(t, "80", state.Cash.String())
	assert.Equal(t, "30", state.HoldingsValue.String())
	assert.Equal(t, "110", state.TotalEquity.String())
}

func TestLedger_CashMayGoNegative(t *testing.T) {
	ledger := NewLedger(ma_crossover.New(2, 5), decimal.NewFromInt(5))
	bars := makeSeries("AAPL", 10, 20)

	ledger.Apply(bars[0], indicator.Pair{})
	action, state := ledger.Apply(bars[1], completePair(12, 10))

	assert.Equal(t, core.ActionBuy, action)
	assert.Equal(t, "-15", state.Cash.String())
	assert.Equal(t, "5", state.TotalEquity.String())
}
