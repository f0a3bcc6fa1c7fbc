package backtest

import (
	"encoding/json"
	"errors"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/crossover/internal/core"
)

func newTestEngine(t *testing.T, short, long int, cash int64) *Engine {
	t.Helper()
	e, err := NewEngine(EngineConfig{
		ShortWindow: short,
		LongWindow:  long,
		InitialCash: decimal.NewFromInt(cash),
	})
	require.NoError(t, err)
	return e
}

func TestNewEngine_InvalidConfiguration(t *testing.T) {
	tests := []struct {
		name string
		cfg  EngineConfig
	}{
		{"equal windows", EngineConfig{ShortWindow: 5, LongWindow: 5, InitialCash: decimal.NewFromInt(100)}},
		{"inverted windows", EngineConfig{ShortWindow: 10, LongWindow: 5, InitialCash: decimal.NewFromInt(100)}},
		{"zero window", EngineConfig{ShortWindow: 0, LongWindow: 5, InitialCash: decimal.NewFromInt(100)}},
		{"zero cash", EngineConfig{ShortWindow: 2, LongWindow: 5, InitialCash: decimal.Zero}},
		{"negative cash", EngineConfig{ShortWindow: 2, LongWindow: 5, InitialCash: decimal.NewFromInt(-1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := NewEngine(tt.cfg)
			require.Error(t, err)
			assert.Nil(t, e)
			assert.True(t, errors.Is(err, core.ErrConfigInvalid))
		})
	}
}

func TestEngine_Run_PlateauScenario(t *testing.T) {
	e := newTestEngine(t, 2, 5, 100)
	closes := concat(repeat(10, 10), repeat(20, 10), repeat(5, 10))
	trajectory := e.Run(makeSeries("AAPL", closes...))

	require.Len(t, trajectory, len(closes))
	assert.Equal(t, 1, trajectory.Count(core.ActionBuy))
	assert.Equal(t, 1, trajectory.Count(core.ActionSell))

	// first complete pair with short > long is the first bar of 20
	assert.Equal(t, core.ActionBuy, trajectory[10].Action)
	assert.Equal(t, "15", trajectory[10].MA.Short.Unwrap().String())
	assert.Equal(t, "12", trajectory[10].MA.Long.Unwrap().String())

	for i := 11; i < 20; i++ {
		assert.Equalf(t, core.ActionHold, trajectory[i].Action, "bar %d", i)
		assert.Equalf(t, 1, trajectory[i].State.Position, "bar %d", i)
	}

	assert.Equal(t, core.ActionSell, trajectory[20].Action)

	final, ok := trajectory.Final()
	require.True(t, ok)
	// 100 - 20 (buy) + 5 (sell)
	assert.Equal(t, "85", final.TotalEquity.String())
	assert.Equal(t, 0, final.Position)
	assert.False(t, final.Holding())
	assert.True(t, trajectory[15].State.Holding())
}

func TestEngine_Run_ShortSeriesAlwaysHolds(t *testing.T) {
	e := newTestEngine(t, 2, 5, 100)
	trajectory := e.Run(makeSeries("AAPL", 10, 30, 50, 70))

	for i, row := range trajectory {
		assert.Falsef(t, row.MA.Long.IsSome(), "long MA present at %d", i)
		assert.Equalf(t, core.ActionHold, row.Action, "bar %d", i)
		assert.Equal(t, "100", row.State.TotalEquity.String())
	}
}

func TestEngine_Run_Empty(t *testing.T) {
	e := newTestEngine(t, 2, 5, 100)
	trajectory := e.Run(nil)
	assert.Empty(t, trajectory)
	_, ok := trajectory.Final()
	assert.False(t, ok)
}

func TestEngine_Run_EqualAveragesHold(t *testing.T) {
	e := newTestEngine(t, 2, 4, 100)
	trajectory := e.Run(makeSeries("AAPL", repeat(10, 12)...))

	for i, row := range trajectory {
		assert.Equalf(t, core.ActionHold, row.Action, "bar %d", i)
	}
}

func randomWalk(seed int64, n int) []float64 {
	r := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	price := 100.0
	for i := range out {
		price += float64(r.Intn(801)-400) / 100
		if price < 1 {
			price = 1
		}
		out[i] = price
	}
	return out
}

func TestEngine_Run_PortfolioInvariants(t *testing.T) {
	e := newTestEngine(t, 3, 8, 1000)

	for seed := int64(1); seed <= 20; seed++ {
		trajectory := e.Run(makeSeries("AAPL", randomWalk(seed, 200)...))

		for i, row := range trajectory {
			s := row.State
			assert.Containsf(t, []int{0, 1}, s.Position, "seed %d bar %d", seed, i)
			assert.Truef(t, s.TotalEquity.Equal(s.Cash.Add(s.HoldingsValue)),
				"seed %d bar %d: equity %s != cash %s + holdings %s", seed, i, s.TotalEquity, s.Cash, s.HoldingsValue)
			want := row.Bar.Close.Mul(decimal.NewFromInt(int64(s.Position)))
			assert.Truef(t, s.HoldingsValue.Equal(want), "seed %d bar %d: holdings %s != %s", seed, i, s.HoldingsValue, want)
		}

		// buys and sells alternate, starting with a buy
		holding := false
		for i, row := range trajectory {
			switch row.Action {
			case core.ActionBuy:
				assert.Falsef(t, holding, "seed %d bar %d: buy while holding", seed, i)
				holding = true
			case core.ActionSell:
				assert.Truef(t, holding, "seed %d bar %d: sell while flat", seed, i)
				holding = false
			}
		}
	}
}

func TestEngine_Run_Deterministic(t *testing.T) {
	e := newTestEngine(t, 5, 20, 10000)
	series := makeSeries("AAPL", randomWalk(42, 300)...)

	first, err := json.Marshal(&Result{Trajectory: e.Run(series)})
	require.NoError(t, err)
	second, err := json.Marshal(&Result{Trajectory: e.Run(series)})
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
