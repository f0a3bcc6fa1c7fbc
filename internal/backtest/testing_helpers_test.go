package backtest

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/newthinker/crossover/internal/core"
)

var baseTime = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func makeSeries(symbol string, closes ...float64) core.BarSeries {
	out := make(core.BarSeries, len(closes))
	for i, c := range closes {
		out[i] = core.Bar{
			Symbol:   symbol,
			Interval: "1Day",
			Close:    decimal.NewFromFloat(c),
			Time:     baseTime.AddDate(0, 0, i),
		}
	}
	return out
}

func repeat(value float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = value
	}
	return out
}

func concat(parts ...[]float64) []float64 {
	var out []float64
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
