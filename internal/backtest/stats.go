package backtest

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/newthinker/crossover/internal/core"
)

// TradesFromTrajectory pairs each Buy with the following Sell.
// A Buy still open at the end is marked to the last close and left unclosed.
func TradesFromTrajectory(t Trajectory) []Trade {
	var trades []Trade
	var openTrade *Trade

	for _, row := range t {
		switch row.Action {
		case core.ActionBuy:
			if openTrade == nil {
				openTrade = &Trade{
					EntryTime:  row.Bar.Time,
					EntryPrice: row.Bar.Close,
				}
			}
		case core.ActionSell:
			if openTrade != nil {
				exitTime := row.Bar.Time
				openTrade.ExitTime = &exitTime
				openTrade.ExitPrice = row.Bar.Close
				openTrade.Return = tradeReturn(openTrade.EntryPrice, openTrade.ExitPrice)
				trades = append(trades, *openTrade)
				openTrade = nil
			}
		}
	}

	if openTrade != nil && len(t) > 0 {
		openTrade.ExitPrice = t[len(t)-1].Bar.Close
		openTrade.Return = tradeReturn(openTrade.EntryPrice, openTrade.ExitPrice)
		trades = append(trades, *openTrade)
	}

	return trades
}

func tradeReturn(entry, exit decimal.Decimal) float64 {
	if entry.IsZero() {
		return 0
	}
	r, _ := exit.Sub(entry).Div(entry).Float64()
	return r
}

// CalculateStats computes performance statistics from trades and the equity curve
func CalculateStats(trades []Trade, t Trajectory, initialCash decimal.Decimal) Stats {
	stats := Stats{
		TotalTrades: len(trades),
		FinalEquity: initialCash,
	}

	var totalReturn float64
	for _, tr := range trades {
		if !tr.IsClosed() {
			continue
		}
		totalReturn += tr.Return
		if tr.IsWin() {
			stats.WinningTrades++
		} else {
			stats.LosingTrades++
		}
	}

	closedTrades := stats.WinningTrades + stats.LosingTrades
	if closedTrades > 0 {
		stats.WinRate = float64(stats.WinningTrades) / float64(closedTrades) * 100
	}
	stats.TotalReturn = totalReturn * 100 // Convert to percentage

	if final, ok := t.Final(); ok {
		stats.FinalEquity = final.TotalEquity
	}
	stats.NetPnL = stats.FinalEquity.Sub(initialCash)
	if initialCash.IsPositive() {
		stats.EquityReturn, _ = stats.NetPnL.Div(initialCash).Mul(decimal.NewFromInt(100)).Float64()
	}

	equity := equityCurve(t)
	stats.MaxDrawdown = calculateMaxDrawdown(equity) * 100
	stats.SharpeRatio = calculateSharpeRatio(barReturns(equity))

	return stats
}

func equityCurve(t Trajectory) []float64 {
	curve := make([]float64, len(t))
	for i, row := range t {
		curve[i], _ = row.State.TotalEquity.Float64()
	}
	return curve
}

func barReturns(equity []float64) []float64 {
	if len(equity) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		if equity[i-1] == 0 {
			continue
		}
		returns = append(returns, equity[i]/equity[i-1]-1)
	}
	return returns
}

// calculateMaxDrawdown finds the largest peak-to-trough decline of the equity curve
func calculateMaxDrawdown(equity []float64) float64 {
	var maxDD float64
	var peak float64

	for _, v := range equity {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			dd := (peak - v) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}

	return maxDD
}

// calculateSharpeRatio computes risk-adjusted return
// Assumes risk-free rate of 0 for simplicity
func calculateSharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	stdDev := math.Sqrt(variance / float64(len(returns)-1))

	if stdDev == 0 {
		return 0
	}

	// Annualize (assuming ~252 trading periods)
	return (mean * 252) / (stdDev * math.Sqrt(252))
}
