package backtest

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/newthinker/crossover/internal/core"
	"github.com/newthinker/crossover/internal/indicator"
)

// PortfolioState is the simulated account after a bar has been processed.
// TotalEquity == Cash + HoldingsValue and HoldingsValue == Position * close.
type PortfolioState struct {
	Position      int // 0 or 1
	Cash          decimal.Decimal
	HoldingsValue decimal.Decimal
	TotalEquity   decimal.Decimal
}

// Holding reports whether the unit is currently held.
func (s PortfolioState) Holding() bool {
	return s.Position > 0
}

// Row is one bar of a Trajectory.
type Row struct {
	Bar    core.Bar
	MA     indicator.Pair
	Action core.Action
	State  PortfolioState
}

// Trajectory is the per-bar history of a backtest, index-aligned with its input series.
type Trajectory []Row

// Final returns the state after the last bar.
func (t Trajectory) Final() (PortfolioState, bool) {
	if len(t) == 0 {
		return PortfolioState{}, false
	}
	return t[len(t)-1].State, true
}

// Count returns the number of rows carrying action.
func (t Trajectory) Count(action core.Action) int {
	n := 0
	for _, row := range t {
		if row.Action == action {
			n++
		}
	}
	return n
}

// Result holds the complete backtest output
type Result struct {
	RunID       string
	Strategy    string
	Symbol      string
	Timeframe   string
	ShortWindow int
	LongWindow  int
	InitialCash decimal.Decimal
	StartDate   time.Time
	EndDate     time.Time
	Trajectory  Trajectory
	Trades      []Trade
	Stats       Stats
}

// Trade represents a simulated round trip from entry to exit
type Trade struct {
	EntryTime  time.Time
	ExitTime   *time.Time // nil if position still open
	EntryPrice decimal.Decimal
	ExitPrice  decimal.Decimal // last close when still open
	Return     float64         // Fractional return
}

// Stats holds performance statistics
type Stats struct {
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64 // Percentage of profitable closed trades
	TotalReturn   float64 // Sum of closed trade returns, percentage
	FinalEquity   decimal.Decimal
	NetPnL        decimal.Decimal
	EquityReturn  float64 // Final equity vs initial cash, percentage
	MaxDrawdown   float64 // Largest peak-to-trough equity decline, percentage
	SharpeRatio   float64 // Per-bar equity returns, annualized
}

// IsWin returns true if the trade was profitable
func (t Trade) IsWin() bool {
	return t.Return > 0
}

// IsClosed returns true if the trade has an exit
func (t Trade) IsClosed() bool {
	return t.ExitTime != nil
}
