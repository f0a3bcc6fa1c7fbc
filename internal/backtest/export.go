package backtest

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type rowJSON struct {
	Time          time.Time        `json:"time"`
	Close         decimal.Decimal  `json:"close"`
	ShortMA       *decimal.Decimal `json:"short_ma"`
	LongMA        *decimal.Decimal `json:"long_ma"`
	Signal        string           `json:"signal"`
	Position      int              `json:"position"`
	Cash          decimal.Decimal  `json:"cash"`
	HoldingsValue decimal.Decimal  `json:"holdings"`
	TotalEquity   decimal.Decimal  `json:"total"`
}

type tradeJSON struct {
	EntryTime  time.Time       `json:"entry_time"`
	ExitTime   *time.Time      `json:"exit_time,omitempty"`
	EntryPrice decimal.Decimal `json:"entry_price"`
	ExitPrice  decimal.Decimal `json:"exit_price"`
	Return     float64         `json:"return"`
}

type resultJSON struct {
	RunID       string          `json:"run_id"`
	Strategy    string          `json:"strategy"`
	Symbol      string          `json:"symbol"`
	Timeframe   string          `json:"timeframe"`
	ShortWindow int             `json:"short_window"`
	LongWindow  int             `json:"long_window"`
	InitialCash decimal.Decimal `json:"initial_cash"`
	StartDate   time.Time       `json:"start_date"`
	EndDate     time.Time       `json:"end_date"`
	Stats       statsJSON       `json:"stats"`
	Trades      []tradeJSON     `json:"trades"`
	Trajectory  []rowJSON       `json:"trajectory"`
}

type statsJSON struct {
	TotalTrades   int             `json:"total_trades"`
	WinningTrades int             `json:"winning_trades"`
	LosingTrades  int             `json:"losing_trades"`
	WinRate       float64         `json:"win_rate"`
	TotalReturn   float64         `json:"total_return"`
	FinalEquity   decimal.Decimal `json:"final_equity"`
	NetPnL        decimal.Decimal `json:"net_pnl"`
	EquityReturn  float64         `json:"equity_return"`
	MaxDrawdown   float64         `json:"max_drawdown"`
	SharpeRatio   float64         `json:"sharpe_ratio"`
}

// MarshalJSON encodes the trajectory with absent averages as null.
func (r *Result) MarshalJSON() ([]byte, error) {
	out := resultJSON{
		RunID:       r.RunID,
		Strategy:    r.Strategy,
		Symbol:      r.Symbol,
		Timeframe:   r.Timeframe,
		ShortWindow: r.ShortWindow,
		LongWindow:  r.LongWindow,
		InitialCash: r.InitialCash,
		StartDate:   r.StartDate,
		EndDate:     r.EndDate,
		Stats: statsJSON{
			TotalTrades:   r.Stats.TotalTrades,
			WinningTrades: r.Stats.WinningTrades,
			LosingTrades:  r.Stats.LosingTrades,
			WinRate:       r.Stats.WinRate,
			TotalReturn:   r.Stats.TotalReturn,
			FinalEquity:   r.Stats.FinalEquity,
			NetPnL:        r.Stats.NetPnL,
			EquityReturn:  r.Stats.EquityReturn,
			MaxDrawdown:   r.Stats.MaxDrawdown,
			SharpeRatio:   r.Stats.SharpeRatio,
		},
		Trades:     make([]tradeJSON, len(r.Trades)),
		Trajectory: make([]rowJSON, len(r.Trajectory)),
	}

	for i, t := range r.Trades {
		out.Trades[i] = tradeJSON{
			EntryTime:  t.EntryTime,
			ExitTime:   t.ExitTime,
			EntryPrice: t.EntryPrice,
			ExitPrice:  t.ExitPrice,
			Return:     t.Return,
		}
	}

	for i, row := range r.Trajectory {
		rj := rowJSON{
			Time:          row.Bar.Time,
			Close:         row.Bar.Close,
			Signal:        string(row.Action),
			Position:      row.State.Position,
			Cash:          row.State.Cash,
			HoldingsValue: row.State.HoldingsValue,
			TotalEquity:   row.State.TotalEquity,
		}
		if row.MA.Short.IsSome() {
			v := row.MA.Short.Unwrap()
			rj.ShortMA = &v
		}
		if row.MA.Long.IsSome() {
			v := row.MA.Long.Unwrap()
			rj.LongMA = &v
		}
		out.Trajectory[i] = rj
	}

	return json.Marshal(out)
}
