package core

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Bar represents one candlestick for a fixed timeframe. Only Close drives the strategy.
type Bar struct {
	Symbol   string
	Interval string // "5Min", "1Day"
	Open     decimal.Decimal
	High     decimal.Decimal
	Low      decimal.Decimal
	Close    decimal.Decimal
	Volume   uint64
	Time     time.Time
}

// IsValid checks if the bar has required fields
func (b Bar) IsValid() bool {
	return !b.Time.IsZero() && b.Close.IsPositive()
}

// BarSeries is an ordered sequence of bars, ascending by Time.
type BarSeries []Bar

// Closes extracts the closing prices in series order.
func (s BarSeries) Closes() []decimal.Decimal {
	closes := make([]decimal.Decimal, len(s))
	for i, bar := range s {
		closes[i] = bar.Close
	}
	return closes
}

// ForSymbol returns the bars belonging to symbol, preserving order.
func (s BarSeries) ForSymbol(symbol string) BarSeries {
	out := make(BarSeries, 0, len(s))
	for _, bar := range s {
		if bar.Symbol == symbol {
			out = append(out, bar)
		}
	}
	return out
}

// Valid returns the bars that pass IsValid, preserving order.
func (s BarSeries) Valid() BarSeries {
	out := make(BarSeries, 0, len(s))
	for _, bar := range s {
		if bar.IsValid() {
			out = append(out, bar)
		}
	}
	return out
}

// Sorted returns a copy of the series ordered by ascending Time.
func (s BarSeries) Sorted() BarSeries {
	out := make(BarSeries, len(s))
	copy(out, s)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Time.Before(out[j].Time)
	})
	return out
}

// IsAscending reports whether timestamps strictly increase.
func (s BarSeries) IsAscending() bool {
	for i := 1; i < len(s); i++ {
		if !s[i].Time.After(s[i-1].Time) {
			return false
		}
	}
	return true
}

// Last returns the final n bars, or the whole series when shorter.
func (s BarSeries) Last(n int) BarSeries {
	if n <= 0 || n >= len(s) {
		return s
	}
	return s[len(s)-n:]
}

// Action represents a trading signal action
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

// IsTrade reports whether the action requires an order.
func (a Action) IsTrade() bool {
	return a == ActionBuy || a == ActionSell
}

// Signal represents a trading signal from a strategy
type Signal struct {
	Symbol      string
	Action      Action
	Price       decimal.Decimal // Close of the bar that produced the signal
	ShortMA     decimal.Decimal
	LongMA      decimal.Decimal
	Reason      string
	Strategy    string
	GeneratedAt time.Time
}
