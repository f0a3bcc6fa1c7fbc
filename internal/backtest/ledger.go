package backtest

import (
	"github.com/shopspring/decimal"

	"github.com/newthinker/crossover/internal/core"
	"github.com/newthinker/crossover/internal/indicator"
	"github.com/newthinker/crossover/internal/strategy"
)

// Ledger holds simulated cash and a single-unit long position, and applies
// strategy decisions to it bar by bar. It trades exactly one unit per transition
// and never checks cash: an insufficient balance simply goes negative.
type Ledger struct {
	strategy strategy.Strategy
	position int
	cash     decimal.Decimal
	started  bool
}

// NewLedger creates a flat Ledger holding initialCash.
func NewLedger(strat strategy.Strategy, initialCash decimal.Decimal) *Ledger {
	return &Ledger{
		strategy: strat,
		cash:     initialCash,
	}
}

// Apply processes the next bar and returns the decision and resulting state.
// The first bar is never traded; bars with an incomplete pair only re-mark holdings.
func (l *Ledger) Apply(bar core.Bar, pair indicator.Pair) (core.Action, PortfolioState) {
	if !l.started {
		l.started = true
		return core.ActionHold, l.mark(bar.Close)
	}

	if !pair.Complete() {
		return core.ActionHold, l.mark(bar.Close)
	}

	action := l.strategy.Decide(pair, l.position > 0)
	switch action {
	case core.ActionBuy:
		l.cash = l.cash.Sub(bar.Close)
		l.position = 1
	case core.ActionSell:
		l.cash = l.cash.Add(bar.Close)
		l.position = 0
	}

	return action, l.mark(bar.Close)
}

func (l *Ledger) mark(price decimal.Decimal) PortfolioState {
	holdings := price.Mul(decimal.NewFromInt(int64(l.position)))
	return PortfolioState{
		Position:      l.position,
		Cash:          l.cash,
		HoldingsValue: holdings,
		TotalEquity:   l.cash.Add(holdings),
	}
}
