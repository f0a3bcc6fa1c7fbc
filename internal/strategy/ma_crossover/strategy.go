package ma_crossover

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/newthinker/crossover/internal/core"
	"github.com/newthinker/crossover/internal/indicator"
	"github.com/newthinker/crossover/internal/strategy"
)

// MACrossover implements a long-only moving average crossover strategy
type MACrossover struct {
	fastPeriod int
	slowPeriod int
}

// New creates a new MA Crossover strategy
func New(fastPeriod, slowPeriod int) *MACrossover {
	return &MACrossover{
		fastPeriod: fastPeriod,
		slowPeriod: slowPeriod,
	}
}

func (m *MACrossover) Name() string {
	return "ma_crossover"
}

func (m *MACrossover) Description() string {
	return fmt.Sprintf("MA Crossover (%d/%d)", m.fastPeriod, m.slowPeriod)
}

func (m *MACrossover) RequiredData() strategy.DataRequirements {
	return strategy.DataRequirements{
		PriceHistory: m.slowPeriod + 1, // long window plus the previous bar
		Indicators:   []string{"SMA"},
	}
}

// Decide applies the crossover rule. Only strict inequality trades:
// equal averages, or either average absent, always hold.
func (m *MACrossover) Decide(pair indicator.Pair, holding bool) core.Action {
	if !pair.Complete() {
		return core.ActionHold
	}

	fast := pair.Short.Unwrap()
	slow := pair.Long.Unwrap()

	switch {
	case fast.GreaterThan(slow) && !holding:
		return core.ActionBuy
	case fast.LessThan(slow) && holding:
		return core.ActionSell
	default:
		return core.ActionHold
	}
}

// Evaluate decides for the given bar and wraps the action in a Signal.
func (m *MACrossover) Evaluate(bar core.Bar, pair indicator.Pair, holding bool, now time.Time) core.Signal {
	action := m.Decide(pair, holding)

	sig := core.Signal{
		Symbol:      bar.Symbol,
		Action:      action,
		Price:       bar.Close,
		Strategy:    m.Name(),
		GeneratedAt: now,
	}
	if pair.Complete() {
		sig.ShortMA = pair.Short.Unwrap()
		sig.LongMA = pair.Long.Unwrap()
	}
	sig.Reason = m.reason(action, pair, holding)
	return sig
}

func (m *MACrossover) reason(action core.Action, pair indicator.Pair, holding bool) string {
	if !pair.Complete() {
		return fmt.Sprintf("insufficient history for MA%d/MA%d", m.fastPeriod, m.slowPeriod)
	}
	fast, slow := pair.Short.Unwrap(), pair.Long.Unwrap()

	switch action {
	case core.ActionBuy:
		return fmt.Sprintf("MA%d (%s) above MA%d (%s)", m.fastPeriod, round(fast), m.slowPeriod, round(slow))
	case core.ActionSell:
		return fmt.Sprintf("MA%d (%s) below MA%d (%s)", m.fastPeriod, round(fast), m.slowPeriod, round(slow))
	}

	switch {
	case fast.Equal(slow):
		return "averages equal, no clear signal"
	case holding:
		return "already holding, trend intact"
	default:
		return "flat, trend down"
	}
}

func round(d decimal.Decimal) string {
	return d.StringFixed(2)
}
