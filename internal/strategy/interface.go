package strategy

import (
	"github.com/newthinker/crossover/internal/core"
	"github.com/newthinker/crossover/internal/indicator"
)

// DataRequirements specifies what data a strategy needs
type DataRequirements struct {
	PriceHistory int // Bars of history needed for a complete decision
	Indicators   []string
}

// Strategy maps a moving average pair and the current holding state to an action.
// Implementations must be pure: identical inputs always yield the identical action.
type Strategy interface {
	Name() string
	Description() string
	RequiredData() DataRequirements
	Decide(pair indicator.Pair, holding bool) core.Action
}
