package collector

import (
	"context"

	"github.com/newthinker/crossover/internal/core"
)

// Config holds collector configuration
type Config struct {
	APIKey    string
	APISecret string
	Feed      string // alpaca: "iex" or "sip"
	Path      string // csv: file to read
}

// BarProvider supplies historical bars for a symbol and timeframe.
// FetchBars returns at most limit of the most recent bars, ascending by time.
// A provider that cannot be reached returns an error; a symbol with no
// bars in range returns an empty series.
type BarProvider interface {
	Name() string
	FetchBars(ctx context.Context, symbol, timeframe string, limit int) (core.BarSeries, error)
}
