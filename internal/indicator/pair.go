package indicator

import (
	"fmt"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	"github.com/newthinker/crossover/internal/core"
)

// Pair holds the short and long moving averages at one bar.
type Pair struct {
	Short optional.Option[decimal.Decimal]
	Long  optional.Option[decimal.Decimal]
}

// Complete reports whether both averages are present.
func (p Pair) Complete() bool {
	return p.Short.IsSome() && p.Long.IsSome()
}

func (p Pair) String() string {
	return fmt.Sprintf("short=%s long=%s", formatOption(p.Short), formatOption(p.Long))
}

func formatOption(v optional.Option[decimal.Decimal]) string {
	if v.IsNone() {
		return "na"
	}
	return v.Unwrap().StringFixed(4)
}

// Calculator computes short/long moving average pairs over close prices.
type Calculator struct {
	shortWindow int
	longWindow  int
}

// NewCalculator creates a Calculator. Windows must be positive and strictly ordered.
func NewCalculator(shortWindow, longWindow int) (*Calculator, error) {
	if shortWindow <= 0 || longWindow <= 0 {
		return nil, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("windows must be positive, got short=%d long=%d", shortWindow, longWindow))
	}
	if shortWindow >= longWindow {
		return nil, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("short window (%d) must be less than long window (%d)", shortWindow, longWindow))
	}
	return &Calculator{shortWindow: shortWindow, longWindow: longWindow}, nil
}

// Pairs returns one Pair per close, index-aligned with closes.
func (c *Calculator) Pairs(closes []decimal.Decimal) []Pair {
	short := SMA(closes, c.shortWindow)
	long := SMA(closes, c.longWindow)

	pairs := make([]Pair, len(closes))
	for i := range closes {
		pairs[i] = Pair{Short: short[i], Long: long[i]}
	}
	return pairs
}

// Latest computes the pair at the final bar of symbol within bars.
// It fails with ErrDataUnavailable when the symbol is absent or fewer than
// LongWindow bars exist for it.
func (c *Calculator) Latest(symbol string, bars core.BarSeries) (Pair, error) {
	own := bars.ForSymbol(symbol)
	if len(own) == 0 {
		return Pair{}, core.DataUnavailable(core.WrapError(core.ErrSymbolNotFound,
			fmt.Errorf("%s not present in %d fetched bars", symbol, len(bars))))
	}
	if len(own) < c.longWindow {
		return Pair{}, core.DataUnavailable(core.WrapError(core.ErrInsufficientData,
			fmt.Errorf("%s: %d bars, need %d", symbol, len(own), c.longWindow)))
	}

	closes := own.Closes()
	return Pair{
		Short: LatestSMA(closes, c.shortWindow),
		Long:  LatestSMA(closes, c.longWindow),
	}, nil
}
