package alpaca

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/newthinker/crossover/internal/collector"
	"github.com/newthinker/crossover/internal/core"
)

// minLookback is the shortest window requested, so weekends and holidays
// never leave a small limit empty.
const minLookback = 7 * 24 * time.Hour

var timeFramePattern = regexp.MustCompile(`^(\d+)(Min|Hour|Day|Week|Month)$`)

// barsClient is the subset of the market data client used here
type barsClient interface {
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
}

// Alpaca fetches historical bars from the Alpaca market data API
type Alpaca struct {
	client barsClient
	feed   marketdata.Feed
	now    func() time.Time
	logger *zap.Logger
}

// New creates a new Alpaca collector
func New(cfg collector.Config, logger ...*zap.Logger) *Alpaca {
	feed := parseFeed(cfg.Feed)
	client := marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
		Feed:      feed,
	})
	return newWithClient(client, feed, logger...)
}

func newWithClient(client barsClient, feed marketdata.Feed, logger ...*zap.Logger) *Alpaca {
	l := zap.NewNop()
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	}
	return &Alpaca{
		client: client,
		feed:   feed,
		now:    time.Now,
		logger: l,
	}
}

func (a *Alpaca) Name() string {
	return "alpaca"
}

// FetchBars returns up to limit of the most recent bars for symbol
func (a *Alpaca) FetchBars(ctx context.Context, symbol, timeframe string, limit int) (core.BarSeries, error) {
	if limit <= 0 {
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("bar limit must be positive, got %d", limit))
	}
	tf, step, err := parseTimeFrame(timeframe)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	end := a.now().UTC()
	lookback := step * time.Duration(limit) * 4
	if lookback < minLookback {
		lookback = minLookback
	}

	bars, err := a.client.GetBars(strings.ToUpper(symbol), marketdata.GetBarsRequest{
		TimeFrame:  tf,
		Adjustment: marketdata.Split,
		Start:      end.Add(-lookback),
		End:        end,
		Feed:       a.feed,
	})
	if err != nil {
		var apiErr *alpaca.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, core.WrapError(core.ErrSymbolNotFound, err)
		}
		return nil, fmt.Errorf("fetching bars: %w", err)
	}

	if len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}

	series := make(core.BarSeries, 0, len(bars))
	for _, b := range bars {
		series = append(series, core.Bar{
			Symbol:   symbol,
			Interval: timeframe,
			Open:     decimal.NewFromFloat(b.Open),
			High:     decimal.NewFromFloat(b.High),
			Low:      decimal.NewFromFloat(b.Low),
			Close:    decimal.NewFromFloat(b.Close),
			Volume:   b.Volume,
			Time:     b.Timestamp,
		})
	}

	a.logger.Debug("bars fetched",
		zap.String("symbol", symbol),
		zap.String("timeframe", timeframe),
		zap.Int("count", len(series)),
	)

	return series, nil
}

// parseTimeFrame converts "5Min", "1Hour", "1Day" into an API time frame and its span
func parseTimeFrame(s string) (marketdata.TimeFrame, time.Duration, error) {
	m := timeFramePattern.FindStringSubmatch(s)
	if m == nil {
		return marketdata.TimeFrame{}, 0, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("invalid timeframe %q", s))
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return marketdata.TimeFrame{}, 0, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("invalid timeframe %q", s))
	}

	var unit marketdata.TimeFrameUnit
	var span time.Duration
	switch m[2] {
	case "Min":
		unit, span = marketdata.Min, time.Minute
	case "Hour":
		unit, span = marketdata.Hour, time.Hour
	case "Day":
		unit, span = marketdata.Day, 24*time.Hour
	case "Week":
		unit, span = marketdata.Week, 7*24*time.Hour
	case "Month":
		unit, span = marketdata.Month, 31*24*time.Hour
	}

	return marketdata.NewTimeFrame(n, unit), span * time.Duration(n), nil
}

func parseFeed(feed string) marketdata.Feed {
	switch strings.ToLower(feed) {
	case "sip":
		return marketdata.SIP
	default:
		return marketdata.IEX
	}
}
