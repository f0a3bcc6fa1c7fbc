package backtest

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/newthinker/crossover/internal/core"
)

// BarProvider defines the interface for fetching historical bars
type BarProvider interface {
	FetchBars(ctx context.Context, symbol, timeframe string, limit int) (core.BarSeries, error)
}

// Backtester runs the engine against bars pulled from a provider
type Backtester struct {
	provider BarProvider
	engine   *Engine
	logger   *zap.Logger
}

// New creates a new Backtester with the given provider and engine
func New(provider BarProvider, engine *Engine, logger ...*zap.Logger) *Backtester {
	l := zap.NewNop()
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	}
	return &Backtester{
		provider: provider,
		engine:   engine,
		logger:   l,
	}
}

// Run fetches up to limit bars of symbol and simulates them.
func (b *Backtester) Run(ctx context.Context, symbol, timeframe string, limit int) (*Result, error) {
	bars, err := b.provider.FetchBars(ctx, symbol, timeframe, limit)
	if err != nil {
		return nil, core.DataUnavailable(err)
	}

	series := bars.ForSymbol(symbol).Valid().Sorted()
	if len(series) == 0 {
		return nil, core.DataUnavailable(core.WrapError(core.ErrSymbolNotFound,
			fmt.Errorf("no %s bars for %s", timeframe, symbol)))
	}
	if !series.IsAscending() {
		return nil, core.DataUnavailable(fmt.Errorf("duplicate %s bar timestamps for %s", timeframe, symbol))
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	trajectory := b.engine.Run(series)
	trades := TradesFromTrajectory(trajectory)
	cfg := b.engine.Config()

	result := &Result{
		RunID:       uuid.NewString(),
		Strategy:    b.engine.Strategy().Name(),
		Symbol:      symbol,
		Timeframe:   timeframe,
		ShortWindow: cfg.ShortWindow,
		LongWindow:  cfg.LongWindow,
		InitialCash: cfg.InitialCash,
		StartDate:   series[0].Time,
		EndDate:     series[len(series)-1].Time,
		Trajectory:  trajectory,
		Trades:      trades,
		Stats:       CalculateStats(trades, trajectory, cfg.InitialCash),
	}

	b.logger.Info("backtest complete",
		zap.String("run_id", result.RunID),
		zap.String("symbol", symbol),
		zap.Int("bars", len(series)),
		zap.Int("trades", result.Stats.TotalTrades),
		zap.String("final_equity", result.Stats.FinalEquity.StringFixed(2)),
	)

	return result, nil
}
