package backtest

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/newthinker/crossover/internal/core"
	"github.com/newthinker/crossover/internal/indicator"
	"github.com/newthinker/crossover/internal/strategy"
	"github.com/newthinker/crossover/internal/strategy/ma_crossover"
)

// EngineConfig holds the parameters of a simulation run
type EngineConfig struct {
	ShortWindow int
	LongWindow  int
	InitialCash decimal.Decimal
}

// Engine replays a bar series through the calculator, strategy and ledger.
// It is deterministic: identical series and config produce an identical Trajectory.
type Engine struct {
	cfg      EngineConfig
	calc     *indicator.Calculator
	strategy strategy.Strategy
	logger   *zap.Logger
}

// NewEngine validates cfg and creates an Engine running the MA crossover strategy.
func NewEngine(cfg EngineConfig, logger ...*zap.Logger) (*Engine, error) {
	calc, err := indicator.NewCalculator(cfg.ShortWindow, cfg.LongWindow)
	if err != nil {
		return nil, err
	}
	if !cfg.InitialCash.IsPositive() {
		return nil, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("initial cash must be positive, got %s", cfg.InitialCash))
	}

	l := zap.NewNop()
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	}

	return &Engine{
		cfg:      cfg,
		calc:     calc,
		strategy: ma_crossover.New(cfg.ShortWindow, cfg.LongWindow),
		logger:   l,
	}, nil
}

// Strategy returns the strategy driving the simulation.
func (e *Engine) Strategy() strategy.Strategy {
	return e.strategy
}

// Config returns the engine parameters.
func (e *Engine) Config() EngineConfig {
	return e.cfg
}

// Run simulates series, which the caller must supply in ascending time order.
func (e *Engine) Run(series core.BarSeries) Trajectory {
	pairs := e.calc.Pairs(series.Closes())
	ledger := NewLedger(e.strategy, e.cfg.InitialCash)

	trajectory := make(Trajectory, len(series))
	for i, bar := range series {
		action, state := ledger.Apply(bar, pairs[i])
		trajectory[i] = Row{
			Bar:    bar,
			MA:     pairs[i],
			Action: action,
			State:  state,
		}
	}

	if final, ok := trajectory.Final(); ok {
		e.logger.Debug("simulation complete",
			zap.Int("bars", len(series)),
			zap.Int("buys", trajectory.Count(core.ActionBuy)),
			zap.Int("sells", trajectory.Count(core.ActionSell)),
			zap.String("final_equity", final.TotalEquity.String()),
			zap.Bool("holding", final.Holding()),
		)
	}

	return trajectory
}
