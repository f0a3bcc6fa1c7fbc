// Package live runs the crossover strategy against a broker on a timer.
package live

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/crossover/internal/broker"
	"github.com/newthinker/crossover/internal/collector"
	"github.com/newthinker/crossover/internal/core"
	"github.com/newthinker/crossover/internal/indicator"
	"github.com/newthinker/crossover/internal/notifier"
	"github.com/newthinker/crossover/internal/strategy/ma_crossover"
)

// Config holds the loop parameters
type Config struct {
	Symbol      string
	Timeframe   string
	ShortWindow int
	LongWindow  int
	// PollInterval is the sleep after a completed cycle.
	PollInterval time.Duration
	// RetryInterval is the sleep after a skipped cycle.
	RetryInterval time.Duration
}

// OrderExecutor submits the order implied by a signal.
type OrderExecutor interface {
	Execute(ctx context.Context, signal core.Signal) (*broker.ExecuteResult, error)
}

// Recorder receives loop metrics. *metrics.Registry satisfies it.
type Recorder interface {
	RecordCycle(outcome string)
	RecordSignal(strategy, action string)
	RecordOrder(side, status string)
	SetMovingAverages(symbol string, short, long float64)
}

// TradeNotifier is told about every order the loop places, dry-runs or has rejected.
type TradeNotifier interface {
	NotifyAll(ctx context.Context, trade notifier.Trade) map[string]error
}

// Dependencies are the collaborators of a Loop. Metrics, Notifier and Logger are optional.
type Dependencies struct {
	Provider collector.BarProvider
	Broker   broker.Broker
	Executor OrderExecutor
	Metrics  Recorder
	Notifier TradeNotifier
	Logger   *zap.Logger
}

// CycleResult describes one pass through Fetching, Deciding and Acting.
type CycleResult struct {
	Outcome   Outcome
	Pair      indicator.Pair
	Signal    core.Signal
	Execution *broker.ExecuteResult
}

// Loop is the live decision state machine. Each cycle fetches the latest
// bars, decides against the broker's current position, acts on a trade
// signal, and sleeps. Cancellation is checked before every transition.
type Loop struct {
	cfg      Config
	calc     *indicator.Calculator
	strategy *ma_crossover.MACrossover
	provider collector.BarProvider
	broker   broker.Broker
	executor OrderExecutor
	metrics  Recorder
	notifier TradeNotifier
	logger   *zap.Logger

	wait func(ctx context.Context, d time.Duration) error
	now  func() time.Time

	mu    sync.RWMutex
	state State
}

// New validates cfg and creates a Loop.
func New(cfg Config, deps Dependencies) (*Loop, error) {
	calc, err := indicator.NewCalculator(cfg.ShortWindow, cfg.LongWindow)
	if err != nil {
		return nil, err
	}
	if cfg.Symbol == "" || cfg.Timeframe == "" {
		return nil, core.WrapError(core.ErrConfigInvalid, errors.New("symbol and timeframe are required"))
	}
	if cfg.PollInterval <= 0 || cfg.RetryInterval <= 0 {
		return nil, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("intervals must be positive, got poll=%s retry=%s", cfg.PollInterval, cfg.RetryInterval))
	}
	if deps.Provider == nil || deps.Broker == nil || deps.Executor == nil {
		return nil, core.WrapError(core.ErrConfigMissing, errors.New("provider, broker and executor are required"))
	}

	l := deps.Logger
	if l == nil {
		l = zap.NewNop()
	}
	rec := deps.Metrics
	if rec == nil {
		rec = nopRecorder{}
	}

	return &Loop{
		cfg:      cfg,
		calc:     calc,
		strategy: ma_crossover.New(cfg.ShortWindow, cfg.LongWindow),
		provider: deps.Provider,
		broker:   deps.Broker,
		executor: deps.Executor,
		metrics:  rec,
		notifier: deps.Notifier,
		logger:   l.With(zap.String("symbol", cfg.Symbol)),
		wait:     WaitForContext,
		now:      time.Now,
	}, nil
}

// State returns the current phase.
func (l *Loop) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

func (l *Loop) transition(ctx context.Context, next State) error {
	if err := ctx.Err(); err != nil {
		l.setState(StateStopped)
		return err
	}
	l.logger.Debug("state transition",
		zap.Stringer("from", l.State()),
		zap.Stringer("to", next),
	)
	l.setState(next)
	return nil
}

func (l *Loop) setState(s State) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}

// Run cycles until ctx is cancelled. Skipped cycles and rejected orders are
// logged and the loop continues; only configuration errors end it early.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("live loop started",
		zap.String("strategy", l.strategy.Description()),
		zap.String("timeframe", l.cfg.Timeframe),
		zap.Duration("poll_interval", l.cfg.PollInterval),
	)

	for {
		result, err := l.Cycle(ctx)
		if ctxErr := ctx.Err(); ctxErr != nil {
			l.setState(StateStopped)
			l.logger.Info("live loop stopped")
			return ctxErr
		}

		interval := l.cfg.PollInterval
		switch {
		case err == nil:
		case errors.Is(err, core.ErrConfigInvalid), errors.Is(err, core.ErrConfigMissing):
			l.setState(StateStopped)
			return err
		case errors.Is(err, core.ErrOrderRejected):
			l.logger.Error("order rejected", zap.Error(err))
		default:
			l.logger.Warn("cycle skipped", zap.Error(err), zap.Duration("retry_in", l.cfg.RetryInterval))
			interval = l.cfg.RetryInterval
		}
		l.metrics.RecordCycle(string(result.Outcome))

		if err := l.transition(ctx, StateSleeping); err != nil {
			return err
		}
		if err := l.wait(ctx, interval); err != nil {
			l.setState(StateStopped)
			l.logger.Info("live loop stopped")
			return err
		}
	}
}

// Cycle runs Fetching, Deciding and Acting once. Fetch and position lookup
// failures return ErrDataUnavailable with Outcome skipped.
func (l *Loop) Cycle(ctx context.Context) (CycleResult, error) {
	result := CycleResult{Outcome: OutcomeSkipped}

	// Fetching
	if err := l.transition(ctx, StateFetching); err != nil {
		return result, err
	}
	bars, err := l.provider.FetchBars(ctx, l.cfg.Symbol, l.cfg.Timeframe, l.strategy.RequiredData().PriceHistory)
	if err != nil {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		return result, core.DataUnavailable(err)
	}
	series := bars.ForSymbol(l.cfg.Symbol).Valid().Sorted()
	if !series.IsAscending() {
		return result, core.DataUnavailable(fmt.Errorf("duplicate bar timestamps for %s", l.cfg.Symbol))
	}
	pair, err := l.calc.Latest(l.cfg.Symbol, series)
	if err != nil {
		return result, err
	}
	result.Pair = pair
	last := series[len(series)-1]

	if observer, ok := l.broker.(broker.PriceObserver); ok {
		observer.ObservePrice(l.cfg.Symbol, last.Close)
	}

	holding, err := broker.HoldsPosition(ctx, l.broker, l.cfg.Symbol)
	if err != nil {
		return result, core.DataUnavailable(core.WrapError(core.ErrPositionUnavailable, err))
	}

	// Deciding
	if err := l.transition(ctx, StateDeciding); err != nil {
		return result, err
	}
	signal := l.strategy.Evaluate(last, pair, holding, l.now())
	result.Signal = signal

	short, _ := signal.ShortMA.Float64()
	long, _ := signal.LongMA.Float64()
	l.metrics.SetMovingAverages(l.cfg.Symbol, short, long)
	l.metrics.RecordSignal(signal.Strategy, string(signal.Action))

	l.logger.Info("signal",
		zap.String("pair", pair.String()),
		zap.Bool("holding", holding),
		zap.String("close", last.Close.String()),
		zap.String("action", string(signal.Action)),
		zap.String("reason", signal.Reason),
	)

	if !signal.Action.IsTrade() {
		result.Outcome = OutcomeHold
		return result, nil
	}

	// Acting
	if err := l.transition(ctx, StateActing); err != nil {
		return result, err
	}
	exec, err := l.executor.Execute(ctx, signal)
	result.Execution = exec
	if err != nil {
		if errors.Is(err, core.ErrOrderRejected) {
			result.Outcome = OutcomeRejected
			l.metrics.RecordOrder(string(signal.Action), "rejected")
			l.notify(ctx, notifier.TradeFromExecution(signal, exec, err))
			return result, err
		}
		if errors.Is(err, core.ErrPositionUnavailable) {
			return result, core.DataUnavailable(err)
		}
		return result, err
	}

	if !exec.Submitted {
		result.Outcome = OutcomeBlocked
		l.logger.Info("no order placed", zap.String("reason", exec.Message))
		if exec.DryRun {
			l.notify(ctx, notifier.TradeFromExecution(signal, exec, nil))
		}
		return result, nil
	}

	result.Outcome = OutcomeTraded
	l.metrics.RecordOrder(string(signal.Action), string(exec.Order.Status))
	l.notify(ctx, notifier.TradeFromExecution(signal, exec, nil))
	return result, nil
}

// notify delivers trade to every notifier. Failures are logged only.
func (l *Loop) notify(ctx context.Context, trade notifier.Trade) {
	if l.notifier == nil {
		return
	}
	for name, err := range l.notifier.NotifyAll(ctx, trade) {
		l.logger.Warn("trade notification failed", zap.String("notifier", name), zap.Error(err))
	}
}

// WaitForContext sleeps for delay or until ctx is done.
func WaitForContext(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type nopRecorder struct{}

func (nopRecorder) RecordCycle(string)                         {}
func (nopRecorder) RecordSignal(string, string)                {}
func (nopRecorder) RecordOrder(string, string)                 {}
func (nopRecorder) SetMovingAverages(string, float64, float64) {}
