package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/crossover/internal/backtest"
)

const backtestRoot = "backtests"

// BacktestSummary is the header of an archived backtest, read back without its trajectory.
type BacktestSummary struct {
	RunID       string    `json:"run_id"`
	Strategy    string    `json:"strategy"`
	Symbol      string    `json:"symbol"`
	Timeframe   string    `json:"timeframe"`
	ShortWindow int       `json:"short_window"`
	LongWindow  int       `json:"long_window"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	Stats       struct {
		TotalTrades  int     `json:"total_trades"`
		WinRate      float64 `json:"win_rate"`
		FinalEquity  string  `json:"final_equity"`
		EquityReturn float64 `json:"equity_return"`
		MaxDrawdown  float64 `json:"max_drawdown"`
	} `json:"stats"`
}

// BacktestArchive writes backtest results as JSON documents under backtests/<symbol>/<run-id>.json.
type BacktestArchive struct {
	store  Storage
	logger *zap.Logger
}

// NewBacktestArchive wraps a storage backend.
func NewBacktestArchive(store Storage, logger ...*zap.Logger) *BacktestArchive {
	l := zap.NewNop()
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	}
	return &BacktestArchive{store: store, logger: l}
}

// BacktestPath returns the storage path of a run.
func BacktestPath(symbol, runID string) string {
	return path.Join(backtestRoot, strings.ToUpper(symbol), runID+".json")
}

// Save stores the result and returns the path written.
func (a *BacktestArchive) Save(ctx context.Context, result *backtest.Result) (string, error) {
	if result == nil || result.RunID == "" || result.Symbol == "" {
		return "", errors.New("archive: result needs a run id and symbol")
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding result: %w", err)
	}
	p := BacktestPath(result.Symbol, result.RunID)
	if err := a.store.Write(ctx, p, data); err != nil {
		return "", err
	}
	a.logger.Info("backtest archived",
		zap.String("path", p),
		zap.Int("bytes", len(data)),
	)
	return p, nil
}

// Load returns the raw JSON document of a run.
func (a *BacktestArchive) Load(ctx context.Context, symbol, runID string) ([]byte, error) {
	return a.store.Read(ctx, BacktestPath(symbol, runID))
}

// List returns summaries of archived runs for symbol, or for all symbols when symbol is empty.
func (a *BacktestArchive) List(ctx context.Context, symbol string) ([]BacktestSummary, error) {
	prefix := backtestRoot
	if symbol != "" {
		prefix = path.Join(backtestRoot, strings.ToUpper(symbol))
	}
	paths, err := a.store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}

	summaries := make([]BacktestSummary, 0, len(paths))
	for _, p := range paths {
		if path.Ext(p) != ".json" {
			continue
		}
		data, err := a.store.Read(ctx, p)
		if err != nil {
			return nil, err
		}
		var s BacktestSummary
		if err := json.Unmarshal(data, &s); err != nil {
			a.logger.Warn("skipping unreadable archive entry", zap.String("path", p), zap.Error(err))
			continue
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}
