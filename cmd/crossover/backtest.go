package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/crossover/internal/backtest"
	"github.com/newthinker/crossover/internal/config"
	"github.com/newthinker/crossover/internal/metrics"
	"github.com/newthinker/crossover/internal/storage/archive"
)

var (
	backtestSymbol    string
	backtestTimeframe string
	backtestShort     int
	backtestLong      int
	backtestCash      float64
	backtestBars      int
	backtestData      string
	backtestArchive   bool
	backtestRows      int
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run the crossover strategy over historical bars",
	Long: `Fetch the most recent bars for a symbol, replay them through a one-unit
simulated portfolio and print the tail of the trajectory with performance statistics.`,
	Args: cobra.NoArgs,
	RunE: runBacktest,
}

func init() {
	backtestCmd.Flags().StringVar(&backtestSymbol, "symbol", "", "Symbol to backtest (default strategy.symbol)")
	backtestCmd.Flags().StringVar(&backtestTimeframe, "timeframe", "", "Bar timeframe, e.g. 1Day, 5Min")
	backtestCmd.Flags().IntVar(&backtestShort, "short", 0, "Short moving average window")
	backtestCmd.Flags().IntVar(&backtestLong, "long", 0, "Long moving average window")
	backtestCmd.Flags().Float64Var(&backtestCash, "cash", 0, "Initial cash")
	backtestCmd.Flags().IntVar(&backtestBars, "bars", 0, "Number of bars to fetch")
	backtestCmd.Flags().StringVar(&backtestData, "data", "", "Read bars from this CSV file instead of the configured provider")
	backtestCmd.Flags().BoolVar(&backtestArchive, "archive", false, "Store the result in cold storage")
	backtestCmd.Flags().IntVar(&backtestRows, "rows", 10, "Trajectory rows to print (0 for all)")

	rootCmd.AddCommand(backtestCmd)
}

func applyBacktestFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("symbol") {
		cfg.Strategy.Symbol = backtestSymbol
	}
	if flags.Changed("timeframe") {
		cfg.Strategy.Timeframe = backtestTimeframe
	}
	if flags.Changed("short") {
		cfg.Strategy.ShortWindow = backtestShort
	}
	if flags.Changed("long") {
		cfg.Strategy.LongWindow = backtestLong
	}
	if flags.Changed("cash") {
		cfg.Backtest.InitialCash = backtestCash
	}
	if flags.Changed("bars") {
		cfg.Backtest.Bars = backtestBars
	}
	if flags.Changed("data") {
		cfg.Data.Provider = "csv"
		cfg.Data.Path = backtestData
	}
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	applyBacktestFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	provider, err := newProvider(cfg, log)
	if err != nil {
		return err
	}
	engine, err := backtest.NewEngine(cfg.EngineConfig(), log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	reg := metrics.NewRegistry()
	start := time.Now()
	result, err := backtest.New(provider, engine, log).Run(ctx, cfg.Strategy.Symbol, cfg.Strategy.Timeframe, cfg.Backtest.Bars)
	if err != nil {
		reg.RecordBacktest("error", time.Since(start).Seconds())
		pushBacktestMetrics(ctx, cfg, reg, log)
		return fmt.Errorf("backtest failed: %w", err)
	}
	reg.RecordBacktest("ok", time.Since(start).Seconds())
	reg.SetBacktestEquity(result.Symbol, result.Stats.FinalEquity.InexactFloat64())
	pushBacktestMetrics(ctx, cfg, reg, log)

	out := cmd.OutOrStdout()
	printBacktest(out, result, backtestRows)

	if backtestArchive {
		store, err := archive.New(cfg.ArchiveConfig())
		if err != nil {
			return err
		}
		path, err := archive.NewBacktestArchive(store, log).Save(ctx, result)
		if err != nil {
			return fmt.Errorf("archiving result: %w", err)
		}
		fmt.Fprintf(out, "\nArchived: %s\n", path)
	}

	return nil
}

func pushBacktestMetrics(ctx context.Context, cfg *config.Config, reg *metrics.Registry, log *zap.Logger) {
	if cfg.Metrics.PushGateway == "" {
		return
	}
	if err := reg.Push(ctx, cfg.Metrics.PushGateway, "crossover_backtest"); err != nil {
		log.Warn("metrics push failed", zap.Error(err))
	}
}

func printBacktest(out io.Writer, r *backtest.Result, rows int) {
	fmt.Fprintln(out, "=== Crossover Backtest ===")
	fmt.Fprintf(out, "Run:       %s\n", r.RunID)
	fmt.Fprintf(out, "Symbol:    %s (%s)\n", r.Symbol, r.Timeframe)
	fmt.Fprintf(out, "Windows:   %d / %d\n", r.ShortWindow, r.LongWindow)
	fmt.Fprintf(out, "Period:    %s to %s\n", r.StartDate.Format(time.DateTime), r.EndDate.Format(time.DateTime))
	fmt.Fprintln(out)

	tail := r.Trajectory
	if rows > 0 && len(tail) > rows {
		tail = tail[len(tail)-rows:]
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tCLOSE\tSHORT MA\tLONG MA\tSIGNAL\tPOS\tCASH\tHOLDINGS\tTOTAL\t")
	fmt.Fprintln(w, "----\t-----\t--------\t-------\t------\t---\t----\t--------\t-----\t")
	for _, row := range tail {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\t%s\t\n",
			row.Bar.Time.Format(time.DateTime),
			row.Bar.Close.StringFixed(2),
			formatAverage(row.MA.Short),
			formatAverage(row.MA.Long),
			row.Action,
			row.State.Position,
			row.State.Cash.StringFixed(2),
			row.State.HoldingsValue.StringFixed(2),
			row.State.TotalEquity.StringFixed(2),
		)
	}
	w.Flush()

	s := r.Stats
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Performance")
	fmt.Fprintln(out, "-----------")
	fmt.Fprintf(out, "Initial cash:    %s\n", r.InitialCash.StringFixed(2))
	fmt.Fprintf(out, "Final equity:    %s\n", s.FinalEquity.StringFixed(2))
	fmt.Fprintf(out, "Net P&L:         %s (%.2f%%)\n", s.NetPnL.StringFixed(2), s.EquityReturn)
	fmt.Fprintf(out, "Trades:          %d (%d won, %d lost)\n", s.TotalTrades, s.WinningTrades, s.LosingTrades)
	fmt.Fprintf(out, "Win rate:        %.2f%%\n", s.WinRate)
	fmt.Fprintf(out, "Max drawdown:    %.2f%%\n", s.MaxDrawdown)
	fmt.Fprintf(out, "Sharpe ratio:    %.2f\n", s.SharpeRatio)
}

func formatAverage(v optional.Option[decimal.Decimal]) string {
	if v.IsNone() {
		return "-"
	}
	return v.Unwrap().StringFixed(2)
}
