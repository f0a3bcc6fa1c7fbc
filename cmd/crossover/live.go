package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/crossover/internal/broker"
	"github.com/newthinker/crossover/internal/config"
	"github.com/newthinker/crossover/internal/live"
	"github.com/newthinker/crossover/internal/metrics"
)

var (
	liveSymbol    string
	liveTimeframe string
	liveShort     int
	liveLong      int
	liveBroker    string
	liveDryRun    bool
)

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Run the crossover decision loop against a broker",
	Long: `Poll the latest bars, compute the moving averages, and submit market orders
when the short average crosses the long one. Stops on SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runLive,
}

func init() {
	liveCmd.Flags().StringVar(&liveSymbol, "symbol", "", "Symbol to trade (default strategy.symbol)")
	liveCmd.Flags().StringVar(&liveTimeframe, "timeframe", "", "Bar timeframe, e.g. 5Min")
	liveCmd.Flags().IntVar(&liveShort, "short", 0, "Short moving average window")
	liveCmd.Flags().IntVar(&liveLong, "long", 0, "Long moving average window")
	liveCmd.Flags().StringVar(&liveBroker, "broker", "", "Broker type: alpaca or paper")
	liveCmd.Flags().BoolVar(&liveDryRun, "dry-run", false, "Log orders without submitting them")

	rootCmd.AddCommand(liveCmd)
}

func applyLiveFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("symbol") {
		cfg.Strategy.Symbol = liveSymbol
	}
	if flags.Changed("timeframe") {
		cfg.Strategy.Timeframe = liveTimeframe
	}
	if flags.Changed("short") {
		cfg.Strategy.ShortWindow = liveShort
	}
	if flags.Changed("long") {
		cfg.Strategy.LongWindow = liveLong
	}
	if flags.Changed("broker") {
		cfg.Broker.Type = liveBroker
	}
	if flags.Changed("dry-run") {
		cfg.Live.DryRun = liveDryRun
	}
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	applyLiveFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	provider, err := newProvider(cfg, log)
	if err != nil {
		return err
	}
	b, err := newBroker(cfg, log)
	if err != nil {
		return err
	}
	execCfg, err := cfg.ExecutionConfig()
	if err != nil {
		return err
	}
	notifiers, err := newNotifiers(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := b.Connect(ctx); err != nil {
		return fmt.Errorf("connecting to broker: %w", err)
	}
	defer b.Disconnect()

	reg := metrics.NewRegistry()
	executor := broker.NewExecutor(execCfg, b, broker.NewRiskChecker(cfg.RiskConfig(), b), log)
	loop, err := live.New(cfg.LoopConfig(), live.Dependencies{
		Provider: provider,
		Broker:   b,
		Executor: executor,
		Metrics:  reg,
		Notifier: notifiers,
		Logger:   log,
	})
	if err != nil {
		return err
	}

	if cfg.Metrics.Enabled {
		server := metrics.NewServer(cfg.Metrics.Listen, reg, func() string { return loop.State().String() }, log)
		go func() {
			if err := server.Start(); err != nil {
				log.Error("metrics server error", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			server.Shutdown(shutdownCtx)
		}()
	}

	log.Info("starting live loop",
		zap.String("symbol", cfg.Strategy.Symbol),
		zap.String("timeframe", cfg.Strategy.Timeframe),
		zap.Int("short_window", cfg.Strategy.ShortWindow),
		zap.Int("long_window", cfg.Strategy.LongWindow),
		zap.String("broker", b.Name()),
		zap.Bool("dry_run", execCfg.DryRun),
		zap.Strings("notifiers", notifiers.Names()),
	)
	if notifiers.Len() == 0 {
		log.Warn("no trade notifiers configured")
	}

	err = loop.Run(ctx)
	if errors.Is(err, context.Canceled) {
		log.Info("live loop stopped")
		return nil
	}
	return err
}
