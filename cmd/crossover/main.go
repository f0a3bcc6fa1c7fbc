package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/crossover/internal/config"
	"github.com/newthinker/crossover/internal/logger"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "crossover",
	Short: "Moving-average crossover backtester and trading loop",
	Long: `crossover trades a single symbol on a short/long simple moving average crossover.
It replays historical bars through a one-unit simulated portfolio, or runs the
same rule live against a brokerage account.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
}

// setup loads configuration and builds the logger. Callers apply flag
// overrides and then call cfg.Validate.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	log, err := logger.New(cfg.LoggerConfig(debug))
	if err != nil {
		return nil, nil, fmt.Errorf("creating logger: %w", err)
	}
	if cfgFile == "" {
		log.Debug("no config file specified, using defaults and environment")
	}
	return cfg, log, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
