package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/crossover/internal/broker"
)

var brokerType string

var brokerCmd = &cobra.Command{
	Use:   "broker",
	Short: "Broker operations",
	Long:  `Commands for inspecting the brokerage account (positions, balances).`,
}

var brokerPositionsCmd = &cobra.Command{
	Use:   "positions",
	Short: "List current positions",
	RunE:  runBrokerPositions,
}

var brokerAccountCmd = &cobra.Command{
	Use:   "account",
	Short: "Show account information",
	RunE:  runBrokerAccount,
}

func init() {
	rootCmd.AddCommand(brokerCmd)
	brokerCmd.AddCommand(brokerPositionsCmd)
	brokerCmd.AddCommand(brokerAccountCmd)

	brokerCmd.PersistentFlags().StringVar(&brokerType, "broker", "", "Broker type: alpaca or paper")
}

// withBrokerConnection handles common broker setup and teardown.
func withBrokerConnection(cmd *cobra.Command, fn func(ctx context.Context, b broker.Broker, log *zap.Logger) error) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	if cmd.Flags().Changed("broker") {
		cfg.Broker.Type = brokerType
	}

	b, err := newBroker(cfg, log)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := b.Connect(ctx); err != nil {
		return fmt.Errorf("connecting to broker: %w", err)
	}
	defer b.Disconnect()

	return fn(ctx, b, log)
}

func runBrokerPositions(cmd *cobra.Command, args []string) error {
	return withBrokerConnection(cmd, func(ctx context.Context, b broker.Broker, log *zap.Logger) error {
		positions, err := b.GetPositions(ctx)
		if err != nil {
			return fmt.Errorf("getting positions: %w", err)
		}

		if len(positions) == 0 {
			fmt.Println("No positions found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SYMBOL\tQTY\tAVG COST\tMKT VALUE\tP&L\t")
		fmt.Fprintln(w, "------\t---\t--------\t---------\t---\t")

		for _, p := range positions {
			plSign := ""
			if !p.UnrealizedPL.IsNegative() {
				plSign = "+"
			}
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s%s\t\n",
				p.Symbol, p.Quantity, p.AverageCost.StringFixed(2), p.MarketValue.StringFixed(2),
				plSign, p.UnrealizedPL.StringFixed(2))
		}
		w.Flush()

		log.Info("positions listed", zap.String("broker", b.Name()), zap.Int("count", len(positions)))
		return nil
	})
}

func runBrokerAccount(cmd *cobra.Command, args []string) error {
	return withBrokerConnection(cmd, func(ctx context.Context, b broker.Broker, log *zap.Logger) error {
		balance, err := b.GetBalance(ctx)
		if err != nil {
			return fmt.Errorf("getting account info: %w", err)
		}

		fmt.Println("Account Summary")
		fmt.Println("---------------")
		fmt.Printf("Broker:          %s\n", b.Name())
		fmt.Printf("Currency:        %s\n", balance.Currency)
		fmt.Printf("Total Value:     %s\n", balance.TotalValue.StringFixed(2))
		fmt.Printf("Cash:            %s\n", balance.Cash.StringFixed(2))
		fmt.Printf("Buying Power:    %s\n", balance.BuyingPower.StringFixed(2))
		fmt.Printf("Updated:         %s\n", balance.UpdatedAt.Format(time.DateTime))

		log.Info("account info retrieved", zap.String("broker", b.Name()))
		return nil
	})
}
