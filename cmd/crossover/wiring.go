package main

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/newthinker/crossover/internal/broker"
	brokeralpaca "github.com/newthinker/crossover/internal/broker/alpaca"
	"github.com/newthinker/crossover/internal/broker/paper"
	"github.com/newthinker/crossover/internal/collector"
	collectoralpaca "github.com/newthinker/crossover/internal/collector/alpaca"
	"github.com/newthinker/crossover/internal/collector/csvfile"
	"github.com/newthinker/crossover/internal/config"
	"github.com/newthinker/crossover/internal/core"
	"github.com/newthinker/crossover/internal/notifier"
	"github.com/newthinker/crossover/internal/notifier/telegram"
	"github.com/newthinker/crossover/internal/notifier/webhook"
)

// newProvider returns the bar provider named by data.provider.
func newProvider(cfg *config.Config, log *zap.Logger) (collector.BarProvider, error) {
	if cfg.Data.Provider == "alpaca" {
		if err := cfg.RequireAlpacaCredentials(); err != nil {
			return nil, err
		}
	}

	registry := collector.NewRegistry()
	registry.Register(collectoralpaca.New(cfg.CollectorConfig(), log))
	registry.Register(csvfile.New(cfg.CollectorConfig(), log))

	return registry.MustGet(cfg.Data.Provider)
}

// newBroker returns the broker named by broker.type.
func newBroker(cfg *config.Config, log *zap.Logger) (broker.Broker, error) {
	switch cfg.Broker.Type {
	case "paper":
		return paper.New(decimal.NewFromFloat(cfg.Broker.PaperCash)), nil
	case "alpaca":
		if err := cfg.RequireAlpacaCredentials(); err != nil {
			return nil, err
		}
		return brokeralpaca.New(brokeralpaca.Config{
			APIKey:    cfg.Alpaca.APIKey,
			APISecret: cfg.Alpaca.APISecret,
			BaseURL:   cfg.Alpaca.BaseURL,
		}, log), nil
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown broker type: %s", cfg.Broker.Type))
	}
}

// newNotifiers registers every configured trade notifier.
func newNotifiers(cfg *config.Config) (*notifier.Registry, error) {
	registry := notifier.NewRegistry()

	if c := cfg.Notifiers.Webhook; c.URL != "" {
		w, err := webhook.New(c.URL, c.Headers)
		if err != nil {
			return nil, core.WrapError(core.ErrConfigInvalid, err)
		}
		if err := registry.Register(w); err != nil {
			return nil, err
		}
	}
	if c := cfg.Notifiers.Telegram; c.BotToken != "" {
		tg, err := telegram.New(c.BotToken, c.ChatID)
		if err != nil {
			return nil, core.WrapError(core.ErrConfigInvalid, err)
		}
		if err := registry.Register(tg); err != nil {
			return nil, err
		}
	}

	return registry, nil
}
