package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/crossover/internal/broker"
	"github.com/newthinker/crossover/internal/core"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o644))
	return cfgPath
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	d := Defaults()
	assert.Equal(t, d.Strategy, cfg.Strategy)
	assert.Equal(t, d.Live, cfg.Live)
	assert.Equal(t, d.Backtest, cfg.Backtest)
	assert.Equal(t, "alpaca", cfg.Broker.Type)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FromFile(t *testing.T) {
	cfgPath := writeConfig(t, `
strategy:
  symbol: SPY
  timeframe: 1Day
  short_window: 5
  long_window: 20
live:
  poll_interval: 1m
  dry_run: true
broker:
  type: paper
notifiers:
  webhook:
    url: https://hooks.example.com/trades
    headers:
      X-Token: abc
storage:
  cold:
    type: s3
    s3:
      bucket: results
      prefix: crossover
`)

	cfg, err := Load(cfgPath)
	require.NoError(t, err)

	assert.Equal(t, "SPY", cfg.Strategy.Symbol)
	assert.Equal(t, "1Day", cfg.Strategy.Timeframe)
	assert.Equal(t, 5, cfg.Strategy.ShortWindow)
	assert.Equal(t, 20, cfg.Strategy.LongWindow)
	assert.Equal(t, int64(1), cfg.Strategy.Quantity, "unset keys keep defaults")
	assert.Equal(t, time.Minute, cfg.Live.PollInterval)
	assert.Equal(t, 60*time.Second, cfg.Live.RetryInterval)
	assert.True(t, cfg.Live.DryRun)
	assert.Equal(t, "paper", cfg.Broker.Type)
	assert.Equal(t, "results", cfg.Storage.Cold.S3.Bucket)
	assert.Equal(t, "https://hooks.example.com/trades", cfg.Notifiers.Webhook.URL)
	assert.Equal(t, "abc", cfg.Notifiers.Webhook.Headers["x-token"])
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("CROSSOVER_TEST_SECRET", "s3cr3t")
	cfgPath := writeConfig(t, `
alpaca:
  api_key: "${CROSSOVER_TEST_SECRET}"
`)

	cfg, err := Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", cfg.Alpaca.APIKey)
}

func TestLoad_AlpacaEnvironment(t *testing.T) {
	t.Setenv("APCA_API_KEY_ID", "key-id")
	t.Setenv("APCA_API_SECRET_KEY", "secret")
	t.Setenv("STRATEGY_SYMBOL", "MSFT")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "key-id", cfg.Alpaca.APIKey)
	assert.Equal(t, "secret", cfg.Alpaca.APISecret)
	assert.Equal(t, "MSFT", cfg.Strategy.Symbol)
	assert.NoError(t, cfg.RequireAlpacaCredentials())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, core.ErrConfigMissing)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "equal windows", mutate: func(c *Config) { c.Strategy.ShortWindow, c.Strategy.LongWindow = 5, 5 }, wantErr: true},
		{name: "inverted windows", mutate: func(c *Config) { c.Strategy.ShortWindow, c.Strategy.LongWindow = 30, 10 }, wantErr: true},
		{name: "zero short window", mutate: func(c *Config) { c.Strategy.ShortWindow = 0 }, wantErr: true},
		{name: "zero quantity", mutate: func(c *Config) { c.Strategy.Quantity = 0 }, wantErr: true},
		{name: "quantity above max", mutate: func(c *Config) { c.Strategy.Quantity, c.Live.MaxQuantity = 10, 5 }, wantErr: true},
		{name: "quantity at max", mutate: func(c *Config) { c.Strategy.Quantity, c.Live.MaxQuantity = 5, 5 }},
		{name: "uncapped quantity", mutate: func(c *Config) { c.Strategy.Quantity, c.Live.MaxQuantity = 10, 0 }},
		{name: "missing symbol", mutate: func(c *Config) { c.Strategy.Symbol = "" }, wantErr: true},
		{name: "zero cash", mutate: func(c *Config) { c.Backtest.InitialCash = 0 }, wantErr: true},
		{name: "negative cash", mutate: func(c *Config) { c.Backtest.InitialCash = -1 }, wantErr: true},
		{name: "zero poll interval", mutate: func(c *Config) { c.Live.PollInterval = 0 }, wantErr: true},
		{name: "unknown time in force", mutate: func(c *Config) { c.Live.TimeInForce = "ioc" }, wantErr: true},
		{name: "unknown broker", mutate: func(c *Config) { c.Broker.Type = "futu" }, wantErr: true},
		{name: "csv without path", mutate: func(c *Config) { c.Data.Provider = "csv" }, wantErr: true},
		{name: "csv with path", mutate: func(c *Config) { c.Data.Provider, c.Data.Path = "csv", "bars.csv" }},
		{name: "unknown log level", mutate: func(c *Config) { c.Log.Level = "trace" }, wantErr: true},
		{name: "telegram without chat", mutate: func(c *Config) { c.Notifiers.Telegram.BotToken = "t" }, wantErr: true},
		{name: "webhook not a url", mutate: func(c *Config) { c.Notifiers.Webhook.URL = "not a url" }, wantErr: true},
		{name: "metrics without listen", mutate: func(c *Config) { c.Metrics.Enabled, c.Metrics.Listen = true, "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, core.ErrConfigInvalid)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateMessage(t *testing.T) {
	cfg := Defaults()
	cfg.Strategy.ShortWindow, cfg.Strategy.LongWindow = 5, 5

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strategy.long_window")
}

func TestConfig_RequireAlpacaCredentials(t *testing.T) {
	cfg := Defaults()
	assert.ErrorIs(t, cfg.RequireAlpacaCredentials(), core.ErrConfigMissing)

	cfg.Alpaca.APIKey, cfg.Alpaca.APISecret = "k", "s"
	assert.NoError(t, cfg.RequireAlpacaCredentials())
}

func TestConfig_Conversions(t *testing.T) {
	cfg := Defaults()
	cfg.Live.TimeInForce = "day"
	cfg.Live.DryRun = true

	engine := cfg.EngineConfig()
	assert.Equal(t, 10, engine.ShortWindow)
	assert.Equal(t, 30, engine.LongWindow)
	assert.True(t, engine.InitialCash.Equal(decimal.NewFromInt(10000)))

	loop := cfg.LoopConfig()
	assert.Equal(t, "AAPL", loop.Symbol)
	assert.Equal(t, 5*time.Minute, loop.PollInterval)
	assert.Equal(t, 60*time.Second, loop.RetryInterval)

	exec, err := cfg.ExecutionConfig()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exec.Quantity)
	assert.Equal(t, broker.TimeInForceDay, exec.TimeInForce)
	assert.True(t, exec.DryRun)

	cfg.Storage.Cold.Path = "/tmp/results"
	assert.Equal(t, "/tmp/results", cfg.ArchiveConfig().Path)
	assert.Equal(t, "iex", cfg.CollectorConfig().Feed)

	assert.True(t, cfg.LoggerConfig(true).Development)
	assert.Equal(t, "info", cfg.LoggerConfig(false).Level)
}
