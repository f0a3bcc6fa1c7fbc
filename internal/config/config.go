package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/newthinker/crossover/internal/backtest"
	"github.com/newthinker/crossover/internal/broker"
	"github.com/newthinker/crossover/internal/collector"
	"github.com/newthinker/crossover/internal/core"
	"github.com/newthinker/crossover/internal/live"
	"github.com/newthinker/crossover/internal/logger"
	"github.com/newthinker/crossover/internal/storage/archive"
)

type Config struct {
	Strategy  StrategyConfig  `mapstructure:"strategy"`
	Data      DataConfig      `mapstructure:"data"`
	Backtest  BacktestConfig  `mapstructure:"backtest"`
	Live      LiveConfig      `mapstructure:"live"`
	Broker    BrokerConfig    `mapstructure:"broker"`
	Alpaca    AlpacaConfig    `mapstructure:"alpaca"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Notifiers NotifiersConfig `mapstructure:"notifiers"`
	Log       LogConfig       `mapstructure:"log"`
}

// StrategyConfig is shared by the backtest and live commands.
type StrategyConfig struct {
	Symbol      string `mapstructure:"symbol" validate:"required"`
	Timeframe   string `mapstructure:"timeframe" validate:"required"`
	Quantity    int64  `mapstructure:"quantity" validate:"gt=0"`
	ShortWindow int    `mapstructure:"short_window" validate:"gt=0"`
	LongWindow  int    `mapstructure:"long_window" validate:"gt=0,gtfield=ShortWindow"`
}

// DataConfig selects the historical bar provider.
type DataConfig struct {
	Provider string `mapstructure:"provider" validate:"oneof=alpaca csv"`
	Path     string `mapstructure:"path" validate:"required_if=Provider csv"`
}

type BacktestConfig struct {
	InitialCash float64 `mapstructure:"initial_cash" validate:"gt=0"`
	Bars        int     `mapstructure:"bars" validate:"gt=0"`
}

type LiveConfig struct {
	PollInterval  time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
	RetryInterval time.Duration `mapstructure:"retry_interval" validate:"gt=0"`
	TimeInForce   string        `mapstructure:"time_in_force" validate:"oneof=gtc day"`
	DryRun        bool          `mapstructure:"dry_run"`
	// MaxQuantity caps a single order; zero disables the cap.
	MaxQuantity int64 `mapstructure:"max_quantity" validate:"gte=0"`
}

// BrokerConfig selects where live orders go.
type BrokerConfig struct {
	Type      string  `mapstructure:"type" validate:"oneof=alpaca paper"`
	PaperCash float64 `mapstructure:"paper_cash" validate:"gt=0"`
}

type AlpacaConfig struct {
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
	BaseURL   string `mapstructure:"base_url"`
	Feed      string `mapstructure:"feed" validate:"oneof=iex sip"`
}

type StorageConfig struct {
	Cold ColdStorageConfig `mapstructure:"cold"`
}

type ColdStorageConfig struct {
	Type string   `mapstructure:"type" validate:"oneof=local s3"`
	Path string   `mapstructure:"path"` // For local
	S3   S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen" validate:"required_if=Enabled true"`
	// PushGateway, when set, receives backtest metrics after each run.
	PushGateway string `mapstructure:"push_gateway" validate:"omitempty,url"`
}

// NotifiersConfig enables trade notifications from the live loop.
type NotifiersConfig struct {
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

type WebhookConfig struct {
	URL     string            `mapstructure:"url" validate:"omitempty,url"`
	Headers map[string]string `mapstructure:"headers"`
}

type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id" validate:"required_with=BotToken"`
}

type LogConfig struct {
	Level    string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Encoding string `mapstructure:"encoding" validate:"omitempty,oneof=json console"`
}

// Alpaca's own SDK variables, accepted alongside the config keys.
var envBindings = map[string]string{
	"alpaca.api_key":    "APCA_API_KEY_ID",
	"alpaca.api_secret": "APCA_API_SECRET_KEY",
	"alpaca.base_url":   "APCA_API_BASE_URL",
}

// Load reads configuration from file. An empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	// .env never overrides variables already set in the environment
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v, Defaults())

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, env := range envBindings {
		if err := v.BindEnv(key, strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, err
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("reading config: %w", err))
		}
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unmarshaling config: %w", err))
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("strategy.symbol", d.Strategy.Symbol)
	v.SetDefault("strategy.timeframe", d.Strategy.Timeframe)
	v.SetDefault("strategy.quantity", d.Strategy.Quantity)
	v.SetDefault("strategy.short_window", d.Strategy.ShortWindow)
	v.SetDefault("strategy.long_window", d.Strategy.LongWindow)
	v.SetDefault("data.provider", d.Data.Provider)
	v.SetDefault("data.path", d.Data.Path)
	v.SetDefault("backtest.initial_cash", d.Backtest.InitialCash)
	v.SetDefault("backtest.bars", d.Backtest.Bars)
	v.SetDefault("live.poll_interval", d.Live.PollInterval)
	v.SetDefault("live.retry_interval", d.Live.RetryInterval)
	v.SetDefault("live.time_in_force", d.Live.TimeInForce)
	v.SetDefault("live.dry_run", d.Live.DryRun)
	v.SetDefault("live.max_quantity", d.Live.MaxQuantity)
	v.SetDefault("broker.type", d.Broker.Type)
	v.SetDefault("broker.paper_cash", d.Broker.PaperCash)
	v.SetDefault("alpaca.api_key", "")
	v.SetDefault("alpaca.api_secret", "")
	v.SetDefault("alpaca.base_url", d.Alpaca.BaseURL)
	v.SetDefault("alpaca.feed", d.Alpaca.Feed)
	v.SetDefault("storage.cold.type", d.Storage.Cold.Type)
	v.SetDefault("storage.cold.path", d.Storage.Cold.Path)
	v.SetDefault("storage.cold.s3.bucket", "")
	v.SetDefault("storage.cold.s3.endpoint", "")
	v.SetDefault("storage.cold.s3.region", "")
	v.SetDefault("storage.cold.s3.access_key", "")
	v.SetDefault("storage.cold.s3.secret_key", "")
	v.SetDefault("storage.cold.s3.prefix", "")
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.listen", d.Metrics.Listen)
	v.SetDefault("metrics.push_gateway", "")
	v.SetDefault("notifiers.webhook.url", "")
	v.SetDefault("notifiers.telegram.bot_token", "")
	v.SetDefault("notifiers.telegram.chat_id", "")
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.encoding", d.Log.Encoding)
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Strategy: StrategyConfig{
			Symbol:      "AAPL",
			Timeframe:   "5Min",
			Quantity:    1,
			ShortWindow: 10,
			LongWindow:  30,
		},
		Data: DataConfig{
			Provider: "alpaca",
		},
		Backtest: BacktestConfig{
			InitialCash: 10000,
			Bars:        100,
		},
		Live: LiveConfig{
			PollInterval:  5 * time.Minute,
			RetryInterval: 60 * time.Second,
			TimeInForce:   "gtc",
			MaxQuantity:   broker.DefaultRiskConfig().MaxQuantity,
		},
		Broker: BrokerConfig{
			Type:      "alpaca",
			PaperCash: 10000,
		},
		Alpaca: AlpacaConfig{
			Feed: "iex",
		},
		Storage: StorageConfig{
			Cold: ColdStorageConfig{
				Type: "local",
				Path: "./data/archive",
			},
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  ":9090",
		},
		Log: LogConfig{
			Level:    "info",
			Encoding: "json",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("mapstructure")
	})
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return core.WrapError(core.ErrConfigInvalid, describe(verrs[0]))
		}
		return core.WrapError(core.ErrConfigInvalid, err)
	}
	if c.Live.MaxQuantity > 0 && c.Strategy.Quantity > c.Live.MaxQuantity {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf(
			"strategy.quantity %d exceeds live.max_quantity %d", c.Strategy.Quantity, c.Live.MaxQuantity))
	}
	return nil
}

// RequireAlpacaCredentials reports ErrConfigMissing when either key is empty.
func (c *Config) RequireAlpacaCredentials() error {
	if c.Alpaca.APIKey == "" || c.Alpaca.APISecret == "" {
		return core.WrapError(core.ErrConfigMissing,
			errors.New("alpaca api_key and api_secret are required (APCA_API_KEY_ID, APCA_API_SECRET_KEY)"))
	}
	return nil
}

func describe(fe validator.FieldError) error {
	_, field, _ := strings.Cut(fe.Namespace(), ".")
	switch fe.Tag() {
	case "gtfield":
		return fmt.Errorf("%s must be greater than %s, got %v", field, strings.ToLower(fe.Param()), fe.Value())
	case "oneof":
		return fmt.Errorf("%s must be one of [%s], got %q", field, fe.Param(), fe.Value())
	case "required", "required_if":
		return fmt.Errorf("%s is required", field)
	default:
		return fmt.Errorf("%s failed %s=%s, got %v", field, fe.Tag(), fe.Param(), fe.Value())
	}
}

// EngineConfig returns the backtest engine settings.
func (c *Config) EngineConfig() backtest.EngineConfig {
	return backtest.EngineConfig{
		ShortWindow: c.Strategy.ShortWindow,
		LongWindow:  c.Strategy.LongWindow,
		InitialCash: decimal.NewFromFloat(c.Backtest.InitialCash),
	}
}

// LoopConfig returns the live loop settings.
func (c *Config) LoopConfig() live.Config {
	return live.Config{
		Symbol:        c.Strategy.Symbol,
		Timeframe:     c.Strategy.Timeframe,
		ShortWindow:   c.Strategy.ShortWindow,
		LongWindow:    c.Strategy.LongWindow,
		PollInterval:  c.Live.PollInterval,
		RetryInterval: c.Live.RetryInterval,
	}
}

// ExecutionConfig returns the order executor settings.
func (c *Config) ExecutionConfig() (broker.ExecutionConfig, error) {
	tif, err := broker.ParseTimeInForce(c.Live.TimeInForce)
	if err != nil {
		return broker.ExecutionConfig{}, core.WrapError(core.ErrConfigInvalid, err)
	}
	exec := broker.DefaultExecutionConfig()
	exec.Quantity = c.Strategy.Quantity
	exec.TimeInForce = tif
	exec.DryRun = c.Live.DryRun
	return exec, nil
}

// RiskConfig returns the pre-trade checks.
func (c *Config) RiskConfig() broker.RiskConfig {
	return broker.RiskConfig{
		MaxQuantity:        c.Live.MaxQuantity,
		RequireBuyingPower: true,
	}
}

// CollectorConfig returns the bar provider settings.
func (c *Config) CollectorConfig() collector.Config {
	return collector.Config{
		APIKey:    c.Alpaca.APIKey,
		APISecret: c.Alpaca.APISecret,
		Feed:      c.Alpaca.Feed,
		Path:      c.Data.Path,
	}
}

// ArchiveConfig returns the cold storage settings.
func (c *Config) ArchiveConfig() archive.Config {
	s3 := c.Storage.Cold.S3
	return archive.Config{
		Type: c.Storage.Cold.Type,
		Path: c.Storage.Cold.Path,
		S3: archive.S3Config{
			Bucket:    s3.Bucket,
			Endpoint:  s3.Endpoint,
			Region:    s3.Region,
			AccessKey: s3.AccessKey,
			SecretKey: s3.SecretKey,
			Prefix:    s3.Prefix,
		},
	}
}

// LoggerConfig returns the logger settings; debug forces development output.
func (c *Config) LoggerConfig(debug bool) logger.Config {
	if debug {
		return logger.Config{Development: true, Level: "debug", Encoding: "console"}
	}
	return logger.Config{Level: c.Log.Level, Encoding: c.Log.Encoding}
}
