package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/propbot/market"
	"github.com/rustyeddy/propbot/risk"
	"github.com/rustyeddy/propbot/signals"
)

// Config is the complete runtime configuration.
type Config struct {
	Account    AccountConfig  `json:"account" yaml:"account"`
	Categories CategoryConfig `json:"categories" yaml:"categories"`
	Risk       RiskConfig     `json:"risk" yaml:"risk"`
	Signals    SignalConfig   `json:"signals" yaml:"signals"`
	Schedule   ScheduleConfig `json:"schedule" yaml:"schedule"`
	Timeouts   TimeoutConfig  `json:"timeouts" yaml:"timeouts"`
	Paths      PathConfig     `json:"paths" yaml:"paths"`
	Log        LogConfig      `json:"log" yaml:"log"`
	News       NewsConfig     `json:"news" yaml:"news"`
	Earnings   EarningsConfig `json:"earnings" yaml:"earnings"`
	Telegram   TelegramConfig `json:"telegram" yaml:"telegram"`
	Redis      RedisConfig    `json:"redis" yaml:"redis"`
	Metrics    MetricsConfig  `json:"metrics" yaml:"metrics"`
	Paper      PaperConfig    `json:"paper" yaml:"paper"`
}

type AccountConfig struct {
	Currency string `json:"currency" yaml:"currency"`
	// Magic tags engine-owned positions; others are manual.
	Magic        int64 `json:"magic" yaml:"magic"`
	TradeAllowed bool  `json:"trade_allowed" yaml:"trade_allowed"`
}

type CategoryConfig struct {
	Forex   bool `json:"forex" yaml:"forex"`
	Metals  bool `json:"metals" yaml:"metals"`
	Indices bool `json:"indices" yaml:"indices"`
	Stocks  bool `json:"stocks" yaml:"stocks"`
	Crypto  bool `json:"crypto" yaml:"crypto"`
}

type RiskConfig struct {
	RiskPerTradePct         float64 `json:"risk_per_trade_pct" yaml:"risk_per_trade_pct"`
	MaxPositions            int     `json:"max_positions" yaml:"max_positions"`
	MaxDailyDrawdownPct     float64 `json:"max_daily_drawdown_pct" yaml:"max_daily_drawdown_pct"`
	MaxSpreadPips           float64 `json:"max_spread_pips" yaml:"max_spread_pips"`
	MaxCurrencyExposure     int     `json:"max_currency_exposure" yaml:"max_currency_exposure"`
	CorrelationMode         string  `json:"correlation_mode" yaml:"correlation_mode"`
	CorrelationRiskModifier float64 `json:"correlation_risk_modifier" yaml:"correlation_risk_modifier"`
	NewsBufferMinutes       int     `json:"news_buffer_minutes" yaml:"news_buffer_minutes"`
	EarningsEmbargoDays     int     `json:"earnings_embargo_days" yaml:"earnings_embargo_days"`
	RolloverStart           string  `json:"rollover_start" yaml:"rollover_start"`
	RolloverEnd             string  `json:"rollover_end" yaml:"rollover_end"`
	RolloverZone            string  `json:"rollover_zone" yaml:"rollover_zone"`
}

type SignalConfig struct {
	LookbackDays int  `json:"signal_lookback_days" yaml:"signal_lookback_days"`
	AllowShorts  bool `json:"allow_shorts" yaml:"allow_shorts"`
}

type ScheduleConfig struct {
	FastInterval Duration `json:"fast_interval" yaml:"fast_interval"`
	SlowInterval Duration `json:"slow_interval" yaml:"slow_interval"`
	// EarningsShield is the daily "HH:MM" close-out time in ExchangeZone.
	EarningsShield string `json:"earnings_shield" yaml:"earnings_shield"`
	ExchangeZone   string `json:"exchange_zone" yaml:"exchange_zone"`
}

type TimeoutConfig struct {
	Venue Duration `json:"venue" yaml:"venue"`
	Feed  Duration `json:"feed" yaml:"feed"`
}

type PathConfig struct {
	DataDir       string `json:"data_dir" yaml:"data_dir"`
	Catalog       string `json:"catalog,omitempty" yaml:"catalog,omitempty"`
	JournalCSV    string `json:"journal_csv" yaml:"journal_csv"`
	JournalDB     string `json:"journal_db,omitempty" yaml:"journal_db,omitempty"`
	EarningsCache string `json:"earnings_cache" yaml:"earnings_cache"`
}

type LogConfig struct {
	Level string `json:"level" yaml:"level"`
	File  string `json:"file,omitempty" yaml:"file,omitempty"`
}

type NewsConfig struct {
	URL string `json:"url" yaml:"url"`
}

type EarningsConfig struct {
	// Source is "file" or "redis".
	Source  string `json:"source" yaml:"source"`
	APIKey  string `json:"-" yaml:"-"`
	URL     string `json:"url" yaml:"url"`
	Horizon string `json:"horizon" yaml:"horizon"`
}

type TelegramConfig struct {
	Token  string `json:"-" yaml:"-"`
	ChatID string `json:"chat_id,omitempty" yaml:"chat_id,omitempty"`
}

type RedisConfig struct {
	Addr     string `json:"addr,omitempty" yaml:"addr,omitempty"`
	Password string `json:"-" yaml:"-"`
	DB       int    `json:"db" yaml:"db"`
	Key      string `json:"key" yaml:"key"`
}

type MetricsConfig struct {
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`
}

// PaperConfig seeds the built-in paper venue.
type PaperConfig struct {
	Balance float64 `json:"balance" yaml:"balance"`
}

// Default returns the production defaults.
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			Currency:     "USD",
			Magic:        20250101,
			TradeAllowed: true,
		},
		Categories: CategoryConfig{
			Forex:   true,
			Metals:  true,
			Indices: true,
			Stocks:  true,
			Crypto:  false,
		},
		Risk: RiskConfig{
			RiskPerTradePct:         0.005,
			MaxPositions:            3,
			MaxDailyDrawdownPct:     0.04,
			MaxSpreadPips:           3.5,
			MaxCurrencyExposure:     2,
			CorrelationMode:         string(risk.Block),
			CorrelationRiskModifier: 0.5,
			NewsBufferMinutes:       5,
			EarningsEmbargoDays:     14,
			RolloverStart:           "16:50",
			RolloverEnd:             "17:10",
			RolloverZone:            "UTC",
		},
		Signals: SignalConfig{
			LookbackDays: 21,
			AllowShorts:  true,
		},
		Schedule: ScheduleConfig{
			FastInterval:   Duration(60 * time.Second),
			SlowInterval:   Duration(5 * time.Minute),
			EarningsShield: "15:45",
			ExchangeZone:   "America/New_York",
		},
		Timeouts: TimeoutConfig{
			Venue: Duration(10 * time.Second),
			Feed:  Duration(15 * time.Second),
		},
		Paths: PathConfig{
			DataDir:       "./data",
			JournalCSV:    "./journal.csv",
			JournalDB:     "./journal.db",
			EarningsCache: "./earnings_cache.json",
		},
		Log: LogConfig{
			Level: "info",
			File:  "./propbot.log",
		},
		News: NewsConfig{
			URL: "https://nfs.faireconomy.media/ff_calendar_thisweek.xml",
		},
		Earnings: EarningsConfig{
			Source:  "file",
			URL:     "https://www.alphavantage.co/query",
			Horizon: "3month",
		},
		Redis: RedisConfig{
			Key: "propbot:earnings",
		},
		Paper: PaperConfig{
			Balance: 100000,
		},
	}
}

// LoadFromFile loads configuration from a YAML or JSON file on top of the
// defaults. The result is not validated.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	// Try YAML first, fall back to JSON
	if yerr := yaml.Unmarshal(data, cfg); yerr != nil {
		cfg = Default()
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", errors.Join(yerr, jerr))
		}
	}
	return cfg, nil
}

// SaveToFile writes YAML for .yaml/.yml paths and indented JSON otherwise.
func (c *Config) SaveToFile(path string) error {
	var (
		data []byte
		err  error
	)
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Disable turns a category off. The CLI --no-<category> flags use it.
func (c *Config) Disable(cat market.Category) {
	switch cat {
	case market.Forex:
		c.Categories.Forex = false
	case market.Metals:
		c.Categories.Metals = false
	case market.Indices:
		c.Categories.Indices = false
	case market.Stocks:
		c.Categories.Stocks = false
	case market.Crypto:
		c.Categories.Crypto = false
	}
}

func (c *Config) enabled() map[market.Category]bool {
	return map[market.Category]bool{
		market.Forex:   c.Categories.Forex,
		market.Metals:  c.Categories.Metals,
		market.Indices: c.Categories.Indices,
		market.Stocks:  c.Categories.Stocks,
		market.Crypto:  c.Categories.Crypto,
	}
}

// Policy converts the risk section. Call Validate first; Policy still
// reports parse errors for callers that skip it.
func (c *Config) Policy() (risk.Policy, error) {
	r := c.Risk
	mode, err := risk.ParseCorrelationMode(r.CorrelationMode)
	if err != nil {
		return risk.Policy{}, err
	}
	start, err := risk.ParseClock(r.RolloverStart)
	if err != nil {
		return risk.Policy{}, err
	}
	end, err := risk.ParseClock(r.RolloverEnd)
	if err != nil {
		return risk.Policy{}, err
	}
	loc, err := time.LoadLocation(r.RolloverZone)
	if err != nil {
		return risk.Policy{}, fmt.Errorf("rollover zone: %w", err)
	}
	return risk.Policy{
		RiskPct:             r.RiskPerTradePct,
		MaxPositions:        r.MaxPositions,
		MaxDrawdownPct:      r.MaxDailyDrawdownPct,
		MaxSpreadPips:       r.MaxSpreadPips,
		MaxCurrencyExposure: r.MaxCurrencyExposure,
		CorrelationMode:     mode,
		CorrelationModifier: r.CorrelationRiskModifier,
		NewsBuffer:          time.Duration(r.NewsBufferMinutes) * time.Minute,
		EarningsEmbargoDays: r.EarningsEmbargoDays,
		Rollover:            risk.Window{Start: start, End: end, Location: loc},
		Enabled:             c.enabled(),
	}, nil
}

// SignalParams returns the signal defaults with the configured lookback
// and short-side toggle.
func (c *Config) SignalParams() signals.Params {
	p := signals.DefaultParams()
	p.LookbackDays = c.Signals.LookbackDays
	p.AllowShorts = c.Signals.AllowShorts
	return p
}

// ExchangeLocation is the zone of the earnings shield schedule.
func (c *Config) ExchangeLocation() (*time.Location, error) {
	return time.LoadLocation(c.Schedule.ExchangeZone)
}
