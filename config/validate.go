package config

import (
	"errors"
	"strings"
	"time"

	"github.com/rustyeddy/propbot/risk"
)

// Validate reports every problem at once. Each is a *FieldError wrapping
// ErrInvalid.
func (c *Config) Validate() error {
	var errs []error
	add := func(err error) { errs = append(errs, err) }

	if len(c.Account.Currency) != 3 {
		add(fieldErr("account.currency", "must be a 3-letter code, got %q", c.Account.Currency))
	}
	if c.Account.Magic <= 0 {
		add(fieldErr("account.magic", "must be positive"))
	}

	r := c.Risk
	if r.RiskPerTradePct <= 0 || r.RiskPerTradePct > 0.05 {
		add(fieldErr("risk.risk_per_trade_pct", "must be in (0, 0.05], got %v", r.RiskPerTradePct))
	}
	if r.MaxPositions < 1 {
		add(fieldErr("risk.max_positions", "must be at least 1"))
	}
	if r.MaxDailyDrawdownPct <= 0 || r.MaxDailyDrawdownPct >= 1 {
		add(fieldErr("risk.max_daily_drawdown_pct", "must be in (0, 1), got %v", r.MaxDailyDrawdownPct))
	}
	if r.MaxSpreadPips <= 0 {
		add(fieldErr("risk.max_spread_pips", "must be positive"))
	}
	if r.MaxCurrencyExposure < 1 {
		add(fieldErr("risk.max_currency_exposure", "must be at least 1"))
	}
	if _, err := risk.ParseCorrelationMode(r.CorrelationMode); err != nil {
		add(fieldErr("risk.correlation_mode", "must be BLOCK or REDUCE, got %q", r.CorrelationMode))
	}
	if r.CorrelationRiskModifier <= 0 || r.CorrelationRiskModifier >= 1 {
		add(fieldErr("risk.correlation_risk_modifier", "must be in (0, 1), got %v", r.CorrelationRiskModifier))
	}
	if r.NewsBufferMinutes < 0 {
		add(fieldErr("risk.news_buffer_minutes", "must not be negative"))
	}
	if r.EarningsEmbargoDays < 0 {
		add(fieldErr("risk.earnings_embargo_days", "must not be negative"))
	}
	if _, err := risk.ParseClock(r.RolloverStart); err != nil {
		add(fieldErr("risk.rollover_start", "must be HH:MM"))
	}
	if _, err := risk.ParseClock(r.RolloverEnd); err != nil {
		add(fieldErr("risk.rollover_end", "must be HH:MM"))
	}
	if _, err := time.LoadLocation(r.RolloverZone); err != nil {
		add(fieldErr("risk.rollover_zone", "unknown zone %q", r.RolloverZone))
	}

	if c.Signals.LookbackDays < 1 {
		add(fieldErr("signals.signal_lookback_days", "must be at least 1"))
	}

	s := c.Schedule
	if s.FastInterval.D() <= 0 {
		add(fieldErr("schedule.fast_interval", "must be positive"))
	}
	if s.SlowInterval.D() < s.FastInterval.D() {
		add(fieldErr("schedule.slow_interval", "must not be shorter than fast_interval"))
	}
	if _, err := risk.ParseClock(s.EarningsShield); err != nil {
		add(fieldErr("schedule.earnings_shield", "must be HH:MM"))
	}
	if _, err := time.LoadLocation(s.ExchangeZone); err != nil {
		add(fieldErr("schedule.exchange_zone", "unknown zone %q", s.ExchangeZone))
	}

	if c.Timeouts.Venue.D() <= 0 {
		add(fieldErr("timeouts.venue", "must be positive"))
	}
	if c.Timeouts.Feed.D() <= 0 {
		add(fieldErr("timeouts.feed", "must be positive"))
	}

	if c.Paths.JournalCSV == "" {
		add(fieldErr("paths.journal_csv", "is required"))
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		add(fieldErr("log.level", "must be debug, info, warn or error, got %q", c.Log.Level))
	}

	switch c.Earnings.Source {
	case "file":
		if c.Paths.EarningsCache == "" {
			add(fieldErr("paths.earnings_cache", "is required for the file earnings source"))
		}
	case "redis":
		if c.Redis.Addr == "" {
			add(fieldErr("redis.addr", "is required for the redis earnings source"))
		}
	default:
		add(fieldErr("earnings.source", "must be file or redis, got %q", c.Earnings.Source))
	}

	if c.Paper.Balance < 0 {
		add(fieldErr("paper.balance", "must not be negative"))
	}
	return errors.Join(errs...)
}
